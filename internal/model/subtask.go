package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

type SubTaskStatus string

const (
	StatusPending    SubTaskStatus = "pending"
	StatusInProgress SubTaskStatus = "in-progress"
	StatusDone       SubTaskStatus = "done"
)

func (s SubTaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Normalize maps missing or unrecognized statuses to pending.
func (s SubTaskStatus) Normalize() SubTaskStatus {
	if s.IsValid() {
		return s
	}
	return StatusPending
}

type SubTask struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      SubTaskStatus `json:"status"`
	IsDone      bool          `json:"isDone"`
	Priority    Priority      `json:"priority"`
	Deadline    *time.Time    `json:"deadline"`
	AssignedTo  []Assignee    `json:"assignedTo"`
	CreatedBy   string        `json:"createdBy"`
}

// UnmarshalJSON treats status as canonical and derives isDone from it,
// whatever the payload says.
func (s *SubTask) UnmarshalJSON(data []byte) error {
	type raw SubTask
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*s = SubTask(r)
	s.normalize()
	return nil
}

func (s *SubTask) normalize() {
	s.Status = s.Status.Normalize()
	s.IsDone = s.Status == StatusDone
}

// WithStatus returns a copy moved to status with isDone kept consistent.
func (s SubTask) WithStatus(status SubTaskStatus) SubTask {
	s.Status = status
	s.normalize()
	return s
}

func (s SubTask) Clone() SubTask {
	out := s
	out.Deadline = cloneTime(s.Deadline)
	out.AssignedTo = slices.Clone(s.AssignedTo)
	return out
}

func CloneSubTasks(in []SubTask) []SubTask {
	if in == nil {
		return nil
	}
	out := make([]SubTask, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

type NewSubTask struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      SubTaskStatus `json:"status"`
	Priority    Priority      `json:"priority"`
	Deadline    *time.Time    `json:"deadline"`
	AssignedTo  []Assignee    `json:"assignedTo"`
}

func (n NewSubTask) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return errors.New("model: subtask name is required")
	}
	if n.Status != "" && !n.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, n.Status)
	}
	if n.Priority != "" && !n.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, n.Priority)
	}
	return nil
}

func (n NewSubTask) Tentative(id, createdBy string) SubTask {
	priority := n.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	out := SubTask{
		ID:          id,
		Name:        strings.TrimSpace(n.Name),
		Description: n.Description,
		Status:      n.Status,
		Priority:    priority,
		Deadline:    cloneTime(n.Deadline),
		AssignedTo:  slices.Clone(n.AssignedTo),
		CreatedBy:   createdBy,
	}
	out.normalize()
	return out
}

// MarshalJSON sends the derived isDone alongside status so backends that
// store both fields stay consistent.
func (n NewSubTask) MarshalJSON() ([]byte, error) {
	type raw NewSubTask
	status := n.Status.Normalize()
	return json.Marshal(struct {
		raw
		Status SubTaskStatus `json:"status"`
		IsDone bool          `json:"isDone"`
	}{raw: raw(n), Status: status, IsDone: status == StatusDone})
}
