package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrInvalidPriority = errors.New("model: invalid priority")
	ErrInvalidStatus   = errors.New("model: invalid subtask status")
	ErrEmptyPatch      = errors.New("model: patch has no fields")
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

type Assignee struct {
	Email string `json:"email"`
}

type Task struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Priority         Priority   `json:"priority"`
	IsImportant      bool       `json:"isImportant"`
	DueDate          *time.Time `json:"dueDate"`
	Tags             []string   `json:"tags"`
	IsDone           bool       `json:"isDone"`
	AssignedTo       []Assignee `json:"assignedTo"`
	SubtaskCount     int        `json:"subtaskCount"`
	SubtaskCompleted int        `json:"subtaskCompleted"`
	SubTasks         []SubTask  `json:"subTasks"`
}

// NewTask is the caller-supplied part of a task at creation time.
type NewTask struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	IsImportant bool       `json:"isImportant"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags"`
	AssignedTo  []Assignee `json:"assignedTo"`
}

func (n NewTask) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return errors.New("model: task name is required")
	}
	if n.Priority != "" && !n.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, n.Priority)
	}
	return nil
}

// Tentative builds the optimistic record shown until the backend answers.
// Server-computed fields start at their zero values.
func (n NewTask) Tentative(id string) Task {
	priority := n.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	return Task{
		ID:          id,
		Name:        strings.TrimSpace(n.Name),
		Description: n.Description,
		Priority:    priority,
		IsImportant: n.IsImportant,
		DueDate:     cloneTime(n.DueDate),
		Tags:        normalizeTags(n.Tags),
		AssignedTo:  slices.Clone(n.AssignedTo),
	}
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("model: task name is required")
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	return nil
}

func (t Task) Clone() Task {
	out := t
	out.DueDate = cloneTime(t.DueDate)
	out.Tags = slices.Clone(t.Tags)
	out.AssignedTo = slices.Clone(t.AssignedTo)
	out.SubTasks = CloneSubTasks(t.SubTasks)
	return out
}

func (t Task) IsAssigned(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, a := range t.AssignedTo {
		if strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

func (t Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}

// Recount refreshes the derived subtask counters from SubTasks.
func (t *Task) Recount() {
	t.SubtaskCount = len(t.SubTasks)
	done := 0
	for _, s := range t.SubTasks {
		if s.IsDone {
			done++
		}
	}
	t.SubtaskCompleted = done
}

func (t Task) SubTaskIndex(subID string) int {
	for i := range t.SubTasks {
		if t.SubTasks[i].ID == subID {
			return i
		}
	}
	return -1
}

func CloneTasks(in []Task) []Task {
	if in == nil {
		return nil
	}
	out := make([]Task, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.ContainsFunc(out, func(s string) bool { return strings.EqualFold(s, tag) }) {
			continue
		}
		out = append(out, tag)
	}
	return out
}
