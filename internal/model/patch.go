package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// TaskPatch is a partial update. Nil fields are left untouched;
// ClearDueDate removes the due date.
type TaskPatch struct {
	Name         *string
	Description  *string
	Priority     *Priority
	IsImportant  *bool
	DueDate      *time.Time
	ClearDueDate bool
	Tags         *[]string
	AssignedTo   *[]Assignee
}

func (p TaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Priority == nil && p.IsImportant == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.Tags == nil && p.AssignedTo == nil
}

func (p TaskPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return errors.New("model: task name cannot be empty")
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, *p.Priority)
	}
	if p.DueDate != nil && p.ClearDueDate {
		return errors.New("model: due date cannot be both set and cleared")
	}
	return nil
}

// Apply shallow-merges the patch into t and returns the result. t is not modified.
func (p TaskPatch) Apply(t Task) Task {
	out := t.Clone()
	if p.Name != nil {
		out.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.IsImportant != nil {
		out.IsImportant = *p.IsImportant
	}
	if p.DueDate != nil {
		out.DueDate = cloneTime(p.DueDate)
	}
	if p.ClearDueDate {
		out.DueDate = nil
	}
	if p.Tags != nil {
		out.Tags = normalizeTags(*p.Tags)
	}
	if p.AssignedTo != nil {
		out.AssignedTo = slices.Clone(*p.AssignedTo)
	}
	return out
}

func (p TaskPatch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any)
	if p.Name != nil {
		body["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	if p.IsImportant != nil {
		body["isImportant"] = *p.IsImportant
	}
	if p.DueDate != nil {
		body["dueDate"] = p.DueDate.UTC()
	}
	if p.ClearDueDate {
		body["dueDate"] = nil
	}
	if p.Tags != nil {
		body["tags"] = normalizeTags(*p.Tags)
	}
	if p.AssignedTo != nil {
		body["assignedTo"] = *p.AssignedTo
	}
	return json.Marshal(body)
}

// SubTaskPatch is a partial subtask update. isDone is not settable on its
// own: it always follows Status.
type SubTaskPatch struct {
	Name          *string
	Description   *string
	Status        *SubTaskStatus
	Priority      *Priority
	Deadline      *time.Time
	ClearDeadline bool
	AssignedTo    *[]Assignee
}

func (p SubTaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.Deadline == nil && !p.ClearDeadline && p.AssignedTo == nil
}

func (p SubTaskPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return errors.New("model: subtask name cannot be empty")
	}
	if p.Status != nil && !p.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, *p.Priority)
	}
	if p.Deadline != nil && p.ClearDeadline {
		return errors.New("model: deadline cannot be both set and cleared")
	}
	return nil
}

func (p SubTaskPatch) Apply(s SubTask) SubTask {
	out := s.Clone()
	if p.Name != nil {
		out.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Deadline != nil {
		out.Deadline = cloneTime(p.Deadline)
	}
	if p.ClearDeadline {
		out.Deadline = nil
	}
	if p.AssignedTo != nil {
		out.AssignedTo = slices.Clone(*p.AssignedTo)
	}
	out.normalize()
	return out
}

func (p SubTaskPatch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any)
	if p.Name != nil {
		body["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Status != nil {
		status := p.Status.Normalize()
		body["status"] = status
		body["isDone"] = status == StatusDone
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	if p.Deadline != nil {
		body["deadline"] = p.Deadline.UTC()
	}
	if p.ClearDeadline {
		body["deadline"] = nil
	}
	if p.AssignedTo != nil {
		body["assignedTo"] = *p.AssignedTo
	}
	return json.Marshal(body)
}

// StatusPatch is the patch a board move persists.
func StatusPatch(status SubTaskStatus) SubTaskPatch {
	return SubTaskPatch{Status: &status}
}
