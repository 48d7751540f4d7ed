package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sandeepkv93/tasktree/internal/model"
)

var (
	ErrInvalidStatus = errors.New("filter: invalid status")
	ErrInvalidRange  = errors.New("filter: invalid date range")
	ErrUnknownKey    = errors.New("filter: unknown key")
)

type Status string

const (
	StatusAny        Status = ""
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAny, StatusCompleted, StatusIncomplete:
		return true
	default:
		return false
	}
}

// DateRange bounds are inclusive whole days. Each bound is read as the
// calendar day it names in its own location, and a due date as the calendar
// day in the location it carries, so a date-only value stored as midnight
// UTC matches the same day in every time zone.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	day := calendarDay(t)
	return !day.Before(calendarDay(r.Start)) && !day.After(calendarDay(r.End))
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Criteria narrows a task list. Zero-valued fields do not filter.
type Criteria struct {
	SectionID string
	Status    Status
	Priority  model.Priority
	DueRange  *DateRange
	Tags      []string
	Search    string
}

func (c Criteria) IsZero() bool {
	return c.SectionID == "" && c.Status == StatusAny && c.Priority == "" && c.DueRange == nil &&
		len(c.Tags) == 0 && strings.TrimSpace(c.Search) == ""
}

func (c Criteria) Validate() error {
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}
	if c.Priority != "" && !c.Priority.IsValid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidPriority, c.Priority)
	}
	if c.DueRange != nil && calendarDay(c.DueRange.End).Before(calendarDay(c.DueRange.Start)) {
		return fmt.Errorf("%w: end before start", ErrInvalidRange)
	}
	return nil
}

// Match reports whether task, owned by sectionID, passes every criterion.
func (c Criteria) Match(task model.Task, sectionID string) bool {
	if c.SectionID != "" && c.SectionID != sectionID {
		return false
	}
	switch c.Status {
	case StatusCompleted:
		if !task.IsDone {
			return false
		}
	case StatusIncomplete:
		if task.IsDone {
			return false
		}
	}
	if c.Priority != "" && task.Priority != c.Priority {
		return false
	}
	if c.DueRange != nil && (task.DueDate == nil || !c.DueRange.Contains(*task.DueDate)) {
		return false
	}
	if len(c.Tags) > 0 && !slices.ContainsFunc(c.Tags, task.HasTag) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(c.Search)); term != "" {
		if !strings.Contains(strings.ToLower(task.Name), term) &&
			!slices.ContainsFunc(task.Tags, func(tag string) bool { return strings.Contains(strings.ToLower(tag), term) }) {
			return false
		}
	}
	return true
}

// Project returns the tasks of sectionID that match c, in their original
// order. The input is not modified.
func Project(tasks []model.Task, sectionID string, c Criteria) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if c.Match(task, sectionID) {
			out = append(out, task.Clone())
		}
	}
	return out
}

// ProjectSections applies Project to every section. Sections excluded by
// the section criterion are dropped; other sections are kept even when no
// task matches so they stay visible as empty groups.
func ProjectSections(sections []model.Section, c Criteria) []model.Section {
	out := make([]model.Section, 0, len(sections))
	for _, sec := range sections {
		if c.SectionID != "" && c.SectionID != sec.ID {
			continue
		}
		projected := sec
		projected.Tasks = Project(sec.Tasks, sec.ID, c)
		out = append(out, projected)
	}
	return out
}
