package board

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sandeepkv93/tasktree/internal/model"
)

var (
	ErrInvalidLane  = errors.New("board: invalid lane")
	ErrInvalidIndex = errors.New("board: source index out of range")
)

// Lanes lists the board columns in display order.
var Lanes = []model.SubTaskStatus{model.StatusPending, model.StatusInProgress, model.StatusDone}

// Board is a task's subtasks partitioned by status.
type Board struct {
	Pending    []model.SubTask
	InProgress []model.SubTask
	Done       []model.SubTask
}

// Build partitions subtasks, keeping their relative order. Unknown or
// missing statuses land in pending.
func Build(subtasks []model.SubTask) Board {
	var b Board
	for _, s := range subtasks {
		s = s.WithStatus(s.Status)
		lane := b.lane(s.Status)
		*lane = append(*lane, s.Clone())
	}
	return b
}

func (b *Board) lane(status model.SubTaskStatus) *[]model.SubTask {
	switch status {
	case model.StatusInProgress:
		return &b.InProgress
	case model.StatusDone:
		return &b.Done
	default:
		return &b.Pending
	}
}

func (b Board) Lane(status model.SubTaskStatus) []model.SubTask {
	return *b.lane(status)
}

func (b Board) Len() int {
	return len(b.Pending) + len(b.InProgress) + len(b.Done)
}

// Flatten joins the lanes back into one ordered subtask list.
func (b Board) Flatten() []model.SubTask {
	out := make([]model.SubTask, 0, b.Len())
	for _, status := range Lanes {
		out = append(out, b.Lane(status)...)
	}
	return out
}

type Move struct {
	SourceLane  model.SubTaskStatus
	SourceIndex int
	DestLane    model.SubTaskStatus
	DestIndex   int
}

func (m Move) Validate() error {
	if !m.SourceLane.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLane, m.SourceLane)
	}
	if !m.DestLane.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLane, m.DestLane)
	}
	return nil
}

// Apply performs m and returns the new board and the moved subtask with its
// status and isDone updated. A destination index outside the lane is
// clamped. b is not modified.
func (b Board) Apply(m Move) (Board, model.SubTask, error) {
	if err := m.Validate(); err != nil {
		return b, model.SubTask{}, err
	}
	src := b.Lane(m.SourceLane)
	if m.SourceIndex < 0 || m.SourceIndex >= len(src) {
		return b, model.SubTask{}, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidIndex, m.SourceIndex, len(src))
	}

	out := Board{
		Pending:    model.CloneSubTasks(b.Pending),
		InProgress: model.CloneSubTasks(b.InProgress),
		Done:       model.CloneSubTasks(b.Done),
	}
	from := out.lane(m.SourceLane)
	moved := (*from)[m.SourceIndex]
	*from = slices.Delete(*from, m.SourceIndex, m.SourceIndex+1)

	if m.DestLane != m.SourceLane {
		moved = moved.WithStatus(m.DestLane)
	}
	to := out.lane(m.DestLane)
	idx := min(max(m.DestIndex, 0), len(*to))
	*to = slices.Insert(*to, idx, moved)
	return out, moved, nil
}

// Locate finds the lane and index of a subtask.
func (b Board) Locate(subID string) (model.SubTaskStatus, int, bool) {
	for _, status := range Lanes {
		if idx := slices.IndexFunc(b.Lane(status), func(s model.SubTask) bool { return s.ID == subID }); idx >= 0 {
			return status, idx, true
		}
	}
	return "", -1, false
}
