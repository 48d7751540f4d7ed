package board

import (
	"errors"
	"testing"

	"github.com/sandeepkv93/tasktree/internal/model"
)

func sample() []model.SubTask {
	return []model.SubTask{
		{ID: "a", Status: model.StatusPending},
		{ID: "b", Status: model.StatusInProgress},
		{ID: "c", Status: "blocked"},
		{ID: "d", Status: model.StatusDone, IsDone: true},
		{ID: "e"},
	}
}

func laneIDs(subs []model.SubTask) string {
	out := ""
	for _, s := range subs {
		out += s.ID
	}
	return out
}

func TestBuildPartitionsAndDefaultsToPending(t *testing.T) {
	b := Build(sample())
	if laneIDs(b.Pending) != "ace" || laneIDs(b.InProgress) != "b" || laneIDs(b.Done) != "d" {
		t.Fatalf("unexpected lanes: %s | %s | %s", laneIDs(b.Pending), laneIDs(b.InProgress), laneIDs(b.Done))
	}
	if b.Pending[1].Status != model.StatusPending {
		t.Fatalf("unknown status must normalize to pending, got %q", b.Pending[1].Status)
	}
	if laneIDs(b.Flatten()) != "acebd" || b.Len() != 5 {
		t.Fatalf("unexpected flatten: %s", laneIDs(b.Flatten()))
	}
}

func TestMoveAcrossLanesUpdatesStatus(t *testing.T) {
	b := Build(sample())
	next, moved, err := b.Apply(Move{SourceLane: model.StatusPending, SourceIndex: 0, DestLane: model.StatusDone, DestIndex: 0})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if moved.ID != "a" || moved.Status != model.StatusDone || !moved.IsDone {
		t.Fatalf("unexpected moved subtask: %+v", moved)
	}
	if laneIDs(next.Pending) != "ce" || laneIDs(next.Done) != "ad" {
		t.Fatalf("unexpected lanes: %s | %s", laneIDs(next.Pending), laneIDs(next.Done))
	}
	if laneIDs(b.Pending) != "ace" {
		t.Fatal("original board must not change")
	}

	back, moved, err := next.Apply(Move{SourceLane: model.StatusDone, SourceIndex: 0, DestLane: model.StatusInProgress, DestIndex: 99})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if moved.IsDone || moved.Status != model.StatusInProgress || laneIDs(back.InProgress) != "ba" {
		t.Fatalf("expected clamped append to in-progress, got %s %+v", laneIDs(back.InProgress), moved)
	}
}

func TestMoveWithinLaneOnlyReorders(t *testing.T) {
	b := Build(sample())
	next, moved, err := b.Apply(Move{SourceLane: model.StatusPending, SourceIndex: 2, DestLane: model.StatusPending, DestIndex: 0})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if laneIDs(next.Pending) != "eac" {
		t.Fatalf("unexpected order: %s", laneIDs(next.Pending))
	}
	if moved.Status != model.StatusPending || moved.IsDone {
		t.Fatalf("same-lane move must not change status: %+v", moved)
	}
	if next.Len() != b.Len() {
		t.Fatal("lane counts must be preserved")
	}
}

func TestMoveValidation(t *testing.T) {
	b := Build(sample())
	if _, _, err := b.Apply(Move{SourceLane: model.StatusDone, SourceIndex: 3, DestLane: model.StatusPending}); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
	if _, _, err := b.Apply(Move{SourceLane: "later", DestLane: model.StatusPending}); !errors.Is(err, ErrInvalidLane) {
		t.Fatalf("expected ErrInvalidLane, got %v", err)
	}
}

func TestLocate(t *testing.T) {
	b := Build(sample())
	lane, idx, ok := b.Locate("e")
	if !ok || lane != model.StatusPending || idx != 2 {
		t.Fatalf("unexpected location: %s %d %v", lane, idx, ok)
	}
	if _, _, ok := b.Locate("zz"); ok {
		t.Fatal("unknown id must not be found")
	}
}
