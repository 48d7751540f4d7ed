package model

import (
	"encoding/json"
	"testing"
)

func TestSubTaskDecodeDerivesIsDone(t *testing.T) {
	cases := []struct {
		payload    string
		wantStatus SubTaskStatus
		wantDone   bool
	}{
		{`{"id":"s1","status":"done","isDone":false}`, StatusDone, true},
		{`{"id":"s2","status":"in-progress","isDone":true}`, StatusInProgress, false},
		{`{"id":"s3","status":"blocked"}`, StatusPending, false},
		{`{"id":"s4"}`, StatusPending, false},
	}
	for _, tc := range cases {
		var s SubTask
		if err := json.Unmarshal([]byte(tc.payload), &s); err != nil {
			t.Fatalf("decode %s: %v", tc.payload, err)
		}
		if s.Status != tc.wantStatus || s.IsDone != tc.wantDone {
			t.Fatalf("decode %s = (%s,%v), want (%s,%v)", tc.payload, s.Status, s.IsDone, tc.wantStatus, tc.wantDone)
		}
	}
}

func TestSubTaskPatchKeepsStatusAndIsDoneConsistent(t *testing.T) {
	sub := SubTask{ID: "s1", Name: "write", Status: StatusDone, IsDone: true}
	got := StatusPatch(StatusInProgress).Apply(sub)
	if got.Status != StatusInProgress || got.IsDone {
		t.Fatalf("unexpected subtask after patch: %+v", got)
	}

	raw, err := json.Marshal(StatusPatch(StatusDone))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"isDone":true,"status":"done"}` {
		t.Fatalf("unexpected wire patch: %s", raw)
	}
}

func TestNewSubTaskTentative(t *testing.T) {
	in := NewSubTask{Name: "outline", Status: StatusDone}
	if err := in.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	sub := in.Tentative("tmp-1", "user-1")
	if !sub.IsDone || sub.CreatedBy != "user-1" || sub.Priority != PriorityMedium {
		t.Fatalf("unexpected tentative subtask: %+v", sub)
	}

	bad := NewSubTask{Name: "x", Status: SubTaskStatus("later")}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected invalid status to be rejected")
	}
}
