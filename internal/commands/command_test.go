package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/tasktree/internal/model"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/section Work", TypeSection},
		{"task pay rent", TypeTask},
		{"add pay rent", TypeTask},
		{"sub write tests status:in-progress", TypeSubTask},
		{"rename Launch", TypeRename},
		{"priority HIGH", TypePriority},
		{"due none", TypeDue},
		{"tags ops, release", TypeTags},
		{"rm", TypeRemove},
		{"toggle", TypeDone},
		{"assign Bo@Example.com", TypeAssign},
		{"f status:completed", TypeFilter},
		{"clear", TypeClear},
		{"share", TypeShare},
		{"public", TypePublic},
		{"open abc123", TypeOpen},
		{"dark on", TypeDark},
		{"sync", TypeRefresh},
		{"logout", TypeLogout},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseTaskOptions(t *testing.T) {
	cmd, err := Parse("task Ship release p:high due:2026-03-01 tag:ops,release !")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	task := cmd.Task.Task
	if task.Name != "Ship release" || task.Priority != model.PriorityHigh || !task.IsImportant {
		t.Fatalf("unexpected task: %+v", task)
	}
	if len(task.Tags) != 2 || task.Tags[0] != "ops" || task.Tags[1] != "release" {
		t.Fatalf("unexpected tags: %v", task.Tags)
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if task.DueDate == nil || !task.DueDate.Equal(want) {
		t.Fatalf("unexpected due date: %v", task.DueDate)
	}
}

func TestParseKeepsUnknownOptionsInName(t *testing.T) {
	cmd, err := Parse("task call re: budget")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Task.Task.Name != "call re: budget" {
		t.Fatalf("unexpected name: %q", cmd.Task.Task.Name)
	}
}

func TestParseInvalidArguments(t *testing.T) {
	for _, in := range []string{
		"task",
		"task p:high",
		"task x p:urgent",
		"sub y status:blocked",
		"priority",
		"due tomorrow",
		"assign bob",
		"dark maybe",
		"filter",
		"rm now",
		"open",
	} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("%q: expected invalid argument, got %v", in, err)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/unknown do x")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "/"} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
			t.Fatalf("%q: expected empty input, got %v", in, err)
		}
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/section write docs")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Section: func(a NameArgs) (Result, error) {
			called = true
			if a.Name != "write docs" {
				t.Fatalf("unexpected name: %q", a.Name)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteNoArgumentCommand(t *testing.T) {
	cmd, err := Parse("done")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res, err := Execute(cmd, Handlers{Done: func() (Result, error) { return Result{Message: "toggled"}, nil }})
	if err != nil || res.Message != "toggled" {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("share")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
