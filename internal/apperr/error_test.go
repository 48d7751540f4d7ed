package apperr

import (
	"errors"
	"fmt"
	"testing"
)

type backendErr struct{ msg string }

func (b backendErr) Error() string       { return "status 400: " + b.msg }
func (b backendErr) UserMessage() string { return b.msg }

func TestKindOfThroughWrapping(t *testing.T) {
	base := Validation("create task", "task name is required")
	wrapped := fmt.Errorf("dispatch: %w", base)

	kind, ok := KindOf(wrapped)
	if !ok || kind != KindValidationFailure {
		t.Fatalf("expected validation kind, got %q ok=%v", kind, ok)
	}
	if !IsKind(wrapped, KindValidationFailure) {
		t.Fatal("expected IsKind to match")
	}
	if IsKind(errors.New("plain"), KindValidationFailure) {
		t.Fatal("plain error must not match any kind")
	}
}

func TestWrapPrefersBackendMessage(t *testing.T) {
	err := Wrap(KindRequestFailed, "delete section", backendErr{msg: "section is locked"})
	if err.Message != "section is locked" {
		t.Fatalf("unexpected message: %q", err.Message)
	}
	if got := err.Error(); got != "request_failed: delete section: section is locked" {
		t.Fatalf("unexpected error text: %q", got)
	}
	var be backendErr
	if !errors.As(err, &be) {
		t.Fatal("expected wrapped backend error to be reachable")
	}
}

func TestOutermostMessageWins(t *testing.T) {
	inner := Wrap(KindRequestFailed, "create task", backendErr{msg: "quota exceeded"})
	outer := &Error{Kind: KindMutationFailed, Op: "create task", Message: `Failed to create task "T1": quota exceeded`, Err: inner}
	if got := UserMessage(fmt.Errorf("wrapped: %w", outer)); got != outer.Message {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := UserMessage(&Error{Kind: KindAuthFailure, Err: inner}); got != "quota exceeded" {
		t.Fatalf("expected fallback to inner message, got %q", got)
	}
}
