package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/notify"
)

// Lens is a view onto one collection of the workspace. Update runs fn
// atomically with a private copy of the collection and stores the result.
// It reports false when the collection's parent no longer exists.
type Lens[T any] interface {
	Update(fn func(current []T) []T) bool
}

// Op describes one optimistic change. Apply and Reconcile must not modify
// the slice they are given; they return a new one.
type Op[T any] struct {
	Verb   string
	Entity string
	Name   string
	Key    string
	Lens   Lens[T]

	Apply func(current []T) ([]T, error)
	// Call performs the remote operation. ok reports whether record is an
	// authoritative copy to reconcile with.
	Call      func(ctx context.Context) (record T, ok bool, err error)
	Reconcile func(current []T, record T) []T
	// Recover replaces the snapshot restore on failure. When it fails the
	// snapshot is restored anyway.
	Recover func(ctx context.Context) error
}

func (op Op[T]) label() string {
	return op.Verb + " " + op.Entity
}

type Engine struct {
	dispatcher *Dispatcher
	notifier   notify.Notifier
	logger     *slog.Logger
	now        func() time.Time
}

func NewEngine(d *Dispatcher, n notify.Notifier, logger *slog.Logger) *Engine {
	if n == nil {
		n = notify.Noop{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{dispatcher: d, notifier: n, logger: logger, now: time.Now}
}

// Pending tracks a dispatched mutation. Applied closes once the tentative
// state is visible (or the mutation was rejected before that); Wait returns
// the final outcome.
type Pending struct {
	applied     chan struct{}
	done        chan struct{}
	appliedOnce sync.Once
	doneOnce    sync.Once
	err         error
}

func newPending() *Pending {
	return &Pending{applied: make(chan struct{}), done: make(chan struct{})}
}

func (p *Pending) Applied() <-chan struct{} { return p.applied }

func (p *Pending) Done() <-chan struct{} { return p.done }

func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err is the outcome once Done is closed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *Pending) markApplied() {
	p.appliedOnce.Do(func() { close(p.applied) })
}

func (p *Pending) finish(err error) {
	p.doneOnce.Do(func() {
		p.err = err
		p.markApplied()
		close(p.done)
	})
}

// Failed returns an already finished handle, for rejections that happen
// before anything is dispatched.
func Failed(err error) *Pending {
	p := newPending()
	p.finish(err)
	return p
}

// Submit queues op on its lane. The network call is not cancelled by ctx;
// only its values are carried over.
func Submit[T any](ctx context.Context, e *Engine, op Op[T]) *Pending {
	p := newPending()
	ctx = context.WithoutCancel(ctx)
	err := e.dispatcher.DispatchOrDrop(op.Key, func() { execute(ctx, e, op, p) }, func(err error) {
		p.finish(apperr.Wrap(apperr.KindMutationFailed, op.label(), err))
	})
	if err != nil {
		p.finish(apperr.Wrap(apperr.KindMutationFailed, op.label(), err))
	}
	return p
}

func execute[T any](ctx context.Context, e *Engine, op Op[T], p *Pending) {
	var snapshot []T
	var applyErr error
	applied := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if applied && !op.Lens.Update(func([]T) []T { return snapshot }) {
			e.logger.Debug("parent removed before rollback", slog.String("op", op.label()), slog.String("entity", op.Name))
		}
		p.finish(e.fail(op.Verb, op.Entity, op.Name, fmt.Errorf("%w: %v", ErrPanicked, r)))
		panic(r)
	}()
	exists := op.Lens.Update(func(current []T) []T {
		snapshot = current
		next, err := op.Apply(current)
		if err != nil {
			applyErr = err
			return current
		}
		return next
	})
	if !exists {
		p.finish(apperr.NotFound(op.label(), fmt.Sprintf("%s %q no longer exists", op.Entity, op.Name)))
		return
	}
	if applyErr != nil {
		p.finish(applyErr)
		return
	}
	applied = true
	p.markApplied()

	record, ok, err := op.Call(ctx)
	if err != nil {
		rollback(ctx, e, op, snapshot)
		p.finish(e.fail(op.Verb, op.Entity, op.Name, err))
		return
	}
	if ok && op.Reconcile != nil {
		if !op.Lens.Update(func(current []T) []T { return op.Reconcile(current, record) }) {
			e.logger.Debug("parent removed before reconcile", slog.String("op", op.label()), slog.String("entity", op.Name))
		}
	}
	p.finish(nil)
}

func rollback[T any](ctx context.Context, e *Engine, op Op[T], snapshot []T) {
	if op.Recover != nil {
		err := op.Recover(ctx)
		if err == nil {
			return
		}
		e.logger.Warn("recover failed, restoring snapshot", slog.String("op", op.label()), slog.String("error", err.Error()))
	}
	if !op.Lens.Update(func([]T) []T { return snapshot }) {
		e.logger.Debug("parent removed before rollback", slog.String("op", op.label()), slog.String("entity", op.Name))
	}
}

// fail reports a failed remote call to the user and builds the error the
// caller sees, e.g. Failed to create task "T1": quota exceeded.
func (e *Engine) fail(verb, entity, name string, cause error) error {
	msg := fmt.Sprintf("Failed to %s %s %q: %s", verb, entity, name, apperr.UserMessage(cause))
	e.logger.Warn("mutation rolled back",
		slog.String("op", verb+" "+entity),
		slog.String("entity", name),
		slog.String("error", cause.Error()),
	)
	if err := e.notifier.Send(notify.Notification{
		Title: "Change not saved",
		Body:  msg,
		Level: notify.LevelError,
		At:    e.now().UTC(),
	}); err != nil {
		e.logger.Debug("notification failed", slog.String("error", err.Error()))
	}
	return &apperr.Error{Kind: apperr.KindMutationFailed, Op: verb + " " + entity, Message: msg, Err: cause}
}
