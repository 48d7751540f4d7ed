package notify

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Title string
	Body  string
	Level Level
	At    time.Time
}

type Notifier interface {
	Send(Notification) error
}

type Noop struct{}

func (Noop) Send(Notification) error { return nil }

// Exec posts desktop notifications through notify-send or osascript.
type Exec struct{}

func (Exec) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(n Notification) error {
	var errs []error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Send(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const defaultFeedSize = 40

// Feed keeps the most recent notifications and forwards each one to a
// buffered channel. Sends never block; a full channel counts a drop.
type Feed struct {
	mu      sync.Mutex
	items   []Notification
	limit   int
	out     chan Notification
	now     func() time.Time
	dropped uint64
}

func NewFeed(limit, buffer int) *Feed {
	if limit <= 0 {
		limit = defaultFeedSize
	}
	if buffer <= 0 {
		buffer = 1
	}
	return &Feed{limit: limit, out: make(chan Notification, buffer), now: time.Now}
}

func (f *Feed) Send(n Notification) error {
	if strings.TrimSpace(n.Body) == "" && strings.TrimSpace(n.Title) == "" {
		return nil
	}
	if n.At.IsZero() {
		n.At = f.now().UTC()
	}
	if n.Level == "" {
		n.Level = LevelInfo
	}
	f.mu.Lock()
	f.items = append(f.items, n)
	if len(f.items) > f.limit {
		f.items = f.items[len(f.items)-f.limit:]
	}
	f.mu.Unlock()

	select {
	case f.out <- n:
	default:
		atomic.AddUint64(&f.dropped, 1)
	}
	return nil
}

func (f *Feed) C() <-chan Notification {
	return f.out
}

// Recent returns up to n notifications, newest last.
func (f *Feed) Recent(n int) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n <= 0 || n > len(f.items) {
		n = len(f.items)
	}
	return append([]Notification(nil), f.items[len(f.items)-n:]...)
}

func (f *Feed) Latest() (Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) == 0 {
		return Notification{}, false
	}
	return f.items[len(f.items)-1], true
}

func (f *Feed) Dropped() uint64 {
	return atomic.LoadUint64(&f.dropped)
}
