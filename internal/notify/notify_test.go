package notify

import (
	"errors"
	"fmt"
	"testing"
)

func TestFeedKeepsMostRecent(t *testing.T) {
	feed := NewFeed(3, 10)
	for i := 0; i < 5; i++ {
		_ = feed.Send(Notification{Title: "n", Body: fmt.Sprintf("body-%d", i)})
	}
	recent := feed.Recent(0)
	if len(recent) != 3 || recent[0].Body != "body-2" || recent[2].Body != "body-4" {
		t.Fatalf("unexpected recent: %+v", recent)
	}
	latest, ok := feed.Latest()
	if !ok || latest.Body != "body-4" || latest.Level != LevelInfo || latest.At.IsZero() {
		t.Fatalf("unexpected latest: %+v", latest)
	}
}

func TestFeedDropsWhenConsumerIsSlow(t *testing.T) {
	feed := NewFeed(10, 1)
	_ = feed.Send(Notification{Body: "first"})
	_ = feed.Send(Notification{Body: "second"})
	if feed.Dropped() != 1 {
		t.Fatalf("expected one drop, got %d", feed.Dropped())
	}
	if n := <-feed.C(); n.Body != "first" {
		t.Fatalf("unexpected channel value: %+v", n)
	}
}

func TestFeedIgnoresEmpty(t *testing.T) {
	feed := NewFeed(0, 0)
	_ = feed.Send(Notification{Body: "  "})
	if _, ok := feed.Latest(); ok {
		t.Fatal("empty notification must be ignored")
	}
}

type failing struct{ err error }

func (f failing) Send(Notification) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	feed := NewFeed(1, 1)
	err := Multi{feed, nil, failing{err: boom}, Noop{}}.Send(Notification{Body: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if _, ok := feed.Latest(); !ok {
		t.Fatal("feed must still receive the notification")
	}
}
