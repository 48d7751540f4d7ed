package mutation

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherKeepsLaneOrder(t *testing.T) {
	d := NewDispatcher(nil)
	d.Start()
	defer d.Stop()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	wg.Add(20)
	for i := 0; i < 20; i++ {
		if err := d.Dispatch("tasks:s1", func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}
	wg.Wait()
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, got)
		}
	}
}

func TestDispatcherRunsLanesIndependently(t *testing.T) {
	d := NewDispatcher(nil)
	d.Start()
	defer d.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	_ = d.Dispatch("tasks:s1", func() {
		close(started)
		<-block
	})
	<-started
	_ = d.Dispatch("tasks:s2", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a blocked lane must not hold up other lanes")
	}
	if d.Pending("tasks:s1") != 1 {
		t.Fatalf("expected the blocked job to be pending, got %d", d.Pending("tasks:s1"))
	}
	close(block)
}

func TestDispatcherQueuesUntilStart(t *testing.T) {
	d := NewDispatcher(nil)
	ran := make(chan struct{})
	if err := d.Dispatch("sections", func() { close(ran) }); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	select {
	case <-ran:
		t.Fatal("job ran before Start")
	case <-time.After(20 * time.Millisecond):
	}
	d.Start()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued job did not run after Start")
	}
	d.Stop()
}

func TestDispatcherStopWithoutStartDrops(t *testing.T) {
	d := NewDispatcher(nil)
	var reasons []error
	_ = d.Dispatch("sections", func() {})
	_ = d.DispatchOrDrop("sections", func() { t.Error("dropped job ran") }, func(err error) { reasons = append(reasons, err) })
	d.Stop()
	if d.Dropped() != 2 {
		t.Fatalf("expected two dropped jobs, got %d", d.Dropped())
	}
	if len(reasons) != 1 || reasons[0] != ErrStopped {
		t.Fatalf("expected drop callback with ErrStopped, got %v", reasons)
	}
	if err := d.Dispatch("sections", func() {}); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if err := d.Dispatch("", func() {}); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestDispatcherSurvivesPanickingJob(t *testing.T) {
	d := NewDispatcher(nil)
	d.Start()
	defer d.Stop()

	ran := make(chan struct{})
	_ = d.Dispatch("sections", func() { panic("boom") })
	_ = d.Dispatch("sections", func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("lane stalled after a panic")
	}
	if d.Panics() != 1 {
		t.Fatalf("expected one recorded panic, got %d", d.Panics())
	}
}

func TestDispatcherStressConcurrentDispatch(t *testing.T) {
	d := NewDispatcher(nil)
	d.Start()

	const workers = 8
	const perWorker = 200
	total := workers * perWorker

	var executed int64
	perLane := make([][]int, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("tasks:s%d", w)
			for i := 0; i < perWorker; i++ {
				if err := d.Dispatch(key, func() {
					perLane[w] = append(perLane[w], i)
					atomic.AddInt64(&executed, 1)
				}); err != nil {
					t.Errorf("dispatch failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	d.Stop()

	if got := atomic.LoadInt64(&executed); int(got) != total {
		t.Fatalf("unexpected executed count: got=%d want=%d", got, total)
	}
	for w, seq := range perLane {
		for i, v := range seq {
			if v != i {
				t.Fatalf("lane %d out of order at %d", w, i)
			}
		}
	}
	if d.Dropped() != 0 {
		t.Fatalf("expected zero drops, got=%d", d.Dropped())
	}
}
