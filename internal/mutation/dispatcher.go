package mutation

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	ErrStopped    = errors.New("mutation: dispatcher stopped")
	ErrInvalidKey = errors.New("mutation: lane key is required")
	ErrPanicked   = errors.New("mutation: job panicked")
)

// Dispatcher runs jobs on FIFO lanes keyed by parent collection. Jobs that
// share a key run one at a time in dispatch order; different keys run
// concurrently. A lane goroutine exits once its queue drains.
type Dispatcher struct {
	mu      sync.Mutex
	lanes   map[string]*lane
	logger  *slog.Logger
	wg      sync.WaitGroup
	started bool
	stopped bool
	doneCh  chan struct{}
	dropped uint64
	panics  uint64
}

type lane struct {
	key     string
	queue   []queued
	running bool
}

type queued struct {
	run  func()
	drop func(error)
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		lanes:  make(map[string]*lane),
		logger: logger,
		doneCh: make(chan struct{}),
	}
}

// Start begins draining lanes, including jobs queued before Start.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	for _, l := range d.lanes {
		d.spawn(l)
	}
}

// Stop rejects new jobs and waits for queued ones to finish. Jobs queued on
// a dispatcher that never started are dropped and their drop callbacks get
// ErrStopped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		<-d.doneCh
		return
	}
	d.stopped = true
	var dropped []queued
	if !d.started {
		for key, l := range d.lanes {
			dropped = append(dropped, l.queue...)
			delete(d.lanes, key)
		}
		atomic.AddUint64(&d.dropped, uint64(len(dropped)))
	}
	d.mu.Unlock()
	for _, q := range dropped {
		if q.drop != nil {
			q.drop(ErrStopped)
		}
	}
	d.wg.Wait()
	close(d.doneCh)
}

func (d *Dispatcher) Dispatch(key string, job func()) error {
	return d.DispatchOrDrop(key, job, nil)
}

// DispatchOrDrop is Dispatch with a callback for a job that will never run.
func (d *Dispatcher) DispatchOrDrop(key string, job func(), drop func(error)) error {
	if key == "" {
		return ErrInvalidKey
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	l, ok := d.lanes[key]
	if !ok {
		l = &lane{key: key}
		d.lanes[key] = l
	}
	l.queue = append(l.queue, queued{run: job, drop: drop})
	if d.started {
		d.spawn(l)
	}
	return nil
}

// Pending reports how many jobs are queued or running on key.
func (d *Dispatcher) Pending(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.lanes[key]
	if !ok {
		return 0
	}
	n := len(l.queue)
	if l.running {
		n++
	}
	return n
}

func (d *Dispatcher) Dropped() uint64 {
	return atomic.LoadUint64(&d.dropped)
}

func (d *Dispatcher) Panics() uint64 {
	return atomic.LoadUint64(&d.panics)
}

// spawn must be called with d.mu held.
func (d *Dispatcher) spawn(l *lane) {
	if l.running || len(l.queue) == 0 {
		return
	}
	l.running = true
	d.wg.Add(1)
	go d.drain(l)
}

func (d *Dispatcher) drain(l *lane) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			delete(d.lanes, l.key)
			d.mu.Unlock()
			return
		}
		job := l.queue[0]
		l.queue[0] = queued{}
		l.queue = l.queue[1:]
		d.mu.Unlock()

		d.run(l.key, job.run)
	}
}

func (d *Dispatcher) run(key string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddUint64(&d.panics, 1)
			d.logger.Error("mutation job panicked", slog.String("lane", key), slog.String("error", fmt.Sprint(r)))
		}
	}()
	job()
}
