package gudavision

import (
	"sync"
)

// Stream represents an ordered sequence of operations that execute
// asynchronously. Operations within a stream execute in order, but
// operations in different streams may execute concurrently.
type Stream struct {
	id    int
	tasks chan func()
	done  chan struct{}

	mu     sync.RWMutex // guards closed against in-flight sends
	closed bool

	// pending counts submitted tasks that have not finished; err is the
	// sticky failure. Both are guarded by stateMu.
	stateMu sync.Mutex
	idle    *sync.Cond
	pending int
	err     Status
}

func newStream(id, depth int) *Stream {
	if depth <= 0 {
		depth = DefaultStreamQueueDepth
	}
	s := &Stream{
		id:    id,
		tasks: make(chan func(), depth),
		done:  make(chan struct{}),
	}
	s.idle = sync.NewCond(&s.stateMu)
	go s.worker()
	return s
}

// ID returns the stream handle number.
func (s *Stream) ID() int { return s.id }

// worker processes tasks for a stream
func (s *Stream) worker() {
	for task := range s.tasks {
		s.run(task)
		s.stateMu.Lock()
		s.pending--
		if s.pending == 0 {
			s.idle.Broadcast()
		}
		s.stateMu.Unlock()
	}
	close(s.done)
}

func (s *Stream) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(ErrorLaunchFailure)
		}
	}()
	task()
}

// Submit adds a task to the stream and returns without waiting for it.
// It reports ErrorInvalidResourceHandle once the stream is destroyed.
// Submit and Synchronize may be called from any number of goroutines.
func (s *Stream) Submit(task func()) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrorInvalidResourceHandle
	}
	s.stateMu.Lock()
	s.pending++
	s.stateMu.Unlock()
	s.tasks <- task
	return Success
}

// Synchronize waits until the stream has no pending tasks. It returns
// the first failure recorded since the previous Synchronize and clears it.
func (s *Stream) Synchronize() Status {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	for s.pending > 0 {
		s.idle.Wait()
	}
	st := s.err
	s.err = Success
	return st
}

// Query returns ErrorNotReady while work is pending, Success otherwise.
func (s *Stream) Query() Status {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.pending > 0 {
		return ErrorNotReady
	}
	return Success
}

// fail records a sticky error; only the first one is kept.
func (s *Stream) fail(st Status) {
	s.stateMu.Lock()
	if s.err == Success {
		s.err = st
	}
	s.stateMu.Unlock()
}

// Record enqueues an event that completes once all work submitted to s
// before it has finished.
func (s *Stream) Record() *Event {
	e := &Event{done: make(chan struct{})}
	if s.Submit(e.complete) != Success {
		e.complete()
	}
	return e
}

// WaitEvent makes all work submitted to s after this call wait for e.
// This is the only ordering guarantee across streams.
func (s *Stream) WaitEvent(e *Event) Status {
	return s.Submit(func() { <-e.done })
}

func (s *Stream) destroy() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.tasks)
	<-s.done
}

// Event marks a point in a stream.
type Event struct {
	done chan struct{}
	once sync.Once
}

func (e *Event) complete() {
	e.once.Do(func() { close(e.done) })
}

// Synchronize blocks the host until the event has completed.
func (e *Event) Synchronize() {
	<-e.done
}

// Query returns ErrorNotReady until the event has completed.
func (e *Event) Query() Status {
	select {
	case <-e.done:
		return Success
	default:
		return ErrorNotReady
	}
}
