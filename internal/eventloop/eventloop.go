package eventloop

import (
	"context"
	"sync"
	"time"
)

// Settlement is the outcome of an asynchronous host call. It is produced on
// any goroutine and applied to the script promise on the engine thread.
type Settlement struct {
	ID       uint64
	Value    any   // resolve value, converted on the engine thread
	Err      error // reject reason
	Rejected bool
}

// Host is the engine side of the loop. All methods are called on the engine
// thread from RunReady.
type Host interface {
	// Settle applies a settlement to the promise tracked under s.ID.
	Settle(s Settlement)
	// FireTimer invokes the script callback registered for a timer.
	FireTimer(id int)
	// RunMicrotasks pumps the engine's microtask queue.
	RunMicrotasks()
}

// timerEntry represents a pending setTimeout or setInterval callback.
// The actual callback is stored on the script side; Go only tracks
// scheduling metadata.
type timerEntry struct {
	deadline time.Time
	interval time.Duration // 0 for setTimeout, >0 for setInterval
	id       int
	cleared  bool
}

// EventLoop tracks outstanding async host calls and Go-backed timers and
// delivers their results on the engine thread. Post is the only method that
// may be called from other goroutines besides the read-only accessors.
type EventLoop struct {
	mu          sync.Mutex
	timers      map[int]*timerEntry
	nextTimerID int
	minInterval time.Duration

	nextCallID  uint64
	outstanding map[uint64]struct{}
	ready       []Settlement
	wake        chan struct{}
}

// New creates a new EventLoop. Intervals shorter than minInterval are raised to it.
func New(minInterval time.Duration) *EventLoop {
	return &EventLoop{
		timers:      make(map[int]*timerEntry),
		outstanding: make(map[uint64]struct{}),
		minInterval: minInterval,
		wake:        make(chan struct{}, 1),
	}
}

// RegisterTimer creates a timer entry and returns its ID.
func (el *EventLoop) RegisterTimer(delay time.Duration, isInterval bool) int {
	el.mu.Lock()
	defer el.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	el.nextTimerID++
	id := el.nextTimerID
	entry := &timerEntry{
		deadline: time.Now().Add(delay),
		id:       id,
	}
	if isInterval {
		if delay < el.minInterval {
			delay = el.minInterval
			entry.deadline = time.Now().Add(delay)
		}
		entry.interval = delay
	}
	el.timers[id] = entry
	return id
}

// ClearTimer cancels a timer by ID.
func (el *EventLoop) ClearTimer(id int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if t, ok := el.timers[id]; ok {
		t.cleared = true
		delete(el.timers, id)
	}
}

// Track registers a new outstanding async call and returns its ID. The call
// counts as pending work until a settlement with that ID is delivered.
func (el *EventLoop) Track() uint64 {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.nextCallID++
	id := el.nextCallID
	el.outstanding[id] = struct{}{}
	return id
}

// Post queues a settlement and wakes a waiting Drain. Safe for concurrent use.
// Returns false if the ID is not outstanding (unknown, already settled, or
// dropped by Reset).
func (el *EventLoop) Post(s Settlement) bool {
	el.mu.Lock()
	if _, ok := el.outstanding[s.ID]; !ok {
		el.mu.Unlock()
		return false
	}
	delete(el.outstanding, s.ID)
	el.ready = append(el.ready, s)
	el.mu.Unlock()

	select {
	case el.wake <- struct{}{}:
	default:
	}
	return true
}

// RunReady delivers queued settlements and fires due timers, pumping
// microtasks after each. Must be called on the engine thread.
// Returns true if any work ran.
func (el *EventLoop) RunReady(host Host) bool {
	el.mu.Lock()
	ready := el.ready
	el.ready = nil
	el.mu.Unlock()

	didWork := false
	for _, s := range ready {
		host.Settle(s)
		// Microtask checkpoint after each settlement.
		host.RunMicrotasks()
		didWork = true
	}

	for {
		id, ok := el.popDueTimer(time.Now())
		if !ok {
			break
		}
		host.FireTimer(id)
		host.RunMicrotasks()
		didWork = true
	}
	return didWork
}

// popDueTimer returns the earliest timer whose deadline has passed,
// rescheduling intervals and removing one-shot timers.
func (el *EventLoop) popDueTimer(now time.Time) (int, bool) {
	el.mu.Lock()
	defer el.mu.Unlock()
	var next *timerEntry
	for _, t := range el.timers {
		if t.cleared || t.deadline.After(now) {
			continue
		}
		if next == nil || t.deadline.Before(next.deadline) {
			next = t
		}
	}
	if next == nil {
		return 0, false
	}
	if next.interval > 0 {
		next.deadline = now.Add(next.interval)
	} else {
		delete(el.timers, next.id)
	}
	return next.id, true
}

// nextDeadline returns the earliest active timer deadline.
func (el *EventLoop) nextDeadline() (time.Time, bool) {
	el.mu.Lock()
	defer el.mu.Unlock()
	var next time.Time
	found := false
	for _, t := range el.timers {
		if t.cleared {
			continue
		}
		if !found || t.deadline.Before(next) {
			next = t.deadline
			found = true
		}
	}
	return next, found
}

// Wait blocks until a settlement is posted, the next timer is due, or ctx is
// done. It returns immediately when settlements are already queued.
func (el *EventLoop) Wait(ctx context.Context) error {
	el.mu.Lock()
	queued := len(el.ready) > 0
	el.mu.Unlock()
	if queued {
		return nil
	}

	var timerC <-chan time.Time
	if deadline, ok := el.nextDeadline(); ok {
		d := time.Until(deadline)
		if d <= 0 {
			return nil
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timerC = timer.C
	}

	select {
	case <-el.wake:
		return nil
	case <-timerC:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs settlements and timers until no outstanding calls or timers
// remain, or ctx is done. Must be called on the engine thread.
// An async call whose settler is never used keeps Drain waiting until ctx ends.
func (el *EventLoop) Drain(ctx context.Context, host Host) error {
	for {
		if el.RunReady(host) {
			continue
		}
		if !el.HasPending() {
			return nil
		}
		if err := el.Wait(ctx); err != nil {
			return err
		}
	}
}

// HasPending returns true if there are active timers, outstanding async calls
// or queued settlements.
func (el *EventLoop) HasPending() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.timers) > 0 || len(el.outstanding) > 0 || len(el.ready) > 0
}

// Outstanding returns the number of async calls that have not been settled yet.
func (el *EventLoop) Outstanding() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.outstanding)
}

// Reset clears all timers, outstanding calls and queued settlements. Called
// when a runtime is returned to a pool. Late Posts for dropped calls return false.
func (el *EventLoop) Reset() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.timers = make(map[int]*timerEntry)
	el.nextTimerID = 0
	el.outstanding = make(map[uint64]struct{})
	el.ready = nil
	select {
	case <-el.wake:
	default:
	}
}
