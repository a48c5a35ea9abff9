package sched

import "sort"

// Task is a unit of deferred work fired by Advance.
type Task func()

type entry struct {
	id      int
	dueTick int64
	seq     int64
	task    Task
}

// Scheduler is the single time driver for the simulation core. All deferred
// work (cast completion, effect delays, buff expiry, cooldown ticks, action
// timeouts) is registered here and fired only by explicit Advance calls,
// never by wall-clock timers. Tasks due on the same tick fire in
// registration order.
type Scheduler struct {
	now     int64
	nextID  int
	nextSeq int64
	pending []entry
}

// NewScheduler creates a scheduler positioned at tick 0.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the current simulation tick.
func (s *Scheduler) Now() int64 {
	return s.now
}

// After registers a task to fire delay ticks from now and returns a handle
// usable with Cancel. A non-positive delay fires on the next Advance.
func (s *Scheduler) After(delay int64, task Task) int {
	if task == nil {
		return -1
	}
	if delay < 1 {
		delay = 1
	}
	s.nextID++
	s.nextSeq++
	s.pending = append(s.pending, entry{
		id:      s.nextID,
		dueTick: s.now + delay,
		seq:     s.nextSeq,
		task:    task,
	})
	return s.nextID
}

// Cancel removes a pending task by handle. Returns false if it already fired
// or was never registered.
func (s *Scheduler) Cancel(handle int) bool {
	for i, e := range s.pending {
		if e.id == handle {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of tasks not yet fired.
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Advance moves simulation time forward by the given number of ticks and
// fires every task that comes due, in (due tick, registration) order.
// Tasks scheduled by fired tasks run too if they fall inside the window.
func (s *Scheduler) Advance(ticks int64) {
	if ticks <= 0 {
		return
	}
	target := s.now + ticks
	for {
		next, ok := s.popDue(target)
		if !ok {
			break
		}
		s.now = next.dueTick
		next.task()
	}
	s.now = target
}

// popDue removes and returns the earliest task due at or before target.
func (s *Scheduler) popDue(target int64) (entry, bool) {
	best := -1
	for i, e := range s.pending {
		if e.dueTick > target {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		b := s.pending[best]
		if e.dueTick < b.dueTick || (e.dueTick == b.dueTick && e.seq < b.seq) {
			best = i
		}
	}
	if best == -1 {
		return entry{}, false
	}
	e := s.pending[best]
	s.pending = append(s.pending[:best], s.pending[best+1:]...)
	return e, true
}

// DueBefore returns handles of tasks due strictly before the given tick,
// soonest first. Intended for inspection in tests.
func (s *Scheduler) DueBefore(tick int64) []int {
	var due []entry
	for _, e := range s.pending {
		if e.dueTick < tick {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].dueTick != due[j].dueTick {
			return due[i].dueTick < due[j].dueTick
		}
		return due[i].seq < due[j].seq
	})
	handles := make([]int, len(due))
	for i, e := range due {
		handles[i] = e.id
	}
	return handles
}
