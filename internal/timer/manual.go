package timer

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Clock whose time only moves when Advance is called. Callbacks run
// synchronously on the goroutine calling Advance, in due-time order, and never
// while Manual's own lock is held, so they may schedule further tasks.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	m        *Manual
	id       uint64
	due      time.Time
	interval time.Duration // zero for one-shot tasks
	f        func()
	stopped  bool
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Handle {
	return m.schedule(d, 0, f)
}

func (m *Manual) Every(d time.Duration, f func()) Handle {
	if d <= 0 {
		panic("timer: non-positive interval")
	}
	return m.schedule(d, d, f)
}

func (m *Manual) schedule(d, interval time.Duration, f func()) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{m: m, id: m.seq, due: m.now.Add(d), interval: interval, f: f}
	m.tasks = append(m.tasks, t)
	return t
}

// Pending reports how many tasks are still scheduled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every task that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		t.f()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// nextDue pops the earliest task due at or before target and moves the clock to
// its due time. Repeating tasks are rescheduled before being returned.
func (m *Manual) nextDue(target time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.tasks = live
	if len(m.tasks) == 0 {
		return nil
	}
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due.Equal(m.tasks[j].due) {
			return m.tasks[i].id < m.tasks[j].id
		}
		return m.tasks[i].due.Before(m.tasks[j].due)
	})
	t := m.tasks[0]
	if t.due.After(target) {
		return nil
	}
	m.now = t.due
	if t.interval > 0 {
		t.due = t.due.Add(t.interval)
	} else {
		t.stopped = true
	}
	return t
}

func (t *manualTask) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}
