// Package timer schedules deferred and repeating callbacks behind a Clock
// interface so game sessions can run against the wall clock in production and
// a manually advanced clock in tests.
package timer

import (
	"sync"
	"time"
)

// Handle cancels a scheduled task. Stop reports whether the call prevented a
// future run; it is safe to call more than once.
type Handle interface {
	Stop() bool
}

// Clock is the time source and scheduler used by game sessions.
type Clock interface {
	Now() time.Time
	// AfterFunc runs f once after d.
	AfterFunc(d time.Duration, f func()) Handle
	// Every runs f every d until stopped. The first run happens after d.
	Every(d time.Duration, f func()) Handle
}

// Real is a Clock backed by the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Handle {
	return time.AfterFunc(d, f)
}

func (Real) Every(d time.Duration, f func()) Handle {
	t := &ticker{t: time.NewTicker(d), done: make(chan struct{})}
	go t.loop(f)
	return t
}

type ticker struct {
	t    *time.Ticker
	done chan struct{}
	once sync.Once
}

func (t *ticker) loop(f func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.t.C:
			// A tick may race with Stop; honour the stop.
			select {
			case <-t.done:
				return
			default:
			}
			f()
		}
	}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		t.t.Stop()
		close(t.done)
		stopped = true
	})
	return stopped
}
