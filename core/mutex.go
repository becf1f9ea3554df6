package core

import "time"

// timedMutex is a mutex with a bounded acquisition wait. Public API
// calls must not stall indefinitely (the caller may be a higher-priority
// control loop), so lock failure is surfaced as ErrMutexTimeout rather
// than retried forever. Implemented as a one-slot semaphore because
// sync.Mutex has no timed acquire.
type timedMutex struct {
	sem chan struct{}
}

func newTimedMutex() *timedMutex {
	return &timedMutex{sem: make(chan struct{}, 1)}
}

// lockFor acquires the lock, waiting at most d. Reports success.
func (m *timedMutex) lockFor(d time.Duration) bool {
	select {
	case m.sem <- struct{}{}:
		return true
	default:
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case m.sem <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

func (m *timedMutex) unlock() {
	<-m.sem
}
