// Package sync2 collects the thin synchronization primitives the rest of
// the runtime is built on: a counting semaphore and a condition variable
// with an absolute-deadline wait. Neither is reentrant.
package sync2

import (
	"sync"
	"time"
)

// Sem is a counting semaphore. Wait blocks until a permit is available;
// Post releases one. TryWait never blocks.
type Sem struct {
	c chan struct{}
}

// NewSem builds a semaphore with the given initial count. A negative
// count is a construction-time fatal error, mirroring the original SEM's
// sem_init failure path, so we panic rather than return an error nobody
// would check. A count of zero is allowed and yields a semaphore with no
// permits until Post is called.
func NewSem(n int) *Sem {
	if n < 0 {
		panic("sync2: negative semaphore count")
	}
	s := &Sem{c: make(chan struct{}, n)}
	for i := 0; i < n; i++ {
		s.c <- struct{}{}
	}
	return s
}

// Wait blocks until a permit is available.
func (s *Sem) Wait() { <-s.c }

// Post releases a permit, waking at most one waiter.
func (s *Sem) Post() { s.c <- struct{}{} }

// TryWait acquires a permit without blocking. It reports whether it did.
func (s *Sem) TryWait() bool {
	select {
	case <-s.c:
		return true
	default:
		return false
	}
}

// Cond pairs a mutex with a condition variable that additionally supports
// waiting until an absolute deadline, which sync.Cond does not offer.
type Cond struct {
	L  *sync.Mutex
	ch chan struct{}
}

// NewCond builds a Cond guarded by the given mutex.
func NewCond(l *sync.Mutex) *Cond {
	return &Cond{L: l, ch: make(chan struct{})}
}

// Wait must be called with L held; it releases L, blocks until the next
// Signal/Broadcast, then reacquires L before returning. Callers must loop
// on their predicate: wakeups are not tied one-to-one to waiters.
func (c *Cond) Wait() {
	ch := c.ch
	c.L.Unlock()
	<-ch
	c.L.Lock()
}

// WaitUntil behaves like Wait but returns false if deadline passes first,
// without a further signal having arrived. The mutex is held on return
// either way.
func (c *Cond) WaitUntil(deadline time.Time) bool {
	ch := c.ch
	c.L.Unlock()
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	var woke bool
	select {
	case <-ch:
		woke = true
	case <-timer.C:
		woke = false
	}
	c.L.Lock()
	return woke
}

// Signal and Broadcast behave identically here: both replace the wait
// channel so every current waiter observes a close. This is the standard
// "broadcast only" trick for channel-based condition variables; callers
// that only wanted a single waiter woken still work correctly because the
// queue/logger code here always re-checks its predicate after waking.
func (c *Cond) Signal() { c.Broadcast() }

func (c *Cond) Broadcast() {
	old := c.ch
	c.ch = make(chan struct{})
	close(old)
}
