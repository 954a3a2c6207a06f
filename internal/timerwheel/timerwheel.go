// Package timerwheel implements the ascending sorted timer list used to
// reclaim idle connections. It is a direct list, not a hashed wheel: the
// connection counts handled by this server are small enough that O(n)
// insertion on an already-mostly-sorted list is cheap, and it keeps the
// expiry scan a simple walk from the head.
package timerwheel

import (
	"sync"
	"time"
)

// Timer is one entry in the list. CB is invoked with Data when the timer
// expires via Tick. A Timer with Expire already in the past the next time
// Tick runs fires immediately.
type Timer struct {
	Expire time.Time
	Data   any
	CB     func(data any)

	prev, next *Timer
	list       *List
}

// List is an ascending-by-Expire doubly linked list of Timers, guarded by
// its own mutex so the reactor goroutine and timer-signal handling can
// both touch it safely.
type List struct {
	mu         sync.Mutex
	head, tail *Timer
}

// NewList builds an empty timer list.
func NewList() *List {
	return &List{}
}

// Add inserts t into the list in ascending Expire order.
func (l *List) Add(t *Timer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insert(t)
}

// insert walks forward from the head looking for the first timer whose
// Expire is after t's, splicing t in just before it.
func (l *List) insert(t *Timer) {
	t.list = l
	if l.head == nil {
		l.head, l.tail = t, t
		return
	}
	if t.Expire.Before(l.head.Expire) {
		t.next = l.head
		l.head.prev = t
		l.head = t
		return
	}

	cur := l.head
	for cur.next != nil && !t.Expire.Before(cur.next.Expire) {
		cur = cur.next
	}
	t.next = cur.next
	t.prev = cur
	if cur.next != nil {
		cur.next.prev = t
	} else {
		l.tail = t
	}
	cur.next = t
}

// Adjust reinserts t after its Expire has changed: it unlinks t and
// inserts it again with the same ascending walk from the head that Add
// uses. It is a no-op if t is not in this list.
func (l *List) Adjust(t *Timer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.list != l {
		return
	}
	l.unlink(t)
	l.insert(t)
}

// Remove takes t out of the list. It is a no-op if t is not in this list.
func (l *List) Remove(t *Timer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.list != l {
		return
	}
	l.unlink(t)
}

func (l *List) unlink(t *Timer) {
	if t.prev != nil {
		t.prev.next = t.next
	} else if l.head == t {
		l.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else if l.tail == t {
		l.tail = t.prev
	}
	t.prev, t.next, t.list = nil, nil, nil
}

// Tick fires and removes every timer whose Expire is at or before now.
// Callbacks run synchronously, on the caller's goroutine, in ascending
// expiry order, with the list mutex released — a callback is free to
// Add/Remove/Adjust other timers in the same list.
func (l *List) Tick(now time.Time) {
	var fired []*Timer
	l.mu.Lock()
	for cur := l.head; cur != nil && !cur.Expire.After(now); {
		next := cur.next
		l.unlink(cur)
		fired = append(fired, cur)
		cur = next
	}
	l.mu.Unlock()

	for _, t := range fired {
		if t.CB != nil {
			t.CB(t.Data)
		}
	}
}

// Empty reports whether the list holds no timers.
func (l *List) Empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head == nil
}
