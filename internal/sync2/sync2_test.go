package sync2

import (
	"sync"
	"testing"
	"time"
)

func TestSemWaitPost(t *testing.T) {
	s := NewSem(2)
	s.Wait()
	s.Wait()
	if s.TryWait() {
		t.Fatalf("expected semaphore to be exhausted")
	}
	s.Post()
	if !s.TryWait() {
		t.Fatalf("expected permit after Post")
	}
}

func TestSemZeroCapacity(t *testing.T) {
	s := NewSem(0)
	if s.TryWait() {
		t.Fatalf("zero-capacity semaphore should have no permits")
	}
}

func TestSemNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on negative semaphore count")
		}
	}()
	NewSem(-1)
}

func TestCondWaitSignal(t *testing.T) {
	var mu sync.Mutex
	c := NewCond(&mu)
	ready := false
	done := make(chan struct{})

	go func() {
		mu.Lock()
		for !ready {
			c.Wait()
		}
		mu.Unlock()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	ready = true
	c.Signal()
	mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("waiter never woke")
	}
}

func TestCondWaitUntilTimeout(t *testing.T) {
	var mu sync.Mutex
	c := NewCond(&mu)
	mu.Lock()
	woke := c.WaitUntil(time.Now().Add(20 * time.Millisecond))
	mu.Unlock()
	if woke {
		t.Fatalf("expected timeout, got signal")
	}
}

func TestCondWaitUntilSignaled(t *testing.T) {
	var mu sync.Mutex
	c := NewCond(&mu)
	result := make(chan bool, 1)

	go func() {
		mu.Lock()
		woke := c.WaitUntil(time.Now().Add(time.Second))
		mu.Unlock()
		result <- woke
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	c.Broadcast()
	mu.Unlock()

	select {
	case woke := <-result:
		if !woke {
			t.Fatalf("expected WaitUntil to report a signal, not a timeout")
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter never returned")
	}
}
