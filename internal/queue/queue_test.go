package queue

import (
	"testing"
	"time"
)

func TestPushPopOrder(t *testing.T) {
	q := New[int](4)
	for i := 1; i <= 4; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d should have succeeded", i)
		}
	}
	if !q.Full() {
		t.Fatalf("expected queue to be full")
	}
	if q.Push(5) {
		t.Fatalf("push into full queue should fail")
	}
	for i := 1; i <= 4; i++ {
		got := q.Pop()
		if got != i {
			t.Fatalf("Pop() = %d, want %d", got, i)
		}
	}
	if !q.Empty() {
		t.Fatalf("expected queue to be empty")
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New[string](2)
	done := make(chan string, 1)
	go func() { done <- q.Pop() }()

	select {
	case <-done:
		t.Fatalf("Pop returned before any Push")
	case <-time.After(30 * time.Millisecond):
	}

	q.Push("item")
	select {
	case v := <-done:
		if v != "item" {
			t.Fatalf("got %q, want %q", v, "item")
		}
	case <-time.After(time.Second):
		t.Fatalf("Pop never returned after Push")
	}
}

func TestPopTimeout(t *testing.T) {
	q := New[int](2)
	_, ok := q.PopTimeout(20 * time.Millisecond)
	if ok {
		t.Fatalf("expected timeout on empty queue")
	}
	q.Push(7)
	v, ok := q.PopTimeout(time.Second)
	if !ok || v != 7 {
		t.Fatalf("PopTimeout() = (%d, %v), want (7, true)", v, ok)
	}
}

func TestFrontBack(t *testing.T) {
	q := New[int](4)
	if _, ok := q.Front(); ok {
		t.Fatalf("Front on empty queue should report !ok")
	}
	q.Push(1)
	q.Push(2)
	q.Push(3)
	if v, _ := q.Front(); v != 1 {
		t.Fatalf("Front() = %d, want 1", v)
	}
	if v, _ := q.Back(); v != 3 {
		t.Fatalf("Back() = %d, want 3", v)
	}
}

func TestClear(t *testing.T) {
	q := New[int](4)
	q.Push(1)
	q.Push(2)
	q.Clear()
	if !q.Empty() {
		t.Fatalf("expected queue empty after Clear")
	}
	if !q.Push(9) {
		t.Fatalf("push after clear should succeed")
	}
}

func TestNewPanicsOnNonPositiveSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for non-positive max size")
		}
	}()
	New[int](0)
}

func TestWraparound(t *testing.T) {
	q := New[int](3)
	q.Push(1)
	q.Push(2)
	q.Pop()
	q.Push(3)
	q.Push(4)
	if !q.Full() {
		t.Fatalf("expected full queue after wraparound pushes")
	}
	want := []int{2, 3, 4}
	for _, w := range want {
		if got := q.Pop(); got != w {
			t.Fatalf("Pop() = %d, want %d", got, w)
		}
	}
}
