package workerpool

import (
	"sync"
	"testing"
	"time"
)

type fakeJob struct {
	mu        sync.Mutex
	readOK    bool
	writeOK   bool
	processed int
	timerSet  bool
	done      chan struct{}
}

func newFakeJob() *fakeJob {
	return &fakeJob{done: make(chan struct{}, 1)}
}

func (j *fakeJob) ReadOnce() bool  { return j.readOK }
func (j *fakeJob) WriteOnce() bool { return j.writeOK }
func (j *fakeJob) Process() {
	j.mu.Lock()
	j.processed++
	j.mu.Unlock()
}
func (j *fakeJob) SetTimerFlag() {
	j.mu.Lock()
	j.timerSet = true
	j.mu.Unlock()
}
func (j *fakeJob) MarkDone() { j.done <- struct{}{} }

func (j *fakeJob) wait(t *testing.T) {
	select {
	case <-j.done:
	case <-time.After(time.Second):
		t.Fatalf("job never completed")
	}
}

func TestReactorModeReadSuccessProcesses(t *testing.T) {
	p := New(Reactor, 2, 8)
	defer p.Close()

	j := newFakeJob()
	j.readOK = true
	if !p.Append(j, PhaseRead) {
		t.Fatalf("Append should have succeeded")
	}
	j.wait(t)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.processed != 1 {
		t.Fatalf("processed = %d, want 1", j.processed)
	}
	if j.timerSet {
		t.Fatalf("timer should not be set on successful read")
	}
}

func TestReactorModeReadFailureSetsTimer(t *testing.T) {
	p := New(Reactor, 2, 8)
	defer p.Close()

	j := newFakeJob()
	j.readOK = false
	p.Append(j, PhaseRead)
	j.wait(t)

	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.timerSet {
		t.Fatalf("expected timer flag set on failed read")
	}
	if j.processed != 0 {
		t.Fatalf("should not process on failed read")
	}
}

func TestReactorModeWriteFailureSetsTimer(t *testing.T) {
	p := New(Reactor, 2, 8)
	defer p.Close()

	j := newFakeJob()
	j.writeOK = false
	p.Append(j, PhaseWrite)
	j.wait(t)

	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.timerSet {
		t.Fatalf("expected timer flag set when WriteOnce reports false")
	}
}

func TestProactorModeProcessesDirectly(t *testing.T) {
	p := New(Proactor, 2, 8)
	defer p.Close()

	j := newFakeJob()
	if !p.AppendP(j) {
		t.Fatalf("AppendP should have succeeded")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		j.mu.Lock()
		n := j.processed
		j.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job was never processed")
}

func TestAppendFailsWhenQueueFull(t *testing.T) {
	p := New(Reactor, 1, 1)
	defer p.Close()

	// blocker's done channel is unbuffered, so the only worker stays in
	// MarkDone until the test receives from it.
	blocker := &fakeJob{readOK: true, done: make(chan struct{})}
	p.Append(blocker, PhaseRead)

	filled := 0
	for i := 0; i < 4; i++ {
		j := newFakeJob()
		if p.Append(j, PhaseRead) {
			filled++
		}
	}
	<-blocker.done
	if filled == 4 {
		t.Fatalf("expected at least one Append to fail once the queue saturates")
	}
}

func TestNewPanicsOnInvalidSizes(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New(Reactor, 0, 8)
}
