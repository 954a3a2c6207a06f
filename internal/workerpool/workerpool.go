// Package workerpool implements the fixed-size worker pool that takes
// socket I/O and request processing off the reactor goroutine. It
// supports the same two dispatch disciplines the system it was learned
// from did: Reactor mode, where workers perform the read/write syscalls
// themselves, and Proactor mode, where the reactor already did the I/O
// and workers only run the CPU-bound processing step.
package workerpool

import "sync"

// Mode selects which dispatch discipline a Pool's workers use.
type Mode int

const (
	Reactor Mode = iota
	Proactor
)

// Phase names which half of a connection's turn a Reactor-mode job is
// for.
type Phase int

const (
	PhaseRead Phase = iota
	PhaseWrite
)

// Job is implemented by whatever owns a connection's state (typically a
// reactor's Connection). A worker calls back into it rather than the
// pool knowing anything about sockets, epoll, or the database.
type Job interface {
	// ReadOnce reads whatever the socket has ready without blocking. It
	// reports whether the read succeeded; false means the peer closed,
	// the read failed, or the buffer had no room. A true result does not
	// mean a complete request has arrived.
	ReadOnce() bool
	// WriteOnce writes as much of the pending response as the socket
	// accepts without blocking. It reports whether the connection stays
	// open: true when the write must resume later or a keep-alive
	// response finished, false when the write failed or a
	// non-keep-alive response finished.
	WriteOnce() bool
	// Process runs the CPU-bound request handling once data is ready.
	Process()
	// SetTimerFlag marks the connection for closure by the reactor
	// goroutine. A worker sets it when ReadOnce or WriteOnce returns
	// false.
	SetTimerFlag()
	// MarkDone signals the reactor goroutine that this job's turn in
	// Reactor mode is complete, replacing a busy-wait spin with a
	// blocking receive.
	MarkDone()
}

type item struct {
	job   Job
	phase Phase
}

// Pool runs a fixed number of worker goroutines pulling from bounded
// queues. Appending to a full queue fails immediately rather than
// blocking the reactor goroutine.
type Pool struct {
	mode Mode

	jobs  chan item
	jobsP chan Job

	wg sync.WaitGroup
}

// New starts numWorkers goroutines. mode selects how they interpret
// queued work; maxQueue bounds both the Reactor-mode and Proactor-mode
// queues. numWorkers and maxQueue must be positive.
func New(mode Mode, numWorkers, maxQueue int) *Pool {
	if numWorkers <= 0 {
		panic("workerpool: numWorkers must be positive")
	}
	if maxQueue <= 0 {
		panic("workerpool: maxQueue must be positive")
	}

	p := &Pool{
		mode:  mode,
		jobs:  make(chan item, maxQueue),
		jobsP: make(chan Job, maxQueue),
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Append queues a Reactor-mode read or write turn for job. It reports
// whether the queue had room.
func (p *Pool) Append(job Job, phase Phase) bool {
	select {
	case p.jobs <- item{job: job, phase: phase}:
		return true
	default:
		return false
	}
}

// AppendP queues a Proactor-mode processing turn for job, whose I/O the
// reactor has already completed. It reports whether the queue had room.
func (p *Pool) AppendP(job Job) bool {
	select {
	case p.jobsP <- job:
		return true
	default:
		return false
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case it, ok := <-p.jobs:
			if !ok {
				return
			}
			p.runReactorItem(it)
		case job, ok := <-p.jobsP:
			if !ok {
				return
			}
			job.Process()
		}
	}
}

func (p *Pool) runReactorItem(it item) {
	defer it.job.MarkDone()
	switch it.phase {
	case PhaseRead:
		if it.job.ReadOnce() {
			it.job.Process()
		} else {
			it.job.SetTimerFlag()
		}
	case PhaseWrite:
		if !it.job.WriteOnce() {
			it.job.SetTimerFlag()
		}
	}
}

// Close stops accepting new work and waits for in-flight jobs to finish.
// Callers must not Append/AppendP after calling Close.
func (p *Pool) Close() {
	close(p.jobs)
	close(p.jobsP)
	p.wg.Wait()
}
