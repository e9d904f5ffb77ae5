package chunkdispatch

import (
	"context"
	"sync"
	"sync/atomic"

	ecs "github.com/forgeworks/ecscore"
)

// job is one unit of worker-pool work: run kernel over cols/length/params
// and report back on replyTo, tagged with (runID, jobID) so a superseded
// dispatch can recognize and discard a result arriving after its caller
// has moved on (§4.9 "worker pool").
type job struct {
	runID    uint64
	jobID    int
	kernel   KernelFunc
	cols     map[ecs.TypeID]ecs.ChunkColumnView
	length   int
	params   any
	replyTo  chan jobResult
}

type jobResult struct {
	runID  uint64
	jobID  int
	result KernelResult
	err    error
}

// Pool is a fixed-size worker-goroutine pool executing chunk kernels for
// the shared-memory dispatch path. A Pool serves one run at a time: each
// ForEachChunkParallel call takes a new monotonic runID via NewRun, which
// supersedes every earlier run, and workers discard jobs and results of a
// superseded or aborted run (Abort).
type Pool struct {
	jobs        chan job
	activeRunID atomic.Uint64
	nextRunID   atomic.Uint64
	wg          sync.WaitGroup
	closeOnce   sync.Once
	done        chan struct{}
}

// NewPool starts a pool of n worker goroutines. n <= 0 defaults to 1.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{
		jobs: make(chan job, n*4),
		done: make(chan struct{}),
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			if j.runID < p.activeRunID.Load() {
				// Stale: a newer run has since become active (Abort was
				// called on this run, or a later run superseded it).
				// Drop silently rather than deliver a result nobody wants.
				continue
			}
			res, err := j.kernel(j.cols, j.length, j.params)
			if j.runID < p.activeRunID.Load() {
				continue
			}
			j.replyTo <- jobResult{runID: j.runID, jobID: j.jobID, result: res, err: err}
		}
	}
}

// NewRun allocates a fresh monotonic runID and marks it active, superseding
// any run with a smaller id still in flight.
func (p *Pool) NewRun() uint64 {
	id := p.nextRunID.Add(1)
	p.activeRunID.Store(id)
	return id
}

// Abort marks runID (and anything older) as stale; workers still holding
// jobs tagged with it will discard their results instead of delivering
// them.
func (p *Pool) Abort(runID uint64) {
	if runID >= p.activeRunID.Load() {
		p.activeRunID.Store(runID + 1)
	}
}

// Submit enqueues one chunk's kernel invocation under runID/jobID,
// returning the channel its result will arrive on (buffered, capacity 1).
// Submit respects ctx: if ctx is already done it returns immediately
// without enqueuing and the returned channel is closed with no value.
func (p *Pool) Submit(ctx context.Context, runID uint64, jobID int, kernel KernelFunc, cols map[ecs.TypeID]ecs.ChunkColumnView, length int, params any) <-chan jobResult {
	reply := make(chan jobResult, 1)
	select {
	case <-ctx.Done():
		close(reply)
		return reply
	default:
	}
	j := job{runID: runID, jobID: jobID, kernel: kernel, cols: cols, length: length, params: params, replyTo: reply}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		close(reply)
	}
	return reply
}

// Close stops every worker goroutine and waits for them to exit. Safe to
// call multiple times.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
