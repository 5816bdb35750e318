// Package parallel runs batches of independent jobs on a fixed set of
// goroutines.
//
// Each worker owns a queue and steals from the others when its own queue is
// empty, so a batch of uneven jobs still finishes close to together.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a set of worker goroutines. It is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPool starts a pool with the given number of workers. Zero or negative
// counts use GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	depth := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), depth)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case job := <-own:
			job()
			continue
		default:
		}

		if job := p.steal(id); job != nil {
			job()
			continue
		}
		select {
		case <-p.done:
			p.drain(own)
			return
		case job := <-own:
			job()
		}
	}
}

func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case job := <-queue:
			job()
		default:
			return
		}
	}
}

func (p *Pool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case job := <-p.queues[i]:
			return job
		default:
		}
	}
	return nil
}

// Run executes every job and returns when all of them have finished. Jobs
// are spread round-robin over the workers. On a closed pool, or for a single
// job, the jobs run on the calling goroutine.
func (p *Pool) Run(jobs []func()) {
	if len(jobs) == 0 {
		return
	}
	if len(jobs) == 1 || !p.running.Load() {
		for _, job := range jobs {
			job()
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for i, job := range jobs {
		wrapped := func() {
			defer wg.Done()
			job()
		}
		select {
		case p.queues[i%p.workers] <- wrapped:
		case <-p.done:
			wrapped()
		}
	}
	wg.Wait()
}

// Close stops the workers after the queued jobs finish. It is safe to call
// more than once.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.workers
}
