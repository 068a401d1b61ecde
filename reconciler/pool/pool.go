package pool

import (
	"context"
	"sync"
)

// Pool bounds how many expiry tasks run concurrently during a sweep, so a
// large backlog of retained jobs cannot saturate the blob store.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func New(maxWorkers int) *Pool {
	return &Pool{
		sem: make(chan struct{}, maxWorkers),
	}
}

func (p *Pool) Submit(ctx context.Context, task func(context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			task(ctx)
		case <-ctx.Done():
		}
	}()
}

func (p *Pool) Wait() {
	p.wg.Wait()
}
