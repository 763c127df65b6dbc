package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Pool runs fire-and-forget tasks with a concurrency cap and a per-task
// timeout. Tasks are cancelled when the pool closes, so outbound work never
// outlives the process shutdown sequence.
type Pool struct {
	sem         chan struct{}
	taskTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewPool(maxConcurrent int, taskTimeout time.Duration) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:         make(chan struct{}, maxConcurrent),
		taskTimeout: taskTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Submit schedules fn on its own goroutine. It blocks only while the pool is
// at capacity, never on the task itself. Returns false if the pool is closed.
func (p *Pool) Submit(name string, fn func(ctx context.Context)) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.sem <- struct{}{}:
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("task", name).Interface("panic", r).Msg("task panicked")
			}
		}()

		ctx := p.ctx
		if p.taskTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(p.ctx, p.taskTimeout)
			defer cancel()
		}
		fn(ctx)
	}()
	return true
}

// Close cancels all running tasks and waits for them to return.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}
