package dispatch

import (
	"sync"
)

// PoolConfig holds configuration options for creating a pool executor.
type PoolConfig struct {
	// Workers is the number of worker goroutines. Must be greater than 0.
	Workers int

	// QueueSize is the maximum number of queued work units. 0 means
	// submissions rendezvous directly with an idle worker.
	QueueSize int

	// OnWorkerStart is called when a worker starts, with its id.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int)
}

// DefaultPoolConfig returns a pool configuration sized for light
// background work.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Workers: 4, QueueSize: 64}
}

// PoolExecutor runs submitted work on a fixed set of worker goroutines
// with a bounded queue. Submit blocks while the queue is full; after
// Shutdown it returns ErrShutdown. Queued work is drained before the
// workers exit.
type PoolExecutor struct {
	config PoolConfig

	tasks      chan func()
	shutdownCh chan struct{}
	once       sync.Once
	wg         sync.WaitGroup

	mu         sync.RWMutex
	isShutdown bool
}

// NewPool creates a pool executor with the given worker count and queue size.
func NewPool(workers, queueSize int) *PoolExecutor {
	cfg := DefaultPoolConfig()
	cfg.Workers = workers
	cfg.QueueSize = queueSize
	return NewPoolWithConfig(cfg)
}

// NewPoolWithConfig creates a pool executor with the specified configuration.
func NewPoolWithConfig(config PoolConfig) *PoolExecutor {
	if config.Workers <= 0 {
		panic("dispatch: worker count must be positive")
	}
	if config.QueueSize < 0 {
		panic("dispatch: queue size must be >= 0")
	}

	p := &PoolExecutor{
		config:     config,
		tasks:      make(chan func(), config.QueueSize),
		shutdownCh: make(chan struct{}),
	}

	p.wg.Add(config.Workers)
	for i := 0; i < config.Workers; i++ {
		go p.run(i)
	}

	return p
}

// Submit queues fn for execution. It blocks while the queue is full and
// returns ErrShutdown once the pool has been shut down.
func (p *PoolExecutor) Submit(fn func()) error {
	p.mu.RLock()
	isShutdown := p.isShutdown
	p.mu.RUnlock()
	if isShutdown {
		return ErrShutdown
	}

	select {
	case p.tasks <- fn:
		return nil
	case <-p.shutdownCh:
		return ErrShutdown
	}
}

// Shutdown stops accepting work and returns a channel that closes once
// every queued unit has run and all workers have exited.
func (p *PoolExecutor) Shutdown() <-chan struct{} {
	done := make(chan struct{})

	p.once.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()
		close(p.shutdownCh)
	})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	return done
}

// Workers returns the number of workers in the pool.
func (p *PoolExecutor) Workers() int { return p.config.Workers }

// QueueDepth returns the number of work units queued and not yet running.
func (p *PoolExecutor) QueueDepth() int { return len(p.tasks) }

func (p *PoolExecutor) run(id int) {
	defer p.wg.Done()

	if p.config.OnWorkerStart != nil {
		p.config.OnWorkerStart(id)
	}
	if p.config.OnWorkerStop != nil {
		defer p.config.OnWorkerStop(id)
	}

	for {
		select {
		case fn := <-p.tasks:
			fn()
		case <-p.shutdownCh:
			// Drain what was accepted before shutdown, then exit.
			for {
				select {
				case fn := <-p.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}
