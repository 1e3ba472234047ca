package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rescale/courier/internal/logging"
)

// Task is one unit of work for a user. It runs on that user's worker.
type Task func(ctx context.Context)

// Dispatcher runs tasks sequentially per key and concurrently across keys.
// A worker goroutine is started on the first task for a key and exits
// after idle time without work.
type Dispatcher struct {
	ctx    context.Context
	idle   time.Duration
	logger *logging.Logger

	mu      sync.Mutex
	workers map[int64]*worker
	wg      sync.WaitGroup
}

type worker struct {
	queue []Task
	wake  chan struct{}
}

// NewDispatcher creates a dispatcher whose tasks receive ctx.
func NewDispatcher(ctx context.Context, idle time.Duration, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Dispatcher{
		ctx:     ctx,
		idle:    idle,
		logger:  logger,
		workers: make(map[int64]*worker),
	}
}

// Submit queues task for key. It returns false once the dispatcher's
// context is done.
func (d *Dispatcher) Submit(key int64, task Task) bool {
	if d.ctx.Err() != nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.workers[key]
	if !ok {
		w = &worker{wake: make(chan struct{}, 1)}
		d.workers[key] = w
		d.wg.Add(1)
		go d.run(key, w)
	}
	w.queue = append(w.queue, task)

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

func (d *Dispatcher) run(key int64, w *worker) {
	defer d.wg.Done()

	timer := time.NewTimer(d.idle)
	defer timer.Stop()

	for {
		d.mu.Lock()
		if len(w.queue) > 0 {
			task := w.queue[0]
			w.queue[0] = nil
			w.queue = w.queue[1:]
			d.mu.Unlock()

			d.exec(key, task)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.idle)
			continue
		}
		d.mu.Unlock()

		select {
		case <-w.wake:
		case <-timer.C:
			d.mu.Lock()
			if len(w.queue) == 0 {
				delete(d.workers, key)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(d.idle)
		case <-d.ctx.Done():
			d.mu.Lock()
			delete(d.workers, key)
			d.mu.Unlock()
			return
		}
	}
}

func (d *Dispatcher) exec(key int64, task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Int64("user", key).Str("panic", fmt.Sprint(r)).Msg("handler panicked")
		}
	}()
	task(d.ctx)
}

// Active returns the number of running workers.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}

// Wait blocks until every worker has exited. Cancel the dispatcher's
// context first.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
