// Package formsync binds reactive form cells to a shared transport so that
// edits in one peer are mirrored in every other peer.
//
// All cell writes, debounce expiries and inbound deliveries run as tasks on a
// single Loop, so handlers never overlap and no cell needs a lock.
// file: formsync/loop.go
package formsync

import (
	"sync"

	"github.com/benbjohnson/clock"
)

const loopQueueSize = 1024

// Loop is a cooperative, single-goroutine task queue.
type Loop struct {
	clock    clock.Clock
	tasks    chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoop returns a loop that schedules timers on clk. Call Run to start it.
func NewLoop(clk clock.Clock) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		clock: clk,
		tasks: make(chan func(), loopQueueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Clock is the time source used for debounce timers.
func (l *Loop) Clock() clock.Clock { return l.clock }

// Run executes tasks in order until Stop is called.
func (l *Loop) Run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post enqueues fn. It reports false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a task.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Stop ends Run. Queued tasks that have not started are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }
