// Package pipeline drives an ordered sequence of callbacks through a
// fork/join execution graph, one non-blocking step at a time, so the
// supervisor's outer loop never has to wait on a callback's completion.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/watchmanhq/watchman/internal/callback"
	"github.com/watchmanhq/watchman/internal/hiername"
)

// ErrForkJoinConflict is returned at construction when a callback carries
// both fork and a join label — the source's behavior for that combination
// is undefined, so configuration rejects it outright.
var ErrForkJoinConflict = errors.New("pipeline: a callback cannot carry both fork and join")

// Pipeline runs callback.Callback values in order, honoring each one's Fork
// and Join flags, and reports success/error through bound handlers.
type Pipeline struct {
	Name      string
	callbacks []*callback.Callback

	continueOnError bool
	onError         func(cb *callback.Callback)
	onSuccess       func()

	poolIndex   int
	doneIndex   int
	terminating bool
	anyFailed   bool
	completed   bool
}

// New validates callbacks and constructs a Pipeline. continueOnError
// governs whether a failing callback stops new callbacks from starting.
func New(name string, callbacks []*callback.Callback, continueOnError bool) (*Pipeline, error) {
	for _, cb := range callbacks {
		if cb.Fork && cb.Join != nil {
			return nil, fmt.Errorf("%w: %q", ErrForkJoinConflict, cb.Name)
		}
	}
	return &Pipeline{
		Name:            name,
		callbacks:       callbacks,
		continueOnError: continueOnError,
	}, nil
}

// OnError binds the handler invoked once per failing callback, in the
// order failures are reaped.
func (p *Pipeline) OnError(fn func(cb *callback.Callback)) {
	p.onError = fn
}

// OnSuccess binds the handler invoked exactly once, when every callback in
// the run has completed with a zero return code.
func (p *Pipeline) OnSuccess(fn func()) {
	p.onSuccess = fn
}

// Callbacks returns the pipeline's callbacks in pool order.
func (p *Pipeline) Callbacks() []*callback.Callback {
	return p.callbacks
}

// IsIdle reports whether the pipeline has no in-flight work: either it ran
// every callback to completion, or it is terminating (a callback failed
// under continue_on_error=false) and has finished reaping what it started.
func (p *Pipeline) IsIdle() bool {
	if p.doneIndex != p.poolIndex {
		return false
	}
	return p.poolIndex == len(p.callbacks) || p.terminating
}

// Start resets the pipeline to run its callbacks from the beginning. Call
// before the first Poll of a new run; safe to call again once IsIdle.
func (p *Pipeline) Start() {
	for _, cb := range p.callbacks {
		cb.Reset()
	}
	p.poolIndex = 0
	p.doneIndex = 0
	p.terminating = false
	p.anyFailed = false
	p.completed = false
}

// Poll advances the pipeline by as much non-blocking work as is available:
// reaping finished callbacks, launching the next eligible one, and chaining
// through any run of forked starts — without ever waiting on a callback to
// finish. Call it repeatedly (e.g. once per supervisor tick) until IsIdle.
func (p *Pipeline) Poll() {
	for {
		p.reap()

		if p.poolIndex == len(p.callbacks) {
			if p.doneIndex == p.poolIndex && !p.completed {
				p.completed = true
				if !p.anyFailed && p.onSuccess != nil {
					p.onSuccess()
				}
			}
			return
		}

		if p.terminating {
			return
		}

		next := p.callbacks[p.poolIndex]
		if p.joinBlocked(next) {
			return
		}

		var prev *callback.Callback
		if p.poolIndex > 0 {
			prev = p.callbacks[p.poolIndex-1]
		}

		next.Start()
		p.poolIndex++

		var upcoming *callback.Callback
		if p.poolIndex < len(p.callbacks) {
			upcoming = p.callbacks[p.poolIndex]
		}
		chain := next.Fork || (prev != nil && prev.Fork && (upcoming == nil || upcoming.Join == nil))
		if !chain {
			return
		}
	}
}

// reap advances doneIndex over every already-finished callback in
// [doneIndex, poolIndex), invoking the error handler for each nonzero exit
// and latching terminating when continue_on_error is false.
func (p *Pipeline) reap() {
	for p.doneIndex < p.poolIndex {
		cb := p.callbacks[p.doneIndex]
		if !cb.IsDone() {
			return
		}
		if cb.ReturnCode() != 0 {
			p.anyFailed = true
			if p.onError != nil {
				p.onError(cb)
			}
			if !p.continueOnError {
				p.terminating = true
			}
		}
		p.doneIndex++
	}
}

// joinBlocked reports whether n's join label still has a running
// predecessor, per the label matching rules: an empty label or the
// reserved sentinel matches every already-started callback; any other
// label matches only callbacks whose own (non-hierarchical) name equals
// the label — a join label names a sibling callback's "name:" field, not
// its full "job/name" hierarchical name.
func (p *Pipeline) joinBlocked(n *callback.Callback) bool {
	if n.Join == nil {
		return false
	}
	joinAll := n.JoinsAll()
	label := *n.Join
	for i := 0; i < p.poolIndex; i++ {
		cb := p.callbacks[i]
		if joinAll || hiername.Basename(cb.Name) == label {
			if !cb.IsDone() {
				return true
			}
		}
	}
	return false
}
