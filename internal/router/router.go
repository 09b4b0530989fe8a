// Package router binds fingerprint event kinds to pipelines, with a
// fallback for unmatched kinds and shared success/error handler callbacks.
package router

import (
	"time"

	"github.com/watchmanhq/watchman/internal/callback"
	"github.com/watchmanhq/watchman/internal/fingerprint"
	"github.com/watchmanhq/watchman/internal/pipeline"
)

// Router maps an event kind to the pipeline that handles it, falling back
// to the pipeline bound for fingerprint.Any when no exact match exists.
type Router struct {
	pipelines      map[fingerprint.Kind]*pipeline.Pipeline
	errorHandler   *callback.Callback
	successHandler *callback.Callback
}

// New constructs an empty Router. errorHandler and successHandler may be
// nil, in which case a pipeline's error/success signal is simply dropped.
func New(errorHandler, successHandler *callback.Callback) *Router {
	r := &Router{
		pipelines:      map[fingerprint.Kind]*pipeline.Pipeline{},
		errorHandler:   errorHandler,
		successHandler: successHandler,
	}
	return r
}

// Bind registers p as the pipeline for kind, wiring its error/success
// signals to the router's handlers. Must be called before the pipeline
// ever runs.
func (r *Router) Bind(kind fingerprint.Kind, p *pipeline.Pipeline) {
	p.OnError(func(cb *callback.Callback) {
		r.runErrorHandler(cb)
	})
	p.OnSuccess(func() {
		r.runSuccessHandler()
	})
	r.pipelines[kind] = p
}

// Pipeline returns the pipeline bound for kind, or the fingerprint.Any
// fallback if no exact binding exists.
func (r *Router) Pipeline(kind fingerprint.Kind) (*pipeline.Pipeline, bool) {
	if p, ok := r.pipelines[kind]; ok {
		return p, true
	}
	p, ok := r.pipelines[fingerprint.Any]
	return p, ok
}

// On starts the pipeline bound to event.Kind (falling back to Any); a
// no-op if neither exists.
func (r *Router) On(event fingerprint.Event) {
	p, ok := r.Pipeline(event.Kind)
	if !ok {
		return
	}
	p.Start()
}

func (r *Router) runErrorHandler(failing *callback.Callback) {
	if r.errorHandler == nil {
		return
	}
	if r.errorHandler.Env == nil {
		r.errorHandler.Env = map[string]string{}
	}
	r.errorHandler.Env["__EVENT_NAME__"] = failing.Name
	r.errorHandler.Reset()
	_, _ = r.errorHandler.Communicate(handlerTimeout(r.errorHandler))
}

func (r *Router) runSuccessHandler() {
	if r.successHandler == nil {
		return
	}
	r.successHandler.Reset()
	_, _ = r.successHandler.Communicate(handlerTimeout(r.successHandler))
}

// handlerTimeout is h's own Timeout, or callback.DefaultTimeout when that
// is left zero.
func handlerTimeout(h *callback.Callback) time.Duration {
	if h.Timeout > 0 {
		return h.Timeout
	}
	return callback.DefaultTimeout
}
