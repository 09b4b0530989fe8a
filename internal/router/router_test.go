package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchmanhq/watchman/internal/callback"
	"github.com/watchmanhq/watchman/internal/fingerprint"
	"github.com/watchmanhq/watchman/internal/pipeline"
)

func drive(t *testing.T, p *pipeline.Pipeline) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !p.IsIdle() {
		if time.Now().After(deadline) {
			t.Fatal("pipeline did not idle in time")
		}
		p.Poll()
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRouterFallsBackToAny(t *testing.T) {
	var ranAny bool
	cb := callback.New("job", callback.FuncCommand(func() error { ranAny = true; return nil }), nil, nil)
	p, err := pipeline.New("p", []*callback.Callback{cb}, false)
	require.NoError(t, err)

	r := New(nil, nil)
	r.Bind(fingerprint.Any, p)

	r.On(fingerprint.Event{Kind: fingerprint.Modified})
	drive(t, p)

	assert.True(t, ranAny)
}

func TestRouterNoOpWithoutMatch(t *testing.T) {
	r := New(nil, nil)
	r.On(fingerprint.Event{Kind: fingerprint.Added}) // must not panic
}

func TestRouterInvokesErrorHandlerWithEventName(t *testing.T) {
	var gotName string
	errHandler := callback.New("notify", callback.FuncCommand(func() error { return nil }), nil, nil)

	r := New(errHandler, nil)

	failing := callback.New("job/step-b", callback.FuncCommand(func() error { return assert.AnError }), nil, nil)
	p, err := pipeline.New("p", []*callback.Callback{failing}, false)
	require.NoError(t, err)
	r.Bind(fingerprint.Modified, p)

	r.On(fingerprint.Event{Kind: fingerprint.Modified})
	drive(t, p)

	gotName = errHandler.Env["__EVENT_NAME__"]
	assert.Equal(t, "job/step-b", gotName)
}
