package callback

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchmanhq/watchman/internal/scratch"
)

func TestParseArgvSplitsQuotedWords(t *testing.T) {
	cmd, err := ParseArgv(`echo "hello world" foo`)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "hello world", "foo"}, cmd.Argv)
	assert.False(t, cmd.IsFunc())
}

func TestParseArgvRejectsEmpty(t *testing.T) {
	_, err := ParseArgv("   ")
	assert.Error(t, err)
}

func TestCallbackRunsProcessToCompletion(t *testing.T) {
	dir := scratch.Open(t.TempDir())
	cmd, err := ParseArgv("true")
	require.NoError(t, err)

	cb := New("job", cmd, dir, nil)
	cb.Start()

	deadline := time.Now().Add(2 * time.Second)
	for !cb.IsDone() {
		if time.Now().After(deadline) {
			t.Fatal("callback did not finish in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, cb.Succeeded())
	assert.Equal(t, 0, cb.ReturnCode())
	assert.NotEmpty(t, cb.LogPath())
}

func TestCallbackRunsFailingProcess(t *testing.T) {
	dir := scratch.Open(t.TempDir())
	cmd, err := ParseArgv("false")
	require.NoError(t, err)

	cb := New("job", cmd, dir, nil)
	cb.Start()
	for !cb.IsDone() {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, cb.Succeeded())
	assert.Equal(t, 1, cb.ReturnCode())
}

func TestCallbackRunsFunc(t *testing.T) {
	cb := New("job", FuncCommand(func() error { return nil }), nil, nil)
	cb.Start()
	for !cb.IsDone() {
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, cb.Succeeded())
	assert.Empty(t, cb.LogPath())
}

func TestCallbackIdleCountsAsDone(t *testing.T) {
	cb := New("job", FuncCommand(func() error { return nil }), nil, nil)
	assert.True(t, cb.IsDone())
}

func TestCallbackCommunicateReportsError(t *testing.T) {
	cb := New("job", FuncCommand(func() error { return errors.New("boom") }), nil, nil)
	_, err := cb.Communicate(time.Second)
	assert.Error(t, err)
}

func TestCallbackCommunicateTimesOut(t *testing.T) {
	cb := New("job", FuncCommand(func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	}), nil, nil)
	_, err := cb.Communicate(20 * time.Millisecond)
	assert.Error(t, err)
}

func TestJoinsAll(t *testing.T) {
	cb := New("job", FuncCommand(func() error { return nil }), nil, nil)
	assert.False(t, cb.JoinsAll())

	all := JoinAll
	cb.Join = &all
	assert.True(t, cb.JoinsAll())

	label := "stage1"
	cb.Join = &label
	assert.False(t, cb.JoinsAll())
}
