// Package callback runs a single unit of work — a shell command or an
// in-process function — and reports its outcome through the same
// idle/running/done lifecycle regardless of which arm backs it.
package callback

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"

	"github.com/watchmanhq/watchman/internal/hiername"
	"github.com/watchmanhq/watchman/internal/scratch"
	"github.com/watchmanhq/watchman/internal/worker"
)

// State is a Callback's position in its run lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
)

// DefaultTimeout is applied when a Callback's Timeout field is left zero.
const DefaultTimeout = 30 * time.Second

// JoinAll is the reserved Join value meaning "wait for every predecessor
// in the pipeline", rather than only the predecessors sharing a label.
const JoinAll = "*"

// Command is a tagged union: exactly one of Argv or Func is set. Argv holds
// an already shell-split argument vector; Func holds an in-process task.
type Command struct {
	Argv []string
	Func func() error
}

// ParseArgv shell-splits line the way a POSIX shell would — honoring
// quoting, escapes and variable references — without invoking a shell.
func ParseArgv(line string) (Command, error) {
	fields, err := shell.Fields(line, nil)
	if err != nil {
		return Command{}, fmt.Errorf("parsing command %q: %w", line, err)
	}
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("command %q is empty after splitting", line)
	}
	return Command{Argv: fields}, nil
}

// FuncCommand wraps an in-process function as a Command.
func FuncCommand(fn func() error) Command {
	return Command{Func: fn}
}

// IsFunc reports whether the command runs in-process rather than as a
// child process.
func (c Command) IsFunc() bool {
	return c.Func != nil
}

// String renders the command for logging.
func (c Command) String() string {
	if c.IsFunc() {
		return "<func>"
	}
	return strings.Join(c.Argv, " ")
}

// Callback is one named step of a pipeline: a command plus the state it
// accumulates across a single run.
type Callback struct {
	Name    string
	Env     map[string]string
	Dir     string
	Timeout time.Duration
	Fork    bool
	Join    *string

	cmd     Command
	scratch *scratch.Dir
	logger  *log.Logger

	state      State
	returnCode int
	startTime  time.Time
	endTime    time.Time
	logPath    string
	w          worker.Worker
}

// New constructs an idle Callback. scratchDir may be nil when cmd is
// function-backed and never needs a log file. logger may be nil.
func New(name string, cmd Command, scratchDir *scratch.Dir, logger *log.Logger) *Callback {
	return &Callback{
		Name:       name,
		Env:        map[string]string{},
		Timeout:    DefaultTimeout,
		cmd:        cmd,
		scratch:    scratchDir,
		logger:     logger,
		state:      StateIdle,
		returnCode: 0,
	}
}

// Command returns the callback's underlying command.
func (c *Callback) Command() Command {
	return c.cmd
}

// JoinsAll reports whether this callback's Join matches every previously
// started callback rather than only those sharing a label — true when
// Join is set to the empty string or the reserved sentinel.
func (c *Callback) JoinsAll() bool {
	return c.Join != nil && (*c.Join == "" || *c.Join == JoinAll)
}

// Reset returns a Callback to its pre-run state so it can be reused across
// successive pipeline runs without reallocating it.
func (c *Callback) Reset() {
	c.state = StateIdle
	c.returnCode = 0
	c.startTime = time.Time{}
	c.endTime = time.Time{}
	c.logPath = ""
	c.w = nil
}

// Start launches the callback's command, either spawning a child process
// with a dedicated scratch log file or starting the in-process function on
// its own goroutine. A failure to spawn is recorded as ExecuteFail rather
// than returned, so a caller driving a pipeline can treat every callback's
// failure the same way — by polling IsDone/ReturnCode.
func (c *Callback) Start() {
	c.state = StateRunning
	c.startTime = time.Now()

	if c.cmd.IsFunc() {
		fw := worker.NewFuncWorker(c.cmd.Func)
		fw.Start()
		c.w = fw
		return
	}

	logFile, err := c.scratch.NewLogFile(hiername.Basename(c.Name))
	if err != nil {
		c.fail(fmt.Errorf("opening log file for %q: %w", c.Name, err))
		return
	}
	c.logPath = logFile.Name()

	cmd := exec.Command(c.cmd.Argv[0], c.cmd.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = envSlice(c.Env)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	pw := worker.NewProcessWorker(cmd)
	if err := pw.Start(); err != nil {
		logFile.Close()
		c.fail(fmt.Errorf("invoking %q: %w", c.Name, err))
		return
	}
	if c.logger != nil {
		c.logger.Info("invoked callback", "name", c.Name, "cmd", c.cmd.String(), "log", c.logPath)
	}
	c.w = pw
}

func (c *Callback) fail(err error) {
	if c.logger != nil {
		c.logger.Error("callback failed to start", "name", c.Name, "err", err)
	}
	c.returnCode = worker.ExecuteFail
	c.endTime = time.Now()
	c.state = StateDone
}

// IsDone reports whether the callback has finished — or never started at
// all, which counts as done so a pipeline scanning only started callbacks
// never blocks on one it hasn't reached yet.
func (c *Callback) IsDone() bool {
	switch c.state {
	case StateIdle, StateDone:
		return true
	}
	if c.w != nil && c.w.Poll() {
		c.returnCode = c.w.ReturnCode()
		c.endTime = time.Now()
		c.state = StateDone
		if c.logger != nil {
			c.logger.Debug("callback finished", "name", c.Name, "returncode", c.returnCode)
		}
	}
	return c.state == StateDone
}

// Kill terminates a running callback. A no-op once the callback is done or
// was never started.
func (c *Callback) Kill() {
	if c.w != nil && c.state == StateRunning {
		if err := c.w.Kill(); err != nil && c.logger != nil {
			c.logger.Warn("failed to kill callback", "name", c.Name, "err", err)
		}
	}
}

// ReturnCode is only meaningful once IsDone reports true.
func (c *Callback) ReturnCode() int {
	return c.returnCode
}

// Succeeded reports whether the callback ran to completion with a zero
// return code.
func (c *Callback) Succeeded() bool {
	return c.state == StateDone && c.returnCode == 0
}

// LogPath is the scratch-directory log file captured for a process-backed
// callback, or empty for a function-backed one.
func (c *Callback) LogPath() string {
	return c.logPath
}

func (c *Callback) StartTime() time.Time { return c.startTime }
func (c *Callback) EndTime() time.Time   { return c.endTime }
func (c *Callback) State() State         { return c.state }

// Communicate runs the callback to completion synchronously, used for
// on_error/on_success handlers which are not part of a pipeline fork/join
// graph and simply need to run once and report their outcome.
func (c *Callback) Communicate(timeout time.Duration) (string, error) {
	c.Start()
	deadline := time.Now().Add(timeout)
	for !c.IsDone() {
		if time.Now().After(deadline) {
			c.Kill()
			if c.logger != nil {
				c.logger.Error("callback handler timed out", "name", c.Name, "timeout", timeout)
			}
			return c.logPath, fmt.Errorf("callback %q timed out after %s", c.Name, timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !c.Succeeded() {
		return c.logPath, fmt.Errorf("callback %q exited %d", c.Name, c.returnCode)
	}
	return c.logPath, nil
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
