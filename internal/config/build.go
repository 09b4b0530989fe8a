package config

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/watchmanhq/watchman/internal/callback"
	"github.com/watchmanhq/watchman/internal/changesource"
	"github.com/watchmanhq/watchman/internal/changesource/filesystem"
	"github.com/watchmanhq/watchman/internal/changesource/svn"
	"github.com/watchmanhq/watchman/internal/fingerprint"
	"github.com/watchmanhq/watchman/internal/hiername"
	"github.com/watchmanhq/watchman/internal/monitor"
	"github.com/watchmanhq/watchman/internal/pipeline"
	"github.com/watchmanhq/watchman/internal/router"
	"github.com/watchmanhq/watchman/internal/schedule"
	"github.com/watchmanhq/watchman/internal/scratch"
)

// BuildMonitors constructs one monitor.Monitor per configured job, wiring
// its schedule, change source (if any), pipelines, and handlers. Jobs are
// built in name-sorted order so monitor construction errors are reported
// deterministically.
func (c *Config) BuildMonitors(scratchDir *scratch.Dir, logger *log.Logger) ([]*monitor.Monitor, error) {
	names := make([]string, 0, len(c.Jobs))
	for name := range c.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	monitors := make([]*monitor.Monitor, 0, len(names))
	for _, name := range names {
		m, err := c.buildMonitor(name, c.Jobs[name], scratchDir, logger)
		if err != nil {
			return nil, fmt.Errorf("building monitor %q: %w", name, err)
		}
		monitors = append(monitors, m)
	}
	return monitors, nil
}

func (c *Config) buildMonitor(name string, job Job, scratchDir *scratch.Dir, logger *log.Logger) (*monitor.Monitor, error) {
	sched, err := schedule.New(job.Monitor.Schedule)
	if err != nil {
		return nil, err
	}

	r, err := c.buildRouter(name, job, scratchDir, logger)
	if err != nil {
		return nil, err
	}

	if job.Monitor.Type == MonitorTypeScheduler {
		return monitor.NewScheduler(name, sched, r, logger), nil
	}

	source, err := c.buildSource(job, logger)
	if err != nil {
		return nil, err
	}
	return monitor.New(name, sched, r, source, logger), nil
}

func (c *Config) buildSource(job Job, logger *log.Logger) (changesource.Source, error) {
	switch job.Monitor.Type {
	case MonitorTypeFile:
		return filesystem.New(job.Monitor.Targets, job.Monitor.Ignores, job.Monitor.Recursive, job.Monitor.Extensions, logger)
	case MonitorTypeSVN:
		return svn.New(job.Monitor.Targets, job.Monitor.Depth, logger)
	default:
		return nil, fmt.Errorf("monitor type %q has no change source", job.Monitor.Type)
	}
}

func (c *Config) buildRouter(name string, job Job, scratchDir *scratch.Dir, logger *log.Logger) (*router.Router, error) {
	var errHandler, successHandler *callback.Callback
	if job.OnError != nil {
		errHandler = c.buildCallback(name, job, *job.OnError, scratchDir, logger)
	}
	if job.OnSuccess != nil {
		successHandler = c.buildCallback(name, job, *job.OnSuccess, scratchDir, logger)
	}

	r := router.New(errHandler, successHandler)

	bindings := []struct {
		kind  fingerprint.Kind
		specs []Callback
	}{
		{fingerprint.Added, job.OnEvents.Added},
		{fingerprint.Removed, job.OnEvents.Removed},
		{fingerprint.Modified, job.OnEvents.Modified},
		{fingerprint.Any, job.OnEvents.Any},
	}
	for _, b := range bindings {
		if len(b.specs) == 0 {
			continue
		}
		p, err := c.buildPipeline(name, job, b.specs, scratchDir, logger)
		if err != nil {
			return nil, fmt.Errorf("event %q: %w", b.kind, err)
		}
		r.Bind(b.kind, p)
	}
	return r, nil
}

func (c *Config) buildPipeline(jobName string, job Job, specs []Callback, scratchDir *scratch.Dir, logger *log.Logger) (*pipeline.Pipeline, error) {
	callbacks := make([]*callback.Callback, 0, len(specs))
	for _, spec := range specs {
		callbacks = append(callbacks, c.buildCallback(jobName, job, spec, scratchDir, logger))
	}
	return pipeline.New(jobName, callbacks, job.JobConfig.ContinueOnError)
}

func (c *Config) buildCallback(jobName string, job Job, spec Callback, scratchDir *scratch.Dir, logger *log.Logger) *callback.Callback {
	env := MergeEnv(c.Env, job.JobConfig.Env, spec.Env)

	cmd, err := callback.ParseArgv(spec.Cmd)
	if err != nil {
		if logger != nil {
			logger.Error("invalid callback command, treating as always-failing", "job", jobName, "name", spec.Name, "err", err)
		}
		cmd = callback.FuncCommand(func() error { return err })
	}

	name := hiername.Join(jobName, spec.Name)
	cb := callback.New(name, cmd, scratchDir, logger)
	cb.Env = env
	cb.Fork = spec.Fork
	cb.Join = spec.Join
	return cb
}
