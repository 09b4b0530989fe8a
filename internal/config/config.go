// Package config loads and validates the YAML job file: one project-level
// env map plus a set of named jobs, each pairing a monitor (schedule, plus
// an optional change source) with the event callbacks it should run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level document.
type Config struct {
	Project string            `yaml:"project"`
	Debug   bool              `yaml:"debug"`
	Env     map[string]string `yaml:"env"`
	Jobs    map[string]Job    `yaml:"jobs"`
}

// Job pairs a monitor definition with its callback bindings.
type Job struct {
	Monitor   MonitorConfig `yaml:"monitor"`
	JobConfig JobConfig     `yaml:"job_config"`
	OnEvents  OnEvents      `yaml:"on_events"`
	OnError   *Callback     `yaml:"on_error"`
	OnSuccess *Callback     `yaml:"on_success"`
}

// MonitorConfig describes a job's schedule and, for file/svn jobs, its
// change source. Type "" (or omitted) means a bare Scheduler.
type MonitorConfig struct {
	Type       string   `yaml:"type"`
	Schedule   string   `yaml:"schedule"`
	Targets    []string `yaml:"targets"`
	Recursive  bool     `yaml:"recursive"`
	Extensions []string `yaml:"extensions"`
	Depth      string   `yaml:"depth"`
	Ignores    []string `yaml:"ignores"`
}

// JobConfig holds the pipeline-wide settings shared by every callback in a
// job's event bindings.
type JobConfig struct {
	Env             map[string]string `yaml:"env"`
	ContinueOnError bool              `yaml:"continue_on_error"`
}

// OnEvents binds callback lists to each fingerprint event kind.
type OnEvents struct {
	Added    []Callback `yaml:"added"`
	Removed  []Callback `yaml:"removed"`
	Modified []Callback `yaml:"modified"`
	Any      []Callback `yaml:"any"`
}

// empty reports whether every event kind's callback list is empty.
func (e OnEvents) empty() bool {
	return len(e.Added) == 0 && len(e.Removed) == 0 && len(e.Modified) == 0 && len(e.Any) == 0
}

// Callback is one configured pipeline step or handler.
type Callback struct {
	Name string            `yaml:"name"`
	Cmd  string            `yaml:"cmd"`
	Env  map[string]string `yaml:"env"`
	Fork bool              `yaml:"fork"`
	Join *string           `yaml:"join"`
}

const (
	MonitorTypeScheduler = ""
	MonitorTypeFile      = "file"
	MonitorTypeSVN       = "svn"
)

// Load reads path, expands ${VAR} references against the process
// environment, parses it as YAML, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural requirements the supervisor depends on:
// a project name, a recognized monitor type per job, targets wherever a
// change source needs them, and at least one configured callback.
func (c *Config) Validate() error {
	if c.Project == "" {
		return fmt.Errorf("config: %q is required", "project")
	}
	for name, job := range c.Jobs {
		if err := job.validate(); err != nil {
			return fmt.Errorf("config: job %q: %w", name, err)
		}
	}
	return nil
}

func (j Job) validate() error {
	switch j.Monitor.Type {
	case MonitorTypeScheduler, MonitorTypeFile, MonitorTypeSVN:
	default:
		return fmt.Errorf("unknown monitor type %q", j.Monitor.Type)
	}
	if j.Monitor.Schedule == "" {
		return fmt.Errorf("monitor.schedule is required")
	}
	if j.Monitor.Type != MonitorTypeScheduler && len(j.Monitor.Targets) == 0 {
		return fmt.Errorf("monitor.targets is required for type %q", j.Monitor.Type)
	}
	if j.OnEvents.empty() {
		return fmt.Errorf("on_events must configure at least one event kind")
	}
	return nil
}

// MergeEnv combines environment maps with later arguments winning over
// earlier ones, per the (OS env ∪ global env ∪ job env ∪ callback env)
// layering the callback environment is built from.
func MergeEnv(layers ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, env := range os.Environ() {
		if k, v, ok := splitEnv(env); ok {
			out[k] = v
		}
	}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

func splitEnv(kv string) (key, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}
