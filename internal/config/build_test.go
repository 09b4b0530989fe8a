package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchmanhq/watchman/internal/scratch"
)

func TestBuildMonitorsWiresSchedulerJob(t *testing.T) {
	cfg := &Config{
		Project: "demo",
		Jobs: map[string]Job{
			"heartbeat": {
				Monitor: MonitorConfig{Schedule: "every second"},
				OnEvents: OnEvents{
					Any: []Callback{{Name: "ping", Cmd: "true"}},
				},
			},
		},
	}

	dir := scratch.Open(t.TempDir())
	monitors, err := cfg.BuildMonitors(dir, nil)
	require.NoError(t, err)
	require.Len(t, monitors, 1)
	assert.Equal(t, "heartbeat", monitors[0].Name)

	monitors[0].Tick(time.Now().Add(time.Hour))
}

func TestBuildMonitorsRejectsForkJoinCallback(t *testing.T) {
	join := "x"
	cfg := &Config{
		Project: "demo",
		Jobs: map[string]Job{
			"bad": {
				Monitor: MonitorConfig{Schedule: "every second"},
				OnEvents: OnEvents{
					Any: []Callback{{Name: "a", Cmd: "true", Fork: true, Join: &join}},
				},
			},
		},
	}

	dir := scratch.Open(t.TempDir())
	_, err := cfg.BuildMonitors(dir, nil)
	assert.Error(t, err)
}
