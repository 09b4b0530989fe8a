package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "watchman.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const schedulerConfig = `
project: demo
jobs:
  heartbeat:
    monitor:
      schedule: "every 5 seconds"
    on_events:
      any:
        - {name: ping, cmd: "echo hi"}
`

func TestLoadValidSchedulerConfig(t *testing.T) {
	path := writeConfig(t, schedulerConfig)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Project)
	assert.Len(t, cfg.Jobs, 1)
}

func TestLoadRejectsMissingProject(t *testing.T) {
	path := writeConfig(t, `
jobs:
  heartbeat:
    monitor:
      schedule: "every 5 seconds"
    on_events:
      any:
        - {name: ping, cmd: "echo hi"}
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownMonitorType(t *testing.T) {
	path := writeConfig(t, `
project: demo
jobs:
  heartbeat:
    monitor:
      type: ftp
      schedule: "every 5 seconds"
      targets: ["/tmp"]
    on_events:
      any:
        - {name: ping, cmd: "echo hi"}
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingTargetsForFileMonitor(t *testing.T) {
	path := writeConfig(t, `
project: demo
jobs:
  watch:
    monitor:
      type: file
      schedule: "every 5 seconds"
    on_events:
      any:
        - {name: ping, cmd: "echo hi"}
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsEmptyOnEvents(t *testing.T) {
	path := writeConfig(t, `
project: demo
jobs:
  heartbeat:
    monitor:
      schedule: "every 5 seconds"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("WATCHMAN_TEST_TOKEN", "secret123")
	path := writeConfig(t, `
project: demo
env:
  TOKEN: ${WATCHMAN_TEST_TOKEN}
jobs:
  heartbeat:
    monitor:
      schedule: "every 5 seconds"
    on_events:
      any:
        - {name: ping, cmd: "echo hi"}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret123", cfg.Env["TOKEN"])
}

func TestMergeEnvLastWriterWins(t *testing.T) {
	t.Setenv("WATCHMAN_TEST_MERGE", "from-os")
	merged := MergeEnv(
		map[string]string{"WATCHMAN_TEST_MERGE": "from-global", "A": "1"},
		map[string]string{"A": "2"},
		map[string]string{"A": "3"},
	)
	assert.Equal(t, "3", merged["A"])
	assert.Equal(t, "from-global", merged["WATCHMAN_TEST_MERGE"])
}
