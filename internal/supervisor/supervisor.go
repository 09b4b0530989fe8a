// Package supervisor runs the outer polling loop over a fixed set of
// monitors: tick each one, sleep, repeat, until interrupted.
package supervisor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"

	"github.com/watchmanhq/watchman/internal/monitor"
)

// TickInterval is the outer loop's sleep between passes over the monitor
// list, the ~1s granularity the design calls for.
const TickInterval = time.Second

// Supervisor owns a list of Monitors and runs them to completion or
// cancellation.
type Supervisor struct {
	monitors []*monitor.Monitor
	logger   *log.Logger
}

// New constructs a Supervisor over monitors.
func New(monitors []*monitor.Monitor, logger *log.Logger) *Supervisor {
	return &Supervisor{monitors: monitors, logger: logger}
}

// Run loops until ctx is cancelled, ticking every monitor once per pass and
// sleeping TickInterval between passes. A panic or error from one
// monitor's tick is caught, logged with a stack trace, and does not abort
// the loop. On cancellation it kills every monitor and returns nil — the
// caller is expected to exit 0 regardless, per the graceful-shutdown
// contract.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		default:
		}

		now := time.Now()
		for _, m := range s.monitors {
			s.tickSafely(m, now)
		}

		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) tickSafely(m *monitor.Monitor, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.Error("monitor tick panicked",
					"monitor", m.Name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			}
		}
	}()
	m.Tick(now)
}

func (s *Supervisor) shutdown() {
	for _, m := range s.monitors {
		func() {
			defer func() {
				if r := recover(); r != nil && s.logger != nil {
					s.logger.Error("monitor kill panicked", "monitor", m.Name, "panic", fmt.Sprint(r))
				}
			}()
			m.Kill()
		}()
	}
}
