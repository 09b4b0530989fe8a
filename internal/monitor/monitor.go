// Package monitor ties a Schedule to an EventRouter, optionally backed by
// a changesource.Source, and drives at most one pipeline at a time.
package monitor

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/watchmanhq/watchman/internal/changesource"
	"github.com/watchmanhq/watchman/internal/fingerprint"
	"github.com/watchmanhq/watchman/internal/pipeline"
	"github.com/watchmanhq/watchman/internal/router"
	"github.com/watchmanhq/watchman/internal/schedule"
)

// Monitor fires its Router on a Schedule. With a nil Source it behaves as
// a bare scheduler, always dispatching fingerprint.Any; with a Source it
// diffs snapshots and dispatches one event per non-empty kind.
type Monitor struct {
	Name     string
	schedule *schedule.Schedule
	router   *router.Router
	source   changesource.Source
	logger   *log.Logger

	snapshot fingerprint.Snapshot
	queue    []*pipeline.Pipeline
	ranOnce  bool
}

// NewScheduler builds a Monitor with no ChangeSource — the simple form
// that only ever dispatches fingerprint.Any on schedule.
func NewScheduler(name string, sched *schedule.Schedule, r *router.Router, logger *log.Logger) *Monitor {
	return &Monitor{Name: name, schedule: sched, router: r, logger: logger}
}

// New builds a full Monitor backed by a changesource.Source.
func New(name string, sched *schedule.Schedule, r *router.Router, source changesource.Source, logger *log.Logger) *Monitor {
	return &Monitor{Name: name, schedule: sched, router: r, source: source, logger: logger}
}

// Tick advances any in-flight pipeline by one poll, or — if the monitor is
// idle and its schedule has come due — takes a new snapshot (or none, for
// a bare scheduler) and dispatches events for the next run.
func (m *Monitor) Tick(now time.Time) {
	if len(m.queue) > 0 {
		active := m.queue[0]
		active.Poll()
		if active.IsIdle() {
			m.queue = m.queue[1:]
		}
		return
	}

	if !m.schedule.Due(now) {
		return
	}
	m.schedule.Advance()

	if m.source == nil {
		m.dispatch(fingerprint.Event{Kind: fingerprint.Any})
		return
	}

	if m.ranOnce {
		if dc, ok := m.source.(changesource.DirtyChecker); ok && !dc.Dirty() {
			return
		}
	}

	after, err := m.source.Snapshot()
	if err != nil {
		if m.logger != nil {
			m.logger.Error("snapshot failed", "monitor", m.Name, "err", err)
		}
		return
	}
	m.ranOnce = true
	before := m.snapshot
	events := fingerprint.Diff(before, after)
	m.snapshot = after
	for _, ev := range events {
		if ev.Kind == fingerprint.Modified {
			m.logChanges(before, after, ev.Targets)
		}
		m.dispatch(ev)
	}
}

// logChanges renders a per-target change log via the source's ChangeLogger,
// when the source supports it and debug logging is enabled. A failure to
// render is logged and otherwise ignored — it never blocks dispatch.
func (m *Monitor) logChanges(before, after fingerprint.Snapshot, targets []string) {
	if m.logger == nil || m.logger.GetLevel() > log.DebugLevel {
		return
	}
	cl, ok := m.source.(changesource.ChangeLogger)
	if !ok {
		return
	}
	for _, target := range targets {
		out, err := cl.ChangeLog(target, before[target], after[target])
		if err != nil {
			m.logger.Debug("change log unavailable", "monitor", m.Name, "target", target, "err", err)
			continue
		}
		m.logger.Debug("change log", "monitor", m.Name, "target", target, "log", out)
	}
}

func (m *Monitor) dispatch(ev fingerprint.Event) {
	p, ok := m.router.Pipeline(ev.Kind)
	if !ok {
		return
	}
	p.Start()
	m.queue = append(m.queue, p)
}

// Kill interrupts the monitor's change source (if any) and every callback
// belonging to a currently queued pipeline.
func (m *Monitor) Kill() {
	if m.source != nil {
		m.source.Kill()
	}
	for _, p := range m.queue {
		for _, cb := range p.Callbacks() {
			cb.Kill()
		}
	}
}

// NextFireTimes returns the next n scheduled fire times, for
// `list-schedule`.
func (m *Monitor) NextFireTimes(n int) []time.Time {
	out := make([]time.Time, 0, n)
	next := m.schedule.NextRun
	for i := 0; i < n; i++ {
		out = append(out, next)
		next = m.schedule.NextAfter(next)
	}
	return out
}

// Targets resolves the monitor's target list for `list-targets`, or nil
// for a bare scheduler.
func (m *Monitor) Targets() ([]string, error) {
	if m.source == nil {
		return nil, nil
	}
	return m.source.Targets()
}
