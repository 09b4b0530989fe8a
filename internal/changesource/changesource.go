// Package changesource defines the interface a Monitor polls for its
// before/after fingerprints, implemented by the filesystem and svn
// change sources.
package changesource

import "github.com/watchmanhq/watchman/internal/fingerprint"

// Source produces a point-in-time fingerprint of a monitor's targets and
// can be interrupted mid-operation during shutdown.
type Source interface {
	// Snapshot resolves targets and returns their current fingerprints.
	// A target that fails to resolve is dropped and logged rather than
	// failing the whole snapshot.
	Snapshot() (fingerprint.Snapshot, error)

	// Targets lists the source's resolved target paths, for diagnostics
	// such as `list-targets`.
	Targets() ([]string, error)

	// Kill interrupts any in-flight operation (a running VCS child, for
	// instance). Safe to call when nothing is in flight.
	Kill()
}

// DirtyChecker is implemented by a Source that can cheaply report whether
// anything has changed since it was last asked, without a full Snapshot.
// A Monitor uses it only to skip a tick's work early; it is never treated
// as a source of truth — a Source with no such signal is always polled.
type DirtyChecker interface {
	Dirty() bool
}

// ChangeLogger is implemented by a Source that can render a human-readable
// log of the revisions between a target's before/after fingerprints (svn's
// Source, via "svn log"). A Monitor consults it only for a modified event,
// and only when debug logging is enabled.
type ChangeLogger interface {
	ChangeLog(target, before, after string) (string, error)
}
