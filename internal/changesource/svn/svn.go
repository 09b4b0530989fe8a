// Package svn implements the version-control changesource.Source against
// an svn working copy: target status/update is shelled out to the svn
// client and its --xml output is parsed to pull each target's commit
// revision as its fingerprint.
package svn

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/watchmanhq/watchman/internal/fingerprint"
)

// DefaultDepth is used when a job's config leaves depth unset.
const DefaultDepth = "empty"

// Source watches svn working-copy targets, fingerprinting each by its
// latest commit revision.
type Source struct {
	Depth string

	targets []string
	logger  *log.Logger

	mu      sync.Mutex
	cmds    map[*exec.Cmd]struct{}
	haveRun bool
	prev    fingerprint.Snapshot
}

// New validates each target's working-copy status, dropping any reported
// unversioned, and returns a Source over what remains.
func New(rawTargets []string, depth string, logger *log.Logger) (*Source, error) {
	if depth == "" {
		depth = DefaultDepth
	}
	s := &Source{Depth: depth, logger: logger, prev: fingerprint.Snapshot{}, cmds: map[*exec.Cmd]struct{}{}}

	var valid []string
	for _, target := range rawTargets {
		out, _, err := s.run("status", "--xml", target)
		if err != nil {
			if logger != nil {
				logger.Error("dropping target: svn status failed", "target", target, "err", err)
			}
			continue
		}
		var parsed xmlStatus
		if err := xml.Unmarshal(out, &parsed); err != nil {
			if logger != nil {
				logger.Error("dropping target: parsing svn status xml", "target", target, "err", err)
			}
			continue
		}
		if parsed.hasUnversionedEntry() {
			if logger != nil {
				logger.Error("dropping target: not under version control", "target", target)
			}
			continue
		}
		valid = append(valid, target)
	}
	s.targets = valid
	return s, nil
}

// Targets returns the source's validated target list.
func (s *Source) Targets() ([]string, error) {
	out := make([]string, len(s.targets))
	copy(out, s.targets)
	return out, nil
}

// Snapshot updates (if a previous snapshot exists) and re-queries the
// status of every target, carrying forward the prior fingerprint for any
// target whose update failed or is reported locked. Targets are queried
// concurrently — each shells out its own svn child, so there's no shared
// state to serialize on beyond the in-flight command bookkeeping Kill uses.
func (s *Source) Snapshot() (fingerprint.Snapshot, error) {
	type result struct {
		target string
		rev    string
		locked bool
	}
	results := make([]result, len(s.targets))

	g, _ := errgroup.WithContext(context.Background())
	for i, target := range s.targets {
		i, target := i, target
		g.Go(func() error {
			rev, locked := s.snapshotTarget(target)
			results[i] = result{target: target, rev: rev, locked: locked}
			return nil // per-target failures are carried forward, not fatal
		})
	}
	_ = g.Wait()

	snap := fingerprint.Snapshot{}
	for _, r := range results {
		if r.locked {
			if prevRev, ok := s.prev[r.target]; ok {
				snap[r.target] = prevRev
			}
			continue
		}
		if r.rev != "" {
			snap[r.target] = r.rev
		}
	}
	s.haveRun = true
	s.prev = snap.Clone()
	return snap, nil
}

func (s *Source) snapshotTarget(target string) (revision string, locked bool) {
	if s.haveRun {
		if _, _, err := s.run("update", target); err != nil {
			return "", true
		}
	}

	out, _, err := s.run("status", "--show-updates", "--verbose", "--quiet", "--depth="+s.Depth, "--xml", target)
	if err != nil {
		return "", true
	}

	var parsed xmlStatus
	if err := xml.Unmarshal(out, &parsed); err != nil {
		if s.logger != nil {
			s.logger.Error("parsing svn status xml", "target", target, "err", err)
		}
		return "", true
	}

	for _, t := range parsed.Targets {
		for _, e := range t.Entries {
			if e.WCStatus.Locked == "true" {
				return "", true
			}
			if e.WCStatus.Commit == nil {
				continue
			}
			rev := e.WCStatus.Commit.Revision
			if rev == "" || rev == "-1" {
				continue
			}
			return rev, false
		}
	}
	return "", false
}

// ChangeLog renders the per-revision log between two fingerprints of a
// modified target, for verbose diagnostics. The range starts just after
// before (before+1:after) so the already-seen before revision itself is
// excluded from the rendered log.
func (s *Source) ChangeLog(target, before, after string) (string, error) {
	beforeRev, err := strconv.Atoi(before)
	if err != nil {
		return "", fmt.Errorf("parsing before revision %q: %w", before, err)
	}
	afterRev, err := strconv.Atoi(after)
	if err != nil {
		return "", fmt.Errorf("parsing after revision %q: %w", after, err)
	}

	out, _, err := s.run("log", "--revision", fmt.Sprintf("%d:%d", beforeRev+1, afterRev), "--verbose", target)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Kill interrupts every svn command currently in flight, if any — Snapshot
// may have several targets' commands running concurrently.
func (s *Source) Kill() {
	s.mu.Lock()
	cmds := make([]*exec.Cmd, 0, len(s.cmds))
	for cmd := range s.cmds {
		cmds = append(cmds, cmd)
	}
	s.mu.Unlock()
	for _, cmd := range cmds {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
}

func (s *Source) run(args ...string) (stdout, stderr []byte, err error) {
	full := append(append([]string{}, args...), "--non-interactive")
	cmd := exec.Command("svn", full...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	s.mu.Lock()
	s.cmds[cmd] = struct{}{}
	s.mu.Unlock()

	err = cmd.Run()

	s.mu.Lock()
	delete(s.cmds, cmd)
	s.mu.Unlock()

	if err != nil && s.logger != nil {
		s.logger.Error("svn command failed", "args", full, "err", err, "stderr", errBuf.String())
	}
	return outBuf.Bytes(), errBuf.Bytes(), err
}

type xmlStatus struct {
	XMLName xml.Name    `xml:"status"`
	Targets []xmlTarget `xml:"target"`
}

type xmlTarget struct {
	Path    string     `xml:"path,attr"`
	Entries []xmlEntry `xml:"entry"`
}

type xmlEntry struct {
	Path     string      `xml:"path,attr"`
	WCStatus xmlWCStatus `xml:"wc-status"`
}

type xmlWCStatus struct {
	Item     string     `xml:"item,attr"`
	Revision string     `xml:"revision,attr"`
	Locked   string     `xml:"wc-locked,attr"`
	Commit   *xmlCommit `xml:"commit"`
}

type xmlCommit struct {
	Revision string `xml:"revision,attr"`
}

// hasUnversionedEntry reports whether any entry in the status output is
// explicitly flagged unversioned. A clean, up-to-date versioned target
// produces no entries at all under plain `svn status`, so absence of
// entries is not itself a signal — only an explicit "unversioned" item is.
func (x xmlStatus) hasUnversionedEntry() bool {
	for _, t := range x.Targets {
		for _, e := range t.Entries {
			if e.WCStatus.Item == "unversioned" {
				return true
			}
		}
	}
	return false
}
