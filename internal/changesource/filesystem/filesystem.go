// Package filesystem implements the filesystem changesource.Source: target
// patterns are resolved once at construction, then re-walked on every
// Snapshot to build a target-to-mtime fingerprint map.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/watchmanhq/watchman/internal/filelist"
	"github.com/watchmanhq/watchman/internal/fingerprint"
	"github.com/watchmanhq/watchman/internal/glob"
)

// Source watches a fixed set of resolved filesystem targets.
type Source struct {
	Recursive  bool
	Extensions []string // no dot; empty means "all pass"
	Ignores    []string // fnmatch-style, matched against the full target path and its base name

	targets []string
	logger  *log.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	dirty   bool
}

// New resolves patterns (expanding "-f" filelist redirection and glob
// syntax) into a fixed target list, dropping anything an ignores pattern
// matches. Resolution happens once; subsequent polls re-stat the same
// target set rather than re-globbing, matching the "resolved once at
// initialization" contract.
func New(patterns []string, ignores []string, recursive bool, extensions []string, logger *log.Logger) (*Source, error) {
	s := &Source{
		Recursive:  recursive,
		Extensions: normalizeExtensions(extensions),
		Ignores:    ignores,
		logger:     logger,
	}

	var resolved []string
	for _, pattern := range patterns {
		expanded, err := expandPattern(pattern)
		if err != nil {
			if logger != nil {
				logger.Error("dropping unresolvable target", "pattern", pattern, "err", err)
			}
			continue
		}
		resolved = append(resolved, expanded...)
	}

	for _, t := range resolved {
		if s.ignored(t) {
			continue
		}
		s.targets = append(s.targets, t)
	}

	s.startWatcher()
	return s, nil
}

// startWatcher installs a best-effort fsnotify watch over every resolved
// target, so Dirty can short-circuit a poll that would otherwise re-walk an
// untouched tree. fsnotify is never the source of truth for a snapshot —
// only a hint — so a watcher that fails to start just leaves Dirty always
// reporting true.
func (s *Source) startWatcher() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("fsnotify unavailable, polling unaccelerated", "err", err)
		}
		return
	}
	for _, t := range s.targets {
		if err := w.Add(t); err != nil && s.logger != nil {
			s.logger.Debug("fsnotify could not watch target", "target", t, "err", err)
		}
	}
	s.watcher = w
	s.dirty = true

	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				s.mu.Lock()
				s.dirty = true
				s.mu.Unlock()
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// Dirty reports whether a filesystem event has been observed since the
// last call (or since construction), then clears the flag. Always true
// when no watcher could be started.
func (s *Source) Dirty() bool {
	if s.watcher == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dirty := s.dirty
	s.dirty = false
	return dirty
}

// expandPattern applies filelist redirection ("-f <path>") ahead of glob
// expansion: a filelist line is itself a pattern, possibly another
// filelist.
func expandPattern(pattern string) ([]string, error) {
	trimmed := strings.TrimSpace(pattern)
	if rest, ok := cutFilelistFlag(trimmed); ok {
		lines, err := filelist.Read(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("reading filelist %q: %w", rest, err)
		}
		var out []string
		for _, line := range lines {
			sub, err := expandPattern(line)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	}
	return glob.Expand(trimmed, false), nil
}

func cutFilelistFlag(pattern string) (string, bool) {
	for _, flag := range []string{"-f ", "-F "} {
		if strings.HasPrefix(pattern, flag) {
			return pattern[len(flag):], true
		}
	}
	return "", false
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.TrimPrefix(e, ".")
	}
	return out
}

func (s *Source) ignored(target string) bool {
	for _, pattern := range s.Ignores {
		if ok, _ := filepath.Match(pattern, target); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(target)); ok {
			return true
		}
	}
	return false
}

func (s *Source) extensionAllowed(name string) bool {
	if len(s.Extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	for _, allowed := range s.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Targets returns the source's resolved target list.
func (s *Source) Targets() ([]string, error) {
	out := make([]string, len(s.targets))
	copy(out, s.targets)
	return out, nil
}

// Snapshot walks every resolved target and records each passing file's
// fingerprint as its modification time (UTC with a fixed nine-digit
// nanosecond fraction, for exact equality comparisons in Diff).
func (s *Source) Snapshot() (fingerprint.Snapshot, error) {
	snap := fingerprint.Snapshot{}
	for _, target := range s.targets {
		info, err := os.Lstat(target)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("target vanished", "target", target, "err", err)
			}
			continue
		}

		switch {
		case !info.IsDir():
			snap[target] = mtimeFingerprint(info)
		case s.Recursive:
			s.snapshotDirRecursive(target, snap)
		default:
			s.snapshotDirShallow(target, snap)
		}
	}
	return snap, nil
}

func (s *Source) snapshotDirShallow(dir string, snap fingerprint.Snapshot) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("reading directory", "dir", dir, "err", err)
		}
		return
	}
	for _, entry := range entries {
		if isHidden(entry.Name()) || entry.IsDir() {
			continue
		}
		if !s.extensionAllowed(entry.Name()) {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if info, err := entry.Info(); err == nil {
			snap[full] = mtimeFingerprint(info)
		}
	}
}

func (s *Source) snapshotDirRecursive(dir string, snap fingerprint.Snapshot) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if path != dir && isHidden(info.Name()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !s.extensionAllowed(info.Name()) {
			return nil
		}
		snap[path] = mtimeFingerprint(info)
		return nil
	})
}

func mtimeFingerprint(info os.FileInfo) string {
	return info.ModTime().UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Kill closes the fsnotify watcher, if one was started; a filesystem
// snapshot itself has no in-flight child process to interrupt.
func (s *Source) Kill() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
}
