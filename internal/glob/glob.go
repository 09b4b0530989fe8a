// Package glob implements the target-pattern resolution grammar: "*" within
// one path component, "**" for any descendant (skipping dotfiles), and a
// "{a,b,c}" basename alternation — ported from the monitor's original
// recursive iglob rather than relying on filepath.Glob, which supports none
// of "**" or brace alternation.
package glob

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var magicChars = regexp.MustCompile(`[*?\[{]`)

func hasMagic(s string) bool {
	return magicChars.MatchString(s)
}

// Expand resolves pattern against the filesystem and returns the matching
// paths, deduplicated. A purely literal pattern that does not exist on disk
// resolves to zero targets unless yieldMissing is set (used only for
// filelist paths, which must surface even before the first poll creates
// them).
func Expand(pattern string, yieldMissing bool) []string {
	results := iglob(os.ExpandEnv(pattern), yieldMissing)
	return dedupe(results)
}

func iglob(pattern string, yieldMissing bool) []string {
	dir, base := splitPath(pattern)

	if !hasMagic(pattern) {
		if base != "" {
			if yieldMissing || lexists(pattern) {
				return []string{pattern}
			}
			return nil
		}
		if isDir(dir) {
			return []string{pattern}
		}
		return nil
	}

	if dir == "" {
		dir = "."
	}

	var dirs []string
	if hasMagic(dir) {
		dirs = dedupe(iglob(dir, false))
	} else {
		dirs = []string{dir}
	}

	var out []string
	for _, d := range dirs {
		switch {
		case base == "**":
			out = append(out, globStar(d)...)
		case hasMagic(base):
			for _, name := range glob1(d, base) {
				out = append(out, joinPath(d, name))
			}
		default:
			full := joinPath(d, base)
			if lexists(full) {
				out = append(out, full)
			}
		}
	}
	return out
}

// globStar yields dirname itself (if it is a directory) followed by every
// non-hidden descendant file and directory beneath it.
func globStar(dirname string) []string {
	info, err := os.Stat(dirname)
	if err != nil || !info.IsDir() {
		return nil
	}

	out := []string{dirname}
	_ = filepath.WalkDir(dirname, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == dirname {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out
}

// glob1 matches basename (which may contain a "{a,b,c}" alternation) against
// the immediate children of dirname, fnmatch-style, skipping hidden entries
// unless the pattern itself starts with ".".
func glob1(dirname, basename string) []string {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	seen := map[string]bool{}
	var out []string
	for _, alt := range expandBraces(basename) {
		matchHidden := strings.HasPrefix(alt, ".")
		for _, name := range names {
			if !matchHidden && strings.HasPrefix(name, ".") {
				continue
			}
			if ok, _ := filepath.Match(alt, name); ok && !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

var bracePattern = regexp.MustCompile(`\{(\S+)\}`)

// expandBraces turns "*.{sv,v}" into ["*.sv", "*.v"], supporting multiple
// brace groups in a single basename.
func expandBraces(basename string) []string {
	parts := splitWithCaptures(basename)

	acc := []string{""}
	for _, part := range parts {
		var next []string
		for _, ext := range strings.Split(part, ",") {
			for _, prefix := range acc {
				next = append(next, prefix+ext)
			}
		}
		acc = next
	}
	return acc
}

func splitWithCaptures(s string) []string {
	locs := bracePattern.FindAllStringSubmatchIndex(s, -1)
	if locs == nil {
		return []string{s}
	}

	var parts []string
	last := 0
	for _, loc := range locs {
		parts = append(parts, s[last:loc[0]])
		parts = append(parts, s[loc[2]:loc[3]])
		last = loc[1]
	}
	parts = append(parts, s[last:])
	return parts
}

func splitPath(p string) (dir, base string) {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return "", p
	}
	dir = p[:idx+1]
	base = p[idx+1:]
	if trimmed := strings.TrimRight(dir, "/"); trimmed != "" {
		dir = trimmed
	}
	return dir, base
}

func joinPath(dir, base string) string {
	if dir == "." {
		return base
	}
	return dir + "/" + base
}

func lexists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
