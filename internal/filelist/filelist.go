// Package filelist parses "-f <path>" filelist redirection: files listing
// one target (or further filelist) per line, with "//" comments and
// "+incdir+a+b+c" directory-list tokens.
package filelist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// maxDepth bounds nested "-f" redirection so a filelist that transitively
// references itself fails with a diagnostic instead of recursing forever.
const maxDepth = 64

// ErrTooDeep is returned when filelist redirection nests beyond maxDepth.
var ErrTooDeep = errors.New("filelist recursion exceeded maximum depth")

var commentPattern = regexp.MustCompile(`//.*`)

// Read parses path and returns the filelist's own path (it is itself a
// target) followed by every token it resolves to, recursively expanding
// nested "-f"/"-F" redirection.
func Read(path string) ([]string, error) {
	return read(path, 0, "", 0)
}

// read parses path, which was referenced from parent at line atLine (both
// zero values at the top-level call). atLine lets a missing nested filelist
// report exactly where in its parent the bad "-f"/"-F" reference appeared.
func read(path string, depth int, parent string, atLine int) ([]string, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: %s (referenced from %s)", ErrTooDeep, path, parent)
	}

	if _, err := os.Stat(path); err != nil {
		loc := ""
		if parent != "" {
			loc = fmt.Sprintf(" at line %d in %s", atLine, parent)
		}
		return nil, fmt.Errorf("the file '%s' does not exist%s", path, loc)
	}

	out := []string{path}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := commentPattern.ReplaceAllString(scanner.Text(), "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var pendingOption string
		for _, raw := range strings.Fields(line) {
			token := os.ExpandEnv(raw)
			if token == "" {
				continue
			}

			switch {
			case pendingOption != "":
				if pendingOption == "-f" || pendingOption == "-F" {
					nested, err := read(token, depth+1, path, lineNum)
					if err != nil {
						return nil, err
					}
					out = append(out, nested...)
				} else if token[0] != '+' && token[0] != '-' {
					out = append(out, token)
				}
				pendingOption = ""

			case strings.HasPrefix(token, "-"):
				pendingOption = token

			case strings.HasPrefix(token, "+incdir"):
				for _, dir := range strings.Split(token, "+")[2:] {
					if dir != "" {
						out = append(out, dir)
					}
				}

			case token[0] != '+' && token[0] != '-':
				out = append(out, token)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
