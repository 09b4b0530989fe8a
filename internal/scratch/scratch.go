// Package scratch manages the process-wide scratch directory: rotating the
// previous run's directory and log file by mtime suffix, then handing out
// uniquely named log files for individual callbacks.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultDirName is the scratch directory created under the current
// working directory on every `run`.
const DefaultDirName = ".watchman_tempdir"

// DefaultLogFileName is the fixed name of the root log file, rotated the
// same way as the scratch directory.
const DefaultLogFileName = "watchman.log"

// Dir is a scratch directory that hands out uniquely named log files.
type Dir struct {
	path string
}

// Rotate renames an existing directory at path by appending its mtime as a
// suffix, then creates a fresh directory at path.
func Rotate(path string) (*Dir, error) {
	if info, err := os.Stat(path); err == nil {
		dest := fmt.Sprintf("%s_%d", path, info.ModTime().Unix())
		if err := os.Rename(path, dest); err != nil {
			return nil, fmt.Errorf("rotating scratch directory: %w", err)
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	return &Dir{path: path}, nil
}

// Open wraps an existing directory without rotating it.
func Open(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the directory's filesystem path.
func (d *Dir) Path() string {
	return d.path
}

// NewLogFile creates a uniquely named combined stdout+stderr log file for a
// callback, named "<basename-with-spaces-as-underscores>_<uuid>.log".
func (d *Dir) NewLogFile(basename string) (*os.File, error) {
	safe := strings.ReplaceAll(basename, " ", "_")
	name := fmt.Sprintf("%s_%s.log", safe, uuid.NewString())
	return os.Create(filepath.Join(d.path, name))
}

// RotateFile renames an existing file at path by appending its mtime, if it
// exists. Used for the fixed-name root log file on each `run`.
func RotateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	dest := fmt.Sprintf("%s.%d", path, info.ModTime().Unix())
	return os.Rename(path, dest)
}

// Clean removes every entry directly under cwd whose name begins with
// tempDirName or logFileName: the current scratch directory and log file as
// well as the rotated ones.
func Clean(cwd, tempDirName, logFileName string) error {
	entries, err := os.ReadDir(cwd)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(cwd, name)
		switch {
		case strings.HasPrefix(name, logFileName):
			if err := os.Remove(full); err != nil {
				return err
			}
		case strings.HasPrefix(name, tempDirName):
			if err := os.RemoveAll(full); err != nil {
				return err
			}
		}
	}
	return nil
}
