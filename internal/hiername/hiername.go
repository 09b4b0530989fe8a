// Package hiername builds and inspects the slash-joined hierarchical names
// used to correlate log lines with the project/job/event/step that produced
// them (project/job[/event[/step]]).
package hiername

import "strings"

// Separator joins hierarchy segments. Treated as an opaque delimiter, not a
// filesystem path separator — names are never touched by path/filepath.
const Separator = "/"

// Join composes a child name under parent, preserving insertion order.
func Join(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + Separator + child
}

// Basename returns the final segment of a hierarchical name, used to match
// a callback's join label against the basename of earlier callbacks' names.
func Basename(name string) string {
	idx := strings.LastIndex(name, Separator)
	if idx < 0 {
		return name
	}
	return name[idx+1:]
}
