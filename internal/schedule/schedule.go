// Package schedule evaluates cron expressions (plain or the "every N units"
// shorthand) and yields successive firing times for a Monitor.
package schedule

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the six-field form (seconds first) plus the standard
// macros ("@hourly", "@every 5m"). New also accepts the seven-field extended
// form used throughout this system by dropping its trailing year field.
var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

var shorthandPattern = regexp.MustCompile(`(?i)^every\s+(\d+\s+)?(second|minute|hour)s?$`)

// expandShorthand translates the "every <n>? (second|minute|hour)s?" grammar
// into the canonical seven-field cron form it maps to. The second return
// value reports whether expr matched the shorthand grammar at all.
func expandShorthand(expr string) (string, bool) {
	m := shorthandPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", false
	}

	n := strings.TrimSpace(m[1])
	unit := strings.ToLower(m[2])

	switch {
	case n == "" && unit == "second":
		return "* * * * * * *", true
	case unit == "second":
		return fmt.Sprintf("*/%s * * * * * *", n), true
	case n == "" && unit == "minute":
		return "0 * * * * * *", true
	case unit == "minute":
		return fmt.Sprintf("0 */%s * * * * *", n), true
	case n == "" && unit == "hour":
		return "0 0 * * * * *", true
	case unit == "hour":
		return fmt.Sprintf("0 0 */%s * * * *", n), true
	}
	return "", false
}

// Schedule wraps a parsed cron expression and tracks the next firing time.
type Schedule struct {
	raw     string
	cron    cron.Schedule
	NextRun time.Time
}

// New parses expr (canonical cron or shorthand) and schedules the first
// firing time strictly after now.
func New(expr string) (*Schedule, error) {
	canonical := expr
	if expanded, ok := expandShorthand(expr); ok {
		canonical = expanded
	}

	// The year field is accepted only as "*" and dropped before parsing.
	if fields := strings.Fields(canonical); len(fields) == 7 {
		if fields[6] != "*" {
			return nil, fmt.Errorf("invalid schedule %q: only \"*\" is supported in the year field", expr)
		}
		canonical = strings.Join(fields[:6], " ")
	}

	parsed, err := parser.Parse(canonical)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	s := &Schedule{raw: expr, cron: parsed}
	s.NextRun = s.NextAfter(time.Now())
	return s, nil
}

// NextAfter returns the earliest firing time strictly after t, computed in
// UTC and expressed back in local wall time with microsecond truncation.
func (s *Schedule) NextAfter(t time.Time) time.Time {
	next := s.cron.Next(t.UTC())
	return next.Local().Truncate(time.Microsecond)
}

// Advance moves NextRun forward from its own previous value (not from now),
// so that ticks missed while the supervisor is behind schedule remain
// enumerable rather than being silently collapsed.
func (s *Schedule) Advance() time.Time {
	s.NextRun = s.NextAfter(s.NextRun)
	return s.NextRun
}

// Due reports whether now has reached or passed NextRun.
func (s *Schedule) Due(now time.Time) bool {
	return !now.Before(s.NextRun)
}

// String returns the original (unexpanded) expression, for display commands.
func (s *Schedule) String() string {
	return s.raw
}
