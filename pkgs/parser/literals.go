package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// datetimeLayouts are tried in order, following
// original_source/lib/rule_engine/ast.py's DatetimeExpression which
// accepts an RFC 3339-ish timestamp with an optional offset, and a
// bare date.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDatetimeLiteral parses the body of a d'...' literal, per
// spec.md §4.1 "Datetime literals".
func parseDatetimeLiteral(raw string) (types.Value, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return types.NewDatetime(t), nil
		}
	}
	return types.Value{}, fmt.Errorf("invalid datetime literal: %q", raw)
}

// parseTimedeltaLiteral parses the body of a t'...' literal. Two forms
// are accepted: a bare signed number of seconds (matching the Python
// original's float-seconds constructor), and a Go-style duration string
// ("1h30m") for ergonomic authoring.
func parseTimedeltaLiteral(raw string) (types.Value, error) {
	s := strings.TrimSpace(raw)
	if d, err := time.ParseDuration(s); err == nil {
		return types.NewTimedelta(d), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return types.NewTimedelta(time.Duration(f * float64(time.Second))), nil
	}
	return types.Value{}, fmt.Errorf("invalid timedelta literal: %q", raw)
}
