package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/engine"
)

// loadContextFile reads a JSON object from path and builds a Context
// resolving symbols against its top-level keys, then applies tz and
// regexIgnoreCase (the "--tz"/"--regex-ignore-case" flags) on top,
// mapping onto engine.Context's DefaultTimezone/DefaultRegexFlags per
// spec.md §4.5. encoding/json is used directly here: this is a
// one-shot boundary decode of CLI input, not a hot path, so stdlib is
// the idiomatic default even in this dependency-heavy module (see
// DESIGN.md).
func loadContextFile(path, tz string, regexIgnoreCase bool) (*engine.Context, error) {
	var ctx *engine.Context
	if path == "" {
		ctx = engine.ContextFromMap(map[string]any{})
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		ctx = engine.ContextFromMap(data)
	}
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
		ctx.DefaultTimezone = loc
	}
	if regexIgnoreCase {
		ctx.DefaultRegexFlags = "i"
	}
	return ctx, nil
}

// loadRuleSource reads source from a file path, or treats arg as
// literal rule text when no file by that name exists.
func loadRuleSource(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		raw, err := os.ReadFile(arg)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return arg, nil
}
