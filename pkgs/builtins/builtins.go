// Package builtins implements the rule engine's built-in namespace:
// constants and functions reachable only through a "$"-prefixed symbol,
// per spec.md §4.3 "Symbols" and §9 "Built-ins". Grounded on
// original_source/lib/rule_engine/engine.py's builtin Context (the
// "$f"/"$d" constant tables and the resolver-free function registry).
package builtins

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	engineerrors "github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// piDecimal and eDecimal are fixed to the precision decimal.Decimal's
// float64 constructor preserves; callers needing more digits should
// supply their own constant via the evaluation context instead.
var (
	piDecimal = decimal.NewFromFloat(3.14159265358979323846)
	eDecimal  = decimal.NewFromFloat(2.71828182845904523536)
)

// FConstants builds the "$f" namespace: floating point constants,
// resolved as attribute access on a MAPPING value (e.g. "$f.pi").
func FConstants() types.Value {
	v, err := types.NewMappingValue(
		[]types.Value{types.NewString("pi"), types.NewString("e")},
		[]types.Value{types.NewFloat(piDecimal), types.NewFloat(eDecimal)},
	)
	if err != nil {
		panic(err) // unreachable: keys/values are fixed and well-typed
	}
	return v
}

// DConstants builds the "$d" namespace: the current moment and the
// start of its day in tz, resolved fresh on every evaluation so
// "$d.now"/"$d.today" reflect the time of evaluation, not compilation.
func DConstants(now time.Time, tz *time.Location) types.Value {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tz)
	v, err := types.NewMappingValue(
		[]types.Value{types.NewString("now"), types.NewString("today")},
		[]types.Value{types.NewDatetime(now), types.NewDatetime(today)},
	)
	if err != nil {
		panic(err)
	}
	return v
}

// ReGroupsValue exposes the capture groups set by the most recent "=~~"
// or "!~~" fuzzy match as "$re_groups", a MAPPING<STRING, STRING>.
func ReGroupsValue(groups map[string]string) types.Value {
	keys := make([]types.Value, 0, len(groups))
	values := make([]types.Value, 0, len(groups))
	for k, v := range groups {
		keys = append(keys, types.NewString(k))
		values = append(values, types.NewString(v))
	}
	v, err := types.NewMappingValue(keys, values)
	if err != nil {
		panic(err)
	}
	return v
}

// Resolve looks up a "$"-prefixed builtin symbol by its full name
// (including the leading "$"). now/tz/groups parameterise the
// evaluation-time builtins ("$d", "$re_groups").
func Resolve(name string, now time.Time, tz *time.Location, groups map[string]string) (types.Value, bool) {
	switch name {
	case "$f":
		return FConstants(), true
	case "$d":
		return DConstants(now, tz), true
	case "$re_groups":
		return ReGroupsValue(groups), true
	}
	if fn, ok := functionTable[name]; ok {
		return types.NewFunction(fn), true
	}
	return types.Value{}, false
}

// Names lists every resolvable builtin symbol name, used to build
// "did you mean" suggestions for an unresolved "$"-prefixed symbol.
func Names() []string {
	names := []string{"$f", "$d", "$re_groups"}
	for name := range functionTable {
		names = append(names, name)
	}
	return names
}

var functionTable = map[string]*types.FunctionValue{
	"$any":             {Name: "$any", Type: higherOrderType(types.Boolean), Call: callAny},
	"$all":             {Name: "$all", Type: higherOrderType(types.Boolean), Call: callAll},
	"$sum":             {Name: "$sum", Type: types.NewFunction(types.Float, []types.DataType{types.Undefined}, true, 1, true), Call: callSum},
	"$map":             {Name: "$map", Type: higherOrderType(types.NewArray(types.Undefined, true)), Call: callMap},
	"$filter":          {Name: "$filter", Type: higherOrderType(types.NewArray(types.Undefined, true)), Call: callFilter},
	"$parse_datetime":  {Name: "$parse_datetime", Type: types.NewFunction(types.Datetime, []types.DataType{types.String}, true, 1, true), Call: callParseDatetime},
	"$parse_timedelta": {Name: "$parse_timedelta", Type: types.NewFunction(types.Timedelta, []types.DataType{types.String}, true, 1, true), Call: callParseTimedelta},
}

func higherOrderType(ret types.DataType) types.DataType {
	return types.NewFunction(ret, []types.DataType{types.Undefined, types.Undefined}, true, 2, true)
}

func iterableMembers(v types.Value) ([]types.Value, error) {
	switch v.Type.Kind {
	case types.ARRAY:
		return v.Arr, nil
	case types.SET:
		return v.SetMembers, nil
	default:
		return nil, fmt.Errorf("expected an array or set, got %s", v.Type.Kind)
	}
}

func callAny(args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return types.Value{}, fmt.Errorf("$any expects 2 arguments, got %d", len(args))
	}
	members, err := iterableMembers(args[0])
	if err != nil {
		return types.Value{}, err
	}
	if args[1].Func == nil {
		return types.Value{}, fmt.Errorf("$any's second argument must be a function")
	}
	for _, m := range members {
		v, err := args[1].Func.Call([]types.Value{m})
		if err != nil {
			return types.Value{}, err
		}
		if v.IsTruthy() {
			return types.NewBool(true), nil
		}
	}
	return types.NewBool(false), nil
}

func callAll(args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return types.Value{}, fmt.Errorf("$all expects 2 arguments, got %d", len(args))
	}
	members, err := iterableMembers(args[0])
	if err != nil {
		return types.Value{}, err
	}
	if args[1].Func == nil {
		return types.Value{}, fmt.Errorf("$all's second argument must be a function")
	}
	for _, m := range members {
		v, err := args[1].Func.Call([]types.Value{m})
		if err != nil {
			return types.Value{}, err
		}
		if !v.IsTruthy() {
			return types.NewBool(false), nil
		}
	}
	return types.NewBool(true), nil
}

func callSum(args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return types.Value{}, fmt.Errorf("$sum expects 1 argument, got %d", len(args))
	}
	members, err := iterableMembers(args[0])
	if err != nil {
		return types.Value{}, err
	}
	total := decimal.Zero
	for _, m := range members {
		if !m.IsRealNumber() {
			return types.Value{}, fmt.Errorf("$sum requires every member to be a real number")
		}
		total = total.Add(m.Num)
	}
	return types.NewFloat(total), nil
}

func callMap(args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return types.Value{}, fmt.Errorf("$map expects 2 arguments, got %d", len(args))
	}
	members, err := iterableMembers(args[0])
	if err != nil {
		return types.Value{}, err
	}
	if args[1].Func == nil {
		return types.Value{}, fmt.Errorf("$map's second argument must be a function")
	}
	out := make([]types.Value, len(members))
	for i, m := range members {
		v, err := args[1].Func.Call([]types.Value{m})
		if err != nil {
			return types.Value{}, err
		}
		out[i] = v
	}
	return types.NewArrayValue(out), nil
}

func callFilter(args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return types.Value{}, fmt.Errorf("$filter expects 2 arguments, got %d", len(args))
	}
	members, err := iterableMembers(args[0])
	if err != nil {
		return types.Value{}, err
	}
	if args[1].Func == nil {
		return types.Value{}, fmt.Errorf("$filter's second argument must be a function")
	}
	var out []types.Value
	for _, m := range members {
		v, err := args[1].Func.Call([]types.Value{m})
		if err != nil {
			return types.Value{}, err
		}
		if v.IsTruthy() {
			out = append(out, m)
		}
	}
	return types.NewArrayValue(out), nil
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func callParseDatetime(args []types.Value) (types.Value, error) {
	if len(args) != 1 || args[0].Type.Kind != types.STRING {
		return types.Value{}, fmt.Errorf("$parse_datetime expects a single string argument")
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, args[0].Str); err == nil {
			return types.NewDatetime(t), nil
		}
	}
	return types.Value{}, engineerrors.New(engineerrors.KindDatetimeSyntaxError, "invalid datetime: "+args[0].Str)
}

func callParseTimedelta(args []types.Value) (types.Value, error) {
	if len(args) != 1 || args[0].Type.Kind != types.STRING {
		return types.Value{}, fmt.Errorf("$parse_timedelta expects a single string argument")
	}
	s := strings.TrimSpace(args[0].Str)
	if d, err := time.ParseDuration(s); err == nil {
		return types.NewTimedelta(d), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return types.NewTimedelta(time.Duration(f * float64(time.Second))), nil
	}
	return types.Value{}, engineerrors.New(engineerrors.KindTimedeltaSyntaxError, "invalid timedelta: "+args[0].Str)
}
