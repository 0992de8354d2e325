// Package engine implements the rule engine's evaluation context and
// the Rule façade (spec.md §5 "External interfaces"), grounded on
// original_source/lib/rule_engine/engine.py's Context/Rule pair and the
// teacher's own "compiled program + execution context" split
// (opal-lang-opal/pkgs/parser and its interpreter).
package engine

import (
	"time"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/ast"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/builtins"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// Resolver resolves a symbol name to a host value, the data-side half
// of a Context, per spec.md §4.3 "Symbols".
type Resolver func(name string) (any, error)

// TypeResolver optionally answers a symbol's static type ahead of
// evaluation, for IsValid's type-checking pass.
type TypeResolver func(name string) (types.DataType, bool)

// AttributeResolver resolves obj.name for a host object obj that isn't
// itself one of the engine's native compound types.
type AttributeResolver func(obj types.Value, name string) (any, error)

// Context carries everything a compiled Rule needs to evaluate: how to
// resolve symbols and attributes, the default timezone for naive
// datetimes, and per-evaluation scratch (regex capture groups),
// matching spec.md §9 "Context".
type Context struct {
	Resolve          Resolver
	ResolveType      TypeResolver
	ResolveAttr      AttributeResolver
	ResolveAttrType  TypeResolver
	DefaultTimezone  *time.Location
	Now              func() time.Time

	// DefaultValue, when non-nil, is returned in place of
	// SymbolResolutionError/AttributeResolutionError, per spec.md §4.5
	// "default_value" and §7's propagation policy ("resolution errors
	// are optionally swallowed into default_value when configured").
	DefaultValue *types.Value

	// DefaultRegexFlags holds Go inline regex flag letters (e.g. "i" for
	// case-insensitive) applied to every pattern compiled by "=~"/"=~~"/
	// "!~"/"!~~", per spec.md §4.5 "regex_flags". Mirrors the
	// DefaultTimezone/Timezone() split below.
	DefaultRegexFlags string

	groups map[string]string
}

// NewContext builds a Context resolving symbols through resolve,
// defaulting the timezone to UTC and the clock to time.Now.
func NewContext(resolve Resolver) *Context {
	return &Context{
		Resolve:         resolve,
		DefaultTimezone: time.UTC,
		Now:             time.Now,
		groups:          map[string]string{},
	}
}

// ContextFromMap builds a Context that resolves symbols against a
// plain map[string]any, coercing each value on lookup, the common case
// for embedding the engine against data already in memory.
func ContextFromMap(data map[string]any) *Context {
	ctx := NewContext(func(name string) (any, error) {
		v, ok := data[name]
		if !ok {
			return nil, errors.NewSymbolResolutionError(name, "context", mapKeys(data))
		}
		return v, nil
	})
	ctx.ResolveType = TypeResolverFromMap(data)
	return ctx
}

// TypeResolverFromMap builds a TypeResolver that coerces each map value
// once to discover its static DataType, used by IsValid ahead of
// evaluation.
func TypeResolverFromMap(data map[string]any) TypeResolver {
	return func(name string) (types.DataType, bool) {
		v, ok := data[name]
		if !ok {
			return types.Undefined, false
		}
		coerced, err := types.CoerceValue(v, time.UTC)
		if err != nil {
			return types.Undefined, false
		}
		return coerced.Type, true
	}
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// ResolveSymbol implements ast.EvalContext.
func (c *Context) ResolveSymbol(name string, isBuiltin bool) (types.Value, error) {
	if isBuiltin {
		if v, ok := builtins.Resolve(name, c.clock()(), c.tz(), c.groups); ok {
			return v, nil
		}
		if c.DefaultValue != nil {
			return *c.DefaultValue, nil
		}
		return types.Value{}, errors.NewSymbolResolutionError(name, "builtin", builtins.Names())
	}
	if c.Resolve == nil {
		if c.DefaultValue != nil {
			return *c.DefaultValue, nil
		}
		return types.Value{}, errors.NewSymbolResolutionError(name, "context", nil)
	}
	raw, err := c.Resolve(name)
	if err != nil {
		if c.DefaultValue != nil {
			return *c.DefaultValue, nil
		}
		return types.Value{}, err
	}
	return types.CoerceValue(raw, c.tz())
}

// ResolveSymbolType implements ast.EvalContext.
func (c *Context) ResolveSymbolType(name string, isBuiltin bool) (types.DataType, error) {
	if isBuiltin {
		if v, ok := builtins.Resolve(name, c.clock()(), c.tz(), c.groups); ok {
			return v.Type, nil
		}
		return types.Undefined, nil
	}
	if c.ResolveType == nil {
		return types.Undefined, nil
	}
	if dt, ok := c.ResolveType(name); ok {
		return dt, nil
	}
	return types.Undefined, nil
}

// ResolveAttribute implements ast.EvalContext. MAPPING values resolve
// attribute access as a string-keyed lookup (so "$f.pi" works without a
// dedicated namespace node); everything else defers to ResolveAttr.
func (c *Context) ResolveAttribute(obj types.Value, name string) (types.Value, error) {
	if obj.Type.Kind == types.MAPPING {
		for i, k := range obj.MapKeys {
			if k.Type.Kind == types.STRING && k.Str == name {
				return obj.MapValues[i], nil
			}
		}
		if c.DefaultValue != nil {
			return *c.DefaultValue, nil
		}
		return types.Value{}, errors.NewAttributeResolutionError(name, mappingStringKeys(obj))
	}
	if c.ResolveAttr == nil {
		if c.DefaultValue != nil {
			return *c.DefaultValue, nil
		}
		return types.Value{}, errors.NewAttributeResolutionError(name, nil)
	}
	raw, err := c.ResolveAttr(obj, name)
	if err != nil {
		if c.DefaultValue != nil {
			return *c.DefaultValue, nil
		}
		return types.Value{}, err
	}
	return types.CoerceValue(raw, c.tz())
}

func mappingStringKeys(v types.Value) []string {
	out := make([]string, 0, len(v.MapKeys))
	for _, k := range v.MapKeys {
		if k.Type.Kind == types.STRING {
			out = append(out, k.Str)
		}
	}
	return out
}

// ResolveAttributeType implements ast.EvalContext.
func (c *Context) ResolveAttributeType(objType types.DataType, name string) (types.DataType, error) {
	if c.ResolveAttrType == nil {
		return types.Undefined, nil
	}
	if dt, ok := c.ResolveAttrType(name); ok {
		return dt, nil
	}
	return types.Undefined, nil
}

// Timezone implements ast.EvalContext.
func (c *Context) Timezone() *time.Location { return c.tz() }

func (c *Context) tz() *time.Location {
	if c.DefaultTimezone != nil {
		return c.DefaultTimezone
	}
	return time.UTC
}

// RegexFlags implements ast.EvalContext.
func (c *Context) RegexFlags() string { return c.DefaultRegexFlags }

func (c *Context) clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}

// RegexGroups implements ast.EvalContext.
func (c *Context) RegexGroups() map[string]string { return c.groups }

// SetRegexGroups implements ast.EvalContext.
func (c *Context) SetRegexGroups(g map[string]string) { c.groups = g }

// WithBinding implements ast.EvalContext, overlaying a single
// comprehension-scoped binding ahead of the context's own resolver.
func (c *Context) WithBinding(name string, value types.Value) ast.EvalContext {
	return &boundContext{parent: c, name: name, value: value}
}

// boundContext overlays one name→Value binding, chaining to parent for
// everything else; nested comprehensions chain boundContexts, giving
// each loop variable lexical scope over its own body.
type boundContext struct {
	parent ast.EvalContext
	name   string
	value  types.Value
}

func (b *boundContext) ResolveSymbol(name string, isBuiltin bool) (types.Value, error) {
	if !isBuiltin && name == b.name {
		return b.value, nil
	}
	return b.parent.ResolveSymbol(name, isBuiltin)
}

func (b *boundContext) ResolveSymbolType(name string, isBuiltin bool) (types.DataType, error) {
	if !isBuiltin && name == b.name {
		return b.value.Type, nil
	}
	return b.parent.ResolveSymbolType(name, isBuiltin)
}

func (b *boundContext) ResolveAttribute(obj types.Value, name string) (types.Value, error) {
	return b.parent.ResolveAttribute(obj, name)
}

func (b *boundContext) ResolveAttributeType(objType types.DataType, name string) (types.DataType, error) {
	return b.parent.ResolveAttributeType(objType, name)
}

func (b *boundContext) Timezone() *time.Location { return b.parent.Timezone() }

func (b *boundContext) RegexFlags() string { return b.parent.RegexFlags() }

func (b *boundContext) RegexGroups() map[string]string { return b.parent.RegexGroups() }

func (b *boundContext) SetRegexGroups(g map[string]string) { b.parent.SetRegexGroups(g) }

func (b *boundContext) WithBinding(name string, value types.Value) ast.EvalContext {
	return &boundContext{parent: b, name: name, value: value}
}
