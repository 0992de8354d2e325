// Package ast defines the rule engine's abstract syntax tree and
// evaluator, per spec.md §3.2/§4.3. Nodes are a closed family behind the
// Node interface; each knows its own static ResultType, how to Evaluate
// against an EvalContext, and how to Reduce (constant-fold) itself.
package ast

import (
	"time"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// EvalContext is the minimal surface the ast package needs from a
// compiled rule's evaluation environment. It is implemented by
// engine.Context; the interface lives here (rather than importing
// engine) to avoid a package cycle, the same separation the teacher
// draws between its ast and interpreter packages.
type EvalContext interface {
	ResolveSymbol(name string, isBuiltin bool) (types.Value, error)
	ResolveSymbolType(name string, isBuiltin bool) (types.DataType, error)
	ResolveAttribute(obj types.Value, name string) (types.Value, error)
	ResolveAttributeType(objType types.DataType, name string) (types.DataType, error)
	Timezone() *time.Location
	// RegexFlags returns Go inline regex flag letters (e.g. "i") applied
	// to every pattern FuzzyComparison compiles, per spec.md §4.5
	// "regex_flags".
	RegexFlags() string
	RegexGroups() map[string]string
	SetRegexGroups(map[string]string)
	// WithBinding returns a derived context in which name resolves to
	// value ahead of the underlying context's own symbols, used to bind a
	// comprehension's loop variable for the scope of its body.
	WithBinding(name string, value types.Value) EvalContext
}

// Node is implemented by every AST node. ResultType is the node's
// static type, computed once at build time; it may be
// types.Undefined when the type can't be known until evaluation
// (e.g. a symbol with no declared type). Reduce constant-folds the
// node and its children; an error means a literal-only subtree failed
// to evaluate during folding, which aborts compilation per spec.md §7.
type Node interface {
	ResultType() types.DataType
	Evaluate(ctx EvalContext) (types.Value, error)
	Reduce() (Node, error)
}

// Literal wraps a constant, already-typed Value, covering Boolean,
// Float, String, Bytes, Datetime, Timedelta and Null literals from
// spec.md §3.2 "Literals".
type Literal struct {
	Value types.Value
}

func (n *Literal) ResultType() types.DataType { return n.Value.Type }

func (n *Literal) Evaluate(EvalContext) (types.Value, error) { return n.Value, nil }

func (n *Literal) Reduce() (Node, error) { return n, nil }

// Symbol resolves a name against the evaluation context (IsBuiltin
// selects the built-in namespace over the rule's input context), per
// spec.md §4.3 "Symbols".
type Symbol struct {
	Name      string
	IsBuiltin bool
}

func (n *Symbol) ResultType() types.DataType {
	return types.Undefined
}

func (n *Symbol) Evaluate(ctx EvalContext) (types.Value, error) {
	return ctx.ResolveSymbol(n.Name, n.IsBuiltin)
}

func (n *Symbol) Reduce() (Node, error) { return n, nil }

// ArrayLiteral, SetLiteral and MappingLiteral hold their element nodes
// unevaluated; Evaluate realises each member and constructs the
// corresponding collection Value, per spec.md §3.2 "Collection literals".
type ArrayLiteral struct {
	Elements []Node
	Typ      types.DataType
}

func (n *ArrayLiteral) ResultType() types.DataType { return n.Typ }

func (n *ArrayLiteral) Evaluate(ctx EvalContext) (types.Value, error) {
	members := make([]types.Value, len(n.Elements))
	for i, el := range n.Elements {
		v, err := el.Evaluate(ctx)
		if err != nil {
			return types.Value{}, err
		}
		members[i] = v
	}
	return types.NewArrayValue(members), nil
}

func (n *ArrayLiteral) Reduce() (Node, error) {
	reduced := make([]Node, len(n.Elements))
	allLiteral := true
	for i, el := range n.Elements {
		r, err := el.Reduce()
		if err != nil {
			return nil, err
		}
		reduced[i] = r
		if _, ok := r.(*Literal); !ok {
			allLiteral = false
		}
	}
	out := &ArrayLiteral{Elements: reduced, Typ: n.Typ}
	if !allLiteral {
		return out, nil
	}
	v, err := out.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

type SetLiteral struct {
	Elements []Node
	Typ      types.DataType
}

func (n *SetLiteral) ResultType() types.DataType { return n.Typ }

func (n *SetLiteral) Evaluate(ctx EvalContext) (types.Value, error) {
	members := make([]types.Value, len(n.Elements))
	for i, el := range n.Elements {
		v, err := el.Evaluate(ctx)
		if err != nil {
			return types.Value{}, err
		}
		members[i] = v
	}
	return types.NewSetValue(dedupe(members)), nil
}

func dedupe(members []types.Value) []types.Value {
	out := make([]types.Value, 0, len(members))
	for _, m := range members {
		found := false
		for _, o := range out {
			if types.StructuralEqual(m, o) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, m)
		}
	}
	return out
}

func (n *SetLiteral) Reduce() (Node, error) {
	reduced := make([]Node, len(n.Elements))
	allLiteral := true
	for i, el := range n.Elements {
		r, err := el.Reduce()
		if err != nil {
			return nil, err
		}
		reduced[i] = r
		if _, ok := r.(*Literal); !ok {
			allLiteral = false
		}
	}
	out := &SetLiteral{Elements: reduced, Typ: n.Typ}
	if !allLiteral {
		return out, nil
	}
	v, err := out.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

type MappingEntry struct {
	Key   Node
	Value Node
}

type MappingLiteral struct {
	Entries []MappingEntry
	Typ     types.DataType
}

func (n *MappingLiteral) ResultType() types.DataType { return n.Typ }

func (n *MappingLiteral) Evaluate(ctx EvalContext) (types.Value, error) {
	keys := make([]types.Value, len(n.Entries))
	values := make([]types.Value, len(n.Entries))
	for i, e := range n.Entries {
		k, err := e.Key.Evaluate(ctx)
		if err != nil {
			return types.Value{}, err
		}
		v, err := e.Value.Evaluate(ctx)
		if err != nil {
			return types.Value{}, err
		}
		keys[i] = k
		values[i] = v
	}
	v, err := types.NewMappingValue(keys, values)
	if err != nil {
		return types.Value{}, errors.New(errors.KindEvaluationError, err.Error())
	}
	return v, nil
}

func (n *MappingLiteral) Reduce() (Node, error) {
	reduced := make([]MappingEntry, len(n.Entries))
	allLiteral := true
	for i, e := range n.Entries {
		rk, err := e.Key.Reduce()
		if err != nil {
			return nil, err
		}
		rv, err := e.Value.Reduce()
		if err != nil {
			return nil, err
		}
		reduced[i] = MappingEntry{Key: rk, Value: rv}
		if _, ok := rk.(*Literal); !ok {
			allLiteral = false
		}
		if _, ok := rv.(*Literal); !ok {
			allLiteral = false
		}
	}
	out := &MappingLiteral{Entries: reduced, Typ: n.Typ}
	if !allLiteral {
		return out, nil
	}
	v, err := out.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

// Statement is the outermost node of a compiled rule, per spec.md §3.2
// "Statement". It has no evaluation behaviour of its own beyond
// delegating to its body; it exists so the builder and Rule façade have
// a stable root type to hang position/type metadata off of.
type Statement struct {
	Body Node
}

func (n *Statement) ResultType() types.DataType { return n.Body.ResultType() }

func (n *Statement) Evaluate(ctx EvalContext) (types.Value, error) { return n.Body.Evaluate(ctx) }

func (n *Statement) Reduce() (Node, error) {
	body, err := n.Body.Reduce()
	if err != nil {
		return nil, err
	}
	return &Statement{Body: body}, nil
}
