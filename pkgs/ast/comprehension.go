package ast

import (
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// ComprehensionKind selects the collection a Comprehension produces, per
// spec.md §4.3 "Comprehension": "[... for x in y if z]" builds an ARRAY,
// "{... for x in y if z}" a SET, and "{k: v for x in y if z}" a MAPPING.
type ComprehensionKind int

const (
	ComprehensionArray ComprehensionKind = iota
	ComprehensionSet
	ComprehensionMapping
)

// Comprehension is the single AST node for all three comprehension
// forms. KeyExpr is non-nil only for ComprehensionMapping.
type Comprehension struct {
	Kind      ComprehensionKind
	Var       string
	Iterable  Node
	Condition Node // nil if there is no "if" clause
	KeyExpr   Node // nil unless Kind == ComprehensionMapping
	ValueExpr Node
	Typ       types.DataType
}

func (n *Comprehension) ResultType() types.DataType { return n.Typ }

func iterate(v types.Value) ([]types.Value, error) {
	switch v.Type.Kind {
	case types.ARRAY:
		return v.Arr, nil
	case types.SET:
		return v.SetMembers, nil
	case types.MAPPING:
		return v.MapKeys, nil
	case types.STRING:
		runes := []rune(v.Str)
		out := make([]types.Value, len(runes))
		for i, r := range runes {
			out[i] = types.NewString(string(r))
		}
		return out, nil
	default:
		return nil, errors.New(errors.KindEvaluationError, "data type "+v.Type.Kind.String()+" is not iterable")
	}
}

func (n *Comprehension) Evaluate(ctx EvalContext) (types.Value, error) {
	iterVal, err := n.Iterable.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	members, err := iterate(iterVal)
	if err != nil {
		return types.Value{}, err
	}

	var values []types.Value
	var keys []types.Value
	for _, m := range members {
		scoped := ctx.WithBinding(n.Var, m)
		if n.Condition != nil {
			c, err := n.Condition.Evaluate(scoped)
			if err != nil {
				return types.Value{}, err
			}
			if !c.IsTruthy() {
				continue
			}
		}
		v, err := n.ValueExpr.Evaluate(scoped)
		if err != nil {
			return types.Value{}, err
		}
		if n.Kind == ComprehensionMapping {
			k, err := n.KeyExpr.Evaluate(scoped)
			if err != nil {
				return types.Value{}, err
			}
			keys = append(keys, k)
		}
		values = append(values, v)
	}

	switch n.Kind {
	case ComprehensionArray:
		return types.NewArrayValue(values), nil
	case ComprehensionSet:
		return types.NewSetValue(dedupe(values)), nil
	case ComprehensionMapping:
		return types.NewMappingValue(keys, values)
	default:
		return types.Value{}, errors.New(errors.KindEvaluationError, "unknown comprehension kind")
	}
}

func (n *Comprehension) Reduce() (Node, error) {
	iterable, err := n.Iterable.Reduce()
	if err != nil {
		return nil, err
	}
	valueExpr, err := n.ValueExpr.Reduce()
	if err != nil {
		return nil, err
	}
	out := &Comprehension{
		Kind:      n.Kind,
		Var:       n.Var,
		Iterable:  iterable,
		ValueExpr: valueExpr,
		Typ:       n.Typ,
	}
	if n.Condition != nil {
		out.Condition, err = n.Condition.Reduce()
		if err != nil {
			return nil, err
		}
	}
	if n.KeyExpr != nil {
		out.KeyExpr, err = n.KeyExpr.Reduce()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
