package ast

import (
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// TypeCheck walks stmt's body, inferring each node's static type
// against tctx's symbol/attribute type resolvers and raising a compile
// error the first time two operands are both concretely typed and
// incompatible, per spec.md §4.2 step 1 ("compatible_types") and §7
// ("the evaluator never silently returns a wrong type"). A node whose
// static type can't be known (types.UNDEFINED) is permitted through
// unchecked, matching the original's permissive dynamic-typing
// tolerance — this is a structural sanity pass over what's known
// ahead of evaluation, not full type inference.
func TypeCheck(stmt *Statement, tctx EvalContext) error {
	_, err := staticType(stmt.Body, tctx)
	return err
}

func staticType(n Node, tctx EvalContext) (types.DataType, error) {
	switch node := n.(type) {
	case *Literal:
		return node.Value.Type, nil
	case *Symbol:
		return tctx.ResolveSymbolType(node.Name, node.IsBuiltin)
	case *ArrayLiteral:
		return checkCollection(node.Elements, node.Typ.ValueType, tctx)
	case *SetLiteral:
		return checkCollection(node.Elements, node.Typ.ValueType, tctx)
	case *MappingLiteral:
		for _, e := range node.Entries {
			if _, err := staticType(e.Key, tctx); err != nil {
				return types.Undefined, err
			}
			if _, err := staticType(e.Value, tctx); err != nil {
				return types.Undefined, err
			}
		}
		return node.Typ, nil
	case *GetAttribute:
		objType, err := staticType(node.Object, tctx)
		if err != nil {
			return types.Undefined, err
		}
		return tctx.ResolveAttributeType(objType, node.Name)
	case *GetItem:
		if _, err := staticType(node.Object, tctx); err != nil {
			return types.Undefined, err
		}
		if _, err := staticType(node.Index, tctx); err != nil {
			return types.Undefined, err
		}
		return node.Typ, nil
	case *GetSlice:
		if _, err := staticType(node.Object, tctx); err != nil {
			return types.Undefined, err
		}
		if node.Start != nil {
			if _, err := staticType(node.Start, tctx); err != nil {
				return types.Undefined, err
			}
		}
		if node.Stop != nil {
			if _, err := staticType(node.Stop, tctx); err != nil {
				return types.Undefined, err
			}
		}
		return node.Typ, nil
	case *Call:
		calleeType, err := staticType(node.Callee, tctx)
		if err != nil {
			return types.Undefined, err
		}
		argTypes := make([]types.DataType, len(node.Arguments))
		for i, a := range node.Arguments {
			at, err := staticType(a, tctx)
			if err != nil {
				return types.Undefined, err
			}
			argTypes[i] = at
		}
		if calleeType.Kind == types.FUNCTION {
			if err := checkStaticCallArguments(calleeType, argTypes); err != nil {
				return types.Undefined, err
			}
			if calleeType.ReturnType != nil {
				return *calleeType.ReturnType, nil
			}
		}
		return node.Typ, nil
	case *Unary:
		operandType, err := staticType(node.Operand, tctx)
		if err != nil {
			return types.Undefined, err
		}
		if node.Op == UnaryNegate && operandType.Kind != types.UNDEFINED && operandType.Kind != types.FLOAT {
			return types.Undefined, errors.Newf(errors.KindEvaluationError, "unary '-' requires a float operand, got %s", operandType.Kind)
		}
		return node.ResultType(), nil
	case *Arithmetic:
		if err := checkBinaryRealNumber(node.Left, node.Right, tctx, "arithmetic"); err != nil {
			return types.Undefined, err
		}
		return node.ResultType(), nil
	case *Bitwise:
		if err := checkBinaryRealNumber(node.Left, node.Right, tctx, "bitwise"); err != nil {
			return types.Undefined, err
		}
		return node.ResultType(), nil
	case *Comparison:
		if _, err := staticType(node.Left, tctx); err != nil {
			return types.Undefined, err
		}
		if _, err := staticType(node.Right, tctx); err != nil {
			return types.Undefined, err
		}
		return node.ResultType(), nil
	case *ArithmeticComparison:
		if err := checkBinaryRealNumber(node.Left, node.Right, tctx, "comparison"); err != nil {
			return types.Undefined, err
		}
		return node.ResultType(), nil
	case *FuzzyComparison:
		lt, err := staticType(node.Left, tctx)
		if err != nil {
			return types.Undefined, err
		}
		pt, err := staticType(node.Pattern, tctx)
		if err != nil {
			return types.Undefined, err
		}
		if lt.Kind != types.UNDEFINED && lt.Kind != types.STRING {
			return types.Undefined, errors.Newf(errors.KindEvaluationError, "fuzzy comparison operands must be strings, got %s", lt.Kind)
		}
		if pt.Kind != types.UNDEFINED && pt.Kind != types.STRING {
			return types.Undefined, errors.Newf(errors.KindEvaluationError, "fuzzy comparison operands must be strings, got %s", pt.Kind)
		}
		return node.ResultType(), nil
	case *Logic:
		if _, err := staticType(node.Left, tctx); err != nil {
			return types.Undefined, err
		}
		if _, err := staticType(node.Right, tctx); err != nil {
			return types.Undefined, err
		}
		return node.ResultType(), nil
	case *Contains:
		if _, err := staticType(node.Needle, tctx); err != nil {
			return types.Undefined, err
		}
		if _, err := staticType(node.Haystack, tctx); err != nil {
			return types.Undefined, err
		}
		return node.ResultType(), nil
	case *Ternary:
		if _, err := staticType(node.Cond, tctx); err != nil {
			return types.Undefined, err
		}
		thenType, err := staticType(node.Then, tctx)
		if err != nil {
			return types.Undefined, err
		}
		elseType, err := staticType(node.Else, tctx)
		if err != nil {
			return types.Undefined, err
		}
		if thenType.Kind != types.UNDEFINED && elseType.Kind != types.UNDEFINED && !types.IsCompatible(thenType, elseType) {
			return types.Undefined, errors.Newf(errors.KindEvaluationError, "ternary branches have incompatible types %s and %s", thenType.Kind, elseType.Kind)
		}
		return node.ResultType(), nil
	case *Comprehension:
		if _, err := staticType(node.Iterable, tctx); err != nil {
			return types.Undefined, err
		}
		scoped := tctx.WithBinding(node.Var, types.Value{Type: types.Undefined})
		if node.Condition != nil {
			if _, err := staticType(node.Condition, scoped); err != nil {
				return types.Undefined, err
			}
		}
		if node.KeyExpr != nil {
			if _, err := staticType(node.KeyExpr, scoped); err != nil {
				return types.Undefined, err
			}
		}
		if _, err := staticType(node.ValueExpr, scoped); err != nil {
			return types.Undefined, err
		}
		return node.ResultType(), nil
	case *Statement:
		return staticType(node.Body, tctx)
	default:
		return types.Undefined, nil
	}
}

func checkCollection(elements []Node, declared *types.DataType, tctx EvalContext) (types.DataType, error) {
	for _, el := range elements {
		elType, err := staticType(el, tctx)
		if err != nil {
			return types.Undefined, err
		}
		if declared != nil && elType.Kind != types.UNDEFINED && declared.Kind != types.UNDEFINED && !types.IsCompatible(elType, *declared) {
			return types.Undefined, errors.Newf(errors.KindEvaluationError, "collection element is %s, expected %s", elType.Kind, declared.Kind)
		}
	}
	if declared != nil {
		return *declared, nil
	}
	return types.Undefined, nil
}

func checkBinaryRealNumber(left, right Node, tctx EvalContext, what string) error {
	lt, err := staticType(left, tctx)
	if err != nil {
		return err
	}
	rt, err := staticType(right, tctx)
	if err != nil {
		return err
	}
	if lt.Kind != types.UNDEFINED && lt.Kind != types.FLOAT {
		return errors.Newf(errors.KindEvaluationError, "%s operands must be real numbers, got %s", what, lt.Kind)
	}
	if rt.Kind != types.UNDEFINED && rt.Kind != types.FLOAT {
		return errors.Newf(errors.KindEvaluationError, "%s operands must be real numbers, got %s", what, rt.Kind)
	}
	return nil
}

// checkStaticCallArguments is staticType's ahead-of-evaluation
// counterpart to checkCallArguments in access.go: it validates arity
// and argument types when both the signature and the argument's static
// type are concretely known, tolerating types.UNDEFINED on either side.
func checkStaticCallArguments(sig types.DataType, argTypes []types.DataType) error {
	if sig.HasMinArgs && len(argTypes) < sig.MinArguments {
		return errors.Newf(errors.KindEvaluationError, "call expects at least %d argument(s), got %d", sig.MinArguments, len(argTypes))
	}
	if !sig.HasArgTypes || len(sig.ArgumentTypes) == 0 {
		return nil
	}
	for i, at := range argTypes {
		if at.Kind == types.UNDEFINED {
			continue
		}
		want := sig.ArgumentTypes[len(sig.ArgumentTypes)-1]
		if i < len(sig.ArgumentTypes) {
			want = sig.ArgumentTypes[i]
		}
		if !types.IsCompatible(at, want) {
			return errors.Newf(errors.KindEvaluationError, "argument %d is %s, expected %s", i, at.Kind, want.Kind)
		}
	}
	return nil
}
