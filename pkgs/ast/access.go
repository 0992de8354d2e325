package ast

import (
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// GetAttribute implements spec.md §4.3 "Attribute access": obj.Name, or
// obj&.Name for the safe variant that yields null instead of erroring
// when obj is null.
type GetAttribute struct {
	Object Node
	Name   string
	Safe   bool
	Typ    types.DataType
}

func (n *GetAttribute) ResultType() types.DataType { return n.Typ }

func (n *GetAttribute) Evaluate(ctx EvalContext) (types.Value, error) {
	obj, err := n.Object.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if n.Safe && obj.Type.Kind == types.NULL {
		return types.NewNull(), nil
	}
	return ctx.ResolveAttribute(obj, n.Name)
}

func (n *GetAttribute) Reduce() (Node, error) {
	obj, err := n.Object.Reduce()
	if err != nil {
		return nil, err
	}
	return &GetAttribute{Object: obj, Name: n.Name, Safe: n.Safe, Typ: n.Typ}, nil
}

// GetItem implements spec.md §4.3 "Item access": obj[index], or
// obj&[index] for the safe variant.
type GetItem struct {
	Object Node
	Index  Node
	Safe   bool
	Typ    types.DataType
}

func (n *GetItem) ResultType() types.DataType { return n.Typ }

func (n *GetItem) Evaluate(ctx EvalContext) (types.Value, error) {
	obj, err := n.Object.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if n.Safe && obj.Type.Kind == types.NULL {
		return types.NewNull(), nil
	}
	idx, err := n.Index.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	return itemAt(obj, idx)
}

func itemAt(obj, idx types.Value) (types.Value, error) {
	switch obj.Type.Kind {
	case types.ARRAY:
		if !idx.IsRealNumber() {
			return types.Value{}, errors.New(errors.KindEvaluationError, "array index must be a real number")
		}
		i := idx.Num.IntPart()
		n := int64(len(obj.Arr))
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return types.Value{}, errors.NewLookupError(i)
		}
		return obj.Arr[i], nil
	case types.MAPPING:
		for i, k := range obj.MapKeys {
			if types.StructuralEqual(k, idx) {
				return obj.MapValues[i], nil
			}
		}
		return types.Value{}, errors.NewLookupError(types.Repr(idx))
	case types.STRING:
		if !idx.IsRealNumber() {
			return types.Value{}, errors.New(errors.KindEvaluationError, "string index must be a real number")
		}
		runes := []rune(obj.Str)
		i := idx.Num.IntPart()
		n := int64(len(runes))
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return types.Value{}, errors.NewLookupError(i)
		}
		return types.NewString(string(runes[i])), nil
	default:
		return types.Value{}, errors.New(errors.KindEvaluationError, "data type "+obj.Type.Kind.String()+" does not support item access")
	}
}

func (n *GetItem) Reduce() (Node, error) {
	obj, err := n.Object.Reduce()
	if err != nil {
		return nil, err
	}
	idx, err := n.Index.Reduce()
	if err != nil {
		return nil, err
	}
	out := &GetItem{Object: obj, Index: idx, Safe: n.Safe, Typ: n.Typ}
	if _, ok := out.Object.(*Literal); !ok {
		return out, nil
	}
	if _, ok := out.Index.(*Literal); !ok {
		return out, nil
	}
	v, err := out.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

// GetSlice implements spec.md §4.3 "Slicing": obj[start:stop], applied
// to ARRAY and STRING values. Start/Stop are nil for an omitted bound.
type GetSlice struct {
	Object Node
	Start  Node
	Stop   Node
	Safe   bool
	Typ    types.DataType
}

func (n *GetSlice) ResultType() types.DataType { return n.Typ }

func (n *GetSlice) Evaluate(ctx EvalContext) (types.Value, error) {
	obj, err := n.Object.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if n.Safe && obj.Type.Kind == types.NULL {
		return types.NewNull(), nil
	}
	var length int
	switch obj.Type.Kind {
	case types.ARRAY:
		length = len(obj.Arr)
	case types.STRING:
		length = len([]rune(obj.Str))
	default:
		return types.Value{}, errors.New(errors.KindEvaluationError, "data type "+obj.Type.Kind.String()+" does not support slicing")
	}
	start, stop, err := resolveSliceBounds(ctx, n.Start, n.Stop, length)
	if err != nil {
		return types.Value{}, err
	}
	if obj.Type.Kind == types.ARRAY {
		return types.NewArrayValue(append([]types.Value{}, obj.Arr[start:stop]...)), nil
	}
	return types.NewString(string([]rune(obj.Str)[start:stop])), nil
}

func resolveSliceBounds(ctx EvalContext, startNode, stopNode Node, length int) (int, int, error) {
	start, stop := 0, length
	if startNode != nil {
		v, err := startNode.Evaluate(ctx)
		if err != nil {
			return 0, 0, err
		}
		start = clampIndex(v.Num.IntPart(), length)
	}
	if stopNode != nil {
		v, err := stopNode.Evaluate(ctx)
		if err != nil {
			return 0, 0, err
		}
		stop = clampIndex(v.Num.IntPart(), length)
	}
	if stop < start {
		stop = start
	}
	return start, stop, nil
}

func clampIndex(i int64, length int) int {
	if i < 0 {
		i += int64(length)
	}
	if i < 0 {
		return 0
	}
	if i > int64(length) {
		return length
	}
	return int(i)
}

func (n *GetSlice) Reduce() (Node, error) {
	obj, err := n.Object.Reduce()
	if err != nil {
		return nil, err
	}
	out := &GetSlice{Object: obj, Safe: n.Safe, Typ: n.Typ}
	if n.Start != nil {
		out.Start, err = n.Start.Reduce()
		if err != nil {
			return nil, err
		}
	}
	if n.Stop != nil {
		out.Stop, err = n.Stop.Reduce()
		if err != nil {
			return nil, err
		}
	}
	if !isLiteralOrNil(out.Object) || !isLiteralOrNil(out.Start) || !isLiteralOrNil(out.Stop) {
		return out, nil
	}
	v, err := out.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

func isLiteralOrNil(n Node) bool {
	if n == nil {
		return true
	}
	_, ok := n.(*Literal)
	return ok
}

// Call implements spec.md §4.3 "Function calls": a FUNCTION-typed value
// invoked with argument expressions, resolved through ctx.
type Call struct {
	Callee    Node
	Arguments []Node
	Typ       types.DataType
}

func (n *Call) ResultType() types.DataType { return n.Typ }

func (n *Call) Evaluate(ctx EvalContext) (types.Value, error) {
	callee, err := n.Callee.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if callee.Type.Kind != types.FUNCTION || callee.Func == nil {
		return types.Value{}, errors.New(errors.KindEvaluationError, "value is not callable")
	}
	args := make([]types.Value, len(n.Arguments))
	for i, a := range n.Arguments {
		v, err := a.Evaluate(ctx)
		if err != nil {
			return types.Value{}, err
		}
		args[i] = v
	}
	sig := callee.Func.Type
	if err := checkCallArguments(callee.Func.Name, sig, args); err != nil {
		return types.Value{}, err
	}
	v, err := callee.Func.Call(args)
	if err != nil {
		return types.Value{}, errors.NewFunctionCallError(callee.Func.Name, err)
	}
	if sig.ReturnType != nil && !types.IsCompatible(v.Type, *sig.ReturnType) {
		return types.Value{}, errors.NewFunctionCallError(callee.Func.Name,
			errors.Newf(errors.KindEvaluationError, "returned %s, expected %s", v.Type.Kind, sig.ReturnType.Kind))
	}
	return v, nil
}

// checkCallArguments validates a call's argument count against
// sig.MinArguments and each argument's type against the corresponding
// declared type, per spec.md §4.3 "Function call". No upper bound is
// placed on the argument count: arguments past len(sig.ArgumentTypes)
// (variadic tail) are checked against the signature's last declared
// type, if any.
func checkCallArguments(name string, sig types.DataType, args []types.Value) error {
	if sig.HasMinArgs && len(args) < sig.MinArguments {
		return errors.NewFunctionCallError(name,
			errors.Newf(errors.KindEvaluationError, "expects at least %d argument(s), got %d", sig.MinArguments, len(args)))
	}
	if !sig.HasArgTypes || len(sig.ArgumentTypes) == 0 {
		return nil
	}
	for i, a := range args {
		want := sig.ArgumentTypes[len(sig.ArgumentTypes)-1]
		if i < len(sig.ArgumentTypes) {
			want = sig.ArgumentTypes[i]
		}
		if !types.IsCompatible(a.Type, want) {
			return errors.NewFunctionCallError(name,
				errors.Newf(errors.KindEvaluationError, "argument %d is %s, expected %s", i, a.Type.Kind, want.Kind))
		}
	}
	return nil
}

func (n *Call) Reduce() (Node, error) {
	args := make([]Node, len(n.Arguments))
	for i, a := range n.Arguments {
		r, err := a.Reduce()
		if err != nil {
			return nil, err
		}
		args[i] = r
	}
	callee, err := n.Callee.Reduce()
	if err != nil {
		return nil, err
	}
	return &Call{Callee: callee, Arguments: args, Typ: n.Typ}, nil
}
