package ast

import (
	"math"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/errors"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// UnaryOp identifies a unary operator, per spec.md §4.3 "Unary".
type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNegate
)

type Unary struct {
	Op      UnaryOp
	Operand Node
}

func (n *Unary) ResultType() types.DataType {
	if n.Op == UnaryNot {
		return types.Boolean
	}
	return types.Float
}

func (n *Unary) Evaluate(ctx EvalContext) (types.Value, error) {
	v, err := n.Operand.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	switch n.Op {
	case UnaryNot:
		return types.NewBool(!v.IsTruthy()), nil
	case UnaryNegate:
		if v.Type.Kind != types.FLOAT {
			return types.Value{}, errors.New(errors.KindEvaluationError, "unary '-' requires a float operand")
		}
		if v.NaN {
			return types.NewNaN(), nil
		}
		if v.Inf != 0 {
			return types.NewInf(-v.Inf), nil
		}
		return types.NewFloat(v.Num.Neg()), nil
	}
	return types.Value{}, errors.New(errors.KindEvaluationError, "unknown unary operator")
}

func (n *Unary) Reduce() (Node, error) {
	operand, err := n.Operand.Reduce()
	if err != nil {
		return nil, err
	}
	return foldUnary(&Unary{Op: n.Op, Operand: operand})
}

func foldUnary(n *Unary) (Node, error) {
	if _, ok := n.Operand.(*Literal); !ok {
		return n, nil
	}
	v, err := n.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

// ArithmeticOp identifies a binary arithmetic operator, spec.md §4.3
// "Arithmetic": operands must both be FLOAT.
type ArithmeticOp int

const (
	ArithAdd ArithmeticOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithFloorDiv
	ArithMod
	ArithPow
)

type Arithmetic struct {
	Op    ArithmeticOp
	Left  Node
	Right Node
}

func (n *Arithmetic) ResultType() types.DataType { return types.Float }

func (n *Arithmetic) Evaluate(ctx EvalContext) (types.Value, error) {
	l, err := n.Left.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	r, err := n.Right.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if !l.IsRealNumber() || !r.IsRealNumber() {
		return types.Value{}, errors.New(errors.KindEvaluationError, "arithmetic operands must be real numbers")
	}
	switch n.Op {
	case ArithAdd:
		return types.NewFloat(l.Num.Add(r.Num)), nil
	case ArithSub:
		return types.NewFloat(l.Num.Sub(r.Num)), nil
	case ArithMul:
		return types.NewFloat(l.Num.Mul(r.Num)), nil
	case ArithDiv:
		if r.Num.IsZero() {
			return types.Value{}, errors.New(errors.KindEvaluationError, "division by zero")
		}
		return types.NewFloat(l.Num.Div(r.Num)), nil
	case ArithFloorDiv:
		if r.Num.IsZero() {
			return types.Value{}, errors.New(errors.KindEvaluationError, "division by zero")
		}
		return types.NewFloat(l.Num.Div(r.Num).Floor()), nil
	case ArithMod:
		if r.Num.IsZero() {
			return types.Value{}, errors.New(errors.KindEvaluationError, "division by zero")
		}
		return types.NewFloat(l.Num.Mod(r.Num)), nil
	case ArithPow:
		f, _ := l.Num.Float64()
		e, _ := r.Num.Float64()
		return types.NewFloat(decimal.NewFromFloat(math.Pow(f, e))), nil
	}
	return types.Value{}, errors.New(errors.KindEvaluationError, "unknown arithmetic operator")
}

func (n *Arithmetic) Reduce() (Node, error) {
	left, err := n.Left.Reduce()
	if err != nil {
		return nil, err
	}
	right, err := n.Right.Reduce()
	if err != nil {
		return nil, err
	}
	return foldArithmetic(&Arithmetic{Op: n.Op, Left: left, Right: right})
}

func foldArithmetic(n *Arithmetic) (Node, error) {
	_, lok := n.Left.(*Literal)
	_, rok := n.Right.(*Literal)
	if !lok || !rok {
		return n, nil
	}
	v, err := n.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

// BitwiseOp identifies a binary bitwise operator, spec.md §4.3
// "Bitwise": operands must both be natural numbers.
type BitwiseOp int

const (
	BitAnd BitwiseOp = iota
	BitOr
	BitXor
	BitLShift
	BitRShift
)

type Bitwise struct {
	Op    BitwiseOp
	Left  Node
	Right Node
}

func (n *Bitwise) ResultType() types.DataType { return types.Float }

func (n *Bitwise) Evaluate(ctx EvalContext) (types.Value, error) {
	l, err := n.Left.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	r, err := n.Right.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if !l.IsNaturalNumber() || !r.IsNaturalNumber() {
		return types.Value{}, errors.New(errors.KindEvaluationError, "bitwise operands must be natural numbers")
	}
	a, b := l.Num.IntPart(), r.Num.IntPart()
	var res int64
	switch n.Op {
	case BitAnd:
		res = a & b
	case BitOr:
		res = a | b
	case BitXor:
		res = a ^ b
	case BitLShift:
		res = a << uint(b)
	case BitRShift:
		res = a >> uint(b)
	default:
		return types.Value{}, errors.New(errors.KindEvaluationError, "unknown bitwise operator")
	}
	return types.NewFloat(decimal.NewFromInt(res)), nil
}

func (n *Bitwise) Reduce() (Node, error) {
	l, err := n.Left.Reduce()
	if err != nil {
		return nil, err
	}
	r, err := n.Right.Reduce()
	if err != nil {
		return nil, err
	}
	out := &Bitwise{Op: n.Op, Left: l, Right: r}
	_, lok := l.(*Literal)
	_, rok := r.(*Literal)
	if !lok || !rok {
		return out, nil
	}
	v, err := out.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

// Comparison implements spec.md §4.3 "Comparison (eq/ne)": structural
// equality over any pair of values, regardless of type.
type Comparison struct {
	Negate bool
	Left   Node
	Right  Node
}

func (n *Comparison) ResultType() types.DataType { return types.Boolean }

func (n *Comparison) Evaluate(ctx EvalContext) (types.Value, error) {
	l, err := n.Left.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	r, err := n.Right.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	eq := types.StructuralEqual(l, r)
	if n.Negate {
		eq = !eq
	}
	return types.NewBool(eq), nil
}

func (n *Comparison) Reduce() (Node, error) {
	l, err := n.Left.Reduce()
	if err != nil {
		return nil, err
	}
	r, err := n.Right.Reduce()
	if err != nil {
		return nil, err
	}
	out := &Comparison{Negate: n.Negate, Left: l, Right: r}
	_, lok := l.(*Literal)
	_, rok := r.(*Literal)
	if !lok || !rok {
		return out, nil
	}
	v, err := out.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

// ArithmeticComparisonOp identifies <, <=, >, >=, spec.md §4.3
// "ArithmeticComparison": both operands must coerce to real numbers.
type ArithmeticComparisonOp int

const (
	CmpLT ArithmeticComparisonOp = iota
	CmpLE
	CmpGT
	CmpGE
)

type ArithmeticComparison struct {
	Op    ArithmeticComparisonOp
	Left  Node
	Right Node
}

func (n *ArithmeticComparison) ResultType() types.DataType { return types.Boolean }

func (n *ArithmeticComparison) Evaluate(ctx EvalContext) (types.Value, error) {
	l, err := n.Left.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	r, err := n.Right.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if !l.IsRealNumber() || !r.IsRealNumber() {
		return types.Value{}, errors.New(errors.KindEvaluationError, "comparison operands must be real numbers")
	}
	var res bool
	switch n.Op {
	case CmpLT:
		res = l.Num.LessThan(r.Num)
	case CmpLE:
		res = l.Num.LessThanOrEqual(r.Num)
	case CmpGT:
		res = l.Num.GreaterThan(r.Num)
	case CmpGE:
		res = l.Num.GreaterThanOrEqual(r.Num)
	}
	return types.NewBool(res), nil
}

func (n *ArithmeticComparison) Reduce() (Node, error) {
	l, err := n.Left.Reduce()
	if err != nil {
		return nil, err
	}
	r, err := n.Right.Reduce()
	if err != nil {
		return nil, err
	}
	out := &ArithmeticComparison{Op: n.Op, Left: l, Right: r}
	_, lok := l.(*Literal)
	_, rok := r.(*Literal)
	if !lok || !rok {
		return out, nil
	}
	v, err := out.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

// FuzzyComparisonOp identifies =~, =~~, !~, !~~, spec.md §4.3
// "FuzzyComparison": regular-expression matching over STRING operands.
// The "~~" forms additionally populate the context's capture-group
// scratch, mirroring the Python original's thread-local regex groups.
type FuzzyComparisonOp int

const (
	FuzzyMatch FuzzyComparisonOp = iota
	FuzzyMatchGroups
	FuzzyNotMatch
	FuzzyNotMatchGroups
)

type FuzzyComparison struct {
	Op      FuzzyComparisonOp
	Left    Node
	Pattern Node
}

func (n *FuzzyComparison) ResultType() types.DataType { return types.Boolean }

func (n *FuzzyComparison) Evaluate(ctx EvalContext) (types.Value, error) {
	l, err := n.Left.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	p, err := n.Pattern.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if l.Type.Kind != types.STRING || p.Type.Kind != types.STRING {
		return types.Value{}, errors.New(errors.KindEvaluationError, "fuzzy comparison operands must be strings")
	}
	pattern := p.Str
	if ctx != nil {
		if flags := ctx.RegexFlags(); flags != "" {
			pattern = "(?" + flags + ")" + pattern
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return types.Value{}, errors.New(errors.KindRegexSyntaxError, err.Error())
	}
	match := re.FindStringSubmatch(l.Str)
	matched := match != nil
	if n.Op == FuzzyMatchGroups || n.Op == FuzzyNotMatchGroups {
		groups := map[string]string{}
		if matched {
			for i, name := range re.SubexpNames() {
				if name != "" && i < len(match) {
					groups[name] = match[i]
				}
			}
		}
		ctx.SetRegexGroups(groups)
	}
	res := matched
	if n.Op == FuzzyNotMatch || n.Op == FuzzyNotMatchGroups {
		res = !matched
	}
	return types.NewBool(res), nil
}

func (n *FuzzyComparison) Reduce() (Node, error) {
	left, err := n.Left.Reduce()
	if err != nil {
		return nil, err
	}
	pattern, err := n.Pattern.Reduce()
	if err != nil {
		return nil, err
	}
	return &FuzzyComparison{Op: n.Op, Left: left, Pattern: pattern}, nil
}

// LogicOp identifies and/or, spec.md §4.3 "Logic": short-circuiting,
// truthiness-based.
type LogicOp int

const (
	LogicAnd LogicOp = iota
	LogicOr
)

type Logic struct {
	Op    LogicOp
	Left  Node
	Right Node
}

func (n *Logic) ResultType() types.DataType { return types.Boolean }

func (n *Logic) Evaluate(ctx EvalContext) (types.Value, error) {
	l, err := n.Left.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if n.Op == LogicAnd && !l.IsTruthy() {
		return types.NewBool(false), nil
	}
	if n.Op == LogicOr && l.IsTruthy() {
		return types.NewBool(true), nil
	}
	r, err := n.Right.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	return types.NewBool(r.IsTruthy()), nil
}

func (n *Logic) Reduce() (Node, error) {
	left, err := n.Left.Reduce()
	if err != nil {
		return nil, err
	}
	right, err := n.Right.Reduce()
	if err != nil {
		return nil, err
	}
	return &Logic{Op: n.Op, Left: left, Right: right}, nil
}

// Contains implements spec.md §4.3 "Contains": x in y.
type Contains struct {
	Negate bool
	Needle Node
	Haystack Node
}

func (n *Contains) ResultType() types.DataType { return types.Boolean }

func (n *Contains) Evaluate(ctx EvalContext) (types.Value, error) {
	needle, err := n.Needle.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	haystack, err := n.Haystack.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	ok, err := types.Contains(needle, haystack)
	if err != nil {
		return types.Value{}, errors.New(errors.KindEvaluationError, err.Error())
	}
	if n.Negate {
		ok = !ok
	}
	return types.NewBool(ok), nil
}

func (n *Contains) Reduce() (Node, error) {
	needle, err := n.Needle.Reduce()
	if err != nil {
		return nil, err
	}
	haystack, err := n.Haystack.Reduce()
	if err != nil {
		return nil, err
	}
	out := &Contains{Negate: n.Negate, Needle: needle, Haystack: haystack}
	_, lok := needle.(*Literal)
	_, rok := haystack.(*Literal)
	if !lok || !rok {
		return out, nil
	}
	v, err := out.Evaluate(nil)
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

// Ternary implements spec.md §4.3 "Ternary": cond ? then : else.
type Ternary struct {
	Cond Node
	Then Node
	Else Node
	Typ  types.DataType
}

func (n *Ternary) ResultType() types.DataType { return n.Typ }

func (n *Ternary) Evaluate(ctx EvalContext) (types.Value, error) {
	c, err := n.Cond.Evaluate(ctx)
	if err != nil {
		return types.Value{}, err
	}
	if c.IsTruthy() {
		return n.Then.Evaluate(ctx)
	}
	return n.Else.Evaluate(ctx)
}

func (n *Ternary) Reduce() (Node, error) {
	cond, err := n.Cond.Reduce()
	if err != nil {
		return nil, err
	}
	then, err := n.Then.Reduce()
	if err != nil {
		return nil, err
	}
	els, err := n.Else.Reduce()
	if err != nil {
		return nil, err
	}
	if lit, ok := cond.(*Literal); ok {
		if lit.Value.IsTruthy() {
			return then, nil
		}
		return els, nil
	}
	return &Ternary{Cond: cond, Then: then, Else: els, Typ: n.Typ}, nil
}
