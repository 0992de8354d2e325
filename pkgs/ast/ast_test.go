package ast_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/ast"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// fakeContext is a minimal ast.EvalContext for exercising node
// Evaluate methods without the full engine.Context.
type fakeContext struct {
	symbols map[string]types.Value
	groups  map[string]string
}

func newFakeContext(symbols map[string]types.Value) *fakeContext {
	return &fakeContext{symbols: symbols, groups: map[string]string{}}
}

func (c *fakeContext) ResolveSymbol(name string, isBuiltin bool) (types.Value, error) {
	if v, ok := c.symbols[name]; ok {
		return v, nil
	}
	return types.Value{}, assertErr(name)
}

func assertErr(name string) error { return &notFound{name} }

type notFound struct{ name string }

func (n *notFound) Error() string { return "not found: " + n.name }

func (c *fakeContext) ResolveSymbolType(name string, isBuiltin bool) (types.DataType, error) {
	if v, ok := c.symbols[name]; ok {
		return v.Type, nil
	}
	return types.Undefined, nil
}

func (c *fakeContext) ResolveAttribute(obj types.Value, name string) (types.Value, error) {
	return types.Value{}, assertErr(name)
}

func (c *fakeContext) ResolveAttributeType(objType types.DataType, name string) (types.DataType, error) {
	return types.Undefined, nil
}

func (c *fakeContext) Timezone() *time.Location { return time.UTC }

func (c *fakeContext) RegexFlags() string { return "" }

func (c *fakeContext) RegexGroups() map[string]string { return c.groups }

func (c *fakeContext) SetRegexGroups(g map[string]string) { c.groups = g }

func (c *fakeContext) WithBinding(name string, value types.Value) ast.EvalContext {
	cp := make(map[string]types.Value, len(c.symbols)+1)
	for k, v := range c.symbols {
		cp[k] = v
	}
	cp[name] = value
	return newFakeContext(cp)
}

func num(i int64) types.Value { return types.NewFloat(decimal.NewFromInt(i)) }

func TestArithmeticEvaluate(t *testing.T) {
	n := &ast.Arithmetic{Op: ast.ArithAdd, Left: &ast.Literal{Value: num(2)}, Right: &ast.Literal{Value: num(3)}}
	v, err := n.Evaluate(nil)
	require.NoError(t, err)
	assert.True(t, v.Num.Equal(decimal.NewFromInt(5)))
}

func TestArithmeticDivisionByZero(t *testing.T) {
	n := &ast.Arithmetic{Op: ast.ArithDiv, Left: &ast.Literal{Value: num(1)}, Right: &ast.Literal{Value: num(0)}}
	_, err := n.Evaluate(nil)
	require.Error(t, err)
}

func TestLogicShortCircuitsAnd(t *testing.T) {
	n := &ast.Logic{
		Op:    ast.LogicAnd,
		Left:  &ast.Literal{Value: types.NewBool(false)},
		Right: &ast.Symbol{Name: "boom"}, // would error if evaluated
	}
	v, err := n.Evaluate(newFakeContext(nil))
	require.NoError(t, err)
	assert.False(t, v.Bool)
}

func TestTernary(t *testing.T) {
	n := &ast.Ternary{
		Cond: &ast.Literal{Value: types.NewBool(true)},
		Then: &ast.Literal{Value: types.NewString("yes")},
		Else: &ast.Literal{Value: types.NewString("no")},
	}
	v, err := n.Evaluate(nil)
	require.NoError(t, err)
	assert.Equal(t, "yes", v.Str)
}

func TestContainsArray(t *testing.T) {
	arr := types.NewArrayValue([]types.Value{num(1), num(2), num(3)})
	n := &ast.Contains{Needle: &ast.Literal{Value: num(2)}, Haystack: &ast.Literal{Value: arr}}
	v, err := n.Evaluate(nil)
	require.NoError(t, err)
	assert.True(t, v.Bool)
}

func TestGetItemArrayNegativeIndex(t *testing.T) {
	arr := types.NewArrayValue([]types.Value{num(1), num(2), num(3)})
	n := &ast.GetItem{Object: &ast.Literal{Value: arr}, Index: &ast.Literal{Value: num(-1)}}
	v, err := n.Evaluate(nil)
	require.NoError(t, err)
	assert.True(t, v.Num.Equal(decimal.NewFromInt(3)))
}

func TestGetItemOutOfRange(t *testing.T) {
	arr := types.NewArrayValue([]types.Value{num(1)})
	n := &ast.GetItem{Object: &ast.Literal{Value: arr}, Index: &ast.Literal{Value: num(5)}}
	_, err := n.Evaluate(nil)
	require.Error(t, err)
}

func TestSafeAttributeOnNullShortCircuits(t *testing.T) {
	n := &ast.GetAttribute{Object: &ast.Literal{Value: types.NewNull()}, Name: "x", Safe: true}
	v, err := n.Evaluate(newFakeContext(nil))
	require.NoError(t, err)
	assert.Equal(t, types.NULL, v.Type.Kind)
}

func TestArrayComprehension(t *testing.T) {
	arr := types.NewArrayValue([]types.Value{num(1), num(2), num(3), num(4)})
	n := &ast.Comprehension{
		Kind:     ast.ComprehensionArray,
		Var:      "x",
		Iterable: &ast.Literal{Value: arr},
		Condition: &ast.Comparison{
			Left:  &ast.Symbol{Name: "x"},
			Right: &ast.Literal{Value: num(0)},
		},
		ValueExpr: &ast.Arithmetic{Op: ast.ArithMul, Left: &ast.Symbol{Name: "x"}, Right: &ast.Literal{Value: num(10)}},
	}
	// condition above is intentionally "x == 0" negated via Negate below to
	// exercise filtering; use Negate so the surviving members are nonzero.
	n.Condition.(*ast.Comparison).Negate = true
	v, err := n.Evaluate(newFakeContext(nil))
	require.NoError(t, err)
	require.Len(t, v.Arr, 4)
	assert.True(t, v.Arr[0].Num.Equal(decimal.NewFromInt(10)))
}

func TestReduceFoldsConstantArithmetic(t *testing.T) {
	n := &ast.Arithmetic{Op: ast.ArithAdd, Left: &ast.Literal{Value: num(2)}, Right: &ast.Literal{Value: num(3)}}
	reduced, err := n.Reduce()
	require.NoError(t, err)
	lit, ok := reduced.(*ast.Literal)
	require.True(t, ok)
	assert.True(t, lit.Value.Num.Equal(decimal.NewFromInt(5)))
}

func TestReduceDoesNotFoldSymbols(t *testing.T) {
	n := &ast.Arithmetic{Op: ast.ArithAdd, Left: &ast.Symbol{Name: "x"}, Right: &ast.Literal{Value: num(3)}}
	reduced, err := n.Reduce()
	require.NoError(t, err)
	_, ok := reduced.(*ast.Arithmetic)
	assert.True(t, ok)
}
