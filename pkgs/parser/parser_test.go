package parser_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/ast"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/parser"
)

func TestParseArithmeticPrecedence(t *testing.T) {
	stmt, err := parser.Parse("1 + 2 * 3")
	require.NoError(t, err)
	lit, ok := stmt.Body.(*ast.Literal)
	require.True(t, ok, "constant expression should fold to a literal")
	assert.True(t, lit.Value.Num.Equal(decimal.NewFromInt(7)))
}

func TestParsePowerRightAssociative(t *testing.T) {
	stmt, err := parser.Parse("2 ** 3 ** 2")
	require.NoError(t, err)
	lit, ok := stmt.Body.(*ast.Literal)
	require.True(t, ok)
	assert.True(t, lit.Value.Num.Equal(decimal.NewFromInt(512)))
}

func TestParseUnaryMinusBindsTighterThanPower(t *testing.T) {
	stmt, err := parser.Parse("-2 ** 2")
	require.NoError(t, err)
	lit, ok := stmt.Body.(*ast.Literal)
	require.True(t, ok)
	assert.True(t, lit.Value.Num.Equal(decimal.NewFromInt(4)))
}

func TestParseTernary(t *testing.T) {
	stmt, err := parser.Parse("true ? 1 : 2")
	require.NoError(t, err)
	lit, ok := stmt.Body.(*ast.Literal)
	require.True(t, ok)
	assert.True(t, lit.Value.Num.Equal(decimal.NewFromInt(1)))
}

func TestParseSymbolAttributeChain(t *testing.T) {
	stmt, err := parser.Parse("user.name")
	require.NoError(t, err)
	attr, ok := stmt.Body.(*ast.GetAttribute)
	require.True(t, ok)
	assert.Equal(t, "name", attr.Name)
	sym, ok := attr.Object.(*ast.Symbol)
	require.True(t, ok)
	assert.Equal(t, "user", sym.Name)
}

func TestParseSafeAccessChain(t *testing.T) {
	stmt, err := parser.Parse("user&.profile&[0]")
	require.NoError(t, err)
	item, ok := stmt.Body.(*ast.GetItem)
	require.True(t, ok)
	assert.True(t, item.Safe)
	attr, ok := item.Object.(*ast.GetAttribute)
	require.True(t, ok)
	assert.True(t, attr.Safe)
}

func TestParseArrayLiteral(t *testing.T) {
	stmt, err := parser.Parse("[1, 2, 3]")
	require.NoError(t, err)
	lit, ok := stmt.Body.(*ast.Literal)
	require.True(t, ok)
	require.Len(t, lit.Value.Arr, 3)
}

func TestParseArrayComprehension(t *testing.T) {
	stmt, err := parser.Parse("[x * 2 for x in [1, 2, 3]]")
	require.NoError(t, err)
	_, ok := stmt.Body.(*ast.Comprehension)
	require.True(t, ok, "comprehension over a literal iterable with a symbol-dependent body should not fold")
}

func TestParseMappingLiteral(t *testing.T) {
	stmt, err := parser.Parse(`{"a": 1, "b": 2}`)
	require.NoError(t, err)
	lit, ok := stmt.Body.(*ast.Literal)
	require.True(t, ok)
	assert.Len(t, lit.Value.MapKeys, 2)
}

func TestParseSetLiteral(t *testing.T) {
	stmt, err := parser.Parse("{1, 2, 2, 3}")
	require.NoError(t, err)
	lit, ok := stmt.Body.(*ast.Literal)
	require.True(t, ok)
	assert.Len(t, lit.Value.SetMembers, 3)
}

func TestParseFunctionCall(t *testing.T) {
	stmt, err := parser.Parse("sum([1, 2, 3])")
	require.NoError(t, err)
	call, ok := stmt.Body.(*ast.Call)
	require.True(t, ok)
	assert.Len(t, call.Arguments, 1)
}

func TestParseContains(t *testing.T) {
	stmt, err := parser.Parse("1 in [1, 2, 3]")
	require.NoError(t, err)
	lit, ok := stmt.Body.(*ast.Literal)
	require.True(t, ok)
	assert.True(t, lit.Value.Bool)
}

func TestParseFuzzyMatch(t *testing.T) {
	stmt, err := parser.Parse(`name =~ "^A"`)
	require.NoError(t, err)
	_, ok := stmt.Body.(*ast.FuzzyComparison)
	require.True(t, ok)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := parser.Parse("1 + + ")
	require.Error(t, err)
}

func TestParseTrailingGarbageIsRejected(t *testing.T) {
	_, err := parser.Parse("1 + 1 2")
	require.Error(t, err)
}

func TestParseSlice(t *testing.T) {
	stmt, err := parser.Parse("[1, 2, 3, 4][1:3]")
	require.NoError(t, err)
	lit, ok := stmt.Body.(*ast.Literal)
	require.True(t, ok)
	require.Len(t, lit.Value.Arr, 2)
}
