package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/engine"
)

func TestCompileAndMatches(t *testing.T) {
	rule, err := engine.Compile(`user.age >= 18 and user.country == "US"`)
	require.NoError(t, err)

	ctx := engine.ContextFromMap(map[string]any{
		"user": map[string]any{"age": 21, "country": "US"},
	})
	ok, err := rule.Matches(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := engine.Compile("1 + + ")
	require.Error(t, err)
}

func TestMatchesFalseWhenConditionFails(t *testing.T) {
	rule, err := engine.Compile(`user.age < 18`)
	require.NoError(t, err)
	ctx := engine.ContextFromMap(map[string]any{"user": map[string]any{"age": 30}})
	ok, err := rule.Matches(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuiltinConstant(t *testing.T) {
	rule, err := engine.Compile(`$f.pi > 3`)
	require.NoError(t, err)
	ctx := engine.ContextFromMap(nil)
	ok, err := rule.Matches(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFilterSequential(t *testing.T) {
	rule, err := engine.Compile(`age >= 21`)
	require.NoError(t, err)

	type person struct{ age int }
	items := []any{person{17}, person{25}, person{40}}
	resolve := func(item any) *engine.Context {
		p := item.(person)
		return engine.ContextFromMap(map[string]any{"age": p.age})
	}
	out, err := rule.Filter(items, resolve)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestFilterConcurrent(t *testing.T) {
	rule, err := engine.Compile(`age >= 21`)
	require.NoError(t, err)

	type person struct{ age int }
	items := make([]any, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, person{age: i})
	}
	resolve := func(item any) *engine.Context {
		p := item.(person)
		return engine.ContextFromMap(map[string]any{"age": p.age})
	}
	out, err := engine.FilterConcurrent(context.Background(), rule, items, resolve, 8)
	require.NoError(t, err)
	assert.Len(t, out, 29) // ages 21..49
}

func TestDisassembleFoldedConstant(t *testing.T) {
	rule, err := engine.Compile(`1 + 2`)
	require.NoError(t, err)
	assert.Equal(t, "3", rule.Disassemble())
}

func TestIsValidDetectsUnresolvedSymbol(t *testing.T) {
	rule, err := engine.Compile(`missing_field == 1`)
	require.NoError(t, err)
	ctx := engine.ContextFromMap(map[string]any{"other": 1})
	assert.False(t, rule.IsValid(ctx))
}

func TestFuzzyMatchPopulatesRegexGroups(t *testing.T) {
	rule, err := engine.Compile(`name =~~ "^(?P<first>[A-Za-z]+)"`)
	require.NoError(t, err)
	ctx := engine.ContextFromMap(map[string]any{"name": "Alice Smith"})
	ok, err := rule.Matches(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", ctx.RegexGroups()["first"])
}
