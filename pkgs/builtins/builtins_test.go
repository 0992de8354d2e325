package builtins_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/builtins"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

func TestFConstants(t *testing.T) {
	v := builtins.FConstants()
	require.Equal(t, types.MAPPING, v.Type.Kind)
	require.Len(t, v.MapKeys, 2)
}

func TestDConstantsTodayIsMidnight(t *testing.T) {
	now := time.Date(2026, 7, 31, 15, 4, 5, 0, time.UTC)
	v := builtins.DConstants(now, time.UTC)
	var today types.Value
	for i, k := range v.MapKeys {
		if k.Str == "today" {
			today = v.MapValues[i]
		}
	}
	assert.Equal(t, 0, today.Time.Hour())
}

func TestResolveFunction(t *testing.T) {
	v, ok := builtins.Resolve("$sum", time.Now(), time.UTC, nil)
	require.True(t, ok)
	require.NotNil(t, v.Func)

	arr := types.NewArrayValue([]types.Value{
		types.NewFloat(decimal.NewFromInt(1)),
		types.NewFloat(decimal.NewFromInt(2)),
		types.NewFloat(decimal.NewFromInt(3)),
	})
	result, err := v.Func.Call([]types.Value{arr})
	require.NoError(t, err)
	assert.True(t, result.Num.Equal(decimal.NewFromInt(6)))
}

func TestResolveUnknownReturnsFalse(t *testing.T) {
	_, ok := builtins.Resolve("$nope", time.Now(), time.UTC, nil)
	assert.False(t, ok)
}

func TestAnyAllFilter(t *testing.T) {
	isPositive := &types.FunctionValue{
		Name: "positive",
		Type: types.NewFunction(types.Boolean, []types.DataType{types.Float}, true, 1, true),
		Call: func(args []types.Value) (types.Value, error) {
			return types.NewBool(args[0].Num.IsPositive()), nil
		},
	}
	arr := types.NewArrayValue([]types.Value{
		types.NewFloat(decimal.NewFromInt(-1)),
		types.NewFloat(decimal.NewFromInt(2)),
	})

	anyFn, _ := builtins.Resolve("$any", time.Now(), time.UTC, nil)
	res, err := anyFn.Func.Call([]types.Value{arr, types.NewFunction(isPositive)})
	require.NoError(t, err)
	assert.True(t, res.Bool)

	allFn, _ := builtins.Resolve("$all", time.Now(), time.UTC, nil)
	res, err = allFn.Func.Call([]types.Value{arr, types.NewFunction(isPositive)})
	require.NoError(t, err)
	assert.False(t, res.Bool)

	filterFn, _ := builtins.Resolve("$filter", time.Now(), time.UTC, nil)
	res, err = filterFn.Func.Call([]types.Value{arr, types.NewFunction(isPositive)})
	require.NoError(t, err)
	require.Len(t, res.Arr, 1)
}

func TestParseDatetimeAndTimedelta(t *testing.T) {
	pd, _ := builtins.Resolve("$parse_datetime", time.Now(), time.UTC, nil)
	v, err := pd.Func.Call([]types.Value{types.NewString("2020-01-01")})
	require.NoError(t, err)
	assert.Equal(t, types.DATETIME, v.Type.Kind)

	pt, _ := builtins.Resolve("$parse_timedelta", time.Now(), time.UTC, nil)
	v, err = pt.Func.Call([]types.Value{types.NewString("1h30m")})
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, v.Delta)
}
