package types_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

func TestIsCompatibleReflexiveAndUndefinedAbsorbing(t *testing.T) {
	for _, dt := range []types.DataType{types.Boolean, types.Float, types.String, types.Bytes, types.Datetime, types.Timedelta, types.Null} {
		assert.Truef(t, types.IsCompatible(dt, dt), "%s should be compatible with itself", dt.Kind)
		assert.True(t, types.IsCompatible(types.Undefined, dt))
		assert.True(t, types.IsCompatible(dt, types.Undefined))
	}
}

func TestIsCompatibleCompoundRecursion(t *testing.T) {
	arrOfFloat := types.NewArray(types.Float, true)
	arrOfString := types.NewArray(types.String, true)
	arrOfUndefined := types.NewArray(types.Undefined, true)

	assert.True(t, types.IsCompatible(arrOfFloat, arrOfFloat))
	assert.False(t, types.IsCompatible(arrOfFloat, arrOfString))
	assert.True(t, types.IsCompatible(arrOfFloat, arrOfUndefined))
}

func TestIsCompatibleMapping(t *testing.T) {
	m1, err := types.NewMapping(types.String, types.Float, true)
	require.NoError(t, err)
	m2, err := types.NewMapping(types.String, types.Float, true)
	require.NoError(t, err)
	m3, err := types.NewMapping(types.String, types.String, true)
	require.NoError(t, err)

	assert.True(t, types.IsCompatible(m1, m2))
	assert.False(t, types.IsCompatible(m1, m3))
}

func TestNewMappingRejectsCompoundKeys(t *testing.T) {
	_, err := types.NewMapping(types.NewSet(types.Float, true), types.Float, true)
	require.Error(t, err)
}

func TestFunctionCompatibility(t *testing.T) {
	f1 := types.NewFunction(types.Float, []types.DataType{types.Float, types.Float}, true, 2, true)
	f2 := types.NewFunction(types.Float, []types.DataType{types.Float, types.Float}, true, 2, true)
	f3 := types.NewFunction(types.Float, []types.DataType{types.Float, types.String}, true, 2, true)

	assert.True(t, types.IsCompatible(f1, f2))
	assert.False(t, types.IsCompatible(f1, f3))
}

func TestCoerceValueScalars(t *testing.T) {
	v, err := types.CoerceValue(3, nil)
	require.NoError(t, err)
	assert.Equal(t, types.FLOAT, v.Type.Kind)
	assert.True(t, v.Num.Equal(decimal.NewFromInt(3)))

	v, err = types.CoerceValue(3.5, nil)
	require.NoError(t, err)
	assert.True(t, v.Num.Equal(decimal.NewFromFloat(3.5)))

	v, err = types.CoerceValue("hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Str)

	v, err = types.CoerceValue(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, types.NULL, v.Type.Kind)
}

func TestCoerceValueCollections(t *testing.T) {
	v, err := types.CoerceValue([]any{1, 2, 3}, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(types.ARRAY, v.Type.Kind); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, v.Arr, 3)

	m, err := types.CoerceValue(map[string]any{"a": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, types.MAPPING, m.Type.Kind)
	require.Len(t, m.MapKeys, 1)
	assert.Equal(t, "a", m.MapKeys[0].Str)
}

func TestCoerceValueRejectsUnknownType(t *testing.T) {
	_, err := types.CoerceValue(make(chan int), nil)
	require.Error(t, err)
}

func TestTruthiness(t *testing.T) {
	assert.False(t, types.NewBool(false).IsTruthy())
	assert.False(t, types.NewFloat(decimal.Zero).IsTruthy())
	assert.False(t, types.NewString("").IsTruthy())
	assert.False(t, types.NewNull().IsTruthy())
	assert.True(t, types.NewString("x").IsTruthy())
	assert.True(t, types.NewFloat(decimal.NewFromInt(1)).IsTruthy())
}

func TestStructuralEqualNullAndNaN(t *testing.T) {
	assert.True(t, types.StructuralEqual(types.NewNull(), types.NewNull()))
	assert.False(t, types.StructuralEqual(types.NewNaN(), types.NewNaN()))
	assert.False(t, types.StructuralEqual(types.NewBool(true), types.NewFloat(decimal.NewFromInt(1))))
}

func TestContainsString(t *testing.T) {
	ok, err := types.Contains(types.NewString("lic"), types.NewString("Alice"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDatetimeRoundtrip(t *testing.T) {
	now := time.Now()
	v := types.NewDatetime(now)
	assert.True(t, v.Time.Equal(now))
}
