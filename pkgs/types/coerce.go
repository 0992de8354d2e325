package types

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// CoerceValue takes a native Go value from the host application and
// converts it to a Value of a data type the engine can represent,
// exactly as spec.md §3.1 "Value coercion at the boundary" describes and
// original_source/lib/rule_engine/types.py's coerce_value implements:
//
//   - integer-like and floating-point host numbers become FLOAT (decimal).
//   - a time.Time becomes DATETIME unchanged; there is no separate
//     plain-date case, and defaultTZ is not applied to it.
//   - list/slice/array becomes ARRAY, map becomes MAPPING, with each
//     member coerced recursively (defaultTZ is passed down unchanged).
//   - any host type that cannot be mapped fails with an error.
func CoerceValue(value any, defaultTZ *time.Location) (Value, error) {
	switch v := value.(type) {
	case nil:
		return NewNull(), nil
	case Value:
		return v, nil
	case bool:
		return NewBool(v), nil
	case decimal.Decimal:
		return NewFloat(v), nil
	case float32:
		return coerceFloat(float64(v))
	case float64:
		return coerceFloat(v)
	case int:
		return NewFloat(decimal.NewFromInt(int64(v))), nil
	case int8:
		return NewFloat(decimal.NewFromInt(int64(v))), nil
	case int16:
		return NewFloat(decimal.NewFromInt(int64(v))), nil
	case int32:
		return NewFloat(decimal.NewFromInt(int64(v))), nil
	case int64:
		return NewFloat(decimal.NewFromInt(v)), nil
	case uint:
		return NewFloat(decimal.NewFromInt(int64(v))), nil
	case uint32:
		return NewFloat(decimal.NewFromInt(int64(v))), nil
	case uint64:
		return NewFloat(decimal.NewFromInt(int64(v))), nil
	case string:
		return NewString(v), nil
	case []byte:
		return NewBytes(v), nil
	case time.Time:
		return NewDatetime(v), nil
	case time.Duration:
		return NewTimedelta(v), nil
	case *FunctionValue:
		return NewFunction(v), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		members := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			m, err := CoerceValue(rv.Index(i).Interface(), defaultTZ)
			if err != nil {
				return Value{}, err
			}
			members[i] = m
		}
		return NewArrayValue(members), nil
	case reflect.Map:
		keys := make([]Value, 0, rv.Len())
		values := make([]Value, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			kv, err := CoerceValue(k.Interface(), defaultTZ)
			if err != nil {
				return Value{}, err
			}
			vv, err := CoerceValue(rv.MapIndex(k).Interface(), defaultTZ)
			if err != nil {
				return Value{}, err
			}
			keys = append(keys, kv)
			values = append(values, vv)
		}
		return NewMappingValue(keys, values)
	}

	return Value{}, fmt.Errorf("can not map go type %T to a compatible data type", value)
}

func coerceFloat(f float64) (Value, error) {
	if math.IsNaN(f) {
		return NewNaN(), nil
	}
	if math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("can not coerce infinite float to a FLOAT value")
	}
	return NewFloat(decimal.NewFromFloat(f)), nil
}

