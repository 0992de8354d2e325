// Package types implements the rule engine's closed data type
// enumeration (spec.md §3.1): scalar types, parameterised compound
// types, the compatibility relation over them, and coercion of host
// values at the evaluator boundary.
package types

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the members of the closed DataType enumeration.
type Kind int

const (
	UNDEFINED Kind = iota
	BOOLEAN
	FLOAT
	STRING
	BYTES
	DATETIME
	TIMEDELTA
	NULL
	FUNCTION
	ARRAY
	SET
	MAPPING
)

func (k Kind) String() string {
	switch k {
	case UNDEFINED:
		return "UNDEFINED"
	case BOOLEAN:
		return "BOOLEAN"
	case FLOAT:
		return "FLOAT"
	case STRING:
		return "STRING"
	case BYTES:
		return "BYTES"
	case DATETIME:
		return "DATETIME"
	case TIMEDELTA:
		return "TIMEDELTA"
	case NULL:
		return "NULL"
	case FUNCTION:
		return "FUNCTION"
	case ARRAY:
		return "ARRAY"
	case SET:
		return "SET"
	case MAPPING:
		return "MAPPING"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DataType is a single data type definition. Scalars only populate Kind.
// Compound types additionally populate the parameters relevant to their
// Kind: ARRAY/SET use ValueType/ValueNullable; MAPPING additionally uses
// KeyType; FUNCTION uses ReturnType/ArgumentTypes/MinArguments.
//
// DataType is a value type (not a pointer), but it is not comparable
// with == because it holds a slice and pointer fields; use Equal for the
// structural equality matching the Python original's _DataTypeDef.__eq__.
type DataType struct {
	Kind           Kind
	KeyType        *DataType
	ValueType      *DataType
	ValueNullable  bool
	ReturnType     *DataType
	ArgumentTypes  []DataType // nil means unspecified (UNDEFINED arity)
	HasArgTypes    bool
	MinArguments   int
	HasMinArgs     bool
}

// Undefined is the UNDEFINED sentinel: "type not yet known", compatible
// with every other type per spec.md §3.1.
var Undefined = DataType{Kind: UNDEFINED}

// Simple scalar constants.
var (
	Boolean   = DataType{Kind: BOOLEAN}
	Float     = DataType{Kind: FLOAT}
	String    = DataType{Kind: STRING}
	Bytes     = DataType{Kind: BYTES}
	Datetime  = DataType{Kind: DATETIME}
	Timedelta = DataType{Kind: TIMEDELTA}
	Null      = DataType{Kind: NULL}
)

// IsScalar reports whether the type is one of the non-parameterised
// members (including UNDEFINED, NULL and FUNCTION, matching the Python
// original's is_scalar flag on every non-collection _DataTypeDef).
func (d DataType) IsScalar() bool {
	switch d.Kind {
	case ARRAY, SET, MAPPING:
		return false
	default:
		return true
	}
}

// IsCompound reports the complement of IsScalar.
func (d DataType) IsCompound() bool { return !d.IsScalar() }

// NewArray builds an ARRAY<valueType, valueNullable> type.
func NewArray(valueType DataType, valueNullable bool) DataType {
	vt := valueType
	return DataType{Kind: ARRAY, ValueType: &vt, ValueNullable: valueNullable}
}

// NewSet builds a SET<valueType, valueNullable> type.
func NewSet(valueType DataType, valueNullable bool) DataType {
	vt := valueType
	return DataType{Kind: SET, ValueType: &vt, ValueNullable: valueNullable}
}

// NewMapping builds a MAPPING<keyType, valueType, valueNullable> type.
// keyType must be a scalar or ARRAY (tuple-hashable), per spec.md §3.1.
func NewMapping(keyType, valueType DataType, valueNullable bool) (DataType, error) {
	if keyType.IsCompound() && keyType.Kind != ARRAY {
		return DataType{}, fmt.Errorf("the %s data type may not be used for mapping keys", keyType.Kind)
	}
	kt, vt := keyType, valueType
	return DataType{Kind: MAPPING, KeyType: &kt, ValueType: &vt, ValueNullable: valueNullable}, nil
}

// NewFunction builds a FUNCTION<returnType, argumentTypes, minArguments>
// type. Pass hasArgTypes=false for an unspecified (UNDEFINED) arity.
func NewFunction(returnType DataType, argumentTypes []DataType, hasArgTypes bool, minArguments int, hasMinArgs bool) DataType {
	rt := returnType
	d := DataType{Kind: FUNCTION, ReturnType: &rt, HasArgTypes: hasArgTypes, HasMinArgs: hasMinArgs}
	if hasArgTypes {
		d.ArgumentTypes = argumentTypes
		if !hasMinArgs {
			d.MinArguments = len(argumentTypes)
			d.HasMinArgs = true
		} else {
			d.MinArguments = minArguments
		}
	}
	return d
}

// Equal performs the strict structural equality used by IsCompatible for
// scalars and as the base case for compound types; it recurses over
// compound parameters, matching _DataTypeDef.__eq__.
func (d DataType) Equal(o DataType) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case ARRAY, SET:
		return d.ValueNullable == o.ValueNullable && elemEqual(d.ValueType, o.ValueType)
	case MAPPING:
		return d.ValueNullable == o.ValueNullable &&
			elemEqual(d.KeyType, o.KeyType) && elemEqual(d.ValueType, o.ValueType)
	case FUNCTION:
		if !elemEqual(d.ReturnType, o.ReturnType) {
			return false
		}
		if d.HasArgTypes != o.HasArgTypes {
			return false
		}
		if d.HasArgTypes {
			if len(d.ArgumentTypes) != len(o.ArgumentTypes) {
				return false
			}
			for i := range d.ArgumentTypes {
				if !d.ArgumentTypes[i].Equal(o.ArgumentTypes[i]) {
					return false
				}
			}
		}
		return d.HasMinArgs == o.HasMinArgs && d.MinArguments == o.MinArguments
	default:
		return true
	}
}

func elemEqual(a, b *DataType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// IsCompatible checks if two data type definitions are compatible without
// any kind of conversion, per spec.md §3.1: reflexive, symmetric,
// UNDEFINED-absorbing, and recursive over compound parameters.
func IsCompatible(a, b DataType) bool {
	if a.Kind == UNDEFINED || b.Kind == UNDEFINED {
		return true
	}
	if a.IsScalar() && b.IsScalar() {
		if a.Kind == FUNCTION && b.Kind == FUNCTION {
			return functionCompatible(a, b)
		}
		return a.Equal(b)
	}
	if a.IsCompound() && b.IsCompound() {
		switch {
		case a.Kind == ARRAY && b.Kind == ARRAY:
			return IsCompatible(valueOf(a), valueOf(b))
		case a.Kind == SET && b.Kind == SET:
			return IsCompatible(valueOf(a), valueOf(b))
		case a.Kind == MAPPING && b.Kind == MAPPING:
			return IsCompatible(keyOf(a), keyOf(b)) && IsCompatible(valueOf(a), valueOf(b))
		}
	}
	return false
}

func functionCompatible(a, b DataType) bool {
	if !IsCompatible(retOf(a), retOf(b)) {
		return false
	}
	if a.HasArgTypes && b.HasArgTypes {
		if len(a.ArgumentTypes) != len(b.ArgumentTypes) {
			return false
		}
		for i := range a.ArgumentTypes {
			if !IsCompatible(a.ArgumentTypes[i], b.ArgumentTypes[i]) {
				return false
			}
		}
	}
	if a.HasMinArgs && b.HasMinArgs && a.MinArguments != b.MinArguments {
		return false
	}
	return true
}

func valueOf(d DataType) DataType {
	if d.ValueType == nil {
		return Undefined
	}
	return *d.ValueType
}

func keyOf(d DataType) DataType {
	if d.KeyType == nil {
		return Undefined
	}
	return *d.KeyType
}

func retOf(d DataType) DataType {
	if d.ReturnType == nil {
		return Undefined
	}
	return *d.ReturnType
}

// Value is a coerced runtime value together with the DataType it was
// coerced to. Exactly one payload field is meaningful, selected by Type.Kind.
type Value struct {
	Type  DataType
	Bool  bool
	Num   decimal.Decimal
	NaN   bool // see SPEC_FULL.md Open Question (b): Decimal has no native NaN
	Inf   int8 // 0 = finite, +1/-1 = positive/negative infinity (same reason)
	Str   string
	Bytes []byte
	Time  time.Time
	Delta time.Duration
	Arr   []Value
	// SetMembers preserves insertion order for deterministic iteration;
	// membership is still by value equality, matching Python set semantics
	// only insofar as duplicates are rejected by the constructor.
	SetMembers []Value
	MapKeys    []Value
	MapValues  []Value
	Func       *FunctionValue
}

// FunctionValue is a host-supplied callable boxed with its declared
// signature, per spec.md §9 "Function values".
type FunctionValue struct {
	Name string
	Type DataType
	Call func(args []Value) (Value, error)
}

// NewBool, NewFloat, etc. are small constructors used throughout the AST
// and builtins packages.
func NewBool(b bool) Value { return Value{Type: Boolean, Bool: b} }

func NewFloat(d decimal.Decimal) Value { return Value{Type: Float, Num: d} }

func NewNaN() Value { return Value{Type: Float, NaN: true} }

// NewInf builds the FLOAT value for the "inf"/"-inf" literal, per
// spec.md §4.1 "Reserved words". sign must be +1 or -1.
func NewInf(sign int8) Value { return Value{Type: Float, Inf: sign} }

func NewString(s string) Value { return Value{Type: String, Str: s} }

func NewBytes(b []byte) Value { return Value{Type: Bytes, Bytes: b} }

func NewNull() Value { return Value{Type: Null} }

func NewDatetime(t time.Time) Value { return Value{Type: Datetime, Time: t} }

func NewTimedelta(t time.Duration) Value { return Value{Type: Timedelta, Delta: t} }

func NewFunction(fv *FunctionValue) Value { return Value{Type: fv.Type, Func: fv} }

// NewArrayValue builds an ARRAY value, inferring the most specific member type
// when every member is the same (or NULL), per spec.md §3.1.
func NewArrayValue(members []Value) Value {
	vt, nullable := iterableMemberType(members)
	return Value{Type: NewArray(vt, nullable), Arr: members}
}

// NewSetValue builds a SET value from distinct members (de-duplicated by
// the caller/parser, as Python's set literal semantics require).
func NewSetValue(members []Value) Value {
	vt, nullable := iterableMemberType(members)
	return Value{Type: NewSet(vt, nullable), SetMembers: members}
}

// NewMappingValue builds a MAPPING value from parallel key/value slices.
func NewMappingValue(keys, values []Value) (Value, error) {
	kt, _ := iterableMemberType(keys)
	vt, nullable := iterableMemberType(values)
	mt, err := NewMapping(kt, vt, nullable)
	if err != nil {
		return Value{}, err
	}
	return Value{Type: mt, MapKeys: keys, MapValues: values}, nil
}

// iterableMemberType returns the data type of a slice's members if they're
// either all the same or NULL, else UNDEFINED, per spec.md §3.1's
// "iterable_member_value_type".
func iterableMemberType(members []Value) (DataType, bool) {
	seen := map[Kind]DataType{}
	sawNull := false
	for _, m := range members {
		if m.Type.Kind == NULL {
			sawNull = true
			continue
		}
		seen[m.Type.Kind] = m.Type
	}
	_ = sawNull // nullability always defaults to true, matching DataType.from_value
	if len(seen) == 1 {
		for _, t := range seen {
			return t, true
		}
	}
	return Undefined, true
}

// IsNumeric reports whether v is capable of being represented as a
// floating point value without loss of information, per spec.md/
// original_source is_numeric.
func (v Value) IsNumeric() bool { return v.Type.Kind == FLOAT }

// IsRealNumber additionally excludes NaN/Inf, per spec.md §4.3
// "ArithmeticComparison": "operands must coerce to real numbers".
func (v Value) IsRealNumber() bool {
	return v.Type.Kind == FLOAT && !v.NaN && v.Inf == 0
}

// IsNaturalNumber reports whether v is a real, non-negative, whole
// number, per spec.md §3.2 "each literal operand must be a natural
// number".
func (v Value) IsNaturalNumber() bool {
	if !v.IsRealNumber() {
		return false
	}
	if !v.Num.Equal(v.Num.Truncate(0)) {
		return false
	}
	return v.Num.Sign() >= 0
}

// IsTruthy implements spec.md §4.3 "Logic" truthiness: false, 0, empty
// string/array/set/mapping, and null are falsy; everything else truthy.
func (v Value) IsTruthy() bool {
	switch v.Type.Kind {
	case BOOLEAN:
		return v.Bool
	case FLOAT:
		if v.NaN || v.Inf != 0 {
			return true
		}
		return !v.Num.IsZero()
	case STRING:
		return v.Str != ""
	case BYTES:
		return len(v.Bytes) > 0
	case NULL:
		return false
	case ARRAY:
		return len(v.Arr) > 0
	case SET:
		return len(v.SetMembers) > 0
	case MAPPING:
		return len(v.MapKeys) > 0
	default:
		return true
	}
}

// FromFloat64 builds a decimal.Decimal the way coerce_value's _to_decimal
// helper does for native Go float64/int host values.
func FromFloat64(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}
