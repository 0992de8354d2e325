package types

import "fmt"

// StructuralEqual implements spec.md §4.3 "Comparison (eq/ne)": structural
// equality. NULL == NULL is true. Cross-type compare is always false;
// a Value whose kind is UNDEFINED gets no special case and equals
// nothing. NaN compares false against everything, including itself.
func StructuralEqual(a, b Value) bool {
	if a.NaN || b.NaN {
		return false
	}
	if a.Type.Kind != b.Type.Kind {
		return false
	}
	switch a.Type.Kind {
	case NULL:
		return true
	case BOOLEAN:
		return a.Bool == b.Bool
	case FLOAT:
		if a.Inf != 0 || b.Inf != 0 {
			return a.Inf == b.Inf
		}
		return a.Num.Equal(b.Num)
	case STRING:
		return a.Str == b.Str
	case BYTES:
		return string(a.Bytes) == string(b.Bytes)
	case DATETIME:
		return a.Time.Equal(b.Time)
	case TIMEDELTA:
		return a.Delta == b.Delta
	case ARRAY:
		if len(a.Arr) != len(b.Arr) {
			return false
		}
		for i := range a.Arr {
			if !StructuralEqual(a.Arr[i], b.Arr[i]) {
				return false
			}
		}
		return true
	case SET:
		if len(a.SetMembers) != len(b.SetMembers) {
			return false
		}
		for _, am := range a.SetMembers {
			if !memberOf(am, b.SetMembers) {
				return false
			}
		}
		return true
	case MAPPING:
		if len(a.MapKeys) != len(b.MapKeys) {
			return false
		}
		for i, ak := range a.MapKeys {
			idx := indexOfKey(b.MapKeys, ak)
			if idx < 0 || !StructuralEqual(a.MapValues[i], b.MapValues[idx]) {
				return false
			}
		}
		return true
	case FUNCTION:
		return a.Func == b.Func
	default:
		return false
	}
}

func memberOf(v Value, set []Value) bool {
	for _, m := range set {
		if StructuralEqual(v, m) {
			return true
		}
	}
	return false
}

func indexOfKey(keys []Value, key Value) int {
	for i, k := range keys {
		if StructuralEqual(k, key) {
			return i
		}
	}
	return -1
}

// Contains implements spec.md §4.3 "Contains": x in y succeeds if y is an
// array/set/mapping/string and contains x. For mappings, checks keys. For
// strings, checks substring.
func Contains(needle, haystack Value) (bool, error) {
	switch haystack.Type.Kind {
	case ARRAY:
		return memberOf(needle, haystack.Arr), nil
	case SET:
		return memberOf(needle, haystack.SetMembers), nil
	case MAPPING:
		return indexOfKey(haystack.MapKeys, needle) >= 0, nil
	case STRING:
		if needle.Type.Kind != STRING {
			return false, fmt.Errorf("data type mismatch")
		}
		return containsSubstring(haystack.Str, needle.Str), nil
	default:
		return false, fmt.Errorf("data type mismatch")
	}
}

func containsSubstring(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// Repr renders a Value for diagnostics (disassembly), not evaluation.
func Repr(v Value) string {
	switch v.Type.Kind {
	case NULL:
		return "null"
	case BOOLEAN:
		if v.Bool {
			return "true"
		}
		return "false"
	case FLOAT:
		if v.NaN {
			return "nan"
		}
		if v.Inf > 0 {
			return "inf"
		}
		if v.Inf < 0 {
			return "-inf"
		}
		return v.Num.String()
	case STRING:
		return fmt.Sprintf("%q", v.Str)
	case BYTES:
		return fmt.Sprintf("b%q", string(v.Bytes))
	case DATETIME:
		return v.Time.Format("2006-01-02T15:04:05")
	case TIMEDELTA:
		return v.Delta.String()
	case ARRAY:
		return reprSlice(v.Arr, "[", "]")
	case SET:
		return reprSlice(v.SetMembers, "{", "}")
	case MAPPING:
		out := "{"
		for i, k := range v.MapKeys {
			if i > 0 {
				out += ", "
			}
			out += Repr(k) + ": " + Repr(v.MapValues[i])
		}
		return out + "}"
	case FUNCTION:
		return "<function " + v.Func.Name + ">"
	default:
		return "<undefined>"
	}
}

func reprSlice(members []Value, open, closing string) string {
	out := open
	for i, m := range members {
		if i > 0 {
			out += ", "
		}
		out += Repr(m)
	}
	return out + closing
}
