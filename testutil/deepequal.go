package testutil

import (
	"fmt"
	"math"
	"reflect"

	"github.com/leftmike/tilejit/sql"
)

const floatTolerance = 1e-9

var valueType = reflect.TypeOf((*sql.Value)(nil)).Elem()

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return sql.NullString
	}
	if v.CanInterface() && v.Type().Implements(valueType) {
		return sql.Format(v.Interface().(sql.Value))
	}
	return fmt.Sprintf("%#v", v)
}

func floatsEqual(f1, f2 float64) bool {
	if f1 == f2 {
		return true
	}
	return math.Abs(f1-f2) <= floatTolerance*math.Max(math.Abs(f1), math.Abs(f2))
}

// equalValues compares two non-nil sql values of the same type; decimals which differ only by
// rounding are equal.
func equalValues(v1, v2 sql.Value) bool {
	if f1, ok := v1.(sql.Float64Value); ok {
		return floatsEqual(float64(f1), float64(v2.(sql.Float64Value)))
	}
	if b1, ok := v1.(sql.BytesValue); ok {
		return string(b1) == string(v2.(sql.BytesValue))
	}
	return sql.Compare(v1, v2) == 0
}

func mismatch(path string, v1, v2 reflect.Value) (bool, string) {
	return false, fmt.Sprintf("%s: %s != %s\n", path, formatValue(v1), formatValue(v2))
}

func deepValueEqual(path string, v1, v2 reflect.Value) (bool, string) {
	if !v1.IsValid() || !v2.IsValid() {
		if v1.IsValid() != v2.IsValid() {
			return false, fmt.Sprintf("%s: only one value is valid\n", path)
		}
		return true, ""
	}
	if v1.Type() != v2.Type() {
		return false, fmt.Sprintf("%s: %s != %s\n", path, v1.Type(), v2.Type())
	}

	switch v1.Kind() {
	case reflect.Array, reflect.Slice:
		if v1.Kind() == reflect.Slice {
			if v1.IsNil() != v2.IsNil() || v1.Len() != v2.Len() {
				return false, fmt.Sprintf("%s: length %d != length %d\n", path, v1.Len(),
					v2.Len())
			}
			if v1.Pointer() == v2.Pointer() {
				return true, ""
			}
		}
		for i := 0; i < v1.Len(); i++ {
			if ok, s := deepValueEqual(fmt.Sprintf("%s[%d]", path, i), v1.Index(i),
				v2.Index(i)); !ok {

				return false, s
			}
		}
		return true, ""
	case reflect.Interface:
		if v1.IsNil() || v2.IsNil() {
			if v1.IsNil() != v2.IsNil() {
				return mismatch(path, v1.Elem(), v2.Elem())
			}
			return true, ""
		}
		if v1.Elem().Type() != v2.Elem().Type() {
			return false, fmt.Sprintf("%s: %s != %s\n", path, v1.Elem().Type(),
				v2.Elem().Type())
		}
		if v1.Type() == valueType {
			if !equalValues(v1.Interface().(sql.Value), v2.Interface().(sql.Value)) {
				return mismatch(path, v1.Elem(), v2.Elem())
			}
			return true, ""
		}
		return deepValueEqual(path, v1.Elem(), v2.Elem())
	case reflect.Ptr:
		if v1.Pointer() == v2.Pointer() {
			return true, ""
		}
		return deepValueEqual("(*"+path+")", v1.Elem(), v2.Elem())
	case reflect.Struct:
		for i, n := 0, v1.NumField(); i < n; i++ {
			if ok, s := deepValueEqual(path+"."+v1.Type().Field(i).Name, v1.Field(i),
				v2.Field(i)); !ok {

				return false, s
			}
		}
		return true, ""
	case reflect.Map:
		if v1.IsNil() != v2.IsNil() || v1.Len() != v2.Len() {
			return false, fmt.Sprintf("%s: %d entries != %d entries\n", path, v1.Len(),
				v2.Len())
		}
		if v1.Pointer() == v2.Pointer() {
			return true, ""
		}
		for _, k := range v1.MapKeys() {
			kpath := fmt.Sprintf("%s[%v]", path, k)
			val2 := v2.MapIndex(k)
			if !val2.IsValid() {
				return false, fmt.Sprintf("%s: missing\n", kpath)
			}
			if ok, s := deepValueEqual(kpath, v1.MapIndex(k), val2); !ok {
				return false, s
			}
		}
		return true, ""
	case reflect.Func:
		if v1.IsNil() && v2.IsNil() {
			return true, ""
		}
		return false, fmt.Sprintf("%s: functions are not comparable\n", path)
	case reflect.Float32, reflect.Float64:
		if !floatsEqual(v1.Float(), v2.Float()) {
			return mismatch(path, v1, v2)
		}
		return true, ""
	default:
		if v1.Interface() != v2.Interface() {
			return mismatch(path, v1, v2)
		}
		return true, ""
	}
}

// DeepEqual is like reflect.DeepEqual except that sql values are compared as values, floating
// point numbers are allowed to differ by rounding, and it optionally returns the path to the
// first difference.
func DeepEqual(x, y interface{}, trc ...*string) bool {
	if len(trc) > 1 {
		panic("testutil.DeepEqual: more than one optional argument")
	}

	var eq bool
	var s string
	if x == nil || y == nil {
		eq = x == y
		if !eq {
			s = fmt.Sprintf("%#v != %#v\n", x, y)
		}
	} else {
		eq, s = deepValueEqual("value", reflect.ValueOf(x), reflect.ValueOf(y))
	}

	if len(trc) == 1 && trc[0] != nil {
		*trc[0] = s
	}
	return eq
}
