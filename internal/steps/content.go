package steps

import (
	"reflect"
	"strings"
)

// HasContent reports whether v holds at least one populated value: a
// non-empty map or list, a non-blank string, a non-zero number, true, or a
// struct with any field that has content.
func HasContent(v interface{}) bool {
	if v == nil {
		return false
	}
	return hasContent(reflect.ValueOf(v))
}

// Populated reports whether raw, decoded as step n, carries any content.
// A slot holding {} or only unknown keys is not populated.
func Populated(n int, raw []byte) bool {
	d := Decode(n, raw)
	return d != nil && HasContent(d)
}

func hasContent(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Invalid:
		return false
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil() && hasContent(rv.Elem())
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.String:
		return strings.TrimSpace(rv.String()) != ""
	case reflect.Bool:
		return rv.Bool()
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if rv.Type().Field(i).IsExported() && hasContent(rv.Field(i)) {
				return true
			}
		}
		return false
	default:
		return !rv.IsZero()
	}
}
