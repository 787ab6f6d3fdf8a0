package runtime

import "reflect"

// IsAbsent reports whether v is nil or a chain of pointers/interfaces ending in nil.
// Zero values such as 0 or "" are present.
func IsAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	for {
		switch rv.Kind() {
		case reflect.Pointer, reflect.Interface:
			if rv.IsNil() {
				return true
			}
			rv = rv.Elem()
		case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return rv.IsNil()
		default:
			return false
		}
	}
}
