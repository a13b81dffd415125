// Package typekey derives stable string keys from reflect types and
// introspects provider callables and struct targets.
package typekey

import (
	"reflect"
	"strconv"
	"sync"
)

var keyCache sync.Map

// For returns the key for a compile-time type.
func For[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		t = reflect.TypeOf((*T)(nil)).Elem()
	}
	return Key(t)
}

// Key returns a stable, human-readable key for t, unique per type.
func Key(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if cached, ok := keyCache.Load(t); ok {
		return cached.(string)
	}

	key := buildKey(t)
	keyCache.Store(t, key)
	return key
}

func buildKey(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + buildKey(t.Elem())
	case reflect.Slice:
		return "[]" + buildKey(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + buildKey(t.Elem())
	case reflect.Map:
		return "map[" + buildKey(t.Key()) + "]" + buildKey(t.Elem())
	case reflect.Chan:
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + buildKey(t.Elem())
		case reflect.SendDir:
			return "chan<- " + buildKey(t.Elem())
		default:
			return "chan " + buildKey(t.Elem())
		}
	case reflect.Func:
		return t.String()
	default:
		if t.PkgPath() != "" {
			return t.PkgPath() + "." + t.Name()
		}
		return t.Name()
	}
}

// KeyOf returns the key for a value's dynamic type.
func KeyOf(v any) string {
	if v == nil {
		return "<nil>"
	}
	return Key(reflect.TypeOf(v))
}

// IsNil reports whether v is nil, including typed nils boxed in an
// interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
