package attrs

import (
	"reflect"
	"sort"
)

// Attrs maps attribute names to evaluated values.
type Attrs map[string]any

// Clone returns a shallow copy. Cloning nil returns nil.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Get returns the value for key and whether it was present.
func (a Attrs) Get(key string) (any, bool) {
	v, ok := a[key]
	return v, ok
}

// Keys returns the attribute names in sorted order.
func (a Attrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether two snapshots hold the same keys with Equal values.
func (a Attrs) Equal(b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// Diff returns the keys of next whose values differ from prev, the keys new
// in next, and the keys dropped from prev (with a nil value). It returns nil
// when nothing changed.
func Diff(prev, next Attrs) Attrs {
	var delta Attrs
	for k, nv := range next {
		pv, ok := prev[k]
		if ok && Equal(pv, nv) {
			continue
		}
		if delta == nil {
			delta = make(Attrs)
		}
		delta[k] = nv
	}
	for k := range prev {
		if _, ok := next[k]; ok {
			continue
		}
		if delta == nil {
			delta = make(Attrs)
		}
		delta[k] = nil
	}
	return delta
}

// Equal compares two attribute values. Primitives and comparable value types
// compare by value; pointers, maps, slices, funcs and channels compare by
// identity. Structs and arrays compare element by element under the same
// rule, so a struct holding a slice equals itself.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return equalValue(reflect.ValueOf(a), reflect.ValueOf(b))
}

func equalValue(va, vb reflect.Value) bool {
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Slice:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return va.UnsafePointer() == vb.UnsafePointer() && va.Len() == vb.Len()
	case reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return equalValue(va.Elem(), vb.Elem())
	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !equalValue(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < va.Len(); i++ {
			if !equalValue(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true
	}
	return va.Equal(vb)
}
