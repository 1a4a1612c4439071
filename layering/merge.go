// Package layering deep-copies and overlays viewer documents. Overlays are
// ordered strongest first: a stronger value wins unless it is unset (nil
// pointer, nil map or slice, zero scalar), in which case the weaker value
// shows through. Maps merge key by key; slices and arrays never merge
// element-wise, the strongest non-nil slice replaces the rest.
package layering

import "reflect"

// Clone returns a deep copy of value. Maps, slices, pointers and values held
// in interfaces are duplicated so the copy shares no mutable state.
func Clone[T any](value T) T {
	out := clone(reflect.ValueOf(&value).Elem())
	if !out.IsValid() {
		var zero T
		return zero
	}
	result, _ := out.Interface().(T)
	return result
}

// MergeLayers overlays snapshots ordered from strongest to weakest and returns
// a detached result.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	merged := clone(reflect.ValueOf(&layers[len(layers)-1]).Elem())
	for i := len(layers) - 2; i >= 0; i-- {
		merged = merge(reflect.ValueOf(&layers[i]).Elem(), merged)
	}
	if !merged.IsValid() {
		return zero
	}

	target := reflect.TypeOf(&zero).Elem()
	if merged.Type() != target {
		out := reflect.New(target).Elem()
		out.Set(merged.Convert(target))
		result, _ := out.Interface().(T)
		return result
	}
	result, _ := merged.Interface().(T)
	return result
}

func merge(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return clone(weak)
	}

	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return clone(weak)
		}
		switch strong.Elem().Kind() {
		case reflect.Map, reflect.Struct:
		default:
			// A set pointer to a scalar is explicit, even when it points at zero.
			return clone(strong)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Pointer && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		out := reflect.New(strong.Type().Elem())
		out.Elem().Set(merge(strong.Elem(), weakElem))
		return out
	case reflect.Interface:
		if strong.IsNil() {
			return clone(weak)
		}
		switch strong.Elem().Kind() {
		case reflect.Map, reflect.Struct, reflect.Pointer:
		default:
			// An explicit scalar behind an interface wins, even a zero one.
			return clone(strong)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Interface && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		merged := merge(strong.Elem(), weakElem)
		out := reflect.New(strong.Type()).Elem()
		out.Set(merged)
		return out
	case reflect.Struct:
		out := reflect.New(strong.Type()).Elem()
		sameType := weak.IsValid() && weak.Type() == strong.Type()
		for i := 0; i < strong.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			var weakField reflect.Value
			if sameType {
				weakField = weak.Field(i)
			}
			if merged := merge(strong.Field(i), weakField); merged.IsValid() {
				field.Set(merged)
			}
		}
		return out
	case reflect.Map:
		if strong.IsNil() {
			return clone(weak)
		}
		out := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && weak.Kind() == reflect.Map && !weak.IsNil() && weak.Type() == strong.Type() {
			iter := weak.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), clone(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			if existing := out.MapIndex(iter.Key()); existing.IsValid() {
				out.SetMapIndex(iter.Key(), merge(iter.Value(), existing))
				continue
			}
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		return out
	case reflect.Slice:
		if strong.IsNil() {
			return clone(weak)
		}
		return clone(strong)
	case reflect.Array:
		return clone(strong)
	default:
		if strong.IsZero() && weak.IsValid() && weak.Type() == strong.Type() {
			return clone(weak)
		}
		return clone(strong)
	}
}

func clone(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		if elem := clone(v.Elem()); elem.IsValid() {
			out.Elem().Set(elem)
		}
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		if elem := clone(v.Elem()); elem.IsValid() {
			out.Set(elem)
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			if copied := clone(v.Field(i)); copied.IsValid() {
				field.Set(copied)
			}
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), clone(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(clone(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(clone(v.Index(i)))
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
