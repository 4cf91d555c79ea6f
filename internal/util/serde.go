package util

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
)

// MarshalSafe serializes a value to JSON after removing repeated object
// references. The first occurrence of any pointer, map, or slice is kept;
// any later occurrence of the same reference is dropped from the output
// (absent key for objects, null for array elements). This breaks cycles,
// and it also drops legitimately shared non-cyclic references, which is
// lossy. Callers that need faithful shared references must not use this.
func MarshalSafe(v any) ([]byte, error) {
	if v == nil {
		return json.Marshal(nil)
	}
	sanitized, _ := sanitize(reflect.ValueOf(v), map[uintptr]bool{})
	return json.Marshal(sanitized)
}

// sanitize returns a JSON-encodable copy of v. The second return value is
// false when the value is a repeated reference and must be dropped.
func sanitize(v reflect.Value, seen map[uintptr]bool) (any, bool) {
	if !v.IsValid() {
		return nil, true
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, true
		}
		return sanitize(v.Elem(), seen)
	case reflect.Ptr:
		if v.IsNil() {
			return nil, true
		}
		id := v.Pointer()
		if seen[id] {
			return nil, false
		}
		seen[id] = true
		return sanitize(v.Elem(), seen)
	case reflect.Map:
		if v.IsNil() {
			return nil, true
		}
		id := v.Pointer()
		if seen[id] {
			return nil, false
		}
		seen[id] = true
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			value, keep := sanitize(iter.Value(), seen)
			if !keep {
				continue
			}
			out[fmt.Sprint(iter.Key().Interface())] = value
		}
		return out, true
	case reflect.Slice:
		if v.IsNil() {
			return nil, true
		}
		id := v.Pointer()
		if seen[id] {
			return nil, false
		}
		seen[id] = true
		return sanitizeElements(v, seen), true
	case reflect.Array:
		return sanitizeElements(v, seen), true
	case reflect.Struct:
		return sanitizeStruct(v, seen), true
	default:
		return v.Interface(), true
	}
}

func sanitizeElements(v reflect.Value, seen map[uintptr]bool) []any {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		// dropped array elements become null, matching replacer semantics
		element, keep := sanitize(v.Index(i), seen)
		if keep {
			out[i] = element
		}
	}
	return out
}

func sanitizeStruct(v reflect.Value, seen map[uintptr]bool) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName := strings.SplitN(tag, ",", 2)[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		value, keep := sanitize(v.Field(i), seen)
		if !keep {
			continue
		}
		out[name] = value
	}
	return out
}
