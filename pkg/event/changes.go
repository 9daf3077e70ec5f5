package event

import (
	"reflect"
	"strings"
)

// Changes compares two values of the same struct type field by field and
// returns {"old": ..., "new": ...} for every json field that differs.
// Embedded structs are flattened.
func Changes(old, new interface{}) map[string]interface{} {
	changes := make(map[string]interface{})
	if old == nil || new == nil {
		return changes
	}

	oldFields := fields(old)
	for name, newValue := range fields(new) {
		oldValue, exists := oldFields[name]
		if !exists || reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		changes[name] = map[string]interface{}{
			"old": oldValue,
			"new": newValue,
		}
	}
	return changes
}

func fields(obj interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return result
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return result
	}
	collect(val, result)
	return result
}

func collect(val reflect.Value, into map[string]interface{}) {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collect(val.Field(i), into)
			continue
		}
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		into[name] = derefValue(val.Field(i))
	}
}

func derefValue(v reflect.Value) interface{} {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}
