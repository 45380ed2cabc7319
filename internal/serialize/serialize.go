// Package serialize converts resource property bags into CloudFormation
// property maps.
package serialize

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// PropertyMap is implemented by resources whose properties are free-form,
// such as custom resources.
type PropertyMap interface {
	CfnProperties() map[string]any
}

// Resource serializes a Go struct to CloudFormation resource properties.
// It handles:
// - field names from json tags (falling back to the Go name)
// - omitting nil/zero values, including nested structs that serialize empty
// - values implementing json.Marshaler (intrinsics, AttrRef, lazy values)
func Resource(v any) (map[string]any, error) {
	if pm, ok := v.(PropertyMap); ok {
		props, err := serializeValue(reflect.ValueOf(pm.CfnProperties()))
		if err != nil || props == nil {
			return map[string]any{}, err
		}
		return props.(map[string]any), nil
	}

	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil, nil
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("serialize: expected struct, got %s", val.Kind())
	}

	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name := FieldName(field)
		if name == "-" {
			continue
		}

		if isZeroValue(fieldVal) {
			continue
		}

		serialized, err := serializeValue(fieldVal)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// FieldName returns the CloudFormation property name for a struct field.
func FieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// isZeroValue returns true if the value is the zero value for its type.
// Booleans and numbers boxed in an interface are never zero: an explicit
// false or 0 is a value the template must carry.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return v.IsZero()
	default:
		return false
	}
}

// serializeValue converts a reflect.Value to a JSON-compatible value.
func serializeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		// Marshalers with pointer receivers must see the pointer.
		if v.Kind() == reflect.Ptr && v.CanInterface() {
			if m, ok := v.Interface().(json.Marshaler); ok {
				return fromMarshaler(m)
			}
		}
		return serializeValue(v.Elem())
	}

	if v.CanInterface() {
		if m, ok := v.Interface().(json.Marshaler); ok {
			return fromMarshaler(m)
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		props, err := Resource(v.Interface())
		if err != nil || len(props) == 0 {
			return nil, err
		}
		return props, nil

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := serializeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			val, err := serializeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			result[key] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, err
		}
		var result any
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		return result, nil
	}
}

func fromMarshaler(m json.Marshaler) (any, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// MissingRequired returns the dotted paths of every `cfn:"required"` field
// that is absent. Nested property types are only inspected when present.
func MissingRequired(v any) []string {
	var missing []string
	collectMissing(reflect.ValueOf(v), "", &missing)
	return missing
}

func collectMissing(val reflect.Value, prefix string, missing *[]string) {
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Struct:
	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			collectMissing(val.Index(i), fmt.Sprintf("%s[%d]", strings.TrimSuffix(prefix, "."), i)+".", missing)
		}
		return
	default:
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := FieldName(field)
		if name == "-" {
			continue
		}
		fieldVal := val.Field(i)
		if field.Tag.Get("cfn") == "required" && isAbsent(fieldVal) {
			*missing = append(*missing, prefix+name)
			continue
		}
		collectMissing(fieldVal, prefix+name+".", missing)
	}
}

// isAbsent is isZeroValue, except that an interface holding an empty
// string or empty list also counts as absent.
func isAbsent(v reflect.Value) bool {
	if v.Kind() == reflect.Interface && !v.IsNil() {
		elem := v.Elem()
		switch elem.Kind() {
		case reflect.String, reflect.Slice, reflect.Map:
			return isZeroValue(elem)
		}
		return false
	}
	return isZeroValue(v)
}
