package entitycache

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldResolver reads the value of a named field from a record.
// It returns ErrFieldNotFound (possibly wrapped) when the field does not exist.
type FieldResolver func(record any, field string) (any, error)

// idFieldCandidates are tried in order when Config.IDField is empty.
var idFieldCandidates = []string{"ID", "Id", "id", IDFieldKey}

// ResolveField is the default FieldResolver. For structs it matches, in
// order, the exact Go field name, the json, bun or msgpack tag name, and a
// case-insensitive Go field name. Maps with string keys are looked up directly.
// Pointers are dereferenced.
func ResolveField(record any, field string) (any, error) {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: %q on nil record", ErrFieldNotFound, field)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		value := v.MapIndex(reflect.ValueOf(field).Convert(v.Type().Key()))
		if value.IsValid() && value.CanInterface() {
			return value.Interface(), nil
		}
	case reflect.Struct:
		if index, ok := structFieldIndex(v.Type(), field); ok {
			fv := v.FieldByIndex(index)
			if fv.CanInterface() {
				return fv.Interface(), nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %q on %T", ErrFieldNotFound, field, record)
}

// ResolveID reads the primary identifier of record. An empty idField tries
// the usual identifier field names.
func ResolveID(resolve FieldResolver, record any, idField string) (any, error) {
	if idField != "" {
		return resolve(record, idField)
	}

	var lastErr error
	for _, candidate := range idFieldCandidates {
		value, err := resolve(record, candidate)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func structFieldIndex(t reflect.Type, name string) ([]int, bool) {
	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return f.Index, true
	}

	var folded []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		for _, tag := range []string{"json", "bun", "msgpack"} {
			if tagName(f.Tag.Get(tag)) == name {
				return f.Index, true
			}
		}
		if folded == nil && strings.EqualFold(f.Name, name) {
			folded = f.Index
		}
	}

	if folded != nil {
		return folded, true
	}
	return nil, false
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
