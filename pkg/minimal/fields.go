package minimal

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
)

// tagName is the struct tag that renames a field: `state:"name"`. A tag
// of "-" hides the field.
const tagName = "state"

// field resolves name on a *struct or *map[string]any.
type field struct {
	m    *map[string]any
	v    reflect.Value
	name string
}

func resolve[T any](obj *T, name string) (field, error) {
	if obj == nil {
		return field{}, fmt.Errorf("%w: nil pointer", ErrUnsupported)
	}
	if m, ok := any(obj).(*map[string]any); ok {
		return field{m: m, name: name}, nil
	}

	rv := reflect.ValueOf(obj).Elem()
	if rv.Kind() != reflect.Struct {
		return field{}, fmt.Errorf("%w: %T", ErrUnsupported, obj)
	}
	idx, ok := fieldIndex(rv.Type(), name)
	if !ok {
		return field{}, fmt.Errorf("%w: %q on %T", ErrUnknownField, name, obj)
	}
	return field{v: rv.Field(idx), name: name}, nil
}

// fieldIndex finds the exported field addressed by name, preferring a
// matching tag over a matching Go field name.
func fieldIndex(t reflect.Type, name string) (int, bool) {
	byName := -1
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(sf.Tag.Get(tagName), ",")
		if tag == "-" {
			continue
		}
		if tag == name {
			return i, true
		}
		if tag == "" && sf.Name == name && byName < 0 {
			byName = i
		}
	}
	return byName, byName >= 0
}

func (f field) get() (any, bool) {
	if f.m != nil {
		v, ok := (*f.m)[f.name]
		return v, ok
	}
	return f.v.Interface(), true
}

// check reports whether value can be stored in the field.
func (f field) check(value any) error {
	if f.m != nil {
		return nil
	}

	if value == nil {
		switch f.v.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return nil
		}
		return fmt.Errorf("%w: nil to %s %s", ErrFieldType, f.name, f.v.Type())
	}

	if t := reflect.TypeOf(value); !t.AssignableTo(f.v.Type()) {
		return fmt.Errorf("%w: %s to %s %s", ErrFieldType, t, f.name, f.v.Type())
	}
	return nil
}

func (f field) set(value any) error {
	if err := f.check(value); err != nil {
		return err
	}

	if f.m != nil {
		if *f.m == nil {
			*f.m = make(map[string]any)
		}
		(*f.m)[f.name] = value
		return nil
	}

	if value == nil {
		f.v.SetZero()
		return nil
	}
	f.v.Set(reflect.ValueOf(value))
	return nil
}

// snapshot copies the addressable fields of obj into a new map.
func snapshot[T any](obj *T) map[string]any {
	if obj == nil {
		return nil
	}
	if m, ok := any(obj).(*map[string]any); ok {
		out := make(map[string]any, len(*m))
		maps.Copy(out, *m)
		return out
	}

	rv := reflect.ValueOf(obj).Elem()
	if rv.Kind() != reflect.Struct {
		return nil
	}
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(sf.Tag.Get(tagName), ",")
		if name == "" {
			name = sf.Name
		}
		// Keep only the field Get would resolve the name to.
		if idx, ok := fieldIndex(t, name); ok && idx == i {
			out[name] = rv.Field(i).Interface()
		}
	}
	return out
}
