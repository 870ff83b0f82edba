package decode

import (
	"encoding/json"
	"reflect"
)

var marshalerType = reflect.TypeFor[json.Marshaler]()

// Encode marshals v as JSON, adding the TypeKey discriminator to v itself when
// it is a Contract and to every Contract held behind an interface, however
// deeply nested in pointers, slices, arrays, string-keyed maps and exported
// struct fields. Contracts in concretely typed slots are written untagged.
func Encode(v any, indent bool) ([]byte, error) {
	tree, err := encodeValue(reflect.ValueOf(v), true)
	if err != nil {
		return nil, err
	}
	if indent {
		return json.MarshalIndent(tree, "", "  ")
	}
	return json.Marshal(tree)
}

func encodeValue(rv reflect.Value, top bool) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return rv.Interface(), nil
		}
	}

	if top || rv.Kind() == reflect.Interface {
		if c, ok := rv.Interface().(Contract); ok {
			return tagged(rv, c)
		}
	}
	if rv.Type().Implements(marshalerType) || !mayHoldContract(rv.Type()) {
		return rv.Interface(), nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return encodeValue(rv.Elem(), false)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Interface(), nil
		}
		items := make([]any, rv.Len())
		for i := range items {
			item, err := encodeValue(rv.Index(i), false)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return rv.Interface(), nil
		}
		entries := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entry, err := encodeValue(iter.Value(), false)
			if err != nil {
				return nil, err
			}
			entries[iter.Key().String()] = entry
		}
		return entries, nil
	case reflect.Struct:
		return encodeFields(rv)
	default:
		return rv.Interface(), nil
	}
}

// encodeFields marshals a struct with encoding/json and re-encodes the
// members whose fields may hold contracts.
func encodeFields(rv reflect.Value) (any, error) {
	data, err := json.Marshal(rv.Interface())
	if err != nil {
		return nil, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil || members == nil {
		return json.RawMessage(data), nil
	}

	t := rv.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous || !mayHoldContract(f.Type) {
			continue
		}
		name, ok := jsonName(f)
		if !ok {
			continue
		}
		if _, present := members[name]; !present {
			continue
		}
		member, err := encodeValue(rv.Field(i), false)
		if err != nil {
			return nil, err
		}
		if members[name], err = json.Marshal(member); err != nil {
			return nil, err
		}
	}
	return members, nil
}

func tagged(rv reflect.Value, c Contract) (any, error) {
	var tree any = c
	inner := rv
	for inner.Kind() == reflect.Interface || inner.Kind() == reflect.Pointer {
		inner = inner.Elem()
	}
	if inner.Kind() == reflect.Struct && !isMarshaler(inner.Type()) && mayHoldContract(inner.Type()) {
		fields, err := encodeFields(inner)
		if err != nil {
			return nil, err
		}
		tree = fields
	}

	data, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil || members == nil {
		return json.RawMessage(data), nil
	}
	name, err := json.Marshal(c.ContractName())
	if err != nil {
		return nil, err
	}
	members[TypeKey] = name
	return members, nil
}

func isMarshaler(t reflect.Type) bool {
	return t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}

// mayHoldContract reports whether a value of type t can reach an interface,
// the only place a tagged Contract may sit below the top level.
func mayHoldContract(t reflect.Type) bool {
	return reachesInterface(t, make(map[reflect.Type]bool))
}

func reachesInterface(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return reachesInterface(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if f.IsExported() && !f.Anonymous && reachesInterface(f.Type, seen) {
				return true
			}
		}
	}
	return false
}
