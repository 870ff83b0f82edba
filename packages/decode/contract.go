package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

var nullLiteral = []byte("null")

// decodeContract decodes body into rv, which must be settable.
func decodeContract(registry *Registry, body []byte, rv reflect.Value) error {
	t := rv.Type()
	if !registry.holdsAbstract(t) {
		p := reflect.New(t)
		if err := strictUnmarshal(body, p.Interface()); err != nil {
			return err
		}
		rv.Set(p.Elem())
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(body), nullLiteral) {
		rv.SetZero()
		return nil
	}

	switch t.Kind() {
	case reflect.Interface:
		v, err := decodeVariant(registry, body, t)
		if err != nil {
			return err
		}
		rv.Set(v)
		return nil
	case reflect.Pointer:
		p := reflect.New(t.Elem())
		if err := decodeContract(registry, body, p.Elem()); err != nil {
			return err
		}
		rv.Set(p)
		return nil
	case reflect.Slice, reflect.Array:
		return decodeElements(registry, body, rv)
	case reflect.Map:
		return decodeEntries(registry, body, rv)
	case reflect.Struct:
		return decodeFields(registry, body, rv)
	default:
		return fmt.Errorf("cannot decode contract into %s", t)
	}
}

func decodeVariant(registry *Registry, body []byte, base reflect.Type) (reflect.Value, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return reflect.Value{}, err
	}

	raw, ok := members[TypeKey]
	if !ok {
		return reflect.Value{}, fmt.Errorf("missing %q discriminator for %s", TypeKey, base)
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return reflect.Value{}, fmt.Errorf("invalid %q discriminator: %w", TypeKey, err)
	}

	variant, ok := registry.Lookup(base, name)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %q for %s", errNoSubtypes, name, base)
	}

	delete(members, TypeKey)
	stripped, err := json.Marshal(members)
	if err != nil {
		return reflect.Value{}, err
	}

	v := reflect.New(variant)
	if err := decodeContract(registry, stripped, v.Elem()); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

func decodeElements(registry *Registry, body []byte, rv reflect.Value) error {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return err
	}

	t := rv.Type()
	if t.Kind() == reflect.Slice {
		rv.Set(reflect.MakeSlice(t, len(items), len(items)))
	} else if len(items) != t.Len() {
		return fmt.Errorf("expected %d elements, got %d", t.Len(), len(items))
	}

	for i, item := range items {
		if err := decodeContract(registry, item, rv.Index(i)); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func decodeEntries(registry *Registry, body []byte, rv reflect.Value) error {
	t := rv.Type()
	if t.Key().Kind() != reflect.String {
		return fmt.Errorf("cannot decode contract map with %s keys", t.Key())
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return err
	}

	m := reflect.MakeMapWithSize(t, len(entries))
	for key, raw := range entries {
		v := reflect.New(t.Elem()).Elem()
		if err := decodeContract(registry, raw, v); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		m.SetMapIndex(reflect.ValueOf(key).Convert(t.Key()), v)
	}
	rv.Set(m)
	return nil
}

// decodeFields strictly decodes the plain members of a struct, then resolves
// the fields holding abstract contracts one by one.
func decodeFields(registry *Registry, body []byte, rv reflect.Value) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return err
	}

	type slot struct {
		index int
		raw   json.RawMessage
	}
	t := rv.Type()
	var slots []slot
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous || !registry.holdsAbstract(f.Type) {
			continue
		}
		name, ok := jsonName(f)
		if !ok {
			continue
		}
		if key, found := memberKey(members, name); found {
			slots = append(slots, slot{index: i, raw: members[key]})
			delete(members, key)
		}
	}

	rest, err := json.Marshal(members)
	if err != nil {
		return err
	}
	p := reflect.New(t)
	if err := strictUnmarshal(rest, p.Interface()); err != nil {
		return err
	}
	for _, s := range slots {
		if err := decodeContract(registry, s.raw, p.Elem().Field(s.index)); err != nil {
			return fmt.Errorf("field %s: %w", t.Field(s.index).Name, err)
		}
	}
	rv.Set(p.Elem())
	return nil
}

func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, true
}

// memberKey finds name among members, falling back to a case-insensitive
// match the way encoding/json does.
func memberKey(members map[string]json.RawMessage, name string) (string, bool) {
	if _, ok := members[name]; ok {
		return name, true
	}
	for key := range members {
		if strings.EqualFold(key, name) {
			return key, true
		}
	}
	return "", false
}
