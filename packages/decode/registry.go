package decode

import (
	"fmt"
	"go/token"
	"reflect"
	"slices"
	"sync"
)

// TypeKey is the JSON member carrying the contract name of a polymorphic value.
const TypeKey = "__type"

// Contract marks a concrete type that can stand in for an abstract contract.
// ContractName is matched against the TypeKey discriminator.
type Contract interface {
	ContractName() string
}

var contractType = reflect.TypeFor[Contract]()

// Registry maps each defining package to its declared contract types and
// caches the known subtypes computed from them. It is safe for concurrent use.
//
// Known subtypes of a package are computed at most once; the package is
// sealed afterwards and further declarations for it are rejected.
type Registry struct {
	mu           sync.Mutex
	declared     map[string][]reflect.Type
	known        map[string][]reflect.Type
	computations int
}

func NewRegistry() *Registry {
	return &Registry{
		declared: make(map[string][]reflect.Type),
		known:    make(map[string][]reflect.Type),
	}
}

// Declare registers contract types. Interface types are passed as typed nil
// pointers, e.g. (*Shape)(nil); concrete types as values or pointers.
func (r *Registry) Declare(samples ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sample := range samples {
		t := reflect.TypeOf(sample)
		if t == nil {
			return fmt.Errorf("%w: nil", ErrUnexportedType)
		}
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Name() == "" || !token.IsExported(t.Name()) {
			return fmt.Errorf("%w: %s", ErrUnexportedType, t)
		}

		pkg := t.PkgPath()
		if _, sealed := r.known[pkg]; sealed {
			return fmt.Errorf("%w: %s", ErrModuleSealed, pkg)
		}
		if !slices.Contains(r.declared[pkg], t) {
			r.declared[pkg] = append(r.declared[pkg], t)
		}
	}
	return nil
}

// MustDeclare is like Declare but panics on error. It is meant for init functions.
func (r *Registry) MustDeclare(samples ...any) {
	if err := r.Declare(samples...); err != nil {
		panic(err)
	}
}

// KnownTypes returns the concrete contract types of t's defining package that
// implement at least one declared abstract contract of that package.
func (r *Registry) KnownTypes(t reflect.Type) []reflect.Type {
	pkg := definingType(t).PkgPath()

	r.mu.Lock()
	defer r.mu.Unlock()

	if known, ok := r.known[pkg]; ok {
		return slices.Clone(known)
	}

	known := findKnownTypes(r.declared[pkg])
	r.known[pkg] = known
	r.computations++
	return slices.Clone(known)
}

// Lookup resolves the subtype of base whose ContractName equals name.
func (r *Registry) Lookup(base reflect.Type, name string) (reflect.Type, bool) {
	for _, t := range r.KnownTypes(base) {
		ptr := reflect.PointerTo(t)
		if !ptr.Implements(base) {
			continue
		}
		if reflect.New(t).Interface().(Contract).ContractName() == name {
			return t, true
		}
	}
	return nil, false
}

// IsAbstract reports whether t is an interface declared as a contract.
func (r *Registry) IsAbstract(t reflect.Type) bool {
	if t.Kind() != reflect.Interface {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.declared[t.PkgPath()], t)
}

// holdsAbstract reports whether a value of type t can carry an abstract
// contract through pointers, slices, arrays, maps or exported struct fields.
func (r *Registry) holdsAbstract(t reflect.Type) bool {
	return r.reachesAbstract(t, make(map[reflect.Type]bool))
}

func (r *Registry) reachesAbstract(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Interface:
		return r.IsAbstract(t)
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return r.reachesAbstract(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if f.IsExported() && !f.Anonymous && r.reachesAbstract(f.Type, seen) {
				return true
			}
		}
	}
	return false
}

func findKnownTypes(declared []reflect.Type) []reflect.Type {
	var abstract []reflect.Type
	for _, t := range declared {
		if t.Kind() == reflect.Interface {
			abstract = append(abstract, t)
		}
	}

	known := make([]reflect.Type, 0, len(declared))
	for _, t := range declared {
		if t.Kind() == reflect.Interface {
			continue
		}
		ptr := reflect.PointerTo(t)
		if !ptr.Implements(contractType) {
			continue
		}
		if slices.ContainsFunc(abstract, ptr.Implements) {
			known = append(known, t)
		}
	}
	return known
}

// definingType strips pointers, slices, arrays and maps down to the named type.
func definingType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		default:
			return t
		}
	}
}
