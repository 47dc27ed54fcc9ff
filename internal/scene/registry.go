package scene

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrTypeExists      = errors.New("scene: type already registered")
	ErrInvalidTypeName = errors.New("scene: invalid type name")
	ErrConstructorNil  = errors.New("scene: constructor is nil")
	ErrModuleExists    = errors.New("scene: module already registered")
	ErrModuleNotFound  = errors.New("scene: module not found")
)

// Constructor builds a fresh, unreferenced object.
type Constructor func() Object

// Module extends a registry with new types when loaded.
type Module func(r *Registry) error

// Registry maps (kind, type name) to constructors. It is owned by one
// interpreter and never shared between ranks.
type Registry struct {
	types   map[Kind]map[string]Constructor
	modules map[string]Module
	loaded  map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:   make(map[Kind]map[string]Constructor),
		modules: make(map[string]Module),
		loaded:  make(map[string]bool),
	}
}

// Register adds a constructor for typeName under kind.
func (r *Registry) Register(kind Kind, typeName string, ctor Constructor) error {
	if ctor == nil {
		return ErrConstructorNil
	}
	if !isValidTypeName(typeName) {
		return fmt.Errorf("%w: %q", ErrInvalidTypeName, typeName)
	}
	byName, ok := r.types[kind]
	if !ok {
		byName = make(map[string]Constructor)
		r.types[kind] = byName
	}
	if _, ok := byName[typeName]; ok {
		return fmt.Errorf("%w: %s %q", ErrTypeExists, kind, typeName)
	}
	byName[typeName] = ctor
	return nil
}

// Create builds a new object, or reports false when no constructor is
// registered for the pair.
func (r *Registry) Create(kind Kind, typeName string) (Object, bool) {
	ctor, ok := r.types[kind][typeName]
	if !ok {
		return nil, false
	}
	obj := ctor()
	if obj == nil {
		return nil, false
	}
	return obj, true
}

// Types returns the registered type names of kind in sorted order.
func (r *Registry) Types(kind Kind) []string {
	out := make([]string, 0, len(r.types[kind]))
	for name := range r.types[kind] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AddModule makes a module available to LoadModule.
func (r *Registry) AddModule(name string, m Module) error {
	name = strings.TrimSpace(name)
	if m == nil {
		return ErrConstructorNil
	}
	if !isValidTypeName(name) {
		return fmt.Errorf("%w: module %q", ErrInvalidTypeName, name)
	}
	if _, ok := r.modules[name]; ok {
		return fmt.Errorf("%w: %q", ErrModuleExists, name)
	}
	r.modules[name] = m
	return nil
}

// LoadModule runs the named module's initializer once. Loading an already
// loaded module is a no-op.
func (r *Registry) LoadModule(name string) error {
	m, ok := r.modules[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrModuleNotFound, name)
	}
	if r.loaded[name] {
		return nil
	}
	if err := m(r); err != nil {
		return fmt.Errorf("scene: init module %q: %w", name, err)
	}
	r.loaded[name] = true
	return nil
}

// Loaded returns loaded module names in sorted order.
func (r *Registry) Loaded() []string {
	out := make([]string, 0, len(r.loaded))
	for name := range r.loaded {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func isValidTypeName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isAlpha || isDigit || isSep) {
			return false
		}
	}
	return true
}
