// Package registry holds the read-only collection of template signatures
// consumed by the compiler and the unit loader.
//
// A Registry is constructed once from the analyzed file set and is immutable
// afterward, so it requires no locking.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deepnoodle-ai/stencil/ast"
	"github.com/deepnoodle-ai/stencil/types"
)

// Param describes one parameter in a template signature.
type Param struct {
	Name     string
	Typ      types.Type
	Required bool
	Lazy     bool
}

// Signature describes one template's callable surface.
type Signature struct {
	FullName    string
	Params      []Param
	ContentKind types.ContentKind

	// Delegate marks an alternate implementation selected at render time
	// by priority/variant rules external to this core.
	Delegate bool
	Variant  string
	Priority int
}

// Registry is an immutable mapping from template full name to signature,
// plus a reverse lookup from unit names back to the owning template.
type Registry struct {
	sigs  map[string]*Signature
	names []string // sorted
}

// Builder accumulates signatures before freezing them into a Registry.
type Builder struct {
	sigs map[string]*Signature
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{sigs: map[string]*Signature{}}
}

// Add registers a signature. Registering the same name twice is an error.
func (b *Builder) Add(sig *Signature) error {
	if sig.FullName == "" {
		return fmt.Errorf("registry: signature has no name")
	}
	if _, exists := b.sigs[sig.FullName]; exists {
		return fmt.Errorf("registry: template %q redefined", sig.FullName)
	}
	b.sigs[sig.FullName] = sig
	return nil
}

// Build freezes the accumulated signatures into an immutable Registry.
func (b *Builder) Build() *Registry {
	sigs := make(map[string]*Signature, len(b.sigs))
	names := make([]string, 0, len(b.sigs))
	for name, sig := range b.sigs {
		sigs[name] = sig
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{sigs: sigs, names: names}
}

// FromFileSet builds a Registry covering every template in the file set.
func FromFileSet(fs *ast.FileSet) (*Registry, error) {
	b := NewBuilder()
	for _, def := range fs.Templates() {
		params := make([]Param, 0, len(def.Params))
		for _, p := range def.Params {
			params = append(params, Param{
				Name:     p.Name,
				Typ:      p.Typ,
				Required: p.Required,
				Lazy:     p.Lazy,
			})
		}
		sig := &Signature{
			FullName:    def.Name,
			Params:      params,
			ContentKind: def.ContentKind,
			Delegate:    def.Delegate,
			Variant:     def.Variant,
			Priority:    def.Priority,
		}
		if err := b.Add(sig); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Lookup returns the signature for the given fully-qualified template name.
func (r *Registry) Lookup(name string) (*Signature, bool) {
	sig, ok := r.sigs[name]
	return sig, ok
}

// Names returns the sorted template names. The returned slice is a copy.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// DelegateNames returns the sorted names of all delegate templates.
func (r *Registry) DelegateNames() []string {
	var names []string
	for _, name := range r.names {
		if r.sigs[name].Delegate {
			names = append(names, name)
		}
	}
	return names
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	return len(r.names)
}

// OwnerOf maps a unit name back to the owning template. Auxiliary units
// derive their names from the main unit name with a "$"-prefixed suffix
// (for example "ns.hello$factory" or "ns.hello$let_greeting_1"); stripping
// the suffix recovers the owner. The second return is false when no such
// template is registered.
func (r *Registry) OwnerOf(unitName string) (string, bool) {
	owner := unitName
	if idx := strings.IndexByte(unitName, '$'); idx >= 0 {
		owner = unitName[:idx]
	}
	if _, ok := r.sigs[owner]; !ok {
		return "", false
	}
	return owner, true
}
