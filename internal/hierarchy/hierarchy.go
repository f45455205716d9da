// Package hierarchy is the read-only class-hierarchy and min-SDK
// surface stand-in spec.md section 6 describes as "consumed from
// class hierarchy" / "consumed from min-SDK surface". It is built once
// (see NewHierarchy) and is immutable thereafter except for SetPublic,
// whose synchronization is this package's only concurrency concern
// (spec.md section 5).
//
// Grounded on internal/semantic/passes/type_resolution_pass.go's
// hierarchy-resolution walk (resolveClassHierarchies /
// resolveInterfaceHierarchies, and its circular-dependency visited
// set), generalized from "one program's type registry" to "program
// classes plus an external/platform partition."
package hierarchy

import (
	"sync"

	"github.com/dexopt/typecore/internal/lattice"
)

// ClassName implements lattice.ClassRef for a plain class descriptor
// string, letting the lattice package's DexTypeDomain carry class
// identity without depending on this package.
type ClassName string

func (n ClassName) Name() string { return string(n) }

// SearchKind distinguishes how a field or method reference should be
// resolved, matching the Dex invoke-kinds spec.md's glossary defines.
type SearchKind int

const (
	SearchVirtual SearchKind = iota
	SearchSuper
	SearchInterface
	SearchStatic
	SearchDirect
	SearchInstanceField
	SearchStaticField
)

// Field is one field definition.
type Field struct {
	Owner  string
	Name   string
	Type   string
	Static bool
	Public bool
}

// Method is one method definition.
type Method struct {
	Owner    string
	Name     string
	Params   []string
	Return   string
	Static   bool
	Final    bool
	Public   bool
	Abstract bool
}

// Proto is the name+params+return signature used to compare two
// methods for override purposes, ignoring owner.
func (m Method) Proto() string {
	s := m.Name + "("
	for i, p := range m.Params {
		if i > 0 {
			s += ","
		}
		s += p
	}
	return s + ")" + m.Return
}

// Class is one node in the hierarchy DAG. Interfaces may list more
// than one entry in Interfaces (multi-inheritance); the hierarchy
// never stores back-edges, only forward parent/interface lists, so it
// can be built once and queried by key with no node mutation.
type Class struct {
	Name       string
	Super      string // empty for java.lang.Object / interfaces with no explicit parent
	Interfaces []string
	External   bool // defined in the platform SDK, not the program
	Interface  bool

	Fields  []Field
	Methods []Method

	mu     sync.Mutex
	public bool
}

func (c *Class) IsPublic() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.public
}

// setPublic is idempotent and safe for concurrent callers across
// methods being analyzed in parallel; spec.md section 5 calls this out
// as the only cross-method write the resolver performs.
func (c *Class) setPublic() {
	c.mu.Lock()
	c.public = true
	c.mu.Unlock()
}

// Hierarchy indexes a fixed set of classes by name. It is read-only
// after construction aside from SetPublic.
type Hierarchy struct {
	classes map[string]*Class
}

// NewHierarchy builds an index over classes. Built once per process
// before the parallel analysis phase, per spec.md section 5.
func NewHierarchy(classes []*Class) *Hierarchy {
	idx := make(map[string]*Class, len(classes))
	for _, c := range classes {
		idx[c.Name] = c
	}
	return &Hierarchy{classes: idx}
}

func (h *Hierarchy) Lookup(name string) *Class {
	return h.classes[name]
}

// AllClasses returns every class the hierarchy indexes, in no
// particular order.
func (h *Hierarchy) AllClasses() []*Class {
	out := make([]*Class, 0, len(h.classes))
	for _, c := range h.classes {
		out = append(out, c)
	}
	return out
}

func (h *Hierarchy) IsExternal(name string) bool {
	c := h.classes[name]
	return c == nil || c.External
}

func (h *Hierarchy) IsInterface(name string) bool {
	c := h.classes[name]
	return c != nil && c.Interface
}

func (h *Hierarchy) IsPublic(name string) bool {
	c := h.classes[name]
	return c != nil && c.IsPublic()
}

// SetPublic promotes a class to public. Idempotent; safe to call
// concurrently from multiple method-analysis workers (spec.md section
// 5: "Promoting a class to public is the only cross-method write. It
// must be serialized.").
func (h *Hierarchy) SetPublic(name string) {
	if c := h.classes[name]; c != nil {
		c.setPublic()
	}
}

// IsFinal reports whether the given method (matched by owner+proto) is
// final.
func (h *Hierarchy) IsFinal(owner string, proto string) bool {
	m := h.findMethod(owner, proto)
	return m != nil && m.Final
}

func (h *Hierarchy) findMethod(owner, proto string) *Method {
	c := h.classes[owner]
	if c == nil {
		return nil
	}
	for i := range c.Methods {
		if c.Methods[i].Proto() == proto {
			return &c.Methods[i]
		}
	}
	return nil
}

// IsSubtype reports whether sub is sub (or equal to) super by walking
// the super-class chain and, for interface targets, the interface
// lists of every class along that chain.
func (h *Hierarchy) IsSubtype(sub, super string) bool {
	if sub == super {
		return true
	}
	visited := make(map[string]bool)
	var walk func(name string) bool
	walk = func(name string) bool {
		if name == "" || visited[name] {
			return false
		}
		visited[name] = true
		if name == super {
			return true
		}
		c := h.classes[name]
		if c == nil {
			return false
		}
		for _, iface := range c.Interfaces {
			if walk(iface) {
				return true
			}
		}
		return walk(c.Super)
	}
	return walk(sub)
}

// superChain returns [name, name's super, ...] up to and including the
// root, used by LeastCommonSuperclass.
func (h *Hierarchy) superChain(name string) []string {
	var chain []string
	visited := make(map[string]bool)
	for name != "" && !visited[name] {
		visited[name] = true
		chain = append(chain, name)
		c := h.classes[name]
		if c == nil {
			break
		}
		name = c.Super
	}
	return chain
}

// LeastCommonSuperclass returns the most specific class both a and b
// are subtypes of, by walking both super-class chains. Interfaces are
// not considered (matching spec.md's scalar join, which only needs a
// class, not an interface set). Returns "" if neither chain yields a
// common ancestor (should not happen once both chains reach the
// hierarchy's root).
func (h *Hierarchy) LeastCommonSuperclass(a, b string) string {
	if a == b {
		return a
	}
	chainA := h.superChain(a)
	setB := make(map[string]bool)
	for _, n := range h.superChain(b) {
		setB[n] = true
	}
	for _, n := range chainA {
		if setB[n] {
			return n
		}
	}
	return ""
}

// LCS adapts LeastCommonSuperclass to lattice.LeastCommonSuperclass so
// it can be passed directly wherever the lattice package needs one.
func (h *Hierarchy) LCS(a, b lattice.ClassRef) lattice.ClassRef {
	if a == nil || b == nil {
		return nil
	}
	name := h.LeastCommonSuperclass(a.Name(), b.Name())
	if name == "" {
		return nil
	}
	return ClassName(name)
}

// ResolveField looks up (owner, name, typ) along the class hierarchy
// for either a static or instance field. It returns nil if no unique
// definition is found (spec.md's resolver treats that as a reason to
// skip the rewrite, never to error).
func (h *Hierarchy) ResolveField(owner, name, typ string, kind SearchKind) *Field {
	visited := make(map[string]bool)
	var walk func(cname string) *Field
	walk = func(cname string) *Field {
		if cname == "" || visited[cname] {
			return nil
		}
		visited[cname] = true
		c := h.classes[cname]
		if c == nil {
			return nil
		}
		for i := range c.Fields {
			f := &c.Fields[i]
			if f.Name == name && f.Type == typ && f.Static == (kind == SearchStaticField) {
				return f
			}
		}
		if kind == SearchInstanceField {
			for _, iface := range c.Interfaces {
				if f := walk(iface); f != nil {
					return f
				}
			}
		}
		return walk(c.Super)
	}
	return walk(owner)
}

// ResolveMethod resolves a method reference to a concrete definition
// per the requested dispatch kind. caller is the descriptor of the
// class performing the call, used only by SearchSuper to start the
// walk at the caller's own superclass rather than at owner.
func (h *Hierarchy) ResolveMethod(owner, proto string, kind SearchKind, caller string) *Method {
	switch kind {
	case SearchStatic, SearchDirect:
		return h.findMethod(owner, proto)
	case SearchSuper:
		start := owner
		if caller != "" {
			if c := h.classes[caller]; c != nil {
				start = c.Super
			}
		}
		return h.resolveVirtual(start, proto)
	case SearchInterface:
		if m := h.resolveVirtual(owner, proto); m != nil {
			return m
		}
		return h.resolveInterfaceDefault(owner, proto)
	default: // SearchVirtual
		return h.resolveVirtual(owner, proto)
	}
}

// resolveVirtual walks the super-class chain starting at owner for the
// first class that declares proto with a non-abstract body.
func (h *Hierarchy) resolveVirtual(owner, proto string) *Method {
	visited := make(map[string]bool)
	for owner != "" && !visited[owner] {
		visited[owner] = true
		c := h.classes[owner]
		if c == nil {
			return nil
		}
		if m := c.findOwn(proto); m != nil && !m.Abstract {
			return m
		}
		owner = c.Super
	}
	return nil
}

func (c *Class) findOwn(proto string) *Method {
	for i := range c.Methods {
		if c.Methods[i].Proto() == proto {
			return &c.Methods[i]
		}
	}
	return nil
}

// resolveInterfaceDefault implements the fallback used when a virtual
// lookup from an interface type fails to find a class-side override:
// it searches the interface's own default methods, then each
// superinterface in declaration order. This is a deliberate
// simplification of interface default-method resolution; see
// DESIGN.md's "Interface default-method tie-break" decision.
func (h *Hierarchy) resolveInterfaceDefault(owner, proto string) *Method {
	visited := make(map[string]bool)
	var walk func(name string) *Method
	walk = func(name string) *Method {
		if name == "" || visited[name] {
			return nil
		}
		visited[name] = true
		c := h.classes[name]
		if c == nil {
			return nil
		}
		if m := c.findOwn(proto); m != nil && !m.Abstract {
			return m
		}
		for _, iface := range c.Interfaces {
			if m := walk(iface); m != nil {
				return m
			}
		}
		return nil
	}
	return walk(owner)
}

// MinSDK is the membership test gating external rebinds (spec.md
// section 6).
type MinSDK struct {
	methods map[string]bool // proto-qualified keys: owner + "#" + proto
	fields  map[string]bool
}

// NewMinSDK builds a min-SDK surface from the given method and field
// keys (owner+"#"+proto / owner+"#"+name+":"+typ).
func NewMinSDK(methods, fields []string) *MinSDK {
	sdk := &MinSDK{methods: make(map[string]bool, len(methods)), fields: make(map[string]bool, len(fields))}
	for _, m := range methods {
		sdk.methods[m] = true
	}
	for _, f := range fields {
		sdk.fields[f] = true
	}
	return sdk
}

func (s *MinSDK) HasMethod(owner, proto string) bool {
	if s == nil {
		return false
	}
	return s.methods[owner+"#"+proto]
}

func (s *MinSDK) HasField(owner, name, typ string) bool {
	if s == nil {
		return false
	}
	return s.fields[owner+"#"+name+":"+typ]
}
