package typecheck

import (
	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
	"github.com/dexopt/typecore/internal/lattice"
)

// RegState is the abstract value held by one register: a scalar
// lattice element paired with a reference-domain fact. Ref is only
// meaningful when Scalar is Reference or Zero; callers that care about
// class identity should check Scalar first.
type RegState struct {
	Scalar lattice.IRType
	Ref    lattice.DexTypeDomain
}

var bottomState = RegState{Scalar: lattice.Bottom}
var topState = RegState{Scalar: lattice.Top}

// Environment is a total mapping from register id to RegState, plus
// the special RESULT pseudoregister. A register with no explicit entry
// reads as Bottom — this is what lets join-with-an-unvisited-predecessor
// behave as the identity without the engine needing to materialize a
// sentinel "unreachable" environment (spec.md section 3's "unreachable
// predecessors contribute BOTTOM").
type Environment struct {
	regs map[ir.Register]RegState
}

func NewEnvironment() *Environment {
	return &Environment{regs: make(map[ir.Register]RegState)}
}

// Clone returns an independent copy so the engine can keep a block's
// entry state stable while computing its exit state.
func (e *Environment) Clone() *Environment {
	c := &Environment{regs: make(map[ir.Register]RegState, len(e.regs))}
	for k, v := range e.regs {
		c.regs[k] = v
	}
	return c
}

// Get returns the state of r, defaulting to Bottom if r has never been
// written in this environment.
func (e *Environment) Get(r ir.Register) RegState {
	if s, ok := e.regs[r]; ok {
		return s
	}
	return bottomState
}

// Set overwrites r's state outright, with no pairing invalidation.
// Most callers should go through writeScalar/writeWide instead; Set is
// exposed for building the initial environment from a signature, where
// there is no prior pairing to invalidate.
func (e *Environment) Set(r ir.Register, s RegState) {
	e.regs[r] = s
}

// writeScalar assigns a narrow value to r, invalidating any wide pair
// this write breaks: if r was the low half of a pair, the old high
// half at r+1 is no longer valid; if r-1 was the low half of a pair
// whose high half was r, that pairing breaks too (spec.md section 3).
func (e *Environment) writeScalar(r ir.Register, val lattice.IRType, ref lattice.DexTypeDomain) {
	e.invalidatePairing(r)
	e.regs[r] = RegState{Scalar: val, Ref: ref}
}

// writeWide assigns a register pair: low=r gets the *1 tag, high=r+1
// gets the *2 tag.
func (e *Environment) writeWide(r ir.Register, low, high lattice.IRType) {
	e.invalidatePairing(r)
	e.invalidatePairing(r + 1)
	e.regs[r] = RegState{Scalar: low}
	e.regs[r+1] = RegState{Scalar: high}
}

func (e *Environment) invalidatePairing(r ir.Register) {
	if prev := e.Get(r).Scalar; prev == lattice.Long1 || prev == lattice.Double1 {
		e.regs[r+1] = topState
	}
	if prevBelow := e.Get(r - 1).Scalar; prevBelow == lattice.Long1 || prevBelow == lattice.Double1 {
		e.regs[r-1] = topState
	}
}

// Join computes the pointwise join of two environments over the union
// of their register keys, using the hierarchy's LeastCommonSuperclass
// to resolve reference-domain class joins.
func Join(a, b *Environment, h *hierarchy.Hierarchy) *Environment {
	out := NewEnvironment()
	seen := make(map[ir.Register]bool, len(a.regs)+len(b.regs))
	for r := range a.regs {
		seen[r] = true
	}
	for r := range b.regs {
		seen[r] = true
	}
	var lcs lattice.LeastCommonSuperclass
	if h != nil {
		lcs = h.LCS
	}
	for r := range seen {
		sa, sb := a.Get(r), b.Get(r)
		out.regs[r] = RegState{
			Scalar: lattice.Join(sa.Scalar, sb.Scalar),
			Ref:    sa.Ref.Join(sb.Ref, lcs),
		}
	}
	return out
}

// Equal reports whether a and b assign the same state to every
// register either has touched; used by the fixpoint engine to decide
// whether a block's entry state has stabilized.
func Equal(a, b *Environment) bool {
	if len(a.regs) != len(b.regs) {
		return false
	}
	for r, sa := range a.regs {
		sb, ok := b.regs[r]
		if !ok || sa.Scalar != sb.Scalar || sa.Ref.Nullness != sb.Ref.Nullness || sa.Ref.Uninitialized != sb.Ref.Uninitialized {
			return false
		}
		an, bn := sa.Ref.Class, sb.Ref.Class
		switch {
		case an == nil && bn == nil:
		case an == nil || bn == nil:
			return false
		case an.Name() != bn.Name():
			return false
		}
	}
	return true
}

// BuildInitialEnvironment seeds the entry block's environment from a
// method's declared signature (spec.md section 3's "Lifecycles"):
// parameter registers get their declared types, the receiver gets the
// declaring-class reference (or UNINITIALIZED_THIS for constructors),
// and every other register starts at TOP.
func BuildInitialEnvironment(m *ir.Method, h *hierarchy.Hierarchy) *Environment {
	env := NewEnvironment()
	for r := 0; r < m.RegisterCount; r++ {
		env.Set(ir.Register(r), topState)
	}

	next := ir.Register(0)
	if !m.IsStatic {
		recvClass := hierarchy.ClassName(m.Owner)
		if m.IsConstructor {
			env.Set(next, RegState{
				Scalar: lattice.Reference,
				Ref:    lattice.DexTypeDomain{Class: recvClass, Nullness: lattice.NotNull, Uninitialized: true},
			})
		} else {
			env.Set(next, RegState{Scalar: lattice.Reference, Ref: lattice.DexTypeDomain{Class: recvClass, Nullness: lattice.NotNull}})
		}
		next++
	}

	for _, p := range m.Params {
		if isWideDescriptor(p.Descriptor) {
			low := descriptorScalar(p.Descriptor)
			high := lattice.Long2
			if low == lattice.Double1 {
				high = lattice.Double2
			}
			env.writeWide(next, low, high)
			next += 2
			continue
		}
		scalar := descriptorScalar(p.Descriptor)
		ref := lattice.DexTypeDomain{}
		if scalar == lattice.Reference {
			ref = lattice.DexTypeDomain{Class: hierarchy.ClassName(p.Descriptor), Nullness: lattice.MaybeNull}
		}
		env.Set(next, RegState{Scalar: scalar, Ref: ref})
		next++
	}

	return env
}
