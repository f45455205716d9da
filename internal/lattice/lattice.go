// Package lattice implements the abstract-type algebra the Dex type
// checker runs its dataflow over: a flat scalar lattice plus an
// orthogonal reference-type domain (concrete class identity and
// nullness). Both are value types so environments can be copied and
// joined cheaply during fixpoint iteration.
package lattice

// IRType is an element of the flat scalar lattice. The zero value is
// Bottom, so a freshly allocated register slot starts as the lattice
// identity rather than an arbitrary type.
type IRType uint8

const (
	Bottom IRType = iota // unreachable / not-yet-visited
	Zero                 // integer literal 0, usable as null or integer
	Const1               // 32-bit constant of unknown numeric kind
	Const2               // 64-bit constant of unknown numeric kind
	Int
	Float
	Short
	Char
	Byte
	Boolean
	Long1 // low half of a long pair (register r)
	Long2 // high half of a long pair (register r+1)
	Double1
	Double2
	Reference
	Scalar // meet of unknown scalar kind
	Top    // undefined / conflicting
)

var names = [...]string{
	Bottom: "BOTTOM", Zero: "ZERO", Const1: "CONST1", Const2: "CONST2",
	Int: "INT", Float: "FLOAT", Short: "SHORT", Char: "CHAR", Byte: "BYTE",
	Boolean: "BOOLEAN", Long1: "LONG1", Long2: "LONG2", Double1: "DOUBLE1",
	Double2: "DOUBLE2", Reference: "REFERENCE", Scalar: "SCALAR", Top: "TOP",
}

func (t IRType) String() string {
	if int(t) < len(names) && names[t] != "" {
		return names[t]
	}
	return "UNKNOWN"
}

// IsWide reports whether t occupies one half of a register pair.
func (t IRType) IsWide() bool {
	switch t {
	case Long1, Long2, Double1, Double2, Const2:
		return true
	default:
		return false
	}
}

// IsReference reports whether t can be used where the verifier expects
// an object or array reference. ZERO qualifies: a null literal is a
// valid reference operand (it simply throws at runtime).
func (t IRType) IsReference() bool {
	return t == Reference || t == Zero
}

// IsInteger reports whether t is a member of the 32-bit integer family,
// including the narrower subtypes and the dual-use ZERO/CONST1 literals.
func (t IRType) IsInteger() bool {
	switch t {
	case Int, Short, Char, Byte, Boolean, Zero, Const1:
		return true
	default:
		return false
	}
}

// widthClass buckets a type by "which wide family does this belong
// to, if any" so the join table can refuse to merge a long with a
// double, or either with a narrow value.
type widthClass uint8

const (
	widthNarrow widthClass = iota
	widthLong
	widthDouble
)

func (t IRType) width() (widthClass, bool) {
	switch t {
	case Long1, Long2:
		return widthLong, true
	case Double1, Double2:
		return widthDouble, true
	default:
		return widthNarrow, false
	}
}

// Join computes the least upper bound of a and b. It is commutative,
// associative, and idempotent by construction: the only asymmetric
// case work below always normalizes (a, b) so that the smaller
// constant is tried against the larger enum value, and falls back to
// symmetric rules. Bottom is the identity; anything joined with Top is
// Top.
func Join(a, b IRType) IRType {
	if a == b {
		return a
	}
	if a == Bottom {
		return b
	}
	if b == Bottom {
		return a
	}
	if a == Top || b == Top {
		return Top
	}

	// Normalize so ordered pair comparisons below only need one
	// direction.
	if a > b {
		a, b = b, a
	}

	aWide, aIsWide := a.width()
	bWide, bIsWide := b.width()
	if aIsWide || bIsWide {
		// const2 is an untyped wide constant and can join into either
		// wide family; distinct wide families (or a wide meeting a
		// narrow value) never unify.
		if a == Const2 && bIsWide {
			return b
		}
		if aIsWide && bIsWide && aWide == bWide {
			return a
		}
		return Top
	}

	switch {
	case a == Zero && b == Reference:
		return Reference
	case a == Zero && b == Int:
		return Int
	case a == Zero && b == Float:
		return Float
	case a == Zero && (b == Short || b == Char || b == Byte || b == Boolean):
		return Int
	case a == Zero && b == Const1:
		return Const1
	case a == Const1 && b == Int:
		return Int
	case a == Const1 && b == Float:
		return Float
	case a == Const1 && b == Reference:
		return Reference
	case a == Const1 && (b == Short || b == Char || b == Byte || b == Boolean):
		return Int
	case a.IsInteger() && b.IsInteger():
		// Any two narrow integer-family members (other than the
		// literal cases above) widen to INT.
		return Int
	case a == Reference && b == Scalar:
		return Top
	case a == Scalar && b.IsInteger():
		return Scalar
	default:
		return Top
	}
}

// Leq reports whether a is below or equal to b in the join order.
func Leq(a, b IRType) bool {
	return Join(a, b) == b
}

// Nullness tracks what is known about a reference register's
// null-ness independent of its concrete class.
type Nullness uint8

const (
	UnknownNull Nullness = iota
	NotNull
	Null
	MaybeNull
)

func (n Nullness) String() string {
	switch n {
	case NotNull:
		return "NOT_NULL"
	case Null:
		return "NULL"
	case MaybeNull:
		return "MAYBE_NULL"
	default:
		return "UNKNOWN"
	}
}

// JoinNullness merges two nullness facts the way two flow predecessors
// merge: anything short of full agreement degrades to the weakest
// useful fact, MAYBE_NULL, except when one side simply has no
// information, in which case the other side's fact is kept as a
// best-effort estimate.
func JoinNullness(a, b Nullness) Nullness {
	if a == b {
		return a
	}
	if a == UnknownNull {
		return b
	}
	if b == UnknownNull {
		return a
	}
	return MaybeNull
}

// ClassRef is the minimal class-identity contract the reference domain
// needs from a class hierarchy: a stable name. Joining two classes is
// done by a separate LeastCommonSuperclass function.
type ClassRef interface {
	Name() string
}

// LeastCommonSuperclass returns the least common superclass of two
// classes, or nil if the hierarchy does not relate them. It is
// supplied by the hierarchy package; the
// lattice package stays hierarchy-agnostic so it has no import-time
// dependency on internal/hierarchy.
type LeastCommonSuperclass func(a, b ClassRef) ClassRef

// DexTypeDomain is the reference-type domain: an optional concrete
// class identity paired with a nullness flag. It joins pointwise with
// the scalar lattice's Reference/Zero facts but is tracked separately
// because two references can share IRType Reference while differing
// in known class.
type DexTypeDomain struct {
	Class    ClassRef
	Nullness Nullness

	// Uninitialized marks a new-instance result before its <init> call
	// has run (spec.md section 4.2's UNINITIALIZED<T>/UNINITIALIZED_THIS).
	// An uninitialized reference is promoted to a normal, initialized
	// reference of the same class once invoke-direct <init> observes it.
	Uninitialized bool
}

// Join computes the pointwise join of two reference-domain facts using
// lcs to resolve class identity. If either side's class is unknown the
// result's class is unknown too, matching spec.md's "if either is
// absent, result is absent" rule.
func (d DexTypeDomain) Join(o DexTypeDomain, lcs LeastCommonSuperclass) DexTypeDomain {
	result := DexTypeDomain{
		Nullness:      JoinNullness(d.Nullness, o.Nullness),
		Uninitialized: d.Uninitialized && o.Uninitialized,
	}
	if d.Class == nil || o.Class == nil {
		return result
	}
	if d.Class.Name() == o.Class.Name() {
		result.Class = d.Class
		return result
	}
	if lcs != nil {
		result.Class = lcs(d.Class, o.Class)
	}
	return result
}
