package lattice

import "testing"

var allTypes = []IRType{
	Bottom, Zero, Const1, Const2, Int, Float, Short, Char, Byte, Boolean,
	Long1, Long2, Double1, Double2, Reference, Scalar, Top,
}

func TestJoinCommutative(t *testing.T) {
	for _, a := range allTypes {
		for _, b := range allTypes {
			if Join(a, b) != Join(b, a) {
				t.Errorf("join(%s,%s) != join(%s,%s)", a, b, b, a)
			}
		}
	}
}

func TestJoinIdempotent(t *testing.T) {
	for _, a := range allTypes {
		if Join(a, a) != a {
			t.Errorf("join(%s,%s) = %s, want %s", a, a, Join(a, a), a)
		}
	}
}

func TestJoinAssociative(t *testing.T) {
	for _, a := range allTypes {
		for _, b := range allTypes {
			for _, c := range allTypes {
				lhs := Join(a, Join(b, c))
				rhs := Join(Join(a, b), c)
				if lhs != rhs {
					t.Errorf("join(%s, join(%s,%s))=%s != join(join(%s,%s),%s)=%s",
						a, b, c, lhs, a, b, c, rhs)
				}
			}
		}
	}
}

func TestJoinIdentityAndAbsorbing(t *testing.T) {
	for _, a := range allTypes {
		if Join(Bottom, a) != a {
			t.Errorf("join(BOTTOM,%s) = %s, want %s", a, Join(Bottom, a), a)
		}
		if Join(Top, a) != Top {
			t.Errorf("join(TOP,%s) = %s, want TOP", a, Join(Top, a))
		}
	}
}

func TestLeqUpperBounds(t *testing.T) {
	for _, a := range allTypes {
		for _, b := range allTypes {
			j := Join(a, b)
			if !Leq(a, j) {
				t.Errorf("leq(%s, join(%s,%s)=%s) should hold", a, a, b, j)
			}
			if !Leq(b, j) {
				t.Errorf("leq(%s, join(%s,%s)=%s) should hold", b, a, b, j)
			}
		}
	}
}

func TestSpecJoinRules(t *testing.T) {
	cases := []struct {
		a, b, want IRType
	}{
		{Zero, Reference, Reference},
		{Zero, Int, Int},
		{Const1, Int, Int},
		{Const1, Float, Float},
		{Const1, Reference, Reference},
		{Long1, Double1, Top},
		{Long1, Int, Top},
	}
	for _, c := range cases {
		if got := Join(c.a, c.b); got != c.want {
			t.Errorf("join(%s,%s) = %s, want %s", c.a, c.b, got, c.want)
		}
	}
}

func TestWideClassification(t *testing.T) {
	for _, w := range []IRType{Long1, Long2, Double1, Double2, Const2} {
		if !w.IsWide() {
			t.Errorf("%s should be wide", w)
		}
	}
	for _, n := range []IRType{Int, Reference, Zero, Boolean} {
		if n.IsWide() {
			t.Errorf("%s should not be wide", n)
		}
	}
}

func TestNullnessJoin(t *testing.T) {
	if JoinNullness(NotNull, NotNull) != NotNull {
		t.Error("NOT_NULL join NOT_NULL should stay NOT_NULL")
	}
	if JoinNullness(NotNull, Null) != MaybeNull {
		t.Error("NOT_NULL join NULL should degrade to MAYBE_NULL")
	}
	if JoinNullness(UnknownNull, Null) != Null {
		t.Error("UNKNOWN join NULL should keep the known fact")
	}
}

type fakeClass string

func (f fakeClass) Name() string { return string(f) }

func TestDexTypeDomainJoin(t *testing.T) {
	object := fakeClass("Ljava/lang/Object;")
	lcs := func(a, b ClassRef) ClassRef { return object }

	same := DexTypeDomain{Class: fakeClass("LFoo;"), Nullness: NotNull}
	if got := same.Join(same, lcs); got.Class.Name() != "LFoo;" {
		t.Errorf("joining identical classes should keep identity, got %v", got.Class)
	}

	unknown := DexTypeDomain{Nullness: MaybeNull}
	if got := same.Join(unknown, lcs); got.Class != nil {
		t.Errorf("joining with an absent class should yield an absent class, got %v", got.Class)
	}

	other := DexTypeDomain{Class: fakeClass("LBar;"), Nullness: NotNull}
	if got := same.Join(other, lcs); got.Class.Name() != object.Name() {
		t.Errorf("joining distinct classes should use lcs, got %v", got.Class)
	}
}
