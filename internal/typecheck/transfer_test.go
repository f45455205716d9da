package typecheck

import (
	"testing"

	"github.com/dexopt/typecore/internal/ir"
	"github.com/dexopt/typecore/internal/lattice"
)

func TestApplyConstZeroVsNonzero(t *testing.T) {
	env := NewEnvironment()
	out := Apply(ir.Instruction{Op: ir.OpConst, Dst: 0, Literal: 0}, env, nil)
	if got := out.Get(0).Scalar; got != lattice.Zero {
		t.Fatalf("const 0 should produce ZERO, got %s", got)
	}
	out2 := Apply(ir.Instruction{Op: ir.OpConst, Dst: 0, Literal: 7}, env, nil)
	if got := out2.Get(0).Scalar; got != lattice.Const1 {
		t.Fatalf("const 7 should produce CONST1, got %s", got)
	}
}

func TestApplyConstWideProducesConst2Pair(t *testing.T) {
	env := NewEnvironment()
	out := Apply(ir.Instruction{Op: ir.OpConstWide, Dst: 2}, env, nil)
	if got := out.Get(2).Scalar; got != lattice.Const2 {
		t.Fatalf("expected low half CONST2, got %s", got)
	}
	if got := out.Get(3).Scalar; got != lattice.Const2 {
		t.Fatalf("expected high half CONST2, got %s", got)
	}
}

func TestApplyMoveOfWideIsPermissiveTop(t *testing.T) {
	env := NewEnvironment()
	env = Apply(ir.Instruction{Op: ir.OpConstWide, Dst: 0}, env, nil)
	out := Apply(ir.Instruction{Op: ir.OpMove, Dst: 2, Src: []ir.Register{0}}, env, nil)
	if got := out.Get(2).Scalar; got != lattice.Top {
		t.Fatalf("reading a wide half as narrow should yield TOP under the permissive transfer, got %s", got)
	}
}

func TestApplyNewInstanceMarksUninitialized(t *testing.T) {
	env := NewEnvironment()
	out := Apply(ir.Instruction{Op: ir.OpNewInstance, Dst: 0, Class: "LFoo;"}, env, nil)
	s := out.Get(0)
	if s.Scalar != lattice.Reference || !s.Ref.Uninitialized {
		t.Fatalf("expected an uninitialized reference, got %+v", s)
	}
}

func TestApplyInvokeDirectInitPromotesUninitialized(t *testing.T) {
	env := NewEnvironment()
	env = Apply(ir.Instruction{Op: ir.OpNewInstance, Dst: 0, Class: "LFoo;"}, env, nil)
	out := Apply(ir.Instruction{
		Op: ir.OpInvokeDirect, Src: []ir.Register{0},
		Method: &ir.MethodRef{Owner: "LFoo;", Name: "<init>", Return: "V"},
	}, env, nil)
	s := out.Get(0)
	if s.Ref.Uninitialized {
		t.Fatal("expected the receiver to be promoted to initialized after <init>")
	}
	if s.Ref.Class == nil || s.Ref.Class.Name() != "LFoo;" {
		t.Fatalf("expected class identity preserved through promotion, got %+v", s.Ref.Class)
	}
}

func TestApplyAddIntRequiresIntegerOperands(t *testing.T) {
	env := NewEnvironment()
	env = Apply(ir.Instruction{Op: ir.OpConst, Dst: 0, Literal: 1}, env, nil)
	env = Apply(ir.Instruction{Op: ir.OpConst, Dst: 1, Literal: 2}, env, nil)
	out := Apply(ir.Instruction{Op: ir.OpAddInt, Dst: 2, Src: []ir.Register{0, 1}}, env, nil)
	if got := out.Get(2).Scalar; got != lattice.Int {
		t.Fatalf("add-int over two CONST1 operands should produce INT, got %s", got)
	}
}

func TestApplyCheckCastNarrowsUnconditionally(t *testing.T) {
	env := NewEnvironment()
	env.Set(0, RegState{Scalar: lattice.Reference})
	out := Apply(ir.Instruction{Op: ir.OpCheckCast, Src: []ir.Register{0}, Class: "LBar;"}, env, nil)
	s := out.Get(0)
	if s.Ref.Class == nil || s.Ref.Class.Name() != "LBar;" {
		t.Fatalf("expected v0 narrowed to LBar;, got %+v", s.Ref.Class)
	}
}
