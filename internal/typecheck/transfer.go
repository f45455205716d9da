package typecheck

import (
	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
	"github.com/dexopt/typecore/internal/lattice"
)

// Apply is the permissive transfer function the Fixpoint Engine runs:
// spec.md section 4.3 says the engine "does not error on precondition
// violations; it runs to fixpoint under a permissive semantics
// (precondition violation => destination becomes TOP)." Preconditions
// are re-checked, and reported, separately by CheckPreconditions once
// the engine has converged.
func Apply(insn ir.Instruction, in *Environment, h *hierarchy.Hierarchy) *Environment {
	out := in.Clone()

	switch insn.Op {
	case ir.OpConst:
		if insn.Literal == 0 {
			out.writeScalar(insn.Dst, lattice.Zero, lattice.DexTypeDomain{})
		} else {
			out.writeScalar(insn.Dst, lattice.Const1, lattice.DexTypeDomain{})
		}

	case ir.OpConstWide:
		out.writeWide(insn.Dst, lattice.Const2, lattice.Const2)

	case ir.OpConstString:
		out.writeScalar(insn.Dst, lattice.Reference, lattice.DexTypeDomain{
			Class: hierarchy.ClassName(stringsOr(insn.Class, "Ljava/lang/String;")), Nullness: lattice.NotNull,
		})

	case ir.OpConstClass:
		// insn.Class names the class whose Class object is loaded; the
		// register itself holds a java.lang.Class reference.
		out.writeScalar(insn.Dst, lattice.Reference, lattice.DexTypeDomain{
			Class: hierarchy.ClassName("Ljava/lang/Class;"), Nullness: lattice.NotNull,
		})

	case ir.OpMove:
		// Permissive: TOP propagates without error here regardless of
		// verify_moves; CheckPreconditions decides whether that is an
		// error once the fixpoint has converged (spec.md section 4.2).
		// Reading a wide half as a narrow operand is itself a
		// precondition violation (not the move special case), so the
		// permissive engine yields TOP here the same as any other
		// violation.
		src := in.Get(insn.Src[0])
		if src.Scalar.IsWide() {
			out.writeScalar(insn.Dst, lattice.Top, lattice.DexTypeDomain{})
		} else {
			out.writeScalar(insn.Dst, src.Scalar, lattice.DexTypeDomain{})
		}

	case ir.OpMoveWide:
		src := in.Get(insn.Src[0])
		hi := in.Get(insn.Src[0] + 1)
		out.writeWide(insn.Dst, src.Scalar, hi.Scalar)

	case ir.OpMoveObject:
		src := in.Get(insn.Src[0])
		out.writeScalar(insn.Dst, src.Scalar, src.Ref)

	case ir.OpMoveResult:
		src := in.Get(ir.RegResult)
		out.writeScalar(insn.Dst, src.Scalar, src.Ref)

	case ir.OpAddInt:
		a, b := in.Get(insn.Src[0]), in.Get(insn.Src[1])
		if a.Scalar.IsInteger() && b.Scalar.IsInteger() {
			out.writeScalar(insn.Dst, lattice.Int, lattice.DexTypeDomain{})
		} else {
			out.writeScalar(insn.Dst, lattice.Top, lattice.DexTypeDomain{})
		}

	case ir.OpAddLong:
		out.writeWide(insn.Dst, lattice.Long1, lattice.Long2)

	case ir.OpAddDouble:
		out.writeWide(insn.Dst, lattice.Double1, lattice.Double2)

	case ir.OpGoto, ir.OpIfEqObject, ir.OpIfNeObject, ir.OpIfEqZero:
		// No destination; these only affect control flow, which the
		// engine already follows via block successors.

	case ir.OpCheckCast:
		src := in.Get(insn.Src[0])
		if src.Scalar.IsReference() {
			// spec.md section 4.2: this implementation narrows
			// unconditionally after the instruction rather than only
			// on the taken successor.
			out.writeScalar(insn.Src[0], lattice.Reference, lattice.DexTypeDomain{
				Class: hierarchy.ClassName(insn.Class), Nullness: src.Ref.Nullness,
			})
		} else {
			out.writeScalar(insn.Src[0], lattice.Top, lattice.DexTypeDomain{})
		}

	case ir.OpInstanceOf:
		out.writeScalar(insn.Dst, lattice.Boolean, lattice.DexTypeDomain{})

	case ir.OpNewInstance:
		out.writeScalar(insn.Dst, lattice.Reference, lattice.DexTypeDomain{
			Class: hierarchy.ClassName(insn.Class), Nullness: lattice.NotNull, Uninitialized: true,
		})

	case ir.OpInvokeDirect:
		if insn.Method != nil && insn.Method.Name == "<init>" && len(insn.Src) > 0 {
			recv := in.Get(insn.Src[0])
			if recv.Ref.Uninitialized {
				out.writeScalar(insn.Src[0], lattice.Reference, lattice.DexTypeDomain{
					Class: recv.Ref.Class, Nullness: lattice.NotNull,
				})
			}
		}
		clearResult(out, insn)

	case ir.OpInvokeVirtual, ir.OpInvokeSuper, ir.OpInvokeInterface, ir.OpInvokeStatic:
		clearResult(out, insn)

	case ir.OpIGet:
		if insn.Field != nil {
			out.writeScalar(insn.Dst, descriptorScalar(insn.Field.Type), fieldRefDomain(insn.Field))
		}

	case ir.OpSGet:
		if insn.Field != nil {
			out.writeScalar(insn.Dst, descriptorScalar(insn.Field.Type), fieldRefDomain(insn.Field))
		}

	case ir.OpIPut, ir.OpSPut:
		// No destination register.

	case ir.OpAGet:
		elem := lattice.Reference
		if insn.Class != "" {
			elem = descriptorScalar(insn.Class)
		}
		if isWideDescriptor(insn.Class) {
			high := lattice.Long2
			if elem == lattice.Double1 {
				high = lattice.Double2
			}
			out.writeWide(insn.Dst, elem, high)
		} else {
			out.writeScalar(insn.Dst, elem, lattice.DexTypeDomain{})
		}

	case ir.OpAPut:
		// No destination register.

	case ir.OpReturnVoid, ir.OpReturnObject, ir.OpReturn:
		// No destination register.
	}

	return out
}

func clearResult(env *Environment, insn ir.Instruction) {
	ret := "V"
	if insn.Method != nil {
		ret = insn.Method.Return
	}
	if ret == "V" {
		return
	}
	// RESULT is a single pseudoregister, set directly so no pairing
	// logic reaches the real registers next to it.
	if isWideDescriptor(ret) {
		env.Set(ir.RegResult, RegState{Scalar: descriptorScalar(ret)})
		return
	}
	scalar := descriptorScalar(ret)
	ref := lattice.DexTypeDomain{}
	if scalar == lattice.Reference {
		ref = lattice.DexTypeDomain{Class: hierarchy.ClassName(ret), Nullness: lattice.MaybeNull}
	}
	env.Set(ir.RegResult, RegState{Scalar: scalar, Ref: ref})
}

func fieldRefDomain(f *ir.FieldRef) lattice.DexTypeDomain {
	if descriptorScalar(f.Type) != lattice.Reference {
		return lattice.DexTypeDomain{}
	}
	return lattice.DexTypeDomain{Class: hierarchy.ClassName(f.Type), Nullness: lattice.MaybeNull}
}

func stringsOr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
