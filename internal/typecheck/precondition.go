package typecheck

import (
	"github.com/dexopt/typecore/internal/diag"
	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
	"github.com/dexopt/typecore/internal/lattice"
)

// CheckPreconditions validates one instruction against its entry
// environment, implementing spec.md section 7's error conditions. It
// is pure: it never mutates env, and it returns at most one error — the
// Checker stops sweeping as soon as this returns non-nil (spec.md
// section 4.4: "On error, the checker stops and records the first
// message; no further errors are produced").
func CheckPreconditions(m *ir.Method, block, idx int, insn ir.Instruction, env *Environment, opts Options, h *hierarchy.Hierarchy) *diag.Error {
	pos := diag.Position{Block: block, Index: idx}

	if opts.CheckNoOverwriteThis && !m.IsStatic && insn.Dst == 0 && writesRegister(insn.Op) {
		return diag.NewError(diag.OverwriteThis, m.Name, pos, "instruction writes to the receiver register")
	}

	for _, src := range insn.Src {
		if src < 0 {
			continue // the RESULT pseudoregister is not validated as an operand here
		}
		s := env.Get(src)
		if s.Scalar == lattice.Top {
			if insn.Op == ir.OpMove || insn.Op == ir.OpMoveObject || insn.Op == ir.OpMoveWide {
				if opts.VerifyMoves {
					return diag.NewError(diag.UndefinedOperand, m.Name, pos, "register v%d is TOP (verify_moves)", src)
				}
				continue
			}
			return diag.NewError(diag.UndefinedOperand, m.Name, pos, "register v%d is undefined (TOP)", src)
		}
	}

	switch insn.Op {
	case ir.OpMove:
		s := env.Get(insn.Src[0])
		if s.Scalar.IsWide() {
			return diag.NewError(diag.WideMismatch, m.Name, pos, "register v%d holds a wide half, read as narrow", insn.Src[0])
		}

	case ir.OpMoveWide:
		lo := env.Get(insn.Src[0])
		if lo.Scalar != lattice.Long1 && lo.Scalar != lattice.Double1 && lo.Scalar != lattice.Const2 {
			return diag.NewError(diag.WideMismatch, m.Name, pos, "register v%d is not a wide low half", insn.Src[0])
		}

	case ir.OpMoveObject:
		s := env.Get(insn.Src[0])
		if !s.Scalar.IsReference() {
			return diag.NewError(diag.ReferenceTypeMismatch, m.Name, pos, "register v%d is not reference-compatible", insn.Src[0])
		}

	case ir.OpAddInt:
		a, b := env.Get(insn.Src[0]), env.Get(insn.Src[1])
		if !a.Scalar.IsInteger() || !b.Scalar.IsInteger() {
			return diag.NewError(diag.ScalarTypeMismatch, m.Name, pos, "add-int requires INT operands")
		}

	case ir.OpCheckCast, ir.OpInstanceOf:
		s := env.Get(insn.Src[0])
		if !s.Scalar.IsReference() {
			return diag.NewError(diag.ReferenceTypeMismatch, m.Name, pos, "register v%d is not reference-compatible", insn.Src[0])
		}

	case ir.OpAGet:
		arr, index := env.Get(insn.Src[0]), env.Get(insn.Src[1])
		if !arr.Scalar.IsReference() {
			return diag.NewError(diag.ReferenceTypeMismatch, m.Name, pos, "array operand is not reference-compatible")
		}
		if !index.Scalar.IsInteger() {
			return diag.NewError(diag.ScalarTypeMismatch, m.Name, pos, "array index is not INT")
		}

	case ir.OpIGet, ir.OpIPut:
		recvIdx := 0
		if insn.Op == ir.OpIPut {
			recvIdx = 1 // iput: Src[0] is the value, Src[1] the receiver
		}
		if len(insn.Src) > recvIdx {
			recv := env.Get(insn.Src[recvIdx])
			if !recv.Scalar.IsReference() {
				return diag.NewError(diag.ReferenceTypeMismatch, m.Name, pos, "receiver is not reference-compatible")
			}
		}
		if err := checkAccess(m, insn.Field, opts, h, pos); err != nil {
			return err
		}

	case ir.OpSGet, ir.OpSPut:
		if err := checkAccess(m, insn.Field, opts, h, pos); err != nil {
			return err
		}

	case ir.OpInvokeDirect:
		if insn.Method != nil && insn.Method.Name == "<init>" && len(insn.Src) > 0 {
			recv := env.Get(insn.Src[0])
			if !recv.Ref.Uninitialized && recv.Scalar != lattice.Reference {
				return diag.NewError(diag.ReferenceTypeMismatch, m.Name, pos, "invoke-direct <init> receiver is not UNINITIALIZED")
			}
		}
		if err := checkMethodAccess(m, insn.Method, opts, h, pos); err != nil {
			return err
		}

	case ir.OpInvokeVirtual, ir.OpInvokeSuper, ir.OpInvokeInterface, ir.OpInvokeStatic:
		if err := checkMethodAccess(m, insn.Method, opts, h, pos); err != nil {
			return err
		}

	case ir.OpReturnObject:
		if len(insn.Src) == 0 {
			break
		}
		s := env.Get(insn.Src[0])
		if !s.Scalar.IsReference() {
			return diag.NewError(diag.ReturnTypeMismatch, m.Name, pos, "return-object source is not reference-compatible")
		}
		if h != nil && s.Ref.Class != nil && m.ReturnClass != "" {
			if !h.IsSubtype(s.Ref.Class.Name(), m.ReturnClass) {
				return diag.NewError(diag.ReturnTypeMismatch, m.Name, pos,
					"returned type %s is not a subtype of declared return type %s", s.Ref.Class.Name(), m.ReturnClass)
			}
		}
	}

	return nil
}

// writesRegister reports whether op writes its Dst register, per
// transfer.go's Apply. This is deliberately a whitelist, not an
// exclude-list: the five invoke-* opcodes never write Dst (their
// result, if any, lands in the RESULT pseudoregister via clearResult
// and is only materialized into a real register by a following
// move-result), and ir.Instruction.Dst defaults to its zero value
// (register 0) when an opcode leaves it unset, so defaulting to "writes"
// would flag every invoke on an instance method as overwriting the
// receiver.
func writesRegister(op ir.OpCode) bool {
	switch op {
	case ir.OpConst, ir.OpConstWide, ir.OpConstString, ir.OpConstClass,
		ir.OpMove, ir.OpMoveWide, ir.OpMoveObject, ir.OpMoveResult,
		ir.OpAddInt, ir.OpAddLong, ir.OpAddDouble,
		ir.OpInstanceOf, ir.OpNewInstance,
		ir.OpIGet, ir.OpSGet, ir.OpAGet:
		return true
	default:
		return false
	}
}

func checkAccess(m *ir.Method, f *ir.FieldRef, opts Options, h *hierarchy.Hierarchy, pos diag.Position) *diag.Error {
	if !opts.ValidateAccess || f == nil || h == nil {
		return nil
	}
	if !h.IsPublic(f.Owner) && h.IsExternal(f.Owner) {
		return diag.NewError(diag.InaccessibleMember, m.Name, pos, "field %s.%s is inaccessible", f.Owner, f.Name)
	}
	return nil
}

func checkMethodAccess(m *ir.Method, ref *ir.MethodRef, opts Options, h *hierarchy.Hierarchy, pos diag.Position) *diag.Error {
	if !opts.ValidateAccess || ref == nil || h == nil {
		return nil
	}
	if !h.IsPublic(ref.Owner) && h.IsExternal(ref.Owner) {
		return diag.NewError(diag.InaccessibleMember, m.Name, pos, "method %s.%s is inaccessible", ref.Owner, ref.Proto())
	}
	return nil
}
