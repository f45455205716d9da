package resolver

import (
	"github.com/dexopt/typecore/internal/ir"
	"github.com/dexopt/typecore/internal/typecheck"
)

// Candidate names a method whose declared return type can be
// specialized: spec.md section 4.5's optional mode, which does not
// rewrite bytecode on its own but reports methods whose every
// return-object source is, in the join, strictly narrower than the
// declared return type, so a later, separate pass can rewrite the
// signature and re-run virtual refinement.
type Candidate struct {
	Method      string
	DeclaredRet string
	InferredRet string
}

// collectReturnSpecialization implements spec.md section 4.5's
// "Return-type specialization (optional mode)": join the inferred
// concrete types of every return-object source in m, and if that join
// is strictly more specific than m's own declared return type, report m
// as a candidate. This never rewrites the instruction stream or the
// method's signature; it is report-only.
func (r *Resolver) collectReturnSpecialization(m *ir.Method, checker *typecheck.Checker) []Candidate {
	if m.ReturnClass == "" || m.ReturnType == "V" || isScalarDescriptor(m.ReturnType) {
		return nil
	}

	var joined string
	seenAny := false
	for _, b := range m.Blocks {
		for idx, insn := range b.Insns {
			if insn.Op != ir.OpReturnObject || len(insn.Src) == 0 {
				continue
			}
			cls, ok := checker.GetDexType(b.ID, idx, insn.Src[0])
			if !ok || cls.Name() == "" {
				// An unknown source makes the join unknown too
				// (spec.md section 4.5's "Failure semantics": any
				// uncertainty leaves the site alone).
				return nil
			}
			if !seenAny {
				joined = cls.Name()
				seenAny = true
				continue
			}
			lcs := r.hier.LeastCommonSuperclass(joined, cls.Name())
			if lcs == "" {
				return nil
			}
			joined = lcs
		}
	}
	if !seenAny || joined == m.ReturnClass {
		return nil
	}
	if !r.hier.IsSubtype(joined, m.ReturnClass) {
		return nil
	}

	r.counters.addRTypeSpecializationCandidate(1)
	return []Candidate{{
		Method:      m.Owner + "." + m.Name,
		DeclaredRet: m.ReturnClass,
		InferredRet: joined,
	}}
}

func isScalarDescriptor(desc string) bool {
	switch desc {
	case "I", "F", "S", "C", "B", "Z", "J", "D":
		return true
	default:
		return false
	}
}
