// Package resolver implements spec.md section 4.5: the Reference
// Resolver. It runs the type checker's Fixpoint Engine internally,
// then walks every instruction, using the inferred types at each site
// to rebind field/method references to their most specific concrete
// definitions, devirtualize, desuperify, and (optionally) specialize
// return types.
//
// Every rewrite here is conservative: spec.md section 4.5's "Failure
// semantics" says any uncertainty leaves the site unchanged and the
// resolver never produces errors, only counters.
package resolver

import (
	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
	"github.com/dexopt/typecore/internal/typecheck"
)

// Resolver rebinds references across one method at a time. One
// Resolver can be reused across methods; it carries no per-method
// state of its own (the per-method dataflow Result is local to Run).
type Resolver struct {
	hier     *hierarchy.Hierarchy
	minSDK   *hierarchy.MinSDK
	cfg      config
	counters *Counters
}

// New builds a Resolver sharing counters across every method it
// processes — pass the same Counters to every Resolver used by a
// parallel pipeline (internal/pipeline) so totals accumulate
// correctly (spec.md section 5).
func New(h *hierarchy.Hierarchy, minSDK *hierarchy.MinSDK, counters *Counters, opts ...Option) *Resolver {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if counters == nil {
		counters = &Counters{}
	}
	return &Resolver{hier: h, minSDK: minSDK, cfg: cfg, counters: counters}
}

// Counters returns the shared counters this resolver updates.
func (r *Resolver) Counters() *Counters { return r.counters }

// Outcome is everything Run produces for one method: the checker (for
// get_type/get_dex_type) and any return-type specialization candidates
// collected when that pass is enabled.
type Outcome struct {
	Checker    *typecheck.Checker
	Candidates []Candidate
}

// Run resolves every instruction in m in place. It returns the
// checker it built internally so callers (tests, the CLI) can also
// inspect get_type/get_dex_type without re-running the engine.
func (r *Resolver) Run(m *ir.Method) Outcome {
	checker := typecheck.NewChecker(m, r.hier, typecheck.Options{})
	checker.Run()
	if checker.Fail() {
		// spec.md section 4.5 only promises rewrites over a
		// well-typed method; a failing method is left untouched.
		return Outcome{Checker: checker}
	}

	for _, b := range m.Blocks {
		for idx := range b.Insns {
			insn := &b.Insns[idx]
			switch {
			case insn.Field != nil:
				r.resolveField(m, insn)
			case insn.Method != nil && insn.Op.IsInvoke():
				r.resolveMethod(m, b, idx, insn, checker)
			}
		}
	}

	var candidates []Candidate
	if r.cfg.isEnabled(PassSpecializeRType) {
		candidates = r.collectReturnSpecialization(m, checker)
	}

	return Outcome{Checker: checker, Candidates: candidates}
}

func searchKindForField(op ir.OpCode) hierarchy.SearchKind {
	if op == ir.OpSGet || op == ir.OpSPut {
		return hierarchy.SearchStaticField
	}
	return hierarchy.SearchInstanceField
}

// resolveField implements spec.md section 4.5's field-reference rule:
// lookup (owner, name, type) along the hierarchy; rewrite only if a
// unique, non-external (or external-and-permitted) definition is found
// and differs from the current ref.
func (r *Resolver) resolveField(m *ir.Method, insn *ir.Instruction) {
	f := insn.Field
	def := r.hier.ResolveField(f.Owner, f.Name, f.Type, searchKindForField(insn.Op))
	if def == nil {
		return
	}
	if def.Owner == f.Owner && def.Name == f.Name {
		return // already a definition, nothing to rewrite
	}
	if r.hier.IsExternal(def.Owner) {
		if !r.cfg.isEnabled(PassRefineToExternal) {
			return
		}
		if r.minSDK == nil || !r.minSDK.HasField(def.Owner, def.Name, def.Type) {
			return
		}
	}
	if r.cfg.isExcluded(def.Owner) {
		return
	}
	if !r.hier.IsPublic(def.Owner) {
		r.hier.SetPublic(def.Owner)
	}
	insn.Field = &ir.FieldRef{Owner: def.Owner, Name: def.Name, Type: def.Type, Static: def.Static}
	r.counters.addFieldRefsResolved(1)
}

// searchKindForInvoke maps an invoke opcode to the hierarchy's search
// kind, matching the Dex invoke-kinds spec.md's glossary defines.
func searchKindForInvoke(op ir.OpCode) hierarchy.SearchKind {
	switch op {
	case ir.OpInvokeSuper:
		return hierarchy.SearchSuper
	case ir.OpInvokeInterface:
		return hierarchy.SearchInterface
	case ir.OpInvokeStatic:
		return hierarchy.SearchStatic
	case ir.OpInvokeDirect:
		return hierarchy.SearchDirect
	default:
		return hierarchy.SearchVirtual
	}
}

// resolveMethod implements spec.md section 4.5's method-reference
// rule, plus virtual-call refinement and invoke-super desuperification.
func (r *Resolver) resolveMethod(m *ir.Method, b *ir.Block, idx int, insn *ir.Instruction, checker *typecheck.Checker) {
	ref := insn.Method
	kind := searchKindForInvoke(insn.Op)
	def := r.hier.ResolveMethod(ref.Owner, ref.Proto(), kind, m.Owner)
	if def != nil && (def.Owner != ref.Owner || def.Proto() != ref.Proto()) {
		r.rewriteMethodRef(insn, def)
	}

	switch insn.Op {
	case ir.OpInvokeVirtual, ir.OpInvokeInterface:
		r.refineVirtualCall(m, b, idx, insn, checker)
	case ir.OpInvokeSuper:
		r.desuperify(insn)
	}
}

func (r *Resolver) rewriteMethodRef(insn *ir.Instruction, def *hierarchy.Method) {
	if r.hier.IsExternal(def.Owner) {
		if !r.cfg.isEnabled(PassRefineToExternal) {
			return
		}
		if r.minSDK == nil || !r.minSDK.HasMethod(def.Owner, def.Proto()) {
			return
		}
	}
	if r.cfg.isExcluded(def.Owner) {
		return
	}
	if !r.hier.IsPublic(def.Owner) {
		r.hier.SetPublic(def.Owner)
	}
	insn.Method = &ir.MethodRef{Owner: def.Owner, Name: def.Name, Params: def.Params, Return: def.Return}
	r.counters.addMethodRefsResolved(1)
}

// refineVirtualCall narrows an invoke-virtual/invoke-interface to the
// receiver's inferred concrete class, per spec.md section 4.5's
// "Virtual-call refinement". If invoke-interface resolves to a
// non-interface class, the opcode itself is rewritten to
// invoke-virtual.
func (r *Resolver) refineVirtualCall(m *ir.Method, b *ir.Block, idx int, insn *ir.Instruction, checker *typecheck.Checker) {
	if len(insn.Src) == 0 {
		return
	}
	recvClass, ok := checker.GetDexType(b.ID, idx, insn.Src[0])
	if !ok {
		return
	}
	target := r.hier.ResolveMethod(recvClass.Name(), insn.Method.Proto(), hierarchy.SearchVirtual, m.Owner)
	if target == nil || (target.Owner == insn.Method.Owner && target.Proto() == insn.Method.Proto()) {
		return
	}
	if r.hier.IsExternal(target.Owner) && !r.cfg.isEnabled(PassRefineToExternal) {
		return
	}
	if r.cfg.isExcluded(target.Owner) {
		return
	}
	if !r.hier.IsPublic(target.Owner) {
		r.hier.SetPublic(target.Owner)
	}

	wasInterface := insn.Op == ir.OpInvokeInterface
	insn.Method = &ir.MethodRef{Owner: target.Owner, Name: target.Name, Params: target.Params, Return: target.Return}
	if wasInterface {
		r.counters.addInvokeInterfaceReplaced(1)
		if !r.hier.IsInterface(target.Owner) {
			insn.Op = ir.OpInvokeVirtual
		}
	} else {
		r.counters.addInvokeVirtualRefined(1)
	}
}

// desuperify implements spec.md section 4.5's invoke-super
// desuperification: if the super-resolved callee is final (and not
// external, not an interface default), the virtual and super dispatch
// outcomes are identical, so the cheaper invoke-virtual form is used
// instead.
func (r *Resolver) desuperify(insn *ir.Instruction) {
	if !r.cfg.isEnabled(PassDesuperify) {
		return
	}
	if r.hier.IsExternal(insn.Method.Owner) || r.hier.IsInterface(insn.Method.Owner) {
		return
	}
	if !r.hier.IsFinal(insn.Method.Owner, insn.Method.Proto()) {
		return
	}
	insn.Op = ir.OpInvokeVirtual
	r.counters.addInvokeSuperRemoved(1)
}
