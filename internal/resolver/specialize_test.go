package resolver

import (
	"testing"

	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
)

func animalDogHierarchyForSpecialize() *hierarchy.Hierarchy {
	h := hierarchy.NewHierarchy([]*hierarchy.Class{
		{Name: "LAnimal;"},
		{Name: "LDog;", Super: "LAnimal;"},
	})
	for _, c := range h.AllClasses() {
		h.SetPublic(c.Name)
	}
	return h
}

// twoWayDogReturner declares a return type of LAnimal; but every
// return-object source (on both branches) is a freshly constructed
// LDog;, so the join of its return sources is strictly narrower than
// its declared return type.
func twoWayDogReturner() *ir.Method {
	makeDog := func() []ir.Instruction {
		return []ir.Instruction{
			{Op: ir.OpNewInstance, Dst: 0, Class: "LDog;"},
			{Op: ir.OpInvokeDirect, Src: []ir.Register{0}, Method: &ir.MethodRef{Owner: "LDog;", Name: "<init>", Return: "V"}},
			{Op: ir.OpReturnObject, Src: []ir.Register{0}},
		}
	}
	return &ir.Method{
		Name: "twoWayDog", Owner: "LCaller;", IsStatic: true, RegisterCount: 1, EntryBlock: 0,
		ReturnType: "LAnimal;", ReturnClass: "LAnimal;",
		Blocks: []*ir.Block{
			{ID: 0, Succs: []int{1, 2}, Insns: []ir.Instruction{{Op: ir.OpGoto}}},
			{ID: 1, Preds: []int{0}, Insns: makeDog()},
			{ID: 2, Preds: []int{0}, Insns: makeDog()},
		},
	}
}

func TestCollectReturnSpecializationNarrowsJoinedReturnSources(t *testing.T) {
	h := animalDogHierarchyForSpecialize()
	r := New(h, nil, nil, WithPass(PassSpecializeRType, true))
	m := twoWayDogReturner()
	outcome := r.Run(m)
	if outcome.Checker.Fail() {
		t.Fatalf("expected clean check, got %s", outcome.Checker.What())
	}
	if len(outcome.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(outcome.Candidates))
	}
	c := outcome.Candidates[0]
	if c.DeclaredRet != "LAnimal;" || c.InferredRet != "LDog;" {
		t.Fatalf("expected LAnimal;->LDog; narrowing, got %s->%s", c.DeclaredRet, c.InferredRet)
	}
	if r.Counters().Snapshot().NumRTypeSpecializationCandidates != 1 {
		t.Fatal("expected num_rtype_specialization_candidates to be incremented")
	}
}

func TestCollectReturnSpecializationSkippedWhenDisabled(t *testing.T) {
	h := animalDogHierarchyForSpecialize()
	r := New(h, nil, nil) // specialize-rtype defaults to off
	m := twoWayDogReturner()
	outcome := r.Run(m)
	if outcome.Checker.Fail() {
		t.Fatalf("expected clean check, got %s", outcome.Checker.What())
	}
	if len(outcome.Candidates) != 0 {
		t.Fatalf("expected no candidates when the pass is disabled, got %d", len(outcome.Candidates))
	}
}

func TestCollectReturnSpecializationIgnoresVoidAndScalarReturns(t *testing.T) {
	h := hierarchy.NewHierarchy([]*hierarchy.Class{
		{Name: "LUtil;", Methods: []hierarchy.Method{
			{Owner: "LUtil;", Name: "count", Return: "I", Static: true},
		}},
	})
	m := &ir.Method{
		Name: "useUtil", Owner: "LCaller;", IsStatic: true, RegisterCount: 1, EntryBlock: 0,
		Blocks: []*ir.Block{{
			ID: 0,
			Insns: []ir.Instruction{
				{Op: ir.OpInvokeStatic, Method: &ir.MethodRef{Owner: "LUtil;", Name: "count", Return: "I"}},
				{Op: ir.OpMoveResult, Dst: 0},
				{Op: ir.OpReturnVoid},
			},
		}},
	}
	r := New(h, nil, nil, WithPass(PassSpecializeRType, true))
	outcome := r.Run(m)
	if outcome.Checker.Fail() {
		t.Fatalf("expected clean check, got %s", outcome.Checker.What())
	}
	if len(outcome.Candidates) != 0 {
		t.Fatalf("a void/scalar return should never be a specialization candidate, got %d", len(outcome.Candidates))
	}
}

func TestCollectReturnSpecializationNoCandidateWhenAlreadyExact(t *testing.T) {
	h := animalDogHierarchyForSpecialize()
	m := &ir.Method{
		Name: "exactDog", Owner: "LCaller;", IsStatic: true, RegisterCount: 1, EntryBlock: 0,
		ReturnType: "LDog;", ReturnClass: "LDog;",
		Blocks: []*ir.Block{{
			ID: 0,
			Insns: []ir.Instruction{
				{Op: ir.OpNewInstance, Dst: 0, Class: "LDog;"},
				{Op: ir.OpInvokeDirect, Src: []ir.Register{0}, Method: &ir.MethodRef{Owner: "LDog;", Name: "<init>", Return: "V"}},
				{Op: ir.OpReturnObject, Src: []ir.Register{0}},
			},
		}},
	}
	r := New(h, nil, nil, WithPass(PassSpecializeRType, true))
	outcome := r.Run(m)
	if outcome.Checker.Fail() {
		t.Fatalf("expected clean check, got %s", outcome.Checker.What())
	}
	if len(outcome.Candidates) != 0 {
		t.Fatalf("a return already exactly the declared type is not a candidate, got %d", len(outcome.Candidates))
	}
}
