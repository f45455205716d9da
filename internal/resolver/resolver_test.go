package resolver

import (
	"testing"

	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
)

func animalDogHierarchy() *hierarchy.Hierarchy {
	return hierarchy.NewHierarchy([]*hierarchy.Class{
		{Name: "LAnimal;", Methods: []hierarchy.Method{
			{Owner: "LAnimal;", Name: "speak", Return: "V"},
		}},
		{Name: "LDog;", Super: "LAnimal;", Methods: []hierarchy.Method{
			{Owner: "LDog;", Name: "speak", Return: "V", Final: true},
		}},
	})
}

// makeSpeak(Animal a) { invoke-virtual a.speak() } where the checker
// infers a's concrete class is LDog; at the call site.
func virtualCallMethod(recvClass string) *ir.Method {
	return &ir.Method{
		Name: "makeSpeak", Owner: "LCaller;", IsStatic: true, RegisterCount: 1, EntryBlock: 0,
		Blocks: []*ir.Block{{
			ID: 0,
			Insns: []ir.Instruction{
				{Op: ir.OpNewInstance, Dst: 0, Class: recvClass},
				{
					Op: ir.OpInvokeDirect, Src: []ir.Register{0},
					Method: &ir.MethodRef{Owner: recvClass, Name: "<init>", Return: "V"},
				},
				{
					Op: ir.OpInvokeVirtual, Src: []ir.Register{0},
					Method: &ir.MethodRef{Owner: "LAnimal;", Name: "speak", Return: "V"},
				},
				{Op: ir.OpReturnVoid},
			},
		}},
	}
}

func TestResolverRefinesVirtualCallToConcreteClass(t *testing.T) {
	h := animalDogHierarchy()
	for _, c := range h.AllClasses() {
		h.SetPublic(c.Name)
	}
	r := New(h, nil, nil)
	m := virtualCallMethod("LDog;")
	outcome := r.Run(m)
	if outcome.Checker.Fail() {
		t.Fatalf("expected the method to check out clean, got %s", outcome.Checker.What())
	}
	call := m.Blocks[0].Insns[2]
	if call.Method.Owner != "LDog;" {
		t.Fatalf("expected the call refined to LDog;, got %s", call.Method.Owner)
	}
	if r.Counters().Snapshot().NumInvokeVirtualRefined != 1 {
		t.Fatalf("expected one refined virtual call counted, got %d", r.Counters().Snapshot().NumInvokeVirtualRefined)
	}
}

func TestResolverKeepsSuperCallToNonFinalMethod(t *testing.T) {
	h := animalDogHierarchy()
	for _, c := range h.AllClasses() {
		h.SetPublic(c.Name)
	}
	m := &ir.Method{
		Name: "callSuper", Owner: "LDog;", IsStatic: false, RegisterCount: 1, EntryBlock: 0,
		Blocks: []*ir.Block{{
			ID: 0,
			Insns: []ir.Instruction{
				{
					Op: ir.OpInvokeSuper, Src: []ir.Register{0},
					Method: &ir.MethodRef{Owner: "LAnimal;", Name: "speak", Return: "V"},
				},
				{Op: ir.OpReturnVoid},
			},
		}},
	}
	r := New(h, nil, nil, WithPass(PassDesuperify, true))
	outcome := r.Run(m)
	if outcome.Checker.Fail() {
		t.Fatalf("expected clean check, got %s", outcome.Checker.What())
	}
	// LAnimal;'s speak is not final, so desuperify should not have fired
	// here since the resolved target (LAnimal;.speak via super) isn't final.
	if m.Blocks[0].Insns[0].Op != ir.OpInvokeSuper {
		t.Fatalf("expected invoke-super left alone since LAnimal;.speak is not final, got %v", m.Blocks[0].Insns[0].Op)
	}
}

func TestResolverFieldResolutionRewritesToOwner(t *testing.T) {
	h := hierarchy.NewHierarchy([]*hierarchy.Class{
		{Name: "LBase;", Fields: []hierarchy.Field{{Owner: "LBase;", Name: "count", Type: "I"}}},
		{Name: "LSub;", Super: "LBase;"},
	})
	h.SetPublic("LBase;")
	h.SetPublic("LSub;")
	m := &ir.Method{
		Name: "readCount", Owner: "LCaller;", IsStatic: true, RegisterCount: 2, EntryBlock: 0,
		Blocks: []*ir.Block{{
			ID: 0,
			Insns: []ir.Instruction{
				{Op: ir.OpNewInstance, Dst: 0, Class: "LSub;"},
				{Op: ir.OpInvokeDirect, Src: []ir.Register{0}, Method: &ir.MethodRef{Owner: "LSub;", Name: "<init>", Return: "V"}},
				{Op: ir.OpIGet, Dst: 1, Src: []ir.Register{0}, Field: &ir.FieldRef{Owner: "LSub;", Name: "count", Type: "I"}},
				{Op: ir.OpReturn, Src: []ir.Register{1}},
			},
		}},
	}
	r := New(h, nil, nil)
	outcome := r.Run(m)
	if outcome.Checker.Fail() {
		t.Fatalf("expected clean check, got %s", outcome.Checker.What())
	}
	got := m.Blocks[0].Insns[2].Field
	if got.Owner != "LBase;" {
		t.Fatalf("expected field resolved to LBase;, got %s", got.Owner)
	}
	if r.Counters().Snapshot().FieldRefsResolved != 1 {
		t.Fatal("expected field_refs_resolved to be incremented")
	}
}

func TestResolverSkipsRewriteWhenCheckFails(t *testing.T) {
	h := animalDogHierarchy()
	m := &ir.Method{
		Name: "broken", Owner: "LCaller;", IsStatic: true, RegisterCount: 1, EntryBlock: 0,
		Blocks: []*ir.Block{{
			ID: 0,
			Insns: []ir.Instruction{
				{
					Op: ir.OpInvokeVirtual, Src: []ir.Register{0},
					Method: &ir.MethodRef{Owner: "LAnimal;", Name: "speak", Return: "V"},
				},
				{Op: ir.OpReturnVoid},
			},
		}},
	}
	r := New(h, nil, nil)
	outcome := r.Run(m)
	if outcome.Checker.Good() {
		t.Fatal("expected this method to fail (v0 is undefined)")
	}
	if m.Blocks[0].Insns[0].Method.Owner != "LAnimal;" {
		t.Fatal("expected no rewrite on a failing method")
	}
}
