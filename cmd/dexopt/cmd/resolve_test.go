package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dexopt/typecore/internal/config"
	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
	"github.com/dexopt/typecore/internal/resolver"
)

// TestResolverOptionsReflectSetOverride checks the --set plumbing
// end to end: an override applied to config.Default() must actually
// flip the resolver pass it names, not just the config struct field.
func TestResolverOptionsReflectSetOverride(t *testing.T) {
	cfg, err := config.ApplySet(config.Default(), []string{"resolver.specialize_rtype=true"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := hierarchy.NewHierarchy([]*hierarchy.Class{
		{Name: "LAnimal;"},
		{Name: "LDog;", Super: "LAnimal;"},
		{Name: "LFactory;", Methods: []hierarchy.Method{
			{Owner: "LFactory;", Name: "make", Return: "LAnimal;", Static: true},
		}},
	})
	for _, c := range h.AllClasses() {
		h.SetPublic(c.Name)
	}
	// Declared to return LAnimal; but always returns a new LDog;, so it
	// is a candidate exactly when specialize-rtype is on.
	m := &ir.Method{
		Name: "makeDog", Owner: "LCaller;", IsStatic: true, RegisterCount: 1, EntryBlock: 0,
		ReturnType: "LAnimal;", ReturnClass: "LAnimal;",
		Blocks: []*ir.Block{{
			ID: 0,
			Insns: []ir.Instruction{
				{Op: ir.OpNewInstance, Dst: 0, Class: "LDog;"},
				{Op: ir.OpInvokeDirect, Src: []ir.Register{0}, Method: &ir.MethodRef{Owner: "LDog;", Name: "<init>", Return: "V"}},
				{Op: ir.OpReturnObject, Src: []ir.Register{0}},
			},
		}},
	}

	r := resolver.New(h, nil, nil, resolverOptions(cfg)...)
	outcome := r.Run(m)
	if outcome.Checker.Fail() {
		t.Fatalf("expected clean check, got %s", outcome.Checker.What())
	}
	if len(outcome.Candidates) != 1 {
		t.Fatalf("expected specialize-rtype to be on and report 1 candidate, got %d", len(outcome.Candidates))
	}
}

// writeReport shapes its document with sjson path-sets; round-trip it
// through gjson path-queries rather than unmarshaling into a struct, so
// the report format is verified the same path-based way a downstream
// consumer (CI dashboard, whatever) would read it.
func TestWriteReportRoundTripsThroughGJSON(t *testing.T) {
	c := resolver.Counters{
		MethodRefsResolved:      3,
		FieldRefsResolved:       1,
		NumInvokeVirtualRefined: 2,
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := writeReport(path, c, 1, 5); err != nil {
		t.Fatalf("writeReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report back: %v", err)
	}
	doc := string(data)

	if got := gjson.Get(doc, "summary.total_methods").Int(); got != 5 {
		t.Fatalf("expected summary.total_methods=5, got %d", got)
	}
	if got := gjson.Get(doc, "summary.failures").Int(); got != 1 {
		t.Fatalf("expected summary.failures=1, got %d", got)
	}
	if got := gjson.Get(doc, "counters.method_refs_resolved").Int(); got != 3 {
		t.Fatalf("expected counters.method_refs_resolved=3, got %d", got)
	}
	if got := gjson.Get(doc, "counters.num_invoke_virtual_refined").Int(); got != 2 {
		t.Fatalf("expected counters.num_invoke_virtual_refined=2, got %d", got)
	}
}
