package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/kr/pretty"
	"github.com/maruel/natural"
	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/dexopt/typecore/internal/config"
	"github.com/dexopt/typecore/internal/fixture"
	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/pipeline"
	"github.com/dexopt/typecore/internal/resolver"
)

var (
	resolveConfigPath string
	resolveReportPath string
	resolveWorkers    int
	resolveSet        []string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [fixture.json]",
	Short: "Resolve references across every method in a fixture",
	Long: `resolve type-checks and then resolves field and method references
across every method in a fixture, running one worker per method up to
--workers (default: GOMAXPROCS).

Passing --report writes a JSON summary of the resolved counters,
shaped with tidwall/sjson rather than a plain struct marshal so the
report document's layout is independent of the internal Counters
struct's field order.

--set overrides individual config fields without a config file, or on
top of one, e.g. --set resolver.specialize_rtype=true --set workers=4.

Examples:
  dexopt resolve testdata/fixtures/basic.json
  dexopt resolve testdata/fixtures/basic.json --config dexopt.yaml --report out.json
  dexopt resolve testdata/fixtures/basic.json --set resolver.desuperify=false`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&resolveConfigPath, "config", "", "path to a dexopt config file")
	resolveCmd.Flags().StringVar(&resolveReportPath, "report", "", "write a JSON counters report to this path")
	resolveCmd.Flags().IntVar(&resolveWorkers, "workers", 0, "number of concurrent per-method workers (0: GOMAXPROCS)")
	resolveCmd.Flags().StringArrayVar(&resolveSet, "set", nil, "override a config field, e.g. --set resolver.specialize_rtype=true")
}

func runResolve(_ *cobra.Command, args []string) error {
	cfg := config.Default()
	if resolveConfigPath != "" {
		loaded, err := config.Load(resolveConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg, err := config.ApplySet(cfg, resolveSet)
	if err != nil {
		return err
	}
	workers := resolveWorkers
	if workers == 0 {
		workers = cfg.Workers
	}

	prog, err := fixture.Load(args[0])
	if err != nil {
		return err
	}

	var minSDK *hierarchy.MinSDK
	if cfg.MinSDKPath != "" {
		minSDK, err = loadMinSDK(cfg.MinSDKPath)
		if err != nil {
			return err
		}
	}

	opts := resolverOptions(cfg)
	results, counters, err := pipeline.Run(context.Background(), prog.Methods, prog.Hierarchy, minSDK, workers, opts...)
	if err != nil {
		return err
	}

	names := make([]string, len(results))
	byName := make(map[string]pipeline.MethodResult, len(results))
	for i, r := range results {
		names[i] = r.Method.Name
		byName[r.Method.Name] = r
	}
	sort.Sort(natural.StringSlice(names))

	failures := 0
	for _, name := range names {
		r := byName[name]
		if r.Err != nil {
			failures++
			fmt.Printf("%s: FAIL\n  %s\n", name, r.Err.Format())
			continue
		}
		fmt.Printf("%s: OK (%d return-specialization candidates)\n", name, len(r.Outcome.Candidates))
	}

	snap := counters.Snapshot()
	if verbose {
		pretty.Println(snap)
	}
	fmt.Printf("\nmethod_refs_resolved=%d field_refs_resolved=%d invoke_virtual_refined=%d invoke_interface_replaced=%d invoke_super_removed=%d rtype_candidates=%d\n",
		snap.MethodRefsResolved, snap.FieldRefsResolved, snap.NumInvokeVirtualRefined,
		snap.NumInvokeInterfaceReplaced, snap.NumInvokeSuperRemoved, snap.NumRTypeSpecializationCandidates)

	reportPath := resolveReportPath
	if reportPath == "" {
		reportPath = cfg.ReportPath
	}
	if reportPath != "" {
		if err := writeReport(reportPath, snap, failures, len(prog.Methods)); err != nil {
			return err
		}
	}

	if failures > 0 {
		exitWithError("%d of %d methods failed type checking", failures, len(prog.Methods))
	}
	return nil
}

func resolverOptions(cfg config.Config) []resolver.Option {
	opts := []resolver.Option{
		resolver.WithPass(resolver.PassRefineToExternal, cfg.Resolver.RefineToExternal),
		resolver.WithPass(resolver.PassDesuperify, cfg.Resolver.Desuperify),
		resolver.WithPass(resolver.PassSpecializeRType, cfg.Resolver.SpecializeRType),
	}
	if len(cfg.Resolver.ExcludedExternals) > 0 {
		opts = append(opts, resolver.WithExcludedExternals(cfg.Resolver.ExcludedExternals))
	}
	return opts
}

// writeReport shapes the counters document one field at a time with
// sjson, building the JSON tree by path instead of marshaling a
// struct, so the report's shape can diverge from resolver.Counters'
// internal field layout without a parallel DTO type.
func writeReport(path string, c resolver.Counters, failures, total int) error {
	doc := "{}"
	var err error
	set := func(p string, v any) {
		if err != nil {
			return
		}
		doc, err = sjson.Set(doc, p, v)
	}
	set("summary.total_methods", total)
	set("summary.failures", failures)
	set("counters.method_refs_resolved", c.MethodRefsResolved)
	set("counters.field_refs_resolved", c.FieldRefsResolved)
	set("counters.num_invoke_virtual_refined", c.NumInvokeVirtualRefined)
	set("counters.num_invoke_interface_replaced", c.NumInvokeInterfaceReplaced)
	set("counters.num_invoke_super_removed", c.NumInvokeSuperRemoved)
	set("counters.num_rtype_specialization_candidates", c.NumRTypeSpecializationCandidates)
	if err != nil {
		return fmt.Errorf("resolve: building report: %w", err)
	}
	return os.WriteFile(path, []byte(doc), 0o644)
}

func loadMinSDK(path string) (*hierarchy.MinSDK, error) {
	prog, err := fixture.Load(path)
	if err != nil {
		return nil, err
	}
	var methods, fields []string
	for _, c := range prog.Hierarchy.AllClasses() {
		for _, m := range c.Methods {
			methods = append(methods, c.Name+"#"+m.Proto())
		}
		for _, f := range c.Fields {
			fields = append(fields, c.Name+"#"+f.Name+":"+f.Type)
		}
	}
	return hierarchy.NewMinSDK(methods, fields), nil
}
