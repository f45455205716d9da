package cmd

import (
	"fmt"
	"sort"

	"github.com/kr/pretty"
	"github.com/maruel/natural"
	"github.com/spf13/cobra"

	"github.com/dexopt/typecore/internal/config"
	"github.com/dexopt/typecore/internal/fixture"
	"github.com/dexopt/typecore/internal/typecheck"
)

var checkConfigPath string

var checkCmd = &cobra.Command{
	Use:   "check [fixture.json]",
	Short: "Type-check every method in a fixture",
	Long: `check loads a fixture describing a class hierarchy and a batch of
methods, runs the Fixpoint Engine and Type Checker over each method,
and reports the first error found in each, if any.

Methods are listed in natural sort order (so Method2 sorts before
Method10) rather than raw lexical order.

Examples:
  # Check every method in a fixture, reporting pass/fail
  dexopt check testdata/fixtures/basic.json

  # Check using a config file's checker options
  dexopt check testdata/fixtures/basic.json --config dexopt.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkConfigPath, "config", "", "path to a dexopt config file (default: built-in defaults)")
}

func runCheck(_ *cobra.Command, args []string) error {
	cfg := config.Default()
	if checkConfigPath != "" {
		loaded, err := config.Load(checkConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	prog, err := fixture.Load(args[0])
	if err != nil {
		return err
	}

	names := make([]string, len(prog.Methods))
	byName := make(map[string]int, len(prog.Methods))
	for i, m := range prog.Methods {
		names[i] = m.Name
		byName[m.Name] = i
	}
	sort.Sort(natural.StringSlice(names))

	failures := 0
	opts := typecheck.Options{
		ValidateAccess:       cfg.Checker.ValidateAccess,
		VerifyMoves:          cfg.Checker.VerifyMoves,
		CheckNoOverwriteThis: cfg.Checker.CheckNoOverwriteThis,
	}
	for _, name := range names {
		m := prog.Methods[byName[name]]
		checker := typecheck.NewChecker(m, prog.Hierarchy, opts)
		checker.Run()
		if checker.Good() {
			fmt.Printf("%s: OK\n", name)
			continue
		}
		failures++
		fmt.Printf("%s: FAIL\n  %s\n", name, checker.What())
		if verbose {
			pretty.Println(checker.FirstError())
		}
	}

	if failures > 0 {
		exitWithError("%d of %d methods failed type checking", failures, len(prog.Methods))
	}
	return nil
}
