// Package typecheck implements spec.md sections 4.2–4.4: the Transfer
// Function (transfer.go), the Fixpoint Engine (engine.go), and the
// Type Checker (this file) that drives the engine over one method,
// validates every instruction against its preconditions, and reports
// the first error.
package typecheck

import (
	"github.com/dexopt/typecore/internal/diag"
	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
	"github.com/dexopt/typecore/internal/lattice"
)

// Options configures a Checker, matching spec.md section 4.4's `new`.
type Options struct {
	ValidateAccess       bool
	VerifyMoves          bool
	CheckNoOverwriteThis bool
}

type state int

const (
	statePending state = iota
	stateComplete
)

// Checker drives the Fixpoint Engine over one method and sweeps its
// instructions for the first precondition violation. Grounded on
// tmc-mirror-go.tools/go/types/check.go's checker struct, which keeps
// a single firsterr and stops recording after it is set — spec.md
// section 4.4 calls for exactly that "stop at first error" discipline.
type Checker struct {
	method  *ir.Method
	engine  *Engine
	hier    *hierarchy.Hierarchy
	opts    Options
	state   state
	result  *Result
	firstErr *diag.Error
}

// NewChecker configures a Checker for one method (spec.md section
// 4.4's `new(method, {...})`).
func NewChecker(method *ir.Method, h *hierarchy.Hierarchy, opts Options) *Checker {
	return &Checker{method: method, engine: NewEngine(h), hier: h, opts: opts}
}

// Run executes the fixpoint, then sweeps instructions in RPO order for
// the first precondition failure. Idempotent: a second call is a
// no-op once the checker has completed (spec.md section 4.4).
func (c *Checker) Run() {
	if c.state == stateComplete {
		return
	}
	c.result = c.engine.Run(c.method)

	for _, b := range c.method.RPO() {
		for idx, insn := range b.Insns {
			env := c.result.EntryEnv(b.ID, idx)
			if err := CheckPreconditions(c.method, b.ID, idx, insn, env, c.opts, c.hier); err != nil {
				c.firstErr = err
				c.state = stateComplete
				return
			}
		}
	}
	c.state = stateComplete
}

// Good reports whether Run completed with no error. Panics if called
// before Run, matching spec.md's "callers must consult good() before
// calling get_type".
func (c *Checker) Good() bool {
	c.mustBeComplete()
	return c.firstErr == nil
}

func (c *Checker) Fail() bool {
	return !c.Good()
}

// What returns a human-readable description of the first error, or the
// literal "OK".
func (c *Checker) What() string {
	c.mustBeComplete()
	if c.firstErr == nil {
		return "OK"
	}
	return c.firstErr.Format()
}

// FirstError returns the first diagnostic, or nil if the method
// checked out clean.
func (c *Checker) FirstError() *diag.Error {
	c.mustBeComplete()
	return c.firstErr
}

// GetType returns the scalar lattice element reg holds at insn's
// entry.
func (c *Checker) GetType(block, idx int, reg ir.Register) lattice.IRType {
	env := c.result.EntryEnv(block, idx)
	if env == nil {
		return lattice.Bottom
	}
	return env.Get(reg).Scalar
}

// GetDexType returns the concrete declared class reg holds at insn's
// entry, if known.
func (c *Checker) GetDexType(block, idx int, reg ir.Register) (lattice.ClassRef, bool) {
	env := c.result.EntryEnv(block, idx)
	if env == nil {
		return nil, false
	}
	cls := env.Get(reg).Ref.Class
	return cls, cls != nil
}

// Result exposes the underlying fixpoint result, e.g. for the
// Reference Resolver, which needs per-instruction environments without
// re-running the engine (spec.md section 4.5: "internally invokes the
// engine").
func (c *Checker) Result() *Result {
	c.mustBeComplete()
	return c.result
}

func (c *Checker) mustBeComplete() {
	if c.state != stateComplete {
		panic("typecheck: Checker method called before Run completed")
	}
}
