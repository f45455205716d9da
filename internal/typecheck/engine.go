package typecheck

import (
	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
)

// InsnID identifies one instruction by its block and index within
// that block, standing in for "instruction identity" since ir.Instruction
// is a plain value type (spec.md section 4.3: "cache as a mapping from
// instruction identity to environment").
type InsnID struct {
	Block int
	Index int
}

// Engine is the monotone forward dataflow Fixpoint Engine of spec.md
// section 4.3. It is parameterized by a class hierarchy so the
// transfer function and environment joins can resolve class identity,
// and it is strictly single-threaded within one method — spec.md
// section 5 only allows parallelism *across* methods.
type Engine struct {
	Hierarchy *hierarchy.Hierarchy
}

func NewEngine(h *hierarchy.Hierarchy) *Engine {
	return &Engine{Hierarchy: h}
}

// Result holds the per-instruction entry environments computed for one
// method, plus each block's exit environment (used while iterating,
// and useful to callers inspecting loop behavior).
type Result struct {
	Entry map[InsnID]*Environment
	Exit  map[int]*Environment
}

// EntryEnv returns the environment in effect *before* insn (block, idx)
// executes, matching spec.md section 3's invariant: "get_type(insn, r)
// returns the type of r before insn executes."
func (r *Result) EntryEnv(block, idx int) *Environment {
	return r.Entry[InsnID{Block: block, Index: idx}]
}

// Run computes the fixpoint over m's CFG: worklist over blocks in
// reverse postorder for the first pass, then revisiting any successor
// whose entry state changes, until no block's entry state changes
// further (spec.md section 4.3). The lattice's finite height
// guarantees termination without widening.
func (e *Engine) Run(m *ir.Method) *Result {
	res := &Result{Entry: make(map[InsnID]*Environment), Exit: make(map[int]*Environment)}

	entryOf := make(map[int]*Environment)
	order := m.RPO()

	queue := make([]*ir.Block, len(order))
	copy(queue, order)
	queued := make(map[int]bool, len(order))
	for _, b := range order {
		queued[b.ID] = true
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		queued[b.ID] = false

		var entry *Environment
		if b.ID == m.EntryBlock {
			entry = BuildInitialEnvironment(m, e.Hierarchy)
		} else {
			entry = joinPredecessors(b, entryOf, res.Exit, e.Hierarchy)
		}

		prev, hadPrev := entryOf[b.ID]
		if hadPrev && Equal(prev, entry) {
			continue
		}
		entryOf[b.ID] = entry

		exit := e.runBlock(b, entry, res)
		res.Exit[b.ID] = exit

		for _, succID := range b.Succs {
			if !queued[succID] {
				queued[succID] = true
				queue = append(queue, m.Block(succID))
			}
		}
	}

	return res
}

// runBlock sequentially composes the instruction transfer across b,
// caching each instruction's entry environment before it executes.
func (e *Engine) runBlock(b *ir.Block, entry *Environment, res *Result) *Environment {
	cur := entry
	for idx, insn := range b.Insns {
		res.Entry[InsnID{Block: b.ID, Index: idx}] = cur
		cur = Apply(insn, cur, e.Hierarchy)
	}
	return cur
}

func joinPredecessors(b *ir.Block, entryOf map[int]*Environment, exitOf map[int]*Environment, h *hierarchy.Hierarchy) *Environment {
	var acc *Environment
	for _, p := range b.Preds {
		exit, ok := exitOf[p]
		if !ok {
			continue // predecessor not yet visited: contributes BOTTOM, i.e. nothing
		}
		if acc == nil {
			acc = exit
			continue
		}
		acc = Join(acc, exit, h)
	}
	if acc == nil {
		return NewEnvironment()
	}
	return acc
}
