package resolver

import "sync/atomic"

// Counters aggregates the resolver metrics spec.md section 6 names.
// Each field is updated with atomic adds so one Counters instance can
// be shared safely across the parallel per-method workers spec.md
// section 5 describes; Snapshot/Merge give callers a commutative way
// to reduce per-worker totals if they prefer one Counters per worker
// instead of a shared one.
type Counters struct {
	MethodRefsResolved               int64
	FieldRefsResolved                int64
	NumInvokeVirtualRefined          int64
	NumInvokeInterfaceReplaced       int64
	NumInvokeSuperRemoved            int64
	NumRTypeSpecializationCandidates int64
}

func (c *Counters) addMethodRefsResolved(n int64)      { atomic.AddInt64(&c.MethodRefsResolved, n) }
func (c *Counters) addFieldRefsResolved(n int64)       { atomic.AddInt64(&c.FieldRefsResolved, n) }
func (c *Counters) addInvokeVirtualRefined(n int64)    { atomic.AddInt64(&c.NumInvokeVirtualRefined, n) }
func (c *Counters) addInvokeInterfaceReplaced(n int64) { atomic.AddInt64(&c.NumInvokeInterfaceReplaced, n) }
func (c *Counters) addInvokeSuperRemoved(n int64)      { atomic.AddInt64(&c.NumInvokeSuperRemoved, n) }
func (c *Counters) addRTypeSpecializationCandidate(n int64) {
	atomic.AddInt64(&c.NumRTypeSpecializationCandidates, n)
}

// Snapshot returns a non-atomic copy safe to read after all workers
// sharing c have finished.
func (c *Counters) Snapshot() Counters {
	return Counters{
		MethodRefsResolved:               atomic.LoadInt64(&c.MethodRefsResolved),
		FieldRefsResolved:                atomic.LoadInt64(&c.FieldRefsResolved),
		NumInvokeVirtualRefined:          atomic.LoadInt64(&c.NumInvokeVirtualRefined),
		NumInvokeInterfaceReplaced:       atomic.LoadInt64(&c.NumInvokeInterfaceReplaced),
		NumInvokeSuperRemoved:            atomic.LoadInt64(&c.NumInvokeSuperRemoved),
		NumRTypeSpecializationCandidates: atomic.LoadInt64(&c.NumRTypeSpecializationCandidates),
	}
}

// Merge folds o's counts into c. The combine is commutative and
// associative, so per-thread Counters can be merged in any order
// after the parallel phase (spec.md section 5).
func (c *Counters) Merge(o Counters) {
	c.addMethodRefsResolved(o.MethodRefsResolved)
	c.addFieldRefsResolved(o.FieldRefsResolved)
	c.addInvokeVirtualRefined(o.NumInvokeVirtualRefined)
	c.addInvokeInterfaceReplaced(o.NumInvokeInterfaceReplaced)
	c.addInvokeSuperRemoved(o.NumInvokeSuperRemoved)
	c.addRTypeSpecializationCandidate(o.NumRTypeSpecializationCandidates)
}
