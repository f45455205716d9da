// Package ir models the denormalized, register-based intermediate
// representation the type checker and reference resolver consume: a
// method's control-flow graph of basic blocks, each a sequence of
// Dex-style instructions operating on virtual registers.
//
// This package stands in for the CFG builder, which spec.md places
// out of scope as an external collaborator; it exposes exactly the
// contracts spec.md section 6 names (register count, entry block,
// block/instruction iteration, predecessor/successor edges, resolved
// or symbolic field/method refs) and nothing more.
package ir

// OpCode identifies an instruction's abstract semantics. The set below
// is not the full Dex instruction set — spec.md section 9 treats the
// real Dex opcode list as authoritative — but covers every opcode
// class the transfer function table in spec.md section 4.2 names.
type OpCode uint8

const (
	// ========================================
	// Constants (narrow and wide)
	// ========================================

	// OpConst loads a literal into Dst. A zero Literal yields ZERO,
	// any other value yields CONST1.
	OpConst OpCode = iota
	// OpConstWide loads a 64-bit literal into the Dst/Dst+1 pair,
	// always producing CONST2.
	OpConstWide
	// OpConstString loads a reference to an interned string.
	OpConstString
	// OpConstClass loads a reference to a class object; Class names
	// the class.
	OpConstClass

	// ========================================
	// Register moves
	// ========================================

	// OpMove copies a narrow scalar from Src[0] to Dst.
	OpMove
	// OpMoveWide copies a register pair from Src[0]/Src[0]+1 to
	// Dst/Dst+1.
	OpMoveWide
	// OpMoveObject copies a reference (or ZERO) from Src[0] to Dst.
	OpMoveObject
	// OpMoveResult reads the RESULT pseudoregister into Dst.
	OpMoveResult

	// ========================================
	// Arithmetic (representative of the int/float/wide families)
	// ========================================

	// OpAddInt requires both sources to be INT and produces INT.
	OpAddInt
	// OpAddLong requires both sources to be LONG and produces LONG
	// (wide, occupies Dst/Dst+1).
	OpAddLong
	// OpAddDouble requires both sources to be DOUBLE and produces
	// DOUBLE (wide).
	OpAddDouble

	// ========================================
	// Branches
	// ========================================

	// OpGoto is an unconditional branch; it has no operand
	// preconditions.
	OpGoto
	// OpIfEqObject / OpIfNeObject compare two operands. Beyond the
	// check that every operand is defined, they have no operand
	// preconditions, and the transfer function leaves the environment
	// unchanged: nullness is not refined on either successor.
	OpIfEqObject
	OpIfNeObject
	// OpIfEqZero tests a single integer-or-reference operand against
	// zero/null.
	OpIfEqZero

	// ========================================
	// Objects, casts, instance tests
	// ========================================

	// OpCheckCast narrows Src[0] to the class named by Class; this
	// implementation narrows the register unconditionally after the
	// instruction rather than only on a taken branch (spec.md section
	// 4.2).
	OpCheckCast
	// OpInstanceOf tests Src[0] against Class and writes BOOLEAN to Dst.
	OpInstanceOf
	// OpNewInstance allocates an instance of the class named by Class
	// and writes UNINITIALIZED<Class> to Dst.
	OpNewInstance

	// ========================================
	// Field access
	// ========================================

	// OpIGet / OpIPut read/write an instance field named by Field; Src[0]
	// (or for put, Src[1]) is the receiver.
	OpIGet
	OpIPut
	// OpSGet / OpSPut read/write a static field named by Field.
	OpSGet
	OpSPut

	// ========================================
	// Arrays
	// ========================================

	// OpAGet reads Src[0][Src[1]] into Dst; Src[0] must be a
	// reference, Src[1] must be INT.
	OpAGet
	// OpAPut writes Src[0] into Src[1][Src[2]].
	OpAPut

	// ========================================
	// Invocations
	// ========================================

	// OpInvokeVirtual, OpInvokeSuper, OpInvokeInterface,
	// OpInvokeStatic, OpInvokeDirect dispatch per the invoke-kind
	// spec.md's glossary defines. Src[0] is the receiver for every
	// kind except OpInvokeStatic.
	OpInvokeVirtual
	OpInvokeSuper
	OpInvokeInterface
	OpInvokeStatic
	OpInvokeDirect

	// ========================================
	// Returns
	// ========================================

	// OpReturnVoid returns with no value.
	OpReturnVoid
	// OpReturnObject returns Src[0], which must be reference-typed
	// and a subtype of the method's declared return type.
	OpReturnObject
	// OpReturn returns a narrow scalar.
	OpReturn
)

// IsWideProducing reports whether this opcode always writes a register
// pair. spec.md section 9 treats the real Dex opcode table as
// authoritative over any summary; for this module the set below (fixed
// in SPEC_FULL.md) is the authoritative list. OpAGet is not in it: it
// writes a pair only when its element descriptor (Class) is wide.
func (op OpCode) IsWideProducing() bool {
	switch op {
	case OpConstWide, OpMoveWide, OpAddLong, OpAddDouble:
		return true
	default:
		return false
	}
}

func (op OpCode) IsInvoke() bool {
	switch op {
	case OpInvokeVirtual, OpInvokeSuper, OpInvokeInterface, OpInvokeStatic, OpInvokeDirect:
		return true
	default:
		return false
	}
}

func (op OpCode) IsReturn() bool {
	switch op {
	case OpReturnVoid, OpReturnObject, OpReturn:
		return true
	default:
		return false
	}
}

// Register is a virtual register id. RegResult names the special
// pseudoregister holding the source of the last move-result*.
type Register int

const RegResult Register = -1

// FieldRef is a symbolic or resolved reference to a field.
type FieldRef struct {
	Owner  string // descriptor of the declaring/owning class, e.g. "LFoo;"
	Name   string
	Type   string // field type descriptor
	Static bool
}

// MethodRef is a symbolic or resolved reference to a method.
type MethodRef struct {
	Owner  string // descriptor of the declaring/owning class
	Name   string
	Params []string // parameter type descriptors
	Return string   // return type descriptor ("V" for void)
}

// Proto returns the name+parameter+return signature used to compare
// two method refs for "same dispatch outcome" purposes, ignoring
// Owner.
func (m MethodRef) Proto() string {
	s := m.Name + "("
	for i, p := range m.Params {
		if i > 0 {
			s += ","
		}
		s += p
	}
	return s + ")" + m.Return
}

// Instruction is one IR instruction. Not every field is meaningful for
// every opcode; the transfer function interprets them per Op.
type Instruction struct {
	Op      OpCode
	Dst     Register
	Src     []Register
	Literal int64
	Class   string // target class descriptor for check-cast/instance-of/new-instance/const-class
	Field   *FieldRef
	Method  *MethodRef
}

// Block is a maximal straight-line sequence of instructions.
type Block struct {
	ID    int
	Insns []Instruction
	Preds []int
	Succs []int
}

// Param describes one declared parameter of a method signature as a
// type descriptor (e.g. "I", "Ljava/lang/String;"). ir deliberately
// has no dependency on the lattice package; the typecheck package
// classifies descriptors into lattice.IRType values when it builds a
// method's initial environment.
type Param struct {
	Descriptor string
}

// Method is the unit of analysis: one method's CFG plus the signature
// data the Fixpoint Engine needs to build its initial environment.
type Method struct {
	Name          string
	Owner         string // descriptor of the declaring class
	Params        []Param
	ReturnType    string
	ReturnClass   string
	IsStatic      bool
	IsConstructor bool
	RegisterCount int // N: total virtual registers, not counting RESULT
	Blocks        []*Block
	EntryBlock    int
}

// Block looks up a block by id; CFG edges are stored as ids, not
// pointers, so construction order never matters.
func (m *Method) Block(id int) *Block {
	for _, b := range m.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Entry returns the method's entry block.
func (m *Method) Entry() *Block {
	return m.Block(m.EntryBlock)
}

// RPO returns the blocks of m in reverse postorder from the entry
// block, the order the Fixpoint Engine's first pass uses (spec.md
// section 4.3). Unreachable blocks (never reached by a DFS from
// entry) are appended afterward in id order so every instruction still
// gets an entry environment, matching "unreachable predecessors
// contribute BOTTOM."
func (m *Method) RPO() []*Block {
	visited := make(map[int]bool, len(m.Blocks))
	var post []*Block

	var visit func(id int)
	visit = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		b := m.Block(id)
		if b == nil {
			return
		}
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(m.EntryBlock)

	rpo := make([]*Block, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}

	for _, b := range m.Blocks {
		if !visited[b.ID] {
			rpo = append(rpo, b)
		}
	}
	return rpo
}
