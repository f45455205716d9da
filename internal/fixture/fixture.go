// Package fixture loads the small JSON documents cmd/dexopt and the
// package tests use to describe a class hierarchy and a batch of
// methods, standing in for the real Dex file reader spec.md places out
// of scope. Structural decode uses stdlib encoding/json rather than
// gjson/sjson: those two are wired into cmd/dexopt for read-only path
// queries and targeted patches over already-decoded JSON (see
// DESIGN.md), not for decoding a whole document into typed structs,
// which is what encoding/json is for.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dexopt/typecore/internal/hierarchy"
	"github.com/dexopt/typecore/internal/ir"
)

type classDoc struct {
	Name       string      `json:"name"`
	Super      string      `json:"super"`
	Interfaces []string    `json:"interfaces"`
	External   bool        `json:"external"`
	Interface  bool        `json:"interface"`
	Public     bool        `json:"public"`
	Fields     []fieldDoc  `json:"fields"`
	Methods    []methodDoc `json:"methods"`
}

type fieldDoc struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Static bool   `json:"static"`
}

type methodDoc struct {
	Name     string `json:"name"`
	Params   []string `json:"params"`
	Return   string   `json:"return"`
	Static   bool     `json:"static"`
	Final    bool     `json:"final"`
	Abstract bool     `json:"abstract"`
}

type instructionDoc struct {
	Op      string    `json:"op"`
	Dst     int       `json:"dst"`
	Src     []int     `json:"src"`
	Literal int64     `json:"literal"`
	Class   string    `json:"class"`
	Field   *fieldRefDoc  `json:"field"`
	Method  *methodRefDoc `json:"method"`
}

type fieldRefDoc struct {
	Owner  string `json:"owner"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Static bool   `json:"static"`
}

type methodRefDoc struct {
	Owner  string   `json:"owner"`
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Return string   `json:"return"`
}

type blockDoc struct {
	ID    int              `json:"id"`
	Insns []instructionDoc `json:"insns"`
	Preds []int            `json:"preds"`
	Succs []int            `json:"succs"`
}

type methodUnitDoc struct {
	Name          string     `json:"name"`
	Owner         string     `json:"owner"`
	Params        []string   `json:"params"`
	ReturnType    string     `json:"return_type"`
	ReturnClass   string     `json:"return_class"`
	IsStatic      bool       `json:"is_static"`
	IsConstructor bool       `json:"is_constructor"`
	RegisterCount int        `json:"register_count"`
	EntryBlock    int        `json:"entry_block"`
	Blocks        []blockDoc `json:"blocks"`
}

// Document is the top-level fixture format: a program's classes and
// the methods to analyze.
type Document struct {
	Classes []classDoc      `json:"classes"`
	Methods []methodUnitDoc `json:"methods"`
}

// Program is a loaded fixture, ready to hand to the resolver pipeline.
type Program struct {
	Hierarchy *hierarchy.Hierarchy
	Methods   []*ir.Method
}

// Load reads and decodes a fixture file from path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a fixture document already in memory.
func Parse(data []byte) (*Program, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fixture: decoding: %w", err)
	}

	classes := make([]*hierarchy.Class, 0, len(doc.Classes))
	for _, cd := range doc.Classes {
		c := &hierarchy.Class{
			Name:       cd.Name,
			Super:      cd.Super,
			Interfaces: cd.Interfaces,
			External:   cd.External,
			Interface:  cd.Interface,
		}
		for _, fd := range cd.Fields {
			c.Fields = append(c.Fields, hierarchy.Field{Owner: cd.Name, Name: fd.Name, Type: fd.Type, Static: fd.Static})
		}
		for _, md := range cd.Methods {
			c.Methods = append(c.Methods, hierarchy.Method{
				Owner: cd.Name, Name: md.Name, Params: md.Params, Return: md.Return,
				Static: md.Static, Final: md.Final, Abstract: md.Abstract,
			})
		}
		classes = append(classes, c)
	}
	h := hierarchy.NewHierarchy(classes)
	for _, cd := range doc.Classes {
		if cd.Public {
			h.SetPublic(cd.Name)
		}
	}

	methods := make([]*ir.Method, 0, len(doc.Methods))
	for _, md := range doc.Methods {
		methods = append(methods, buildMethod(md))
	}

	return &Program{Hierarchy: h, Methods: methods}, nil
}

func buildMethod(md methodUnitDoc) *ir.Method {
	params := make([]ir.Param, len(md.Params))
	for i, p := range md.Params {
		params[i] = ir.Param{Descriptor: p}
	}

	blocks := make([]*ir.Block, 0, len(md.Blocks))
	for _, bd := range md.Blocks {
		insns := make([]ir.Instruction, 0, len(bd.Insns))
		for _, id := range bd.Insns {
			insns = append(insns, buildInstruction(id))
		}
		blocks = append(blocks, &ir.Block{ID: bd.ID, Insns: insns, Preds: bd.Preds, Succs: bd.Succs})
	}

	return &ir.Method{
		Name: md.Name, Owner: md.Owner, Params: params,
		ReturnType: md.ReturnType, ReturnClass: md.ReturnClass,
		IsStatic: md.IsStatic, IsConstructor: md.IsConstructor,
		RegisterCount: md.RegisterCount, Blocks: blocks, EntryBlock: md.EntryBlock,
	}
}

func buildInstruction(id instructionDoc) ir.Instruction {
	src := make([]ir.Register, len(id.Src))
	for i, s := range id.Src {
		src[i] = ir.Register(s)
	}
	insn := ir.Instruction{
		Op: opFromName(id.Op), Dst: ir.Register(id.Dst), Src: src,
		Literal: id.Literal, Class: id.Class,
	}
	if id.Field != nil {
		insn.Field = &ir.FieldRef{Owner: id.Field.Owner, Name: id.Field.Name, Type: id.Field.Type, Static: id.Field.Static}
	}
	if id.Method != nil {
		insn.Method = &ir.MethodRef{Owner: id.Method.Owner, Name: id.Method.Name, Params: id.Method.Params, Return: id.Method.Return}
	}
	return insn
}

var opNames = map[string]ir.OpCode{
	"const":           ir.OpConst,
	"const-wide":      ir.OpConstWide,
	"const-string":    ir.OpConstString,
	"const-class":     ir.OpConstClass,
	"move":            ir.OpMove,
	"move-wide":       ir.OpMoveWide,
	"move-object":     ir.OpMoveObject,
	"move-result":     ir.OpMoveResult,
	"add-int":         ir.OpAddInt,
	"add-long":        ir.OpAddLong,
	"add-double":      ir.OpAddDouble,
	"goto":            ir.OpGoto,
	"if-eq-object":    ir.OpIfEqObject,
	"if-ne-object":    ir.OpIfNeObject,
	"if-eqz":          ir.OpIfEqZero,
	"check-cast":      ir.OpCheckCast,
	"instance-of":     ir.OpInstanceOf,
	"new-instance":    ir.OpNewInstance,
	"iget":            ir.OpIGet,
	"iput":            ir.OpIPut,
	"sget":            ir.OpSGet,
	"sput":            ir.OpSPut,
	"aget":            ir.OpAGet,
	"aput":            ir.OpAPut,
	"invoke-virtual":  ir.OpInvokeVirtual,
	"invoke-super":    ir.OpInvokeSuper,
	"invoke-interface": ir.OpInvokeInterface,
	"invoke-static":   ir.OpInvokeStatic,
	"invoke-direct":   ir.OpInvokeDirect,
	"return-void":     ir.OpReturnVoid,
	"return-object":   ir.OpReturnObject,
	"return":          ir.OpReturn,
}

func opFromName(name string) ir.OpCode {
	if op, ok := opNames[name]; ok {
		return op
	}
	panic(fmt.Sprintf("fixture: unknown opcode %q", name))
}
