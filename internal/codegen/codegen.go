// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package codegen lowers a resolved, type-annotated AST (see packages ast
// and types) into a linear bytecode.Chunk of register-based bytecode.
// Codegen never fails outright: an internal inconsistency is reported onto
// the diagnostics bus as a compile error and the offending node emits a
// harmless nil load, so a single bad node cannot abort the whole pass.
package codegen

import (
	"github.com/viascript/via/internal/ast"
	"github.com/viascript/via/internal/bytecode"
	"github.com/viascript/via/internal/diag"
	"github.com/viascript/via/internal/token"
	"github.com/viascript/via/internal/types"
)

// regAlloc hands out and recycles the registers of a single function body.
// Allocation returns the lowest-numbered free register; NumLocals for the
// enclosing FuncProto is the high-water mark across the function's life.
type regAlloc struct {
	inUse []bool
	high  int
}

func (r *regAlloc) allocate() int {
	for i, used := range r.inUse {
		if !used {
			r.inUse[i] = true
			return i
		}
	}
	r.inUse = append(r.inUse, true)
	if len(r.inUse) > r.high {
		r.high = len(r.inUse)
	}
	return len(r.inUse) - 1
}

func (r *regAlloc) free(reg int) {
	if reg >= 0 && reg < len(r.inUse) {
		r.inUse[reg] = false
	}
}

// allocateTemp allocates and immediately frees a register, for a value the
// caller knows has exactly one downstream consumer reached before any
// further allocation in the same expression.
func (r *regAlloc) allocateTemp() int {
	reg := r.allocate()
	r.free(reg)
	return reg
}

// allocateBlock finds n consecutive free registers, marks all of them in
// use, and returns the index of the first. A run of individually-free
// registers obtained via repeated allocate() calls is not guaranteed
// contiguous once the free list has gaps from earlier frees; call arguments
// and array/tuple elements need actual contiguity, since the instructions
// that consume them (call, newarray) address the whole run by one base
// register plus a count rather than listing each register.
func (r *regAlloc) allocateBlock(n int) int {
	if n == 0 {
		return len(r.inUse)
	}
outer:
	for start := 0; ; start++ {
		for i := 0; i < n; i++ {
			if start+i < len(r.inUse) && r.inUse[start+i] {
				continue outer
			}
		}
		for len(r.inUse) < start+n {
			r.inUse = append(r.inUse, false)
		}
		for i := 0; i < n; i++ {
			r.inUse[start+i] = true
		}
		if start+n > r.high {
			r.high = start + n
		}
		return start
	}
}

func (r *regAlloc) freeBlock(start, n int) {
	for i := 0; i < n; i++ {
		r.free(start + i)
	}
}

// reserve claims an exact register number for a local variable whose slot
// was already decided by the semantic pass, growing the register file if
// needed. Locals never go through allocate()'s lowest-free-register search:
// their register number must match the slot every SymbolExpr resolving to
// them already carries.
func (r *regAlloc) reserve(slot int) {
	for len(r.inUse) <= slot {
		r.inUse = append(r.inUse, false)
	}
	r.inUse[slot] = true
	if slot+1 > r.high {
		r.high = slot + 1
	}
}

// label is a symbolic jump target, resolved to an absolute instruction
// index by resolveLabels before the function's instruction buffer is
// spliced into the chunk.
type label struct {
	pc int // -1 until placed
}

type patchOperand byte

const (
	patchA patchOperand = iota
	patchB
)

type patch struct {
	instr   int
	label   int
	operand patchOperand
}

// loopLabels is the break/continue target pair for one enclosing loop,
// kept on a stack so nested loops resolve to the correct level.
type loopLabels struct {
	breakLabel    int
	continueLabel int
}

// funcGen is the compile-time state of one function body being emitted.
type funcGen struct {
	parent   *funcGen
	code     []bytecode.Instruction
	lines    []int
	regs     regAlloc
	labels   []label
	patches  []patch
	loops    []loopLabels
	numParam int
	vararg   bool
}

func newFuncGen(parent *funcGen) *funcGen {
	return &funcGen{parent: parent}
}

func (f *funcGen) newLabel() int {
	f.labels = append(f.labels, label{pc: -1})
	return len(f.labels) - 1
}

func (f *funcGen) placeLabel(id int) {
	f.labels[id].pc = len(f.code)
}

func (f *funcGen) emit(in bytecode.Instruction, line int) int {
	f.code = append(f.code, in)
	f.lines = append(f.lines, line)
	return len(f.code) - 1
}

// emitJump appends a jump instruction whose offset operand is a forward
// reference to labelID, to be rewritten by resolveLabels.
func (f *funcGen) emitJump(op bytecode.Op, cond int, labelID int, line int) int {
	var in bytecode.Instruction
	var operand patchOperand
	switch op {
	case bytecode.OpJmp:
		in = bytecode.Instruction{Op: op, A: bytecode.NoOperand, B: bytecode.NoOperand, C: bytecode.NoOperand}
		operand = patchA
	default: // OpJmpIf, OpJmpIfNot
		in = bytecode.Instruction{Op: op, A: uint16(cond), B: bytecode.NoOperand, C: bytecode.NoOperand}
		operand = patchB
	}
	idx := f.emit(in, line)
	f.patches = append(f.patches, patch{instr: idx, label: labelID, operand: operand})
	return idx
}

// resolveLabels rewrites every patched jump operand to the displacement
// the VM adds to its program counter after the normal fetch advance. An
// unplaced label at this point is a compiler bug, not a user error: every
// newLabel call in this package is paired with a placeLabel before the
// enclosing function finishes emitting.
func (f *funcGen) resolveLabels(bus *diag.Bus) {
	for _, p := range f.patches {
		target := f.labels[p.label]
		if target.pc < 0 {
			bus.Errf(token.Position{}, 1, "internal: unresolved jump label in generated code")
			continue
		}
		off := target.pc - (p.instr + 1)
		encoded := bytecode.EncodeJumpOffset(off)
		switch p.operand {
		case patchA:
			f.code[p.instr].A = encoded
		case patchB:
			f.code[p.instr].B = encoded
		}
	}
}

// Generator drives codegen over an already type-checked *ast.Program.
type Generator struct {
	bus   *diag.Bus
	chunk *bytecode.Chunk
	cur   *funcGen
}

// NewGenerator creates a Generator reporting onto bus.
func NewGenerator(bus *diag.Bus) *Generator {
	return &Generator{bus: bus, chunk: &bytecode.Chunk{}}
}

// Generate compiles prog (already resolved by package types) into a Chunk.
// The program's top-level statements become FuncProtos[0], "main".
func Generate(prog *ast.Program, bus *diag.Bus) *bytecode.Chunk {
	g := NewGenerator(bus)
	// The checker pre-binds the prelude (print, math, ...) as globals with
	// fixed indices in this same order; every OpGetGlobal/OpSetGlobal a
	// resolved SymbolExpr emits assumes Chunk.Globals starts this way.
	for _, name := range types.PreludeNames {
		g.chunk.AddGlobal(name)
	}
	g.cur = newFuncGen(nil)
	// Hold index 0 for main; nested functions spliced while its statements
	// are generated take the indices after it.
	g.chunk.FuncProtos = append(g.chunk.FuncProtos, bytecode.FuncProto{Name: "main"})
	for _, stmt := range prog.Statements {
		g.genStatement(stmt)
	}
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpRetNil, A: bytecode.NoOperand, B: bytecode.NoOperand, C: bytecode.NoOperand}, 0)
	g.cur.resolveLabels(bus)
	entry := len(g.chunk.Code)
	g.chunk.Code = append(g.chunk.Code, g.cur.code...)
	g.chunk.Lines = append(g.chunk.Lines, g.cur.lines...)
	g.chunk.FuncProtos[0] = bytecode.FuncProto{Name: "main", EntryPC: entry, NumLocals: g.cur.regs.high, Vararg: g.cur.vararg}
	return g.chunk
}

// splice appends fg's finished instruction buffer to the chunk and records
// its FuncProto, returning the new proto's index.
func (g *Generator) splice(fg *funcGen, name string, numParams int, upvalues []bytecode.UpvalDesc) int {
	entry := len(g.chunk.Code)
	g.chunk.Code = append(g.chunk.Code, fg.code...)
	g.chunk.Lines = append(g.chunk.Lines, fg.lines...)
	proto := bytecode.FuncProto{
		Name:      name,
		EntryPC:   entry,
		NumParams: numParams,
		NumLocals: fg.regs.high,
		Vararg:    fg.vararg,
		Upvalues:  upvalues,
	}
	g.chunk.FuncProtos = append(g.chunk.FuncProtos, proto)
	return len(g.chunk.FuncProtos) - 1
}
