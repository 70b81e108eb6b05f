// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package types

import (
	"github.com/viascript/via/internal/ast"
	"github.com/viascript/via/internal/diag"
)

// binding is one name visible in some lexical block.
type binding struct {
	Name    string
	Slot    int
	Type    *Type
	Const   bool
	FuncCtx bool // not set anywhere in this package; every binding leaves it false
}

// upvalue records how a function captures a name it does not declare
// itself: either directly from its parent's locals (FromLocal) or by
// forwarding a slot its parent itself captured as an upvalue.
type upvalue struct {
	Name      string
	FromLocal bool
	Index     int
	Type      *Type
}

// funcScope is the compile-time state of one function body (the top-level
// program counts as the outermost funcScope, matching the register VM's
// view that a translation unit is itself a zero-argument function).
type funcScope struct {
	parent       *funcScope
	blocks       []map[string]*binding
	nextSlot     int
	upvalues     []upvalue
	upvalueIndex map[string]int
	loopDepth    int
	returnType   *Type
}

func newFuncScope(parent *funcScope) *funcScope {
	return &funcScope{
		parent:       parent,
		blocks:       []map[string]*binding{{}},
		upvalueIndex: map[string]int{},
	}
}

func (f *funcScope) pushBlock() { f.blocks = append(f.blocks, map[string]*binding{}) }
func (f *funcScope) popBlock()  { f.blocks = f.blocks[:len(f.blocks)-1] }

func (f *funcScope) declare(name string, typ *Type, isConst bool) *binding {
	b := &binding{Name: name, Slot: f.nextSlot, Type: typ, Const: isConst}
	f.nextSlot++
	f.blocks[len(f.blocks)-1][name] = b
	return b
}

func (f *funcScope) findLocal(name string) (*binding, bool) {
	for i := len(f.blocks) - 1; i >= 0; i-- {
		if b, ok := f.blocks[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Checker runs the semantic pass: resolving every identifier reference and
// propagating a Type to every expression node.
type Checker struct {
	bus     *diag.Bus
	globals map[string]*binding
	cur     *funcScope
}

// PreludeNames is the builtin namespace every via program sees without an
// explicit import: print/error/exit/type/typeof/assert plus the math,
// string, and os library tables. Its order fixes the global-table indices
// OpGetGlobal/OpSetGlobal use for these names; codegen populates
// Chunk.Globals from this same slice so the indices line up.
var PreludeNames = []string{
	"print", "error", "exit", "type", "typeof", "assert",
	"math", "string", "os",
}

// NewChecker constructs a Checker with the prelude pre-bound as globals.
func NewChecker(bus *diag.Bus) *Checker {
	c := &Checker{bus: bus, globals: map[string]*binding{}}
	for i, name := range PreludeNames {
		c.globals[name] = &binding{Name: name, Slot: i, Type: Any, Const: true}
	}
	return c
}

// Check runs the full pass over prog, mutating SymbolExpr.ResolvedBy/Type
// and VarDecl/FuncDecl.Slot in place.
func Check(prog *ast.Program, bus *diag.Bus) {
	c := NewChecker(bus)
	c.cur = newFuncScope(nil)
	for _, stmt := range prog.Statements {
		c.checkStatement(stmt)
	}
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

func (c *Checker) resolveUpvalue(f *funcScope, name string) (upvalue, int, bool) {
	if f == nil || f.parent == nil {
		return upvalue{}, 0, false
	}
	if idx, ok := f.upvalueIndex[name]; ok {
		return f.upvalues[idx], idx, true
	}
	if b, ok := f.parent.findLocal(name); ok {
		u := upvalue{Name: name, FromLocal: true, Index: b.Slot, Type: b.Type}
		idx := len(f.upvalues)
		f.upvalues = append(f.upvalues, u)
		f.upvalueIndex[name] = idx
		return u, idx, true
	}
	if pu, pidx, ok := c.resolveUpvalue(f.parent, name); ok {
		u := upvalue{Name: name, FromLocal: false, Index: pidx, Type: pu.Type}
		idx := len(f.upvalues)
		f.upvalues = append(f.upvalues, u)
		f.upvalueIndex[name] = idx
		return u, idx, true
	}
	return upvalue{}, 0, false
}

// resolve looks up name against the current function's locals, then the
// enclosing function chain (building upvalue capture chains as it goes),
// then the global table. It reports an "undeclared identifier" diagnosis
// and returns an Unresolved result when none of those find it.
func (c *Checker) resolve(sym *ast.SymbolExpr) *Type {
	if b, ok := c.cur.findLocal(sym.Name); ok {
		sym.ResolvedBy = ast.Resolution{Kind: ast.Local, Index: b.Slot}
		sym.ResolvedType = b.Type
		return b.Type
	}
	if u, idx, ok := c.resolveUpvalue(c.cur, sym.Name); ok {
		sym.ResolvedBy = ast.Resolution{Kind: ast.Upvalue, Index: idx}
		sym.ResolvedType = u.Type
		return u.Type
	}
	if b, ok := c.globals[sym.Name]; ok {
		sym.ResolvedBy = ast.Resolution{Kind: ast.Global, Index: b.Slot}
		sym.ResolvedType = b.Type
		return b.Type
	}
	c.bus.Errf(sym.Token.Pos, len(sym.Token.Lexeme), "undeclared identifier %q", sym.Name)
	sym.ResolvedBy = ast.Resolution{Kind: ast.Unresolved}
	sym.ResolvedType = Any
	return Any
}

// bindingOf re-derives the *binding backing an already-resolved symbol, so
// assignment can check its const flag. It does not report diagnostics: the
// symbol was already resolved (or reported as unresolved) by resolve.
func (c *Checker) bindingOf(sym *ast.SymbolExpr) *binding {
	if b, ok := c.cur.findLocal(sym.Name); ok {
		return b
	}
	for f := c.cur.parent; f != nil; f = f.parent {
		if b, ok := f.findLocal(sym.Name); ok {
			return b
		}
	}
	return c.globals[sym.Name]
}

