// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package bytecode

// ConstKind tags one constant-pool entry.
type ConstKind byte

const (
	ConstNil ConstKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstString
)

// Const is one entry of the constant pool: an immutable literal value,
// deduplicated by structural equality during codegen.
type Const struct {
	Kind ConstKind
	I    int64
	F    float64
	S    string
}

// UpvalDesc is one capture a closure performs at construction time: either
// straight off the enclosing frame's local register (FromLocal) or by
// forwarding one of the enclosing function's own upvalues.
type UpvalDesc struct {
	FromLocal bool
	Index     int
}

// FuncProto is the compiled metadata for one function body (the top-level
// program counts as FuncProtos[0], the implicit "main" function).
type FuncProto struct {
	Name      string
	EntryPC   int
	NumParams int
	NumLocals int
	Vararg    bool
	Upvalues  []UpvalDesc
}

// GlobalDecl is one entry of the global table: declaration order defines
// the index the VM's global array uses.
type GlobalDecl struct {
	Name string
}

// Chunk is a fully linked, ready-to-run compiled unit: instructions with
// every label resolved to an absolute program-counter offset, plus the
// constant pool, global table, and function prototype table codegen built
// alongside it.
type Chunk struct {
	Code       []Instruction
	Consts     []Const
	Globals    []GlobalDecl
	FuncProtos []FuncProto
	// Lines maps 1:1 with Code, recording the source line each instruction
	// was emitted for — used only for tracebacks and `--dump bytecode`.
	Lines []int
}

// AddConst interns v into the constant pool, returning its index. Hashable
// kinds (nil, bool, int, float, string) are deduplicated by structural
// equality, matching the "inserting the same literal twice returns the
// same index" requirement.
func (c *Chunk) AddConst(v Const) int {
	for i, existing := range c.Consts {
		if existing == v {
			return i
		}
	}
	c.Consts = append(c.Consts, v)
	return len(c.Consts) - 1
}

// AddGlobal interns name into the global table, returning its index.
func (c *Chunk) AddGlobal(name string) int {
	for i, g := range c.Globals {
		if g.Name == name {
			return i
		}
	}
	c.Globals = append(c.Globals, GlobalDecl{Name: name})
	return len(c.Globals) - 1
}
