// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package bytecode_test

import (
	"bytes"
	"testing"

	"github.com/viascript/via/internal/bytecode"
)

func sampleChunk() *bytecode.Chunk {
	c := &bytecode.Chunk{}
	ki := c.AddConst(bytecode.Const{Kind: bytecode.ConstInt, I: 7})
	gi := c.AddGlobal("print")
	c.Code = []bytecode.Instruction{
		{Op: bytecode.OpLoadK, A: 0, B: uint16(ki), C: bytecode.NoOperand},
		{Op: bytecode.OpGetGlobal, A: 1, B: uint16(gi), C: bytecode.NoOperand},
		{Op: bytecode.OpCall, A: 1, B: 1, C: bytecode.NoOperand},
		{Op: bytecode.OpRetNil},
	}
	c.FuncProtos = []bytecode.FuncProto{{Name: "main", NumLocals: 2}}
	return c
}

func TestConstDedup(t *testing.T) {
	c := &bytecode.Chunk{}
	i1 := c.AddConst(bytecode.Const{Kind: bytecode.ConstInt, I: 42})
	i2 := c.AddConst(bytecode.Const{Kind: bytecode.ConstInt, I: 42})
	if i1 != i2 {
		t.Errorf("expected the same index for a duplicate constant, got %d and %d", i1, i2)
	}
	i3 := c.AddConst(bytecode.Const{Kind: bytecode.ConstFloat, F: 42})
	if i3 == i1 {
		t.Error("int 42 and float 42 must not dedup to the same constant")
	}
}

func TestGlobalDedup(t *testing.T) {
	c := &bytecode.Chunk{}
	i1 := c.AddGlobal("x")
	i2 := c.AddGlobal("x")
	if i1 != i2 {
		t.Errorf("expected the same index for a duplicate global, got %d and %d", i1, i2)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	chunk := sampleChunk()
	hash := bytecode.SourceHash([]byte(`print(7)`))

	var buf bytes.Buffer
	if err := bytecode.Write(&buf, chunk, hash, "linux/amd64", ""); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytecode.IsCompiled(buf.Bytes()) {
		t.Fatal("expected the written file to start with the magic prefix")
	}

	got, err := bytecode.Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Code) != len(chunk.Code) {
		t.Fatalf("Code length = %d, want %d", len(got.Code), len(chunk.Code))
	}
	for i, in := range chunk.Code {
		if got.Code[i] != in {
			t.Errorf("instruction %d = %+v, want %+v", i, got.Code[i], in)
		}
	}
	if len(got.Consts) != 1 || got.Consts[0].I != 7 {
		t.Errorf("Consts = %+v, want one int const 7", got.Consts)
	}
	if len(got.Globals) != 1 || got.Globals[0].Name != "print" {
		t.Errorf("Globals = %+v, want one global \"print\"", got.Globals)
	}
	if len(got.FuncProtos) != 1 || got.FuncProtos[0].Name != "main" {
		t.Errorf("FuncProtos = %+v, want one proto \"main\"", got.FuncProtos)
	}
}

func TestReadRejectsMissingMagic(t *testing.T) {
	_, err := bytecode.Read(bytes.NewReader([]byte("not a via program")))
	if err == nil {
		t.Fatal("expected an error for a file without the magic prefix")
	}
}

func TestReadRejectsCorruptChecksum(t *testing.T) {
	chunk := sampleChunk()
	hash := bytecode.SourceHash([]byte(`print(7)`))
	var buf bytes.Buffer
	if err := bytecode.Write(&buf, chunk, hash, "linux/amd64", ""); err != nil {
		t.Fatalf("Write: %v", err)
	}
	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] ^= 0xFF
	_, err := bytecode.Read(bytes.NewReader(corrupt))
	if err == nil {
		t.Fatal("expected a checksum error for a corrupted trailer byte")
	}
}
