// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen_test

import (
	"testing"

	"github.com/viascript/via/internal/bytecode"
	"github.com/viascript/via/internal/codegen"
	"github.com/viascript/via/internal/diag"
	"github.com/viascript/via/internal/lexer"
	"github.com/viascript/via/internal/parser"
	"github.com/viascript/via/internal/types"
)

func compile(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	bus := diag.New()
	l := lexer.New("test.via", src)
	prog := parser.Parse(l, bus)
	types.Check(prog, bus)
	if bus.HasErrors() {
		t.Fatalf("unexpected diagnostics for %q: %v", src, bus.All())
	}
	return codegen.Generate(prog, bus)
}

func countOp(chunk *bytecode.Chunk, op bytecode.Op) int {
	n := 0
	for _, in := range chunk.Code {
		if in.Op == op {
			n++
		}
	}
	return n
}

func TestGenerateVarDeclEmitsLoadK(t *testing.T) {
	chunk := compile(t, `var x = 42;`)
	if countOp(chunk, bytecode.OpLoadK) == 0 {
		t.Fatal("expected at least one loadk instruction")
	}
	if len(chunk.Consts) != 1 || chunk.Consts[0].I != 42 {
		t.Errorf("Consts = %+v, want one int const 42", chunk.Consts)
	}
}

func TestGenerateBinaryAdd(t *testing.T) {
	chunk := compile(t, `var x = 1 + 2;`)
	if countOp(chunk, bytecode.OpAdd) != 1 {
		t.Errorf("expected exactly one add instruction, got %d", countOp(chunk, bytecode.OpAdd))
	}
}

func TestGenerateIfElseProducesJumps(t *testing.T) {
	chunk := compile(t, `
		var x = 1;
		if x == 1 {
			x = 2;
		} else {
			x = 3;
		}
	`)
	if countOp(chunk, bytecode.OpJmpIfNot) == 0 {
		t.Fatal("expected a conditional jump for the if")
	}
	if countOp(chunk, bytecode.OpJmp) == 0 {
		t.Fatal("expected an unconditional jump skipping the else branch")
	}
}

func TestGenerateWhileLoopsBackward(t *testing.T) {
	chunk := compile(t, `
		var i = 0;
		while i < 3 {
			i = i + 1;
		}
	`)
	foundBackwardJump := false
	for idx, in := range chunk.Code {
		if in.Op == bytecode.OpJmp {
			off := bytecode.DecodeJumpOffset(in.A)
			if off < 0 {
				foundBackwardJump = true
			}
			_ = idx
		}
	}
	if !foundBackwardJump {
		t.Fatal("expected the while loop's back-edge jump to have a negative offset")
	}
}

func TestGenerateForRangeUsesLtAndAdd(t *testing.T) {
	chunk := compile(t, `
		var total = 0;
		for i = 0, 5 {
			total = total + i;
		}
	`)
	if countOp(chunk, bytecode.OpLt) == 0 {
		t.Fatal("expected a lt comparison driving the range loop")
	}
	if countOp(chunk, bytecode.OpAdd) == 0 {
		t.Fatal("expected an add instruction stepping the range counter")
	}
}

func TestGenerateFuncDeclProducesClosureAndProto(t *testing.T) {
	chunk := compile(t, `
		fn add(a, b) {
			return a + b;
		}
		var r = add(1, 2);
	`)
	if countOp(chunk, bytecode.OpClosure) != 1 {
		t.Fatalf("expected exactly one closure instruction, got %d", countOp(chunk, bytecode.OpClosure))
	}
	if len(chunk.FuncProtos) != 2 {
		t.Fatalf("expected two protos (main + add), got %d", len(chunk.FuncProtos))
	}
	var addProto *bytecode.FuncProto
	for i := range chunk.FuncProtos {
		if chunk.FuncProtos[i].Name == "add" {
			addProto = &chunk.FuncProtos[i]
		}
	}
	if addProto == nil {
		t.Fatal("expected a FuncProto named \"add\"")
	}
	if addProto.NumParams != 2 {
		t.Errorf("NumParams = %d, want 2", addProto.NumParams)
	}
	if countOp(chunk, bytecode.OpCall) != 1 {
		t.Errorf("expected exactly one call instruction, got %d", countOp(chunk, bytecode.OpCall))
	}
}

func TestGenerateClosureCapturesUpvalue(t *testing.T) {
	chunk := compile(t, `
		fn counter() {
			var n = 0;
			fn inc() {
				n = n + 1;
				return n;
			}
			return inc;
		}
	`)
	var incProto *bytecode.FuncProto
	for i := range chunk.FuncProtos {
		if chunk.FuncProtos[i].Name == "inc" {
			incProto = &chunk.FuncProtos[i]
		}
	}
	if incProto == nil {
		t.Fatal("expected a FuncProto named \"inc\"")
	}
	if len(incProto.Upvalues) != 1 {
		t.Fatalf("expected inc to capture exactly one upvalue, got %d", len(incProto.Upvalues))
	}
	if !incProto.Upvalues[0].FromLocal {
		t.Error("expected inc's capture of n to come straight from counter's local, not a forwarded upvalue")
	}
}

func TestGenerateArrayLiteralUsesNewArray(t *testing.T) {
	chunk := compile(t, `var xs = [1, 2, 3];`)
	if countOp(chunk, bytecode.OpNewArray) != 1 {
		t.Fatalf("expected exactly one newarray instruction, got %d", countOp(chunk, bytecode.OpNewArray))
	}
}

func TestGenerateTableLiteralUsesNewTableAndSetIndex(t *testing.T) {
	chunk := compile(t, `var t = {"a": 1, "b": 2};`)
	if countOp(chunk, bytecode.OpNewTable) != 1 {
		t.Fatalf("expected exactly one newtable instruction, got %d", countOp(chunk, bytecode.OpNewTable))
	}
	if countOp(chunk, bytecode.OpSetIndex) != 2 {
		t.Fatalf("expected two setindex instructions for two fields, got %d", countOp(chunk, bytecode.OpSetIndex))
	}
}

func TestGenerateShortCircuitAndUsesJmpIfNot(t *testing.T) {
	chunk := compile(t, `var x = true and false;`)
	if countOp(chunk, bytecode.OpJmpIfNot) == 0 {
		t.Fatal("expected 'and' to lower to a jmpifnot short-circuit")
	}
}

func TestGenerateCompoundAssignDesugarsToBinaryOp(t *testing.T) {
	chunk := compile(t, `
		var x = 1;
		x += 2;
	`)
	if countOp(chunk, bytecode.OpAdd) != 1 {
		t.Errorf("expected compound += to lower to one add instruction, got %d", countOp(chunk, bytecode.OpAdd))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	src := `
		fn fib(n) {
			if n < 2 {
				return n;
			}
			return fib(n - 1) + fib(n - 2);
		}
		var r = fib(10);
	`
	a := compile(t, src)
	b := compile(t, src)
	if len(a.Code) != len(b.Code) {
		t.Fatalf("non-deterministic code length: %d vs %d", len(a.Code), len(b.Code))
	}
	for i := range a.Code {
		if a.Code[i] != b.Code[i] {
			t.Fatalf("instruction %d differs between identical compiles: %+v vs %+v", i, a.Code[i], b.Code[i])
		}
	}
}
