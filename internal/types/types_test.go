// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package types_test

import (
	"testing"

	"github.com/viascript/via/internal/ast"
	"github.com/viascript/via/internal/diag"
	"github.com/viascript/via/internal/lexer"
	"github.com/viascript/via/internal/parser"
	"github.com/viascript/via/internal/types"
)

func checkSource(t *testing.T, src string) (*ast.Program, *diag.Bus) {
	t.Helper()
	bus := diag.New()
	prog := parser.Parse(lexer.New("test.via", src), bus)
	if bus.HasErrors() {
		t.Fatalf("unexpected parse errors before type-checking: %v", bus.All())
	}
	types.Check(prog, bus)
	return prog, bus
}

func TestResolvesLocalVariable(t *testing.T) {
	prog, bus := checkSource(t, `var x = 1; var y = x + 1;`)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.All())
	}
	y := prog.Statements[1].(*ast.VarDecl)
	bin := y.Value.(*ast.BinaryExpr)
	sym := bin.Left.(*ast.SymbolExpr)
	if sym.ResolvedBy.Kind != ast.Local {
		t.Errorf("ResolvedBy.Kind = %v, want Local", sym.ResolvedBy.Kind)
	}
}

func TestUndeclaredIdentifierIsError(t *testing.T) {
	_, bus := checkSource(t, `var x = y + 1;`)
	if !bus.HasErrors() {
		t.Fatal("expected an error for the undeclared identifier y")
	}
}

func TestPreludeNamesResolveAsGlobal(t *testing.T) {
	prog, bus := checkSource(t, `print("hi");`)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.All())
	}
	call := prog.Statements[0].(*ast.ExprStmt).Expr.(*ast.CallExpr)
	sym := call.Callee.(*ast.SymbolExpr)
	if sym.ResolvedBy.Kind != ast.Global {
		t.Errorf("ResolvedBy.Kind = %v, want Global", sym.ResolvedBy.Kind)
	}
}

func TestConstReassignmentIsError(t *testing.T) {
	_, bus := checkSource(t, `const x = 1; x = 2;`)
	if !bus.HasErrors() {
		t.Fatal("expected an error assigning to a const")
	}
}

func TestVarReassignmentIsFine(t *testing.T) {
	_, bus := checkSource(t, `var x = 1; x = 2;`)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.All())
	}
}

func TestAnnotationMismatchIsError(t *testing.T) {
	_, bus := checkSource(t, `var x: int = "hello";`)
	if !bus.HasErrors() {
		t.Fatal("expected an error for the int/string annotation mismatch")
	}
}

func TestAnnotationMatchIsFine(t *testing.T) {
	_, bus := checkSource(t, `var x: int = 10;`)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.All())
	}
}

func TestCallingNonFunctionIsError(t *testing.T) {
	_, bus := checkSource(t, `var x = 1; x();`)
	if !bus.HasErrors() {
		t.Fatal("expected an error calling a non-function value")
	}
}

func TestIndexingNonIndexableIsError(t *testing.T) {
	_, bus := checkSource(t, `var x = 1; var y = x[0];`)
	if !bus.HasErrors() {
		t.Fatal("expected an error indexing a non-indexable value")
	}
}

func TestIndexingArrayIsFine(t *testing.T) {
	_, bus := checkSource(t, `var a = [1, 2, 3]; var x = a[0];`)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.All())
	}
}

func TestFunctionParamsAreLocalToBody(t *testing.T) {
	_, bus := checkSource(t, `fn add(a, b) { return a + b; }`)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.All())
	}
}

func TestClosureCapturesEnclosingLocalAsUpvalue(t *testing.T) {
	prog, bus := checkSource(t, `
		fn counter() {
			var n = 0;
			fn inc() {
				n = n + 1;
				return n;
			}
			return inc;
		}
	`)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.All())
	}
	outer := prog.Statements[0].(*ast.FuncDecl)
	inner := outer.Body.Body[1].(*ast.FuncDecl)
	assign := inner.Body.Body[0].(*ast.AssignStmt)
	sym := assign.Target.(*ast.SymbolExpr)
	if sym.ResolvedBy.Kind != ast.Upvalue {
		t.Errorf("ResolvedBy.Kind = %v, want Upvalue", sym.ResolvedBy.Kind)
	}
}

func TestRecursiveFunctionResolvesItself(t *testing.T) {
	_, bus := checkSource(t, `
		fn fact(n) {
			if n <= 1 { return 1; }
			return n * fact(n - 1);
		}
	`)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.All())
	}
}

func TestBreakOutsideLoopWarns(t *testing.T) {
	_, bus := checkSource(t, `break;`)
	found := false
	for _, d := range bus.All() {
		if d.Severity == diag.Warning {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a warning for break outside a loop")
	}
}

func TestForRangeVariableIsInt(t *testing.T) {
	prog, bus := checkSource(t, `for i = 0, 10 { var x = i + 1; }`)
	if bus.HasErrors() {
		t.Fatalf("unexpected errors: %v", bus.All())
	}
	fr := prog.Statements[0].(*ast.ForRangeStmt)
	inner := fr.Body.Body[0].(*ast.VarDecl)
	bin := inner.Value.(*ast.BinaryExpr)
	sym := bin.Left.(*ast.SymbolExpr)
	if sym.ResolvedBy.Kind != ast.Local {
		t.Errorf("ResolvedBy.Kind = %v, want Local", sym.ResolvedBy.Kind)
	}
	if typ, ok := sym.ResolvedType.(*types.Type); !ok || typ.Kind != types.KindInt {
		t.Errorf("ResolvedType = %v, want int", sym.ResolvedType)
	}
}

func TestArithmeticOnStringsWarns(t *testing.T) {
	_, bus := checkSource(t, `var x = "a" + 1;`)
	found := false
	for _, d := range bus.All() {
		if d.Severity == diag.Warning {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a warning for arithmetic on a non-numeric operand")
	}
}
