// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package parser_test

import (
	"testing"

	"github.com/viascript/via/internal/ast"
	"github.com/viascript/via/internal/diag"
	"github.com/viascript/via/internal/lexer"
	"github.com/viascript/via/internal/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	bus := diag.New()
	prog := parser.Parse(lexer.New("test.via", src), bus)
	if bus.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", bus.All())
	}
	return prog
}

func parseWithErrors(t *testing.T, src string) (*ast.Program, *diag.Bus) {
	t.Helper()
	bus := diag.New()
	prog := parser.Parse(lexer.New("test.via", src), bus)
	if !bus.HasErrors() {
		t.Fatal("expected parse errors, but none were reported")
	}
	return prog, bus
}

func firstStmt(t *testing.T, prog *ast.Program) ast.Statement {
	t.Helper()
	if len(prog.Statements) == 0 {
		t.Fatal("expected at least one statement in program, got none")
	}
	return prog.Statements[0]
}

func TestParseVarDecl(t *testing.T) {
	prog := mustParse(t, `var x = 10;`)
	decl, ok := firstStmt(t, prog).(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected *ast.VarDecl, got %T", firstStmt(t, prog))
	}
	if decl.Name != "x" {
		t.Errorf("Name = %q, want x", decl.Name)
	}
	if decl.Const {
		t.Error("expected Const = false for var")
	}
	lit, ok := decl.Value.(*ast.LiteralExpr)
	if !ok {
		t.Fatalf("expected *ast.LiteralExpr, got %T", decl.Value)
	}
	if lit.Value.(int64) != 10 {
		t.Errorf("Value = %v, want 10", lit.Value)
	}
}

func TestParseConstDecl(t *testing.T) {
	prog := mustParse(t, `const pi = 3.14;`)
	decl := firstStmt(t, prog).(*ast.VarDecl)
	if !decl.Const {
		t.Error("expected Const = true for const")
	}
}

func TestParseAnnotatedVarDecl(t *testing.T) {
	prog := mustParse(t, `var x: int = 10;`)
	decl := firstStmt(t, prog).(*ast.VarDecl)
	prim, ok := decl.Type.(*ast.PrimitiveType)
	if !ok {
		t.Fatalf("expected *ast.PrimitiveType, got %T", decl.Type)
	}
	if prim.Name != "int" {
		t.Errorf("Type.Name = %q, want int", prim.Name)
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	prog := mustParse(t, `var x = 1 + 2 * 3;`)
	decl := firstStmt(t, prog).(*ast.VarDecl)
	bin := decl.Value.(*ast.BinaryExpr)
	if bin.Operator != "+" {
		t.Fatalf("outer operator = %q, want +", bin.Operator)
	}
	rhs := bin.Right.(*ast.BinaryExpr)
	if rhs.Operator != "*" {
		t.Errorf("inner operator = %q, want *", rhs.Operator)
	}
}

func TestParsePowerIsRightAssociative(t *testing.T) {
	prog := mustParse(t, `var x = 2 ** 3 ** 2;`)
	decl := firstStmt(t, prog).(*ast.VarDecl)
	outer := decl.Value.(*ast.BinaryExpr)
	if outer.Operator != "**" {
		t.Fatalf("outer operator = %q, want **", outer.Operator)
	}
	if _, ok := outer.Left.(*ast.LiteralExpr); !ok {
		t.Errorf("expected left operand to be the literal 2, got %T", outer.Left)
	}
	if _, ok := outer.Right.(*ast.BinaryExpr); !ok {
		t.Errorf("expected right operand to itself be a '**' expression (right-assoc), got %T", outer.Right)
	}
}

func TestParseIfElseChain(t *testing.T) {
	prog := mustParse(t, `
		if a { 1; } else if b { 2; } else { 3; }
	`)
	ifs := firstStmt(t, prog).(*ast.IfStmt)
	if len(ifs.ElseIfs) != 1 {
		t.Fatalf("ElseIfs len = %d, want 1", len(ifs.ElseIfs))
	}
	if ifs.Else == nil {
		t.Fatal("expected an Else block")
	}
}

func TestParseWhile(t *testing.T) {
	prog := mustParse(t, `while x < 10 { x = x + 1; }`)
	w := firstStmt(t, prog).(*ast.WhileStmt)
	if _, ok := w.Cond.(*ast.BinaryExpr); !ok {
		t.Errorf("expected condition to be a binary expression, got %T", w.Cond)
	}
}

func TestParseForEach(t *testing.T) {
	prog := mustParse(t, `for x in arr { print(x); }`)
	fe := firstStmt(t, prog).(*ast.ForEachStmt)
	if fe.Var != "x" {
		t.Errorf("Var = %q, want x", fe.Var)
	}
}

func TestParseForRange(t *testing.T) {
	prog := mustParse(t, `for i = 0, 10 { print(i); }`)
	fr := firstStmt(t, prog).(*ast.ForRangeStmt)
	if fr.Var != "i" {
		t.Errorf("Var = %q, want i", fr.Var)
	}
	if fr.Step != nil {
		t.Error("expected nil Step")
	}
}

func TestParseFuncDecl(t *testing.T) {
	prog := mustParse(t, `fn add(a: int, b: int) -> int { return a + b; }`)
	fd := firstStmt(t, prog).(*ast.FuncDecl)
	if fd.Name != "add" {
		t.Errorf("Name = %q, want add", fd.Name)
	}
	if len(fd.Params) != 2 {
		t.Fatalf("len(Params) = %d, want 2", len(fd.Params))
	}
}

func TestParseLambda(t *testing.T) {
	prog := mustParse(t, `var f = fn(x) { return x; };`)
	decl := firstStmt(t, prog).(*ast.VarDecl)
	if _, ok := decl.Value.(*ast.LambdaExpr); !ok {
		t.Fatalf("expected *ast.LambdaExpr, got %T", decl.Value)
	}
}

func TestParseCallAndSubscript(t *testing.T) {
	prog := mustParse(t, `var x = a[0] + f(1, 2);`)
	decl := firstStmt(t, prog).(*ast.VarDecl)
	bin := decl.Value.(*ast.BinaryExpr)
	if _, ok := bin.Left.(*ast.SubscriptExpr); !ok {
		t.Errorf("expected left to be a subscript, got %T", bin.Left)
	}
	if _, ok := bin.Right.(*ast.CallExpr); !ok {
		t.Errorf("expected right to be a call, got %T", bin.Right)
	}
}

func TestParseArrayAndTableLiterals(t *testing.T) {
	prog := mustParse(t, `var a = [1, 2, 3]; var t = {"x": 1};`)
	arrDecl := prog.Statements[0].(*ast.VarDecl)
	if _, ok := arrDecl.Value.(*ast.ArrayExpr); !ok {
		t.Errorf("expected *ast.ArrayExpr, got %T", arrDecl.Value)
	}
	tblDecl := prog.Statements[1].(*ast.VarDecl)
	if _, ok := tblDecl.Value.(*ast.TableExpr); !ok {
		t.Errorf("expected *ast.TableExpr, got %T", tblDecl.Value)
	}
}

func TestParseAssignment(t *testing.T) {
	prog := mustParse(t, `x = x + 1;`)
	if _, ok := firstStmt(t, prog).(*ast.AssignStmt); !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", firstStmt(t, prog))
	}
}

func TestParseCompoundAssignment(t *testing.T) {
	prog := mustParse(t, `x += 1;`)
	a := firstStmt(t, prog).(*ast.AssignStmt)
	if a.Operator != "+=" {
		t.Errorf("Operator = %q, want +=", a.Operator)
	}
}

func TestParseReturnBreakContinue(t *testing.T) {
	prog := mustParse(t, `
		fn f() {
			while true {
				if x { break; }
				if y { continue; }
				return 1;
			}
		}
	`)
	fd := firstStmt(t, prog).(*ast.FuncDecl)
	w := fd.Body.Body[0].(*ast.WhileStmt)
	if len(w.Body.Body) != 3 {
		t.Fatalf("while body len = %d, want 3", len(w.Body.Body))
	}
}

func TestParseMissingExpressionIsRecoverable(t *testing.T) {
	prog, bus := parseWithErrors(t, `var x = ; var y = 2;`)
	if len(prog.Statements) != 2 {
		t.Fatalf("expected parser to recover and still produce 2 statements, got %d", len(prog.Statements))
	}
	if !bus.HasErrors() {
		t.Fatal("expected at least one error diagnosis")
	}
}

func TestParseMalformedParamListRecovers(t *testing.T) {
	_, bus := parseWithErrors(t, `fn f( { return 1; }`)
	if !bus.HasErrors() {
		t.Fatal("expected a diagnosis for the malformed parameter list")
	}
}

func TestParserDeterminism(t *testing.T) {
	src := `fn fact(n) { if n <= 1 { return 1 } return n * fact(n - 1) }`
	p1 := mustParse(t, src)
	p2 := mustParse(t, src)
	if p1.String() != p2.String() {
		t.Errorf("two parses of identical input produced different trees:\n%s\n---\n%s", p1.String(), p2.String())
	}
}
