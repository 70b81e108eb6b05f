// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ast defines the Abstract Syntax Tree for via.
//
// Design overview:
//   - Every node implements Node via TokenLiteral/String/Span.
//   - Expression, Statement, and Type each have a marker interface embedding
//     Node, giving a tagged-variant sum type instead of a visitor hierarchy.
//   - The semantic pass annotates identifier expressions and some statements
//     in place (Resolution, ResolvedType); it never changes tree shape.
//   - The AST is arena-owned by the Program that contains it: every node
//     reachable from a Program dies with that Program.
package ast

import (
	"bytes"
	"strings"

	"github.com/viascript/via/internal/token"
)

// ---------------------------------------------------------------------------
// Core interfaces
// ---------------------------------------------------------------------------

// Node is implemented by every AST node.
type Node interface {
	TokenLiteral() string
	String() string
	Span() token.Position
}

// Expression is a marker interface for expression nodes.
type Expression interface {
	Node
	expressionNode()
}

// Statement is a marker interface for statement nodes.
type Statement interface {
	Node
	statementNode()
}

// TypeExpr is a marker interface for type-annotation nodes.
type TypeExpr interface {
	Node
	typeNode()
}

// ---------------------------------------------------------------------------
// Symbol resolution result — written by the semantic pass, read by codegen.
// ---------------------------------------------------------------------------

// ResolutionKind tags how an identifier expression was resolved.
type ResolutionKind int

const (
	Unresolved ResolutionKind = iota
	Local
	Upvalue
	Global
)

// Resolution is the semantic pass's verdict for one identifier reference.
type Resolution struct {
	Kind  ResolutionKind
	Index int // local slot, upvalue index, or global index depending on Kind
}

// ---------------------------------------------------------------------------
// Program — root of every parse tree
// ---------------------------------------------------------------------------

// Program is the translation unit's top-level node: an ordered sequence of
// statements (via has no separate top-level declaration grammar — a function
// declaration is sugar for a const variable bound to a lambda, per FuncDecl).
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) Span() token.Position {
	if len(p.Statements) > 0 {
		return p.Statements[0].Span()
	}
	return token.Position{}
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteByte('\n')
	}
	return out.String()
}

// ---------------------------------------------------------------------------
// Type nodes
// ---------------------------------------------------------------------------

// PrimitiveType is a built-in scalar or reference type name: int, float,
// bool, string, nil, any.
type PrimitiveType struct {
	Token token.Token
	Name  string
}

func (t *PrimitiveType) typeNode()              {}
func (t *PrimitiveType) TokenLiteral() string   { return t.Token.Lexeme }
func (t *PrimitiveType) Span() token.Position   { return t.Token.Pos }
func (t *PrimitiveType) String() string         { return t.Name }

// ArrayTypeExpr is an array-of-T type annotation: [T].
type ArrayTypeExpr struct {
	Token token.Token // '['
	Elem  TypeExpr
}

func (t *ArrayTypeExpr) typeNode()            {}
func (t *ArrayTypeExpr) TokenLiteral() string { return t.Token.Lexeme }
func (t *ArrayTypeExpr) Span() token.Position { return t.Token.Pos }
func (t *ArrayTypeExpr) String() string       { return "[" + t.Elem.String() + "]" }

// TupleTypeExpr is a fixed-arity product type annotation: (T1, T2, ...).
type TupleTypeExpr struct {
	Token token.Token // '('
	Elems []TypeExpr
}

func (t *TupleTypeExpr) typeNode()            {}
func (t *TupleTypeExpr) TokenLiteral() string { return t.Token.Lexeme }
func (t *TupleTypeExpr) Span() token.Position { return t.Token.Pos }
func (t *TupleTypeExpr) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FuncTypeExpr is a function-signature type annotation: fn(T1, T2) -> R.
type FuncTypeExpr struct {
	Token      token.Token // 'fn'
	ParamTypes []TypeExpr
	ReturnType TypeExpr // nil means no declared return type
}

func (t *FuncTypeExpr) typeNode()            {}
func (t *FuncTypeExpr) TokenLiteral() string { return t.Token.Lexeme }
func (t *FuncTypeExpr) Span() token.Position { return t.Token.Pos }
func (t *FuncTypeExpr) String() string {
	var out bytes.Buffer
	out.WriteString("fn(")
	parts := make([]string, len(t.ParamTypes))
	for i, p := range t.ParamTypes {
		parts[i] = p.String()
	}
	out.WriteString(strings.Join(parts, ", "))
	out.WriteByte(')')
	if t.ReturnType != nil {
		out.WriteString(" -> ")
		out.WriteString(t.ReturnType.String())
	}
	return out.String()
}

// NamedTypeExpr is a user-defined or generic-instantiated type name, e.g.
// Counter or Box<int>.
type NamedTypeExpr struct {
	Token     token.Token // the IDENT token
	Name      string
	TypeArgs  []TypeExpr // non-empty for generic instantiations
}

func (t *NamedTypeExpr) typeNode()            {}
func (t *NamedTypeExpr) TokenLiteral() string { return t.Token.Lexeme }
func (t *NamedTypeExpr) Span() token.Position { return t.Token.Pos }
func (t *NamedTypeExpr) String() string {
	if len(t.TypeArgs) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.TypeArgs))
	for i, a := range t.TypeArgs {
		parts[i] = a.String()
	}
	return t.Name + "<" + strings.Join(parts, ", ") + ">"
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// LiteralExpr is an int/float/string/bool/nil constant.
type LiteralExpr struct {
	Token token.Token
	Value interface{} // int64, float64, string, bool, or nil
}

func (e *LiteralExpr) expressionNode()       {}
func (e *LiteralExpr) TokenLiteral() string  { return e.Token.Lexeme }
func (e *LiteralExpr) Span() token.Position  { return e.Token.Pos }
func (e *LiteralExpr) String() string        { return e.Token.Lexeme }

// SymbolExpr is an identifier reference. ResolvedBy and ResolvedType are
// filled in by the semantic pass. ResolvedType holds a *types.Type — it is
// typed interface{} here so that ast, which every other package imports,
// never has to import package types.
type SymbolExpr struct {
	Token        token.Token
	Name         string
	ResolvedBy   Resolution
	ResolvedType interface{}
}

func (e *SymbolExpr) expressionNode()      {}
func (e *SymbolExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *SymbolExpr) Span() token.Position { return e.Token.Pos }
func (e *SymbolExpr) String() string       { return e.Name }

// UnaryExpr is a prefix operator applied to one operand: -x, !x, not x, ~x.
type UnaryExpr struct {
	Token    token.Token // the operator token
	Operator string
	Operand  Expression
}

func (e *UnaryExpr) expressionNode()      {}
func (e *UnaryExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *UnaryExpr) Span() token.Position { return e.Token.Pos }
func (e *UnaryExpr) String() string {
	return "(" + e.Operator + e.Operand.String() + ")"
}

// BinaryExpr is an infix operator applied to two operands.
type BinaryExpr struct {
	Token    token.Token // the operator token
	Operator string
	Left     Expression
	Right    Expression
}

func (e *BinaryExpr) expressionNode()      {}
func (e *BinaryExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *BinaryExpr) Span() token.Position { return e.Token.Pos }
func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Operator + " " + e.Right.String() + ")"
}

// GroupExpr is a parenthesized expression, kept as its own node so source
// spans and precedence stay faithful to what the author wrote.
type GroupExpr struct {
	Token token.Token // '('
	Inner Expression
}

func (e *GroupExpr) expressionNode()      {}
func (e *GroupExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *GroupExpr) Span() token.Position { return e.Token.Pos }
func (e *GroupExpr) String() string       { return "(" + e.Inner.String() + ")" }

// CallExpr is a function call: callee(args...).
type CallExpr struct {
	Token  token.Token // '('
	Callee Expression
	Args   []Expression
}

func (e *CallExpr) expressionNode()      {}
func (e *CallExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *CallExpr) Span() token.Position { return e.Token.Pos }
func (e *CallExpr) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return e.Callee.String() + "(" + strings.Join(parts, ", ") + ")"
}

// SubscriptExpr is array/table indexing: obj[key].
type SubscriptExpr struct {
	Token  token.Token // '['
	Object Expression
	Index  Expression
}

func (e *SubscriptExpr) expressionNode()      {}
func (e *SubscriptExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *SubscriptExpr) Span() token.Position { return e.Token.Pos }
func (e *SubscriptExpr) String() string {
	return e.Object.String() + "[" + e.Index.String() + "]"
}

// TupleExpr is a parenthesized, comma-separated expression list: (a, b, c).
type TupleExpr struct {
	Token token.Token // '('
	Elems []Expression
}

func (e *TupleExpr) expressionNode()      {}
func (e *TupleExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *TupleExpr) Span() token.Position { return e.Token.Pos }
func (e *TupleExpr) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ArrayExpr is an array literal: [a, b, c].
type ArrayExpr struct {
	Token token.Token // '['
	Elems []Expression
}

func (e *ArrayExpr) expressionNode()      {}
func (e *ArrayExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *ArrayExpr) Span() token.Position { return e.Token.Pos }
func (e *ArrayExpr) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TableField is one key: value pair of a table literal.
type TableField struct {
	Key   Expression
	Value Expression
}

// TableExpr is a table literal: { "a": 1, "b": 2 }.
type TableExpr struct {
	Token  token.Token // '{'
	Fields []TableField
}

func (e *TableExpr) expressionNode()      {}
func (e *TableExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *TableExpr) Span() token.Position { return e.Token.Pos }
func (e *TableExpr) String() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Key.String() + ": " + f.Value.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Param is one formal parameter of a lambda or function declaration.
type Param struct {
	Name string
	Type TypeExpr // nil when unannotated
}

// UpvalueCapture is one variable a nested function closes over, filled in
// by the semantic pass. FromLocal true means capture straight off the
// enclosing function's local register Index; false means forward the
// enclosing function's own upvalue Index.
type UpvalueCapture struct {
	FromLocal bool
	Index     int
}

// LambdaExpr is an anonymous function literal: fn(params) -> T { body }.
type LambdaExpr struct {
	Token      token.Token // 'fn'
	Params     []Param
	ReturnType TypeExpr
	Body       *ScopeStmt
	Upvalues   []UpvalueCapture // filled in by the semantic pass
}

func (e *LambdaExpr) expressionNode()      {}
func (e *LambdaExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *LambdaExpr) Span() token.Position { return e.Token.Pos }
func (e *LambdaExpr) String() string {
	parts := make([]string, len(e.Params))
	for i, p := range e.Params {
		parts[i] = p.Name
	}
	return "fn(" + strings.Join(parts, ", ") + ") " + e.Body.String()
}

// ErrorExpr is the placeholder the parser substitutes at a parse error site
// so that the surrounding grammar rule completes instead of aborting.
type ErrorExpr struct {
	Token token.Token
}

func (e *ErrorExpr) expressionNode()      {}
func (e *ErrorExpr) TokenLiteral() string { return e.Token.Lexeme }
func (e *ErrorExpr) Span() token.Position { return e.Token.Pos }
func (e *ErrorExpr) String() string       { return "<error>" }

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// VarDecl is `var`/`const` name [: Type] = expr.
type VarDecl struct {
	Token   token.Token // 'var' or 'const'
	Name    string
	Type    TypeExpr // nil when unannotated
	Value   Expression
	Const   bool
	Slot    int // filled in by the semantic pass
}

func (s *VarDecl) statementNode()      {}
func (s *VarDecl) TokenLiteral() string { return s.Token.Lexeme }
func (s *VarDecl) Span() token.Position { return s.Token.Pos }
func (s *VarDecl) String() string {
	kw := "var"
	if s.Const {
		kw = "const"
	}
	return kw + " " + s.Name + " = " + s.Value.String()
}

// ScopeStmt is a brace-delimited block introducing a new lexical scope.
type ScopeStmt struct {
	Token token.Token // '{'
	Body  []Statement
}

func (s *ScopeStmt) statementNode()      {}
func (s *ScopeStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *ScopeStmt) Span() token.Position { return s.Token.Pos }
func (s *ScopeStmt) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, st := range s.Body {
		out.WriteString(st.String())
		out.WriteString("; ")
	}
	out.WriteString("}")
	return out.String()
}

// ElseIf is one `else if` link in an if-chain.
type ElseIf struct {
	Cond Expression
	Body *ScopeStmt
}

// IfStmt is `if cond { } else if cond { } ... else { }`.
type IfStmt struct {
	Token    token.Token // 'if'
	Cond     Expression
	Then     *ScopeStmt
	ElseIfs  []ElseIf
	Else     *ScopeStmt // nil when absent
}

func (s *IfStmt) statementNode()      {}
func (s *IfStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *IfStmt) Span() token.Position { return s.Token.Pos }
func (s *IfStmt) String() string {
	var out bytes.Buffer
	out.WriteString("if ")
	out.WriteString(s.Cond.String())
	out.WriteString(" ")
	out.WriteString(s.Then.String())
	for _, ei := range s.ElseIfs {
		out.WriteString(" else if ")
		out.WriteString(ei.Cond.String())
		out.WriteString(" ")
		out.WriteString(ei.Body.String())
	}
	if s.Else != nil {
		out.WriteString(" else ")
		out.WriteString(s.Else.String())
	}
	return out.String()
}

// WhileStmt is `while cond { body }`.
type WhileStmt struct {
	Token token.Token // 'while'
	Cond  Expression
	Body  *ScopeStmt
}

func (s *WhileStmt) statementNode()      {}
func (s *WhileStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *WhileStmt) Span() token.Position { return s.Token.Pos }
func (s *WhileStmt) String() string {
	return "while " + s.Cond.String() + " " + s.Body.String()
}

// ForRangeStmt is `for x = start, stop[, step] { body }` — a numeric
// counting loop, distinct from ForEachStmt's iterator form.
type ForRangeStmt struct {
	Token token.Token // 'for'
	Var   string
	Start Expression
	Stop  Expression
	Step  Expression // nil means step of 1
	Body  *ScopeStmt
	Slot  int // filled in by the semantic pass
}

func (s *ForRangeStmt) statementNode()      {}
func (s *ForRangeStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *ForRangeStmt) Span() token.Position { return s.Token.Pos }
func (s *ForRangeStmt) String() string {
	return "for " + s.Var + " = " + s.Start.String() + ", " + s.Stop.String() + " " + s.Body.String()
}

// ForEachStmt is `for x in expr { body }` — binds x to expr[0], expr[1], ...
// up to expr's length (an array, or a table/string indexed the same way).
type ForEachStmt struct {
	Token token.Token // 'for'
	Var   string
	Iter  Expression
	Body  *ScopeStmt
	Slot  int // filled in by the semantic pass
}

func (s *ForEachStmt) statementNode()      {}
func (s *ForEachStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *ForEachStmt) Span() token.Position { return s.Token.Pos }
func (s *ForEachStmt) String() string {
	return "for " + s.Var + " in " + s.Iter.String() + " " + s.Body.String()
}

// AssignStmt is `target op= value` for = and every compound-assignment
// operator. Target is restricted at parse time to a SymbolExpr or
// SubscriptExpr.
type AssignStmt struct {
	Token    token.Token // the assignment operator token
	Operator string
	Target   Expression
	Value    Expression
}

func (s *AssignStmt) statementNode()      {}
func (s *AssignStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *AssignStmt) Span() token.Position { return s.Token.Pos }
func (s *AssignStmt) String() string {
	return s.Target.String() + " " + s.Operator + " " + s.Value.String()
}

// EmptyStmt is a bare `;`.
type EmptyStmt struct {
	Token token.Token
}

func (s *EmptyStmt) statementNode()      {}
func (s *EmptyStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *EmptyStmt) Span() token.Position { return s.Token.Pos }
func (s *EmptyStmt) String() string       { return ";" }

// ExprStmt wraps a bare expression used as a statement.
type ExprStmt struct {
	Token token.Token
	Expr  Expression
}

func (s *ExprStmt) statementNode()      {}
func (s *ExprStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *ExprStmt) Span() token.Position { return s.Token.Pos }
func (s *ExprStmt) String() string       { return s.Expr.String() }

// FuncDecl is `fn name(params) -> T { body }` — sugar for a const variable
// bound to a LambdaExpr. The parser builds a FuncDecl node for it (see
// parser.parseFuncDecl) rather than a VarDecl, and FuncDecl carries the same
// fields a VarDecl-of-a-lambda would.
type FuncDecl struct {
	Token      token.Token // 'fn'
	Name       string
	Params     []Param
	ReturnType TypeExpr
	Body       *ScopeStmt
	Slot       int              // filled in by the semantic pass
	Upvalues   []UpvalueCapture // filled in by the semantic pass
}

func (s *FuncDecl) statementNode()      {}
func (s *FuncDecl) TokenLiteral() string { return s.Token.Lexeme }
func (s *FuncDecl) Span() token.Position { return s.Token.Pos }
func (s *FuncDecl) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Name
	}
	return "fn " + s.Name + "(" + strings.Join(parts, ", ") + ") " + s.Body.String()
}

// ReturnStmt is `return [expr]`.
type ReturnStmt struct {
	Token token.Token // 'return'
	Value Expression  // nil for a bare `return`
}

func (s *ReturnStmt) statementNode()      {}
func (s *ReturnStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *ReturnStmt) Span() token.Position { return s.Token.Pos }
func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// BreakStmt is `break`.
type BreakStmt struct {
	Token token.Token
}

func (s *BreakStmt) statementNode()      {}
func (s *BreakStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *BreakStmt) Span() token.Position { return s.Token.Pos }
func (s *BreakStmt) String() string       { return "break" }

// ContinueStmt is `continue`.
type ContinueStmt struct {
	Token token.Token
}

func (s *ContinueStmt) statementNode()      {}
func (s *ContinueStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *ContinueStmt) Span() token.Position { return s.Token.Pos }
func (s *ContinueStmt) String() string       { return "continue" }

// ErrorStmt is the placeholder the parser inserts at a statement-level
// parse error before synchronizing to the next statement starter.
type ErrorStmt struct {
	Token token.Token
}

func (s *ErrorStmt) statementNode()      {}
func (s *ErrorStmt) TokenLiteral() string { return s.Token.Lexeme }
func (s *ErrorStmt) Span() token.Position { return s.Token.Pos }
func (s *ErrorStmt) String() string       { return "<error-stmt>" }
