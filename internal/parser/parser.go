// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package parser implements via's parser: recursive descent for statements,
// Pratt (precedence-climbing) for expressions. Parsing never aborts — on an
// unexpected token the parser emits a diagnosis and recovers: inside an
// expression it skips that one token and inserts an error-placeholder node;
// in a declaration or loop header it synchronizes to the next statement
// starter. The diagnostics bus
// is authoritative for success; Parse always returns a usable (possibly
// partial) *ast.Program.
package parser

import (
	"strconv"
	"strings"

	"github.com/viascript/via/internal/ast"
	"github.com/viascript/via/internal/diag"
	"github.com/viascript/via/internal/lexer"
	"github.com/viascript/via/internal/token"
)

// Precedence levels, lowest to highest. Assignment is not in this table: it
// is recognized only at statement level.
type precedence int

const (
	lowest precedence = iota
	orPrec
	andPrec
	equalityPrec
	relationalPrec
	concatPrec
	bitOrPrec
	bitXorPrec
	bitAndPrec
	shiftPrec
	additivePrec
	multiplicativePrec
	powerPrec
	unaryPrec
	postfixPrec
)

var infixPrecedence = map[token.Kind]precedence{
	token.OR:      orPrec,
	token.OROR:    orPrec,
	token.AND:     andPrec,
	token.ANDAND:  andPrec,
	token.EQ:      equalityPrec,
	token.NE:      equalityPrec,
	token.LT:      relationalPrec,
	token.LE:      relationalPrec,
	token.GT:      relationalPrec,
	token.GE:      relationalPrec,
	token.DOTDOT:  concatPrec,
	token.PIPE:    bitOrPrec,
	token.CARET:   bitXorPrec,
	token.AMP:     bitAndPrec,
	token.SHL:     shiftPrec,
	token.SHR:     shiftPrec,
	token.PLUS:    additivePrec,
	token.MINUS:   additivePrec,
	token.STAR:    multiplicativePrec,
	token.SLASH:   multiplicativePrec,
	token.PERCENT: multiplicativePrec,
	token.POW:     powerPrec,
	token.LPAREN:    postfixPrec,
	token.LBRACKET:  postfixPrec,
}

// statement-starter tokens: the synchronization target after a parse error.
var syncSet = map[token.Kind]bool{
	token.VAR:       true,
	token.CONST:     true,
	token.FN:        true,
	token.WHILE:     true,
	token.IF:        true,
	token.FOR:       true,
	token.RETURN:    true,
	token.BREAK:     true,
	token.CONTINUE:  true,
	token.LBRACE:    true,
	token.SEMICOLON: true,
	token.EOF:       true,
}

var assignOps = map[token.Kind]string{
	token.ASSIGN:    "=",
	token.PLUSEQ:    "+=",
	token.MINUSEQ:   "-=",
	token.STAREQ:    "*=",
	token.SLASHEQ:   "/=",
	token.PERCENTEQ: "%=",
	token.AMPEQ:     "&=",
	token.PIPEEQ:    "|=",
	token.CARETEQ:   "^=",
}

// Parser holds the state of one parse.
type Parser struct {
	l   *lexer.Lexer
	bus *diag.Bus

	cur  token.Token
	next token.Token
}

// New creates a Parser reading from l, reporting diagnostics onto bus.
func New(l *lexer.Lexer, bus *diag.Bus) *Parser {
	p := &Parser{l: l, bus: bus}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.next
	p.next = p.l.NextToken()
}

func (p *Parser) curIs(k token.Kind) bool  { return p.cur.Kind == k }
func (p *Parser) nextIs(k token.Kind) bool { return p.next.Kind == k }

// expect consumes the current token if it matches k, else emits a diagnosis
// and leaves the cursor in place (the caller is expected to recover).
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.cur.Kind == k {
		t := p.cur
		p.advance()
		return t, true
	}
	p.errorf(p.cur.Pos, len(p.cur.Lexeme), "expected %s, found %s", k, p.cur.Kind)
	return p.cur, false
}

func (p *Parser) errorf(pos token.Position, length int, format string, args ...interface{}) {
	p.bus.Errf(pos, length, format, args...)
}

// sync consumes tokens until it reaches a statement-starter or EOF — the
// "skip to synchronization token" recovery strategy.
func (p *Parser) sync() {
	for !syncSet[p.cur.Kind] {
		p.advance()
	}
}

// Parse runs the full recursive-descent pass over the token stream and
// returns the resulting (possibly partial) program.
func Parse(l *lexer.Lexer, bus *diag.Bus) *ast.Program {
	p := New(l, bus)
	prog := &ast.Program{}
	for !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Kind {
	case token.VAR, token.CONST:
		return p.parseVarDecl()
	case token.LBRACE:
		return p.parseScope()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		t := p.cur
		p.advance()
		p.consumeOptSemicolon()
		return &ast.BreakStmt{Token: t}
	case token.CONTINUE:
		t := p.cur
		p.advance()
		p.consumeOptSemicolon()
		return &ast.ContinueStmt{Token: t}
	case token.FN:
		return p.parseFuncDecl()
	case token.SEMICOLON:
		t := p.cur
		p.advance()
		return &ast.EmptyStmt{Token: t}
	default:
		return p.parseSimpleStatement()
	}
}

func (p *Parser) consumeOptSemicolon() {
	if p.curIs(token.SEMICOLON) {
		p.advance()
	}
}

func (p *Parser) parseVarDecl() ast.Statement {
	t := p.cur
	isConst := t.Kind == token.CONST
	p.advance()

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.sync()
		return &ast.ErrorStmt{Token: t}
	}

	var typ ast.TypeExpr
	if p.curIs(token.COLON) {
		p.advance()
		typ = p.parseType()
	}

	var value ast.Expression
	if p.curIs(token.ASSIGN) {
		p.advance()
		value = p.parseExpression(lowest)
	} else {
		p.errorf(p.cur.Pos, len(p.cur.Lexeme), "expected '=' in variable declaration, found %s", p.cur.Kind)
		value = &ast.ErrorExpr{Token: p.cur}
	}
	p.consumeOptSemicolon()

	return &ast.VarDecl{Token: t, Name: nameTok.Lexeme, Type: typ, Value: value, Const: isConst}
}

func (p *Parser) parseScope() *ast.ScopeStmt {
	t := p.cur
	p.advance() // consume '{'
	scope := &ast.ScopeStmt{Token: t}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		scope.Body = append(scope.Body, p.parseStatement())
	}
	p.expect(token.RBRACE)
	return scope
}

func (p *Parser) parseIf() ast.Statement {
	t := p.cur
	p.advance() // consume 'if'
	cond := p.parseExpression(lowest)
	then := p.parseScope()

	stmt := &ast.IfStmt{Token: t, Cond: cond, Then: then}
	for p.curIs(token.ELSE) && p.nextIs(token.IF) {
		p.advance() // 'else'
		p.advance() // 'if'
		c := p.parseExpression(lowest)
		b := p.parseScope()
		stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIf{Cond: c, Body: b})
	}
	if p.curIs(token.ELSE) {
		p.advance()
		stmt.Else = p.parseScope()
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Statement {
	t := p.cur
	p.advance()
	cond := p.parseExpression(lowest)
	body := p.parseScope()
	return &ast.WhileStmt{Token: t, Cond: cond, Body: body}
}

// parseFor disambiguates `for x in expr { }` from `for x = a, b[, step] { }`.
func (p *Parser) parseFor() ast.Statement {
	t := p.cur
	p.advance() // consume 'for'

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.sync()
		return &ast.ErrorStmt{Token: t}
	}

	if p.curIs(token.IN) {
		p.advance()
		iter := p.parseExpression(lowest)
		body := p.parseScope()
		return &ast.ForEachStmt{Token: t, Var: nameTok.Lexeme, Iter: iter, Body: body}
	}

	if _, ok := p.expect(token.ASSIGN); !ok {
		p.sync()
		return &ast.ErrorStmt{Token: t}
	}
	start := p.parseExpression(lowest)
	p.expect(token.COMMA)
	stop := p.parseExpression(lowest)
	var step ast.Expression
	if p.curIs(token.COMMA) {
		p.advance()
		step = p.parseExpression(lowest)
	}
	body := p.parseScope()
	return &ast.ForRangeStmt{Token: t, Var: nameTok.Lexeme, Start: start, Stop: stop, Step: step, Body: body}
}

func (p *Parser) parseReturn() ast.Statement {
	t := p.cur
	p.advance()
	if p.curIs(token.SEMICOLON) || p.curIs(token.RBRACE) {
		p.consumeOptSemicolon()
		return &ast.ReturnStmt{Token: t}
	}
	val := p.parseExpression(lowest)
	p.consumeOptSemicolon()
	return &ast.ReturnStmt{Token: t, Value: val}
}

// parseFuncDecl parses `fn name(params) -> T { body }`, desugaring it to a
// FuncDecl — itself equivalent to `const name = fn(params) -> T { body }`.
func (p *Parser) parseFuncDecl() ast.Statement {
	t := p.cur
	p.advance() // consume 'fn'

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.sync()
		return &ast.ErrorStmt{Token: t}
	}

	params := p.parseParamList()

	var ret ast.TypeExpr
	if p.curIs(token.ARROW) {
		p.advance()
		ret = p.parseType()
	}

	body := p.parseScope()
	return &ast.FuncDecl{Token: t, Name: nameTok.Lexeme, Params: params, ReturnType: ret, Body: body}
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	p.expect(token.LPAREN)
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			p.sync()
			return params
		}
		param := ast.Param{Name: nameTok.Lexeme}
		if p.curIs(token.COLON) {
			p.advance()
			param.Type = p.parseType()
		}
		params = append(params, param)
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	return params
}

// parseSimpleStatement parses an assignment or a bare expression statement;
// the two share a common expression prefix and are disambiguated only after
// parsing the left-hand expression.
func (p *Parser) parseSimpleStatement() ast.Statement {
	t := p.cur
	expr := p.parseExpression(lowest)

	if op, ok := assignOps[p.cur.Kind]; ok {
		opTok := p.cur
		p.advance()
		if !isAssignable(expr) {
			p.errorf(opTok.Pos, len(opTok.Lexeme), "invalid assignment target")
		}
		value := p.parseExpression(lowest)
		p.consumeOptSemicolon()
		return &ast.AssignStmt{Token: opTok, Operator: op, Target: expr, Value: value}
	}

	p.consumeOptSemicolon()
	return &ast.ExprStmt{Token: t, Expr: expr}
}

func isAssignable(e ast.Expression) bool {
	switch e.(type) {
	case *ast.SymbolExpr, *ast.SubscriptExpr:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Expressions (Pratt / precedence-climbing)
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression(prec precedence) ast.Expression {
	left := p.parsePrefix()

	for !p.curIs(token.SEMICOLON) {
		nextPrec, ok := infixPrecedence[p.cur.Kind]
		if !ok || prec >= nextPrec {
			break
		}
		left = p.parseInfix(left, nextPrec)
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expression {
	switch p.cur.Kind {
	case token.INT:
		return p.parseIntLiteral()
	case token.FLOAT:
		return p.parseFloatLiteral()
	case token.STRING:
		t := p.cur
		p.advance()
		return &ast.LiteralExpr{Token: t, Value: t.Lexeme}
	case token.TRUE, token.FALSE:
		t := p.cur
		p.advance()
		return &ast.LiteralExpr{Token: t, Value: t.Kind == token.TRUE}
	case token.NIL:
		t := p.cur
		p.advance()
		return &ast.LiteralExpr{Token: t, Value: nil}
	case token.IDENT, token.MACROIDENT:
		t := p.cur
		p.advance()
		return &ast.SymbolExpr{Token: t, Name: t.Lexeme}
	case token.LPAREN:
		return p.parseGroupOrTuple()
	case token.LBRACKET:
		return p.parseArrayLiteral()
	case token.LBRACE:
		return p.parseTableLiteral()
	case token.FN:
		return p.parseLambda()
	case token.MINUS, token.BANG, token.NOT, token.TILDE:
		return p.parseUnary()
	default:
		p.errorf(p.cur.Pos, len(p.cur.Lexeme), "unexpected token %s in expression", p.cur.Kind)
		t := p.cur
		p.advance()
		return &ast.ErrorExpr{Token: t}
	}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	t := p.cur
	p.advance()
	lit := t.Lexeme
	base := 10
	switch {
	case strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X"):
		base, lit = 16, lit[2:]
	case strings.HasPrefix(lit, "0b") || strings.HasPrefix(lit, "0B"):
		base, lit = 2, lit[2:]
	}
	v, err := strconv.ParseInt(lit, base, 64)
	if err != nil {
		p.errorf(t.Pos, len(t.Lexeme), "invalid integer literal %q", t.Lexeme)
	}
	return &ast.LiteralExpr{Token: t, Value: v}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	t := p.cur
	p.advance()
	v, err := strconv.ParseFloat(t.Lexeme, 64)
	if err != nil {
		p.errorf(t.Pos, len(t.Lexeme), "invalid float literal %q", t.Lexeme)
	}
	return &ast.LiteralExpr{Token: t, Value: v}
}

func (p *Parser) parseUnary() ast.Expression {
	t := p.cur
	op := t.Lexeme
	p.advance()
	operand := p.parseExpression(unaryPrec)
	return &ast.UnaryExpr{Token: t, Operator: op, Operand: operand}
}

// parseGroupOrTuple handles both `(expr)` and `(a, b, c)`.
func (p *Parser) parseGroupOrTuple() ast.Expression {
	t := p.cur
	p.advance() // consume '('
	if p.curIs(token.RPAREN) {
		p.advance()
		return &ast.TupleExpr{Token: t}
	}
	first := p.parseExpression(lowest)
	if p.curIs(token.COMMA) {
		elems := []ast.Expression{first}
		for p.curIs(token.COMMA) {
			p.advance()
			if p.curIs(token.RPAREN) {
				break
			}
			elems = append(elems, p.parseExpression(lowest))
		}
		p.expect(token.RPAREN)
		return &ast.TupleExpr{Token: t, Elems: elems}
	}
	p.expect(token.RPAREN)
	return &ast.GroupExpr{Token: t, Inner: first}
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	t := p.cur
	p.advance() // consume '['
	arr := &ast.ArrayExpr{Token: t}
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) {
		arr.Elems = append(arr.Elems, p.parseExpression(lowest))
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACKET)
	return arr
}

func (p *Parser) parseTableLiteral() ast.Expression {
	t := p.cur
	p.advance() // consume '{'
	tbl := &ast.TableExpr{Token: t}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		key := p.parseExpression(lowest)
		p.expect(token.COLON)
		value := p.parseExpression(lowest)
		tbl.Fields = append(tbl.Fields, ast.TableField{Key: key, Value: value})
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACE)
	return tbl
}

func (p *Parser) parseLambda() ast.Expression {
	t := p.cur
	p.advance() // consume 'fn'
	params := p.parseParamList()
	var ret ast.TypeExpr
	if p.curIs(token.ARROW) {
		p.advance()
		ret = p.parseType()
	}
	body := p.parseScope()
	return &ast.LambdaExpr{Token: t, Params: params, ReturnType: ret, Body: body}
}

func (p *Parser) parseInfix(left ast.Expression, prec precedence) ast.Expression {
	switch p.cur.Kind {
	case token.LPAREN:
		return p.parseCall(left)
	case token.LBRACKET:
		return p.parseSubscript(left)
	case token.POW, token.DOTDOT:
		// Right-associative: parse the RHS at one precedence looser than
		// this operator's own level, so a chain like 2 ** 3 ** 2 nests as
		// 2 ** (3 ** 2), and "a" .. "b" .. "c" nests as "a" .. ("b" .. "c").
		t := p.cur
		op := t.Lexeme
		p.advance()
		right := p.parseExpression(prec - 1)
		return &ast.BinaryExpr{Token: t, Operator: op, Left: left, Right: right}
	default:
		t := p.cur
		op := t.Lexeme
		p.advance()
		right := p.parseExpression(prec)
		return &ast.BinaryExpr{Token: t, Operator: op, Left: left, Right: right}
	}
}

func (p *Parser) parseCall(callee ast.Expression) ast.Expression {
	t := p.cur
	p.advance() // consume '('
	call := &ast.CallExpr{Token: t, Callee: callee}
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		call.Args = append(call.Args, p.parseExpression(lowest))
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	return call
}

func (p *Parser) parseSubscript(obj ast.Expression) ast.Expression {
	t := p.cur
	p.advance() // consume '['
	idx := p.parseExpression(lowest)
	p.expect(token.RBRACKET)
	return &ast.SubscriptExpr{Token: t, Object: obj, Index: idx}
}

// ---------------------------------------------------------------------------
// Type annotations
// ---------------------------------------------------------------------------

var primitiveNames = map[string]bool{
	"int": true, "float": true, "bool": true, "string": true, "nil": true, "any": true,
}

func (p *Parser) parseType() ast.TypeExpr {
	switch p.cur.Kind {
	case token.LBRACKET:
		t := p.cur
		p.advance()
		elem := p.parseType()
		p.expect(token.RBRACKET)
		return &ast.ArrayTypeExpr{Token: t, Elem: elem}
	case token.LPAREN:
		t := p.cur
		p.advance()
		var elems []ast.TypeExpr
		for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
			elems = append(elems, p.parseType())
			if p.curIs(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN)
		return &ast.TupleTypeExpr{Token: t, Elems: elems}
	case token.FN:
		t := p.cur
		p.advance()
		p.expect(token.LPAREN)
		var params []ast.TypeExpr
		for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
			params = append(params, p.parseType())
			if p.curIs(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN)
		var ret ast.TypeExpr
		if p.curIs(token.ARROW) {
			p.advance()
			ret = p.parseType()
		}
		return &ast.FuncTypeExpr{Token: t, ParamTypes: params, ReturnType: ret}
	case token.IDENT:
		t := p.cur
		p.advance()
		if primitiveNames[t.Lexeme] {
			return &ast.PrimitiveType{Token: t, Name: t.Lexeme}
		}
		named := &ast.NamedTypeExpr{Token: t, Name: t.Lexeme}
		if p.curIs(token.LT) {
			p.advance()
			for !p.curIs(token.GT) && !p.curIs(token.EOF) {
				named.TypeArgs = append(named.TypeArgs, p.parseType())
				if p.curIs(token.COMMA) {
					p.advance()
				}
			}
			p.expect(token.GT)
		}
		return named
	default:
		p.errorf(p.cur.Pos, len(p.cur.Lexeme), "expected type, found %s", p.cur.Kind)
		t := p.cur
		p.advance()
		return &ast.PrimitiveType{Token: t, Name: "any"}
	}
}
