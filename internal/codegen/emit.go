// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"github.com/viascript/via/internal/ast"
	"github.com/viascript/via/internal/bytecode"
)

// val is the result of emitting one expression: the register it lives in,
// and whether that register is a scratch temporary the caller should free
// once it is done consuming the value (a local variable's own register is
// never freed here — it stays live for the rest of the variable's scope).
type val struct {
	reg  int
	temp bool
}

func (g *Generator) free(v val) {
	if v.temp {
		g.cur.regs.free(v.reg)
	}
}

func line(n ast.Node) int { return n.Span().Line }

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *Generator) genStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		g.genVarDecl(s)
	case *ast.ScopeStmt:
		for _, st := range s.Body {
			g.genStatement(st)
		}
	case *ast.IfStmt:
		g.genIf(s)
	case *ast.WhileStmt:
		g.genWhile(s)
	case *ast.ForRangeStmt:
		g.genForRange(s)
	case *ast.ForEachStmt:
		g.genForEach(s)
	case *ast.AssignStmt:
		g.genAssign(s)
	case *ast.ExprStmt:
		g.free(g.genExpr(s.Expr))
	case *ast.FuncDecl:
		g.genFuncDecl(s)
	case *ast.ReturnStmt:
		g.genReturn(s)
	case *ast.BreakStmt:
		g.genBreak(s)
	case *ast.ContinueStmt:
		g.genContinue(s)
	case *ast.EmptyStmt, *ast.ErrorStmt:
		// nothing to emit
	}
}

func (g *Generator) genVarDecl(s *ast.VarDecl) {
	v := g.genExpr(s.Value)
	// s.Slot was already assigned by the semantic pass; every SymbolExpr
	// that resolves to this variable elsewhere in the function carries
	// that exact register number, so codegen must land the value there
	// rather than wherever its own allocator would otherwise place it.
	g.cur.regs.reserve(s.Slot)
	if v.reg != s.Slot {
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpMov, A: uint16(s.Slot), B: uint16(v.reg), C: bytecode.NoOperand}, line(s))
		g.free(v)
	}
}

func (g *Generator) genIf(s *ast.IfStmt) {
	cond := g.genExpr(s.Cond)
	elseLabel := g.cur.newLabel()
	endLabel := g.cur.newLabel()
	g.cur.emitJump(bytecode.OpJmpIfNot, cond.reg, elseLabel, line(s))
	g.free(cond)
	for _, st := range s.Then.Body {
		g.genStatement(st)
	}
	g.cur.emitJump(bytecode.OpJmp, 0, endLabel, line(s))
	g.cur.placeLabel(elseLabel)

	for _, ei := range s.ElseIfs {
		c := g.genExpr(ei.Cond)
		nextLabel := g.cur.newLabel()
		g.cur.emitJump(bytecode.OpJmpIfNot, c.reg, nextLabel, line(s))
		g.free(c)
		for _, st := range ei.Body.Body {
			g.genStatement(st)
		}
		g.cur.emitJump(bytecode.OpJmp, 0, endLabel, line(s))
		g.cur.placeLabel(nextLabel)
	}
	if s.Else != nil {
		for _, st := range s.Else.Body {
			g.genStatement(st)
		}
	}
	g.cur.placeLabel(endLabel)
}

func (g *Generator) genWhile(s *ast.WhileStmt) {
	headLabel := g.cur.newLabel()
	endLabel := g.cur.newLabel()
	g.cur.placeLabel(headLabel)
	cond := g.genExpr(s.Cond)
	g.cur.emitJump(bytecode.OpJmpIfNot, cond.reg, endLabel, line(s))
	g.free(cond)

	g.cur.loops = append(g.cur.loops, loopLabels{breakLabel: endLabel, continueLabel: headLabel})
	for _, st := range s.Body.Body {
		g.genStatement(st)
	}
	g.cur.loops = g.cur.loops[:len(g.cur.loops)-1]

	g.cur.emitJump(bytecode.OpJmp, 0, headLabel, line(s))
	g.cur.placeLabel(endLabel)
}

func (g *Generator) genForRange(s *ast.ForRangeStmt) {
	g.cur.regs.reserve(s.Slot)
	start := g.genExpr(s.Start)
	counter := s.Slot
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpMov, A: uint16(counter), B: uint16(start.reg), C: bytecode.NoOperand}, line(s))
	g.free(start)

	stop := g.genExpr(s.Stop)
	var step val
	if s.Step != nil {
		step = g.genExpr(s.Step)
	} else {
		step = g.loadIntConst(1, line(s))
	}

	headLabel := g.cur.newLabel()
	endLabel := g.cur.newLabel()
	g.cur.placeLabel(headLabel)

	cmp := g.cur.regs.allocateTemp()
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpLt, A: uint16(cmp), B: uint16(counter), C: uint16(stop.reg)}, line(s))
	g.cur.emitJump(bytecode.OpJmpIfNot, cmp, endLabel, line(s))

	g.cur.loops = append(g.cur.loops, loopLabels{breakLabel: endLabel, continueLabel: headLabel})
	for _, st := range s.Body.Body {
		g.genStatement(st)
	}
	g.cur.loops = g.cur.loops[:len(g.cur.loops)-1]

	g.cur.emit(bytecode.Instruction{Op: bytecode.OpAdd, A: uint16(counter), B: uint16(counter), C: uint16(step.reg)}, line(s))
	g.cur.emitJump(bytecode.OpJmp, 0, headLabel, line(s))
	g.cur.placeLabel(endLabel)

	g.free(stop)
	g.free(step)
	// The loop variable's slot went out of scope with the loop body in the
	// semantic pass and is never reassigned to another local, so it is
	// safe to give back to the temp pool here.
	g.cur.regs.free(counter)
}

func (g *Generator) genForEach(s *ast.ForEachStmt) {
	// via has no dedicated iterator protocol opcode; for-each over an
	// array or table lowers to a counting loop over its length, reusing
	// getindex rather than a separate "next" instruction.
	g.cur.regs.reserve(s.Slot)
	elem := s.Slot
	iter := g.genExpr(s.Iter)
	idx := g.cur.regs.allocate()
	zero := g.loadIntConst(0, line(s))
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpMov, A: uint16(idx), B: uint16(zero.reg), C: bytecode.NoOperand}, line(s))
	g.free(zero)

	headLabel := g.cur.newLabel()
	endLabel := g.cur.newLabel()
	g.cur.placeLabel(headLabel)

	lenReg := g.cur.regs.allocateTemp()
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpGetIndex, A: uint16(lenReg), B: uint16(iter.reg), C: bytecode.NoOperand}, line(s))
	cmp := g.cur.regs.allocateTemp()
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpLt, A: uint16(cmp), B: uint16(idx), C: uint16(lenReg)}, line(s))
	g.cur.emitJump(bytecode.OpJmpIfNot, cmp, endLabel, line(s))

	g.cur.emit(bytecode.Instruction{Op: bytecode.OpGetIndex, A: uint16(elem), B: uint16(iter.reg), C: uint16(idx)}, line(s))

	g.cur.loops = append(g.cur.loops, loopLabels{breakLabel: endLabel, continueLabel: headLabel})
	for _, st := range s.Body.Body {
		g.genStatement(st)
	}
	g.cur.loops = g.cur.loops[:len(g.cur.loops)-1]

	one := g.loadIntConst(1, line(s))
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpAdd, A: uint16(idx), B: uint16(idx), C: uint16(one.reg)}, line(s))
	g.free(one)
	g.cur.emitJump(bytecode.OpJmp, 0, headLabel, line(s))
	g.cur.placeLabel(endLabel)

	g.free(iter)
	g.cur.regs.free(idx)
	g.cur.regs.free(elem)
}

func (g *Generator) genAssign(s *ast.AssignStmt) {
	rhs := g.genExpr(s.Value)
	if s.Operator != "=" {
		// compound assignment: target op= value desugars to target = target op value
		cur := g.genExpr(s.Target)
		combined := g.cur.regs.allocateTemp()
		op := compoundOp[s.Operator]
		g.cur.emit(bytecode.Instruction{Op: op, A: uint16(combined), B: uint16(cur.reg), C: uint16(rhs.reg)}, line(s))
		g.free(cur)
		g.free(rhs)
		rhs = val{reg: combined, temp: true}
	}

	switch target := s.Target.(type) {
	case *ast.SymbolExpr:
		switch target.ResolvedBy.Kind {
		case ast.Local:
			g.cur.emit(bytecode.Instruction{Op: bytecode.OpMov, A: uint16(target.ResolvedBy.Index), B: uint16(rhs.reg), C: bytecode.NoOperand}, line(s))
		case ast.Upvalue:
			g.cur.emit(bytecode.Instruction{Op: bytecode.OpSetUp, A: uint16(target.ResolvedBy.Index), B: uint16(rhs.reg), C: bytecode.NoOperand}, line(s))
		case ast.Global:
			g.cur.emit(bytecode.Instruction{Op: bytecode.OpSetGlobal, A: uint16(target.ResolvedBy.Index), B: uint16(rhs.reg), C: bytecode.NoOperand}, line(s))
		}
	case *ast.SubscriptExpr:
		obj := g.genExpr(target.Object)
		idx := g.genExpr(target.Index)
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpSetIndex, A: uint16(obj.reg), B: uint16(idx.reg), C: uint16(rhs.reg)}, line(s))
		g.free(obj)
		g.free(idx)
	}
	g.free(rhs)
}

var compoundOp = map[string]bytecode.Op{
	"+=": bytecode.OpAdd, "-=": bytecode.OpSub, "*=": bytecode.OpMul,
	"/=": bytecode.OpDiv, "%=": bytecode.OpMod,
	"&=": bytecode.OpBAnd, "|=": bytecode.OpBOr, "^=": bytecode.OpBXor,
}

func (g *Generator) genFuncDecl(s *ast.FuncDecl) {
	protoIdx := g.genFuncBody(s.Params, s.Body.Body, s.Name, s.Upvalues)
	// FuncDecl is sugar for `const name = fn(...) {...}`: s.Slot was
	// already assigned by the semantic pass, same as a VarDecl.
	g.cur.regs.reserve(s.Slot)
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpClosure, A: uint16(s.Slot), B: uint16(protoIdx), C: bytecode.NoOperand}, line(s))
}

// genFuncBody compiles params+body as a brand-new nested function and
// splices it into the chunk, returning its FuncProto index. Nested
// funcGens link to their lexically enclosing funcGen via parent so upvalue
// capture lists (built by package types and replayed here) resolve
// correctly.
func (g *Generator) genFuncBody(params []ast.Param, body []ast.Statement, name string, upvalues []ast.UpvalueCapture) int {
	parent := g.cur
	fg := newFuncGen(parent)
	fg.numParam = len(params)
	for range params {
		fg.regs.allocate()
	}
	g.cur = fg
	for _, st := range body {
		g.genStatement(st)
	}
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpRetNil, A: bytecode.NoOperand, B: bytecode.NoOperand, C: bytecode.NoOperand}, 0)
	g.cur.resolveLabels(g.bus)
	g.cur = parent
	descs := make([]bytecode.UpvalDesc, len(upvalues))
	for i, u := range upvalues {
		descs[i] = bytecode.UpvalDesc{FromLocal: u.FromLocal, Index: u.Index}
	}
	return g.splice(fg, name, len(params), descs)
}

func (g *Generator) genReturn(s *ast.ReturnStmt) {
	if s.Value == nil {
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpRetNil, A: bytecode.NoOperand, B: bytecode.NoOperand, C: bytecode.NoOperand}, line(s))
		return
	}
	v := g.genExpr(s.Value)
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpRet, A: uint16(v.reg), B: bytecode.NoOperand, C: bytecode.NoOperand}, line(s))
	g.free(v)
}

func (g *Generator) genBreak(s *ast.BreakStmt) {
	if len(g.cur.loops) == 0 {
		return // already diagnosed by the semantic pass
	}
	top := g.cur.loops[len(g.cur.loops)-1]
	g.cur.emitJump(bytecode.OpJmp, 0, top.breakLabel, line(s))
}

func (g *Generator) genContinue(s *ast.ContinueStmt) {
	if len(g.cur.loops) == 0 {
		return
	}
	top := g.cur.loops[len(g.cur.loops)-1]
	g.cur.emitJump(bytecode.OpJmp, 0, top.continueLabel, line(s))
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (g *Generator) loadIntConst(i int64, ln int) val {
	dst := g.cur.regs.allocate()
	idx := g.chunk.AddConst(bytecode.Const{Kind: bytecode.ConstInt, I: i})
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpLoadK, A: uint16(dst), B: uint16(idx), C: bytecode.NoOperand}, ln)
	return val{reg: dst, temp: true}
}

func (g *Generator) genExpr(expr ast.Expression) val {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return g.genLiteral(e)
	case *ast.SymbolExpr:
		return g.genSymbol(e)
	case *ast.UnaryExpr:
		return g.genUnary(e)
	case *ast.BinaryExpr:
		return g.genBinary(e)
	case *ast.GroupExpr:
		return g.genExpr(e.Inner)
	case *ast.CallExpr:
		return g.genCall(e)
	case *ast.SubscriptExpr:
		return g.genSubscript(e)
	case *ast.ArrayExpr:
		return g.genArray(e)
	case *ast.TableExpr:
		return g.genTable(e)
	case *ast.TupleExpr:
		return g.genArrayLike(e.Elems, line(e))
	case *ast.LambdaExpr:
		return g.genLambda(e)
	default: // *ast.ErrorExpr and anything else: emit a harmless nil load
		dst := g.cur.regs.allocate()
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpLoadNil, A: uint16(dst), B: bytecode.NoOperand, C: bytecode.NoOperand}, line(expr))
		return val{reg: dst, temp: true}
	}
}

func (g *Generator) genLiteral(e *ast.LiteralExpr) val {
	dst := g.cur.regs.allocate()
	switch v := e.Value.(type) {
	case nil:
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpLoadNil, A: uint16(dst), B: bytecode.NoOperand, C: bytecode.NoOperand}, line(e))
	case bool:
		b := uint16(0)
		if v {
			b = 1
		}
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpLoadBool, A: uint16(dst), B: b, C: bytecode.NoOperand}, line(e))
	case int64:
		idx := g.chunk.AddConst(bytecode.Const{Kind: bytecode.ConstInt, I: v})
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpLoadK, A: uint16(dst), B: uint16(idx), C: bytecode.NoOperand}, line(e))
	case float64:
		idx := g.chunk.AddConst(bytecode.Const{Kind: bytecode.ConstFloat, F: v})
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpLoadK, A: uint16(dst), B: uint16(idx), C: bytecode.NoOperand}, line(e))
	case string:
		idx := g.chunk.AddConst(bytecode.Const{Kind: bytecode.ConstString, S: v})
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpLoadK, A: uint16(dst), B: uint16(idx), C: bytecode.NoOperand}, line(e))
	}
	return val{reg: dst, temp: true}
}

func (g *Generator) genSymbol(e *ast.SymbolExpr) val {
	switch e.ResolvedBy.Kind {
	case ast.Local:
		return val{reg: e.ResolvedBy.Index, temp: false}
	case ast.Upvalue:
		dst := g.cur.regs.allocate()
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpGetUp, A: uint16(dst), B: uint16(e.ResolvedBy.Index), C: bytecode.NoOperand}, line(e))
		return val{reg: dst, temp: true}
	case ast.Global:
		dst := g.cur.regs.allocate()
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpGetGlobal, A: uint16(dst), B: uint16(e.ResolvedBy.Index), C: bytecode.NoOperand}, line(e))
		return val{reg: dst, temp: true}
	default: // Unresolved: already diagnosed by the semantic pass
		dst := g.cur.regs.allocate()
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpLoadNil, A: uint16(dst), B: bytecode.NoOperand, C: bytecode.NoOperand}, line(e))
		return val{reg: dst, temp: true}
	}
}

var unaryOp = map[string]bytecode.Op{"!": bytecode.OpNot, "not": bytecode.OpNot, "~": bytecode.OpBNot}

func (g *Generator) genUnary(e *ast.UnaryExpr) val {
	operand := g.genExpr(e.Operand)
	if e.Operator == "-" {
		dst := g.cur.regs.allocate()
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpNeg, A: uint16(dst), B: uint16(operand.reg), C: bytecode.NoOperand}, line(e))
		g.free(operand)
		return val{reg: dst, temp: true}
	}
	op := unaryOp[e.Operator]
	dst := g.cur.regs.allocate()
	g.cur.emit(bytecode.Instruction{Op: op, A: uint16(dst), B: uint16(operand.reg), C: bytecode.NoOperand}, line(e))
	g.free(operand)
	return val{reg: dst, temp: true}
}

var binaryOp = map[string]bytecode.Op{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul, "/": bytecode.OpDiv,
	"%": bytecode.OpMod, "**": bytecode.OpPow,
	"&": bytecode.OpBAnd, "|": bytecode.OpBOr, "^": bytecode.OpBXor,
	"shl": bytecode.OpShl, "shr": bytecode.OpShr,
	"==": bytecode.OpEq, "!=": bytecode.OpNe,
	"<": bytecode.OpLt, "<=": bytecode.OpLe, ">": bytecode.OpGt, ">=": bytecode.OpGe,
	"..": bytecode.OpConcat,
}

func (g *Generator) genBinary(e *ast.BinaryExpr) val {
	switch e.Operator {
	case "&&", "and":
		return g.genShortCircuit(e, bytecode.OpJmpIfNot)
	case "||", "or":
		return g.genShortCircuit(e, bytecode.OpJmpIf)
	}
	left := g.genExpr(e.Left)
	right := g.genExpr(e.Right)
	dst := g.cur.regs.allocate()
	op, ok := binaryOp[e.Operator]
	if !ok {
		op = bytecode.OpAdd
	}
	g.cur.emit(bytecode.Instruction{Op: op, A: uint16(dst), B: uint16(left.reg), C: uint16(right.reg)}, line(e))
	g.free(left)
	g.free(right)
	return val{reg: dst, temp: true}
}

// genShortCircuit evaluates the left operand into dst, skips the right
// operand's evaluation on the appropriate truthiness via jumpOnSkip, then
// evaluates the right operand into the same dst.
func (g *Generator) genShortCircuit(e *ast.BinaryExpr, jumpOnSkip bytecode.Op) val {
	dst := g.cur.regs.allocate()
	left := g.genExpr(e.Left)
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpMov, A: uint16(dst), B: uint16(left.reg), C: bytecode.NoOperand}, line(e))
	g.free(left)

	endLabel := g.cur.newLabel()
	g.cur.emitJump(jumpOnSkip, dst, endLabel, line(e))
	right := g.genExpr(e.Right)
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpMov, A: uint16(dst), B: uint16(right.reg), C: bytecode.NoOperand}, line(e))
	g.free(right)
	g.cur.placeLabel(endLabel)
	return val{reg: dst, temp: true}
}

func (g *Generator) genCall(e *ast.CallExpr) val {
	callee := g.genExpr(e.Callee)
	argc := len(e.Args)
	argVals := make([]val, argc)
	for i, a := range e.Args {
		argVals[i] = g.genExpr(a)
	}
	// The callee and its arguments must land in one contiguous window
	// (callee first, then each argument) so OpCall can address the whole
	// thing with a single base register and a count. Allocating the
	// window as one block and moving everything into place afterward is
	// the only way to guarantee that contiguity: allocating each piece's
	// register separately, as values are produced, gives no guarantee two
	// consecutive allocate() calls return consecutive registers once the
	// free list has gaps.
	block := g.cur.regs.allocateBlock(argc + 1)
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpMov, A: uint16(block), B: uint16(callee.reg), C: bytecode.NoOperand}, line(e))
	g.free(callee)
	for i, v := range argVals {
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpMov, A: uint16(block + 1 + i), B: uint16(v.reg), C: bytecode.NoOperand}, line(e))
		g.free(v)
	}
	// The call overwrites the callee's slot with the return value, so the
	// window's first register doubles as dst.
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpCall, A: uint16(block), B: uint16(argc), C: uint16(block)}, line(e))
	g.cur.regs.freeBlock(block+1, argc)
	return val{reg: block, temp: true}
}

func (g *Generator) genSubscript(e *ast.SubscriptExpr) val {
	obj := g.genExpr(e.Object)
	idx := g.genExpr(e.Index)
	dst := g.cur.regs.allocate()
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpGetIndex, A: uint16(dst), B: uint16(obj.reg), C: uint16(idx.reg)}, line(e))
	g.free(obj)
	g.free(idx)
	return val{reg: dst, temp: true}
}

func (g *Generator) genArray(e *ast.ArrayExpr) val {
	return g.genArrayLike(e.Elems, line(e))
}

func (g *Generator) genArrayLike(elems []ast.Expression, ln int) val {
	vals := make([]val, len(elems))
	for i, el := range elems {
		vals[i] = g.genExpr(el)
	}
	n := len(elems)
	// newarray expects its nelems elements sitting in the contiguous
	// registers immediately below dst. Allocating one block of n+1
	// registers up front (elements, then dst) is what actually guarantees
	// that layout; allocate()'d piecemeal, dst could land on a free gap
	// that isn't adjacent to the last element.
	block := g.cur.regs.allocateBlock(n + 1)
	for i, v := range vals {
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpMov, A: uint16(block + i), B: uint16(v.reg), C: bytecode.NoOperand}, ln)
		g.free(v)
	}
	dst := block + n
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpNewArray, A: uint16(dst), B: uint16(n), C: bytecode.NoOperand}, ln)
	g.cur.regs.freeBlock(block, n)
	return val{reg: dst, temp: true}
}

func (g *Generator) genTable(e *ast.TableExpr) val {
	dst := g.cur.regs.allocate()
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpNewTable, A: uint16(dst), B: bytecode.NoOperand, C: bytecode.NoOperand}, line(e))
	for _, f := range e.Fields {
		key := g.genExpr(f.Key)
		value := g.genExpr(f.Value)
		g.cur.emit(bytecode.Instruction{Op: bytecode.OpSetIndex, A: uint16(dst), B: uint16(key.reg), C: uint16(value.reg)}, line(e))
		g.free(key)
		g.free(value)
	}
	return val{reg: dst, temp: true}
}

func (g *Generator) genLambda(e *ast.LambdaExpr) val {
	protoIdx := g.genFuncBody(e.Params, e.Body.Body, "", e.Upvalues)
	dst := g.cur.regs.allocate()
	g.cur.emit(bytecode.Instruction{Op: bytecode.OpClosure, A: uint16(dst), B: uint16(protoIdx), C: bytecode.NoOperand}, line(e))
	return val{reg: dst, temp: true}
}
