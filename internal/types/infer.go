// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package types

import "github.com/viascript/via/internal/ast"

func (c *Checker) checkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		c.checkVarDecl(s)
	case *ast.ScopeStmt:
		c.cur.pushBlock()
		c.checkBody(s.Body)
		c.cur.popBlock()
	case *ast.IfStmt:
		c.typeOf(s.Cond)
		c.checkScope(s.Then)
		for _, ei := range s.ElseIfs {
			c.typeOf(ei.Cond)
			c.checkScope(ei.Body)
		}
		if s.Else != nil {
			c.checkScope(s.Else)
		}
	case *ast.WhileStmt:
		c.typeOf(s.Cond)
		c.cur.loopDepth++
		c.checkScope(s.Body)
		c.cur.loopDepth--
	case *ast.ForRangeStmt:
		startT := c.typeOf(s.Start)
		c.typeOf(s.Stop)
		if s.Step != nil {
			c.typeOf(s.Step)
		}
		if !startT.IsNumeric() {
			c.bus.Warn(s.Token.Pos, len(s.Token.Lexeme), "for-range bound is not numeric")
		}
		c.cur.pushBlock()
		b := c.cur.declare(s.Var, Int, false)
		s.Slot = b.Slot
		c.cur.loopDepth++
		c.checkBody(s.Body.Body)
		c.cur.loopDepth--
		c.cur.popBlock()
	case *ast.ForEachStmt:
		c.typeOf(s.Iter)
		c.cur.pushBlock()
		b := c.cur.declare(s.Var, Any, false)
		s.Slot = b.Slot
		c.cur.loopDepth++
		c.checkBody(s.Body.Body)
		c.cur.loopDepth--
		c.cur.popBlock()
	case *ast.AssignStmt:
		c.checkAssign(s)
	case *ast.ExprStmt:
		c.typeOf(s.Expr)
	case *ast.FuncDecl:
		c.checkFuncDecl(s)
	case *ast.ReturnStmt:
		if s.Value != nil {
			c.typeOf(s.Value)
		}
	case *ast.BreakStmt:
		if c.cur.loopDepth == 0 {
			c.bus.Warn(s.Token.Pos, len(s.Token.Lexeme), "break outside of a loop")
		}
	case *ast.ContinueStmt:
		if c.cur.loopDepth == 0 {
			c.bus.Warn(s.Token.Pos, len(s.Token.Lexeme), "continue outside of a loop")
		}
	case *ast.EmptyStmt, *ast.ErrorStmt:
		// nothing to check: ErrorStmt already produced a parse diagnosis
	}
}

func (c *Checker) checkScope(s *ast.ScopeStmt) {
	c.cur.pushBlock()
	c.checkBody(s.Body)
	c.cur.popBlock()
}

func (c *Checker) checkBody(body []ast.Statement) {
	for _, st := range body {
		c.checkStatement(st)
	}
}

func (c *Checker) checkVarDecl(s *ast.VarDecl) {
	valType := c.typeOf(s.Value)
	declType := valType
	if s.Type != nil {
		declType = c.typeFromAnnotation(s.Type)
		if !compatible(declType, valType) {
			c.bus.Errf(s.Token.Pos, len(s.Name), "cannot assign value of type %s to %s declared as %s", valType, s.Name, declType)
		}
	}
	b := c.cur.declare(s.Name, declType, s.Const)
	s.Slot = b.Slot
}

func (c *Checker) checkAssign(s *ast.AssignStmt) {
	valType := c.typeOf(s.Value)
	switch target := s.Target.(type) {
	case *ast.SymbolExpr:
		c.resolve(target)
		if b := c.bindingOf(target); b != nil {
			if b.Const {
				c.bus.Errf(s.Token.Pos, len(s.Token.Lexeme), "cannot assign to const %q", target.Name)
			} else if !compatible(b.Type, valType) {
				c.bus.Warn(s.Token.Pos, len(s.Token.Lexeme), "assigning %s to %q which holds %s", valType, target.Name, b.Type)
			}
		}
	case *ast.SubscriptExpr:
		c.checkSubscriptable(target)
	}
}

func (c *Checker) checkFuncDecl(s *ast.FuncDecl) {
	fnType := c.funcTypeOf(s.Params, s.ReturnType)
	b := c.cur.declare(s.Name, fnType, true)
	s.Slot = b.Slot
	s.Upvalues = c.enterFunc(s.Params, fnType.Return, s.Body.Body)
}

// enterFunc pushes a new funcScope, declares params as locals, checks body,
// and restores the previous funcScope — shared between FuncDecl and
// LambdaExpr. It returns the capture list codegen needs to build the
// closure's upvalue list, in the exact index order upvalue references
// inside the body were assigned.
func (c *Checker) enterFunc(params []ast.Param, ret *Type, body []ast.Statement) []ast.UpvalueCapture {
	parent := c.cur
	c.cur = newFuncScope(parent)
	c.cur.returnType = ret
	for _, p := range params {
		pt := Any
		if p.Type != nil {
			pt = c.typeFromAnnotation(p.Type)
		}
		c.cur.declare(p.Name, pt, false)
	}
	c.checkBody(body)
	captures := make([]ast.UpvalueCapture, len(c.cur.upvalues))
	for i, u := range c.cur.upvalues {
		captures[i] = ast.UpvalueCapture{FromLocal: u.FromLocal, Index: u.Index}
	}
	c.cur = parent
	return captures
}

func (c *Checker) funcTypeOf(params []ast.Param, ret ast.TypeExpr) *Type {
	t := &Type{Kind: KindFunc}
	for _, p := range params {
		if p.Type != nil {
			t.Params = append(t.Params, c.typeFromAnnotation(p.Type))
		} else {
			t.Params = append(t.Params, Any)
		}
	}
	if ret != nil {
		t.Return = c.typeFromAnnotation(ret)
	}
	return t
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Checker) typeOf(expr ast.Expression) *Type {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return literalType(e)
	case *ast.SymbolExpr:
		return c.resolve(e)
	case *ast.UnaryExpr:
		return c.unaryType(e)
	case *ast.BinaryExpr:
		return c.binaryType(e)
	case *ast.GroupExpr:
		return c.typeOf(e.Inner)
	case *ast.CallExpr:
		return c.callType(e)
	case *ast.SubscriptExpr:
		return c.checkSubscriptable(e)
	case *ast.TupleExpr:
		t := &Type{Kind: KindTuple}
		for _, el := range e.Elems {
			t.Elems = append(t.Elems, c.typeOf(el))
		}
		return t
	case *ast.ArrayExpr:
		elem := Any
		for i, el := range e.Elems {
			et := c.typeOf(el)
			if i == 0 {
				elem = et
			} else if !compatible(elem, et) {
				elem = Any
			}
		}
		return &Type{Kind: KindArray, Elem: elem}
	case *ast.TableExpr:
		for _, f := range e.Fields {
			c.typeOf(f.Key)
			c.typeOf(f.Value)
		}
		return &Type{Kind: KindTable}
	case *ast.LambdaExpr:
		fnType := c.funcTypeOf(e.Params, e.ReturnType)
		e.Upvalues = c.enterFunc(e.Params, fnType.Return, e.Body.Body)
		return fnType
	case *ast.ErrorExpr:
		return Unknown
	default:
		return Unknown
	}
}

func literalType(e *ast.LiteralExpr) *Type {
	switch e.Value.(type) {
	case int64:
		return Int
	case float64:
		return Float
	case string:
		return String
	case bool:
		return Bool
	case nil:
		return Nil
	default:
		return Unknown
	}
}

func (c *Checker) unaryType(e *ast.UnaryExpr) *Type {
	operand := c.typeOf(e.Operand)
	switch e.Operator {
	case "-":
		if !operand.IsNumeric() {
			c.bus.Warn(e.Token.Pos, len(e.Token.Lexeme), "unary '-' on non-numeric operand of type %s", operand)
		}
		return operand
	case "~":
		if operand.Kind != KindInt {
			c.bus.Warn(e.Token.Pos, len(e.Token.Lexeme), "'~' expects an int operand, got %s", operand)
		}
		return Int
	default: // "!" or "not"
		return Bool
	}
}

func (c *Checker) binaryType(e *ast.BinaryExpr) *Type {
	left := c.typeOf(e.Left)
	right := c.typeOf(e.Right)
	switch e.Operator {
	case "+", "-", "*", "/", "%", "**":
		if !left.IsNumeric() || !right.IsNumeric() {
			c.bus.Warn(e.Token.Pos, len(e.Token.Lexeme), "arithmetic '%s' on non-numeric operands %s, %s", e.Operator, left, right)
			return Any
		}
		if left.Kind == KindFloat || right.Kind == KindFloat {
			return Float
		}
		return Int
	case "..":
		return String
	case "<", ">", "<=", ">=":
		if !left.IsNumeric() || !right.IsNumeric() {
			c.bus.Warn(e.Token.Pos, len(e.Token.Lexeme), "relational '%s' on non-numeric operands %s, %s", e.Operator, left, right)
		}
		return Bool
	case "==", "!=":
		return Bool
	case "&&", "||", "and", "or":
		return Bool
	case "&", "|", "^", "shl", "shr":
		return Int
	default:
		return Any
	}
}

func (c *Checker) callType(e *ast.CallExpr) *Type {
	calleeType := c.typeOf(e.Callee)
	for _, a := range e.Args {
		c.typeOf(a)
	}
	if calleeType.Kind != KindFunc && calleeType.Kind != KindAny && calleeType.Kind != KindUnknown {
		c.bus.Errf(e.Token.Pos, len(e.Token.Lexeme), "cannot call value of type %s", calleeType)
		return Any
	}
	if calleeType.Kind == KindFunc && calleeType.Return != nil {
		return calleeType.Return
	}
	return Any
}

func (c *Checker) checkSubscriptable(e *ast.SubscriptExpr) *Type {
	objType := c.typeOf(e.Object)
	c.typeOf(e.Index)
	switch objType.Kind {
	case KindArray:
		return objType.Elem
	case KindTable, KindString, KindAny, KindUnknown:
		return Any
	default:
		c.bus.Errf(e.Token.Pos, len(e.Token.Lexeme), "cannot index value of type %s", objType)
		return Any
	}
}

func (c *Checker) typeFromAnnotation(te ast.TypeExpr) *Type {
	switch t := te.(type) {
	case *ast.PrimitiveType:
		if pt := fromPrimitiveName(t.Name); pt != nil {
			return pt
		}
		return Any
	case *ast.ArrayTypeExpr:
		return &Type{Kind: KindArray, Elem: c.typeFromAnnotation(t.Elem)}
	case *ast.TupleTypeExpr:
		out := &Type{Kind: KindTuple}
		for _, el := range t.Elems {
			out.Elems = append(out.Elems, c.typeFromAnnotation(el))
		}
		return out
	case *ast.FuncTypeExpr:
		out := &Type{Kind: KindFunc}
		for _, p := range t.ParamTypes {
			out.Params = append(out.Params, c.typeFromAnnotation(p))
		}
		if t.ReturnType != nil {
			out.Return = c.typeFromAnnotation(t.ReturnType)
		}
		return out
	case *ast.NamedTypeExpr:
		return Any
	default:
		return Any
	}
}
