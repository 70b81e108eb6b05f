// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "fmt"

// Kind tags one Value's runtime representation.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindTable
	KindFunction
	KindNative
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindTable:
		return "table"
	case KindFunction, KindNative:
		return "function"
	default:
		return "unknown"
	}
}

// Value is via's tagged runtime value. Scalars (nil, bool, int, float) are
// held inline; the aggregate kinds (string, array, table, function) carry a
// pointer to a heap object. Assigning a Value between registers copies this
// struct, which for aggregates copies the pointer, not the underlying
// object — two registers holding the same array alias the same backing
// store until one of them is reassigned to a fresh object, exactly as a
// dynamically typed language's "everything is a reference" semantics work.
type Value struct {
	Kind Kind
	B    bool
	I    int64
	F    float64
	S    *StringObj
	Obj  interface{} // *ArrayObj, *TableObj, *Closure, or *NativeFunc
}

var Nil = Value{Kind: KindNil}

func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }
func Int(i int64) Value { return Value{Kind: KindInt, I: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }

func String(s string, pool *StringPool) Value {
	return Value{Kind: KindString, S: pool.Intern(s)}
}

func Array(a *ArrayObj) Value { return Value{Kind: KindArray, Obj: a} }
func Table(t *TableObj) Value { return Value{Kind: KindTable, Obj: t} }
func Function(c *Closure) Value { return Value{Kind: KindFunction, Obj: c} }
func Native(n *NativeFunc) Value { return Value{Kind: KindNative, Obj: n} }

// Truthy implements via's truthiness rule: nil and false are falsy,
// everything else — including 0, 0.0, and "" — is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.B
	default:
		return true
	}
}

func (v Value) str() string {
	if v.S == nil {
		return ""
	}
	return v.S.Str
}

// Str returns v's underlying Go string. Only meaningful for KindString
// values; natives that accept a string argument check Kind first.
func (v Value) Str() string { return v.str() }

// key returns a Go-comparable representation of v suitable for use as a
// map key, so TableObj can use a plain Go map instead of hand-rolled
// hashing/bucketing. Aggregate kinds key by pointer identity.
func (v Value) key() interface{} {
	switch v.Kind {
	case KindNil:
		return nil
	case KindBool:
		return v.B
	case KindInt:
		return v.I
	case KindFloat:
		return v.F
	case KindString:
		return v.str()
	default:
		return v.Obj
	}
}

// Equals implements via's `==`: scalars compare by value, aggregates by
// identity (two distinct arrays with the same contents are not equal).
func (v Value) Equals(o Value) bool {
	if v.Kind != o.Kind {
		// No int/float promotion here: the arithmetic opcodes promote a
		// mixed pair to float, but `==` compares the raw runtime kinds, so
		// 1 == 1.0 is false.
		return false
	}
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return v.B == o.B
	case KindInt:
		return v.I == o.I
	case KindFloat:
		return v.F == o.F
	case KindString:
		return v.str() == o.str()
	default:
		return v.Obj == o.Obj
	}
}

// ToString renders v the way print() and string concatenation do.
func (v Value) ToString() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.I)
	case KindFloat:
		return fmt.Sprintf("%g", v.F)
	case KindString:
		return v.str()
	case KindArray:
		return fmt.Sprintf("array(%d)", v.Obj.(*ArrayObj).Len())
	case KindTable:
		return fmt.Sprintf("table(%d)", len(v.Obj.(*TableObj).m))
	case KindFunction, KindNative:
		return "function"
	default:
		return "?"
	}
}
