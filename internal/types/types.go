// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package types implements via's semantic pass: identifier resolution
// (local / upvalue / global) and a lightweight, bottom-up type propagation
// over the AST produced by package parser. Unlike a statically-typed
// language, type annotations here are advisory — a mismatch is reported as
// a diagnosis but never prevents the rest of the pass from running, and an
// unannotated binding simply carries whatever type its initializer
// produced.
package types

import "strings"

// Kind is the fundamental shape of a value's type.
type Kind int

const (
	KindUnknown Kind = iota
	KindAny
	KindNil
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindTuple
	KindTable
	KindFunc
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindAny:     "any",
	KindNil:     "nil",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindArray:   "array",
	KindTuple:   "tuple",
	KindTable:   "table",
	KindFunc:    "fn",
}

// Type describes the propagated type of an expression or declaration.
type Type struct {
	Kind   Kind
	Elem   *Type   // element type, for Array
	Elems  []*Type // member types, for Tuple
	Params []*Type // parameter types, for Func
	Return *Type   // return type, for Func
}

func prim(k Kind) *Type { return &Type{Kind: k} }

var (
	Unknown = prim(KindUnknown)
	Any     = prim(KindAny)
	Nil     = prim(KindNil)
	Bool    = prim(KindBool)
	Int     = prim(KindInt)
	Float   = prim(KindFloat)
	String  = prim(KindString)
)

func (t *Type) String() string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind {
	case KindArray:
		return "[" + t.Elem.String() + "]"
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindFunc:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		ret := "any"
		if t.Return != nil {
			ret = t.Return.String()
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + ret
	default:
		return kindNames[t.Kind]
	}
}

// IsNumeric reports whether t is int or float.
func (t *Type) IsNumeric() bool {
	return t != nil && (t.Kind == KindInt || t.Kind == KindFloat)
}

// compatible reports whether a value of type got may be used where want is
// expected. any on either side always matches; otherwise the shallow kinds
// must agree (int/float annotations are not interchangeable — a float
// initializer does not satisfy a `: int` annotation, matching the lexer's
// refusal to treat "1" and "1.0" as the same literal kind).
func compatible(want, got *Type) bool {
	if want == nil || got == nil {
		return true
	}
	if want.Kind == KindAny || got.Kind == KindAny || got.Kind == KindUnknown {
		return true
	}
	return want.Kind == got.Kind
}

// fromPrimitiveName maps a primitive type-annotation name to its Type, or
// nil if name does not name a primitive (a user/generic type name resolves
// to Any until via grows a nominal-type registry).
func fromPrimitiveName(name string) *Type {
	switch name {
	case "int":
		return Int
	case "float":
		return Float
	case "bool":
		return Bool
	case "string":
		return String
	case "nil":
		return Nil
	case "any":
		return Any
	default:
		return nil
	}
}
