// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"github.com/viascript/via/internal/bytecode"
)

// StringObj is an interned string. Two via strings with identical contents
// interned in the same pool share the same StringObj. Equals and table-key
// lookups still compare string contents, so strings from different pools
// compare equal too.
type StringObj struct {
	Str  string
	hash uint32
}

// StringPool interns string contents. FNV-1a gives a cheap fingerprint for
// the hash field; dedup itself still goes through the pool's map so a
// collision cannot intern two different strings under the same object.
type StringPool struct {
	table map[string]*StringObj
}

func NewStringPool() *StringPool {
	return &StringPool{table: make(map[string]*StringObj)}
}

func (p *StringPool) Intern(s string) *StringObj {
	if obj, ok := p.table[s]; ok {
		return obj
	}
	obj := &StringObj{Str: s, hash: fnv1a(s)}
	p.table[s] = obj
	return obj
}

func fnv1a(s string) uint32 {
	const offset = 2166136261
	const prime = 16777619
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// ArrayObj is a growable, zero-indexed sequence of Values. Capacity doubles
// from an initial 64 once it fills, rather than growing by one slot per
// append, to keep push-heavy loops from constantly reallocating.
type ArrayObj struct {
	elems []Value
}

func NewArray(initial []Value) *ArrayObj {
	a := &ArrayObj{}
	if len(initial) == 0 {
		return a
	}
	a.elems = make([]Value, len(initial))
	copy(a.elems, initial)
	return a
}

func (a *ArrayObj) Len() int { return len(a.elems) }

func (a *ArrayObj) Get(i int64) Value {
	if i < 0 || i >= int64(len(a.elems)) {
		return Nil
	}
	return a.elems[i]
}

func (a *ArrayObj) Set(i int64, v Value) bool {
	if i < 0 {
		return false
	}
	if i >= int64(len(a.elems)) {
		a.grow(int(i) + 1)
	}
	a.elems[i] = v
	return true
}

func (a *ArrayObj) Push(v Value) {
	a.grow(len(a.elems) + 1)
	a.elems[len(a.elems)-1] = v
}

func (a *ArrayObj) grow(n int) {
	if cap(a.elems) >= n {
		a.elems = a.elems[:n]
		return
	}
	newCap := 64
	if cap(a.elems) > 0 {
		newCap = cap(a.elems) * 2
	}
	for newCap < n {
		newCap *= 2
	}
	grown := make([]Value, n, newCap)
	copy(grown, a.elems)
	a.elems = grown
}

// TableObj is a hash map keyed by Value.key(), with a cached length so
// `#table`-style length queries do not have to walk the whole map. The
// cache is invalidated lazily: Set marks it dirty whenever a key transitions
// between present/absent, and Len recomputes only when dirty.
type TableObj struct {
	m        map[interface{}]tableEntry
	lenCache int
	dirty    bool
}

type tableEntry struct {
	key Value
	val Value
}

func NewTable() *TableObj {
	return &TableObj{m: make(map[interface{}]tableEntry)}
}

func (t *TableObj) Get(key Value) Value {
	if e, ok := t.m[key.key()]; ok {
		return e.val
	}
	return Nil
}

func (t *TableObj) Set(key, val Value) {
	k := key.key()
	_, existed := t.m[k]
	if val.Kind == KindNil {
		if existed {
			delete(t.m, k)
			t.dirty = true
		}
		return
	}
	t.m[k] = tableEntry{key: key, val: val}
	if !existed {
		t.dirty = true
	}
}

func (t *TableObj) Len() int {
	if t.dirty {
		t.lenCache = len(t.m)
		t.dirty = false
	}
	return t.lenCache
}

// Closure is a function value: its compiled prototype plus the upvalues it
// captured at construction time.
type Closure struct {
	Proto    *bytecode.FuncProto
	ProtoIdx int
	Upvalues []*Upvalue
}

// Upvalue is one variable a closure closes over. While open it addresses
// its owning frame's register by absolute index into the VM's shared
// register stack rather than by Go pointer, since that stack's backing
// array is reallocated by append as deeper calls grow it — a pointer taken
// before such a reallocation would silently start reading stale memory.
// Close copies the live value out into stored once the owning frame
// returns and its register window is no longer valid.
type Upvalue struct {
	closed bool
	owner  *VM
	index  int
	stored Value
}

func (u *Upvalue) Close() {
	if u.closed {
		return
	}
	u.stored = u.owner.regs[u.index]
	u.closed = true
}

func (u *Upvalue) Get() Value {
	if u.closed {
		return u.stored
	}
	return u.owner.regs[u.index]
}

func (u *Upvalue) Set(v Value) {
	if u.closed {
		u.stored = v
		return
	}
	u.owner.regs[u.index] = v
}

// NativeFunc is a builtin implemented in Go and exposed as a callable via
// value, used by the prelude (print, type, math.*, string.*, ...).
type NativeFunc struct {
	Name string
	Fn   func(vm *VM, args []Value) (Value, error)
}
