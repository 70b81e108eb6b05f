// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package strlib builds the "string" prelude table.
package strlib

import (
	"strings"

	"github.com/viascript/via/internal/vm"
)

// New builds a fresh string table bound to the given VM's string pool.
func New(pool *vm.StringPool) *vm.TableObj {
	t := vm.NewTable()
	set := func(name string, fn func(machine *vm.VM, args []vm.Value) (vm.Value, error)) {
		t.Set(vm.String(name, pool), vm.Native(&vm.NativeFunc{Name: "string." + name, Fn: fn}))
	}

	set("len", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		s, err := str(args, 0)
		if err != nil {
			return vm.Nil, err
		}
		return vm.Int(int64(len(s))), nil
	})
	set("upper", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		s, err := str(args, 0)
		if err != nil {
			return vm.Nil, err
		}
		return vm.String(strings.ToUpper(s), machine.Strings()), nil
	})
	set("lower", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		s, err := str(args, 0)
		if err != nil {
			return vm.Nil, err
		}
		return vm.String(strings.ToLower(s), machine.Strings()), nil
	})
	set("sub", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		s, err := str(args, 0)
		if err != nil {
			return vm.Nil, err
		}
		if len(args) < 3 || args[1].Kind != vm.KindInt || args[2].Kind != vm.KindInt {
			return vm.Nil, vm.ErrArgCount
		}
		start, end := clampRange(args[1].I, args[2].I, len(s))
		return vm.String(s[start:end], machine.Strings()), nil
	})
	set("find", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		s, err := str(args, 0)
		if err != nil {
			return vm.Nil, err
		}
		needle, err := str(args, 1)
		if err != nil {
			return vm.Nil, err
		}
		return vm.Int(int64(strings.Index(s, needle))), nil
	})
	set("split", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		s, err := str(args, 0)
		if err != nil {
			return vm.Nil, err
		}
		sep, err := str(args, 1)
		if err != nil {
			return vm.Nil, err
		}
		parts := strings.Split(s, sep)
		elems := make([]vm.Value, len(parts))
		for i, p := range parts {
			elems[i] = vm.String(p, machine.Strings())
		}
		return vm.Array(vm.NewArray(elems)), nil
	})
	set("join", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		if len(args) != 2 || args[0].Kind != vm.KindArray {
			return vm.Nil, vm.ErrArgCount
		}
		sep, err := str(args, 1)
		if err != nil {
			return vm.Nil, err
		}
		arr := args[0].Obj.(*vm.ArrayObj)
		parts := make([]string, arr.Len())
		for i := range parts {
			parts[i] = arr.Get(int64(i)).ToString()
		}
		return vm.String(strings.Join(parts, sep), machine.Strings()), nil
	})

	return t
}

func str(args []vm.Value, i int) (string, error) {
	if i >= len(args) || args[i].Kind != vm.KindString {
		return "", vm.ErrTypeMismatch
	}
	return args[i].Str(), nil
}

// clampRange turns a via-level [start, end) byte range into valid Go slice
// bounds, clamping rather than erroring on an out-of-range index the way
// array indexing elsewhere in the VM treats an out-of-bounds read as nil
// instead of a fault.
func clampRange(start, end int64, n int) (int, int) {
	s, e := int(start), int(end)
	if s < 0 {
		s = 0
	}
	if e > n {
		e = n
	}
	if s > e {
		s = e
	}
	return s, e
}
