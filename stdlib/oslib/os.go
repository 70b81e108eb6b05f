// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package oslib builds the "os" prelude table: the narrow slice of host
// environment access via scripts get (wall clock, process args, env
// lookup). There is no file or network I/O here; a script that needs that
// reaches the host through whatever embeds the VM, not through this table.
package oslib

import (
	"os"
	"time"

	"github.com/viascript/via/internal/vm"
)

// New builds a fresh os table bound to the given VM's string pool. args is
// the program's own argv, exposed read-only as an array under "args".
func New(pool *vm.StringPool, args []string) *vm.TableObj {
	t := vm.NewTable()
	set := func(name string, fn func(machine *vm.VM, args []vm.Value) (vm.Value, error)) {
		t.Set(vm.String(name, pool), vm.Native(&vm.NativeFunc{Name: "os." + name, Fn: fn}))
	}

	set("time", func(machine *vm.VM, a []vm.Value) (vm.Value, error) {
		return vm.Int(time.Now().Unix()), nil
	})
	set("clock", func(machine *vm.VM, a []vm.Value) (vm.Value, error) {
		return vm.Float(float64(time.Now().UnixNano()) / 1e9), nil
	})
	set("getenv", func(machine *vm.VM, a []vm.Value) (vm.Value, error) {
		if len(a) != 1 || a[0].Kind != vm.KindString {
			return vm.Nil, vm.ErrArgCount
		}
		v, ok := os.LookupEnv(a[0].Str())
		if !ok {
			return vm.Nil, nil
		}
		return vm.String(v, machine.Strings()), nil
	})

	argVals := make([]vm.Value, len(args))
	for i, a := range args {
		argVals[i] = vm.String(a, pool)
	}
	t.Set(vm.String("args", pool), vm.Array(vm.NewArray(argVals)))
	return t
}
