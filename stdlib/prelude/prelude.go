// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package prelude wires every name types.PreludeNames promises onto a fresh
// *vm.VM: the six bare builtins (print, error, exit, type, typeof, assert)
// plus the three library tables (math, string, os). Order here is
// irrelevant at runtime — each name is bound by SetGlobal, not by
// position — but must cover exactly types.PreludeNames, since the checker
// resolved every unqualified reference to one of those names during the
// semantic pass.
package prelude

import (
	"fmt"
	"strings"

	"github.com/viascript/via/internal/vm"
	"github.com/viascript/via/stdlib/mathlib"
	"github.com/viascript/via/stdlib/oslib"
	"github.com/viascript/via/stdlib/strlib"
)

// Install binds the full prelude onto machine. argv is forwarded to the os
// table's "args" entry; pass nil outside a CLI context.
func Install(machine *vm.VM, argv []string) {
	strs := machine.Strings()

	machine.SetGlobal("print", vm.Native(&vm.NativeFunc{Name: "print", Fn: builtinPrint}))
	machine.SetGlobal("error", vm.Native(&vm.NativeFunc{Name: "error", Fn: builtinError}))
	machine.SetGlobal("exit", vm.Native(&vm.NativeFunc{Name: "exit", Fn: builtinExit}))
	machine.SetGlobal("type", vm.Native(&vm.NativeFunc{Name: "type", Fn: builtinType}))
	machine.SetGlobal("typeof", vm.Native(&vm.NativeFunc{Name: "typeof", Fn: builtinType}))
	machine.SetGlobal("assert", vm.Native(&vm.NativeFunc{Name: "assert", Fn: builtinAssert}))

	machine.SetGlobal("math", vm.Table(mathlib.New(strs)))
	machine.SetGlobal("string", vm.Table(strlib.New(strs)))
	machine.SetGlobal("os", vm.Table(oslib.New(strs, argv)))
}

func builtinPrint(machine *vm.VM, args []vm.Value) (vm.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.ToString()
	}
	line := strings.Join(parts, " ")
	if machine.Out != nil {
		machine.Out(line)
	} else {
		fmt.Println(line)
	}
	return vm.Nil, nil
}

// builtinError turns its argument into a Go error, which propagates through
// the dispatch loop exactly like any other VM fault (division by zero, a
// bad index, ...) since via has no try/catch construct for a handler frame
// to unwind to.
func builtinError(machine *vm.VM, args []vm.Value) (vm.Value, error) {
	msg := "error"
	if len(args) > 0 {
		msg = args[0].ToString()
	}
	return vm.Nil, fmt.Errorf("%s", msg)
}

func builtinExit(machine *vm.VM, args []vm.Value) (vm.Value, error) {
	code := 0
	if len(args) > 0 && args[0].Kind == vm.KindInt {
		code = int(args[0].I)
	}
	return vm.Nil, &vm.ExitError{Code: code}
}

func builtinType(machine *vm.VM, args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.Nil, vm.ErrArgCount
	}
	return vm.String(args[0].Kind.String(), machine.Strings()), nil
}

func builtinAssert(machine *vm.VM, args []vm.Value) (vm.Value, error) {
	if len(args) == 0 {
		return vm.Nil, vm.ErrArgCount
	}
	if args[0].Truthy() {
		return args[0], nil
	}
	msg := "assertion failed"
	if len(args) > 1 {
		msg = args[1].ToString()
	}
	return vm.Nil, fmt.Errorf("%s", msg)
}
