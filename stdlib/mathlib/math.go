// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package mathlib builds the "math" prelude table: a handful of scalar
// numeric natives bound under one via table value, the way via's register
// VM exposes every library namespace (there is no dotted member-access
// syntax, only table subscripting, so math.sqrt(x) is spelled
// math["sqrt"](x)).
package mathlib

import (
	gomath "math"

	"github.com/viascript/via/internal/vm"
)

// New builds a fresh math table bound to the given VM's string pool.
func New(strings *vm.StringPool) *vm.TableObj {
	t := vm.NewTable()
	set := func(name string, fn func(machine *vm.VM, args []vm.Value) (vm.Value, error)) {
		t.Set(vm.String(name, strings), vm.Native(&vm.NativeFunc{Name: "math." + name, Fn: fn}))
	}

	set("abs", unary(gomath.Abs))
	set("floor", unary(gomath.Floor))
	set("ceil", unary(gomath.Ceil))
	set("sqrt", unary(gomath.Sqrt))
	set("sin", unary(gomath.Sin))
	set("cos", unary(gomath.Cos))

	set("pow", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		if len(args) != 2 {
			return vm.Nil, vm.ErrArgCount
		}
		return vm.Float(gomath.Pow(numOf(args[0]), numOf(args[1]))), nil
	})
	set("min", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		return reduceNumeric(args, gomath.Min)
	})
	set("max", func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		return reduceNumeric(args, gomath.Max)
	})

	t.Set(vm.String("pi", strings), vm.Float(gomath.Pi))
	t.Set(vm.String("huge", strings), vm.Float(gomath.Inf(1)))
	return t
}

// unary wraps a float64->float64 Go function as a single-argument native
// that accepts either an int or a float argument.
func unary(fn func(float64) float64) func(*vm.VM, []vm.Value) (vm.Value, error) {
	return func(machine *vm.VM, args []vm.Value) (vm.Value, error) {
		if len(args) != 1 {
			return vm.Nil, vm.ErrArgCount
		}
		return vm.Float(fn(numOf(args[0]))), nil
	}
}

func numOf(v vm.Value) float64 {
	switch v.Kind {
	case vm.KindInt:
		return float64(v.I)
	case vm.KindFloat:
		return v.F
	default:
		return 0
	}
}

func reduceNumeric(args []vm.Value, pick func(a, b float64) float64) (vm.Value, error) {
	if len(args) == 0 {
		return vm.Nil, vm.ErrArgCount
	}
	best := numOf(args[0])
	for _, a := range args[1:] {
		best = pick(best, numOf(a))
	}
	return vm.Float(best), nil
}
