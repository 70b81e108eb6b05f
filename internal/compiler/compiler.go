// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package compiler is the thin seam between the front end (lexer, parser,
// semantic pass, codegen) and the VM. Its two entry points, Compile and
// Execute, are what cmd/via calls; neither holds state across calls, so two
// unrelated Compile calls never share so much as a diagnostics bus.
package compiler

import (
	"crypto/sha256"
	"fmt"

	"github.com/viascript/via/internal/bytecode"
	"github.com/viascript/via/internal/codegen"
	"github.com/viascript/via/internal/diag"
	"github.com/viascript/via/internal/lexer"
	"github.com/viascript/via/internal/parser"
	"github.com/viascript/via/internal/types"
	"github.com/viascript/via/internal/vm"
	"github.com/viascript/via/stdlib/prelude"
)

// Unit is one compiled translation unit: the linear chunk codegen produced
// plus enough bookkeeping to report diagnostics or re-serialize the chunk
// without re-running the front end.
type Unit struct {
	File   string
	Source string
	Chunk  *bytecode.Chunk
	Bus    *diag.Bus
	Hash   [32]byte
}

// OK reports whether source compiled with no diagnosed errors. A Unit with
// OK() == false still carries whatever partial Chunk codegen managed to
// produce; Execute refuses to run it.
func (u *Unit) OK() bool { return !u.Bus.HasErrors() }

// Compile runs the full front end over source: lex, parse, resolve/check,
// generate. Every pass shares one fresh diagnostics Bus; a failure in an
// earlier pass does not stop later passes from also reporting what they
// can; the overall result is just marked not OK if any of them did.
func Compile(file, source string) *Unit {
	bus := diag.New()
	l := lexer.New(file, source)
	prog := parser.Parse(l, bus)
	types.Check(prog, bus)
	chunk := codegen.Generate(prog, bus)
	return &Unit{
		File:   file,
		Source: source,
		Chunk:  chunk,
		Bus:    bus,
		Hash:   sha256.Sum256([]byte(source)),
	}
}

// ExitStatus is the outcome of Execute: a process exit code plus whatever
// runtime error produced it, if any (exit(0) with err == nil on a clean
// run).
type ExitStatus struct {
	Code int
	Err  error
}

// Execute runs a compiled Unit to completion on a fresh VM with the
// prelude installed, honoring exit() as a clean early return rather than a
// reported fault. print() is routed through out if non-nil, else stdout.
func Execute(u *Unit, argv []string, out func(string)) ExitStatus {
	if !u.OK() {
		return ExitStatus{Code: 1, Err: fmt.Errorf("compiler: %d diagnostic error(s)", countErrors(u.Bus))}
	}
	machine := vm.New(u.Chunk)
	machine.Out = out
	prelude.Install(machine, argv)

	err := machine.Run()
	if err == nil {
		return ExitStatus{Code: 0}
	}
	var exit *vm.ExitError
	if ok := asExitError(err, &exit); ok {
		return ExitStatus{Code: exit.Code}
	}
	return ExitStatus{Code: 1, Err: err}
}

func countErrors(bus *diag.Bus) int {
	n := 0
	for _, d := range bus.All() {
		if d.Severity == diag.Error {
			n++
		}
	}
	return n
}

// asExitError unwraps err looking for a *vm.ExitError, the way errors.As
// would; written out by hand since vm.ExitError has no wrapped cause to
// walk and a direct type assertion covers every path Execute can reach it
// from (natives return it directly, never wrapped by a further fmt.Errorf).
func asExitError(err error, target **vm.ExitError) bool {
	if e, ok := err.(*vm.ExitError); ok {
		*target = e
		return true
	}
	return false
}
