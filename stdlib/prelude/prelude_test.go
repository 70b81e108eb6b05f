// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package prelude

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viascript/via/internal/bytecode"
	"github.com/viascript/via/internal/vm"
)

func TestInstallWithEveryPreludeNameDoesNotPanic(t *testing.T) {
	chunk := &bytecode.Chunk{}
	for _, name := range []string{"print", "error", "exit", "type", "typeof", "assert", "math", "string", "os"} {
		chunk.AddGlobal(name)
	}
	machine := vm.New(chunk)
	assert.NotPanics(t, func() { Install(machine, []string{"arg0"}) })
}

func TestExitReturnsExitError(t *testing.T) {
	chunk := &bytecode.Chunk{}
	chunk.AddGlobal("exit")
	machine := vm.New(chunk)
	Install(machine, nil)

	_, err := builtinExit(machine, []vm.Value{vm.Int(7)})
	var exitErr *vm.ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 7, exitErr.Code)
}

func TestAssertFailureCarriesMessage(t *testing.T) {
	_, err := builtinAssert(nil, []vm.Value{vm.Bool(false), vm.String("boom", vm.NewStringPool())})
	assert.EqualError(t, err, "boom")
}

func TestTypeReportsKind(t *testing.T) {
	chunk := &bytecode.Chunk{}
	machine := vm.New(chunk)
	result, err := builtinType(machine, []vm.Value{vm.Int(1)})
	assert.NoError(t, err)
	assert.Equal(t, "int", result.Str())
}
