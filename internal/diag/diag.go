// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package diag accumulates and renders compiler diagnostics: one message per
// diagnosis, with severity, a source excerpt, a caret underline, and a
// (file, line, column) prefix. Diagnostics are batched per compile and
// emitted together after the failing pass, never raised as exceptions.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/viascript/via/internal/token"
)

// Severity ranks a diagnosis. Only Error fails compilation; Warning and Info
// are informational.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

var severityColor = map[Severity]*color.Color{
	Info:    color.New(color.FgCyan),
	Warning: color.New(color.FgYellow, color.Bold),
	Error:   color.New(color.FgRed, color.Bold),
}

// Diagnostic is a single info/warning/error record with a source span and
// message, emitted by any front-end pass.
type Diagnostic struct {
	Severity Severity
	Pos      token.Position
	Length   int // span length in bytes, for the caret underline; >=1
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos.String(), d.Severity, d.Message)
}

// Bus is the per-compile diagnostics accumulator. There is no global mutable
// compiler state: the CLI (or any other caller of compile()) creates a Bus
// and tears it down around each compile.
type Bus struct {
	diags []Diagnostic
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Add appends a diagnosis.
func (b *Bus) Add(d Diagnostic) {
	if d.Length < 1 {
		d.Length = 1
	}
	b.diags = append(b.diags, d)
}

// Info/Warn/Errf are convenience constructors mirroring the severities.
func (b *Bus) Info(pos token.Position, length int, format string, args ...interface{}) {
	b.Add(Diagnostic{Severity: Info, Pos: pos, Length: length, Message: fmt.Sprintf(format, args...)})
}

func (b *Bus) Warn(pos token.Position, length int, format string, args ...interface{}) {
	b.Add(Diagnostic{Severity: Warning, Pos: pos, Length: length, Message: fmt.Sprintf(format, args...)})
}

func (b *Bus) Errf(pos token.Position, length int, format string, args ...interface{}) {
	b.Add(Diagnostic{Severity: Error, Pos: pos, Length: length, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any accumulated diagnosis is at Error severity.
// Per the error-handling design, the presence of any parse or semantic error
// fails compilation even though lexing/parsing themselves never abort.
func (b *Bus) HasErrors() bool {
	for _, d := range b.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// All returns every accumulated diagnosis in insertion order.
func (b *Bus) All() []Diagnostic {
	return b.diags
}

// Clear drops all accumulated diagnoses.
func (b *Bus) Clear() {
	b.diags = nil
}

// Emit renders every accumulated diagnosis to w, given the original source
// text for excerpting. Colors are only applied when useColor is true; the
// CLI decides that by checking whether w is a terminal (isatty).
func (b *Bus) Emit(w io.Writer, source string, useColor bool) {
	lines := strings.Split(source, "\n")
	for _, d := range b.diags {
		emitOne(w, d, lines, useColor)
	}
}

func emitOne(w io.Writer, d Diagnostic, lines []string, useColor bool) {
	label := d.Severity.String()
	if useColor {
		label = severityColor[d.Severity].Sprint(label)
	}
	fmt.Fprintf(w, "%s: %s: %s\n", d.Pos, label, d.Message)

	lineIdx := d.Pos.Line - 1
	if lineIdx < 0 || lineIdx >= len(lines) {
		return
	}
	srcLine := lines[lineIdx]
	fmt.Fprintf(w, "  %s\n", srcLine)

	col := d.Pos.Column - 1
	if col < 0 {
		col = 0
	}
	length := d.Length
	if col+length > len(srcLine) {
		length = len(srcLine) - col
		if length < 1 {
			length = 1
		}
	}
	underline := strings.Repeat(" ", col) + strings.Repeat("^", length)
	if useColor {
		underline = severityColor[d.Severity].Sprint(underline)
	}
	fmt.Fprintf(w, "  %s\n", underline)
}
