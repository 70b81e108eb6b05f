// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package bytecode defines via's instruction encoding and the on-disk
// binary program format. It knows nothing about the VM's runtime value
// representation: a Chunk's constant pool holds only the scalar/string
// kinds that are structurally hashable, exactly the kinds the language
// allows as literals.
package bytecode

import "fmt"

// Op is one instruction's opcode. Every instruction is a fixed 7-byte
// record: one opcode byte followed by three little-endian uint16 operands.
// An operand that an instruction does not use is encoded as 0xFFFF.
type Op byte

const (
	OpNop Op = iota

	OpMov    // a, b:      R[a] <- R[b] (copy; R[b] keeps its value)
	OpLoadK  // a, k:      R[a] <- const_pool[k]
	OpLoadNil
	OpLoadBool // a, 0|1

	OpAdd // a, b, c: R[a] <- R[b] + R[c]
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg // a, b:    R[a] <- -R[b]

	OpBAnd
	OpBOr
	OpBXor
	OpBNot // a, b: R[a] <- ^R[b]
	OpShl
	OpShr

	OpNot // a, b: R[a] <- !truthy(R[b])

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpConcat // a, b, c: R[a] <- tostring(R[b]) ++ tostring(R[c])

	OpJmp       // off (signed, biased +0x8000 into operand A)
	OpJmpIf     // a, off: jump if truthy(R[a])
	OpJmpIfNot  // a, off: jump if not truthy(R[a])

	OpCall     // calleeReg, argc, dst
	OpTailCall // calleeReg, argc, _
	OpRet      // a: return R[a]
	OpRetNil   // return nil

	OpClosure // dst, protoIdx: build a function object from FuncProtos[protoIdx]

	OpGetUp // a, idx
	OpSetUp // idx, a

	OpGetGlobal // a, idx
	OpSetGlobal // idx, a

	OpNewArray // dst, nelems (elements are the nelems registers below dst)
	OpNewTable // dst
	OpGetIndex // dst, obj, key
	OpSetIndex // obj, key, val

	opCount
)

var opNames = [...]string{
	OpNop: "nop", OpMov: "mov", OpLoadK: "loadk", OpLoadNil: "loadnil", OpLoadBool: "loadbool",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod", OpPow: "pow", OpNeg: "neg",
	OpBAnd: "band", OpBOr: "bor", OpBXor: "bxor", OpBNot: "bnot", OpShl: "shl", OpShr: "shr",
	OpNot: "not", OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
	OpConcat: "concat", OpJmp: "jmp", OpJmpIf: "jmpif", OpJmpIfNot: "jmpifnot",
	OpCall: "call", OpTailCall: "tailcall", OpRet: "ret", OpRetNil: "retnil",
	OpClosure: "closure", OpGetUp: "getup", OpSetUp: "setup",
	OpGetGlobal: "getglobal", OpSetGlobal: "setglobal",
	OpNewArray: "newarray", OpNewTable: "newtable", OpGetIndex: "getindex", OpSetIndex: "setindex",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// NoOperand marks an instruction operand slot the opcode does not use.
const NoOperand uint16 = 0xFFFF

// Instruction is one decoded 7-byte bytecode record.
type Instruction struct {
	Op   Op
	A, B, C uint16
}

func (in Instruction) String() string {
	return fmt.Sprintf("%-9s %d %d %d", in.Op, in.A, in.B, in.C)
}

// jumpBias centers a signed jump displacement inside the unsigned 16-bit A
// operand, so `jmp`'s own encoding never needs a dedicated signed field.
const jumpBias = 0x8000

// EncodeJumpOffset packs a signed instruction-count displacement for jmp*
// opcodes.
func EncodeJumpOffset(off int) uint16 { return uint16(off + jumpBias) }

// DecodeJumpOffset unpacks a displacement encoded by EncodeJumpOffset.
func DecodeJumpOffset(a uint16) int { return int(a) - jumpBias }
