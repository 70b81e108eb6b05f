// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package vm executes a compiled *bytecode.Chunk. Values are tagged unions
// (see value.go); registers live on one growable stack shared by every
// frame, each frame owning a window into it starting at its base.
package vm

import (
	"errors"
	"fmt"

	"github.com/viascript/via/internal/bytecode"
)

// ---- Error sentinels -------------------------------------------------------

// ErrHalted is returned when Step is called on a VM that already finished.
var ErrHalted = errors.New("vm: already halted")

// ErrDivisionByZero is returned by integer div/mod when the divisor is zero.
var ErrDivisionByZero = errors.New("vm: division by zero")

// ErrInvalidOpcode is returned when the fetched instruction's Op is outside
// the known range — a codegen or binary-format bug, not a user error.
var ErrInvalidOpcode = errors.New("vm: invalid opcode")

// ErrStackOverflow is returned when the call stack exceeds maxCallDepth,
// via's stand-in for a recoverable runtime error rather than a Go panic.
var ErrStackOverflow = errors.New("vm: call stack overflow")

// ErrNotCallable is returned when OpCall's callee register does not hold a
// function or native value.
var ErrNotCallable = errors.New("vm: value is not callable")

// ErrArgCount is returned when a native function rejects its argument count.
var ErrArgCount = errors.New("vm: wrong number of arguments")

// ErrTypeMismatch is returned by an opcode whose operand types can't be
// reconciled at runtime (e.g. indexing a number).
var ErrTypeMismatch = errors.New("vm: type mismatch")

// ExitError is returned by Run when the running program calls the exit()
// prelude builtin. It is not a VM fault: the caller (typically cmd/via)
// unwraps it to get the requested process exit code instead of reporting a
// traceback.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("vm: exit(%d)", e.Code)
}

// maxCallDepth bounds recursion so a runaway script fails with ErrStackOverflow
// instead of exhausting the host process's own stack or memory.
const maxCallDepth = 4096

// frame is one activation record: the registers it owns are
// vm.regs[base:base+numLocals], and returning pops back to the caller's pc.
type frame struct {
	closure   *Closure // for the top-level frame, a closure over FuncProtos[0] ("main") with no upvalues
	pc        int
	base      int
	dstReg    int // caller's register to receive the return value
	openUpval []*Upvalue
}

// VM executes one compiled Chunk. A VM is single-use: construct a fresh one
// per Run.
type VM struct {
	chunk   *bytecode.Chunk
	strings *StringPool
	globals []Value
	regs    []Value
	frames  []frame
	halted  bool
	steps   uint64

	Out func(string) // print() sink; defaults to stdout if nil when Run starts
}

// New creates a VM ready to execute chunk, with one nil slot per entry of
// chunk.Globals; prelude natives (print, math.*, ...) are bound afterwards
// by name through SetGlobal before the program runs.
func New(chunk *bytecode.Chunk) *VM {
	return &VM{
		chunk:   chunk,
		strings: NewStringPool(),
		globals: make([]Value, len(chunk.Globals)),
		regs:    make([]Value, 0, 256),
	}
}

// Strings returns the VM's string interning pool, so callers (natives,
// compiler glue) constructing Values outside the dispatch loop can share it.
func (vm *VM) Strings() *StringPool { return vm.strings }

// SetGlobal installs v as the value of the global declared under name,
// used to bind prelude natives before Run starts.
func (vm *VM) SetGlobal(name string, v Value) {
	for i, g := range vm.chunk.Globals {
		if g.Name == name {
			vm.globals[i] = v
			return
		}
	}
}

// Steps returns the number of instructions executed so far.
func (vm *VM) Steps() uint64 { return vm.steps }

// Halted reports whether the top-level frame has returned.
func (vm *VM) Halted() bool { return vm.halted }

// FrameDepth reports the number of activation records currently on the
// call stack (1 for the top-level program, growing with every nested
// call), for debugger tooling.
func (vm *VM) FrameDepth() int { return len(vm.frames) }

// PC returns the current frame's next-instruction offset into the chunk's
// code array, or -1 once the VM has halted.
func (vm *VM) PC() int {
	if vm.halted || len(vm.frames) == 0 {
		return -1
	}
	return vm.frames[len(vm.frames)-1].pc
}

// Register reads register i of the currently active frame, for the
// debugger's `regs`/`printr` commands. Returns Nil for an out-of-window
// index rather than panicking, since a mistyped debugger command should
// report garbage, not crash the debugging session.
func (vm *VM) Register(i int) Value {
	if len(vm.frames) == 0 {
		return Nil
	}
	f := &vm.frames[len(vm.frames)-1]
	abs := f.base + i
	if abs < 0 || abs >= len(vm.regs) {
		return Nil
	}
	return vm.regs[abs]
}

// CallStack returns one descriptive line per active frame, outermost
// first, for the debugger's `callstack` command.
func (vm *VM) CallStack() []string {
	lines := make([]string, len(vm.frames))
	for i, f := range vm.frames {
		name := "main"
		if f.closure != nil && f.closure.Proto != nil {
			name = f.closure.Proto.Name
		}
		lines[i] = fmt.Sprintf("#%d %s (pc=%d)", i, name, f.pc)
	}
	return lines
}

// Upvalues returns the current frame's closed-over variables, for the
// debugger's `upvs` command. Empty for the top-level frame, which has no
// enclosing function to capture from.
func (vm *VM) Upvalues() []Value {
	if len(vm.frames) == 0 {
		return nil
	}
	f := &vm.frames[len(vm.frames)-1]
	if f.closure == nil {
		return nil
	}
	vals := make([]Value, len(f.closure.Upvalues))
	for i, uv := range f.closure.Upvalues {
		vals[i] = uv.Get()
	}
	return vals
}

// Exec runs a single decoded instruction against the active frame without
// advancing its pc, for the debugger's `exec OPCODE A B C` command. Useful
// to probe VM behavior interactively without recompiling a script.
func (vm *VM) Exec(op bytecode.Op, a, b, c uint16) error {
	if vm.halted || len(vm.frames) == 0 {
		return ErrHalted
	}
	f := &vm.frames[len(vm.frames)-1]
	return vm.execute(f, bytecode.Instruction{Op: op, A: a, B: b, C: c})
}

// Run executes the chunk's "main" FuncProto (index 0) to completion.
func (vm *VM) Run() error {
	if len(vm.chunk.FuncProtos) == 0 {
		return fmt.Errorf("vm: chunk has no function prototypes")
	}
	main := &vm.chunk.FuncProtos[0]
	vm.pushFrame(&Closure{Proto: main, ProtoIdx: 0}, 0, nil, main.NumLocals)
	for !vm.halted {
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction of the currently active frame.
func (vm *VM) Step() error {
	if vm.halted {
		return ErrHalted
	}
	if len(vm.frames) == 0 {
		// First Step of a VM driven by hand (the debugger): enter main.
		if len(vm.chunk.FuncProtos) == 0 {
			return fmt.Errorf("vm: chunk has no function prototypes")
		}
		main := &vm.chunk.FuncProtos[0]
		vm.pushFrame(&Closure{Proto: main, ProtoIdx: 0}, 0, nil, main.NumLocals)
	}
	f := &vm.frames[len(vm.frames)-1]
	if f.pc >= len(vm.chunk.Code) {
		return fmt.Errorf("vm: pc %d past end of code", f.pc)
	}
	in := vm.chunk.Code[f.pc]
	f.pc++
	vm.steps++
	return vm.execute(f, in)
}

func (vm *VM) reg(f *frame, idx uint16) Value   { return vm.regs[f.base+int(idx)] }
func (vm *VM) setReg(f *frame, idx uint16, v Value) { vm.regs[f.base+int(idx)] = v }

// pushFrame grows the register stack to fit the callee and pushes its
// activation record. args (already evaluated) are copied into the first
// len(args) registers; the rest start nil.
func (vm *VM) pushFrame(cl *Closure, dstReg int, args []Value, numLocals int) {
	base := len(vm.regs)
	n := numLocals
	if n < len(args) {
		n = len(args)
	}
	for i := 0; i < n; i++ {
		vm.regs = append(vm.regs, Nil)
	}
	copy(vm.regs[base:], args)
	vm.frames = append(vm.frames, frame{closure: cl, pc: cl.Proto.EntryPC, base: base, dstReg: dstReg})
}

// popFrame closes any upvalues this frame's locals still own open, then
// shrinks the register stack back to the frame's base.
func (vm *VM) popFrame() frame {
	f := vm.frames[len(vm.frames)-1]
	for _, uv := range f.openUpval {
		uv.Close()
	}
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.regs = vm.regs[:f.base]
	return f
}

func (vm *VM) execute(f *frame, in bytecode.Instruction) error {
	switch in.Op {

	case bytecode.OpNop:
		// nothing

	case bytecode.OpMov:
		vm.setReg(f, in.A, vm.reg(f, in.B))

	case bytecode.OpLoadK:
		vm.setReg(f, in.A, vm.constToValue(vm.chunk.Consts[in.B]))

	case bytecode.OpLoadNil:
		vm.setReg(f, in.A, Nil)

	case bytecode.OpLoadBool:
		vm.setReg(f, in.A, Bool(in.B != 0))

	case bytecode.OpAdd:
		return vm.arith(f, in, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
	case bytecode.OpSub:
		return vm.arith(f, in, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	case bytecode.OpMul:
		return vm.arith(f, in, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case bytecode.OpDiv:
		return vm.divmod(f, in, false)
	case bytecode.OpMod:
		return vm.divmod(f, in, true)
	case bytecode.OpPow:
		l, r := vm.reg(f, in.B), vm.reg(f, in.C)
		vm.setReg(f, in.A, Float(ipow(numOf(l), numOf(r))))

	case bytecode.OpNeg:
		v := vm.reg(f, in.B)
		if v.Kind == KindFloat {
			vm.setReg(f, in.A, Float(-v.F))
		} else {
			vm.setReg(f, in.A, Int(-v.I))
		}

	case bytecode.OpBAnd:
		vm.setReg(f, in.A, Int(vm.reg(f, in.B).I&vm.reg(f, in.C).I))
	case bytecode.OpBOr:
		vm.setReg(f, in.A, Int(vm.reg(f, in.B).I|vm.reg(f, in.C).I))
	case bytecode.OpBXor:
		vm.setReg(f, in.A, Int(vm.reg(f, in.B).I^vm.reg(f, in.C).I))
	case bytecode.OpBNot:
		vm.setReg(f, in.A, Int(^vm.reg(f, in.B).I))
	case bytecode.OpShl:
		vm.setReg(f, in.A, Int(vm.reg(f, in.B).I<<uint64(vm.reg(f, in.C).I)))
	case bytecode.OpShr:
		vm.setReg(f, in.A, Int(vm.reg(f, in.B).I>>uint64(vm.reg(f, in.C).I)))

	case bytecode.OpNot:
		vm.setReg(f, in.A, Bool(!vm.reg(f, in.B).Truthy()))

	case bytecode.OpEq:
		vm.setReg(f, in.A, Bool(vm.reg(f, in.B).Equals(vm.reg(f, in.C))))
	case bytecode.OpNe:
		vm.setReg(f, in.A, Bool(!vm.reg(f, in.B).Equals(vm.reg(f, in.C))))
	case bytecode.OpLt:
		return vm.compare(f, in, func(c int) bool { return c < 0 })
	case bytecode.OpLe:
		return vm.compare(f, in, func(c int) bool { return c <= 0 })
	case bytecode.OpGt:
		return vm.compare(f, in, func(c int) bool { return c > 0 })
	case bytecode.OpGe:
		return vm.compare(f, in, func(c int) bool { return c >= 0 })

	case bytecode.OpConcat:
		l := vm.reg(f, in.B).ToString()
		r := vm.reg(f, in.C).ToString()
		vm.setReg(f, in.A, String(l+r, vm.strings))

	case bytecode.OpJmp:
		f.pc += bytecode.DecodeJumpOffset(in.A)
	case bytecode.OpJmpIf:
		if vm.reg(f, in.A).Truthy() {
			f.pc += bytecode.DecodeJumpOffset(in.B)
		}
	case bytecode.OpJmpIfNot:
		if !vm.reg(f, in.A).Truthy() {
			f.pc += bytecode.DecodeJumpOffset(in.B)
		}

	case bytecode.OpCall:
		return vm.call(f, in)
	case bytecode.OpTailCall:
		return vm.call(f, in)

	case bytecode.OpRet:
		return vm.ret(vm.reg(f, in.A))
	case bytecode.OpRetNil:
		return vm.ret(Nil)

	case bytecode.OpClosure:
		vm.setReg(f, in.A, vm.makeClosure(f, int(in.B)))

	case bytecode.OpGetUp:
		vm.setReg(f, in.A, f.closure.Upvalues[in.B].Get())
	case bytecode.OpSetUp:
		f.closure.Upvalues[in.A].Set(vm.reg(f, in.B))

	case bytecode.OpGetGlobal:
		vm.setReg(f, in.A, vm.globals[in.B])
	case bytecode.OpSetGlobal:
		vm.globals[in.A] = vm.reg(f, in.B)

	case bytecode.OpNewArray:
		// The n elements sit in the registers immediately below dst (codegen's
		// contiguity contract for OpNewArray), addressed within this frame's
		// own window rather than the raw end of the shared register stack.
		n := int(in.B)
		dst := int(in.A)
		elems := make([]Value, n)
		copy(elems, vm.regs[f.base+dst-n:f.base+dst])
		vm.setReg(f, in.A, Array(NewArray(elems)))

	case bytecode.OpNewTable:
		vm.setReg(f, in.A, Table(NewTable()))

	case bytecode.OpGetIndex:
		return vm.getIndex(f, in)
	case bytecode.OpSetIndex:
		return vm.setIndex(f, in)

	default:
		return ErrInvalidOpcode
	}
	return nil
}

func (vm *VM) constToValue(c bytecode.Const) Value {
	switch c.Kind {
	case bytecode.ConstNil:
		return Nil
	case bytecode.ConstBool:
		return Bool(c.I != 0)
	case bytecode.ConstInt:
		return Int(c.I)
	case bytecode.ConstFloat:
		return Float(c.F)
	case bytecode.ConstString:
		return String(c.S, vm.strings)
	default:
		return Nil
	}
}

func numOf(v Value) float64 {
	if v.Kind == KindFloat {
		return v.F
	}
	return float64(v.I)
}

func ipow(a, b float64) float64 {
	result := 1.0
	neg := b < 0
	if neg {
		b = -b
	}
	for i := 0; i < int(b); i++ {
		result *= a
	}
	if neg {
		return 1 / result
	}
	return result
}

func (vm *VM) arith(f *frame, in bytecode.Instruction, iop func(a, b int64) int64, fop func(a, b float64) float64) error {
	l, r := vm.reg(f, in.B), vm.reg(f, in.C)
	if l.Kind == KindFloat || r.Kind == KindFloat {
		vm.setReg(f, in.A, Float(fop(numOf(l), numOf(r))))
		return nil
	}
	vm.setReg(f, in.A, Int(iop(l.I, r.I)))
	return nil
}

func (vm *VM) divmod(f *frame, in bytecode.Instruction, mod bool) error {
	l, r := vm.reg(f, in.B), vm.reg(f, in.C)
	if l.Kind == KindFloat || r.Kind == KindFloat {
		rf := numOf(r)
		if mod {
			lf := numOf(l)
			vm.setReg(f, in.A, Float(lf-rf*float64(int64(lf/rf))))
		} else {
			vm.setReg(f, in.A, Float(numOf(l)/rf))
		}
		return nil
	}
	if r.I == 0 {
		return ErrDivisionByZero
	}
	if mod {
		vm.setReg(f, in.A, Int(l.I%r.I))
	} else {
		vm.setReg(f, in.A, Int(l.I/r.I))
	}
	return nil
}

// compareValues returns -1/0/1 the way a total order over via's orderable
// kinds (int, float, string) would, panicking is never an option here: an
// incomparable pair is a semantic-pass gap, not reachable from checked code,
// so it simply falls back to 0.
func compareValues(l, r Value) int {
	if l.Kind == KindString && r.Kind == KindString {
		ls, rs := l.str(), r.str()
		switch {
		case ls < rs:
			return -1
		case ls > rs:
			return 1
		default:
			return 0
		}
	}
	lf, rf := numOf(l), numOf(r)
	switch {
	case lf < rf:
		return -1
	case lf > rf:
		return 1
	default:
		return 0
	}
}

func (vm *VM) compare(f *frame, in bytecode.Instruction, test func(int) bool) error {
	l, r := vm.reg(f, in.B), vm.reg(f, in.C)
	vm.setReg(f, in.A, Bool(test(compareValues(l, r))))
	return nil
}

func (vm *VM) getIndex(f *frame, in bytecode.Instruction) error {
	obj := vm.reg(f, in.B)
	if in.C == bytecode.NoOperand {
		switch obj.Kind {
		case KindArray:
			vm.setReg(f, in.A, Int(int64(obj.Obj.(*ArrayObj).Len())))
		case KindTable:
			vm.setReg(f, in.A, Int(int64(obj.Obj.(*TableObj).Len())))
		case KindString:
			vm.setReg(f, in.A, Int(int64(len(obj.str()))))
		default:
			return ErrTypeMismatch
		}
		return nil
	}
	key := vm.reg(f, in.C)
	switch obj.Kind {
	case KindArray:
		vm.setReg(f, in.A, obj.Obj.(*ArrayObj).Get(key.I))
	case KindTable:
		vm.setReg(f, in.A, obj.Obj.(*TableObj).Get(key))
	case KindString:
		s := obj.str()
		if key.I < 0 || key.I >= int64(len(s)) {
			vm.setReg(f, in.A, Nil)
		} else {
			vm.setReg(f, in.A, String(string(s[key.I]), vm.strings))
		}
	default:
		return ErrTypeMismatch
	}
	return nil
}

func (vm *VM) setIndex(f *frame, in bytecode.Instruction) error {
	obj := vm.reg(f, in.A)
	key := vm.reg(f, in.B)
	val := vm.reg(f, in.C)
	switch obj.Kind {
	case KindArray:
		obj.Obj.(*ArrayObj).Set(key.I, val)
	case KindTable:
		obj.Obj.(*TableObj).Set(key, val)
	default:
		return ErrTypeMismatch
	}
	return nil
}

// makeClosure builds a function value from FuncProtos[protoIdx], resolving
// each capture against the currently executing frame: FromLocal captures
// open (or reuse) an Upvalue onto f's live register window; forwarded
// captures just copy the pointer out of f's own closure.
func (vm *VM) makeClosure(f *frame, protoIdx int) Value {
	proto := &vm.chunk.FuncProtos[protoIdx]
	cl := &Closure{Proto: proto, ProtoIdx: protoIdx}
	if len(proto.Upvalues) == 0 {
		return Function(cl)
	}
	cl.Upvalues = make([]*Upvalue, len(proto.Upvalues))
	for i, desc := range proto.Upvalues {
		if desc.FromLocal {
			uv := vm.findOrOpenUpvalue(f, desc.Index)
			cl.Upvalues[i] = uv
		} else {
			cl.Upvalues[i] = f.closure.Upvalues[desc.Index]
		}
	}
	return Function(cl)
}

func (vm *VM) findOrOpenUpvalue(f *frame, localIdx int) *Upvalue {
	abs := f.base + localIdx
	for _, uv := range f.openUpval {
		if !uv.closed && uv.index == abs {
			return uv
		}
	}
	uv := &Upvalue{owner: vm, index: abs}
	f.openUpval = append(f.openUpval, uv)
	return uv
}

// call dispatches OpCall/OpTailCall. Arguments sit in the argc registers
// immediately above the callee register, per codegen's calling convention.
func (vm *VM) call(f *frame, in bytecode.Instruction) error {
	calleeReg := in.A
	argc := int(in.B)
	dstReg := int(in.C)
	callee := vm.reg(f, calleeReg)
	args := make([]Value, argc)
	for i := 0; i < argc; i++ {
		args[i] = vm.reg(f, calleeReg+1+uint16(i))
	}

	switch callee.Kind {
	case KindNative:
		nf := callee.Obj.(*NativeFunc)
		result, err := nf.Fn(vm, args)
		if err != nil {
			return err
		}
		vm.setReg(f, uint16(dstReg), result)
		return nil
	case KindFunction:
		if len(vm.frames) >= maxCallDepth {
			return ErrStackOverflow
		}
		cl := callee.Obj.(*Closure)
		vm.pushFrame(cl, dstReg, args, cl.Proto.NumLocals)
		return nil
	default:
		return ErrNotCallable
	}
}

// ret pops the current frame, storing v in the caller's destination
// register (or halting if this was the top-level frame).
func (vm *VM) ret(v Value) error {
	returned := vm.popFrame()
	if len(vm.frames) == 0 {
		vm.halted = true
		return nil
	}
	caller := &vm.frames[len(vm.frames)-1]
	vm.setReg(caller, uint16(returned.dstReg), v)
	return nil
}
