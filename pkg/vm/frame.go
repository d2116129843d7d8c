package vm

import (
	"github.com/daimatz/goc0vm/pkg/bc0"
)

// Frame is the activation record of one function invocation.
type Frame struct {
	Stack  *OperandStack
	Locals []Value
	Code   []byte
	PC     int
	// Func is the function pool index, kept for diagnostics.
	Func int
}

// NewFrame creates an activation for fn with an empty operand stack and
// numVars uninitialized locals.
func NewFrame(fn *bc0.Function, index int) *Frame {
	return &Frame{
		Stack:  NewOperandStack(),
		Locals: make([]Value, fn.NumVars),
		Code:   fn.Code,
		PC:     0,
		Func:   index,
	}
}

// release drops the activation's stack and locals. The code buffer belongs
// to the program and is left alone.
func (f *Frame) release() {
	f.Stack = nil
	f.Locals = nil
}

// Push pushes a value onto the operand stack.
func (f *Frame) Push(v Value) {
	f.Stack.Push(v)
}

// Pop pops a value from the operand stack.
func (f *Frame) Pop() Value {
	return f.Stack.Pop()
}

// PopInt pops an integer from the operand stack.
func (f *Frame) PopInt() int32 {
	return f.Stack.Pop().AsInt()
}

// PopPointer pops a pointer from the operand stack.
func (f *Frame) PopPointer() Pointer {
	return f.Stack.Pop().AsPointer()
}

// GetLocal returns the value at the given local variable index.
func (f *Frame) GetLocal(index int) Value {
	if index >= len(f.Locals) {
		raise(InternalFault, "local variable index out of range: index=%d, max=%d", index, len(f.Locals))
	}
	return f.Locals[index]
}

// SetLocal sets the value at the given local variable index.
func (f *Frame) SetLocal(index int, v Value) {
	if index >= len(f.Locals) {
		raise(InternalFault, "local variable index out of range: index=%d, max=%d", index, len(f.Locals))
	}
	f.Locals[index] = v
}

func (f *Frame) need(n int) {
	if f.PC+n > len(f.Code) {
		raise(InternalFault, "truncated instruction at pc %d", f.PC)
	}
}

// ReadU8 reads a uint8 operand and advances PC.
func (f *Frame) ReadU8() uint8 {
	f.need(1)
	val := f.Code[f.PC]
	f.PC++
	return val
}

// ReadI8 reads an int8 operand and advances PC.
func (f *Frame) ReadI8() int8 {
	return int8(f.ReadU8())
}

// ReadU16 reads a uint16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadU16() uint16 {
	f.need(2)
	val := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return val
}

// ReadI16 reads an int16 operand (big-endian) and advances PC by 2.
func (f *Frame) ReadI16() int16 {
	return int16(f.ReadU16())
}
