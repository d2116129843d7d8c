package vm

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/daimatz/goc0vm/pkg/bc0"
)

// NativeFunc is a host function reachable through invokenative. It
// receives its arguments in call order and returns exactly one value.
type NativeFunc func(heap *Heap, args []Value) (Value, error)

// VM is the virtual machine that executes C0 bytecode.
type VM struct {
	Program *bc0.Program
	Natives []NativeFunc
	Heap    *Heap
	// MaxCallDepth bounds the number of suspended callers. 0 means
	// unlimited.
	MaxCallDepth int

	log        commonlog.Logger
	runID      string
	stringPool Pointer
	frame      *Frame
	calls      CallStack
	opcodePC   int
}

// NewVM creates a VM for prog. The string pool is mapped into the heap
// so that aldc can push real addresses.
func NewVM(prog *bc0.Program, natives []NativeFunc) *VM {
	vm := &VM{
		Program: prog,
		Natives: natives,
		Heap:    NewHeap(),
		log:     commonlog.GetLogger("c0vm.vm"),
	}
	vm.stringPool = vm.Heap.MapReadOnly(prog.StringPool)
	return vm
}

// Execute runs function 0 to completion and returns the value of its
// outermost return. Any fault stops execution and is returned as a
// *Fault.
func (vm *VM) Execute() (result int32, err error) {
	main := vm.Program.Main()
	if main == nil {
		return 0, fmt.Errorf("main function not found")
	}

	runID := uuid.New().String()
	vm.runID = runID
	vm.log.Infof("run %s: executing %d functions, %d natives", runID, len(vm.Program.Functions), len(vm.Program.Natives))

	vm.frame = NewFrame(main, 0)
	vm.calls = CallStack{}

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			err = f
		}
		if err != nil {
			var f *Fault
			if errors.As(err, &f) && f.PC < 0 && vm.frame != nil {
				f.Func = vm.frame.Func
				f.PC = vm.opcodePC
			}
			vm.log.Errorf("run %s: %v", runID, err)
			return
		}
		vm.log.Infof("run %s: returned %d, heap used %d bytes", runID, result, vm.Heap.Used())
	}()

	for {
		frame := vm.frame
		if frame.PC < 0 || frame.PC >= len(frame.Code) {
			return 0, NewFault(InternalFault, "pc %d outside function %d (length %d)", frame.PC, frame.Func, len(frame.Code))
		}
		vm.opcodePC = frame.PC
		opcode := frame.Code[frame.PC]
		frame.PC++

		retVal, hasReturn, err := vm.executeInstruction(frame, opcode)
		if err != nil {
			return 0, err
		}
		if hasReturn {
			return retVal.AsInt(), nil
		}
	}
}

// RunID identifies the most recent Execute call in log output. It is
// empty before the first run.
func (vm *VM) RunID() string {
	return vm.runID
}

// executeReturn pops the return value, releases the current activation
// and resumes the caller, if any.
func (vm *VM) executeReturn(frame *Frame) (Value, bool, error) {
	retVal := frame.Pop()
	if !frame.Stack.Empty() {
		return Value{}, false, NewFault(InternalFault, "operand stack not empty on return (%d values left)", frame.Stack.Len())
	}
	frame.release()

	if vm.calls.Empty() {
		vm.frame = nil
		return retVal, true, nil
	}

	caller := vm.calls.Pop()
	if vm.log.AllowLevel(commonlog.Debug) {
		vm.log.Debugf("return %s from function %d to function %d at pc %d", retVal, frame.Func, caller.Func, caller.PC)
	}
	caller.Push(retVal)
	vm.frame = caller
	return Value{}, false, nil
}

// executeInvokestatic suspends the caller and installs a fresh
// activation for the callee. The last pushed argument lands in the
// highest argument slot.
func (vm *VM) executeInvokestatic(frame *Frame) error {
	index := frame.ReadU16()
	if int(index) >= len(vm.Program.Functions) {
		return NewFault(InternalFault, "function index %d out of range", index)
	}
	if vm.MaxCallDepth > 0 && vm.calls.Depth() >= vm.MaxCallDepth {
		return NewFault(InternalFault, "call depth exceeded %d", vm.MaxCallDepth)
	}
	fn := &vm.Program.Functions[index]

	// frame.PC already points at the instruction after the call.
	vm.calls.Push(frame)

	callee := NewFrame(fn, int(index))
	for i := int(fn.NumArgs) - 1; i >= 0; i-- {
		callee.SetLocal(i, frame.Pop())
	}
	if vm.log.AllowLevel(commonlog.Debug) {
		vm.log.Debugf("call function %d with %d args (depth %d)", index, fn.NumArgs, vm.calls.Depth())
	}
	vm.frame = callee
	return nil
}

// executeInvokenative marshals arguments into a fresh buffer and calls
// the host function selected by the native pool entry.
func (vm *VM) executeInvokenative(frame *Frame) error {
	index := frame.ReadU16()
	if int(index) >= len(vm.Program.Natives) {
		return NewFault(InternalFault, "native index %d out of range", index)
	}
	info := vm.Program.Natives[index]

	args := make([]Value, info.NumArgs)
	for i := int(info.NumArgs) - 1; i >= 0; i-- {
		args[i] = frame.Pop()
	}

	tableIndex := int(info.FunctionTableIndex)
	if tableIndex >= len(vm.Natives) || vm.Natives[tableIndex] == nil {
		return NewFault(InternalFault, "native function %d not available", tableIndex)
	}
	result, err := vm.Natives[tableIndex](vm.Heap, args)
	if err != nil {
		var f *Fault
		if errors.As(err, &f) {
			return f
		}
		return NewFault(UserFault, "native function %d: %v", tableIndex, err)
	}
	frame.Push(result)
	return nil
}
