package vm

import (
	"fmt"
	"math"
)

// Opcodes
const (
	OpNop          = 0x00
	OpAconstNull   = 0x01
	OpBipush       = 0x10
	OpIldc         = 0x13
	OpAldc         = 0x14
	OpVload        = 0x15
	OpImload       = 0x2E
	OpAmload       = 0x2F
	OpCmload       = 0x34
	OpVstore       = 0x36
	OpImstore      = 0x4E
	OpAmstore      = 0x4F
	OpCmstore      = 0x55
	OpPop          = 0x57
	OpDup          = 0x59
	OpSwap         = 0x5F
	OpIadd         = 0x60
	OpAaddf        = 0x62
	OpAadds        = 0x63
	OpIsub         = 0x64
	OpImul         = 0x68
	OpIdiv         = 0x6C
	OpIrem         = 0x70
	OpIshl         = 0x78
	OpIshr         = 0x7A
	OpIand         = 0x7E
	OpIor          = 0x80
	OpIxor         = 0x82
	OpIfCmpeq      = 0x9F
	OpIfCmpne      = 0xA0
	OpIfIcmplt     = 0xA1
	OpIfIcmpge     = 0xA2
	OpIfIcmpgt     = 0xA3
	OpIfIcmple     = 0xA4
	OpGoto         = 0xA7
	OpReturn       = 0xB0
	OpInvokenative = 0xB7
	OpInvokestatic = 0xB8
	OpNew          = 0xBB
	OpNewarray     = 0xBC
	OpArraylength  = 0xBE
	OpAthrow       = 0xBF
	OpAssert       = 0xCF

	// Reserved for the C1 extension; not executed by this interpreter.
	OpAddrofStatic  = 0x16
	OpAddrofNative  = 0x17
	OpInvokedynamic = 0xB6
	OpChecktag      = 0xC0
	OpHastag        = 0xC1
	OpAddtag        = 0xC2
)

var opcodeNames = map[byte]string{
	OpNop:           "nop",
	OpAconstNull:    "aconst_null",
	OpBipush:        "bipush",
	OpIldc:          "ildc",
	OpAldc:          "aldc",
	OpVload:         "vload",
	OpImload:        "imload",
	OpAmload:        "amload",
	OpCmload:        "cmload",
	OpVstore:        "vstore",
	OpImstore:       "imstore",
	OpAmstore:       "amstore",
	OpCmstore:       "cmstore",
	OpPop:           "pop",
	OpDup:           "dup",
	OpSwap:          "swap",
	OpIadd:          "iadd",
	OpAaddf:         "aaddf",
	OpAadds:         "aadds",
	OpIsub:          "isub",
	OpImul:          "imul",
	OpIdiv:          "idiv",
	OpIrem:          "irem",
	OpIshl:          "ishl",
	OpIshr:          "ishr",
	OpIand:          "iand",
	OpIor:           "ior",
	OpIxor:          "ixor",
	OpIfCmpeq:       "if_cmpeq",
	OpIfCmpne:       "if_cmpne",
	OpIfIcmplt:      "if_icmplt",
	OpIfIcmpge:      "if_icmpge",
	OpIfIcmpgt:      "if_icmpgt",
	OpIfIcmple:      "if_icmple",
	OpGoto:          "goto",
	OpReturn:        "return",
	OpInvokenative:  "invokenative",
	OpInvokestatic:  "invokestatic",
	OpNew:           "new",
	OpNewarray:      "newarray",
	OpArraylength:   "arraylength",
	OpAthrow:        "athrow",
	OpAssert:        "assert",
	OpAddrofStatic:  "addrof_static",
	OpAddrofNative:  "addrof_native",
	OpInvokedynamic: "invokedynamic",
	OpChecktag:      "checktag",
	OpHastag:        "hastag",
	OpAddtag:        "addtag",
}

// OpcodeName returns the mnemonic for op, or a hex literal if op is not
// part of the instruction set.
func OpcodeName(op byte) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", op)
}

// executeInstruction executes a single bytecode instruction. frame.PC
// already points past the opcode byte.
// Returns (returnValue, hasReturn, error); hasReturn is only set by the
// outermost return.
func (vm *VM) executeInstruction(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpNop:
		// do nothing

	// --- Stack manipulation ---
	case OpPop:
		frame.Pop()

	case OpDup:
		v := frame.Pop()
		frame.Push(v)
		frame.Push(v)

	case OpSwap:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(v2)
		frame.Push(v1)

	// --- Constants ---
	case OpAconstNull:
		frame.Push(NullValue())

	case OpBipush:
		val := frame.ReadI8()
		frame.Push(IntValue(int32(val)))

	case OpIldc:
		index := frame.ReadU16()
		if int(index) >= len(vm.Program.IntPool) {
			return Value{}, false, NewFault(ArithmeticFault, "int pool index %d out of range (size %d)", index, len(vm.Program.IntPool))
		}
		frame.Push(IntValue(vm.Program.IntPool[index]))

	case OpAldc:
		index := frame.ReadU16()
		if int(index) >= len(vm.Program.StringPool) {
			return Value{}, false, NewFault(ArithmeticFault, "string pool index %d out of range (size %d)", index, len(vm.Program.StringPool))
		}
		frame.Push(PointerValue(vm.stringPool + Pointer(index)))

	// --- Local variables ---
	case OpVload:
		index := frame.ReadU8()
		frame.Push(frame.GetLocal(int(index)))

	case OpVstore:
		index := frame.ReadU8()
		frame.SetLocal(int(index), frame.Pop())

	// --- Arithmetic ---
	case OpIadd:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		frame.Push(IntValue(v1 + v2))

	case OpIsub:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		frame.Push(IntValue(v1 - v2))

	case OpImul:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		frame.Push(IntValue(v1 * v2))

	case OpIdiv:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		if err := checkDivision(v1, v2); err != nil {
			return Value{}, false, err
		}
		frame.Push(IntValue(v1 / v2))

	case OpIrem:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		if err := checkDivision(v1, v2); err != nil {
			return Value{}, false, err
		}
		frame.Push(IntValue(v1 % v2))

	// --- Bit operations ---
	case OpIand:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		frame.Push(IntValue(v1 & v2))

	case OpIor:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		frame.Push(IntValue(v1 | v2))

	case OpIxor:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		frame.Push(IntValue(v1 ^ v2))

	case OpIshl:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		if v2 < 0 || v2 >= 32 {
			return Value{}, false, NewFault(ArithmeticFault, "shift left by %d", v2)
		}
		frame.Push(IntValue(v1 << uint(v2)))

	case OpIshr:
		v2 := frame.PopInt()
		v1 := frame.PopInt()
		if v2 < 0 || v2 >= 32 {
			return Value{}, false, NewFault(ArithmeticFault, "shift right by %d", v2)
		}
		frame.Push(IntValue(v1 >> uint(v2)))

	// --- Comparison and branch ---
	case OpIfCmpeq:
		vm.executeBranchEqual(frame, true)
	case OpIfCmpne:
		vm.executeBranchEqual(frame, false)

	case OpIfIcmplt:
		vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 < v2 })
	case OpIfIcmpge:
		vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 >= v2 })
	case OpIfIcmpgt:
		vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 > v2 })
	case OpIfIcmple:
		vm.executeBranchBinary(frame, func(v1, v2 int32) bool { return v1 <= v2 })

	case OpGoto:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		frame.PC = branchPC + int(offset)

	// --- Errors ---
	case OpAthrow:
		msg, err := vm.Heap.LoadString(frame.PopPointer())
		if err != nil {
			return Value{}, false, err
		}
		return Value{}, false, NewFault(UserFault, "%s", msg)

	case OpAssert:
		msgPtr := frame.PopPointer()
		cond := frame.PopInt()
		if cond == 0 {
			msg, err := vm.Heap.LoadString(msgPtr)
			if err != nil {
				return Value{}, false, err
			}
			return Value{}, false, NewFault(AssertionFault, "%s", msg)
		}

	// --- Calls ---
	case OpReturn:
		return vm.executeReturn(frame)

	case OpInvokestatic:
		return Value{}, false, vm.executeInvokestatic(frame)

	case OpInvokenative:
		return Value{}, false, vm.executeInvokenative(frame)

	// --- Memory ---
	case OpNew:
		size := frame.ReadU8()
		p, err := vm.Heap.Alloc(int(size))
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(PointerValue(p))

	case OpAaddf:
		offset := frame.ReadU8()
		base := frame.PopPointer()
		if base == Null {
			return Value{}, false, NewFault(MemoryFault, "field access through null pointer")
		}
		frame.Push(PointerValue(base + Pointer(offset)))

	case OpImload:
		v, err := vm.Heap.LoadInt(frame.PopPointer())
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(IntValue(v))

	case OpImstore:
		v := frame.PopInt()
		if err := vm.Heap.StoreInt(frame.PopPointer(), v); err != nil {
			return Value{}, false, err
		}

	case OpAmload:
		p, err := vm.Heap.LoadPointer(frame.PopPointer())
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(PointerValue(p))

	case OpAmstore:
		v := frame.PopPointer()
		if err := vm.Heap.StorePointer(frame.PopPointer(), v); err != nil {
			return Value{}, false, err
		}

	case OpCmload:
		c, err := vm.Heap.LoadChar(frame.PopPointer())
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(IntValue(c))

	case OpCmstore:
		c := frame.PopInt() & 0x7f
		if err := vm.Heap.StoreChar(frame.PopPointer(), byte(c)); err != nil {
			return Value{}, false, err
		}

	// --- Arrays ---
	case OpNewarray:
		eltSize := frame.ReadU8()
		count := frame.PopInt()
		arr, err := vm.Heap.AllocArray(count, int(eltSize))
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(PointerValue(arr))

	case OpArraylength:
		n, err := vm.Heap.ArrayLength(frame.PopPointer())
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(IntValue(n))

	case OpAadds:
		index := frame.PopInt()
		arr := frame.PopPointer()
		p, err := vm.Heap.ArrayElement(arr, index)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(PointerValue(p))

	case OpAddrofStatic, OpAddrofNative, OpInvokedynamic, OpChecktag, OpHastag, OpAddtag:
		return Value{}, false, NewFault(InvalidOpcodeFault, "unsupported opcode: 0x%02x (%s)", opcode, OpcodeName(opcode))

	default:
		return Value{}, false, NewFault(InvalidOpcodeFault, "invalid opcode: 0x%02x", opcode)
	}

	return Value{}, false, nil
}

// checkDivision rejects the operands for which C0 division is undefined.
func checkDivision(dividend, divisor int32) error {
	if divisor == 0 {
		return NewFault(ArithmeticFault, "division by zero")
	}
	if dividend == math.MinInt32 && divisor == -1 {
		return NewFault(ArithmeticFault, "division overflow: %d / -1", dividend)
	}
	return nil
}

// executeBranchEqual handles if_cmpeq and if_cmpne, which compare ints by
// value and pointers by address.
func (vm *VM) executeBranchEqual(frame *Frame, want bool) {
	branchPC := frame.PC - 1 // PC of the branch instruction
	offset := frame.ReadI16()
	v2 := frame.Pop()
	v1 := frame.Pop()
	if v1.Equal(v2) == want {
		frame.PC = branchPC + int(offset)
	}
}

// executeBranchBinary handles the ordered integer comparisons.
func (vm *VM) executeBranchBinary(frame *Frame, cond func(int32, int32) bool) {
	branchPC := frame.PC - 1 // PC of the branch instruction
	offset := frame.ReadI16()
	v2 := frame.PopInt()
	v1 := frame.PopInt()
	if cond(v1, v2) {
		frame.PC = branchPC + int(offset)
	}
}
