package vm

import "fmt"

// Pointer is an address in the VM heap. Null is address 0.
type Pointer uint64

// Null is the null pointer.
const Null Pointer = 0

// ValueType represents the type of a Value on the stack or in local variables.
type ValueType uint8

const (
	TypeInt ValueType = iota
	TypePointer
)

func (t ValueType) String() string {
	if t == TypePointer {
		return "pointer"
	}
	return "int"
}

// Value is a tagged cell holding either a 32-bit integer or a heap
// pointer. Values are immutable and copied by value.
type Value struct {
	typ ValueType
	i   int32
	p   Pointer
}

// IntValue creates an integer Value.
func IntValue(v int32) Value {
	return Value{typ: TypeInt, i: v}
}

// PointerValue creates a pointer Value.
func PointerValue(p Pointer) Value {
	return Value{typ: TypePointer, p: p}
}

// NullValue creates a null pointer Value.
func NullValue() Value {
	return Value{typ: TypePointer}
}

// BoolValue encodes a C0 bool as 0 or 1.
func BoolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

// Type returns the tag of the cell.
func (v Value) Type() ValueType { return v.typ }

// AsInt returns the integer payload. Reading a pointer cell as an integer
// is an internal fault.
func (v Value) AsInt() int32 {
	if v.typ != TypeInt {
		raise(InternalFault, "expected int, found %s", v)
	}
	return v.i
}

// AsPointer returns the pointer payload. Reading an integer cell as a
// pointer is an internal fault.
func (v Value) AsPointer() Pointer {
	if v.typ != TypePointer {
		raise(InternalFault, "expected pointer, found %s", v)
	}
	return v.p
}

// Equal compares two cells: integers by value, pointers by address.
// Cells of different types are never equal.
func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) String() string {
	if v.typ == TypePointer {
		if v.p == Null {
			return "NULL"
		}
		return fmt.Sprintf("0x%x", uint64(v.p))
	}
	return fmt.Sprintf("%d", v.i)
}
