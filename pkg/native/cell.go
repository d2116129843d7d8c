package native

import (
	"github.com/daimatz/goc0vm/pkg/vm"
)

// contract reports a violated native precondition.
func contract(name, format string, args ...any) error {
	return vm.NewFault(vm.UserFault, name+": "+format, args...)
}

// loadString reads a C0 string argument. NULL is the empty string.
func loadString(heap *vm.Heap, v vm.Value) (string, error) {
	p := v.AsPointer()
	if p == vm.Null {
		return "", nil
	}
	return heap.LoadString(p)
}

// newString copies s into the heap.
func newString(heap *vm.Heap, s string) (vm.Value, error) {
	p, err := heap.AllocString(s)
	if err != nil {
		return vm.Value{}, err
	}
	return vm.PointerValue(p), nil
}

// boxInt allocates an int cell holding v.
func boxInt(heap *vm.Heap, v int32) (vm.Value, error) {
	p, err := heap.Alloc(vm.IntSize)
	if err != nil {
		return vm.Value{}, err
	}
	if err := heap.StoreInt(p, v); err != nil {
		return vm.Value{}, err
	}
	return vm.PointerValue(p), nil
}

// boxBool allocates a bool cell holding b. Bools occupy one byte in
// memory, like chars.
func boxBool(heap *vm.Heap, b bool) (vm.Value, error) {
	p, err := heap.Alloc(vm.CharSize)
	if err != nil {
		return vm.Value{}, err
	}
	if b {
		if err := heap.StoreChar(p, 1); err != nil {
			return vm.Value{}, err
		}
	}
	return vm.PointerValue(p), nil
}

// arrayLength is \length(A) where a NULL array is empty.
func arrayLength(heap *vm.Heap, arr vm.Pointer) (int32, error) {
	if arr == vm.Null {
		return 0, nil
	}
	return heap.ArrayLength(arr)
}

func newIntArray(heap *vm.Heap, values []int32) (vm.Value, error) {
	arr, err := heap.AllocArray(int32(len(values)), vm.IntSize)
	if err != nil {
		return vm.Value{}, err
	}
	for i, v := range values {
		p, err := heap.ArrayElement(arr, int32(i))
		if err != nil {
			return vm.Value{}, err
		}
		if err := heap.StoreInt(p, v); err != nil {
			return vm.Value{}, err
		}
	}
	return vm.PointerValue(arr), nil
}

func newStringArray(heap *vm.Heap, values []string) (vm.Value, error) {
	arr, err := heap.AllocArray(int32(len(values)), vm.PointerSize)
	if err != nil {
		return vm.Value{}, err
	}
	for i, s := range values {
		str, err := heap.AllocString(s)
		if err != nil {
			return vm.Value{}, err
		}
		p, err := heap.ArrayElement(arr, int32(i))
		if err != nil {
			return vm.Value{}, err
		}
		if err := heap.StorePointer(p, str); err != nil {
			return vm.Value{}, err
		}
	}
	return vm.PointerValue(arr), nil
}

func newCharArray(heap *vm.Heap, data []byte) (vm.Value, error) {
	arr, err := heap.AllocArray(int32(len(data)), vm.CharSize)
	if err != nil {
		return vm.Value{}, err
	}
	for i, c := range data {
		p, err := heap.ArrayElement(arr, int32(i))
		if err != nil {
			return vm.Value{}, err
		}
		if err := heap.StoreChar(p, c); err != nil {
			return vm.Value{}, err
		}
	}
	return vm.PointerValue(arr), nil
}

// loadChars reads the first n elements of a char array. The last
// element is checked before anything is allocated.
func loadChars(heap *vm.Heap, name string, arr vm.Pointer, n int32) ([]byte, error) {
	if n < 0 {
		return nil, contract(name, "negative array length %d", n)
	}
	if n > 0 {
		p, err := heap.ArrayElement(arr, n-1)
		if err != nil {
			return nil, err
		}
		if _, err := heap.LoadChar(p); err != nil {
			return nil, err
		}
	}
	out := make([]byte, 0, n)
	for i := int32(0); i < n; i++ {
		p, err := heap.ArrayElement(arr, i)
		if err != nil {
			return nil, err
		}
		c, err := heap.LoadChar(p)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(c))
	}
	return out, nil
}
