package native

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/daimatz/goc0vm/pkg/vm"
)

func stringLength(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	return vm.IntValue(int32(len(s))), nil
}

func stringCharat(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	idx := args[1].AsInt()
	if idx < 0 || int(idx) >= len(s) {
		return vm.Value{}, contract("string_charat", "index %d out of range [0, %d)", idx, len(s))
	}
	return vm.IntValue(int32(s[idx])), nil
}

func stringJoin(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	a, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	b, err := loadString(heap, args[1])
	if err != nil {
		return vm.Value{}, err
	}
	return newString(heap, a+b)
}

func stringSub(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	start, end := args[1].AsInt(), args[2].AsInt()
	if start < 0 || start > end || int(end) > len(s) {
		return vm.Value{}, contract("string_sub", "range [%d, %d) invalid for length %d", start, end, len(s))
	}
	return newString(heap, s[start:end])
}

func stringEqual(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	a, b, err := loadPair(heap, args)
	if err != nil {
		return vm.Value{}, err
	}
	return vm.BoolValue(a == b), nil
}

func stringCompare(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	a, b, err := loadPair(heap, args)
	if err != nil {
		return vm.Value{}, err
	}
	return vm.IntValue(int32(strings.Compare(a, b))), nil
}

func loadPair(heap *vm.Heap, args []vm.Value) (string, string, error) {
	a, err := loadString(heap, args[0])
	if err != nil {
		return "", "", err
	}
	b, err := loadString(heap, args[1])
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func stringFromint(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	return newString(heap, strconv.Itoa(int(args[0].AsInt())))
}

func stringFrombool(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	return newString(heap, formatBool(args[0].AsInt()))
}

func stringFromchar(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	c := args[0].AsInt()
	if c == 0 {
		return vm.Value{}, contract("string_fromchar", "NUL character")
	}
	return newString(heap, string([]byte{byte(c)}))
}

func stringTolower(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	return newString(heap, strings.ToLower(s))
}

func stringTerminated(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	arr := args[0].AsPointer()
	n := args[1].AsInt()
	length, err := arrayLength(heap, arr)
	if err != nil {
		return vm.Value{}, err
	}
	if n < 0 || n > length {
		return vm.Value{}, contract("string_terminated", "length %d out of range [0, %d]", n, length)
	}
	chars, err := loadChars(heap, "string_terminated", arr, n)
	if err != nil {
		return vm.Value{}, err
	}
	return vm.BoolValue(bytes.IndexByte(chars, 0) >= 0), nil
}

func stringToChararray(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	return newCharArray(heap, append([]byte(s), 0))
}

func stringFromChararray(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	arr := args[0].AsPointer()
	length, err := arrayLength(heap, arr)
	if err != nil {
		return vm.Value{}, err
	}
	chars, err := loadChars(heap, "string_from_chararray", arr, length)
	if err != nil {
		return vm.Value{}, err
	}
	end := bytes.IndexByte(chars, 0)
	if end < 0 {
		return vm.Value{}, contract("string_from_chararray", "array is not NUL-terminated")
	}
	return newString(heap, string(chars[:end]))
}

func charOrd(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	return vm.IntValue(args[0].AsInt()), nil
}

func charChr(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	n := args[0].AsInt()
	if n < 0 || n > 127 {
		return vm.Value{}, contract("char_chr", "%d is not an ASCII code", n)
	}
	return vm.IntValue(n), nil
}
