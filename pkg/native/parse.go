package native

import (
	"strconv"
	"strings"

	"github.com/daimatz/goc0vm/pkg/vm"
)

func parseBool(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	switch s {
	case "true":
		return boxBool(heap, true)
	case "false":
		return boxBool(heap, false)
	}
	return vm.NullValue(), nil
}

func parseBase(name string, v vm.Value) (int, error) {
	base := v.AsInt()
	if base < 2 || base > 36 {
		return 0, contract(name, "base %d out of range [2, 36]", base)
	}
	return int(base), nil
}

// parseInt32 accepts an optional sign followed by digits in base.
func parseInt32(s string, base int) (int32, bool) {
	n, err := strconv.ParseInt(s, base, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

func parseInt(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	base, err := parseBase("parse_int", args[1])
	if err != nil {
		return vm.Value{}, err
	}
	n, ok := parseInt32(s, base)
	if !ok {
		return vm.NullValue(), nil
	}
	return boxInt(heap, n)
}

func numTokens(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	return vm.IntValue(int32(len(strings.Fields(s)))), nil
}

// intTokens parses every whitespace-separated token of s in base.
func intTokens(s string, base int) ([]int32, bool) {
	fields := strings.Fields(s)
	out := make([]int32, len(fields))
	for i, f := range fields {
		n, ok := parseInt32(f, base)
		if !ok {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func intTokensNative(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	base, err := parseBase("int_tokens", args[1])
	if err != nil {
		return vm.Value{}, err
	}
	_, ok := intTokens(s, base)
	return vm.BoolValue(ok), nil
}

func parseInts(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	base, err := parseBase("parse_ints", args[1])
	if err != nil {
		return vm.Value{}, err
	}
	values, ok := intTokens(s, base)
	if !ok {
		return vm.Value{}, contract("parse_ints", "%q is not a list of base %d integers", s, base)
	}
	return newIntArray(heap, values)
}

func parseTokens(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	return newStringArray(heap, strings.Fields(s))
}
