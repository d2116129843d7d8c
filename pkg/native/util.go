package native

import (
	"fmt"
	"math"

	"github.com/daimatz/goc0vm/pkg/vm"
)

func abs(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	x := args[0].AsInt()
	if x == math.MinInt32 {
		return vm.Value{}, contract("abs", "argument is int_min()")
	}
	if x < 0 {
		x = -x
	}
	return vm.IntValue(x), nil
}

func maxInt(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	return vm.IntValue(max(args[0].AsInt(), args[1].AsInt())), nil
}

func minInt(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	return vm.IntValue(min(args[0].AsInt(), args[1].AsInt())), nil
}

func intMax(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	return vm.IntValue(math.MaxInt32), nil
}

func intMin(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	return vm.IntValue(math.MinInt32), nil
}

func intSize(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	return vm.IntValue(32), nil
}

// int2hex renders all 32 bits as eight uppercase hex digits.
func int2hex(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	return newString(heap, fmt.Sprintf("%08X", uint32(args[0].AsInt())))
}
