package native

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/daimatz/goc0vm/pkg/vm"
)

type harness struct {
	heap  *vm.Heap
	table []vm.NativeFunc
	out   *bytes.Buffer
}

func newHarness(input string) *harness {
	out := &bytes.Buffer{}
	return &harness{
		heap:  vm.NewHeap(),
		table: NewTable(NewConsole(strings.NewReader(input), out)),
		out:   out,
	}
}

func (h *harness) str(t *testing.T, s string) vm.Value {
	t.Helper()
	p, err := h.heap.AllocString(s)
	if err != nil {
		t.Fatalf("AllocString: %v", err)
	}
	return vm.PointerValue(p)
}

func (h *harness) call(t *testing.T, index int, args ...vm.Value) vm.Value {
	t.Helper()
	v, err := h.table[index](h.heap, args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", Names[index], err)
	}
	return v
}

func (h *harness) callString(t *testing.T, index int, args ...vm.Value) string {
	t.Helper()
	s, err := h.heap.LoadString(h.call(t, index, args...).AsPointer())
	if err != nil {
		t.Fatalf("%s: result is not a string: %v", Names[index], err)
	}
	return s
}

func (h *harness) callFault(t *testing.T, index int, kind vm.FaultKind, args ...vm.Value) {
	t.Helper()
	_, err := h.table[index](h.heap, args)
	var f *vm.Fault
	if !errors.As(err, &f) || f.Kind != kind {
		t.Fatalf("%s: expected %s, got %v", Names[index], kind, err)
	}
}

func ints(vs ...int32) []vm.Value {
	out := make([]vm.Value, len(vs))
	for i, v := range vs {
		out[i] = vm.IntValue(v)
	}
	return out
}

func TestTableLayout(t *testing.T) {
	h := newHarness("")
	if len(h.table) != TableSize || TableSize != 53 {
		t.Fatalf("table size: got %d, want 53", len(h.table))
	}
	for index, name := range map[int]string{
		Println:      "println",
		Readline:     "readline",
		ParseInt:     "parse_int",
		StringLength: "string_length",
		Min:          "min",
	} {
		if Names[index] != name {
			t.Errorf("Names[%d]: got %q, want %q", index, Names[index], name)
		}
	}
	if Println != 10 || StringLength != 41 || Min != 52 {
		t.Errorf("unexpected indices: println=%d string_length=%d min=%d", Println, StringLength, Min)
	}
}

func TestUnimplemented(t *testing.T) {
	h := newHarness("")
	for _, index := range []int{ArgsFlag, FileRead, ImageCreate} {
		h.callFault(t, index, vm.UserFault)
	}
}

func TestArity(t *testing.T) {
	h := newHarness("")
	h.callFault(t, StringJoin, vm.InternalFault, h.str(t, "a"))
	h.callFault(t, IntMax, vm.InternalFault, vm.IntValue(1))
}

func TestConio(t *testing.T) {
	h := newHarness("")

	h.call(t, Print, h.str(t, "x = "))
	h.call(t, Printint, vm.IntValue(-42))
	h.call(t, Printchar, vm.IntValue('!'))
	h.call(t, Println, vm.NullValue())
	h.call(t, Printbool, vm.IntValue(1))
	h.call(t, Printbool, vm.IntValue(0))
	h.call(t, Println, h.str(t, ""))

	if h.out.Len() != 0 {
		t.Errorf("output written before flush: %q", h.out.String())
	}
	h.call(t, Flush)

	want := "x = -42!\ntruefalse\n"
	if got := h.out.String(); got != want {
		t.Errorf("output:\ngot  %q\nwant %q", got, want)
	}
}

func TestReadline(t *testing.T) {
	h := newHarness("first line\r\nsecond\nlast")

	h.call(t, Print, h.str(t, "prompt> "))
	for _, want := range []string{"first line", "second", "last"} {
		if eof := h.call(t, Eof).AsInt(); eof != 0 {
			t.Fatalf("eof before %q", want)
		}
		if got := h.callString(t, Readline); got != want {
			t.Errorf("readline: got %q, want %q", got, want)
		}
	}
	if got := h.out.String(); got != "prompt> " {
		t.Errorf("readline did not flush output: %q", got)
	}
	if eof := h.call(t, Eof).AsInt(); eof != 1 {
		t.Error("eof not reported after last line")
	}
	h.callFault(t, Readline, vm.UserFault)
}

func TestStrings(t *testing.T) {
	h := newHarness("")

	tests := []struct {
		name  string
		index int
		args  func() []vm.Value
		want  string
	}{
		{"join", StringJoin, func() []vm.Value { return []vm.Value{h.str(t, "foo"), h.str(t, "bar")} }, "foobar"},
		{"join null", StringJoin, func() []vm.Value { return []vm.Value{vm.NullValue(), h.str(t, "bar")} }, "bar"},
		{"sub", StringSub, func() []vm.Value { return []vm.Value{h.str(t, "hello"), vm.IntValue(1), vm.IntValue(4)} }, "ell"},
		{"sub empty", StringSub, func() []vm.Value { return []vm.Value{h.str(t, "hello"), vm.IntValue(5), vm.IntValue(5)} }, ""},
		{"fromint", StringFromint, func() []vm.Value { return ints(math.MinInt32) }, "-2147483648"},
		{"frombool", StringFrombool, func() []vm.Value { return ints(1) }, "true"},
		{"fromchar", StringFromchar, func() []vm.Value { return ints('q') }, "q"},
		{"tolower", StringTolower, func() []vm.Value { return []vm.Value{h.str(t, "MiXeD 42")} }, "mixed 42"},
		{"int2hex", Int2hex, func() []vm.Value { return ints(-1) }, "FFFFFFFF"},
		{"int2hex small", Int2hex, func() []vm.Value { return ints(42) }, "0000002A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.callString(t, tt.index, tt.args()...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringQueries(t *testing.T) {
	h := newHarness("")
	abc, abd := h.str(t, "abc"), h.str(t, "abd")

	tests := []struct {
		name  string
		index int
		args  []vm.Value
		want  int32
	}{
		{"length", StringLength, []vm.Value{abc}, 3},
		{"length null", StringLength, []vm.Value{vm.NullValue()}, 0},
		{"charat", StringCharat, []vm.Value{abc, vm.IntValue(2)}, 'c'},
		{"equal", StringEqual, []vm.Value{abc, h.str(t, "abc")}, 1},
		{"not equal", StringEqual, []vm.Value{abc, abd}, 0},
		{"compare less", StringCompare, []vm.Value{abc, abd}, -1},
		{"compare greater", StringCompare, []vm.Value{abd, abc}, 1},
		{"compare equal", StringCompare, []vm.Value{abc, abc}, 0},
		{"char_ord", CharOrd, ints('A'), 65},
		{"char_chr", CharChr, ints(97), 'a'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.call(t, tt.index, tt.args...).AsInt(); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("contract violations", func(t *testing.T) {
		h.callFault(t, StringCharat, vm.UserFault, abc, vm.IntValue(3))
		h.callFault(t, StringCharat, vm.UserFault, abc, vm.IntValue(-1))
		h.callFault(t, StringSub, vm.UserFault, abc, vm.IntValue(2), vm.IntValue(1))
		h.callFault(t, StringSub, vm.UserFault, abc, vm.IntValue(0), vm.IntValue(4))
		h.callFault(t, StringFromchar, vm.UserFault, vm.IntValue(0))
		h.callFault(t, CharChr, vm.UserFault, vm.IntValue(128))
	})
}

func TestCharArrays(t *testing.T) {
	h := newHarness("")

	arr := h.call(t, StringToChararray, h.str(t, "hey"))
	if n, _ := h.heap.ArrayLength(arr.AsPointer()); n != 4 {
		t.Fatalf("length: got %d, want 4", n)
	}
	if got := h.call(t, StringTerminated, arr, vm.IntValue(4)).AsInt(); got != 1 {
		t.Error("string_terminated(A, 4) = false")
	}
	if got := h.call(t, StringTerminated, arr, vm.IntValue(3)).AsInt(); got != 0 {
		t.Error("string_terminated(A, 3) = true")
	}
	if got := h.callString(t, StringFromChararray, arr); got != "hey" {
		t.Errorf("string_from_chararray: got %q", got)
	}

	// Overwrite the terminator.
	last, _ := h.heap.ArrayElement(arr.AsPointer(), 3)
	h.heap.StoreChar(last, '!')
	h.callFault(t, StringFromChararray, vm.UserFault, arr)
	h.callFault(t, StringTerminated, vm.UserFault, arr, vm.IntValue(5))

	if got := h.call(t, StringTerminated, vm.NullValue(), vm.IntValue(0)).AsInt(); got != 0 {
		t.Error("string_terminated(NULL, 0) = true")
	}

	t.Run("bogus header", func(t *testing.T) {
		block, err := h.heap.Alloc(vm.ArrayHeaderSize)
		if err != nil {
			t.Fatalf("Alloc: %v", err)
		}
		if err := h.heap.StoreInt(block, -5); err != nil {
			t.Fatalf("StoreInt: %v", err)
		}
		h.callFault(t, StringFromChararray, vm.UserFault, vm.PointerValue(block))

		if err := h.heap.StoreInt(block, 1<<30); err != nil {
			t.Fatalf("StoreInt: %v", err)
		}
		h.callFault(t, StringFromChararray, vm.MemoryFault, vm.PointerValue(block))
	})
}

func TestParse(t *testing.T) {
	h := newHarness("")

	t.Run("parse_int", func(t *testing.T) {
		tests := []struct {
			s    string
			base int32
			want int32
			ok   bool
		}{
			{"42", 10, 42, true},
			{"-17", 10, -17, true},
			{"ff", 16, 255, true},
			{"101", 2, 5, true},
			{"2147483648", 10, 0, false},
			{"12a", 10, 0, false},
			{"", 10, 0, false},
		}
		for _, tt := range tests {
			p := h.call(t, ParseInt, h.str(t, tt.s), vm.IntValue(tt.base)).AsPointer()
			if !tt.ok {
				if p != vm.Null {
					t.Errorf("parse_int(%q, %d): got a cell, want NULL", tt.s, tt.base)
				}
				continue
			}
			v, err := h.heap.LoadInt(p)
			if err != nil || v != tt.want {
				t.Errorf("parse_int(%q, %d): got %d, %v; want %d", tt.s, tt.base, v, err, tt.want)
			}
		}
		h.callFault(t, ParseInt, vm.UserFault, h.str(t, "1"), vm.IntValue(1))
		h.callFault(t, ParseInt, vm.UserFault, h.str(t, "1"), vm.IntValue(37))
	})

	t.Run("parse_bool", func(t *testing.T) {
		p := h.call(t, ParseBool, h.str(t, "true")).AsPointer()
		if c, err := h.heap.LoadChar(p); err != nil || c != 1 {
			t.Errorf("parse_bool(true): got %d, %v", c, err)
		}
		p = h.call(t, ParseBool, h.str(t, "false")).AsPointer()
		if c, err := h.heap.LoadChar(p); err != nil || c != 0 {
			t.Errorf("parse_bool(false): got %d, %v", c, err)
		}
		if p := h.call(t, ParseBool, h.str(t, "yes")).AsPointer(); p != vm.Null {
			t.Error("parse_bool(yes) is not NULL")
		}
	})

	t.Run("tokens", func(t *testing.T) {
		line := h.str(t, "  10 -3\t7  ")
		if n := h.call(t, NumTokens, line).AsInt(); n != 3 {
			t.Errorf("num_tokens: got %d, want 3", n)
		}
		if ok := h.call(t, IntTokens, line, vm.IntValue(10)).AsInt(); ok != 1 {
			t.Error("int_tokens: got false")
		}
		if ok := h.call(t, IntTokens, h.str(t, "1 x"), vm.IntValue(10)).AsInt(); ok != 0 {
			t.Error("int_tokens(1 x): got true")
		}

		arr := h.call(t, ParseInts, line, vm.IntValue(10)).AsPointer()
		for i, want := range []int32{10, -3, 7} {
			p, err := h.heap.ArrayElement(arr, int32(i))
			if err != nil {
				t.Fatalf("element %d: %v", i, err)
			}
			if v, _ := h.heap.LoadInt(p); v != want {
				t.Errorf("parse_ints[%d]: got %d, want %d", i, v, want)
			}
		}
		h.callFault(t, ParseInts, vm.UserFault, h.str(t, "1 x"), vm.IntValue(10))

		words := h.call(t, ParseTokens, h.str(t, "to be")).AsPointer()
		if n, _ := h.heap.ArrayLength(words); n != 2 {
			t.Fatalf("parse_tokens length: got %d, want 2", n)
		}
		p, _ := h.heap.ArrayElement(words, 1)
		s, _ := h.heap.LoadPointer(p)
		if got, _ := h.heap.LoadString(s); got != "be" {
			t.Errorf("parse_tokens[1]: got %q, want be", got)
		}
	})
}

func TestUtil(t *testing.T) {
	h := newHarness("")

	tests := []struct {
		name  string
		index int
		args  []vm.Value
		want  int32
	}{
		{"abs negative", Abs, ints(-5), 5},
		{"abs positive", Abs, ints(5), 5},
		{"max", Max, ints(3, -9), 3},
		{"min", Min, ints(3, -9), -9},
		{"int_max", IntMax, nil, math.MaxInt32},
		{"int_min", IntMin, nil, math.MinInt32},
		{"int_size", IntSize, nil, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.call(t, tt.index, tt.args...).AsInt(); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	h.callFault(t, Abs, vm.UserFault, vm.IntValue(math.MinInt32))
}
