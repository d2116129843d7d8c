// Package native implements the host side of invokenative: the C0
// standard library functions a bytecode program can call.
package native

import (
	"github.com/tliron/commonlog"

	"github.com/daimatz/goc0vm/pkg/vm"
)

func logger() commonlog.Logger {
	return commonlog.GetLogger("c0vm.native")
}

// Function table indices, in C0 library order.
const (
	ArgsFlag = iota
	ArgsInt
	ArgsParse
	ArgsString

	Eof
	Flush
	Print
	Printbool
	Printchar
	Printint
	Println
	Readline

	FileClose
	FileClosed
	FileEof
	FileRead
	FileReadline

	ImageClone
	ImageCreate
	ImageData
	ImageHeight
	ImageLoad
	ImageSave
	ImageSubimage
	ImageWidth

	IntTokens
	NumTokens
	ParseBool
	ParseInt
	ParseInts
	ParseTokens

	CharChr
	CharOrd
	StringCharat
	StringCompare
	StringEqual
	StringFromChararray
	StringFrombool
	StringFromchar
	StringFromint
	StringJoin
	StringLength
	StringSub
	StringTerminated
	StringToChararray
	StringTolower

	Abs
	IntMax
	IntMin
	IntSize
	Int2hex
	Max
	Min

	TableSize
)

// Names maps function table indices to C0 library names.
var Names = [TableSize]string{
	"args_flag", "args_int", "args_parse", "args_string",
	"eof", "flush", "print", "printbool", "printchar", "printint", "println", "readline",
	"file_close", "file_closed", "file_eof", "file_read", "file_readline",
	"image_clone", "image_create", "image_data", "image_height",
	"image_load", "image_save", "image_subimage", "image_width",
	"int_tokens", "num_tokens", "parse_bool", "parse_int", "parse_ints", "parse_tokens",
	"char_chr", "char_ord", "string_charat", "string_compare", "string_equal",
	"string_from_chararray", "string_frombool", "string_fromchar", "string_fromint",
	"string_join", "string_length", "string_sub", "string_terminated",
	"string_to_chararray", "string_tolower",
	"abs", "int_max", "int_min", "int_size", "int2hex", "max", "min",
}

type entry struct {
	arity int
	fn    vm.NativeFunc
}

// NewTable builds the native function table. Console natives are bound
// to c; slots without an implementation fail with a user fault.
func NewTable(c *Console) []vm.NativeFunc {
	impl := map[int]entry{
		Eof:       {0, c.eof},
		Flush:     {0, c.flush},
		Print:     {1, c.print},
		Printbool: {1, c.printbool},
		Printchar: {1, c.printchar},
		Printint:  {1, c.printint},
		Println:   {1, c.println},
		Readline:  {0, c.readline},

		IntTokens:   {2, intTokensNative},
		NumTokens:   {1, numTokens},
		ParseBool:   {1, parseBool},
		ParseInt:    {2, parseInt},
		ParseInts:   {2, parseInts},
		ParseTokens: {1, parseTokens},

		CharChr:             {1, charChr},
		CharOrd:             {1, charOrd},
		StringCharat:        {2, stringCharat},
		StringCompare:       {2, stringCompare},
		StringEqual:         {2, stringEqual},
		StringFromChararray: {1, stringFromChararray},
		StringFrombool:      {1, stringFrombool},
		StringFromchar:      {1, stringFromchar},
		StringFromint:       {1, stringFromint},
		StringJoin:          {2, stringJoin},
		StringLength:        {1, stringLength},
		StringSub:           {3, stringSub},
		StringTerminated:    {2, stringTerminated},
		StringToChararray:   {1, stringToChararray},
		StringTolower:       {1, stringTolower},

		Abs:     {1, abs},
		IntMax:  {0, intMax},
		IntMin:  {0, intMin},
		IntSize: {0, intSize},
		Int2hex: {1, int2hex},
		Max:     {2, maxInt},
		Min:     {2, minInt},
	}

	table := make([]vm.NativeFunc, TableSize)
	for i := range table {
		if e, ok := impl[i]; ok {
			table[i] = checked(Names[i], e.arity, e.fn)
		} else {
			table[i] = unimplemented(Names[i])
		}
	}
	logger().Debugf("native table: %d of %d functions implemented", len(impl), TableSize)
	return table
}

// checked guards fn against a native pool entry that declares the wrong
// argument count.
func checked(name string, arity int, fn vm.NativeFunc) vm.NativeFunc {
	return func(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
		if len(args) != arity {
			return vm.Value{}, vm.NewFault(vm.InternalFault, "native %s takes %d arguments, called with %d", name, arity, len(args))
		}
		log := logger()
		if log.AllowLevel(commonlog.Debug) {
			log.Debugf("native %s%v", name, args)
		}
		return fn(heap, args)
	}
}

func unimplemented(name string) vm.NativeFunc {
	return func(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
		return vm.Value{}, vm.NewFault(vm.UserFault, "native function %s is not available", name)
	}
}
