package native

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/daimatz/goc0vm/pkg/vm"
)

// Console is the program's terminal: buffered output and line-oriented
// input. Output is flushed by the flush native, before every readline
// and by the host when the program stops.
type Console struct {
	in  *bufio.Reader
	out *bufio.Writer
}

// NewConsole creates a Console reading from r and writing to w.
func NewConsole(r io.Reader, w io.Writer) *Console {
	return &Console{
		in:  bufio.NewReader(r),
		out: bufio.NewWriter(w),
	}
}

// Flush writes any buffered output.
func (c *Console) Flush() error {
	return c.out.Flush()
}

func (c *Console) print(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	c.out.WriteString(s)
	return vm.NullValue(), nil
}

func (c *Console) println(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	s, err := loadString(heap, args[0])
	if err != nil {
		return vm.Value{}, err
	}
	c.out.WriteString(s)
	c.out.WriteByte('\n')
	return vm.NullValue(), nil
}

func (c *Console) printint(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	c.out.WriteString(strconv.Itoa(int(args[0].AsInt())))
	return vm.NullValue(), nil
}

func (c *Console) printbool(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	c.out.WriteString(formatBool(args[0].AsInt()))
	return vm.NullValue(), nil
}

func (c *Console) printchar(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	c.out.WriteByte(byte(args[0].AsInt()))
	return vm.NullValue(), nil
}

func (c *Console) flush(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	if err := c.Flush(); err != nil {
		return vm.Value{}, err
	}
	return vm.NullValue(), nil
}

func (c *Console) eof(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	_, err := c.in.Peek(1)
	return vm.BoolValue(err != nil), nil
}

func (c *Console) readline(heap *vm.Heap, args []vm.Value) (vm.Value, error) {
	if err := c.Flush(); err != nil {
		return vm.Value{}, err
	}
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return vm.Value{}, contract("readline", "no more input")
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return newString(heap, line)
}

func formatBool(b int32) string {
	if b != 0 {
		return "true"
	}
	return "false"
}
