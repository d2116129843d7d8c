package vm_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/daimatz/goc0vm/pkg/bc0"
	"github.com/daimatz/goc0vm/pkg/native"
	"github.com/daimatz/goc0vm/pkg/vm"
)

// runProgram parses a .bc0 file, executes it with the standard native
// table, and returns the result and the captured console output.
func runProgram(t *testing.T, path string) (int32, string, error) {
	t.Helper()

	prog, err := bc0.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile(%s): %v", path, err)
	}

	var buf bytes.Buffer
	console := native.NewConsole(strings.NewReader(""), &buf)
	v := vm.NewVM(prog, native.NewTable(console))

	result, err := v.Execute()
	if ferr := console.Flush(); ferr != nil {
		t.Fatalf("Flush: %v", ferr)
	}
	return result, buf.String(), err
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		file   string
		want   int32
		output string
	}{
		{"add.bc0", 8, ""},
		{"fact.bc0", 3628800, ""},
		{"squares.bc0", 30, ""},
		{"hello.bc0", 0, "Hello, World!\n"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, output, err := runProgram(t, "../../testdata/"+tt.file)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("result: got %d, want %d", got, tt.want)
			}
			if output != tt.output {
				t.Errorf("output:\ngot  %q\nwant %q", output, tt.output)
			}
		})
	}
}

func TestFaultingPrograms(t *testing.T) {
	tests := []struct {
		file string
		kind vm.FaultKind
		msg  string
		exit int
	}{
		{"divzero.bc0", vm.ArithmeticFault, "division by zero", 136},
		{"assert.bc0", vm.AssertionFault, "assert.c0:3.3-3.18: assert fail", 134},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, _, err := runProgram(t, "../../testdata/"+tt.file)
			var f *vm.Fault
			if !errors.As(err, &f) {
				t.Fatalf("expected a fault, got %v", err)
			}
			if f.Kind != tt.kind {
				t.Errorf("kind: got %q, want %q", f.Kind, tt.kind)
			}
			if f.Msg != tt.msg {
				t.Errorf("message: got %q, want %q", f.Msg, tt.msg)
			}
			if f.Kind.ExitCode() != tt.exit {
				t.Errorf("exit code: got %d, want %d", f.Kind.ExitCode(), tt.exit)
			}
		})
	}
}

func TestImageRoundTripExecutes(t *testing.T) {
	prog, err := bc0.ParseFile("../../testdata/fact.bc0")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	data, err := bc0.EncodeImage(prog)
	if err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	decoded, err := bc0.DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}

	got, err := vm.NewVM(decoded, nil).Execute()
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != 3628800 {
		t.Errorf("got %d, want 3628800", got)
	}
}
