package bc0

import "fmt"

// Bytecode format constants
const (
	Magic   = 0xC0C0FFEE
	Version = 11
	Arch64  = 1
)

// Program represents a parsed .bc0 program image.
type Program struct {
	Version    uint16       `cbor:"version"`
	Arch       uint16       `cbor:"arch"`
	IntPool    []int32      `cbor:"ints"`
	StringPool []byte       `cbor:"strings"`
	Functions  []Function   `cbor:"functions"`
	Natives    []NativeInfo `cbor:"natives"`
}

// Function is one entry of the function pool. Entry 0 is main.
type Function struct {
	NumArgs uint16 `cbor:"args"`
	NumVars uint16 `cbor:"vars"`
	Code    []byte `cbor:"code"`
}

// NativeInfo describes a call into the host native function table.
type NativeInfo struct {
	NumArgs            uint16 `cbor:"args"`
	FunctionTableIndex uint16 `cbor:"index"`
}

// Main returns the entry function, or nil if the function pool is empty.
func (p *Program) Main() *Function {
	if len(p.Functions) == 0 {
		return nil
	}
	return &p.Functions[0]
}

// StringAt returns the NUL-terminated string starting at offset in the
// string pool.
func (p *Program) StringAt(offset int) (string, bool) {
	if offset < 0 || offset >= len(p.StringPool) {
		return "", false
	}
	end := offset
	for end < len(p.StringPool) && p.StringPool[end] != 0 {
		end++
	}
	return string(p.StringPool[offset:end]), true
}

// validate checks the structural invariants the interpreter relies on.
func (p *Program) validate() error {
	if len(p.Functions) == 0 {
		return fmt.Errorf("function pool is empty: no main function")
	}
	for i, f := range p.Functions {
		if f.NumVars < f.NumArgs {
			return fmt.Errorf("function %d declares %d variables for %d arguments", i, f.NumVars, f.NumArgs)
		}
	}
	return nil
}
