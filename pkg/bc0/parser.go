package bc0

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
)

func logger() commonlog.Logger {
	return commonlog.GetLogger("c0vm.bc0")
}

// ParseFile opens and parses a .bc0 file from the given path.
func ParseFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a .bc0 hex dump from the given reader and returns a Program.
func Parse(r io.Reader) (*Program, error) {
	raw, err := decodeHex(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(raw)
}

// decodeHex turns the textual .bc0 representation into raw bytes.
// '#' starts a comment that runs to the end of the line.
func decodeHex(r io.Reader) ([]byte, error) {
	var out []byte
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, tok := range strings.Fields(line) {
			if len(tok) != 2 {
				return nil, fmt.Errorf("line %d: malformed byte %q", lineNo, tok)
			}
			b, err := hex.DecodeString(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d: malformed byte %q: %w", lineNo, tok, err)
			}
			out = append(out, b[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading bytecode: %w", err)
	}
	return out, nil
}

// ParseBytes parses the binary form of a program image.
func ParseBytes(data []byte) (*Program, error) {
	r := bytes.NewReader(data)
	p := &Program{}

	// Magic number
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xC0C0FFEE)", magic)
	}

	// Version and architecture share one word
	var word uint16
	if err := binary.Read(r, binary.BigEndian, &word); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	p.Version = word >> 1
	p.Arch = word & 1
	if p.Arch != Arch64 {
		return nil, fmt.Errorf("unsupported architecture: bytecode compiled for 32-bit pointers")
	}
	if p.Version != Version {
		logger().Warningf("bytecode version %d, expected %d", p.Version, Version)
	}

	// Integer pool
	var intCount uint16
	if err := binary.Read(r, binary.BigEndian, &intCount); err != nil {
		return nil, fmt.Errorf("reading int pool count: %w", err)
	}
	p.IntPool = make([]int32, intCount)
	if err := binary.Read(r, binary.BigEndian, p.IntPool); err != nil {
		return nil, fmt.Errorf("reading int pool: %w", err)
	}

	// String pool
	var stringCount uint16
	if err := binary.Read(r, binary.BigEndian, &stringCount); err != nil {
		return nil, fmt.Errorf("reading string pool count: %w", err)
	}
	p.StringPool = make([]byte, stringCount)
	if _, err := io.ReadFull(r, p.StringPool); err != nil {
		return nil, fmt.Errorf("reading string pool: %w", err)
	}

	// Functions
	var functionCount uint16
	if err := binary.Read(r, binary.BigEndian, &functionCount); err != nil {
		return nil, fmt.Errorf("reading function count: %w", err)
	}
	if functionCount == 0 {
		return nil, fmt.Errorf("function pool is empty: no main function")
	}
	var err error
	p.Functions, err = parseFunctions(r, functionCount)
	if err != nil {
		return nil, fmt.Errorf("parsing functions: %w", err)
	}

	// Natives
	var nativeCount uint16
	if err := binary.Read(r, binary.BigEndian, &nativeCount); err != nil {
		return nil, fmt.Errorf("reading native count: %w", err)
	}
	p.Natives = make([]NativeInfo, nativeCount)
	for i := uint16(0); i < nativeCount; i++ {
		if err := binary.Read(r, binary.BigEndian, &p.Natives[i].NumArgs); err != nil {
			return nil, fmt.Errorf("reading native %d argument count: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &p.Natives[i].FunctionTableIndex); err != nil {
			return nil, fmt.Errorf("reading native %d table index: %w", i, err)
		}
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after native pool", r.Len())
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	logger().Debugf("parsed program: %d ints, %d string bytes, %d functions, %d natives",
		len(p.IntPool), len(p.StringPool), len(p.Functions), len(p.Natives))
	return p, nil
}

func parseFunctions(r io.Reader, count uint16) ([]Function, error) {
	functions := make([]Function, count)
	for i := uint16(0); i < count; i++ {
		var numArgs, numVars, codeLength uint16
		if err := binary.Read(r, binary.BigEndian, &numArgs); err != nil {
			return nil, fmt.Errorf("reading function %d argument count: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &numVars); err != nil {
			return nil, fmt.Errorf("reading function %d variable count: %w", i, err)
		}
		if err := binary.Read(r, binary.BigEndian, &codeLength); err != nil {
			return nil, fmt.Errorf("reading function %d code length: %w", i, err)
		}
		code := make([]byte, codeLength)
		if _, err := io.ReadFull(r, code); err != nil {
			return nil, fmt.Errorf("reading function %d code: %w", i, err)
		}

		functions[i] = Function{
			NumArgs: numArgs,
			NumVars: numVars,
			Code:    code,
		}
	}
	return functions, nil
}
