package vm

import "fmt"

// FaultKind classifies a fatal runtime condition.
type FaultKind int

const (
	ArithmeticFault FaultKind = iota
	MemoryFault
	UserFault
	AssertionFault
	InvalidOpcodeFault
	InternalFault
)

func (k FaultKind) String() string {
	switch k {
	case ArithmeticFault:
		return "arithmetic error"
	case MemoryFault:
		return "memory error"
	case UserFault:
		return "user error"
	case AssertionFault:
		return "assertion failed"
	case InvalidOpcodeFault:
		return "invalid opcode"
	case InternalFault:
		return "internal error"
	default:
		return fmt.Sprintf("fault(%d)", int(k))
	}
}

// ExitCode returns the process exit status for a fault of this kind,
// following the signal a native C0 runtime would die with.
func (k FaultKind) ExitCode() int {
	switch k {
	case ArithmeticFault:
		return 128 + 8 // SIGFPE
	case MemoryFault:
		return 128 + 11 // SIGSEGV
	case UserFault:
		return 1
	default:
		return 128 + 6 // SIGABRT
	}
}

// Fault is an unrecoverable runtime condition. Execution stops at the
// first fault; nothing in the interpreter resumes after one.
type Fault struct {
	Kind FaultKind
	Msg  string
	// Func and PC locate the faulting instruction. PC is -1 when unknown.
	Func int
	PC   int
}

func (f *Fault) Error() string {
	if f.PC < 0 {
		return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
	}
	return fmt.Sprintf("%s: %s (function %d, pc %d)", f.Kind, f.Msg, f.Func, f.PC)
}

// NewFault creates a Fault of the given kind with a formatted message.
func NewFault(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		PC:   -1,
	}
}

// raise aborts the current instruction from inside a primitive that has
// no error return. Execute converts it back into a returned *Fault.
func raise(kind FaultKind, format string, args ...any) {
	panic(NewFault(kind, format, args...))
}
