package vm

// OperandStack is the LIFO scratch space of one activation.
type OperandStack struct {
	values []Value
}

// NewOperandStack creates an empty operand stack.
func NewOperandStack() *OperandStack {
	return &OperandStack{values: make([]Value, 0, 8)}
}

// Push pushes a value onto the stack.
func (s *OperandStack) Push(v Value) {
	s.values = append(s.values, v)
}

// Pop pops a value from the stack.
func (s *OperandStack) Pop() Value {
	n := len(s.values)
	if n == 0 {
		raise(InternalFault, "operand stack underflow")
	}
	v := s.values[n-1]
	s.values = s.values[:n-1]
	return v
}

// Peek returns the top value without removing it.
func (s *OperandStack) Peek() Value {
	n := len(s.values)
	if n == 0 {
		raise(InternalFault, "operand stack underflow")
	}
	return s.values[n-1]
}

// Len returns the number of values on the stack.
func (s *OperandStack) Len() int { return len(s.values) }

// Empty reports whether the stack holds no values.
func (s *OperandStack) Empty() bool { return len(s.values) == 0 }

// CallStack holds the suspended activations of pending callers.
type CallStack struct {
	frames []*Frame
}

// Push suspends a caller's activation.
func (c *CallStack) Push(f *Frame) {
	c.frames = append(c.frames, f)
}

// Pop resumes the most recently suspended activation.
func (c *CallStack) Pop() *Frame {
	n := len(c.frames)
	if n == 0 {
		raise(InternalFault, "call stack underflow")
	}
	f := c.frames[n-1]
	c.frames[n-1] = nil
	c.frames = c.frames[:n-1]
	return f
}

// Depth returns the number of suspended activations.
func (c *CallStack) Depth() int { return len(c.frames) }

// Empty reports whether no caller is waiting.
func (c *CallStack) Empty() bool { return len(c.frames) == 0 }
