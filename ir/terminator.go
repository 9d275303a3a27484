package ir

import "fmt"

// Terminator is the last instruction of a BasicBlock, the sole source of
// control-flow edges. BasicBlock.Out() derives a block's successors from
// its terminator, mirroring flowgraph's Terminal interface.
type Terminator interface {
	Instruction
	Successors() []*BasicBlock
	// ReplaceSuccessor retargets every successor edge equal to old to
	// new. Used by package kernel to retarget cross-region branches to
	// Exit and to redirect branches into nested-kernel call stubs.
	ReplaceSuccessor(old, new *BasicBlock)
}

// Branch is an unconditional jump.
type Branch struct {
	metaCarrier
	instBase
	Dst *BasicBlock
}

// NewBranch constructs an unconditional jump to dst.
func NewBranch(dst *BasicBlock) *Branch {
	return &Branch{Dst: dst}
}

func (b *Branch) Operands() []Value          { return nil }
func (b *Branch) ReplaceOperand(Value, Value) {}
func (b *Branch) Successors() []*BasicBlock  { return []*BasicBlock{b.Dst} }

func (b *Branch) ReplaceSuccessor(old, new *BasicBlock) {
	if b.Dst == old {
		b.Dst = new
	}
}

func (b *Branch) String() string { return "br " + b.Dst.Name }

// CondBranch is a two-way conditional jump.
type CondBranch struct {
	metaCarrier
	instBase
	Cond       Value
	True, False *BasicBlock
}

// NewCondBranch constructs a conditional jump on cond.
func NewCondBranch(cond Value, t, f *BasicBlock) *CondBranch {
	c := &CondBranch{Cond: cond, True: t, False: f}
	use(cond, c)
	return c
}

func (c *CondBranch) Operands() []Value { return []Value{c.Cond} }

func (c *CondBranch) ReplaceOperand(old, new Value) {
	if c.Cond == old {
		unuse(old, c)
		c.Cond = new
		use(new, c)
	}
}

func (c *CondBranch) Successors() []*BasicBlock { return []*BasicBlock{c.True, c.False} }

func (c *CondBranch) ReplaceSuccessor(old, new *BasicBlock) {
	if c.True == old {
		c.True = new
	}
	if c.False == old {
		c.False = new
	}
}

func (c *CondBranch) String() string {
	return fmt.Sprintf("br %s, %s, %s", c.Cond.Ident(), c.True.Name, c.False.Name)
}

// SwitchCase is one (value, destination) arm of a Switch.
type SwitchCase struct {
	Val  int64
	Dest *BasicBlock
}

// Switch dispatches on an integer Value; it backs the inliner's
// multi-site return dispatch (spec §4.6), a kernel's Init-block
// entrance dispatch (spec §4.5, always a switch, even for a single
// entrance, so an out-of-range id reliably reaches Exception), and a
// nested-kernel call stub's dispatch on the callee's returned exit id.
type Switch struct {
	metaCarrier
	instBase
	Value   Value
	Cases   []SwitchCase
	Default *BasicBlock
}

// NewSwitch constructs a switch on val with the given default.
func NewSwitch(val Value, def *BasicBlock) *Switch {
	s := &Switch{Value: val, Default: def}
	use(val, s)
	return s
}

// AddCase appends one dispatch arm.
func (s *Switch) AddCase(v int64, dest *BasicBlock) {
	s.Cases = append(s.Cases, SwitchCase{Val: v, Dest: dest})
}

func (s *Switch) Operands() []Value { return []Value{s.Value} }

func (s *Switch) ReplaceOperand(old, new Value) {
	if s.Value == old {
		unuse(old, s)
		s.Value = new
		use(new, s)
	}
}

func (s *Switch) Successors() []*BasicBlock {
	out := make([]*BasicBlock, 0, len(s.Cases)+1)
	if s.Default != nil {
		out = append(out, s.Default)
	}
	for _, c := range s.Cases {
		out = append(out, c.Dest)
	}
	return out
}

func (s *Switch) ReplaceSuccessor(old, new *BasicBlock) {
	if s.Default == old {
		s.Default = new
	}
	for i, c := range s.Cases {
		if c.Dest == old {
			s.Cases[i].Dest = new
		}
	}
}

func (s *Switch) String() string {
	str := fmt.Sprintf("switch %s, default %s [", s.Value.Ident(), s.Default.Name)
	for i, c := range s.Cases {
		if i > 0 {
			str += ", "
		}
		str += fmt.Sprintf("%d: %s", c.Val, c.Dest.Name)
	}
	return str + "]"
}

// Return exits the function, optionally with a value.
type Return struct {
	metaCarrier
	instBase
	Val Value
}

// NewReturn constructs a return of val (nil for a void return).
func NewReturn(val Value) *Return {
	r := &Return{Val: val}
	use(val, r)
	return r
}

func (r *Return) Operands() []Value {
	if r.Val == nil {
		return nil
	}
	return []Value{r.Val}
}

func (r *Return) ReplaceOperand(old, new Value) {
	if r.Val == old {
		unuse(old, r)
		r.Val = new
		use(new, r)
	}
}

func (r *Return) Successors() []*BasicBlock          { return nil }
func (r *Return) ReplaceSuccessor(*BasicBlock, *BasicBlock) {}

func (r *Return) String() string {
	if r.Val == nil {
		return "ret void"
	}
	return "ret " + r.Val.Ident()
}

// Invoke is a call with separate normal/unwind successors. Spec §4's
// Non-goals (and scenario S6) call for InvokeUnsupported: any Invoke
// found inside a requested block set is a hard build error, never
// silently lowered to a Call. Invoke survives in the IR facade purely so
// the inliner's call scan, which the Kernel Builder runs, can detect and
// reject it.
type Invoke struct {
	metaCarrier
	instBase
	valueBase
	Callee            Value
	Args              []Value
	Normal, Unwind    *BasicBlock
}

// NewInvoke constructs an invoke of callee with args and the two
// successor blocks.
func NewInvoke(callee Value, args []Value, normal, unwind *BasicBlock, t Type) *Invoke {
	i := &Invoke{Callee: callee, Args: append([]Value(nil), args...), Normal: normal, Unwind: unwind}
	i.typ = t
	use(callee, i)
	for _, a := range args {
		use(a, i)
	}
	return i
}

func (i *Invoke) Operands() []Value {
	out := make([]Value, 0, len(i.Args)+1)
	out = append(out, i.Callee)
	out = append(out, i.Args...)
	return out
}

func (i *Invoke) ReplaceOperand(old, new Value) {
	if i.Callee == old {
		unuse(old, i)
		i.Callee = new
		use(new, i)
	}
	for idx, a := range i.Args {
		if a == old {
			unuse(old, i)
			i.Args[idx] = new
			use(new, i)
		}
	}
}

func (i *Invoke) Successors() []*BasicBlock { return []*BasicBlock{i.Normal, i.Unwind} }

func (i *Invoke) ReplaceSuccessor(old, new *BasicBlock) {
	if i.Normal == old {
		i.Normal = new
	}
	if i.Unwind == old {
		i.Unwind = new
	}
}

func (i *Invoke) String() string {
	return fmt.Sprintf("%s = invoke %s to %s unwind %s", i.Ident(), i.Callee.Ident(), i.Normal.Name, i.Unwind.Name)
}
