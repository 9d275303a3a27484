package ir

import "fmt"

// Instruction is any IR operation resident in a BasicBlock. Instructions
// that produce a usable result additionally implement Value (embed
// valueBase); Store and other void operations implement only Instruction.
type Instruction interface {
	Parent() *BasicBlock
	setParent(*BasicBlock)
	Operands() []Value
	// ReplaceOperand rewrites every operand equal to old to new,
	// maintaining old's and new's use-lists. Used throughout package
	// kernel's cloning and package inline's substitution passes.
	ReplaceOperand(old, new Value)
	Comment() string
	SetComment(string)
	String() string
	instMarker()
}

// instBase is embedded by every concrete instruction; it tracks the
// owning block and an optional human-readable comment, mirroring
// flowgraph's instruction{comment, deleted} base.
type instBase struct {
	parent  *BasicBlock
	comment string
}

func (i *instBase) Parent() *BasicBlock  { return i.parent }
func (i *instBase) setParent(b *BasicBlock) { i.parent = b }
func (i *instBase) Comment() string      { return i.comment }
func (i *instBase) SetComment(s string)  { i.comment = s }
func (i *instBase) instMarker()          {}

// PhiEdge is one incoming (predecessor, value) pair of a Phi.
type PhiEdge struct {
	Pred *BasicBlock
	Val  Value
}

// Phi selects Val from whichever predecessor control arrived from. Used
// both for ordinary SSA phis carried over from the source module and,
// synthetically, for the kernel's Exit dispatch and the inliner's
// entranceBlock/returnBlock fan-in.
type Phi struct {
	metaCarrier
	instBase
	valueBase
	Incoming []PhiEdge
}

// NewPhi constructs an empty phi of result type t.
func NewPhi(t Type) *Phi {
	p := &Phi{}
	p.typ = t
	return p
}

// AddIncoming appends one (pred, val) edge, wiring use-list bookkeeping.
func (p *Phi) AddIncoming(pred *BasicBlock, val Value) {
	p.Incoming = append(p.Incoming, PhiEdge{Pred: pred, Val: val})
	use(val, p)
}

func (p *Phi) Operands() []Value {
	out := make([]Value, len(p.Incoming))
	for i, e := range p.Incoming {
		out[i] = e.Val
	}
	return out
}

func (p *Phi) ReplaceOperand(old, new Value) {
	for i, e := range p.Incoming {
		if e.Val == old {
			unuse(old, p)
			p.Incoming[i].Val = new
			use(new, p)
		}
	}
}

// ReplacePred rewrites the predecessor block of any incoming edge equal
// to old, used when a predecessor is cloned or retargeted (spec §4.5's
// "rewire phi predecessors pointing outside S to Init").
func (p *Phi) ReplacePred(old, new *BasicBlock) {
	for i, e := range p.Incoming {
		if e.Pred == old {
			p.Incoming[i].Pred = new
		}
	}
}

func (p *Phi) String() string {
	s := fmt.Sprintf("%s = phi %s", p.Ident(), p.typ)
	for i, e := range p.Incoming {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(" [%s, %s]", e.Val.Ident(), e.Pred.Name)
	}
	return s
}

// BinOpKind enumerates the arithmetic/comparison operators a BinOp can
// carry.
type BinOpKind int

const (
	Add BinOpKind = iota
	Sub
	Mul
	And
	Or
	Xor
	ICmpEQ
	ICmpNE
	ICmpSLT
	ICmpSGT
)

var binOpNames = map[BinOpKind]string{
	Add: "add", Sub: "sub", Mul: "mul", And: "and", Or: "or", Xor: "xor",
	ICmpEQ: "icmp eq", ICmpNE: "icmp ne", ICmpSLT: "icmp slt", ICmpSGT: "icmp sgt",
}

// BinOp is a two-operand arithmetic or comparison instruction.
type BinOp struct {
	metaCarrier
	instBase
	valueBase
	Op   BinOpKind
	X, Y Value
}

// NewBinOp constructs a binary operation of result type t.
func NewBinOp(op BinOpKind, x, y Value, t Type) *BinOp {
	b := &BinOp{Op: op, X: x, Y: y}
	b.typ = t
	use(x, b)
	use(y, b)
	return b
}

func (b *BinOp) Operands() []Value { return []Value{b.X, b.Y} }

func (b *BinOp) ReplaceOperand(old, new Value) {
	if b.X == old {
		unuse(old, b)
		b.X = new
		use(new, b)
	}
	if b.Y == old {
		unuse(old, b)
		b.Y = new
		use(new, b)
	}
}

func (b *BinOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", b.Ident(), binOpNames[b.Op], b.X.Ident(), b.Y.Ident())
}

// ConvertKind enumerates the value-representation conversions the
// memory interface needs: the abstract i64 address <-> concrete pointer
// round trip (spec §4.7's "call-then-inttoptr/ptrtoint" pattern) and
// ordinary integer truncation/extension.
type ConvertKind int

const (
	PtrToInt ConvertKind = iota
	IntToPtr
	Trunc
	ZExt
	SExt
)

var convertNames = map[ConvertKind]string{
	PtrToInt: "ptrtoint", IntToPtr: "inttoptr", Trunc: "trunc", ZExt: "zext", SExt: "sext",
}

// Convert is a single-operand representation-changing instruction.
type Convert struct {
	metaCarrier
	instBase
	valueBase
	Op ConvertKind
	X  Value
}

// NewConvert constructs a conversion of x to result type t.
func NewConvert(op ConvertKind, x Value, t Type) *Convert {
	c := &Convert{Op: op, X: x}
	c.typ = t
	use(x, c)
	return c
}

func (c *Convert) Operands() []Value { return []Value{c.X} }

func (c *Convert) ReplaceOperand(old, new Value) {
	if c.X == old {
		unuse(old, c)
		c.X = new
		use(new, c)
	}
}

func (c *Convert) String() string {
	return fmt.Sprintf("%s = %s %s to %s", c.Ident(), convertNames[c.Op], c.X.Ident(), c.typ)
}

// Load reads through Addr. Package memrewrite rewrites every Load whose
// Addr is an ExternalValue pointer into a MemoryRead call chain.
type Load struct {
	metaCarrier
	instBase
	valueBase
	Addr Value
}

// NewLoad constructs a load of element type t through addr.
func NewLoad(addr Value, t Type) *Load {
	l := &Load{Addr: addr}
	l.typ = t
	use(addr, l)
	return l
}

func (l *Load) Operands() []Value { return []Value{l.Addr} }

func (l *Load) ReplaceOperand(old, new Value) {
	if l.Addr == old {
		unuse(old, l)
		l.Addr = new
		use(new, l)
	}
}

func (l *Load) String() string {
	return fmt.Sprintf("%s = load %s, %s", l.Ident(), l.typ, l.Addr.Ident())
}

// Store writes Val through Addr. Store produces no value.
type Store struct {
	metaCarrier
	instBase
	Addr, Val Value
}

// NewStore constructs a store of val through addr.
func NewStore(addr, val Value) *Store {
	s := &Store{Addr: addr, Val: val}
	use(addr, s)
	use(val, s)
	return s
}

func (s *Store) Operands() []Value { return []Value{s.Addr, s.Val} }

func (s *Store) ReplaceOperand(old, new Value) {
	if s.Addr == old {
		unuse(old, s)
		s.Addr = new
		use(new, s)
	}
	if s.Val == old {
		unuse(old, s)
		s.Val = new
		use(new, s)
	}
}

func (s *Store) String() string {
	return fmt.Sprintf("store %s, %s", s.Val.Ident(), s.Addr.Ident())
}

// Call invokes Callee (a *Function's FunctionRef, or an indirect Value)
// with Args. Produces a value unless Callee's return type is Void.
type Call struct {
	metaCarrier
	instBase
	valueBase
	Callee Value
	Args   []Value
	// Target is set when Callee statically resolves to a known Function,
	// mirroring flowgraph's staticFunc resolution; nil for indirect
	// calls (spec §4.6 only inlines calls with a resolvable Target).
	Target *Function
}

// NewCall constructs a call of callee with args, result type t (Void if
// the call produces nothing).
func NewCall(callee Value, args []Value, t Type) *Call {
	c := &Call{Callee: callee, Args: append([]Value(nil), args...)}
	c.typ = t
	use(callee, c)
	for _, a := range args {
		use(a, c)
	}
	return c
}

func (c *Call) Operands() []Value {
	out := make([]Value, 0, len(c.Args)+1)
	out = append(out, c.Callee)
	out = append(out, c.Args...)
	return out
}

func (c *Call) ReplaceOperand(old, new Value) {
	if c.Callee == old {
		unuse(old, c)
		c.Callee = new
		use(new, c)
	}
	for i, a := range c.Args {
		if a == old {
			unuse(old, c)
			c.Args[i] = new
			use(new, c)
		}
	}
}

func (c *Call) String() string {
	s := fmt.Sprintf("call %s(", c.Callee.Ident())
	for i, a := range c.Args {
		if i > 0 {
			s += ", "
		}
		s += a.Ident()
	}
	s += ")"
	if _, void := c.typ.(VoidType); !void {
		s = c.Ident() + " = " + s
	}
	return s
}

// Alloc reserves Count elements of T on the originating function's frame.
// Kernel extraction never synthesizes new Allocs (all kernel-local
// storage is promoted to globals by package memrewrite); Alloc survives
// here only to represent allocations present in the *source* module
// before extraction.
type Alloc struct {
	metaCarrier
	instBase
	valueBase
	T     Type
	Count Value
}

// NewAlloc constructs an allocation of count elements of type t, result
// type PointerType{Elem: t}.
func NewAlloc(t Type, count Value) *Alloc {
	a := &Alloc{T: t, Count: count}
	a.typ = PointerType{Elem: t}
	use(count, a)
	return a
}

func (a *Alloc) Operands() []Value {
	if a.Count == nil {
		return nil
	}
	return []Value{a.Count}
}

func (a *Alloc) ReplaceOperand(old, new Value) {
	if a.Count == old {
		unuse(old, a)
		a.Count = new
		use(new, a)
	}
}

func (a *Alloc) String() string {
	return fmt.Sprintf("%s = alloc %s", a.Ident(), a.T)
}
