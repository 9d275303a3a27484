package ir

// Value is the spec's explicit four-way union: an Instruction that
// produces a result, an Argument, a GlobalVariable, or a Constant. Unlike
// this module's teacher lineage (which treats every operand, including
// arguments and literals, as a pseudo-instruction living in a block),
// Value here is realized as a genuine Go interface with four disjoint
// families of implementers, matching the data model the spec calls out
// explicitly rather than the teacher's unification. FunctionRef (a
// function used as a call operand) also implements Value.
type Value interface {
	Type() Type
	// Ident returns the value's textual name for dumps: "%name" for a
	// named instruction result or Argument, "%_" for an unnamed one,
	// "@name" for a global or FunctionRef, or the constant's literal text
	// ("null" for ConstNull).
	Ident() string
	Users() []Instruction
	addUser(Instruction)
	rmUser(Instruction)
	valueMarker()
}

// valueBase is embedded by every instruction that produces a result
// (Phi, BinOp, Convert, Load, Call, ...). It tracks the instruction's
// result type and its use-list, mirroring flowgraph's value.addUser/
// rmUser bookkeeping.
type valueBase struct {
	name  string
	typ   Type
	users []Instruction
}

func (v *valueBase) Type() Type { return v.typ }

func (v *valueBase) Ident() string {
	if v.name != "" {
		return "%" + v.name
	}
	return "%_"
}

func (v *valueBase) SetName(name string) { v.name = name }
func (v *valueBase) Name() string        { return v.name }

func (v *valueBase) Users() []Instruction {
	out := make([]Instruction, len(v.users))
	copy(out, v.users)
	return out
}

func (v *valueBase) addUser(i Instruction) {
	v.users = append(v.users, i)
}

func (v *valueBase) rmUser(i Instruction) {
	for idx, u := range v.users {
		if u == i {
			v.users = append(v.users[:idx], v.users[idx+1:]...)
			return
		}
	}
}

func (v *valueBase) valueMarker() {}

// use adds u as a user of val, no-op if val is nil (an optional operand
// left unset).
func use(val Value, u Instruction) {
	if val != nil {
		val.addUser(u)
	}
}

func unuse(val Value, u Instruction) {
	if val != nil {
		val.rmUser(u)
	}
}

// Argument is a function parameter: a Value that is not an Instruction.
// The containing function's own Arguments are themselves ExternalValues
// of any kernel that uses them (spec §4.4).
type Argument struct {
	metaCarrier
	valueBase
	Parent *Function
}

// NewArgument constructs a named, typed function parameter.
func NewArgument(name string, t Type) *Argument {
	a := &Argument{}
	a.name = name
	a.typ = t
	return a
}

// GlobalVariable is a module-level storage location. Package memrewrite
// synthesizes one GlobalVariable per promoted pointer operand.
type GlobalVariable struct {
	metaCarrier
	valueBase
	// Initializer is the global's initial value, nil if zero-initialized.
	Initializer Value
}

// NewGlobal constructs a named global of the given element type; its own
// Type() is PointerType{Elem: elem} since a global denotes a storage
// address.
func NewGlobal(name string, elem Type) *GlobalVariable {
	g := &GlobalVariable{}
	g.name = name
	g.typ = PointerType{Elem: elem}
	return g
}

func (g *GlobalVariable) Ident() string { return "@" + g.name }

// Constant is implemented by ConstInt and ConstNull: literal values with
// no defining instruction and no containing block.
type Constant interface {
	Value
	constMarker()
}

// ConstInt is an integer literal.
type ConstInt struct {
	valueBase
	Val int64
}

// NewConstInt constructs an integer literal of type t.
func NewConstInt(val int64, t Type) *ConstInt {
	c := &ConstInt{Val: val}
	c.typ = t
	return c
}

func (c *ConstInt) Ident() string   { return intToIdent(c.Val) }
func (c *ConstInt) constMarker()    {}
func (c *ConstInt) addUser(Instruction) {}
func (c *ConstInt) rmUser(Instruction)  {}

// ConstNull is the null/zero pointer literal.
type ConstNull struct {
	valueBase
}

// NewConstNull constructs the null constant of pointer type t.
func NewConstNull(t Type) *ConstNull {
	c := &ConstNull{}
	c.typ = t
	return c
}

func (c *ConstNull) Ident() string       { return "null" }
func (c *ConstNull) constMarker()        {}
func (c *ConstNull) addUser(Instruction) {}
func (c *ConstNull) rmUser(Instruction)  {}

func intToIdent(v int64) string {
	if v < 0 {
		return "-" + intToIdent(-v)
	}
	if v < 10 {
		return string(rune('0' + v))
	}
	return intToIdent(v/10) + intToIdent(v%10)
}
