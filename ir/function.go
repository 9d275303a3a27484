package ir

// Function is a named sequence of BasicBlocks with a parameter list and
// return type. A Function with no Blocks is an external declaration
// (spec §4.8's "export external function declarations" refers to exactly
// these: functions called from inside a kernel but not itself defined by
// it).
type Function struct {
	metaCarrier
	Name    string
	Params  []*Argument
	RetType Type
	Blocks  []*BasicBlock
	Module  *Module

	ref *FunctionRef
}

// NewFunction constructs a function named name with the given parameters
// and return type, owned by mod.
func NewFunction(name string, params []*Argument, ret Type, mod *Module) *Function {
	f := &Function{Name: name, Params: params, RetType: ret, Module: mod}
	for _, p := range params {
		p.Parent = f
	}
	return f
}

// Type returns the function's FuncType.
func (f *Function) Type() Type {
	ts := make([]Type, len(f.Params))
	for i, p := range f.Params {
		ts[i] = p.Type()
	}
	return FuncType{Params: ts, Ret: f.RetType}
}

// External reports whether f is a declaration with no body.
func (f *Function) External() bool { return len(f.Blocks) == 0 }

// AddBlock appends an already-constructed block to the function.
func (f *Function) AddBlock(b *BasicBlock) {
	b.Parent = f
	f.Blocks = append(f.Blocks, b)
}

// Entry returns the function's first block, nil if it has none.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Ref returns the FunctionRef Value that names f as a callable, used as
// a Call's or Invoke's Callee operand. Cached so repeated calls return
// the same identity, which matters for operand-equality comparisons
// during cloning/substitution.
func (f *Function) Ref() *FunctionRef {
	if f.ref == nil {
		f.ref = &FunctionRef{Fn: f}
		f.ref.typ = f.Type()
	}
	return f.ref
}

// FunctionRef is the Value naming a Function as a callable operand. It
// is not itself an Instruction: referencing a function, unlike calling
// it, produces no instruction in any block.
type FunctionRef struct {
	valueBase
	Fn *Function
}

func (r *FunctionRef) Ident() string       { return "@" + r.Fn.Name }
func (r *FunctionRef) addUser(Instruction) {}
func (r *FunctionRef) rmUser(Instruction)  {}
