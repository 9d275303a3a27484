package ir

// Module is the top-level IR container: every Function (defined or
// declared-external) and every GlobalVariable the analysis can see.
type Module struct {
	Name    string
	Funcs   []*Function
	Globals []*GlobalVariable
}

// NewModule constructs an empty, named module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddFunc appends fn to the module, setting its back-reference.
func (m *Module) AddFunc(fn *Function) {
	fn.Module = m
	m.Funcs = append(m.Funcs, fn)
}

// AddGlobal appends g to the module's global list.
func (m *Module) AddGlobal(g *GlobalVariable) {
	m.Globals = append(m.Globals, g)
}

// FindFunc returns the function named name, nil if none exists.
func (m *Module) FindFunc(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FindGlobal returns the global named name, nil if none exists.
func (m *Module) FindGlobal(name string) *GlobalVariable {
	for _, g := range m.Globals {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

// Blocks returns every BasicBlock in every defined Function of the
// module, in function-then-block order. Package blockid uses this to
// build its BlockID -> *BasicBlock index.
func (m *Module) Blocks() []*BasicBlock {
	var out []*BasicBlock
	for _, f := range m.Funcs {
		out = append(out, f.Blocks...)
	}
	return out
}
