package ir

import "strings"

// String renders a block's instructions as a textual dump, one
// instruction per line, terminator last. Package descriptor embeds this
// text verbatim as each kernel block's "string dump" field (spec §6).
func (b *BasicBlock) String() string {
	var sb strings.Builder
	sb.WriteString(b.Name)
	sb.WriteString(":\n")
	for _, in := range b.Instrs {
		sb.WriteString("  ")
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// String renders a function's signature and every block in order.
func (f *Function) String() string {
	var sb strings.Builder
	sb.WriteString("func ")
	sb.WriteString(f.Name)
	sb.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name())
		sb.WriteByte(' ')
		sb.WriteString(p.Type().String())
	}
	sb.WriteString(") ")
	sb.WriteString(f.RetType.String())
	if f.External() {
		sb.WriteString(" (external)\n")
		return sb.String()
	}
	sb.WriteString(" {\n")
	for _, blk := range f.Blocks {
		sb.WriteString(blk.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

// String renders every function and global of the module.
func (m *Module) String() string {
	var sb strings.Builder
	for _, g := range m.Globals {
		sb.WriteString("global ")
		sb.WriteString(g.Ident())
		sb.WriteByte(' ')
		sb.WriteString(g.typ.String())
		sb.WriteByte('\n')
	}
	for _, f := range m.Funcs {
		sb.WriteString(f.String())
	}
	return sb.String()
}
