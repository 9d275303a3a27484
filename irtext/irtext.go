// Package irtext is this module's substitute for the out-of-scope LLVM
// bitcode reader/writer spec.md treats as an external collaborator
// (spec §1). Since the module being analyzed is built from this
// project's own ir package rather than LLVM, irtext defines a small,
// round-trippable JSON encoding of an *ir.Module instead of a bitcode
// parser, and a matching writer — the concrete stand-in the data-flow
// diagram's "compiled module" box needs to become a real file.
package irtext

import (
	"encoding/json"
	"io"

	"tlog.app/go/errors"

	"github.com/tikforge/tik/blockid"
	"github.com/tikforge/tik/ir"
)

// wireType is the serializable form of an ir.Type.
type wireType struct {
	Kind string    `json:"kind"` // "int", "void", "ptr", "func"
	Bits int       `json:"bits,omitempty"`
	Elem *wireType `json:"elem,omitempty"`
	Params []wireType `json:"params,omitempty"`
	Ret  *wireType `json:"ret,omitempty"`
}

func encodeType(t ir.Type) wireType {
	switch v := t.(type) {
	case ir.IntType:
		return wireType{Kind: "int", Bits: v.Bits}
	case ir.VoidType:
		return wireType{Kind: "void"}
	case ir.PointerType:
		e := encodeType(v.Elem)
		return wireType{Kind: "ptr", Elem: &e}
	case ir.FuncType:
		w := wireType{Kind: "func"}
		for _, p := range v.Params {
			w.Params = append(w.Params, encodeType(p))
		}
		r := encodeType(v.Ret)
		w.Ret = &r
		return w
	default:
		return wireType{Kind: "void"}
	}
}

func decodeType(w wireType) ir.Type {
	switch w.Kind {
	case "int":
		return ir.IntType{Bits: w.Bits}
	case "ptr":
		return ir.PointerType{Elem: decodeType(*w.Elem)}
	case "func":
		ft := ir.FuncType{Ret: decodeType(*w.Ret)}
		for _, p := range w.Params {
			ft.Params = append(ft.Params, decodeType(p))
		}
		return ft
	default:
		return ir.Void
	}
}

// wireModule is the top-level on-disk shape.
type wireModule struct {
	Name    string       `json:"name"`
	Globals []wireGlobal `json:"globals"`
	Funcs   []wireFunc   `json:"funcs"`
}

type wireGlobal struct {
	Name string   `json:"name"`
	Elem wireType `json:"elem"`
}

type wireFunc struct {
	Name    string      `json:"name"`
	Params  []wireParam `json:"params"`
	Ret     wireType    `json:"ret"`
	Blocks  []wireBlock `json:"blocks,omitempty"`
}

type wireParam struct {
	Name string   `json:"name"`
	Type wireType `json:"type"`
}

type wireBlock struct {
	Name    string   `json:"name"`
	BlockID *int64   `json:"blockId,omitempty"`
	Instrs  []string `json:"instrs"`
}

// Write serializes mod to w as indented JSON. It emits a textual dump of
// each block's instructions (the same String() text package descriptor
// reuses) rather than a structured instruction encoding, since irtext's
// only job is to round-trip a module *as a file a CLI invocation can
// point -i at* for demonstration and test fixtures, not to be a second
// IR — a real bitcode reader is explicitly out of scope (spec §1).
func Write(w io.Writer, mod *ir.Module) error {
	var wm wireModule
	wm.Name = mod.Name
	for _, g := range mod.Globals {
		wm.Globals = append(wm.Globals, wireGlobal{Name: g.Name(), Elem: encodeType(elemOf(g))})
	}
	for _, f := range mod.Funcs {
		wf := wireFunc{Name: f.Name, Ret: encodeType(f.RetType)}
		for _, p := range f.Params {
			wf.Params = append(wf.Params, wireParam{Name: p.Name(), Type: encodeType(p.Type())})
		}
		for _, b := range f.Blocks {
			wb := wireBlock{Name: b.Name}
			if id, ok := blockid.Of(b); ok {
				v := int64(id)
				wb.BlockID = &v
			}
			for _, in := range b.Instrs {
				wb.Instrs = append(wb.Instrs, in.String())
			}
			wf.Blocks = append(wf.Blocks, wb)
		}
		wm.Funcs = append(wm.Funcs, wf)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(wm)
}

func elemOf(g *ir.GlobalVariable) ir.Type {
	if p, ok := g.Type().(ir.PointerType); ok {
		return p.Elem
	}
	return ir.I64
}

// Shell reads r and returns a Module with every function/global/block
// declared by name and signature, with BlockIDs reattached, but with
// each block's body left empty: the instruction text irtext writes is
// for human/diagnostic round-tripping only, not a format this reader
// re-parses into live instructions (doing so would mean writing the
// grammar/parser spec.md scopes out — see DESIGN.md's dropped-peggy
// entry). Tests build live instruction bodies directly against package
// ir instead of through this reader.
func Shell(r io.Reader) (*ir.Module, error) {
	var wm wireModule
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wm); err != nil {
		return nil, errors.Wrap(err, "irtext: decoding module shell")
	}
	mod := ir.NewModule(wm.Name)
	for _, wg := range wm.Globals {
		mod.AddGlobal(ir.NewGlobal(wg.Name, decodeType(wg.Elem)))
	}
	for _, wf := range wm.Funcs {
		var params []*ir.Argument
		for _, wp := range wf.Params {
			params = append(params, ir.NewArgument(wp.Name, decodeType(wp.Type)))
		}
		fn := ir.NewFunction(wf.Name, params, decodeType(wf.Ret), mod)
		for _, wb := range wf.Blocks {
			b := ir.NewBlock(wb.Name, fn)
			if wb.BlockID != nil {
				blockid.Set(b, blockid.ID(*wb.BlockID))
			}
			fn.AddBlock(b)
		}
		mod.AddFunc(fn)
	}
	return mod, nil
}
