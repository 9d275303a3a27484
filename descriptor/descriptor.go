// Package descriptor emits the JSON kernel descriptor spec §6 names as
// this tool's terminal output artifact: one record per built kernel
// naming its synthesized function, signature, entrance/exit ids, and a
// textual dump of every block, in the teacher's buildString-then-json
// convention (flowgraph/string.go builds text; this package wraps that
// text in a JSON envelope instead of printing it to a writer directly).
package descriptor

import (
	"encoding/json"
	"io"

	"github.com/tikforge/tik/kernel"
)

// Block is the textual dump of one synthesized block.
type Block struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Descriptor is the emitted record for one kernel.
type Descriptor struct {
	Name       string   `json:"name"`
	Signature  string   `json:"signature"`
	EntranceIDs []int   `json:"entranceIds"`
	ExitIDs    []int    `json:"exitIds"`
	Blocks     []Block  `json:"blocks"`
}

// Of builds the Descriptor for a successfully built kernel.
func Of(k *kernel.Kernel) Descriptor {
	d := Descriptor{
		Name:      k.Name,
		Signature: k.Function.Type().String(),
	}
	for i := range k.Region.Entrances {
		d.EntranceIDs = append(d.EntranceIDs, i)
	}
	for _, e := range k.Region.Exits {
		d.ExitIDs = append(d.ExitIDs, e.ID)
	}
	// Block text is emitted in the Function's own block order, which is
	// insertion order, not alphabetized — see DESIGN.md's note on the
	// original tool's sort(begin, begin) no-op.
	for _, b := range k.Function.Blocks {
		d.Blocks = append(d.Blocks, Block{Name: b.Name, Text: b.String()})
	}
	return d
}

// WriteAll marshals every built kernel's descriptor as a single JSON
// array to w.
func WriteAll(w io.Writer, kernels []*kernel.Kernel) error {
	var out []Descriptor
	for _, k := range kernels {
		if !k.Valid {
			continue
		}
		out = append(out, Of(k))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
