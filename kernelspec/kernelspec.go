// Package kernelspec loads the input JSON mapping kernel names to the
// block ids that make them up: { "kernelName": [blockId, ...], ... }
// (spec §6). The mapping-authoring tool that produces this file is out
// of scope; this package only parses and validates it.
package kernelspec

import (
	"encoding/json"
	"io"
	"sort"

	"tlog.app/go/errors"

	"github.com/tikforge/tik/blockid"
)

// Spec is one parsed kernel request.
type Spec struct {
	Name string
	IDs  []blockid.ID
}

// Load parses r as the kernel spec JSON, returning one Spec per key,
// sorted by kernel name; the order keys were declared in the source file
// is not preserved. Returns an error if
// the JSON is malformed, a value is empty, or the same block id appears
// under more than one kernel name.
func Load(r io.Reader) ([]Spec, error) {
	var raw map[string][]int64
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "kernelspec: decoding JSON")
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[blockid.ID]string)
	var specs []Spec
	for _, name := range names {
		ids := raw[name]
		if len(ids) == 0 {
			return nil, errors.New("kernelspec: kernel " + name + " names no blocks")
		}
		var spec Spec
		spec.Name = name
		for _, id := range ids {
			bid := blockid.ID(id)
			if owner, ok := seen[bid]; ok {
				return nil, errors.New("kernelspec: block id claimed by both " + owner + " and " + name)
			}
			seen[bid] = name
			spec.IDs = append(spec.IDs, bid)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
