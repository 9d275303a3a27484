package ir

// metaCarrier is the generic string-keyed metadata bag shared by every
// node that can carry a tik annotation: BlockID, TikSynthetic,
// TikMetadata, KernelCall, KernelName. Modeled as a single map rather than
// one struct field per tag so that Finalizer (package finalize) can
// attach and iterate tags without every IR node growing a field for each
// concern that only some nodes ever use.
type metaCarrier struct {
	meta map[string]interface{}
}

// Meta returns the value stored under key and whether it was present.
func (c *metaCarrier) Meta(key string) (interface{}, bool) {
	if c.meta == nil {
		return nil, false
	}
	v, ok := c.meta[key]
	return v, ok
}

// SetMeta attaches a metadata tag. Overwrites any existing value under
// the same key.
func (c *metaCarrier) SetMeta(key string, val interface{}) {
	if c.meta == nil {
		c.meta = make(map[string]interface{})
	}
	c.meta[key] = val
}

// ClearMeta removes a metadata tag, used by finalize.stripDebugInfo.
func (c *metaCarrier) ClearMeta(key string) {
	delete(c.meta, key)
}

// MetaKeys lists the tags currently attached, for diagnostics.
func (c *metaCarrier) MetaKeys() []string {
	keys := make([]string, 0, len(c.meta))
	for k := range c.meta {
		keys = append(keys, k)
	}
	return keys
}

// Well-known metadata keys. blockid.Of/blockid.Set wrap the BlockID one;
// the rest are written directly by package finalize, and MetaKernelCall
// also by package kernel on nested-kernel call stubs.
const (
	MetaBlockID      = "tik.blockID"
	MetaTikSynthetic = "tik.synthetic"
	MetaTikMetadata  = "tik.metadata"
	MetaKernelCall   = "tik.kernelCall"
	MetaKernelName   = "tik.kernelName"
)
