package cache

// ScopedKeyer wraps a Keyer with a prefix so several tenants or deployments
// can share one Redis instance without seeing each other's entries.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// MetadataKey implements [Keyer].
func (k *ScopedKeyer) MetadataKey(docHash string, opts MetadataKeyOpts) string {
	return k.prefix + k.inner.MetadataKey(docHash, opts)
}

// RenderKey implements [Keyer].
func (k *ScopedKeyer) RenderKey(docHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(docHash, opts)
}
