package cache

// keyVersion is mixed into every key; bump it when the cached encoding changes.
const keyVersion = 1

// Keyer derives cache keys. Swapping the Keyer (see [ScopedKeyer]) isolates
// tenants that share a backend.
type Keyer interface {
	// MetadataKey addresses the resolved metadata of one document.
	MetadataKey(docHash string, opts MetadataKeyOpts) string

	// RenderKey addresses a rendered artifact of one document.
	RenderKey(docHash string, opts RenderKeyOpts) string
}

// MetadataKeyOpts lists the resolution options that change the result.
type MetadataKeyOpts struct {
	VendorNamespace string `json:"vendor_namespace"`
	Process         string `json:"process,omitempty"`
}

// RenderKeyOpts lists the render options that change the artifact.
type RenderKeyOpts struct {
	Format  string `json:"format"`
	Process string `json:"process,omitempty"`
	Lanes   bool   `json:"lanes"`
	Groups  bool   `json:"groups"`
	Data    bool   `json:"data"`
}

// DefaultKeyer produces "<kind>:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// MetadataKey implements [Keyer].
func (DefaultKeyer) MetadataKey(docHash string, opts MetadataKeyOpts) string {
	return hashKey("metadata", keyVersion, docHash, opts)
}

// RenderKey implements [Keyer].
func (DefaultKeyer) RenderKey(docHash string, opts RenderKeyOpts) string {
	return hashKey("render", keyVersion, docHash, opts)
}

var _ Keyer = DefaultKeyer{}
