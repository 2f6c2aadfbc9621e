package cache

// ScopedKeyer prefixes every key of an inner Keyer, so several shows (or
// users of one server) can share a backend without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "show:2025:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner. A nil inner uses the DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) AllocationKey(controller, modelsHash string, opts AllocationKeyOpts) string {
	return k.prefix + k.inner.AllocationKey(controller, modelsHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(diagramHash, opts)
}
