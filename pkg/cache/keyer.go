package cache

import "strings"

// Keyer builds cache keys.
type Keyer interface {
	// AllocationKey identifies the allocation of one controller's models.
	AllocationKey(controller, modelsHash string, opts AllocationKeyOpts) string

	// ArtifactKey identifies a rendered diagram.
	ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string
}

// AllocationKeyOpts are the allocation settings that change the result.
type AllocationKeyOpts struct {
	Strategy     string `json:"strategy"`
	Rule         string `json:"rule"`
	Differential bool   `json:"differential"`
}

// ArtifactKeyOpts are the render settings that change the output.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Detail bool   `json:"detail,omitempty"`
}

// DefaultKeyer hashes every input into the key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) AllocationKey(controller, modelsHash string, opts AllocationKeyOpts) string {
	return hashKey("alloc", strings.ToLower(controller), modelsHash, opts)
}

func (DefaultKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", diagramHash, opts)
}

var _ Keyer = DefaultKeyer{}
