package metadata

import "sync"

// Registry holds the current schema document for the host process. Readers get
// clones; writers replace the document wholesale.
type Registry struct {
	mu       sync.RWMutex
	schema   *Schema
	revision int
}

func NewRegistry() *Registry {
	return &Registry{schema: NewSchema()}
}

// Current returns a deep copy of the current document.
func (r *Registry) Current() *Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schema.Clone()
}

// Revision returns the number of times the document has been replaced.
func (r *Registry) Revision() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revision
}

// Load replaces the document and bumps the revision. The registry takes
// ownership of s; callers must not mutate it afterwards.
func (r *Registry) Load(s *Schema) int {
	if s == nil {
		s = NewSchema()
	}
	s.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schema = s
	r.revision++
	return r.revision
}

// Restore replaces the document at an explicit revision, used when resuming
// from a persisted snapshot.
func (r *Registry) Restore(s *Schema, revision int) {
	if s == nil {
		s = NewSchema()
	}
	s.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schema = s
	r.revision = revision
}
