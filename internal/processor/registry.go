package processor

import (
	"fmt"
	"sync"
)

// Registry maps operation names to processors and indexes them by the content
// types they accept. Registration happens at startup; lookups are concurrent.
type Registry struct {
	processors   map[string]Processor
	contentTypes map[string][]Processor
	mu           sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		processors:   make(map[string]Processor),
		contentTypes: make(map[string][]Processor),
	}
}

func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.processors[p.Name()] = p
	for _, ct := range p.SupportedTypes() {
		r.contentTypes[ct] = append(r.contentTypes[ct], p)
	}
}

func (r *Registry) Get(name string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[name]
	if !ok {
		return nil, fmt.Errorf("%w: no processor named %q", ErrUnsupportedType, name)
	}
	return p, nil
}

// Accepts reports whether any registered processor handles the content type.
func (r *Registry) Accepts(contentType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.contentTypes[contentType]) > 0
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.processors))
	for name := range r.processors {
		names = append(names, name)
	}
	return names
}
