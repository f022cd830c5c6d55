package codec

// Registry maps codec IDs to Codec implementations. A CacheStore consults
// it to decode a payload envelope back into a value; hosts may register
// additional codecs beyond JSON and Raw for process-specific formats.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry returns a Registry pre-populated with JSON and Raw, the two
// codecs the core system depends on directly.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	r.Register(JSON{})
	r.Register(Raw{})
	return r
}

// Register adds or replaces the codec under its own ID.
func (r *Registry) Register(c Codec) {
	r.codecs[c.ID()] = c
}

// Get looks up a codec by ID.
func (r *Registry) Get(id string) (Codec, bool) {
	c, ok := r.codecs[id]
	return c, ok
}
