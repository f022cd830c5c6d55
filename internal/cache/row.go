package cache

import "time"

// Row is one record of the MetadataTable, the sidecar that maps a content
// hash to where it lives on disk and where it came from. The column set is
// fixed: hash, filename, sources, time_created, time_modified (§4.2); a
// reimplementation must never widen it, even to carry a codec ID (see
// internal/codec for how payloads self-describe that instead).
type Row struct {
	Hash         string    `yaml:"hash"`
	Filename     string    `yaml:"filename"`
	Sources      []string  `yaml:"sources"`
	TimeCreated  time.Time `yaml:"time_created"`
	TimeModified time.Time `yaml:"time_modified"`
}

// knownColumns lists every recognized column name, used to detect schema
// drift in hand-edited or externally produced metadata files.
var knownColumns = map[string]bool{
	"hash":          true,
	"filename":      true,
	"sources":       true,
	"time_created":  true,
	"time_modified": true,
}

// addSource unions label into Sources, preserving set semantics: a label
// already present is a no-op (§4.1 "repeated put with the same label is
// idempotent").
func (r *Row) addSource(label string) {
	if label == "" {
		return
	}
	for _, s := range r.Sources {
		if s == label {
			return
		}
	}
	r.Sources = append(r.Sources, label)
}
