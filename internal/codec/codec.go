// Package codec serializes cached values to and from bytes.
//
// The MetadataTable's column set is fixed at [hash, filename, sources,
// time_created, time_modified] — there is no codec column (§4.2). Instead
// every payload file is a small self-describing envelope: a codec ID
// followed by that codec's encoded bytes. The default is JSON, which
// round-trips anything encoding/json can already handle. registry.Process
// has no codec field: the executor writes every process result with the
// default JSON codec, and only direct callers of cache.Store.Put can pick
// another registered codec.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Codec encodes and decodes Go values for storage in the cache.
type Codec interface {
	ID() string
	Encode(v any) ([]byte, error)
	Decode(data []byte, out *any) error
}

const envelopeSeparator = '\n'

// Envelope wraps data with the ID of the codec that produced it, so a
// payload file is self-describing without widening the metadata schema.
func Envelope(id string, data []byte) []byte {
	buf := make([]byte, 0, len(id)+1+len(data))
	buf = append(buf, []byte(id)...)
	buf = append(buf, envelopeSeparator)
	buf = append(buf, data...)
	return buf
}

// SplitEnvelope separates a stored payload back into its codec ID and raw
// encoded bytes.
func SplitEnvelope(raw []byte) (id string, data []byte, err error) {
	idx := bytes.IndexByte(raw, envelopeSeparator)
	if idx < 0 {
		return "", nil, fmt.Errorf("codec: malformed payload envelope (no separator)")
	}
	return string(raw[:idx]), raw[idx+1:], nil
}

// JSON is the default codec: encoding/json over an empty-interface value.
// It round-trips anything produced by registered processes as long as it
// is built from the JSON data model (maps, slices, strings, numbers,
// bools, nil) — sufficient for the hyperparameter values and intermediate
// results this system moves through the cache.
type JSON struct{}

func (JSON) ID() string { return "json" }

func (JSON) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Decode(data []byte, out *any) error {
	return json.Unmarshal(data, out)
}

// Raw stores []byte values verbatim, with no encoding step. Used by
// CacheStore.AddFile, where the payload is already a file's raw bytes.
type Raw struct{}

func (Raw) ID() string { return "raw" }

func (Raw) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("codec: raw codec requires []byte, got %T", v)
	}
	return b, nil
}

func (Raw) Decode(data []byte, out *any) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	*out = cp
	return nil
}
