package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"hyperlab/internal/codec"
)

// Store is a content-addressed file store with a MetadataTable sidecar
// (§4.1). Exactly one Store should operate on a given directory at a time
// (§5); the mutex here only serializes calls within a single process, it
// makes no cross-process claim.
type Store struct {
	mu       sync.Mutex
	dir      string
	meta     *MetadataTable
	codecs   *codec.Registry
	logger   *zap.Logger
	defaultC codec.Codec
}

// Open loads (or initializes) a cache directory at dir.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating cache dir: %w", err)
	}

	meta := NewMetadataTable(filepath.Join(dir, "metadata.yaml"), logger)
	if err := meta.Load(); err != nil {
		return nil, err
	}

	codecs := codec.NewRegistry()
	defaultC, _ := codecs.Get("json")

	return &Store{
		dir:      dir,
		meta:     meta,
		codecs:   codecs,
		logger:   logger,
		defaultC: defaultC,
	}, nil
}

// Codecs exposes the codec registry so a host can register additional
// codecs. Get decodes any payload whose envelope names a registered codec;
// the executor itself always writes with the default JSON codec.
func (s *Store) Codecs() *codec.Registry { return s.codecs }

// Has reports whether hash has a metadata row. Pure read, no disk I/O
// beyond what Load already did.
func (s *Store) Has(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.meta.Get(hash)
	return ok
}

// Get resolves hash to its stored value. NotFound if the row is absent or
// the payload file is missing; CorruptObject if the payload fails to
// decode.
func (s *Store) Get(hash string) (any, error) {
	s.mu.Lock()
	row, ok := s.meta.Get(hash)
	s.mu.Unlock()
	if !ok {
		return nil, &NotFoundError{Hash: hash}
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, row.Filename))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Hash: hash}
	}
	if err != nil {
		return nil, fmt.Errorf("cache: reading payload for %s: %w", hash, err)
	}

	id, data, err := codec.SplitEnvelope(raw)
	if err != nil {
		return nil, &CorruptObjectError{Hash: hash, Err: err}
	}
	c, ok := s.codecs.Get(id)
	if !ok {
		return nil, &CorruptObjectError{Hash: hash, Err: fmt.Errorf("unknown codec %q", id)}
	}

	var value any
	if err := c.Decode(data, &value); err != nil {
		return nil, &CorruptObjectError{Hash: hash, Err: err}
	}
	return value, nil
}

// Put writes value under hash, using c to encode the payload (the JSON
// default if c is nil). If a row already exists for hash, the payload file
// is rewritten in place, time_modified advances, and sourceLabel (if
// non-empty) is unioned into sources. Otherwise a new row is created with
// filename equal to hash — rename assigns a human-readable name later.
func (s *Store) Put(hash string, value any, sourceLabel string, c codec.Codec) error {
	if c == nil {
		c = s.defaultC
	}

	data, err := c.Encode(value)
	if err != nil {
		return fmt.Errorf("cache: encoding value for %s: %w", hash, err)
	}
	envelope := codec.Envelope(c.ID(), data)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, existed := s.meta.Get(hash)

	filename := hash
	if existed {
		filename = existing.Filename
	}

	if err := os.WriteFile(filepath.Join(s.dir, filename), envelope, 0o644); err != nil {
		return fmt.Errorf("cache: writing payload for %s: %w", hash, err)
	}

	row := Row{
		Hash:         hash,
		Filename:     filename,
		TimeModified: now,
	}
	if !existed {
		row.TimeCreated = now
	}
	if sourceLabel != "" {
		row.Sources = []string{sourceLabel}
	}
	s.meta.mergeLocked(row)

	return s.meta.Save()
}

// AddFile ingests an external file verbatim: the hash is its basename, the
// filename is preserved, and the payload is a byte-for-byte copy wrapped in
// the raw codec's envelope.
func (s *Store) AddFile(path string) (hash string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cache: reading file to ingest: %w", err)
	}
	filename := filepath.Base(path)
	hash = filename

	rawCodec, _ := s.codecs.Get("raw")
	envelope := codec.Envelope(rawCodec.ID(), data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(s.dir, filename), envelope, 0o644); err != nil {
		return "", fmt.Errorf("cache: writing ingested payload: %w", err)
	}

	now := time.Now().UTC()
	s.meta.mergeLocked(Row{
		Hash:         hash,
		Filename:     filename,
		TimeCreated:  now,
		TimeModified: now,
	})
	if err := s.meta.Save(); err != nil {
		return "", err
	}
	return hash, nil
}

// KeysBy returns every hash whose metadata attribute attr equals value.
func (s *Store) KeysBy(attr, value string) []string {
	return s.meta.KeysBy(attr, value)
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func slug(label string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(label), "_"), "_")
}

// CanonicalFilename computes the filename Rename should assign: the slug of
// the first source label plus an 8-hex-character prefix of hash, or the
// raw hash if there is no source label. §9's open question on filename
// collisions is resolved here by using 8 hex characters, not 4.
func CanonicalFilename(hash string, sources []string) string {
	if len(sources) == 0 {
		return hash
	}
	prefixLen := 8
	if len(hash) < prefixLen {
		prefixLen = len(hash)
	}
	s := slug(sources[0])
	if s == "" {
		return hash
	}
	return fmt.Sprintf("%s_%s", s, hash[:prefixLen])
}

// Rename assigns newFilename to the object under hash: writes a new file,
// fsyncs it, updates the sidecar, then removes the old file. NotFound if
// hash is unknown.
func (s *Store) Rename(hash, newFilename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.meta.Get(hash)
	if !ok {
		return &NotFoundError{Hash: hash}
	}
	if row.Filename == newFilename {
		return nil
	}

	oldPath := filepath.Join(s.dir, row.Filename)
	newPath := filepath.Join(s.dir, newFilename)

	data, err := os.ReadFile(oldPath)
	if err != nil {
		return fmt.Errorf("cache: reading payload to rename: %w", err)
	}

	f, err := os.OpenFile(newPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("cache: creating renamed payload: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("cache: writing renamed payload: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("cache: syncing renamed payload: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cache: closing renamed payload: %w", err)
	}

	oldFilename := row.Filename
	s.meta.mergeLocked(Row{Hash: hash, Filename: newFilename, TimeModified: time.Now().UTC()})
	if err := s.meta.Save(); err != nil {
		return err
	}

	if oldFilename != newFilename {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("cache: removing old payload after rename: %w", err)
		}
	}
	return nil
}

// Sync reconciles the MetadataTable against what is actually on disk.
// Rows whose file has vanished are dropped; files not referenced by any row
// are adopted under a new row keyed by their own filename.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("cache: reading cache dir: %w", err)
	}

	onDisk := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() || e.Name() == "metadata.yaml" || strings.HasPrefix(e.Name(), ".metadata-") {
			continue
		}
		onDisk[e.Name()] = true
	}

	for _, row := range s.meta.All() {
		if !onDisk[row.Filename] {
			s.meta.Delete(row.Hash)
		}
	}

	referenced := make(map[string]bool)
	for _, row := range s.meta.All() {
		referenced[row.Filename] = true
	}

	now := time.Now().UTC()
	for filename := range onDisk {
		if referenced[filename] {
			continue
		}
		s.meta.mergeLocked(Row{
			Hash:         filename,
			Filename:     filename,
			TimeCreated:  now,
			TimeModified: now,
		})
	}

	return s.meta.Save()
}

// Metadata exposes the underlying table for read-only inspection (e.g. by
// the executor's has_run pass).
func (s *Store) Metadata() *MetadataTable { return s.meta }

// Dir returns the cache directory path.
func (s *Store) Dir() string { return s.dir }
