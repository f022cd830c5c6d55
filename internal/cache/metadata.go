package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// MetadataTable is the persistent sidecar described in §4.2: a
// merge-on-write tabular store keyed by hash, serialized as a
// human-inspectable YAML file. Writes never replace a row outright; they
// merge per-column according to the rules below.
type MetadataTable struct {
	mu     sync.Mutex
	path   string
	rows   map[string]*Row
	logger *zap.Logger
}

// NewMetadataTable returns a table backed by path, which need not exist yet.
// A nil logger is replaced with a no-op logger.
func NewMetadataTable(path string, logger *zap.Logger) *MetadataTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataTable{
		path:   path,
		rows:   make(map[string]*Row),
		logger: logger,
	}
}

// Load reads the metadata file, if present, validating columns against the
// fixed schema and logging a SchemaWarning for anything unexpected. A
// missing file is not an error — it means an empty, freshly created cache.
func (t *MetadataTable) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache: reading metadata file: %w", err)
	}

	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("cache: parsing metadata file: %w", err)
	}

	for _, rawRow := range raw {
		row := t.rowFromRaw(rawRow)
		if row.Hash == "" {
			continue
		}
		t.rows[row.Hash] = row
	}
	return nil
}

// rowFromRaw converts one decoded YAML row into a validated Row, logging a
// SchemaWarning for unknown columns (dropped) and missing ones (defaulted),
// per §4.2 steps 1-3.
func (t *MetadataTable) rowFromRaw(raw map[string]any) *Row {
	for k := range raw {
		if !knownColumns[k] {
			t.logger.Warn("metadata: unknown column dropped",
				zap.String("column", k))
			delete(raw, k)
		}
	}

	row := &Row{}
	now := time.Now().UTC()

	if h, ok := raw["hash"].(string); ok {
		row.Hash = h
	} else {
		t.logger.Warn("metadata: row missing hash column, skipping")
		return row
	}

	if f, ok := raw["filename"].(string); ok && f != "" {
		row.Filename = f
	} else {
		t.logger.Warn("metadata: row missing filename column, defaulting to hash",
			zap.String("hash", row.Hash))
		row.Filename = row.Hash
	}

	if sVal, ok := raw["sources"]; ok {
		row.Sources = toStringSlice(sVal)
	} else {
		t.logger.Warn("metadata: row missing sources column, defaulting to empty",
			zap.String("hash", row.Hash))
	}

	if tc, ok := raw["time_created"]; ok {
		if parsed, ok := parseTime(tc); ok {
			row.TimeCreated = parsed
		}
	}
	if row.TimeCreated.IsZero() {
		t.logger.Warn("metadata: row missing time_created column, defaulting to now",
			zap.String("hash", row.Hash))
		row.TimeCreated = now
	}

	if tm, ok := raw["time_modified"]; ok {
		if parsed, ok := parseTime(tm); ok {
			row.TimeModified = parsed
		}
	}
	if row.TimeModified.IsZero() {
		t.logger.Warn("metadata: row missing time_modified column, defaulting to now",
			zap.String("hash", row.Hash))
		row.TimeModified = now
	}

	return row
}

func toStringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func parseTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// Merge upserts incoming, applying §4.2's per-column merge rules keyed by
// hash: sources union, time_created takes the min, time_modified takes the
// max, filename and other scalars let the new value win unless it is the
// zero value.
func (t *MetadataTable) Merge(incoming Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mergeLocked(incoming)
}

func (t *MetadataTable) mergeLocked(incoming Row) {
	existing, ok := t.rows[incoming.Hash]
	if !ok {
		cp := incoming
		if cp.Filename == "" {
			cp.Filename = cp.Hash
		}
		if cp.TimeCreated.IsZero() {
			cp.TimeCreated = incoming.TimeModified
		}
		t.rows[incoming.Hash] = &cp
		return
	}

	if incoming.Filename != "" {
		existing.Filename = incoming.Filename
	}
	for _, s := range incoming.Sources {
		existing.addSource(s)
	}
	if !incoming.TimeCreated.IsZero() && incoming.TimeCreated.Before(existing.TimeCreated) {
		existing.TimeCreated = incoming.TimeCreated
	}
	if !incoming.TimeModified.IsZero() && incoming.TimeModified.After(existing.TimeModified) {
		existing.TimeModified = incoming.TimeModified
	}
}

// Get returns a copy of the row for hash, if present.
func (t *MetadataTable) Get(hash string) (Row, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows[hash]
	if !ok {
		return Row{}, false
	}
	return *r, true
}

// Delete removes the row for hash, used by sync() when a payload file has
// gone missing out-of-band.
func (t *MetadataTable) Delete(hash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, hash)
}

// KeysBy returns every hash whose column attr equals value. Only "filename"
// and "sources" are meaningful query attributes in this system.
func (t *MetadataTable) KeysBy(attr, value string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var hashes []string
	for hash, row := range t.rows {
		switch attr {
		case "filename":
			if row.Filename == value {
				hashes = append(hashes, hash)
			}
		case "sources":
			for _, s := range row.Sources {
				if s == value {
					hashes = append(hashes, hash)
					break
				}
			}
		}
	}
	sort.Strings(hashes)
	return hashes
}

// All returns every row, sorted by hash for deterministic iteration.
func (t *MetadataTable) All() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// Save writes the table back to disk, one row per object, sorted by hash so
// that unrelated re-saves don't produce spurious diffs. It writes to a
// temporary file and renames over the target, matching the cancellation
// story in §5 (the metadata file is rewritten atomically).
func (t *MetadataTable) Save() error {
	t.mu.Lock()
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, *r)
	}
	t.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].Hash < rows[j].Hash })

	data, err := yaml.Marshal(rows)
	if err != nil {
		return fmt.Errorf("cache: marshaling metadata: %w", err)
	}

	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, ".metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: creating temp metadata file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: writing temp metadata file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cache: syncing temp metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: closing temp metadata file: %w", err)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cache: renaming temp metadata file: %w", err)
	}
	return nil
}
