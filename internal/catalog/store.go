// Package catalog holds the bundled list of known border crossings. The
// list is read once at startup and never modified afterwards, so a Store
// is safe for concurrent use without locking.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/jsonc"

	"pasosd/internal/models"
	"pasosd/internal/providers"
	"pasosd/internal/structures"
)

var ErrEmptyCatalog = errors.New("catalog has no usable entries")

// LoadError reports a missing or malformed catalog file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading catalog %s: %s", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type StoreInterface interface {
	Entries() []models.CatalogEntry
	Len() int
}

type Store struct {
	entries []models.CatalogEntry
}

// fileEntry accepts both the English and the original Spanish spelling
// of the name field.
type fileEntry struct {
	ID     models.OptionalID `json:"id"`
	Name   string            `json:"name"`
	Nombre string            `json:"nombre"`
	URL    string            `json:"url"`
}

// NewStore returns a store holding entries in the given order.
func NewStore(entries []models.CatalogEntry) *Store {
	out := make([]models.CatalogEntry, len(entries))
	copy(out, entries)
	return &Store{entries: out}
}

// Parse decodes a JSON (or JSONC) array of catalog entries. Entries
// without a numeric id or a name, and repeated ids, are skipped and
// reported through skipped.
func Parse(data []byte) (entries []models.CatalogEntry, skipped []string, err error) {
	var raw []fileEntry
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, nil, fmt.Errorf("decoding catalog: %w", err)
	}

	seen := make(map[int]struct{}, len(raw))
	entries = make([]models.CatalogEntry, 0, len(raw))
	for i, fe := range raw {
		name := strings.TrimSpace(fe.Name)
		if name == "" {
			name = strings.TrimSpace(fe.Nombre)
		}
		switch {
		case !fe.ID.Valid:
			skipped = append(skipped, fmt.Sprintf("entry %d (%q): missing id", i, name))
			continue
		case name == "":
			skipped = append(skipped, fmt.Sprintf("entry %d (id %d): missing name", i, fe.ID.Value))
			continue
		}
		if _, dup := seen[fe.ID.Value]; dup {
			skipped = append(skipped, fmt.Sprintf("entry %d (%q): duplicate id %d", i, name, fe.ID.Value))
			continue
		}
		seen[fe.ID.Value] = struct{}{}

		entries = append(entries, models.CatalogEntry{
			ID:   fe.ID.Value,
			Name: name,
			URL:  strings.TrimSpace(fe.URL),
		})
	}

	if len(entries) == 0 {
		return nil, skipped, ErrEmptyCatalog
	}
	return entries, skipped, nil
}

// LoadFile reads and parses the catalog at path. Every failure is a *LoadError.
func LoadFile(path string, logger providers.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	entries, skipped, err := Parse(data)
	for _, s := range skipped {
		logger.Warnf(providers.TypeApp, "Catalog %s: skipped %s", path, s)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return NewStore(entries), nil
}

// NewCatalogProvider loads the configured catalog. A load failure is
// fatal when the catalog is required; otherwise the daemon starts with
// an empty store and reports the catalog as unavailable.
func NewCatalogProvider(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) (StoreInterface, error) {
	store, err := LoadFile(conf.Catalog.Path, logger)
	if err != nil {
		if conf.Catalog.Required {
			return nil, err
		}
		logger.Errorf(providers.TypeApp, "Starting without catalog: %s", err)
		store = NewStore(nil)
	} else {
		logger.Infof(providers.TypeApp, "Loaded %d crossings from %s", store.Len(), conf.Catalog.Path)
	}
	metrics.SetCatalogEntries(store.Len())
	return store, nil
}

// Entries returns the catalog in file order. The slice is shared and must
// not be modified.
func (s *Store) Entries() []models.CatalogEntry {
	return s.entries
}

func (s *Store) Len() int {
	return len(s.entries)
}
