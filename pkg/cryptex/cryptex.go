// Package cryptex implements the name-mapping registry: a persistent
// dictionary that pairs internal function names with external branding
// names, with uniqueness enforced on both and ranked substring search.
//
// Entries live in the transactional key-value store under three buckets:
// the primary record keyed by id plus two secondary indices keyed by
// function name and branding name. All mutations update the record and both
// indices inside one transaction, so readers never observe a half-indexed
// entry.
package cryptex

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/metrics"
	"github.com/routersec/cryptex-core/pkg/store"
)

const (
	bucketEntries    = "cryptex"
	bucketByFunction = "cryptex_fn"
	bucketByBranding = "cryptex_brand"
)

// Category classifies a registry entry. The set is closed; unknown values
// are rejected at write time.
type Category uint8

const (
	// CategoryAny is not a valid entry category; it is the search filter
	// value meaning "no category filter".
	CategoryAny Category = iota

	CategoryExploit
	CategoryScanner
	CategoryCredential
	CategoryUtility
	CategoryOther
)

var categoryNames = map[Category]string{
	CategoryExploit:    "exploit",
	CategoryScanner:    "scanner",
	CategoryCredential: "credential",
	CategoryUtility:    "utility",
	CategoryOther:      "other",
}

// String returns the lowercase category name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// IsSupported reports whether c names a valid entry category.
func (c Category) IsSupported() bool {
	_, ok := categoryNames[c]
	return ok
}

// ParseCategory resolves a case-insensitive category name.
func ParseCategory(name string) (Category, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for c, n := range categoryNames {
		if n == needle {
			return c, nil
		}
	}
	return CategoryAny, qerrors.NewStoreError("cryptex.ParseCategory", name,
		fmt.Errorf("%w: unknown category %q", qerrors.ErrValidation, name))
}

// MarshalText stores categories by name so records stay readable.
func (c Category) MarshalText() ([]byte, error) {
	if !c.IsSupported() {
		return nil, fmt.Errorf("%w: unknown category %d", qerrors.ErrValidation, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Entry is one registry record.
type Entry struct {
	// ID is assigned by the registry on Add and never changes.
	ID string `json:"id"`

	// FunctionName is the internal name; unique across the registry.
	FunctionName string `json:"function_name"`

	// BrandingName is the external name; unique across the registry.
	BrandingName string `json:"branding_name"`

	// PseudoCode describes what the named function does.
	PseudoCode string `json:"pseudo_code"`

	Category Category `json:"category"`

	// NativeImpl and ReferenceImpl are optional implementation-path
	// references.
	NativeImpl    string `json:"native_impl,omitempty"`
	ReferenceImpl string `json:"reference_impl,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Entry) validate(op string) error {
	switch {
	case e == nil:
		return qerrors.NewStoreError(op, "", qerrors.ErrValidation)
	case e.FunctionName == "":
		return qerrors.NewStoreError(op, "", fmt.Errorf("%w: empty function_name", qerrors.ErrValidation))
	case e.BrandingName == "":
		return qerrors.NewStoreError(op, e.FunctionName, fmt.Errorf("%w: empty branding_name", qerrors.ErrValidation))
	case !e.Category.IsSupported():
		return qerrors.NewStoreError(op, e.FunctionName,
			fmt.Errorf("%w: unknown category %d", qerrors.ErrValidation, uint8(e.Category)))
	}
	return nil
}

// record is the versioned on-disk envelope.
type record struct {
	Version int    `json:"v"`
	Entry   *Entry `json:"entry"`
}

// Registry is the persistent name-mapping dictionary.
type Registry struct {
	kv     *store.KV
	now    func() time.Time
	logger *metrics.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the structured logger.
func WithLogger(l *metrics.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry over kv.
func NewRegistry(kv *store.KV, opts ...Option) *Registry {
	r := &Registry{
		kv:     kv,
		now:    time.Now,
		logger: metrics.NewLogger(metrics.WithLevel(metrics.LevelWarn)).Named("cryptex"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add inserts a new entry. The primary record and both name indices are
// written in one transaction; a function or branding name already present
// anywhere in the registry fails the whole insert with the duplicate-key
// sentinel naming the colliding field.
func (r *Registry) Add(ctx context.Context, e *Entry) error {
	const op = "cryptex.Add"
	if err := e.validate(op); err != nil {
		return err
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := r.now()
	e.CreatedAt = now
	e.UpdatedAt = now

	err := r.kv.Update(ctx, func(tx *store.Tx) error {
		if _, err := tx.Get(bucketByFunction, e.FunctionName); err == nil {
			return qerrors.NewStoreError(op, e.FunctionName,
				fmt.Errorf("%w: function_name %q", qerrors.ErrDuplicate, e.FunctionName))
		} else if !qerrors.Is(err, qerrors.ErrNotFound) {
			return err
		}
		if _, err := tx.Get(bucketByBranding, e.BrandingName); err == nil {
			return qerrors.NewStoreError(op, e.BrandingName,
				fmt.Errorf("%w: branding_name %q", qerrors.ErrDuplicate, e.BrandingName))
		} else if !qerrors.Is(err, qerrors.ErrNotFound) {
			return err
		}
		return r.writeEntry(tx, e)
	})
	if err != nil {
		return err
	}

	r.logger.Debug("entry added", metrics.Fields{"id": e.ID, "function_name": e.FunctionName})
	return nil
}

// Get loads an entry by id.
func (r *Registry) Get(ctx context.Context, id string) (*Entry, error) {
	var entry *Entry
	err := r.kv.View(ctx, func(tx *store.Tx) error {
		e, err := getEntry(tx, id)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// GetByFunctionName loads an entry via the function-name index.
func (r *Registry) GetByFunctionName(ctx context.Context, name string) (*Entry, error) {
	return r.getByIndex(ctx, bucketByFunction, name)
}

// GetByBrandingName loads an entry via the branding-name index.
func (r *Registry) GetByBrandingName(ctx context.Context, name string) (*Entry, error) {
	return r.getByIndex(ctx, bucketByBranding, name)
}

func (r *Registry) getByIndex(ctx context.Context, bucket, name string) (*Entry, error) {
	var entry *Entry
	err := r.kv.View(ctx, func(tx *store.Tx) error {
		id, err := tx.Get(bucket, name)
		if err != nil {
			return err
		}
		e, err := getEntry(tx, string(id))
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	return entry, err
}

// Update replaces the stored entry with e, matched by id. ID and CreatedAt
// are preserved from the stored record, UpdatedAt is stamped, and name
// indices are rewritten if the names changed, with uniqueness re-checked on
// the new names.
func (r *Registry) Update(ctx context.Context, e *Entry) error {
	const op = "cryptex.Update"
	if err := e.validate(op); err != nil {
		return err
	}
	if e.ID == "" {
		return qerrors.NewStoreError(op, "", fmt.Errorf("%w: empty id", qerrors.ErrValidation))
	}

	return r.kv.Update(ctx, func(tx *store.Tx) error {
		prev, err := getEntry(tx, e.ID)
		if err != nil {
			return err
		}

		if e.FunctionName != prev.FunctionName {
			if err := moveIndex(tx, op, bucketByFunction, "function_name", prev.FunctionName, e.FunctionName, e.ID); err != nil {
				return err
			}
		}
		if e.BrandingName != prev.BrandingName {
			if err := moveIndex(tx, op, bucketByBranding, "branding_name", prev.BrandingName, e.BrandingName, e.ID); err != nil {
				return err
			}
		}

		e.CreatedAt = prev.CreatedAt
		e.UpdatedAt = r.now()

		data, err := encode(e)
		if err != nil {
			return err
		}
		return tx.Put(bucketEntries, e.ID, data)
	})
}

// Delete removes an entry and its name indices. An unknown id reports
// not-found.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.kv.Update(ctx, func(tx *store.Tx) error {
		e, err := getEntry(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(bucketByFunction, e.FunctionName); err != nil {
			return err
		}
		if err := tx.Delete(bucketByBranding, e.BrandingName); err != nil {
			return err
		}
		return tx.Delete(bucketEntries, id)
	})
}

// Search yields the entries matching query, case-insensitively, as a
// substring of function name, branding name, or pseudo-code. category
// narrows the result set; CategoryAny disables the filter. Results come
// exact-name matches first, then by earliest substring position, then by
// insertion order. The sequence is finite and restartable: each range runs
// against a fresh read snapshot.
func (r *Registry) Search(ctx context.Context, query string, category Category) iter.Seq2[*Entry, error] {
	needle := strings.ToLower(strings.TrimSpace(query))

	return func(yield func(*Entry, error) bool) {
		type ranked struct {
			entry *Entry
			pos   int
			order int
		}
		var matches []ranked

		order := 0
		err := r.kv.View(ctx, func(tx *store.Tx) error {
			return tx.Scan(bucketEntries, func(_ string, value []byte) error {
				e, err := decodeEntry("", value)
				if err != nil {
					return err
				}
				order++
				if category != CategoryAny && e.Category != category {
					return nil
				}
				pos, ok := matchPosition(e, needle)
				if !ok {
					return nil
				}
				matches = append(matches, ranked{entry: e, pos: pos, order: order})
				return nil
			})
		})
		if err != nil {
			yield(nil, err)
			return
		}

		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].pos != matches[j].pos {
				return matches[i].pos < matches[j].pos
			}
			return matches[i].order < matches[j].order
		})

		for _, m := range matches {
			if !yield(m.entry, nil) {
				return
			}
		}
	}
}

// matchPosition ranks e against the lowercase needle. Exact name matches
// rank ahead of every substring match; otherwise the earliest substring
// position across the searchable fields wins.
func matchPosition(e *Entry, needle string) (int, bool) {
	if needle == "" {
		return 0, true
	}

	fn := strings.ToLower(e.FunctionName)
	brand := strings.ToLower(e.BrandingName)
	if fn == needle || brand == needle {
		return -1, true
	}

	best := -1
	for _, field := range []string{fn, brand, strings.ToLower(e.PseudoCode)} {
		if idx := strings.Index(field, needle); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func (r *Registry) writeEntry(tx *store.Tx, e *Entry) error {
	data, err := encode(e)
	if err != nil {
		return err
	}
	if err := tx.Insert(bucketEntries, e.ID, data); err != nil {
		return err
	}
	if err := tx.Insert(bucketByFunction, e.FunctionName, []byte(e.ID)); err != nil {
		return err
	}
	return tx.Insert(bucketByBranding, e.BrandingName, []byte(e.ID))
}

// moveIndex re-points a name index from oldName to newName, failing with
// the duplicate-key sentinel when newName is already taken by another
// entry.
func moveIndex(tx *store.Tx, op, bucket, field, oldName, newName, id string) error {
	if existing, err := tx.Get(bucket, newName); err == nil {
		if string(existing) != id {
			return qerrors.NewStoreError(op, newName,
				fmt.Errorf("%w: %s %q", qerrors.ErrDuplicate, field, newName))
		}
	} else if !qerrors.Is(err, qerrors.ErrNotFound) {
		return err
	}
	if err := tx.Delete(bucket, oldName); err != nil {
		return err
	}
	return tx.Insert(bucket, newName, []byte(id))
}

func getEntry(tx *store.Tx, id string) (*Entry, error) {
	data, err := tx.Get(bucketEntries, id)
	if err != nil {
		return nil, err
	}
	return decodeEntry(id, data)
}

func encode(e *Entry) ([]byte, error) {
	data, err := json.Marshal(record{Version: constants.CryptexRecordVersion, Entry: e})
	if err != nil {
		return nil, qerrors.NewStoreError("cryptex.encode", e.ID, fmt.Errorf("%w: %v", qerrors.ErrStore, err))
	}
	return data, nil
}

func decodeEntry(id string, data []byte) (*Entry, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, qerrors.NewStoreError("cryptex.decode", id, fmt.Errorf("%w: %v", qerrors.ErrStore, err))
	}
	if rec.Version != constants.CryptexRecordVersion || rec.Entry == nil {
		return nil, qerrors.NewStoreError("cryptex.decode", id,
			fmt.Errorf("%w: unsupported record version %d", qerrors.ErrStore, rec.Version))
	}
	return rec.Entry, nil
}
