package tle

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/metrics"
)

// catalog is one published, immutable view of the store.
type catalog struct {
	records  map[int]Record
	ids      []int // ascending
	version  uint64
	loadedAt time.Time
}

var emptyCatalog = &catalog{records: map[int]Record{}}

// Store is an in-memory catalog of element sets keyed by catalog identifier.
//
// Readers never lock: every mutation builds a new catalog and publishes it
// with a single pointer swap, so a Reload is atomic to concurrent Get/List
// callers and they never observe an empty store mid-reload. Writers are
// serialized by mu.
type Store struct {
	current atomic.Pointer[catalog]
	mu      sync.Mutex
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore creates an empty Store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{logger: logger, now: time.Now}
	s.current.Store(emptyCatalog)
	return s
}

// Load parses text and inserts every valid record, overwriting existing
// identifiers. It returns the number of records inserted.
func (s *Store) Load(text string) int {
	return s.Apply(text, Merge).Loaded
}

// Reload replaces the whole catalog with the valid records in text.
// It is the atomic form of Clear followed by Load.
func (s *Store) Reload(text string) int {
	return s.Apply(text, Replace).Loaded
}

// Apply parses text and publishes the result according to mode.
// Invalid pairs are skipped and reported in the result.
func (s *Store) Apply(text string, mode LoadMode) LoadResult {
	return s.ApplyBatch(ParseText(text), mode)
}

// ApplyBatch publishes an already parsed batch according to mode.
func (s *Store) ApplyBatch(batch Batch, mode LoadMode) LoadResult {
	for _, err := range batch.Errors {
		s.logger.Warn("skipping malformed TLE entry", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	next := make(map[int]Record, len(old.records)+len(batch.Records))
	if mode == Merge {
		for id, rec := range old.records {
			next[id] = rec
		}
	}
	for _, rec := range batch.Records {
		next[rec.CatalogID] = rec
	}

	// An empty merge leaves the published catalog untouched.
	if mode == Merge && len(batch.Records) == 0 {
		return LoadResult{Mode: mode, Rejected: len(batch.Errors), Errors: batch.Errors, Total: len(old.records)}
	}

	s.publish(old, next)

	s.logger.Info("TLE catalog published",
		zap.Stringer("mode", mode),
		zap.Int("loaded", len(batch.Records)),
		zap.Int("rejected", len(batch.Errors)),
		zap.Int("total", len(next)),
	)

	return LoadResult{
		Mode:     mode,
		Loaded:   len(batch.Records),
		Rejected: len(batch.Errors),
		Errors:   batch.Errors,
		Total:    len(next),
	}
}

// Clear removes all records. Clearing an empty store is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	if len(old.records) == 0 {
		return
	}
	s.publish(old, map[int]Record{})
}

// publish swaps in a new catalog. Caller must hold mu.
func (s *Store) publish(old *catalog, records map[int]Record) {
	ids := make([]int, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	s.current.Store(&catalog{
		records:  records,
		ids:      ids,
		version:  old.version + 1,
		loadedAt: s.now(),
	})
	metrics.SetRecords(len(records))
}

// Get returns the record for id and whether it exists.
func (s *Store) Get(id int) (Record, bool) {
	rec, ok := s.current.Load().records[id]
	return rec, ok
}

// Lookup is Get with a *NotFoundError on a miss.
func (s *Store) Lookup(id int) (Record, error) {
	rec, ok := s.Get(id)
	if !ok {
		return Record{}, &NotFoundError{CatalogID: id}
	}
	return rec, nil
}

// List returns up to limit summaries in ascending catalog order.
func (s *Store) List(limit int) []Summary {
	return summaries(s.Records(limit))
}

// Records returns up to limit records in ascending catalog order.
func (s *Store) Records(limit int) []Record {
	c := s.current.Load()
	if limit <= 0 {
		return []Record{}
	}
	if limit > len(c.ids) {
		limit = len(c.ids)
	}
	out := make([]Record, 0, limit)
	for _, id := range c.ids[:limit] {
		out = append(out, c.records[id])
	}
	return out
}

func summaries(recs []Record) []Summary {
	out := make([]Summary, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Summary())
	}
	return out
}

// Len returns the number of records in the current catalog.
func (s *Store) Len() int {
	return len(s.current.Load().records)
}

// Version increments every time a new catalog is published.
func (s *Store) Version() uint64 {
	return s.current.Load().version
}

// LoadedAt returns when the current catalog was published, or the zero time
// if nothing has been loaded yet.
func (s *Store) LoadedAt() time.Time {
	return s.current.Load().loadedAt
}

// AgeSeconds returns the age of the current catalog in seconds.
// Returns -1 if no catalog has been published.
func (s *Store) AgeSeconds() float64 {
	at := s.LoadedAt()
	if at.IsZero() {
		return -1
	}
	return s.now().Sub(at).Seconds()
}
