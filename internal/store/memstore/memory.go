// Package memstore provides an in-memory implementation of store.RecordStore.
// This implementation is designed for fast unit testing and does not persist data.
package memstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/store"
)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the capture clock.
func WithClock(now func() time.Time) Option {
	return func(m *MemoryStore) { m.now = now }
}

// MemoryStore is an in-memory implementation of store.RecordStore.
// It keeps records and blobs in maps guarded by a single mutex.
// Data exists only for the lifetime of the value.
type MemoryStore struct {
	mu     sync.Mutex
	items  map[int64]*store.Record
	blobs  map[string][]byte
	nextID int64
	closed bool
	now    func() time.Time
}

var _ store.RecordStore = (*MemoryStore)(nil)

// New creates an open, empty in-memory store.
func New(opts ...Option) *MemoryStore {
	m := &MemoryStore{
		items:  make(map[int64]*store.Record),
		blobs:  make(map[string][]byte),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open reopens a closed store. Data survives a Close/Open cycle.
func (m *MemoryStore) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
	return nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Insert stores a new record with the next id.
func (m *MemoryStore) Insert(rec *store.NewRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, store.ErrNotOpen
	}

	r := &store.Record{
		ID:          m.nextID,
		CreatedAt:   time.Unix(m.now().Unix(), 0),
		SourceApp:   rec.SourceApp,
		ContentHash: rec.ContentHash,
		ByteSize:    rec.ByteSize,
	}
	switch rec.Kind {
	case clip.KindText:
		r.Content = store.Text{Value: rec.Text}
	case clip.KindImage:
		ref := uuid.NewString() + ".png"
		m.blobs[ref] = append([]byte(nil), rec.ImageData...)
		r.Content = store.Image{BlobRef: ref}
	}

	m.items[r.ID] = r
	m.nextID++
	return r.ID, nil
}

// Exists reports whether a record with the hash is stored.
func (m *MemoryStore) Exists(contentHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, store.ErrNotOpen
	}
	for _, r := range m.items {
		if r.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

// Get returns a copy of the record, or nil if it does not exist.
func (m *MemoryStore) Get(id int64) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, store.ErrNotOpen
	}
	r, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

// Delete removes a record and its blob. Missing ids are a no-op.
func (m *MemoryStore) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return store.ErrNotOpen
	}
	m.remove(id)
	return nil
}

func (m *MemoryStore) remove(id int64) {
	r, ok := m.items[id]
	if !ok {
		return
	}
	if ref, ok := r.BlobRef(); ok {
		delete(m.blobs, ref)
	}
	delete(m.items, id)
}

func (m *MemoryStore) SetPinned(id int64, pinned bool) error {
	return m.update(id, func(r *store.Record) { r.Pinned = pinned })
}

func (m *MemoryStore) TogglePinned(id int64) error {
	return m.update(id, func(r *store.Record) { r.Pinned = !r.Pinned })
}

func (m *MemoryStore) SetProtected(id int64, protected bool) error {
	return m.update(id, func(r *store.Record) { r.Protected = protected })
}

func (m *MemoryStore) update(id int64, fn func(*store.Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return store.ErrNotOpen
	}
	if r, ok := m.items[id]; ok {
		fn(r)
	}
	return nil
}

// FetchPage returns a window of records in the given order.
func (m *MemoryStore) FetchPage(limit, offset int, order store.Order) ([]*store.Record, error) {
	return m.query(order, limit, offset, func(*store.Record) bool { return true })
}

// FetchFiltered returns a window of records matching filter.
func (m *MemoryStore) FetchFiltered(filter store.Filter, limit, offset int) ([]*store.Record, error) {
	return m.query(store.OrderPinnedFirst, limit, offset, filter.Matches)
}

// Search matches term as a substring of text records, ignoring ASCII case
// only, as SQLite LIKE does.
func (m *MemoryStore) Search(term string, limit, offset int) ([]*store.Record, error) {
	if strings.TrimSpace(term) == "" {
		return m.FetchPage(limit, offset, store.OrderPinnedFirst)
	}

	needle := lowerASCII(term)
	return m.query(store.OrderPinnedFirst, limit, offset, func(r *store.Record) bool {
		text, ok := r.Text()
		return ok && strings.Contains(lowerASCII(text), needle)
	})
}

func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// FetchForExport returns records matching every set condition, newest first.
func (m *MemoryStore) FetchForExport(filter store.ExportFilter) ([]*store.Record, error) {
	ids := make(map[int64]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = true
	}
	apps := make(map[string]bool, len(filter.SourceApps))
	for _, app := range filter.SourceApps {
		apps[app] = true
	}

	return m.query(store.OrderNewest, filter.LastN, 0, func(r *store.Record) bool {
		if filter.PinnedOnly && !r.Pinned {
			return false
		}
		if !filter.Since.IsZero() && r.CreatedAt.Unix() < filter.Since.Unix() {
			return false
		}
		if len(ids) > 0 && !ids[r.ID] {
			return false
		}
		if len(apps) > 0 && !apps[r.SourceApp] {
			return false
		}
		return true
	})
}

func (m *MemoryStore) query(order store.Order, limit, offset int, match func(*store.Record) bool) ([]*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, store.ErrNotOpen
	}

	var records []*store.Record
	for _, r := range m.items {
		if match(r) {
			c := *r
			records = append(records, &c)
		}
	}
	sortRecords(records, order)

	offset = max(offset, 0)
	if offset >= len(records) {
		return []*store.Record{}, nil
	}
	records = records[offset:]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// sortRecords sorts newest first, with pinned records first for
// OrderPinnedFirst. Ties on the second break by id, newest first.
func sortRecords(records []*store.Record, order store.Order) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if order == store.OrderPinnedFirst && a.Pinned != b.Pinned {
			return a.Pinned
		}
		if a.CreatedAt.Unix() != b.CreatedAt.Unix() {
			return a.CreatedAt.Unix() > b.CreatedAt.Unix()
		}
		return a.ID > b.ID
	})
}

// Count returns the total number of records.
func (m *MemoryStore) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, store.ErrNotOpen
	}
	return len(m.items), nil
}

// CountUnpinned returns the number of unpinned records.
func (m *MemoryStore) CountUnpinned() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, store.ErrNotOpen
	}
	return len(m.unpinnedOldestFirst()), nil
}

func (m *MemoryStore) unpinnedOldestFirst() []*store.Record {
	var unpinned []*store.Record
	for _, r := range m.items {
		if !r.Pinned {
			unpinned = append(unpinned, r)
		}
	}
	sort.Slice(unpinned, func(i, j int) bool {
		a, b := unpinned[i], unpinned[j]
		if a.CreatedAt.Unix() != b.CreatedAt.Unix() {
			return a.CreatedAt.Unix() < b.CreatedAt.Unix()
		}
		return a.ID < b.ID
	})
	return unpinned
}

// Evict removes the oldest unpinned records until at most limit remain.
func (m *MemoryStore) Evict(limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, store.ErrNotOpen
	}

	unpinned := m.unpinnedOldestFirst()
	excess := len(unpinned) - max(limit, 0)
	for i := 0; i < excess; i++ {
		m.remove(unpinned[i].ID)
	}
	return max(excess, 0), nil
}

// ClearAll removes every record, or only unpinned ones if keepPinned.
func (m *MemoryStore) ClearAll(keepPinned bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, store.ErrNotOpen
	}

	removed := 0
	for id, r := range m.items {
		if keepPinned && r.Pinned {
			continue
		}
		m.remove(id)
		removed++
	}
	return removed, nil
}

// SourceApps returns the distinct non-empty source apps, sorted.
func (m *MemoryStore) SourceApps() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, store.ErrNotOpen
	}

	seen := make(map[string]bool)
	apps := []string{}
	for _, r := range m.items {
		if r.SourceApp != "" && !seen[r.SourceApp] {
			seen[r.SourceApp] = true
			apps = append(apps, r.SourceApp)
		}
	}
	sort.Strings(apps)
	return apps, nil
}

// BlobPath returns a pseudo path; memory blobs have no file.
func (m *MemoryStore) BlobPath(ref string) string {
	return "mem://" + ref
}

// ReadBlob returns a copy of a blob.
func (m *MemoryStore) ReadBlob(ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: blob not found: %s", store.ErrQueryFailed, ref)
	}
	return append([]byte(nil), data...), nil
}

// DatabaseSizeBytes returns 0; there is no database file.
func (m *MemoryStore) DatabaseSizeBytes() int64 { return 0 }

// BlobStoreSizeBytes returns the total size of stored blobs.
func (m *MemoryStore) BlobStoreSizeBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, data := range m.blobs {
		total += int64(len(data))
	}
	return total
}

// FullTextAvailable is always false.
func (m *MemoryStore) FullTextAvailable() bool { return false }
