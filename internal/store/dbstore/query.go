package dbstore

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yiblet/clipstash/internal/store"
)

const (
	orderPinnedFirst = "pinned DESC, created_at DESC, id DESC"
	orderNewest      = "created_at DESC, id DESC"
)

func orderBy(order store.Order) string {
	if order == store.OrderNewest {
		return orderNewest
	}
	return orderPinnedFirst
}

// FetchPage returns a window of items in the requested order.
func (s *SQLiteStore) FetchPage(limit, offset int, order store.Order) ([]*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, store.ErrNotOpen
	}
	return s.page(s.db, orderBy(order), limit, offset)
}

// FetchFiltered returns a window of items matching the filter.
func (s *SQLiteStore) FetchFiltered(filter store.Filter, limit, offset int) ([]*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, store.ErrNotOpen
	}

	q := s.db.Model(&ItemModel{})
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	if filter.SourceApp != "" {
		q = q.Where("source_app = ?", filter.SourceApp)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since.Unix())
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at < ?", filter.Until.Unix())
	}
	if filter.PinnedOnly {
		q = q.Where("pinned = ?", true)
	}

	return s.page(q, orderPinnedFirst, limit, offset)
}

// Search finds text items containing term. With FTS5 the term is matched
// as a phrase through the index; otherwise, or if the index query fails,
// a LIKE scan over text_content serves the same window.
func (s *SQLiteStore) Search(term string, limit, offset int) ([]*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, store.ErrNotOpen
	}

	if strings.TrimSpace(term) == "" {
		return s.page(s.db, orderPinnedFirst, limit, offset)
	}

	if s.fts {
		q := s.db.Where("id IN (SELECT rowid FROM items_fts WHERE items_fts MATCH ?)", phraseQuery(term))
		records, err := s.page(q, orderPinnedFirst, limit, offset)
		if err == nil {
			return records, nil
		}
		s.log.Debug("FTS5 search failed, falling back to LIKE", "term", term, "error", err)
	}

	q := s.db.Where(`text_content LIKE ? ESCAPE '\'`, likePattern(term))
	return s.page(q, orderPinnedFirst, limit, offset)
}

// FetchForExport returns items matching every set condition of the filter,
// newest first.
func (s *SQLiteStore) FetchForExport(filter store.ExportFilter) ([]*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, store.ErrNotOpen
	}

	q := s.db.Model(&ItemModel{})
	if filter.PinnedOnly {
		q = q.Where("pinned = ?", true)
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since.Unix())
	}
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if len(filter.SourceApps) > 0 {
		q = q.Where("source_app IN ?", filter.SourceApps)
	}

	return s.page(q, orderNewest, filter.LastN, 0)
}

// SourceApps returns the distinct source apps, sorted.
func (s *SQLiteStore) SourceApps() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, store.ErrNotOpen
	}

	var apps []string
	err := s.db.Model(&ItemModel{}).
		Distinct("source_app").
		Where("source_app IS NOT NULL AND source_app <> ''").
		Order("source_app").
		Pluck("source_app", &apps).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list source apps: %w", store.ErrQueryFailed, err)
	}
	return apps, nil
}

// page runs q with the given order and window and converts the rows.
func (s *SQLiteStore) page(q *gorm.DB, order string, limit, offset int) ([]*store.Record, error) {
	limit, offset = normalizeWindow(limit, offset)

	var models []ItemModel
	err := q.Order(order).Limit(limit).Offset(offset).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list items: %w", store.ErrQueryFailed, err)
	}
	return toRecords(models)
}
