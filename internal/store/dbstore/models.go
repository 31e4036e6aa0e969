package dbstore

import (
	"fmt"
	"time"

	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/store"
)

// ItemModel represents a history record in the database.
// The table itself is created by the SQL migrations, not AutoMigrate.
type ItemModel struct {
	ID          int64   `gorm:"column:id;primaryKey"`
	Created     int64   `gorm:"column:created_at"` // unix seconds
	Kind        string  `gorm:"column:kind"`
	TextContent *string `gorm:"column:text_content"` // set iff kind is text
	BlobRef     *string `gorm:"column:blob_ref"`     // set iff kind is image
	SourceApp   *string `gorm:"column:source_app"`
	ContentHash string  `gorm:"column:content_hash"`
	Pinned      bool    `gorm:"column:pinned"`
	Protected   bool    `gorm:"column:protected"`
	ByteSize    int64   `gorm:"column:byte_size"`
}

// TableName returns the table name for ItemModel
func (ItemModel) TableName() string {
	return "items"
}

// ToRecord converts the GORM model to a store.Record
func (m *ItemModel) ToRecord() (*store.Record, error) {
	kind, err := clip.ParseKind(m.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: item %d: %w", store.ErrQueryFailed, m.ID, err)
	}

	rec := &store.Record{
		ID:          m.ID,
		CreatedAt:   time.Unix(m.Created, 0),
		SourceApp:   deref(m.SourceApp),
		ContentHash: m.ContentHash,
		Pinned:      m.Pinned,
		Protected:   m.Protected,
		ByteSize:    m.ByteSize,
	}

	switch {
	case kind == clip.KindText && m.TextContent != nil && m.BlobRef == nil:
		rec.Content = store.Text{Value: *m.TextContent}
	case kind == clip.KindImage && m.BlobRef != nil && m.TextContent == nil:
		rec.Content = store.Image{BlobRef: *m.BlobRef}
	default:
		return nil, fmt.Errorf("%w: item %d has content inconsistent with kind %s", store.ErrQueryFailed, m.ID, kind)
	}

	return rec, nil
}

// toRecords converts a slice of models, failing on the first bad row.
func toRecords(models []ItemModel) ([]*store.Record, error) {
	records := make([]*store.Record, 0, len(models))
	for i := range models {
		rec, err := models[i].ToRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optional maps the empty string to NULL.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
