package store

import (
	"time"

	"github.com/yiblet/clipstash/internal/clip"
)

// Content is the body of a record: either Text or Image.
type Content interface {
	Kind() clip.Kind
	isContent()
}

// Text is inline text content.
type Text struct {
	Value string
}

// Image refers to a blob owned by the store's blob directory.
type Image struct {
	BlobRef string
}

func (Text) Kind() clip.Kind  { return clip.KindText }
func (Image) Kind() clip.Kind { return clip.KindImage }
func (Text) isContent()       {}
func (Image) isContent()      {}

// Record is a persisted clipboard history entry.
type Record struct {
	// ID is assigned at insert and never reused.
	ID int64

	// CreatedAt is the capture time with second precision.
	CreatedAt time.Time

	Content Content

	// SourceApp identifies the copying application; empty if unknown.
	SourceApp string

	// ContentHash is the hex fingerprint computed at ingest.
	ContentHash string

	// Pinned records are exempt from eviction.
	Pinned bool

	// Protected marks content reserved for encryption at rest.
	Protected bool

	// ByteSize is the raw content size at capture time.
	ByteSize int64
}

// Kind returns the kind of the record's content.
func (r *Record) Kind() clip.Kind {
	return r.Content.Kind()
}

// Text returns the text content and whether the record is a text record.
func (r *Record) Text() (string, bool) {
	t, ok := r.Content.(Text)
	return t.Value, ok
}

// BlobRef returns the blob reference and whether the record is an image.
func (r *Record) BlobRef() (string, bool) {
	img, ok := r.Content.(Image)
	return img.BlobRef, ok
}

// NewRecord contains the data needed to insert a record.
// Exactly one of Text (for KindText) or ImageData (for KindImage) is used.
type NewRecord struct {
	Kind        clip.Kind
	Text        string
	ImageData   []byte
	SourceApp   string
	ContentHash string
	ByteSize    int64
}

// Validate checks that the payload matches the declared kind.
func (n *NewRecord) Validate() error {
	switch n.Kind {
	case clip.KindText:
		if n.ImageData != nil {
			return invalidf("text record must not carry image data")
		}
	case clip.KindImage:
		if len(n.ImageData) == 0 {
			return invalidf("image record requires image data")
		}
		if n.Text != "" {
			return invalidf("image record must not carry text")
		}
	default:
		return invalidf("unknown kind %q", n.Kind)
	}
	if n.ContentHash == "" {
		return invalidf("content hash is required")
	}
	return nil
}

// Order selects the sort order of paged queries.
type Order int

const (
	// OrderPinnedFirst sorts pinned records first, then newest first.
	OrderPinnedFirst Order = iota
	// OrderNewest sorts by capture time only, newest first.
	OrderNewest
)

// Filter narrows paged queries. Zero fields do not filter.
type Filter struct {
	Kind       clip.Kind
	SourceApp  string
	Since      time.Time // inclusive
	Until      time.Time // exclusive
	PinnedOnly bool
}

// Matches reports whether a record passes the filter.
func (f *Filter) Matches(r *Record) bool {
	if f.Kind != "" && r.Kind() != f.Kind {
		return false
	}
	if f.SourceApp != "" && r.SourceApp != f.SourceApp {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Unix() < f.Since.Unix() {
		return false
	}
	if !f.Until.IsZero() && r.CreatedAt.Unix() >= f.Until.Unix() {
		return false
	}
	if f.PinnedOnly && !r.Pinned {
		return false
	}
	return true
}

// ExportFilter selects records for export. Set conditions are combined;
// results are always ordered newest first.
type ExportFilter struct {
	// LastN limits the result to the N newest matches (0 = no limit).
	LastN int

	// Since keeps records captured at or after this time.
	Since time.Time

	PinnedOnly bool

	// IDs restricts the result to an explicit id set.
	IDs []int64

	// SourceApps restricts the result to records from these apps.
	SourceApps []string
}
