// Package dbstore implements store.RecordStore on SQLite through GORM, with
// image payloads kept as files in a sibling blob directory.
package dbstore

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yiblet/clipstash/internal/blobfs"
	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/store"
	"github.com/yiblet/clipstash/internal/store/dbstore/migrations"
)

// DatabaseFile is the database file name under the store root.
const DatabaseFile = "clipstash.db"

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) { s.log = l }
}

// WithClock overrides the capture clock.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// WithoutFullText disables the FTS5 index, forcing the substring scan.
func WithoutFullText() Option {
	return func(s *SQLiteStore) { s.disableFTS = true }
}

// SQLiteStore is a SQLite-backed implementation of store.RecordStore.
// A single mutex serializes every operation against the engine.
type SQLiteStore struct {
	mu sync.Mutex

	db         *gorm.DB
	dbPath     string
	blobs      *blobfs.BlobFS
	log        *slog.Logger
	now        func() time.Time
	disableFTS bool
	fts        bool
	version    int
}

var _ store.RecordStore = (*SQLiteStore)(nil)

// New creates a store rooted at root. The database lives at
// root/clipstash.db and blobs under root/images. Call Open before use.
func New(root string, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		dbPath: filepath.Join(root, DatabaseFile),
		blobs:  blobfs.New(filepath.Join(root, blobfs.DefaultDir)),
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates the directory tree, opens the database in WAL mode and runs
// pending migrations. It is a no-op if the store is already open.
func (s *SQLiteStore) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create data directory: %w", store.ErrStorageUnavailable, err)
	}
	if err := s.blobs.Ensure(); err != nil {
		return fmt.Errorf("%w: failed to create blob directory: %w", store.ErrStorageUnavailable, err)
	}

	dsn := s.dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to open database: %w", store.ErrStorageUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorageUnavailable, err)
	}
	// SQLite tolerates one writer; pin the pool to a single connection.
	sqlDB.SetMaxOpenConns(1)

	fail := func(format string, err error) error {
		sqlDB.Close()
		return fmt.Errorf("%w: "+format+": %w", store.ErrStorageUnavailable, err)
	}

	version, err := migrate(db, migrations.FS)
	if err != nil {
		return fail("failed to migrate schema", err)
	}

	fts := !s.disableFTS && probeFullText(db)
	if err := reconcileFullText(db, fts); err != nil {
		return fail("failed to set up full-text index", err)
	}

	s.db = db
	s.fts = fts
	s.version = version
	s.log.Debug("opened history store", "path", s.dbPath, "schema_version", version, "fts5", fts)
	return nil
}

// Close closes the database connection. It is a no-op if not open.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert stores a new record. For images the blob is written before the
// row, so a failed insert leaves at worst an orphaned file.
func (s *SQLiteStore) Insert(rec *store.NewRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, store.ErrNotOpen
	}

	model := ItemModel{
		Created:     s.now().Unix(),
		Kind:        string(rec.Kind),
		SourceApp:   optional(rec.SourceApp),
		ContentHash: rec.ContentHash,
		ByteSize:    rec.ByteSize,
	}

	switch rec.Kind {
	case clip.KindText:
		text := rec.Text
		model.TextContent = &text
	case clip.KindImage:
		ref, err := s.blobs.Write(rec.ImageData)
		if err != nil {
			return 0, fmt.Errorf("%w: failed to write blob: %w", store.ErrWriteFailed, err)
		}
		model.BlobRef = &ref
	}

	if err := s.db.Create(&model).Error; err != nil {
		if model.BlobRef != nil {
			s.log.Warn("left orphaned blob after failed insert", "blob", *model.BlobRef, "error", err)
		}
		return 0, fmt.Errorf("%w: failed to insert item: %w", store.ErrWriteFailed, err)
	}

	return model.ID, nil
}

// Exists reports whether an item with the content hash is stored.
func (s *SQLiteStore) Exists(contentHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return false, store.ErrNotOpen
	}

	var ids []int64
	err := s.db.Model(&ItemModel{}).
		Where("content_hash = ?", contentHash).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, fmt.Errorf("%w: failed to look up hash: %w", store.ErrQueryFailed, err)
	}
	return len(ids) > 0, nil
}

// Get retrieves a single item by ID, or nil if it does not exist.
func (s *SQLiteStore) Get(id int64) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, store.ErrNotOpen
	}
	return s.get(id)
}

func (s *SQLiteStore) get(id int64) (*store.Record, error) {
	var models []ItemModel
	if err := s.db.Where("id = ?", id).Limit(1).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to get item: %w", store.ErrQueryFailed, err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0].ToRecord()
}

// Delete removes an item and its blob. Deleting a missing id is a no-op.
func (s *SQLiteStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return store.ErrNotOpen
	}

	var models []ItemModel
	if err := s.db.Select("id", "blob_ref").Where("id = ?", id).Limit(1).Find(&models).Error; err != nil {
		return fmt.Errorf("%w: failed to get item: %w", store.ErrQueryFailed, err)
	}
	if len(models) == 0 {
		return nil
	}

	if err := s.db.Delete(&ItemModel{}, id).Error; err != nil {
		return fmt.Errorf("%w: failed to delete item: %w", store.ErrWriteFailed, err)
	}

	s.removeBlobs(models)
	return nil
}

// SetPinned sets the pinned flag. Missing ids are ignored.
func (s *SQLiteStore) SetPinned(id int64, pinned bool) error {
	return s.update(id, "pinned", pinned)
}

// TogglePinned flips the pinned flag in a single statement.
func (s *SQLiteStore) TogglePinned(id int64) error {
	return s.update(id, "pinned", gorm.Expr("NOT pinned"))
}

// SetProtected sets the protected flag. Missing ids are ignored.
func (s *SQLiteStore) SetProtected(id int64, protected bool) error {
	return s.update(id, "protected", protected)
}

func (s *SQLiteStore) update(id int64, column string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return store.ErrNotOpen
	}

	err := s.db.Model(&ItemModel{}).Where("id = ?", id).Update(column, value).Error
	if err != nil {
		return fmt.Errorf("%w: failed to update %s: %w", store.ErrWriteFailed, column, err)
	}
	return nil
}

// Count returns the total number of items.
func (s *SQLiteStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, store.ErrNotOpen
	}
	return s.count(false)
}

// CountUnpinned returns the number of items that are not pinned.
func (s *SQLiteStore) CountUnpinned() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, store.ErrNotOpen
	}
	return s.count(true)
}

func (s *SQLiteStore) count(unpinnedOnly bool) (int, error) {
	var count int64
	q := s.db.Model(&ItemModel{})
	if unpinnedOnly {
		q = q.Where("pinned = ?", false)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: failed to count items: %w", store.ErrQueryFailed, err)
	}
	return int(count), nil
}

// Evict deletes the oldest unpinned items until at most limit remain.
// Pinned items are neither counted nor removed.
func (s *SQLiteStore) Evict(limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, store.ErrNotOpen
	}

	limit = max(limit, 0)
	unpinned, err := s.count(true)
	if err != nil {
		return 0, err
	}
	if unpinned <= limit {
		return 0, nil
	}

	var victims []ItemModel
	err = s.db.Select("id", "blob_ref").
		Where("pinned = ?", false).
		Order("created_at ASC, id ASC").
		Limit(unpinned - limit).
		Find(&victims).Error
	if err != nil {
		return 0, fmt.Errorf("%w: failed to find oldest items: %w", store.ErrQueryFailed, err)
	}

	n, err := s.deleteModels(victims)
	if err != nil {
		return 0, err
	}
	s.log.Debug("evicted items", "count", n, "limit", limit)
	return n, nil
}

// ClearAll deletes all items, or only unpinned ones when keepPinned is set.
func (s *SQLiteStore) ClearAll(keepPinned bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, store.ErrNotOpen
	}

	q := s.db.Model(&ItemModel{}).Select("id", "blob_ref").Where("blob_ref IS NOT NULL")
	if keepPinned {
		q = q.Where("pinned = ?", false)
	}
	var withBlobs []ItemModel
	if err := q.Find(&withBlobs).Error; err != nil {
		return 0, fmt.Errorf("%w: failed to list blobs: %w", store.ErrQueryFailed, err)
	}

	var result *gorm.DB
	if keepPinned {
		result = s.db.Where("pinned = ?", false).Delete(&ItemModel{})
	} else {
		result = s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ItemModel{})
	}
	if result.Error != nil {
		return 0, fmt.Errorf("%w: failed to clear history: %w", store.ErrWriteFailed, result.Error)
	}

	s.removeBlobs(withBlobs)
	return int(result.RowsAffected), nil
}

// deleteModels deletes the given rows in one statement, then their blobs.
func (s *SQLiteStore) deleteModels(models []ItemModel) (int, error) {
	if len(models) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}

	result := s.db.Where("id IN ?", ids).Delete(&ItemModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: failed to delete items: %w", store.ErrWriteFailed, result.Error)
	}

	s.removeBlobs(models)
	return int(result.RowsAffected), nil
}

// removeBlobs deletes the blobs of already-deleted rows. Failures are
// logged and otherwise ignored: the rows are gone, a stray file is a leak.
func (s *SQLiteStore) removeBlobs(models []ItemModel) {
	for _, m := range models {
		if m.BlobRef == nil {
			continue
		}
		if err := s.blobs.Remove(*m.BlobRef); err != nil {
			s.log.Warn("failed to remove blob", "item", m.ID, "blob", *m.BlobRef, "error", err)
		}
	}
}

// BlobPath returns the absolute path of a blob.
func (s *SQLiteStore) BlobPath(ref string) string {
	return s.blobs.Path(ref)
}

// ReadBlob returns the content of a blob.
func (s *SQLiteStore) ReadBlob(ref string) ([]byte, error) {
	data, err := s.blobs.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read blob: %w", store.ErrQueryFailed, err)
	}
	return data, nil
}

// DatabaseSizeBytes returns the size of the database and its WAL file.
func (s *SQLiteStore) DatabaseSizeBytes() int64 {
	var total int64
	for _, path := range []string{s.dbPath, s.dbPath + "-wal"} {
		if info, err := os.Stat(path); err == nil {
			total += info.Size()
		}
	}
	return total
}

// BlobStoreSizeBytes returns the total size of all blobs.
func (s *SQLiteStore) BlobStoreSizeBytes() int64 {
	return s.blobs.Size()
}

// FullTextAvailable reports whether searches use the FTS5 index.
func (s *SQLiteStore) FullTextAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil && s.fts
}

// SchemaVersion returns the schema version reached at open.
func (s *SQLiteStore) SchemaVersion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// normalizeWindow maps a non-positive limit to "no limit".
func normalizeWindow(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	return limit, max(offset, 0)
}
