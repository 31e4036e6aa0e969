// Package export writes selected history records to markdown or plain text
// files, split into parts small enough for document-ingesting tools.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"

	"github.com/yiblet/clipstash/internal/store"
)

// DefaultChunkBytes is the target size of one export file.
const DefaultChunkBytes = 180_000

// ErrNothingToExport is returned when the scope selects no records.
var ErrNothingToExport = errors.New("no items to export")

// Format is an export file format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts "markdown"/"md" and "text"/"txt".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown export format: %s (must be 'markdown' or 'text')", s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return "md"
}

// Scope selects records. Set conditions are combined.
type Scope struct {
	LastN      int
	Today      bool
	LastWeek   bool
	Since      time.Time
	PinnedOnly bool
	IDs        []int64
	SourceApps []string
}

// Filter resolves the scope against now.
func (s Scope) Filter(now time.Time) store.ExportFilter {
	since := s.Since
	later := func(t time.Time) {
		if t.After(since) {
			since = t
		}
	}
	if s.Today {
		y, m, d := now.Date()
		later(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
	}
	if s.LastWeek {
		later(now.AddDate(0, 0, -7))
	}

	return store.ExportFilter{
		LastN:      s.LastN,
		Since:      since,
		PinnedOnly: s.PinnedOnly,
		IDs:        s.IDs,
		SourceApps: s.SourceApps,
	}
}

// Options controls one export.
type Options struct {
	Scope  Scope
	Format Format

	// IncludeImages copies image blobs into an images/ subdirectory and
	// references them from markdown entries.
	IncludeImages bool

	// Dir is the destination; empty means DefaultDir.
	Dir string

	// ChunkBytes overrides DefaultChunkBytes.
	ChunkBytes int
}

// Result describes the files written.
type Result struct {
	Dir        string
	Files      []string
	ItemCount  int
	TotalBytes int64
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock overrides the clock used for headers and relative scopes.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.log = l }
}

// Exporter reads records through a store.Reader and writes export files.
type Exporter struct {
	reader store.Reader
	now    func() time.Time
	log    *slog.Logger
}

// New creates an exporter.
func New(reader store.Reader, opts ...Option) *Exporter {
	e := &Exporter{
		reader: reader,
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultDir returns a timestamped directory under the user's downloads.
func DefaultDir(now time.Time) string {
	return filepath.Join(xdg.UserDirs.Download, "clipstash_export_"+now.Format("2006-01-02_15-04-05"))
}

// Export writes the selected records and returns the files created.
func (e *Exporter) Export(opts Options) (*Result, error) {
	now := e.now()

	if opts.Format == "" {
		opts.Format = FormatMarkdown
	}
	if opts.ChunkBytes <= 0 {
		opts.ChunkBytes = DefaultChunkBytes
	}
	if opts.Dir == "" {
		opts.Dir = DefaultDir(now)
	}

	records, err := e.reader.FetchForExport(opts.Scope.Filter(now))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNothingToExport
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	w := &writer{
		exporter: e,
		opts:     opts,
		header:   header(opts.Format, now),
		images:   make(map[string]bool),
	}
	if opts.IncludeImages {
		if err := os.MkdirAll(filepath.Join(opts.Dir, "images"), 0755); err != nil {
			return nil, fmt.Errorf("failed to create image directory: %w", err)
		}
	}

	files, err := w.write(records)
	if err != nil {
		return nil, err
	}

	result := &Result{Dir: opts.Dir, Files: files, ItemCount: len(records)}
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			result.TotalBytes += info.Size()
		}
	}
	e.log.Info("exported clipboard history", "items", result.ItemCount, "files", len(files), "dir", opts.Dir)
	return result, nil
}

type writer struct {
	exporter *Exporter
	opts     Options
	header   string
	images   map[string]bool // image file names already used
}

// write renders entries into parts, starting a new part when the next
// entry would push a non-empty part over the chunk size.
func (w *writer) write(records []*store.Record) ([]string, error) {
	var files []string
	var part strings.Builder
	part.WriteString(w.header)
	partNumber := 1

	for _, r := range records {
		entry := w.entry(r)

		if part.Len()+len(entry) > w.opts.ChunkBytes && part.Len() > len(w.header) {
			file, err := w.writeFile(part.String(), partNumber)
			if err != nil {
				return nil, err
			}
			files = append(files, file)

			partNumber++
			part.Reset()
			part.WriteString(w.header)
		}
		part.WriteString(entry)
	}

	number := partNumber
	if len(files) == 0 {
		number = 0
	}
	file, err := w.writeFile(part.String(), number)
	if err != nil {
		return nil, err
	}
	return append(files, file), nil
}

func header(format Format, now time.Time) string {
	ts := now.Format("2006-01-02 15:04")
	if format == FormatText {
		return "Clipboard Export: " + ts + "\n\n" + strings.Repeat("=", 40) + "\n\n"
	}
	return "# Clipboard Export: " + ts + "\n\n"
}

func (w *writer) entry(r *store.Record) string {
	ts := r.CreatedAt.Local().Format("2006-01-02 15:04:05")
	source := r.SourceApp
	if source == "" {
		source = "unknown"
	}

	body := "[Image]"
	if text, ok := r.Text(); ok {
		body = text
	} else if ref, ok := r.BlobRef(); ok && w.opts.IncludeImages {
		if name := w.copyImage(r, ref); name != "" {
			body = "[Image] images/" + name
		}
	}

	if w.opts.Format == FormatText {
		return fmt.Sprintf("[%s] (%s)\n%s\n\n%s\n\n", ts, source, body, strings.Repeat("-", 40))
	}
	if _, ok := r.Text(); ok {
		f := fence(body)
		return fmt.Sprintf("## %s (%s)\n\n%stext\n%s\n%s\n\n", ts, source, f, body, f)
	}
	return fmt.Sprintf("## %s (%s)\n\n%s\n\n", ts, source, body)
}

// fence returns a backtick fence longer than any backtick run in body.
func fence(body string) string {
	longest, run := 0, 0
	for _, c := range body {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

// copyImage copies a blob into images/, named by capture time. Failures
// are logged and the entry falls back to a bare placeholder.
func (w *writer) copyImage(r *store.Record, ref string) string {
	data, err := w.exporter.reader.ReadBlob(ref)
	if err != nil {
		w.exporter.log.Warn("failed to read image for export", "item", r.ID, "error", err)
		return ""
	}

	ext := filepath.Ext(ref)
	if ext == "" {
		ext = ".png"
	}
	base := r.CreatedAt.Local().Format("2006-01-02_15-04-05")
	name := base + ext
	for i := 2; w.images[name]; i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	w.images[name] = true

	if err := writeAtomic(filepath.Join(w.opts.Dir, "images"), name, data); err != nil {
		w.exporter.log.Warn("failed to copy image for export", "item", r.ID, "error", err)
		return ""
	}
	return name
}

// writeFile writes one part. Part 0 means the export has a single file.
func (w *writer) writeFile(content string, part int) (string, error) {
	name := "export." + w.opts.Format.Extension()
	if part > 0 {
		name = fmt.Sprintf("export_part%02d.%s", part, w.opts.Format.Extension())
	}
	if err := writeAtomic(w.opts.Dir, name, []byte(content)); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return filepath.Join(w.opts.Dir, name), nil
}

// writeAtomic writes data to dir/name through a uniquely named temp file.
func writeAtomic(dir, name string, data []byte) error {
	tmp := filepath.Join(dir, uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
