package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/store"
	"github.com/yiblet/clipstash/internal/store/memstore"
)

var png = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// seed fills a memory store, one record per second starting at start.
func seed(t *testing.T, start time.Time, records ...*store.NewRecord) (*memstore.MemoryStore, []int64) {
	t.Helper()

	next := start
	st := memstore.New(memstore.WithClock(func() time.Time {
		ts := next
		next = next.Add(time.Second)
		return ts
	}))

	var ids []int64
	for _, rec := range records {
		id, err := st.Insert(rec)
		if err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
		ids = append(ids, id)
	}
	return st, ids
}

func text(s, app string) *store.NewRecord {
	return &store.NewRecord{Kind: clip.KindText, Text: s, SourceApp: app, ContentHash: clip.Hash(clip.KindText, []byte(s))}
}

func image(data []byte) *store.NewRecord {
	return &store.NewRecord{Kind: clip.KindImage, ImageData: data, ContentHash: clip.Hash(clip.KindImage, data)}
}

func newExporter(st store.Reader, now time.Time) *Exporter {
	return New(st,
		WithClock(func() time.Time { return now }),
		WithLogger(slog.New(slog.DiscardHandler)))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"markdown", FormatMarkdown, false},
		{"MD", FormatMarkdown, false},
		{"text", FormatText, false},
		{"txt", FormatText, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestScopeFilter(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.Local)

	f := Scope{Today: true}.Filter(now)
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local); !f.Since.Equal(want) {
		t.Errorf("today since = %v, want %v", f.Since, want)
	}

	f = Scope{LastWeek: true}.Filter(now)
	if want := now.AddDate(0, 0, -7); !f.Since.Equal(want) {
		t.Errorf("last week since = %v, want %v", f.Since, want)
	}

	// The narrowest window wins
	f = Scope{LastWeek: true, Today: true}.Filter(now)
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local); !f.Since.Equal(want) {
		t.Errorf("combined since = %v, want %v", f.Since, want)
	}

	f = Scope{LastN: 3, PinnedOnly: true, IDs: []int64{1}, SourceApps: []string{"a"}}.Filter(now)
	if f.LastN != 3 || !f.PinnedOnly || len(f.IDs) != 1 || len(f.SourceApps) != 1 || !f.Since.IsZero() {
		t.Errorf("unexpected filter %+v", f)
	}
}

func TestExportMarkdown(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	st, _ := seed(t, start, text("first clip", "com.example.editor"), image(png), text("second clip", ""))
	dir := t.TempDir()

	result, err := newExporter(st, start.Add(time.Hour)).Export(Options{Format: FormatMarkdown, Dir: dir})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if result.ItemCount != 3 {
		t.Errorf("ItemCount = %d, want 3", result.ItemCount)
	}
	if len(result.Files) != 1 || filepath.Base(result.Files[0]) != "export.md" {
		t.Fatalf("Files = %v, want [export.md]", result.Files)
	}
	if result.TotalBytes <= 0 {
		t.Error("expected positive TotalBytes")
	}

	content := readFile(t, result.Files[0])
	for _, want := range []string{
		"# Clipboard Export: 2024-03-15 10:00\n\n",
		"## 2024-03-15 09:00:00 (com.example.editor)\n\n```text\nfirst clip\n```\n\n",
		"## 2024-03-15 09:00:01 (unknown)\n\n[Image]\n\n",
		"## 2024-03-15 09:00:02 (unknown)\n\n```text\nsecond clip\n```\n\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("export missing %q\n---\n%s", want, content)
		}
	}

	// Newest first
	if strings.Index(content, "second clip") > strings.Index(content, "first clip") {
		t.Error("expected newest entry first")
	}
}

func TestFence(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"plain", "```"},
		{"inline `code`", "```"},
		{"```go\nfmt.Println()\n```", "````"},
		{"a ````` b", "``````"},
	}
	for _, tt := range tests {
		if got := fence(tt.body); got != tt.want {
			t.Errorf("fence(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestExportMarkdownKeepsFencedClipIntact(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	clipText := "see:\n```go\nfmt.Println(1)\n```\ndone"
	st, _ := seed(t, start, text(clipText, ""))

	result, err := newExporter(st, start).Export(Options{Format: FormatMarkdown, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	content := readFile(t, result.Files[0])
	want := "````text\n" + clipText + "\n````\n\n"
	if !strings.Contains(content, want) {
		t.Errorf("export missing %q\n---\n%s", want, content)
	}
}

func TestExportPlainText(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	st, _ := seed(t, start, text("hello", "app"))
	dir := t.TempDir()

	result, err := newExporter(st, start).Export(Options{Format: FormatText, Dir: dir})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	content := readFile(t, result.Files[0])
	want := "Clipboard Export: 2024-03-15 09:00\n\n" + strings.Repeat("=", 40) + "\n\n" +
		"[2024-03-15 09:00:00] (app)\nhello\n\n" + strings.Repeat("-", 40) + "\n\n"
	if content != want {
		t.Errorf("export content =\n%q\nwant\n%q", content, want)
	}
	if filepath.Base(result.Files[0]) != "export.txt" {
		t.Errorf("file = %s, want export.txt", result.Files[0])
	}
}

func TestExportSplitsIntoParts(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	var records []*store.NewRecord
	for i := 0; i < 10; i++ {
		records = append(records, text(fmt.Sprintf("%02d %s", i, strings.Repeat("x", 100)), ""))
	}
	st, _ := seed(t, start, records...)
	dir := t.TempDir()

	result, err := newExporter(st, start).Export(Options{Format: FormatText, Dir: dir, ChunkBytes: 500})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if len(result.Files) < 2 {
		t.Fatalf("expected multiple parts, got %v", result.Files)
	}
	total := 0
	for i, f := range result.Files {
		if want := fmt.Sprintf("export_part%02d.txt", i+1); filepath.Base(f) != want {
			t.Errorf("part %d = %s, want %s", i, filepath.Base(f), want)
		}
		content := readFile(t, f)
		if len(content) > 500 {
			t.Errorf("part %s is %d bytes, over the chunk size", f, len(content))
		}
		if !strings.HasPrefix(content, "Clipboard Export:") {
			t.Errorf("part %s is missing the header", f)
		}
		total += strings.Count(content, strings.Repeat("x", 100))
	}
	if total != 10 {
		t.Errorf("expected 10 entries across parts, got %d", total)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestExportOversizedEntryGetsOwnPart(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	st, _ := seed(t, start, text(strings.Repeat("y", 1000), ""), text("small", ""))

	result, err := newExporter(st, start).Export(Options{Dir: t.TempDir(), ChunkBytes: 200})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Files) != 2 {
		t.Errorf("expected 2 parts, got %d", len(result.Files))
	}
}

func TestExportImages(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	st, _ := seed(t, start, image(png), image(append([]byte{1}, png...)))
	dir := t.TempDir()

	result, err := newExporter(st, start).Export(Options{Dir: dir, IncludeImages: true})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	content := readFile(t, result.Files[0])
	for _, name := range []string{"2024-03-15_09-00-00.png", "2024-03-15_09-00-01.png"} {
		if !strings.Contains(content, "[Image] images/"+name) {
			t.Errorf("export missing reference to %s", name)
		}
		data, err := os.ReadFile(filepath.Join(dir, "images", name))
		if err != nil {
			t.Errorf("image %s not copied: %v", name, err)
		} else if len(data) == 0 {
			t.Errorf("image %s is empty", name)
		}
	}
}

func TestExportScopes(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	st, ids := seed(t, start, text("a", "x"), text("b", "y"), text("c", "x"))
	st.SetPinned(ids[1], true)

	tests := []struct {
		name  string
		scope Scope
		want  []string
	}{
		{"last n", Scope{LastN: 1}, []string{"c"}},
		{"pinned", Scope{PinnedOnly: true}, []string{"b"}},
		{"ids", Scope{IDs: []int64{ids[0]}}, []string{"a"}},
		{"source apps", Scope{SourceApps: []string{"x"}}, []string{"c", "a"}},
		{"today", Scope{Today: true}, []string{"c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newExporter(st, start.Add(time.Hour)).Export(Options{Format: FormatText, Dir: t.TempDir(), Scope: tt.scope})
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			if result.ItemCount != len(tt.want) {
				t.Errorf("ItemCount = %d, want %d", result.ItemCount, len(tt.want))
			}
			content := readFile(t, result.Files[0])
			for _, s := range tt.want {
				if !strings.Contains(content, ")\n"+s+"\n") {
					t.Errorf("export missing %q", s)
				}
			}
		})
	}
}

func TestExportNothing(t *testing.T) {
	st := memstore.New()
	dir := filepath.Join(t.TempDir(), "out")

	_, err := newExporter(st, time.Now()).Export(Options{Dir: dir})
	if !errors.Is(err, ErrNothingToExport) {
		t.Errorf("Export() error = %v, want ErrNothingToExport", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("no directory should be created for an empty export")
	}
}
