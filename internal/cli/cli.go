package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/clipboard"
	"github.com/yiblet/clipstash/internal/clipboard/sysboard"
	"github.com/yiblet/clipstash/internal/config"
	"github.com/yiblet/clipstash/internal/export"
	"github.com/yiblet/clipstash/internal/ingest"
	"github.com/yiblet/clipstash/internal/store"
	"github.com/yiblet/clipstash/internal/store/dbstore"
)

// CLI handles the command-line interface
type CLI struct {
	configManager *config.ConfigManager
	store         store.RecordStore
	clipboard     clipboard.Clipboard
	dataDir       string

	out io.Writer
	in  io.Reader
	log *slog.Logger
	now func() time.Time
}

// NewWithArgs creates a CLI backed by the SQLite store and the system
// clipboard. Flags take precedence over the config file.
func NewWithArgs(args *Args) (*CLI, error) {
	cm := config.NewConfigManager()
	if args != nil && args.ConfigPath != nil {
		cm = config.NewConfigManagerWithPath(*args.ConfigPath)
	}

	cfg, err := cm.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dataDir := cfg.ResolveDataDir()
	if args != nil && args.DataDir != nil {
		dataDir = *args.DataDir
	}

	log := slog.Default()
	st := dbstore.New(dataDir, dbstore.WithLogger(log))

	c := newCLI(cm, st, sysboard.New())
	c.dataDir = dataDir
	c.log = log
	return c, nil
}

func newCLI(cm *config.ConfigManager, st store.RecordStore, cb clipboard.Clipboard) *CLI {
	return &CLI{
		configManager: cm,
		store:         st,
		clipboard:     cb,
		out:           os.Stdout,
		in:            os.Stdin,
		log:           slog.Default(),
		now:           time.Now,
	}
}

// Execute runs the CLI command based on parsed arguments
func (c *CLI) Execute(args *Args) error {
	if err := args.Validate(); err != nil {
		return err
	}

	// Configuration never touches the history store
	if args.Config != nil {
		return c.executeConfig(args.Config)
	}

	if err := c.store.Open(); err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer c.store.Close()

	switch {
	case args.Watch != nil:
		return c.executeWatch(args.Watch)
	case args.Store != nil:
		return c.executeStore(args.Store)
	case args.Search != nil:
		return c.executeSearch(args.Search)
	case args.Get != nil:
		return c.executeGet(args.Get)
	case args.Delete != nil:
		return c.executeDelete(args.Delete)
	case args.Pin != nil:
		return c.executePin(args.Pin.IDs, func(id int64) error { return c.store.SetPinned(id, true) }, "Pinned")
	case args.Unpin != nil:
		return c.executePin(args.Unpin.IDs, func(id int64) error { return c.store.SetPinned(id, false) }, "Unpinned")
	case args.Toggle != nil:
		return c.executePin(args.Toggle.IDs, c.store.TogglePinned, "Toggled")
	case args.Clear != nil:
		return c.executeClear(args.Clear)
	case args.Export != nil:
		return c.executeExport(args.Export)
	case args.Stats != nil:
		return c.executeStats()
	case args.Apps != nil:
		return c.executeApps()
	case args.List != nil:
		return c.executeList(args.List)
	default:
		return c.executeList(&ListCmd{Limit: 20})
	}
}

// executeStore handles the 'clipstash store' command. Content goes through
// the same policy as captured clipboard changes.
func (c *CLI) executeStore(cmd *StoreCmd) error {
	cfg, err := c.configManager.Load()
	if err != nil {
		return err
	}
	pipeline := ingest.New(c.store, cfg, ingest.WithLogger(c.log))

	switch {
	case cmd.Clipboard:
		payload, err := c.clipboard.Read()
		if err != nil {
			return fmt.Errorf("failed to read clipboard: %w", err)
		}
		if payload == nil {
			return fmt.Errorf("clipboard is empty")
		}
		if cmd.Source != "" {
			payload.SourceApp = cmd.Source
		}
		return c.report(pipeline.Ingest(payload), "clipboard")

	case len(cmd.Files) > 0:
		for _, filename := range cmd.Files {
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", filename, err)
			}
			if err := c.report(pipeline.Ingest(payloadFromBytes(data, cmd.Source)), filename); err != nil {
				return err
			}
		}
		return nil

	default:
		data, err := io.ReadAll(c.in)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if len(data) == 0 {
			return fmt.Errorf("no input provided")
		}
		return c.report(pipeline.Ingest(payloadFromBytes(data, cmd.Source)), "stdin")
	}
}

// payloadFromBytes treats recognized image formats as images and
// everything else as text.
func payloadFromBytes(data []byte, source string) *clip.Payload {
	if strings.HasPrefix(http.DetectContentType(data), "image/") {
		return clip.NewImage(data, source)
	}
	return clip.NewText(string(data), source)
}

func (c *CLI) report(res ingest.Result, from string) error {
	switch res.Outcome {
	case ingest.OutcomeStored:
		fmt.Fprintf(c.out, "%s #%d from %s\n", successStyle.Render("Stored"), res.ID, from)
		return nil
	case ingest.OutcomeFailed:
		return fmt.Errorf("failed to store content from %s", from)
	default:
		fmt.Fprintf(c.out, "%s from %s: %s\n", warnStyle.Render("Skipped"), from, res.Outcome)
		return nil
	}
}

// executeList handles the 'clipstash list' command
func (c *CLI) executeList(cmd *ListCmd) error {
	filter := store.Filter{
		Kind:       clip.Kind(cmd.Kind),
		SourceApp:  cmd.Source,
		PinnedOnly: cmd.Pinned,
	}
	if cmd.Since != "" {
		since, err := parseSince(cmd.Since, c.now())
		if err != nil {
			return err
		}
		filter.Since = since
	}

	var records []*store.Record
	var err error
	if filter != (store.Filter{}) {
		records, err = c.store.FetchFiltered(filter, cmd.Limit, cmd.Offset)
	} else {
		order := store.OrderPinnedFirst
		if cmd.Newest {
			order = store.OrderNewest
		}
		records, err = c.store.FetchPage(cmd.Limit, cmd.Offset, order)
	}
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(c.out, "History is empty.")
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, "To add items:")
		fmt.Fprintln(c.out, "  clipstash watch")
		fmt.Fprintln(c.out, "  echo \"Hello World\" | clipstash store")
		return nil
	}

	fmt.Fprintln(c.out, renderRecords(records))
	return nil
}

// executeSearch handles the 'clipstash search' command
func (c *CLI) executeSearch(cmd *SearchCmd) error {
	results, err := c.store.Search(cmd.Term, cmd.Limit, cmd.Offset)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no matches found for: %s", cmd.Term)
	}

	fmt.Fprintln(c.out, renderRecords(results))
	return nil
}

// executeGet handles the 'clipstash get' command
func (c *CLI) executeGet(cmd *GetCmd) error {
	rec, err := c.store.Get(cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to get item %d: %w", cmd.ID, err)
	}
	if rec == nil {
		return fmt.Errorf("item %d not found", cmd.ID)
	}

	var data []byte
	text, isText := rec.Text()
	if isText {
		data = []byte(text)
	} else if ref, ok := rec.BlobRef(); ok {
		if data, err = c.store.ReadBlob(ref); err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
	}

	switch {
	case cmd.Clipboard:
		if isText {
			err = c.clipboard.WriteText(text)
		} else {
			err = c.clipboard.WriteImage(data)
		}
		if err != nil {
			return fmt.Errorf("failed to write to clipboard: %w", err)
		}
		fmt.Fprintf(c.out, "Copied to clipboard: %s\n", rec.Preview(80))
		return nil

	case cmd.Output != nil:
		if err := os.WriteFile(*cmd.Output, data, 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(c.out, "Written to %s: %s\n", *cmd.Output, rec.Preview(80))
		return nil

	default:
		_, err := c.out.Write(data)
		return err
	}
}

// executeDelete handles the 'clipstash delete' command
func (c *CLI) executeDelete(cmd *DeleteCmd) error {
	return c.executePin(cmd.IDs, c.store.Delete, "Deleted")
}

// executePin applies op to each existing id and reports the result.
func (c *CLI) executePin(ids []int64, op func(int64) error, verb string) error {
	for _, id := range ids {
		rec, err := c.store.Get(id)
		if err != nil {
			return fmt.Errorf("failed to get item %d: %w", id, err)
		}
		if rec == nil {
			fmt.Fprintf(c.out, "%s item %d not found\n", warnStyle.Render("Skipped"), id)
			continue
		}
		if err := op(id); err != nil {
			return fmt.Errorf("failed to update item %d: %w", id, err)
		}
		fmt.Fprintf(c.out, "%s #%d: %s\n", successStyle.Render(verb), id, rec.Preview(60))
	}
	return nil
}

// executeClear handles the 'clipstash clear' command
func (c *CLI) executeClear(cmd *ClearCmd) error {
	count := c.store.Count
	if cmd.KeepPinned {
		count = c.store.CountUnpinned
	}
	n, err := count()
	if err != nil {
		return fmt.Errorf("failed to count items: %w", err)
	}
	if n == 0 {
		fmt.Fprintln(c.out, "History is already empty.")
		return nil
	}

	// Prompt for confirmation unless --force is used
	if !cmd.Force {
		fmt.Fprintf(c.out, "This will delete %d item(s) from history. Continue? [y/N]: ", n)
		response, _ := bufio.NewReader(c.in).ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(c.out, "Cancelled.")
			return nil
		}
	}

	removed, err := c.store.ClearAll(cmd.KeepPinned)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintf(c.out, "Cleared %d item(s) from history.\n", removed)
	return nil
}

// executeExport handles the 'clipstash export' command
func (c *CLI) executeExport(cmd *ExportCmd) error {
	format, err := export.ParseFormat(cmd.Format)
	if err != nil {
		return err
	}

	scope := export.Scope{
		LastN:      cmd.Last,
		Today:      cmd.Today,
		LastWeek:   cmd.Week,
		PinnedOnly: cmd.Pinned,
		IDs:        cmd.IDs,
		SourceApps: cmd.Sources,
	}
	if cmd.Since != "" {
		if scope.Since, err = parseSince(cmd.Since, c.now()); err != nil {
			return err
		}
	}

	exporter := export.New(c.store, export.WithClock(c.now), export.WithLogger(c.log))
	result, err := exporter.Export(export.Options{
		Scope:         scope,
		Format:        format,
		IncludeImages: cmd.Images,
		Dir:           cmd.Dir,
		ChunkBytes:    cmd.MaxBytes,
	})
	if errors.Is(err, export.ErrNothingToExport) {
		fmt.Fprintln(c.out, "Nothing to export.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintf(c.out, "%s %d item(s), %s in %d file(s):\n",
		successStyle.Render("Exported"), result.ItemCount, formatBytes(result.TotalBytes), len(result.Files))
	for _, f := range result.Files {
		fmt.Fprintf(c.out, "  %s\n", f)
	}
	return nil
}

// executeStats handles the 'clipstash stats' command
func (c *CLI) executeStats() error {
	total, err := c.store.Count()
	if err != nil {
		return fmt.Errorf("failed to count items: %w", err)
	}
	unpinned, err := c.store.CountUnpinned()
	if err != nil {
		return fmt.Errorf("failed to count items: %w", err)
	}

	search := "substring scan"
	if c.store.FullTextAvailable() {
		search = "full-text index"
	}

	values := map[string]string{
		"items":    fmt.Sprintf("%d", total),
		"pinned":   fmt.Sprintf("%d", total-unpinned),
		"database": formatBytes(c.store.DatabaseSizeBytes()),
		"images":   formatBytes(c.store.BlobStoreSizeBytes()),
		"search":   search,
	}
	if c.dataDir != "" {
		values["location"] = c.dataDir
	}
	if db, ok := c.store.(*dbstore.SQLiteStore); ok {
		values["schema"] = fmt.Sprintf("v%d", db.SchemaVersion())
	}

	fmt.Fprintln(c.out, renderKeyValues(values))
	return nil
}

// executeApps handles the 'clipstash apps' command
func (c *CLI) executeApps() error {
	apps, err := c.store.SourceApps()
	if err != nil {
		return fmt.Errorf("failed to list source apps: %w", err)
	}
	if len(apps) == 0 {
		fmt.Fprintln(c.out, "No source applications recorded.")
		return nil
	}

	cfg, err := c.configManager.Load()
	if err != nil {
		return err
	}
	for _, app := range apps {
		line := fmt.Sprintf("%-20s %s", store.AppName(app), dimStyle.Render(app))
		if cfg.IsIgnored(app) {
			line += " " + warnStyle.Render("(ignored)")
		}
		fmt.Fprintln(c.out, line)
	}
	return nil
}

// executeConfig handles the 'clipstash config' command
func (c *CLI) executeConfig(cmd *ConfigCmd) error {
	switch {
	case cmd.Get != nil:
		value, err := c.configManager.Get(cmd.Get.Key)
		if err != nil {
			return fmt.Errorf("failed to get config value: %w", err)
		}
		fmt.Fprintln(c.out, value)
		return nil

	case cmd.Set != nil:
		if err := c.configManager.Update(cmd.Set.Key, cmd.Set.Value); err != nil {
			return fmt.Errorf("failed to set config value: %w", err)
		}
		fmt.Fprintf(c.out, "Set %s = %s\n", cmd.Set.Key, cmd.Set.Value)
		return nil

	case cmd.List != nil:
		values, err := c.configManager.List()
		if err != nil {
			return fmt.Errorf("failed to list config values: %w", err)
		}
		fmt.Fprintf(c.out, "Current configuration (%s):\n", c.configManager.GetConfigPath())
		fmt.Fprintln(c.out, renderKeyValues(values))
		return nil

	case cmd.Ignore != nil:
		added, err := c.configManager.Ignore(cmd.Ignore.Source)
		if err != nil {
			return fmt.Errorf("failed to update ignore list: %w", err)
		}
		if !added {
			fmt.Fprintf(c.out, "%s is already ignored.\n", cmd.Ignore.Source)
			return nil
		}
		fmt.Fprintf(c.out, "Ignoring %s\n", cmd.Ignore.Source)
		return nil

	case cmd.Unignore != nil:
		removed, err := c.configManager.Unignore(cmd.Unignore.Source)
		if err != nil {
			return fmt.Errorf("failed to update ignore list: %w", err)
		}
		if !removed {
			fmt.Fprintf(c.out, "%s was not ignored.\n", cmd.Unignore.Source)
			return nil
		}
		fmt.Fprintf(c.out, "No longer ignoring %s\n", cmd.Unignore.Source)
		return nil

	default:
		return fmt.Errorf("no config subcommand specified")
	}
}
