package cli

import (
	"fmt"
	"strings"
	"time"
)

// Args represents the top-level command structure
type Args struct {
	ConfigPath *string `arg:"--config,env:CLIPSTASH_CONFIG" help:"Config file path (default: $XDG_CONFIG_HOME/clipstash/config.yaml)"`
	DataDir    *string `arg:"--data-dir,env:CLIPSTASH_DATA_DIR" help:"History directory (overrides data_dir in config)"`
	Verbose    bool    `arg:"-v,--verbose" help:"Enable debug logging"`
	Quiet      bool    `arg:"-q,--quiet" help:"Disable logging"`

	Watch  *WatchCmd  `arg:"subcommand:watch" help:"Record clipboard changes until interrupted"`
	Store  *StoreCmd  `arg:"subcommand:store" help:"Store content from stdin, files or the clipboard"`
	List   *ListCmd   `arg:"subcommand:list" help:"List history items"`
	Search *SearchCmd `arg:"subcommand:search" help:"Search text items"`
	Get    *GetCmd    `arg:"subcommand:get" help:"Output an item"`
	Delete *DeleteCmd `arg:"subcommand:delete" help:"Delete items"`
	Pin    *PinCmd    `arg:"subcommand:pin" help:"Pin items so they are never evicted"`
	Unpin  *UnpinCmd  `arg:"subcommand:unpin" help:"Unpin items"`
	Toggle *ToggleCmd `arg:"subcommand:toggle" help:"Toggle the pin of items"`
	Clear  *ClearCmd  `arg:"subcommand:clear" help:"Clear history"`
	Export *ExportCmd `arg:"subcommand:export" help:"Export history to markdown or text files"`
	Stats  *StatsCmd  `arg:"subcommand:stats" help:"Show storage statistics"`
	Apps   *AppsCmd   `arg:"subcommand:apps" help:"List source applications"`
	Config *ConfigCmd `arg:"subcommand:config" help:"Manage configuration"`
}

// WatchCmd represents the 'clipstash watch' command
type WatchCmd struct {
	Interval *int `arg:"--interval" help:"Poll interval in milliseconds (overrides poll_interval_ms)"`
}

// StoreCmd represents the 'clipstash store' command
type StoreCmd struct {
	Files     []string `arg:"positional" help:"Files to read from (optional)"`
	Clipboard bool     `arg:"-c,--clipboard" help:"Read from clipboard"`
	Source    string   `arg:"-s,--source" help:"Source application to record"`
}

// ListCmd represents the 'clipstash list' command
type ListCmd struct {
	Limit  int    `arg:"-n,--limit" default:"20" help:"Maximum number of items (0 = all)"`
	Offset int    `arg:"--offset" help:"Number of items to skip"`
	Kind   string `arg:"--kind" help:"Only items of this kind (text or image)"`
	Source string `arg:"--source" help:"Only items from this source application"`
	Since  string `arg:"--since" help:"Only items since a date (2006-01-02) or duration (24h)"`
	Pinned bool   `arg:"--pinned" help:"Only pinned items"`
	Newest bool   `arg:"--newest" help:"Order by time only, ignoring pins"`
}

// SearchCmd represents the 'clipstash search' command
type SearchCmd struct {
	Term   string `arg:"positional,required" help:"Text to search for"`
	Limit  int    `arg:"-n,--limit" default:"20" help:"Maximum number of results (0 = all)"`
	Offset int    `arg:"--offset" help:"Number of results to skip"`
}

// GetCmd represents the 'clipstash get' command
type GetCmd struct {
	ID        int64   `arg:"positional,required" help:"Item id"`
	Clipboard bool    `arg:"-c,--clipboard" help:"Copy to clipboard"`
	Output    *string `arg:"-o,--output" help:"Output file"`
}

// DeleteCmd represents the 'clipstash delete' command
type DeleteCmd struct {
	IDs []int64 `arg:"positional,required" help:"Item ids"`
}

// PinCmd represents the 'clipstash pin' command
type PinCmd struct {
	IDs []int64 `arg:"positional,required" help:"Item ids"`
}

// UnpinCmd represents the 'clipstash unpin' command
type UnpinCmd struct {
	IDs []int64 `arg:"positional,required" help:"Item ids"`
}

// ToggleCmd represents the 'clipstash toggle' command
type ToggleCmd struct {
	IDs []int64 `arg:"positional,required" help:"Item ids"`
}

// ClearCmd represents the 'clipstash clear' command
type ClearCmd struct {
	Force      bool `arg:"-f,--force" help:"Skip confirmation prompt"`
	KeepPinned bool `arg:"-p,--keep-pinned" help:"Keep pinned items"`
}

// ExportCmd represents the 'clipstash export' command
type ExportCmd struct {
	Format   string   `arg:"-f,--format" default:"markdown" help:"Output format: markdown or text"`
	Last     int      `arg:"--last" help:"Only the N newest items"`
	Today    bool     `arg:"--today" help:"Only items from today"`
	Week     bool     `arg:"--week" help:"Only items from the last 7 days"`
	Since    string   `arg:"--since" help:"Only items since a date (2006-01-02) or duration (24h)"`
	Pinned   bool     `arg:"--pinned" help:"Only pinned items"`
	IDs      []int64  `arg:"--ids" help:"Only these item ids"`
	Sources  []string `arg:"--source" help:"Only items from these source applications"`
	Images   bool     `arg:"--images" help:"Copy images next to the export"`
	Dir      string   `arg:"-o,--dir" help:"Destination directory (default: timestamped folder in Downloads)"`
	MaxBytes int      `arg:"--max-bytes" help:"Target size of each export file"`
}

// StatsCmd represents the 'clipstash stats' command
type StatsCmd struct{}

// AppsCmd represents the 'clipstash apps' command
type AppsCmd struct{}

// ConfigCmd represents the 'clipstash config' command
type ConfigCmd struct {
	Get      *ConfigGetCmd      `arg:"subcommand:get" help:"Get a configuration value"`
	Set      *ConfigSetCmd      `arg:"subcommand:set" help:"Set a configuration value"`
	List     *ConfigListCmd     `arg:"subcommand:list" help:"List all configuration values"`
	Ignore   *ConfigIgnoreCmd   `arg:"subcommand:ignore" help:"Stop recording a source application"`
	Unignore *ConfigUnignoreCmd `arg:"subcommand:unignore" help:"Resume recording a source application"`
}

// ConfigGetCmd represents the 'clipstash config get' command
type ConfigGetCmd struct {
	Key string `arg:"positional,required" help:"Configuration key"`
}

// ConfigSetCmd represents the 'clipstash config set' command
type ConfigSetCmd struct {
	Key   string `arg:"positional,required" help:"Configuration key"`
	Value string `arg:"positional,required" help:"Configuration value"`
}

// ConfigListCmd represents the 'clipstash config list' command
type ConfigListCmd struct{}

// ConfigIgnoreCmd represents the 'clipstash config ignore' command
type ConfigIgnoreCmd struct {
	Source string `arg:"positional,required" help:"Source application identifier"`
}

// ConfigUnignoreCmd represents the 'clipstash config unignore' command
type ConfigUnignoreCmd struct {
	Source string `arg:"positional,required" help:"Source application identifier"`
}

// Description returns the program description
func (Args) Description() string {
	return "clipstash - clipboard history with search, pinning and export"
}

// Version returns the program version
func (Args) Version() string {
	return "clipstash 0.1.0"
}

// Epilogue returns additional help text
func (Args) Epilogue() string {
	return `Examples:
  clipstash watch                      # Record clipboard changes
  echo "hello" | clipstash store       # Store from stdin
  clipstash store -c                   # Store the current clipboard

  clipstash list -n 10                 # Ten most recent items, pinned first
  clipstash search "error 42"          # Search text items
  clipstash get 12 -c                  # Copy item 12 back to the clipboard
  clipstash pin 12                     # Keep item 12 forever

  clipstash export --today --images    # Export today's items with images
  clipstash config ignore com.example.vault`
}

// HasCommand reports whether a subcommand was given
func (args *Args) HasCommand() bool {
	return args.Watch != nil || args.Store != nil || args.List != nil ||
		args.Search != nil || args.Get != nil || args.Delete != nil ||
		args.Pin != nil || args.Unpin != nil || args.Toggle != nil ||
		args.Clear != nil || args.Export != nil || args.Stats != nil ||
		args.Apps != nil || args.Config != nil
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	if args.Verbose && args.Quiet {
		return fmt.Errorf("cannot specify both --verbose and --quiet")
	}

	switch {
	case args.Watch != nil:
		if args.Watch.Interval != nil && *args.Watch.Interval <= 0 {
			return fmt.Errorf("interval must be positive")
		}
	case args.Store != nil:
		if len(args.Store.Files) > 0 && args.Store.Clipboard {
			return fmt.Errorf("cannot specify both files and clipboard input")
		}
	case args.List != nil:
		if args.List.Limit < 0 || args.List.Offset < 0 {
			return fmt.Errorf("limit and offset must be non-negative")
		}
		if k := args.List.Kind; k != "" && k != "text" && k != "image" {
			return fmt.Errorf("kind must be 'text' or 'image'")
		}
	case args.Search != nil:
		if args.Search.Limit < 0 || args.Search.Offset < 0 {
			return fmt.Errorf("limit and offset must be non-negative")
		}
	case args.Get != nil:
		if args.Get.Output != nil && args.Get.Clipboard {
			return fmt.Errorf("cannot specify both file and clipboard output")
		}
	case args.Export != nil:
		if args.Export.Last < 0 {
			return fmt.Errorf("last must be non-negative")
		}
	}
	return nil
}

// parseSince accepts a date (2006-01-02), an RFC 3339 time, or a duration
// counted back from now.
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("duration must be positive: %s", s)
		}
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use 2006-01-02, RFC 3339, or a duration like 24h)", s)
}
