package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/clipboard"
	"github.com/yiblet/clipstash/internal/ingest"
)

// executeWatch handles the 'clipstash watch' command. It records clipboard
// changes until interrupted and reloads settings on SIGHUP.
func (c *CLI) executeWatch(cmd *WatchCmd) error {
	if !c.clipboard.IsSupported() {
		return fmt.Errorf("clipboard is not available on this system")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.watch(ctx, cmd)
}

func (c *CLI) watch(ctx context.Context, cmd *WatchCmd) error {
	cfg, err := c.configManager.Load()
	if err != nil {
		return err
	}

	pipeline := ingest.New(c.store, cfg, ingest.WithLogger(c.log))

	interval := cfg.PollInterval()
	if cmd.Interval != nil {
		interval = time.Duration(*cmd.Interval) * time.Millisecond
	}

	monitor := clipboard.NewMonitor(c.clipboard, func(p *clip.Payload) {
		res := pipeline.Ingest(p)
		if res.Stored() {
			c.log.Info("captured", "id", res.ID, "kind", p.Kind, "source", p.SourceApp)
		}
	},
		clipboard.WithInterval(interval),
		clipboard.WithMonitorLogger(c.log),
		clipboard.WithMonitorClock(c.now),
	)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				c.reload(pipeline)
			}
		}
	}()

	fmt.Fprintf(c.out, "Watching clipboard every %s (Ctrl-C to stop)\n", interval)
	if err := monitor.Run(ctx); err != nil {
		return fmt.Errorf("clipboard monitor failed: %w", err)
	}
	fmt.Fprintln(c.out, "Stopped.")
	return nil
}

// reload swaps in the settings from disk, keeping the current ones when
// the file is invalid.
func (c *CLI) reload(pipeline *ingest.Pipeline) {
	cfg, err := c.configManager.Load()
	if err != nil {
		c.log.Warn("config reload failed, keeping current settings", "error", err)
		return
	}
	pipeline.UpdateSettings(cfg)
	c.log.Info("config reloaded", "path", c.configManager.GetConfigPath())
}
