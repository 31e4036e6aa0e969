// Package ingest turns clipboard payloads into stored history records:
// policy gate, hash, dedup, insert, evict.
package ingest

import (
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/config"
	"github.com/yiblet/clipstash/internal/store"
)

// Sink is the part of the record store the pipeline writes through.
type Sink interface {
	Exists(contentHash string) (bool, error)
	Insert(rec *store.NewRecord) (int64, error)
	Evict(limit int) (int, error)
}

// Outcome describes what happened to a payload.
type Outcome int

const (
	OutcomeStored Outcome = iota
	OutcomeConcealed
	OutcomeTransient
	OutcomeIgnoredSource
	OutcomeImagesDisabled
	OutcomeEmpty
	OutcomeInvalid
	OutcomeTooLarge
	OutcomeDuplicate
	OutcomeFailed
)

var outcomeNames = [...]string{
	OutcomeStored:         "stored",
	OutcomeConcealed:      "concealed",
	OutcomeTransient:      "transient",
	OutcomeIgnoredSource:  "ignored-source",
	OutcomeImagesDisabled: "images-disabled",
	OutcomeEmpty:          "empty",
	OutcomeInvalid:        "invalid",
	OutcomeTooLarge:       "too-large",
	OutcomeDuplicate:      "duplicate",
	OutcomeFailed:         "failed",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Result is the outcome of one Ingest call. ID is set only when stored.
type Result struct {
	Outcome Outcome
	ID      int64
}

// Stored reports whether the payload produced a record.
func (r Result) Stored() bool {
	return r.Outcome == OutcomeStored
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// Pipeline applies the capture policy and writes accepted payloads.
// Settings are swapped atomically and read once per Ingest call.
type Pipeline struct {
	sink     Sink
	settings atomic.Pointer[config.Config]
	log      *slog.Logger
}

// New creates a pipeline writing to sink. A nil cfg uses the defaults.
func New(sink Sink, cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		sink: sink,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.UpdateSettings(cfg)
	return p
}

// UpdateSettings replaces the settings used by subsequent Ingest calls.
func (p *Pipeline) UpdateSettings(cfg *config.Config) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p.settings.Store(cfg)
}

// Settings returns the current settings.
func (p *Pipeline) Settings() *config.Config {
	return p.settings.Load()
}

// Ingest runs payload through the gate and stores it if accepted.
// Storage failures are logged and reported as OutcomeFailed; they are
// never returned to the caller.
func (p *Pipeline) Ingest(payload *clip.Payload) Result {
	cfg := p.settings.Load()
	log := p.log.With("kind", string(payload.Kind), "source", payload.SourceApp)

	if payload.Concealed && cfg.IgnoreConcealed {
		return p.skip(log, OutcomeConcealed)
	}
	if payload.Transient && cfg.IgnoreTransient {
		return p.skip(log, OutcomeTransient)
	}
	if cfg.IsIgnored(payload.SourceApp) {
		return p.skip(log, OutcomeIgnoredSource)
	}
	if payload.Kind == clip.KindImage && !cfg.SaveImages {
		return p.skip(log, OutcomeImagesDisabled)
	}

	rec, outcome := normalize(payload, cfg)
	if rec == nil {
		return p.skip(log, outcome)
	}

	if cfg.Dedup {
		exists, err := p.sink.Exists(rec.ContentHash)
		if err != nil {
			log.Error("dedup lookup failed, dropping capture", "error", err)
			return Result{Outcome: OutcomeFailed}
		}
		if exists {
			return p.skip(log, OutcomeDuplicate)
		}
	}

	id, err := p.sink.Insert(rec)
	if err != nil {
		log.Error("failed to store capture", "error", err)
		return Result{Outcome: OutcomeFailed}
	}

	if n, err := p.sink.Evict(cfg.HistoryLimit); err != nil {
		log.Warn("eviction failed", "limit", cfg.HistoryLimit, "error", err)
	} else if n > 0 {
		log.Debug("evicted old items", "count", n)
	}

	log.Debug("stored capture", "id", id, "bytes", rec.ByteSize)
	return Result{Outcome: OutcomeStored, ID: id}
}

func (p *Pipeline) skip(log *slog.Logger, outcome Outcome) Result {
	log.Debug("skipped capture", "outcome", outcome.String())
	return Result{Outcome: outcome}
}

// normalize validates the payload against the size caps and builds the
// record to insert. The hash covers the normalized body, so payloads that
// differ only in surrounding whitespace deduplicate unless byte_preserve
// is set.
func normalize(payload *clip.Payload, cfg *config.Config) (*store.NewRecord, Outcome) {
	switch payload.Kind {
	case clip.KindText:
		if payload.Data != nil {
			return nil, OutcomeInvalid
		}
		text := payload.Text
		if !cfg.BytePreserve {
			text = strings.TrimSpace(text)
		}
		if text == "" {
			return nil, OutcomeEmpty
		}
		if len(text) > cfg.TextMaxBytes {
			return nil, OutcomeTooLarge
		}
		return &store.NewRecord{
			Kind:        clip.KindText,
			Text:        text,
			SourceApp:   payload.SourceApp,
			ContentHash: clip.Hash(clip.KindText, []byte(text)),
			ByteSize:    int64(len(text)),
		}, OutcomeStored

	case clip.KindImage:
		if len(payload.Data) == 0 || payload.Text != "" {
			return nil, OutcomeInvalid
		}
		if len(payload.Data) > cfg.ImageMaxBytes {
			return nil, OutcomeTooLarge
		}
		return &store.NewRecord{
			Kind:        clip.KindImage,
			ImageData:   payload.Data,
			SourceApp:   payload.SourceApp,
			ContentHash: clip.Hash(clip.KindImage, payload.Data),
			ByteSize:    int64(len(payload.Data)),
		}, OutcomeStored

	default:
		return nil, OutcomeInvalid
	}
}
