// Package clipboard defines the clipboard access interfaces and the Monitor
// that polls a Source and hands new captures to an ingest handler.
package clipboard

import (
	"github.com/yiblet/clipstash/internal/clip"
)

// Source reads the current clipboard content. Read returns a nil payload
// when the clipboard is empty or holds an unsupported format.
type Source interface {
	Read() (*clip.Payload, error)
}

// Writer places content on the clipboard.
type Writer interface {
	WriteText(text string) error
	WriteImage(png []byte) error
}

// Clipboard is a readable and writable clipboard.
type Clipboard interface {
	Source
	Writer

	// IsSupported returns true if clipboard operations are available.
	IsSupported() bool
}
