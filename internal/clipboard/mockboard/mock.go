// Package mockboard provides a scriptable clipboard for testing.
package mockboard

import (
	"sync"

	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/clipboard"
)

// MockClipboard implements clipboard.Clipboard in memory
type MockClipboard struct {
	mu      sync.Mutex
	payload *clip.Payload
	err     error
	reads   int
}

var _ clipboard.Clipboard = (*MockClipboard)(nil)

// New creates an empty MockClipboard
func New() *MockClipboard {
	return &MockClipboard{}
}

// Read returns a copy of the current payload, or the scripted error
func (m *MockClipboard) Read() (*clip.Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	if m.payload == nil {
		return nil, nil
	}
	p := *m.payload
	return &p, nil
}

// WriteText places text on the clipboard
func (m *MockClipboard) WriteText(text string) error {
	m.Set(clip.NewText(text, ""))
	return nil
}

// WriteImage places PNG data on the clipboard
func (m *MockClipboard) WriteImage(png []byte) error {
	m.Set(clip.NewImage(append([]byte(nil), png...), ""))
	return nil
}

// Set replaces the clipboard content; nil empties it
func (m *MockClipboard) Set(p *clip.Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = p
}

// SetText is shorthand for Set(clip.NewText(text, sourceApp))
func (m *MockClipboard) SetText(text, sourceApp string) {
	m.Set(clip.NewText(text, sourceApp))
}

// SetError makes subsequent reads fail with err; nil clears it
func (m *MockClipboard) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Current returns the current payload without counting a read
func (m *MockClipboard) Current() *clip.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload
}

// Reads returns how many times Read was called
func (m *MockClipboard) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// IsSupported always returns true for the mock clipboard
func (m *MockClipboard) IsSupported() bool {
	return true
}
