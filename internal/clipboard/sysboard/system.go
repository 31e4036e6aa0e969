// Package sysboard implements clipboard access on the system clipboard.
// Content is read and written through golang.design/x/clipboard; on Linux
// the offered targets are listed with xclip to detect the privacy markers
// password managers and OTP tools attach.
package sysboard

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	xclipboard "golang.design/x/clipboard"

	"github.com/yiblet/clipstash/internal/clip"
	"github.com/yiblet/clipstash/internal/clipboard"
)

var (
	concealedTargets = []string{
		"x-kde-passwordManagerHint",
		"org.nspasteboard.ConcealedType",
	}
	transientTargets = []string{
		"org.nspasteboard.TransientType",
		"org.nspasteboard.AutoGeneratedType",
	}
)

// SystemClipboard implements clipboard.Clipboard on the system clipboard
type SystemClipboard struct {
	once    sync.Once
	initErr error

	// Marker targets are listed once per distinct body.
	mu          sync.Mutex
	listTargets func() []string
	lastHash    string
	lastTargets []string
}

var _ clipboard.Clipboard = (*SystemClipboard)(nil)

// New creates a new SystemClipboard instance
func New() *SystemClipboard {
	return &SystemClipboard{listTargets: readTargets}
}

func (s *SystemClipboard) init() error {
	s.once.Do(func() {
		if err := xclipboard.Init(); err != nil {
			s.initErr = fmt.Errorf("clipboard unavailable: %w", err)
		}
	})
	return s.initErr
}

// IsSupported returns true if the system clipboard could be initialized
func (s *SystemClipboard) IsSupported() bool {
	return s.init() == nil
}

// Read returns the clipboard content, preferring text over PNG images
func (s *SystemClipboard) Read() (*clip.Payload, error) {
	if err := s.init(); err != nil {
		return nil, err
	}

	var payload *clip.Payload
	if text := xclipboard.Read(xclipboard.FmtText); len(text) > 0 {
		payload = clip.NewText(string(text), "")
	} else if img := xclipboard.Read(xclipboard.FmtImage); len(img) > 0 {
		payload = clip.NewImage(img, "")
	} else {
		s.forget()
		return nil, nil
	}

	s.applyMarkers(payload)
	return payload, nil
}

// applyMarkers sets the privacy markers of payload, listing the clipboard
// targets only when the body differs from the previous read.
func (s *SystemClipboard) applyMarkers(payload *clip.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := clip.Hash(payload.Kind, payload.Bytes())
	if hash != s.lastHash {
		s.lastTargets = s.listTargets()
		s.lastHash = hash
	}
	payload.Concealed = hasAny(s.lastTargets, concealedTargets)
	payload.Transient = hasAny(s.lastTargets, transientTargets)
}

// forget drops the cached targets once the clipboard is empty.
func (s *SystemClipboard) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHash = ""
	s.lastTargets = nil
}

// WriteText places text on the clipboard
func (s *SystemClipboard) WriteText(text string) error {
	if err := s.init(); err != nil {
		return err
	}
	xclipboard.Write(xclipboard.FmtText, []byte(text))
	return nil
}

// WriteImage places PNG data on the clipboard
func (s *SystemClipboard) WriteImage(png []byte) error {
	if err := s.init(); err != nil {
		return err
	}
	xclipboard.Write(xclipboard.FmtImage, png)
	return nil
}

// readTargets lists the formats offered by the clipboard owner. Only X11
// exposes them to us; elsewhere the list is empty.
func readTargets() []string {
	if runtime.GOOS != "linux" {
		return nil
	}
	out, err := readWithCommand("xclip", "-selection", "clipboard", "-o", "-t", "TARGETS")
	if err != nil {
		return nil
	}
	return parseTargets(out)
}

func parseTargets(out []byte) []string {
	var targets []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			targets = append(targets, line)
		}
	}
	return targets
}

func hasAny(targets, markers []string) bool {
	for _, t := range targets {
		for _, m := range markers {
			if t == m {
				return true
			}
		}
	}
	return false
}

// readWithCommand executes a command and returns its output
func readWithCommand(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}
