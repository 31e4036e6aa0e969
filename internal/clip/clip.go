// Package clip defines the clipboard payloads that flow from a clipboard
// observer into the ingest pipeline, and the content fingerprint used to
// deduplicate them.
package clip

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Kind identifies the type of captured content.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// ParseKind converts a stored kind name back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindText, KindImage:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown content kind: %q", s)
	}
}

// Payload is a single clipboard snapshot delivered by an observer.
// Text is set iff Kind is KindText, Data iff Kind is KindImage.
type Payload struct {
	Kind      Kind
	Text      string
	Data      []byte
	SourceApp string

	// Concealed and Transient carry the source-level privacy markers
	// (password managers, auto-generated content).
	Concealed bool
	Transient bool
}

// NewText builds a text payload.
func NewText(text, sourceApp string) *Payload {
	return &Payload{Kind: KindText, Text: text, SourceApp: sourceApp}
}

// NewImage builds an image payload.
func NewImage(data []byte, sourceApp string) *Payload {
	return &Payload{Kind: KindImage, Data: data, SourceApp: sourceApp}
}

// Bytes returns the raw bytes of the payload body.
func (p *Payload) Bytes() []byte {
	if p.Kind == KindText {
		return []byte(p.Text)
	}
	return p.Data
}

// Fingerprint identifies the payload including its privacy markers.
// Observers use it to detect clipboard changes.
func (p *Payload) Fingerprint() string {
	markers := fmt.Sprintf("%t%t", p.Concealed, p.Transient)
	return Hash(p.Kind, p.Bytes()) + markers
}

// Hash returns the lowercase hex SHA-256 of the kind name followed by data.
// The same (kind, data) pair always yields the same hash.
func Hash(kind Kind, data []byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
