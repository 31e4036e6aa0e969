package clip

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestHashConsistency(t *testing.T) {
	data := []byte("Hello, World!")

	h1 := Hash(KindText, data)
	h2 := Hash(KindText, data)
	if h1 != h2 {
		t.Errorf("same input produced different hashes: %s != %s", h1, h2)
	}
}

func TestHashDifferentKinds(t *testing.T) {
	data := []byte("content")

	if Hash(KindText, data) == Hash(KindImage, data) {
		t.Error("text and image hashes of the same bytes should differ")
	}
}

func TestHashDifferentContent(t *testing.T) {
	if Hash(KindText, []byte("Hello")) == Hash(KindText, []byte("World")) {
		t.Error("different content should produce different hashes")
	}
}

func TestHashFormat(t *testing.T) {
	hash := Hash(KindText, []byte("test"))

	if len(hash) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(hash))
	}
	if strings.Trim(hash, "0123456789abcdef") != "" {
		t.Errorf("hash is not lowercase hex: %s", hash)
	}
}

func TestHashPrefixesKind(t *testing.T) {
	sum := sha256.Sum256([]byte("texttest"))
	want := hex.EncodeToString(sum[:])

	if got := Hash(KindText, []byte("test")); got != want {
		t.Errorf("Hash() = %s, want %s", got, want)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"text", KindText, false},
		{"image", KindImage, false},
		{"video", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPayloadFingerprint(t *testing.T) {
	plain := NewText("secret", "")
	concealed := NewText("secret", "")
	concealed.Concealed = true

	if plain.Fingerprint() == concealed.Fingerprint() {
		t.Error("fingerprint should change when privacy markers change")
	}
	if plain.Fingerprint() != NewText("secret", "other.app").Fingerprint() {
		t.Error("fingerprint should not depend on the source app")
	}
}

func TestPayloadBytes(t *testing.T) {
	if got := string(NewText("abc", "").Bytes()); got != "abc" {
		t.Errorf("text Bytes() = %q, want abc", got)
	}
	img := []byte{0x89, 'P', 'N', 'G'}
	if got := NewImage(img, "").Bytes(); string(got) != string(img) {
		t.Errorf("image Bytes() = %v, want %v", got, img)
	}
}
