package form

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner([]byte("secret"))
	tok, err := s.Token()
	if err != nil {
		t.Fatal(err)
	}
	if !s.Verify(tok) {
		t.Fatal("fresh token rejected")
	}

	other, _ := s.Token()
	if other == tok {
		t.Error("tokens should be unique per render")
	}
}

func TestSigner_RejectsForeignAndTampered(t *testing.T) {
	s := NewSigner([]byte("secret"))
	tok, _ := s.Token()

	if NewSigner([]byte("other")).Verify(tok) {
		t.Error("token accepted under a different key")
	}

	raw, _ := base64.RawURLEncoding.DecodeString(tok)
	raw[0] ^= 0xff
	if s.Verify(base64.RawURLEncoding.EncodeToString(raw)) {
		t.Error("tampered token accepted")
	}

	for _, bad := range []string{"", "!!!", base64.RawURLEncoding.EncodeToString([]byte("short"))} {
		if s.Verify(bad) {
			t.Errorf("Verify(%q) = true", bad)
		}
	}
}

func TestSigner_Expiry(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewSigner([]byte("secret"))
	s.now = func() time.Time { return now }

	tok, _ := s.Token()

	now = now.Add(defaultMaxAge - time.Second)
	if !s.Verify(tok) {
		t.Fatal("token rejected before expiry")
	}
	now = now.Add(2 * time.Second)
	if s.Verify(tok) {
		t.Fatal("expired token accepted")
	}

	// Issued in the future beyond the allowed skew.
	s.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC).Add(-2 * maxSkew) }
	if s.Verify(tok) {
		t.Fatal("token from the future accepted")
	}
}

func TestNewSigner_EmptyKeyStillWorks(t *testing.T) {
	s := NewSigner(nil)
	tok, err := s.Token()
	if err != nil || !s.Verify(tok) {
		t.Fatalf("ephemeral signer: tok=%q err=%v", tok, err)
	}
}
