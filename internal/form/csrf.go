// internal/form/csrf.go
//
// Onatrix – Forms subsystem: stateless CSRF tokens.
//
// Context
//   Rendered forms embed a hidden `csrf_token` input.  When forms.csrf is on,
//   the handler verifies it before touching the fields.  The token carries
//   everything needed to check it, so no session store is involved:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – issue time, 8 bytes, big-endian.
//   •  HMAC – keyed with forms.csrf_key.
//
// Workflow
//   •  NewSigner(key)  → one Signer per process, shared by renderer and handler.
//   •  Token()         → fresh token per render.
//   •  Verify(tok)     → constant-time check of signature and age.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"

	"go.uber.org/zap"
)

// CSRFField is the form key carrying the token.
const CSRFField = "csrf_token"

const (
	nonceBytes    = 16
	tokenBytes    = nonceBytes + 8 + sha256.Size
	defaultMaxAge = 2 * time.Hour
	maxSkew       = time.Minute
)

// Signer issues and verifies tokens.  Safe for concurrent use.
type Signer struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer keyed with key.  An empty key is replaced by a
// random one, which means tokens do not survive a restart.
func NewSigner(key []byte) *Signer {
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
		zap.S().Warnw("forms.csrf_key not set; using an ephemeral key")
	}
	return &Signer{key: key, maxAge: defaultMaxAge, now: time.Now}
}

// Token creates a new CSRF token.  Call once per form render.
func (s *Signer) Token() (string, error) {
	buf := make([]byte, nonceBytes+8, tokenBytes)
	if _, err := rand.Read(buf[:nonceBytes]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(buf[nonceBytes:], uint64(s.now().UnixMicro()))
	buf = append(buf, s.sign(buf)...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify reports whether tok was issued by s and is still fresh.
func (s *Signer) Verify(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(raw[nonceBytes : nonceBytes+8])))
	now := s.now()
	if now.Sub(issued) > s.maxAge || issued.Sub(now) > maxSkew {
		return false
	}

	return hmac.Equal(raw[nonceBytes+8:], s.sign(raw[:nonceBytes+8]))
}

func (s *Signer) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}
