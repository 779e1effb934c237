// Package credential mints and verifies one-time voting tokens. A raw token
// is handed out exactly once at issuance; only its keyed hash is stored, so a
// database leak never yields a usable credential.
package credential

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
)

const (
	nonceSize   = 16 // 128 bits of entropy per token
	payloadSize = 16 + 16 + nonceSize
)

var ErrWeakSecret = errors.New("credential secret must be at least 32 bytes")

// Codec binds tokens to a server-side secret. Issue and Verify are pure
// functions of their inputs plus that secret.
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	return &Codec{secret: secret}, nil
}

// Issue returns the raw token for one-shot delivery and the hash to store.
// The election and voter ids ride inside the MAC'd payload, which is what
// binds the credential to exactly one (election, voter) pair.
func (c *Codec) Issue(electionID, voterID uuid.UUID) (raw string, hash string, err error) {
	payload := make([]byte, payloadSize)
	copy(payload[0:16], electionID[:])
	copy(payload[16:32], voterID[:])
	if _, err := rand.Read(payload[32:]); err != nil {
		return "", "", err
	}

	raw = base64.RawURLEncoding.EncodeToString(payload)
	return raw, c.hash(raw), nil
}

// Decode extracts the non-secret routing hint from a raw token. It performs
// no authentication; callers must still Verify against the stored hash.
func (c *Codec) Decode(raw string) (electionID, voterID uuid.UUID, err error) {
	payload, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(payload) != payloadSize {
		return uuid.Nil, uuid.Nil, domain.ErrInvalidCredential
	}

	copy(electionID[:], payload[0:16])
	copy(voterID[:], payload[16:32])
	return electionID, voterID, nil
}

// Verify recomputes the keyed hash of raw and compares it against storedHash
// in constant time. Any mismatch or malformed input fails closed.
func (c *Codec) Verify(raw, storedHash string) bool {
	expected, err := hex.DecodeString(storedHash)
	if err != nil {
		return false
	}
	actual, err := hex.DecodeString(c.hash(raw))
	if err != nil {
		return false
	}
	return hmac.Equal(actual, expected)
}

func (c *Codec) hash(raw string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
