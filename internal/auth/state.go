package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StateTTL bounds how long a signed OAuth state token stays usable.
const StateTTL = 10 * time.Minute

var (
	ErrStateInvalid = errors.New("state token invalid")
	ErrStateExpired = errors.New("state token expired")
)

// statePayload is the signed portion of an OAuth state token
type statePayload struct {
	UserID string `json:"uid"`
	Nonce  string `json:"n"`
	Exp    int64  `json:"exp"`
}

// envelope carries the payload alongside its signature on the wire
type stateEnvelope struct {
	Payload   string `json:"p"`
	Signature string `json:"s"`
}

// StateSigner mints and verifies HMAC-signed OAuth state tokens that carry
// the initiating user's id across the Strava redirect round trip
type StateSigner struct {
	secret []byte
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// Sign produces an opaque, URL-safe state token bound to userID
func (s *StateSigner) Sign(userID string, now time.Time) (string, error) {
	payload := statePayload{
		UserID: userID,
		Nonce:  uuid.NewString(),
		Exp:    now.Add(StateTTL).Unix(),
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state payload: %w", err)
	}

	env := stateEnvelope{
		Payload:   string(payloadJSON),
		Signature: s.sign(payloadJSON),
	}

	envJSON, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state envelope: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(envJSON), nil
}

// Verify checks the token's signature and expiry and returns the user id it
// was minted for
func (s *StateSigner) Verify(token string, now time.Time) (string, error) {
	envJSON, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrStateInvalid
	}

	var env stateEnvelope
	if err := json.Unmarshal(envJSON, &env); err != nil {
		return "", ErrStateInvalid
	}

	want := s.sign([]byte(env.Payload))
	if !hmac.Equal([]byte(want), []byte(env.Signature)) {
		return "", ErrStateInvalid
	}

	var payload statePayload
	if err := json.Unmarshal([]byte(env.Payload), &payload); err != nil {
		return "", ErrStateInvalid
	}
	if payload.UserID == "" {
		return "", ErrStateInvalid
	}
	if now.Unix() > payload.Exp {
		return "", ErrStateExpired
	}

	return payload.UserID, nil
}

func (s *StateSigner) sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
