// Package signature verifies the HMAC-signed webhook deliveries pushed by the
// automation vendor. The vendor signs the raw request body with HMAC-SHA256
// and embeds an expires_at epoch inside the JSON payload.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyBody        = errors.New("received request without body")
	ErrMalformedBody    = errors.New("failed to decode json body")
	ErrMissingExpiry    = errors.New("no expiration date sent")
	ErrInvalidSignature = errors.New("invalid hmac signature")
	ErrExpired          = errors.New("webhook message expired")
	ErrMissingHeader    = errors.New("signature header missing")
)

// ParseHeader extracts the hex digest from a "sha256=<hex>" signature header.
func ParseHeader(header string) (string, error) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", ErrMissingHeader
	}
	if _, digest, found := strings.Cut(trimmed, "="); found {
		return digest, nil
	}
	return trimmed, nil
}

// VerifyHMAC reports whether the received hex digest matches the body's
// HMAC-SHA256 under the shared secret. Comparison is constant-time.
func VerifyHMAC(body []byte, receivedHex, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(receivedHex))
}

type envelope struct {
	ExpiresAt float64 `json:"expires_at"`
}

// VerifyMessage validates a webhook delivery end to end: body present, JSON
// decodable, expiry present, signature correct, and not yet expired. The raw
// body is returned untouched for downstream decoding.
func VerifyMessage(body []byte, receivedHex, secret string, now time.Time) ([]byte, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrMalformedBody
	}
	if env.ExpiresAt == 0 {
		return nil, ErrMissingExpiry
	}

	if !VerifyHMAC(body, receivedHex, secret) {
		return nil, ErrInvalidSignature
	}

	if float64(now.Unix()) > env.ExpiresAt {
		return nil, ErrExpired
	}

	return body, nil
}
