package utils

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// EncodeCursor packs a (timestamp, id) position into an opaque URL safe token.
func EncodeCursor(ts time.Time, id string) string {
	if ts.IsZero() && id == "" {
		return ""
	}
	raw := ts.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor. An empty token decodes to the zero position.
func DecodeCursor(token string) (time.Time, string, error) {
	if token == "" {
		return time.Time{}, "", nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid cursor: %w", err)
	}

	tsPart, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", fmt.Errorf("invalid cursor: missing id")
	}

	ts, err := time.Parse(time.RFC3339Nano, tsPart)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid cursor: %w", err)
	}
	return ts, id, nil
}
