// Package id generates roll and request identifiers.
//
// Identifiers are UUIDv7 bytes encoded as lowercase base32hex without
// padding: 26 characters that sort in creation order and carry the
// millisecond they were minted.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var encoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// NewID generates a new time-ordered identifier.
func NewID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Time returns the creation time encoded in an identifier from NewID.
func Time(value string) (time.Time, error) {
	raw, err := encoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("decode id %q: %w", value, err)
	}
	u, err := uuid.FromBytes(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode id %q: %w", value, err)
	}
	if u.Version() != 7 {
		return time.Time{}, fmt.Errorf("id %q is not time ordered", value)
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec), nil
}
