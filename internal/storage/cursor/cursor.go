// Package cursor encodes roll history page tokens.
//
// A token records the sequence number of the last row on a page together
// with a fingerprint of the query that produced it, so a token can only
// continue the listing it came from.
package cursor

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const version byte = 1

const flagDescending byte = 1 << 0

var (
	// ErrMalformed reports a token that was not produced by this package.
	ErrMalformed = errors.New("malformed page token")
	// ErrQueryChanged reports a token used with a different filter or order.
	ErrQueryChanged = errors.New("page token belongs to a different query")
)

// Cursor marks the last row returned on a page.
type Cursor struct {
	Seq        uint64
	Descending bool
	// Query fingerprints the filter and order of the listing.
	Query uint64
}

// New returns the cursor continuing after lastSeq.
func New(lastSeq uint64, descending bool, filter string) Cursor {
	return Cursor{Seq: lastSeq, Descending: descending, Query: fingerprint(filter, descending)}
}

// Token encodes c as an opaque URL-safe string.
func (c Cursor) Token() string {
	buf := make([]byte, 0, 2+binary.MaxVarintLen64+8)
	var flags byte
	if c.Descending {
		flags |= flagDescending
	}
	buf = append(buf, version, flags)
	buf = binary.AppendUvarint(buf, c.Seq)
	buf = binary.BigEndian.AppendUint64(buf, c.Query)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Parse decodes a token produced by Token.
func Parse(token string) (Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil || len(data) < 2 {
		return Cursor{}, ErrMalformed
	}
	if data[0] != version {
		return Cursor{}, fmt.Errorf("%w: version %d", ErrMalformed, data[0])
	}
	flags := data[1]
	if flags&^flagDescending != 0 {
		return Cursor{}, ErrMalformed
	}
	seq, n := binary.Uvarint(data[2:])
	if n <= 0 {
		return Cursor{}, ErrMalformed
	}
	rest := data[2+n:]
	if len(rest) != 8 {
		return Cursor{}, ErrMalformed
	}
	return Cursor{
		Seq:        seq,
		Descending: flags&flagDescending != 0,
		Query:      binary.BigEndian.Uint64(rest),
	}, nil
}

// Matches reports ErrQueryChanged unless c was issued for the same filter
// and order.
func (c Cursor) Matches(filter string, descending bool) error {
	if c.Descending != descending || c.Query != fingerprint(filter, descending) {
		return ErrQueryChanged
	}
	return nil
}

// Predicate returns the SQL condition selecting rows after c. It takes the
// sequence number as its only parameter.
func (c Cursor) Predicate() string {
	if c.Descending {
		return "seq < ?"
	}
	return "seq > ?"
}

func fingerprint(filter string, descending bool) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(strings.TrimSpace(filter))
	if descending {
		_, _ = d.WriteString("\x00desc")
	}
	return d.Sum64()
}
