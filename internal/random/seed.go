// Package random provides cryptographic seed generation helpers.
//
// It uses crypto/rand to generate high-entropy seeds suitable for
// initializing pseudo-random number generators in deterministic systems.
// Seeds stay within MaxSeed so they survive JSON, protobuf Struct and Lua
// numbers without losing precision.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"

	apperrors "github.com/louisbranch/dicetray/internal/platform/errors"
)

// MaxSeed is the largest seed a caller may request (2^53 - 1).
const MaxSeed int64 = 1<<53 - 1

// ErrSeedOutOfRange reports a requested seed outside [0, MaxSeed].
var ErrSeedOutOfRange = apperrors.New(apperrors.CodeSeedOutOfRange, "seed is out of range")

// SeedSource records where the seed for a roll came from.
type SeedSource string

const (
	// SeedSourceClient means the caller supplied the seed (replay).
	SeedSourceClient SeedSource = "CLIENT"
	// SeedSourceServer means the seed was generated for the roll.
	SeedSourceServer SeedSource = "SERVER"
)

// NewSeed generates a random seed in [0, MaxSeed] using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:]) & uint64(MaxSeed)), nil
}

// ResolveSeed returns the requested seed when present, otherwise a freshly
// generated one from newSeed (NewSeed when nil).
func ResolveSeed(requested *int64, newSeed func() (int64, error)) (int64, SeedSource, error) {
	if requested != nil {
		if *requested < 0 || *requested > MaxSeed {
			return 0, "", apperrors.WithMetadata(
				apperrors.CodeSeedOutOfRange,
				fmt.Sprintf("seed %d is outside [0, %d]", *requested, MaxSeed),
				map[string]string{"Seed": fmt.Sprint(*requested)},
			)
		}
		return *requested, SeedSourceClient, nil
	}
	if newSeed == nil {
		newSeed = NewSeed
	}
	seed, err := newSeed()
	if err != nil {
		return 0, "", err
	}
	return seed, SeedSourceServer, nil
}
