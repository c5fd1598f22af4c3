// Package entropy builds the seeded random sources a simulation run draws
// from. A run without an explicit seed gets one from crypto/rand, and the
// seed is always reported back so the run can be replayed.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
)

// Offsets for streams derived from a run seed. Each collaborator that needs
// randomness outside the model's own stream gets its own offset so it never
// perturbs the model's draw order.
const (
	OffsetTopology int64 = 100
)

// Resolve returns *seed when set, otherwise a fresh non-negative seed from
// crypto/rand.
func Resolve(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return CryptoSeed()
}

// New returns a math/rand generator for seed.
func New(seed int64) *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(seed))
}

// Derive returns a generator for a stream derived from seed.
func Derive(seed, offset int64) *mathrand.Rand {
	return New(seed + offset)
}

// CryptoSeed generates a non-negative int64 seed using crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return 42
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
