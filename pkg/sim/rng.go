package sim

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// actionRNG re-derives the PRNG for one action deterministically from
// the session seed and the action-sequence-number, the same
// hash-then-seed technique the procedural content generator uses to
// derive per-context seeds from a single base seed. Re-deriving instead
// of carrying a live *rand.Rand across calls is what lets (Seed, Seq)
// alone stand in for "the PRNG state is part of Game State": the two
// integers are the entire state, and they are already plain fields.
func actionRNG(seed int64, seq uint64) *rand.Rand {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d", seed, seq)))
	derived := int64(binary.BigEndian.Uint64(sum[:8]))
	return rand.New(rand.NewSource(derived))
}
