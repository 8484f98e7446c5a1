package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/samber/lo"
)

const (
	// Bits is the number of random bits in a generated identifier.
	Bits = 60

	// Length is the byte length of the key encoding of an identifier.
	Length = 8
)

const mask = 1<<Bits - 1

// ID identifies a single node in a tree. Identifiers are totally ordered
// by their numeric value.
type ID uint64

// New generates new ID from the system entropy source.
func New() ID {
	var b [Length]byte
	lo.Must(cryptorand.Read(b[:]))
	return ID(binary.BigEndian.Uint64(b[:]) & mask)
}

// Random generates new ID from the given source.
func Random(r *rand.Rand) ID {
	return ID(r.Uint64() & mask)
}

// Key returns the byte encoding of the ID used to key the node store.
// Big-endian keeps lexicographic key order equal to numeric ID order.
func (i ID) Key() []byte {
	b := make([]byte, Length)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b
}
