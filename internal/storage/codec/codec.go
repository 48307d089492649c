// Package codec holds the little-endian integer helpers, the sort-key
// derivation, and the prefix comparator shared by every on-disk structure
// in this repository, generalized from the explicit-offset encode/decode
// helpers the teacher's WAL package used for its record headers.
package codec

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// ByteOrder is the byte order used for every multi-byte integer in the
// on-disk format.
var ByteOrder = binary.LittleEndian

// SortKeyLen is the width in bytes of a derived sort-key prefix.
const SortKeyLen = 16

// AlignUp rounds n up to the next multiple of a. a must be a power of two.
func AlignUp(n uint64, a uint64) uint64 {
	return (n + a - 1) &^ (a - 1)
}

// SortKey16 derives the fixed 16-byte ordering prefix for a raw key: the
// first 16 bytes of the blake2b-512 digest of the key bytes. The function
// is pinned to this hash per spec.md §9 — substituting a different hash
// requires rewriting every persisted table.
func SortKey16(key []byte) [SortKeyLen]byte {
	sum := blake2b.Sum512(key)
	var prefix [SortKeyLen]byte
	copy(prefix[:], sum[:SortKeyLen])
	return prefix
}

// Cmp16 is the bytewise lexicographic comparator over two 16-byte sort-key
// prefixes: negative if a < b, zero if equal, positive if a > b.
func Cmp16(a, b [SortKeyLen]byte) int {
	for i := 0; i < SortKeyLen; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// PutUint16 writes v at buf[off:off+2].
func PutUint16(buf []byte, off int, v uint16) { ByteOrder.PutUint16(buf[off:], v) }

// PutUint32 writes v at buf[off:off+4].
func PutUint32(buf []byte, off int, v uint32) { ByteOrder.PutUint32(buf[off:], v) }

// PutUint64 writes v at buf[off:off+8].
func PutUint64(buf []byte, off int, v uint64) { ByteOrder.PutUint64(buf[off:], v) }

// GetUint16 reads a uint16 at buf[off:off+2].
func GetUint16(buf []byte, off int) uint16 { return ByteOrder.Uint16(buf[off:]) }

// GetUint32 reads a uint32 at buf[off:off+4].
func GetUint32(buf []byte, off int) uint32 { return ByteOrder.Uint32(buf[off:]) }

// GetUint64 reads a uint64 at buf[off:off+8].
func GetUint64(buf []byte, off int) uint64 { return ByteOrder.Uint64(buf[off:]) }
