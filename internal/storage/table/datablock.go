package table

import (
	"github.com/leengari/kvengine/internal/storage/codec"
)

// blockHeaderLen is the 2-byte record-count header at the start of every
// data block.
const blockHeaderLen = 2

// recordLen returns the encoded length of one data-block record:
// klen(2) + vlen(4) + key + value.
func recordLen(klen, vlen int) int {
	return 2 + 4 + klen + vlen
}

// blockBuilder packs (key, value) pairs into B-byte data blocks, sealing
// the current block (and starting a new one) whenever the next record
// would overflow it — per spec.md "a record never straddles a block
// boundary."
type blockBuilder struct {
	blockSize int
	cur       []byte // accumulated record bytes for the in-progress block
	count     uint16
	blocks    [][]byte // sealed, padded B-byte blocks
	firstKeys [][]byte // first key of each sealed block
}

func newBlockBuilder(blockSize int) *blockBuilder {
	return &blockBuilder{blockSize: blockSize}
}

// add appends one record, sealing the current block first if it would
// not fit.
func (b *blockBuilder) add(key, value []byte) {
	rl := recordLen(len(key), len(value))
	if blockHeaderLen+len(b.cur)+rl > b.blockSize && len(b.cur) > 0 {
		b.seal()
	}
	if len(b.cur) == 0 {
		b.firstKeys = append(b.firstKeys, append([]byte(nil), key...))
	}

	rec := make([]byte, rl)
	codec.PutUint16(rec, 0, uint16(len(key)))
	codec.PutUint32(rec, 2, uint32(len(value)))
	copy(rec[6:6+len(key)], key)
	copy(rec[6+len(key):], value)
	b.cur = append(b.cur, rec...)
	b.count++
}

// seal finalizes the in-progress block: prepends the count header, pads
// to blockSize, and appends it to the sealed list.
func (b *blockBuilder) seal() {
	if len(b.cur) == 0 && b.count == 0 {
		return
	}
	buf := make([]byte, b.blockSize)
	codec.PutUint16(buf, 0, b.count)
	copy(buf[blockHeaderLen:], b.cur)
	b.blocks = append(b.blocks, buf)
	b.cur = nil
	b.count = 0
}

// finish flushes any trailing partial block and returns the sealed
// blocks plus their first keys, one per block.
func (b *blockBuilder) finish() ([][]byte, [][]byte) {
	b.seal()
	return b.blocks, b.firstKeys
}

// decodeBlock decodes a sealed B-byte data block into its (key, value)
// pairs, in on-disk order. Returned slices are views into buf; callers
// that retain them past the next read must copy.
func decodeBlock(buf []byte) ([][]byte, [][]byte) {
	count := codec.GetUint16(buf, 0)
	keys := make([][]byte, 0, count)
	values := make([][]byte, 0, count)
	pos := blockHeaderLen
	for i := 0; i < int(count); i++ {
		klen := int(codec.GetUint16(buf, pos))
		vlen := int(codec.GetUint32(buf, pos+2))
		start := pos + 6
		keys = append(keys, buf[start:start+klen])
		values = append(values, buf[start+klen:start+klen+vlen])
		pos = start + klen + vlen
	}
	return keys, values
}
