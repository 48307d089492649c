// Package table implements the table writer and reader: building sealed,
// sorted data blocks plus a block index and meta page on flush, and
// decoding them back into a restartable (key, value) sequence. The shape
// — meta/footer describing index and data regions, a writer that only
// ever appends in increasing key order — is grounded on
// darshanime-pebble/sstable's documented layout, adapted to this format's
// fixed meta-page-then-index-then-data blob instead of pebble's
// footer-at-the-end layout.
package table

import (
	"github.com/leengari/kvengine/internal/storage/codec"
	"github.com/leengari/kvengine/internal/storage/dberrors"
)

// Extent describes one contiguous block-aligned range backing a table's
// data region. The current writer always produces a single extent; the
// field is plural because the format allows a table to be physically
// fragmented across extents (e.g. after an external repack).
type Extent struct {
	StartBlock uint64
	Blocks     uint32
}

// Meta is the decoded contents of a table's meta page.
type Meta struct {
	ID         string
	Level      uint16
	SeqMin     uint64
	SeqMax     uint64
	SizeBytes  uint64
	BlockSize  uint32
	IndexOff   uint64
	IndexLen   uint32
	EntryCount uint32
	MinKey     [16]byte
	MaxKey     [16]byte
	Extents    []Extent
}

// fixedMetaHeaderSize is the size, in bytes, of the fixed-width portion
// of the meta page preceding the variable-length id and extents:
// idLen(2) + level(2) + seqMin(8) + seqMax(8) + sizeBytes(8) +
// blockSize(4) + indexOff(8) + indexLen(4) + entryCount(4) + minKey(16) +
// maxKey(16) + extentCount(4).
const fixedMetaHeaderSize = 2 + 2 + 8 + 8 + 8 + 4 + 8 + 4 + 4 + 16 + 16 + 4

// EncodeMeta serializes m into a blockSize-byte page. Fails with
// truncated-id or truncated-extents if the variable-length tail would not
// fit in blockSize bytes.
func EncodeMeta(m Meta, blockSize int) ([]byte, error) {
	need := fixedMetaHeaderSize + len(m.ID) + len(m.Extents)*12
	if need > blockSize {
		if len(m.ID) > 0 {
			return nil, dberrors.New(dberrors.KindTable, dberrors.CodeTruncatedID)
		}
		return nil, dberrors.New(dberrors.KindTable, dberrors.CodeTruncatedExtents)
	}

	buf := make([]byte, blockSize)
	off := 0
	codec.PutUint16(buf, off, uint16(len(m.ID)))
	off += 2
	codec.PutUint16(buf, off, m.Level)
	off += 2
	codec.PutUint64(buf, off, m.SeqMin)
	off += 8
	codec.PutUint64(buf, off, m.SeqMax)
	off += 8
	codec.PutUint64(buf, off, m.SizeBytes)
	off += 8
	codec.PutUint32(buf, off, m.BlockSize)
	off += 4
	codec.PutUint64(buf, off, m.IndexOff)
	off += 8
	codec.PutUint32(buf, off, m.IndexLen)
	off += 4
	codec.PutUint32(buf, off, m.EntryCount)
	off += 4
	copy(buf[off:off+16], m.MinKey[:])
	off += 16
	copy(buf[off:off+16], m.MaxKey[:])
	off += 16
	codec.PutUint32(buf, off, uint32(len(m.Extents)))
	off += 4
	copy(buf[off:off+len(m.ID)], m.ID)
	off += len(m.ID)
	for _, e := range m.Extents {
		codec.PutUint64(buf, off, e.StartBlock)
		off += 8
		codec.PutUint32(buf, off, e.Blocks)
		off += 4
	}
	return buf, nil
}

// DecodeMeta parses a meta page out of buf (normally one blockSize-byte
// page). Reads start at buf[0] and are bounds-checked against len(buf).
func DecodeMeta(buf []byte) (Meta, error) {
	if len(buf) < fixedMetaHeaderSize {
		return Meta{}, dberrors.New(dberrors.KindTable, dberrors.CodeTruncatedID)
	}
	var m Meta
	off := 0
	idLen := codec.GetUint16(buf, off)
	off += 2
	m.Level = codec.GetUint16(buf, off)
	off += 2
	m.SeqMin = codec.GetUint64(buf, off)
	off += 8
	m.SeqMax = codec.GetUint64(buf, off)
	off += 8
	m.SizeBytes = codec.GetUint64(buf, off)
	off += 8
	m.BlockSize = codec.GetUint32(buf, off)
	off += 4
	m.IndexOff = codec.GetUint64(buf, off)
	off += 8
	m.IndexLen = codec.GetUint32(buf, off)
	off += 4
	m.EntryCount = codec.GetUint32(buf, off)
	off += 4
	copy(m.MinKey[:], buf[off:off+16])
	off += 16
	copy(m.MaxKey[:], buf[off:off+16])
	off += 16
	extentCount := codec.GetUint32(buf, off)
	off += 4

	if off+int(idLen) > len(buf) {
		return Meta{}, dberrors.New(dberrors.KindTable, dberrors.CodeTruncatedID)
	}
	m.ID = string(buf[off : off+int(idLen)])
	off += int(idLen)

	if off+int(extentCount)*12 > len(buf) {
		return Meta{}, dberrors.New(dberrors.KindTable, dberrors.CodeTruncatedExtents)
	}
	m.Extents = make([]Extent, extentCount)
	for i := 0; i < int(extentCount); i++ {
		m.Extents[i] = Extent{
			StartBlock: codec.GetUint64(buf, off),
			Blocks:     codec.GetUint32(buf, off+8),
		}
		off += 12
	}
	return m, nil
}
