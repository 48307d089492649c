package table

import (
	"github.com/leengari/kvengine/internal/storage/codec"
)

// IndexEntry is one block-index record: the first key of the referenced
// block, its offset relative to the start of the data region, and its
// (padded) length.
type IndexEntry struct {
	FirstKey []byte
	Off      uint64
	Len      uint32
}

// indexEntryFixedSize is firstKeyLen(2) + off(8) + len(4).
const indexEntryFixedSize = 2 + 8 + 4

// EncodeIndex serializes entries into the unpadded block-index buffer:
// [firstKeyLen, off, len, firstKey bytes] per entry, back to back.
func EncodeIndex(entries []IndexEntry) []byte {
	size := 0
	for _, e := range entries {
		size += indexEntryFixedSize + len(e.FirstKey)
	}
	buf := make([]byte, size)
	off := 0
	for _, e := range entries {
		codec.PutUint16(buf, off, uint16(len(e.FirstKey)))
		codec.PutUint64(buf, off+2, e.Off)
		codec.PutUint32(buf, off+10, e.Len)
		copy(buf[off+indexEntryFixedSize:off+indexEntryFixedSize+len(e.FirstKey)], e.FirstKey)
		off += indexEntryFixedSize + len(e.FirstKey)
	}
	return buf
}

// DecodeIndex parses entries out of buf until fewer than
// indexEntryFixedSize bytes remain (the padded tail), tolerating the
// 8-byte alignment padding appended on disk.
func DecodeIndex(buf []byte) []IndexEntry {
	var entries []IndexEntry
	pos := 0
	for pos+indexEntryFixedSize <= len(buf) {
		keyLen := int(codec.GetUint16(buf, pos))
		off := codec.GetUint64(buf, pos+2)
		length := codec.GetUint32(buf, pos+10)
		start := pos + indexEntryFixedSize
		if start+keyLen > len(buf) {
			break
		}
		key := append([]byte(nil), buf[start:start+keyLen]...)
		entries = append(entries, IndexEntry{FirstKey: key, Off: off, Len: length})
		pos = start + keyLen
	}
	return entries
}
