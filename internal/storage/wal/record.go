// Package wal implements the ring-shaped write-ahead journal: a fixed J
// byte region holding aligned records, written and scanned the way the
// teacher's internal/wal package wrote and scanned a linear transaction
// log, adapted here to wrap, to track LSN->offset for checkpoint
// truncation, and to drop CRC/transaction framing this format does not
// carry (spec.md §9.4, §9).
package wal

import (
	"github.com/leengari/kvengine/internal/storage/codec"
)

// Op is a WAL record opcode.
type Op uint8

const (
	OpPad   Op = 0
	OpSet   Op = 1
	OpDel   Op = 2
	OpGet   Op = 3
	OpCheck Op = 4
)

// HeaderSize is the fixed 17-byte record header: lsn(8) + op(1) + klen(4)
// + vlen(4).
const HeaderSize = 17

// Record is one decoded WAL entry.
type Record struct {
	LSN   uint64
	Op    Op
	Key   []byte
	Value []byte
}

// encodedLen returns the 8-byte-aligned on-disk length of a record with
// the given key/value sizes.
func encodedLen(klen, vlen int) int {
	total := HeaderSize + klen + vlen
	return int(codec.AlignUp(uint64(total), 8))
}

// encodeRecord serializes rec into an 8-byte-aligned buffer: header,
// then key bytes, then value bytes, then zero padding.
func encodeRecord(rec Record) []byte {
	raw := HeaderSize + len(rec.Key) + len(rec.Value)
	aligned := int(codec.AlignUp(uint64(raw), 8))
	buf := make([]byte, aligned)

	codec.PutUint64(buf, 0, rec.LSN)
	buf[8] = byte(rec.Op)
	codec.PutUint32(buf, 9, uint32(len(rec.Key)))
	codec.PutUint32(buf, 13, uint32(len(rec.Value)))
	copy(buf[HeaderSize:HeaderSize+len(rec.Key)], rec.Key)
	copy(buf[HeaderSize+len(rec.Key):raw], rec.Value)
	// buf[raw:aligned] is left zero as padding.
	return buf
}

// decodeHeader parses the fixed header portion of buf (which must be at
// least HeaderSize bytes) into an LSN/op/klen/vlen tuple.
func decodeHeader(buf []byte) (lsn uint64, op Op, klen, vlen uint32) {
	lsn = codec.GetUint64(buf, 0)
	op = Op(buf[8])
	klen = codec.GetUint32(buf, 9)
	vlen = codec.GetUint32(buf, 13)
	return
}

func encodePad(lsn uint64) []byte {
	return encodeRecord(Record{LSN: lsn, Op: OpPad})
}
