package wal

import (
	"github.com/leengari/kvengine/internal/storage/dberrors"
)

// Entry is one operation submitted for journaling: the raw opcode plus
// key/value bytes. The caller assembles a batch; AppendMany assigns LSNs.
type Entry struct {
	Op    Op
	Key   []byte
	Value []byte
}

// padAlignedLen is the on-disk length of a PAD record: header only,
// 8-byte aligned.
var padAlignedLen = encodedLen(0, 0)

// AppendMany journals a batch of entries as one unit: consecutive LSNs
// are assigned starting at lastLSN+1, the batch is wrap-padded if it
// would cross jEnd, and a single fsync follows the last write. Returns
// the LSN assigned to the last entry in the batch.
//
// Fails with wal-full if the ring does not have room for the batch (plus
// a wrap pad, if a wrap is needed) without the caller's state changing:
// head/tail/lastLSN are left exactly as they were before the call.
func (w *WAL) AppendMany(entries []Entry) (uint64, error) {
	if len(entries) == 0 {
		return uint64(w.lastLSN), nil
	}

	// Step 1: assign consecutive LSNs to the batch.
	lsns := make([]uint64, len(entries))
	next := uint64(w.lastLSN + 1)
	for i := range entries {
		lsns[i] = next + uint64(i)
	}
	batchLastLSN := lsns[len(lsns)-1]

	// Encode each record up front so we know batchBytes before touching
	// any journal state.
	encoded := make([][]byte, len(entries))
	batchBytes := 0
	for i, e := range entries {
		encoded[i] = encodeRecord(Record{LSN: lsns[i], Op: e.Op, Key: e.Key, Value: e.Value})
		batchBytes += len(encoded[i])
	}

	needsWrap := w.tail+uint64(batchBytes) > w.jEnd

	j := w.jEnd - w.jStart
	free := j - w.Used()
	need := uint64(batchBytes)
	if needsWrap {
		need += uint64(padAlignedLen)
	}
	if free < need {
		return 0, dberrors.New(dberrors.KindWAL, dberrors.CodeWALFull)
	}

	cursor := w.tail
	if needsWrap {
		pad := encodePad(batchLastLSN)
		if err := w.file.WriteAt(cursor, pad); err != nil {
			return 0, err
		}
		cursor = w.jStart
	}

	ends := make(map[uint64]uint64, len(entries))
	for i, buf := range encoded {
		if err := w.file.WriteAt(cursor, buf); err != nil {
			return 0, err
		}
		cursor += uint64(len(buf))
		ends[lsns[i]] = w.normalize(cursor)
	}

	if err := w.file.Fsync(); err != nil {
		return 0, err
	}

	for lsn, end := range ends {
		w.lsnToEnd[lsn] = end
	}
	w.tail = w.normalize(cursor)
	w.lastLSN = int64(batchLastLSN)

	w.log.Debug("wal append", "entries", len(entries), "lastLSN", batchLastLSN, "tail", w.tail, "wrapped", needsWrap)

	return batchLastLSN, nil
}
