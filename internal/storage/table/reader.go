package table

import (
	"github.com/leengari/kvengine/internal/storage/block"
)

// Reader walks a table's data blocks in on-disk order, one block at a
// time, yielding (key, value) pairs. It is the read-side counterpart of
// blockBuilder and never materializes more than one decoded block at a
// time.
type Reader struct {
	file      *block.File
	index     []IndexEntry
	blockIdx  int
	keys      [][]byte
	values    [][]byte
	recordIdx int
}

// NewReader builds a Reader over head's block index.
func NewReader(f *block.File, head *Head) *Reader {
	return &Reader{file: f, index: head.Index}
}

// Next returns the next (key, value) pair in the table, advancing
// through index entries and loading blocks lazily. ok is false once the
// table is exhausted.
func (r *Reader) Next() (key, value []byte, ok bool, err error) {
	for {
		if r.keys == nil {
			if r.blockIdx >= len(r.index) {
				return nil, nil, false, nil
			}
			entry := r.index[r.blockIdx]
			buf, readErr := r.file.ReadExact(entry.Off, int(entry.Len))
			if readErr != nil {
				return nil, nil, false, readErr
			}
			r.keys, r.values = decodeBlock(buf)
			r.recordIdx = 0
		}
		if r.recordIdx < len(r.keys) {
			k, v := r.keys[r.recordIdx], r.values[r.recordIdx]
			r.recordIdx++
			return k, v, true, nil
		}
		r.keys, r.values = nil, nil
		r.blockIdx++
	}
}

// Reset rewinds the reader to the start of the table.
func (r *Reader) Reset() {
	r.blockIdx = 0
	r.keys, r.values = nil, nil
	r.recordIdx = 0
}
