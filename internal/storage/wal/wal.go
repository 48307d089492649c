package wal

import (
	"log/slog"

	"github.com/leengari/kvengine/internal/storage/block"
	"github.com/leengari/kvengine/internal/storage/dberrors"
	"github.com/leengari/kvengine/internal/storage/superblock"
)

// WAL is the ring journal: a region [jStart, jStart+J) of the backing
// file holding aligned records, with head/tail pointers and an in-memory
// LSN->normalized-end-offset index used by Checkpoint to truncate.
//
// The WAL is not safe for concurrent use. Per spec.md §5 it has exactly
// one caller: the submission loop.
type WAL struct {
	file *block.File

	jStart uint64
	jEnd   uint64

	head uint64 // oldest live byte (absolute offset in [jStart, jEnd))
	tail uint64 // next write position (absolute offset in [jStart, jEnd))

	lastLSN  int64 // -1 before any record has been accepted
	lsnToEnd map[uint64]uint64

	log *slog.Logger
}

// Open binds a WAL to the journal region [jStart, jStart+journalBytes) of
// f. The caller supplies head/tail/lastLSN recovered from the
// superblock (see Reindex for the scan); a fresh journal starts head=tail=jStart
// and lastLSN=-1.
func Open(f *block.File, jStart, journalBytes uint64, head, tail uint64, lastLSN int64, log *slog.Logger) *WAL {
	if log == nil {
		log = slog.Default()
	}
	return &WAL{
		file:     f,
		jStart:   jStart,
		jEnd:     jStart + journalBytes,
		head:     head,
		tail:     tail,
		lastLSN:  lastLSN,
		lsnToEnd: make(map[uint64]uint64),
		log:      log,
	}
}

// Head returns the current head pointer (oldest live byte).
func (w *WAL) Head() uint64 { return w.head }

// Tail returns the current tail pointer (next write position).
func (w *WAL) Tail() uint64 { return w.tail }

// LastLSN returns the last LSN accepted, or -1 if none has been.
func (w *WAL) LastLSN() int64 { return w.lastLSN }

// Used returns the number of live bytes currently occupied in the ring.
func (w *WAL) Used() uint64 {
	if w.tail >= w.head {
		return w.tail - w.head
	}
	return (w.jEnd - w.head) + (w.tail - w.jStart)
}

// Dirty reports whether the journal currently holds any live bytes.
func (w *WAL) Dirty() bool { return w.Used() > 0 }

// normalize maps an absolute write cursor that has reached jEnd back to
// jStart, per spec.md's "an append whose last byte lands exactly on jEnd
// normalizes the post-offset to jStart" boundary rule.
func (w *WAL) normalize(off uint64) uint64 {
	if off == w.jEnd {
		return w.jStart
	}
	return off
}

// Checkpoint advances the journal head to the post-record offset of lsn
// and drops every LSN<=lsn from the in-memory index, then persists the
// new head/tail/checkpointLSN into sb via sb.Checkpoint. It is the only
// path that truncates the journal.
func (w *WAL) Checkpoint(lsn uint64, sb *superblock.Manager) (superblock.Superblock, error) {
	off, ok := w.lsnToEnd[lsn]
	if !ok {
		return superblock.Superblock{}, dberrors.New(dberrors.KindWAL, dberrors.CodeLSNNotFound)
	}
	w.head = off
	for k := range w.lsnToEnd {
		if k <= lsn {
			delete(w.lsnToEnd, k)
		}
	}
	next, err := sb.Checkpoint(superblock.Update{
		CheckpointLSN: lsn,
		JHead:         w.head,
		JTail:         w.tail,
	})
	if err != nil {
		return superblock.Superblock{}, err
	}
	w.log.Info("wal checkpoint", "lsn", lsn, "head", w.head, "tail", w.tail, "epoch", next.Epoch)
	return next, nil
}
