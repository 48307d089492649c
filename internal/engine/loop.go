package engine

import (
	"github.com/leengari/kvengine/internal/storage/superblock"
	"github.com/leengari/kvengine/internal/storage/table"
	"github.com/leengari/kvengine/internal/storage/wal"
)

// RunIteration drains up to cfg.MaxInflight submissions and carries them
// through the ordered sequence spec.md §4.9 requires: WAL append (unless
// this batch is a recovery replay), superblock checkpoint, per-operation
// apply, then freeze/flush/truncate if the memtable has crossed its
// threshold. It returns immediately (with drained=false) if the queue is
// empty — the caller's driver loop re-enters on its own schedule.
func (e *Engine) RunIteration() (drained bool, err error) {
	batch := e.queue.PopUpTo(e.cfg.MaxInflight)
	if len(batch) == 0 {
		return false, nil
	}

	skipAppend := e.lsm.TakeRecoverFlush() >= 0

	lastLSN := uint64(e.w.LastLSN())
	if !skipAppend {
		entries := make([]wal.Entry, len(batch))
		for i, sub := range batch {
			entries[i] = wal.Entry{Op: engineOpToWalOp(sub.Op), Key: sub.Key, Value: sub.Value}
		}
		lastLSN, err = e.w.AppendMany(entries)
		if err != nil {
			if e.metrics != nil {
				e.metrics.WALFullErrors.Inc()
			}
			return false, err
		}
	}

	if _, err := e.sb.Checkpoint(superblock.Update{
		CheckpointLSN: lastLSN,
		JHead:         e.w.Head(),
		JTail:         e.w.Tail(),
	}); err != nil {
		return false, err
	}
	if e.metrics != nil {
		e.metrics.Checkpoints.Inc()
	}

	for _, sub := range batch {
		e.apply(sub)
	}

	if e.lsm.NeedsFlush() {
		if err := e.flush(); err != nil {
			return false, err
		}
	}

	if e.metrics != nil {
		e.metrics.BatchesProcessed.Inc()
		e.metrics.WALBytesUsed.Set(float64(e.w.Used()))
		e.metrics.ManifestEntries.Set(float64(e.tw.EntryCount()))
		e.metrics.MemtableSize.Set(float64(e.lsm.LiveLen()))
	}

	return true, nil
}

// apply runs one operation against the LSM state and, for check, forces
// an immediate journal truncation. Each Done continuation observes the
// result only after the batch's WAL append and superblock checkpoint
// have already returned, satisfying spec.md §9's "apply only after
// durability" contract.
func (e *Engine) apply(sub *Submission) {
	var result Result
	switch sub.Op {
	case OpSet:
		result.Err = e.lsm.Put(sub.Key, sub.Value)
	case OpDel:
		result.Err = e.lsm.Delete(sub.Key)
	case OpGet:
		value, tombstone, found, err := e.lsm.Get(sub.Key, e)
		result = Result{Value: value, Found: found, Tombstone: tombstone, Err: err}
	case OpCheck:
		_, result.Err = e.w.Checkpoint(uint64(e.w.LastLSN()), e.sb)
	}

	if e.metrics != nil {
		e.metrics.OpsApplied.Inc()
	}
	if sub.Done != nil {
		sub.Done(result)
	}
}

// flush freezes the live memtable, writes it as a level-0 table, then
// truncates the journal up to the batch's last LSN — the on-disk table
// now covers everything that was journaled.
func (e *Engine) flush() error {
	frozen := e.lsm.Freeze()
	e.lsm.ClearLive()

	staged := frozen.Snapshot()
	pairs := make([]table.KV, len(staged))
	for i, kv := range staged {
		pairs[i] = table.KV{Key: kv.Key, Value: encodeStoredValue(kv.Tombstone, kv.Value)}
	}

	if _, err := e.tw.FlushSnapshot(pairs); err != nil {
		return err
	}
	e.lsm.DiscardFrozen()

	if _, err := e.w.Checkpoint(uint64(e.w.LastLSN()), e.sb); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.TablesFlushed.Inc()
	}
	e.log.Info("memtable flushed", "entries", len(pairs))
	return nil
}
