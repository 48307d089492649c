package engine

import "github.com/leengari/kvengine/internal/storage/wal"

// recover replays every record still live in the journal: each decoded
// WAL record is re-enqueued as a Submission so the next RunIteration
// drains it exactly like a freshly submitted operation, then marks the
// recovery sentinel so that first batch is not re-journaled (spec.md
// §4.8, §9.2: a corrected implementation's replay is an explicit no-op
// for get/check and re-applies set/del).
func (e *Engine) recover() error {
	records, err := e.w.Reindex()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	preRecoveryLSN := e.w.LastLSN()
	replayed := 0
	for _, rec := range records {
		if rec.Op != wal.OpSet && rec.Op != wal.OpDel {
			// get/check records carry no state to re-apply.
			continue
		}
		e.queue.Push(&Submission{
			Op:    walOpToEngineOp(rec.Op),
			Key:   rec.Key,
			Value: rec.Value,
		})
		replayed++
	}
	if replayed == 0 {
		return nil
	}
	e.lsm.BeginRecovery(preRecoveryLSN)
	e.log.Info("recovery replay enqueued", "records", replayed, "preRecoveryLSN", preRecoveryLSN)
	return nil
}

func walOpToEngineOp(op wal.Op) Op {
	switch op {
	case wal.OpSet:
		return OpSet
	case wal.OpDel:
		return OpDel
	case wal.OpGet:
		return OpGet
	case wal.OpCheck:
		return OpCheck
	default:
		return OpGet
	}
}

func engineOpToWalOp(op Op) wal.Op {
	switch op {
	case OpSet:
		return wal.OpSet
	case OpDel:
		return wal.OpDel
	case OpCheck:
		return wal.OpCheck
	default:
		return wal.OpGet
	}
}
