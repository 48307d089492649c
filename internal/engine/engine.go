// Package engine implements the single submission loop described by
// spec.md §4.9: the one mutator of the backing file, wiring the WAL,
// superblock manager, table writer, and in-memory LSM state together in
// the order durability requires. It is grounded on the teacher's
// WALManager bridge (internal/storage/manager/wal_manager.go), which
// coordinated a WAL with the rest of the storage layer and logged every
// step at Debug/Info, generalized from a transactional bridge used by
// many callers into the sole mutator loop this format gives exactly one
// caller.
package engine

import (
	"log/slog"

	"github.com/leengari/kvengine/internal/lsm"
	"github.com/leengari/kvengine/internal/metrics"
	"github.com/leengari/kvengine/internal/storage/block"
	"github.com/leengari/kvengine/internal/storage/config"
	"github.com/leengari/kvengine/internal/storage/superblock"
	"github.com/leengari/kvengine/internal/storage/table"
	"github.com/leengari/kvengine/internal/storage/wal"
)

// Engine owns every piece of mutable, persistent state: the backing
// file, the WAL, the superblock manager, the table writer, and the LSM
// state, plus the submission queue it drains. Per spec.md §5 there is
// exactly one Engine per backing file and it is not safe for concurrent
// use from more than one goroutine.
type Engine struct {
	cfg  config.Config
	file *block.File

	sb  *superblock.Manager
	w   *wal.WAL
	tw  *table.Writer
	lsm *lsm.State

	queue   *Queue
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Format creates a new backing file at path (or reuses an existing one,
// extending it if needed but never shrinking it) and writes the initial
// superblocks and empty manifest. The journal bytes are not rewritten; the
// journal starts empty with head == tail == jStart.
func Format(path string, cfg config.Config, m *metrics.Metrics, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	f, err := block.OpenOrCreate(path)
	if err != nil {
		return nil, err
	}
	if err := f.EnsureSize(cfg.TableAreaEnd()); err != nil {
		return nil, err
	}

	sb := superblock.NewManager(f, config.SuperblockAOffset, config.SuperblockBOffset, int(cfg.BlockSize))
	if err := sb.FormatInitial(cfg.JournalStart(), 1); err != nil {
		return nil, err
	}

	w := wal.Open(f, cfg.JournalStart(), cfg.JournalBytes, cfg.JournalStart(), cfg.JournalStart(), -1, log)

	tw := table.NewWriter(f, cfg.ManifestOffset(), int(cfg.BlockSize), log)
	if err := tw.FormatInitial(1, 1); err != nil {
		return nil, err
	}

	log.Info("formatted new database", "path", path, "journalBytes", cfg.JournalBytes)

	return &Engine{
		cfg: cfg, file: f, sb: sb, w: w, tw: tw,
		lsm: lsm.NewState(cfg.MemtableThreshold), queue: NewQueue(), metrics: m, log: log,
	}, nil
}

// Open opens an existing backing file, loads the newest valid
// superblock, reconstructs the WAL and table writer state from it, and
// enqueues every record still live in the journal for replay — see
// recover.
func Open(path string, cfg config.Config, m *metrics.Metrics, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	f, err := block.OpenExisting(path)
	if err != nil {
		return nil, err
	}

	sb := superblock.NewManager(f, config.SuperblockAOffset, config.SuperblockBOffset, int(cfg.BlockSize))
	cur, err := sb.Load()
	if err != nil {
		return nil, err
	}

	w := wal.Open(f, cfg.JournalStart(), cfg.JournalBytes, cur.JHead, cur.JTail, int64(cur.CheckpointLSN), log)

	tw := table.NewWriter(f, cfg.ManifestOffset(), int(cfg.BlockSize), log)
	if err := tw.Load(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg: cfg, file: f, sb: sb, w: w, tw: tw,
		lsm: lsm.NewState(cfg.MemtableThreshold), queue: NewQueue(), metrics: m, log: log,
	}
	if err := e.recover(); err != nil {
		return nil, err
	}
	log.Info("opened database", "path", path, "epoch", cur.Epoch, "checkpointLSN", cur.CheckpointLSN)
	return e, nil
}

// Close fsyncs every component before returning, matching spec.md §7's
// "shuts down after a best-effort fsync."
func (e *Engine) Close() error {
	if err := e.file.Fsync(); err != nil {
		return err
	}
	return e.file.Close()
}

// Submit enqueues s for processing by a subsequent RunIteration call.
func (e *Engine) Submit(s *Submission) {
	e.queue.Push(s)
}

// QueueLen reports how many submissions are waiting to be drained.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Summary is a point-in-time snapshot of the persistent state a harness
// or operator might want to log: the active superblock, how many tables
// are admitted, and the journal's current occupancy.
type Summary struct {
	Superblock  superblock.Superblock
	TableCount  int
	WALUsed     uint64
	WALHead     uint64
	WALTail     uint64
	MemtableLen int
}

// Summarize returns the current Summary. It never touches the backing
// file; every field comes from in-memory state already tracked by the
// superblock manager, table writer, WAL, and LSM state.
func (e *Engine) Summarize() Summary {
	cur, _ := e.sb.Current()
	return Summary{
		Superblock:  cur,
		TableCount:  e.tw.EntryCount(),
		WALUsed:     e.w.Used(),
		WALHead:     e.w.Head(),
		WALTail:     e.w.Tail(),
		MemtableLen: e.lsm.LiveLen(),
	}
}

// Lookup implements lsm.TableSource: it scans admitted level-0 tables
// most-recently-flushed first (later tables shadow earlier ones for
// overlapping keys in this single-level writer, per spec.md §9.7's
// resolution of the memtable-only get path).
func (e *Engine) Lookup(key []byte) (value []byte, tombstone bool, found bool, err error) {
	heads, err := e.tw.AggHeads(0)
	if err != nil {
		return nil, false, false, err
	}
	for i := len(heads) - 1; i >= 0; i-- {
		r := table.NewReader(e.file, heads[i])
		for {
			k, v, ok, rerr := r.Next()
			if rerr != nil {
				return nil, false, false, rerr
			}
			if !ok {
				break
			}
			if string(k) == string(key) {
				tomb, val := decodeStoredValue(v)
				return val, tomb, true, nil
			}
		}
	}
	return nil, false, false, nil
}

// flagLive/flagTombstone mark a stored value as live or a deletion tombstone: a
// single leading byte ahead of the real payload, since the table format
// otherwise has no per-record flag bit (spec.md's data-block record is
// just klen/vlen/key/value). Values are never empty vs-tombstone
// ambiguous this way even though a tombstone's payload is always empty.
const (
	flagLive      byte = 0
	flagTombstone byte = 1
)

func encodeStoredValue(tombstone bool, value []byte) []byte {
	if tombstone {
		return []byte{flagTombstone}
	}
	out := make([]byte, 0, 1+len(value))
	out = append(out, flagLive)
	return append(out, value...)
}

func decodeStoredValue(raw []byte) (tombstone bool, value []byte) {
	if len(raw) == 0 {
		return false, nil
	}
	if raw[0] == flagTombstone {
		return true, nil
	}
	return false, raw[1:]
}
