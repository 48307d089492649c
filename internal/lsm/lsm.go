package lsm

import "sync"

// TableSource is the read-only view onto admitted level-0 tables that
// State.Get falls back to once the live and frozen memtables miss. It is
// satisfied by internal/engine, which owns the table writer/reader; lsm
// itself never touches the backing file.
type TableSource interface {
	// Lookup scans admitted tables most-recently-flushed first and
	// returns the first match. found is false if key appears in no
	// table.
	Lookup(key []byte) (value []byte, tombstone bool, found bool, err error)
}

// State is the in-memory LSM state the submission loop mutates on every
// batch: the live memtable, an optional frozen snapshot awaiting flush,
// the flush threshold, and the recovery-replay sentinel.
type State struct {
	mu sync.Mutex

	live    *Memtable
	frozen  *Memtable
	maxSize int

	// recoverFlush holds the pre-recovery lastLsn while replayed
	// batches are being resubmitted, or -1 once recovery has either
	// not started or has completed its one-shot consumption.
	recoverFlush int64
}

// NewState returns a State with an empty live memtable and no pending
// recovery replay.
func NewState(maxSize int) *State {
	return &State{
		live:         NewMemtable(),
		maxSize:      maxSize,
		recoverFlush: -1,
	}
}

// Put inserts into the live memtable.
func (s *State) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Put(key, value)
}

// Delete stages a tombstone in the live memtable.
func (s *State) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Delete(key)
}

// Get cascades live memtable → frozen snapshot → admitted tables
// (the live memtable wins over the frozen snapshot, and both memtable
// layers are authoritative over anything on disk; tables is consulted
// last and, if given, most-recently-admitted table first). found is false only if the
// key is absent everywhere; tombstone is true if the most-authoritative
// hit was a deletion.
func (s *State) Get(key []byte, tables TableSource) (value []byte, tombstone bool, found bool, err error) {
	s.mu.Lock()
	live, frozen := s.live, s.frozen
	s.mu.Unlock()

	if v, tomb, ok := live.Get(key); ok {
		return v, tomb, true, nil
	}
	if frozen != nil {
		if v, tomb, ok := frozen.Get(key); ok {
			return v, tomb, true, nil
		}
	}
	if tables != nil {
		return tables.Lookup(key)
	}
	return nil, false, false, nil
}

// LiveLen returns the number of distinct keys staged in the live
// memtable.
func (s *State) LiveLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Len()
}

// NeedsFlush reports whether the live memtable has reached maxSize.
func (s *State) NeedsFlush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live.Len() >= s.maxSize
}

// Freeze clones the live memtable into a frozen, read-only snapshot and
// returns it; the caller (the submission loop) clears the live memtable
// once it has taken ownership of the snapshot for flushing.
func (s *State) Freeze() *Memtable {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = s.live.Clone()
	return s.frozen
}

// ClearLive empties the live memtable after a freeze.
func (s *State) ClearLive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live.Clear()
}

// DiscardFrozen drops the frozen snapshot once its flush has been
// durably admitted into the manifest.
func (s *State) DiscardFrozen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = nil
}

// BeginRecovery records the pre-recovery lastLsn so the first batch
// drained afterwards skips re-journaling.
func (s *State) BeginRecovery(lastLsn int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoverFlush = lastLsn
}

// TakeRecoverFlush returns the current sentinel and resets it to -1; the
// submission loop calls this once per iteration to decide whether to
// skip the WAL append for the batch it is about to process.
func (s *State) TakeRecoverFlush() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.recoverFlush
	s.recoverFlush = -1
	return v
}
