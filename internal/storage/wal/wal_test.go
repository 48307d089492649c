package wal

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leengari/kvengine/internal/storage/block"
	"github.com/leengari/kvengine/internal/storage/config"
	"github.com/leengari/kvengine/internal/storage/superblock"
)

// createTestWAL opens a fresh backing file, formats the superblock pair
// and a journal of journalBytes, and returns the WAL plus the directory
// to clean up — mirroring the teacher's createTestWAL/cleanupTestWAL
// helper pair.
func createTestWAL(t *testing.T, journalBytes uint64) (*WAL, *block.File, *superblock.Manager, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "test-wal")
	assert.NilError(t, err)

	path := filepath.Join(dir, "db")
	f, err := block.OpenOrCreate(path)
	assert.NilError(t, err)

	cfg := config.Default()
	cfg.JournalBytes = journalBytes

	jStart := cfg.JournalStart()
	assert.NilError(t, f.EnsureSize(jStart+journalBytes))

	sb := superblock.NewManager(f, config.SuperblockAOffset, config.SuperblockBOffset, int(cfg.BlockSize))
	assert.NilError(t, sb.FormatInitial(jStart, 1))

	w := Open(f, jStart, journalBytes, jStart, jStart, -1, nil)
	return w, f, sb, dir
}

func cleanupTestWAL(t *testing.T, dir string) {
	t.Helper()
	_ = os.RemoveAll(dir)
}

func TestAppendManyAssignsMonotonicLSNs(t *testing.T) {
	w, _, _, dir := createTestWAL(t, uint64(config.BlockSize)*4)
	defer cleanupTestWAL(t, dir)

	last, err := w.AppendMany([]Entry{
		{Op: OpSet, Key: []byte("a"), Value: []byte("1")},
		{Op: OpSet, Key: []byte("b"), Value: []byte("2")},
	})
	assert.NilError(t, err)
	assert.Equal(t, last, uint64(1))
	assert.Equal(t, w.LastLSN(), int64(1))

	last, err = w.AppendMany([]Entry{{Op: OpSet, Key: []byte("c"), Value: []byte("3")}})
	assert.NilError(t, err)
	assert.Equal(t, last, uint64(2))
}

func TestScanReproducesAppendedRecords(t *testing.T) {
	w, _, _, dir := createTestWAL(t, uint64(config.BlockSize)*4)
	defer cleanupTestWAL(t, dir)

	_, err := w.AppendMany([]Entry{
		{Op: OpSet, Key: []byte("k1"), Value: []byte("v1")},
		{Op: OpSet, Key: []byte("k2"), Value: []byte("v2")},
		{Op: OpDel, Key: []byte("k1")},
	})
	assert.NilError(t, err)

	records, err := w.ReadLive()
	assert.NilError(t, err)
	assert.Equal(t, len(records), 3)
	assert.Equal(t, records[0].LSN, uint64(0))
	assert.Equal(t, string(records[0].Key), "k1")
	assert.Equal(t, records[2].Op, OpDel)
}

func TestCheckpointTruncatesJournal(t *testing.T) {
	w, _, sb, dir := createTestWAL(t, uint64(config.BlockSize)*4)
	defer cleanupTestWAL(t, dir)

	last, err := w.AppendMany([]Entry{
		{Op: OpSet, Key: []byte("k1"), Value: []byte("v1")},
		{Op: OpSet, Key: []byte("k2"), Value: []byte("v2")},
	})
	assert.NilError(t, err)

	_, err = w.Checkpoint(last, sb)
	assert.NilError(t, err)
	assert.Equal(t, w.Head(), w.Tail())
	assert.Equal(t, w.Used(), uint64(0))

	cur, ok := sb.Current()
	assert.Assert(t, ok)
	assert.Equal(t, cur.CheckpointLSN, last)
	assert.Equal(t, cur.Epoch, uint64(2))
}

func TestCheckpointUnknownLSNFails(t *testing.T) {
	w, _, sb, dir := createTestWAL(t, uint64(config.BlockSize)*4)
	defer cleanupTestWAL(t, dir)

	_, err := w.Checkpoint(42, sb)
	assert.ErrorContains(t, err, "lsn-not-found")
}

func TestAppendWrapsAndPads(t *testing.T) {
	// A tiny journal (one block). The big record (4040 bytes aligned) is
	// checkpointed away so head sits 56 bytes before jEnd; "pre" (24 bytes)
	// leaves 32, so "wraps" (40 bytes) is preceded by a PAD and wraps to
	// jStart.
	w, _, sb, dir := createTestWAL(t, uint64(config.BlockSize))
	defer cleanupTestWAL(t, dir)

	big := make([]byte, config.BlockSize-HeaderSize-64)
	bigLSN, err := w.AppendMany([]Entry{{Op: OpSet, Key: []byte("big"), Value: big}})
	assert.NilError(t, err)
	_, err = w.Checkpoint(bigLSN, sb)
	assert.NilError(t, err)

	_, err = w.AppendMany([]Entry{{Op: OpSet, Key: []byte("pre"), Value: []byte("v")}})
	assert.NilError(t, err)

	_, err = w.AppendMany([]Entry{{Op: OpSet, Key: []byte("wraps"), Value: make([]byte, 16)}})
	assert.NilError(t, err)

	records, err := w.ReadLive()
	assert.NilError(t, err)
	assert.Equal(t, len(records), 2)
	assert.Equal(t, string(records[1].Key), "wraps")
}

func TestAppendFullFailsWithoutMutatingState(t *testing.T) {
	w, _, _, dir := createTestWAL(t, uint64(config.BlockSize))
	defer cleanupTestWAL(t, dir)

	headBefore, tailBefore, lsnBefore := w.Head(), w.Tail(), w.LastLSN()

	huge := make([]byte, 10*config.BlockSize)
	_, err := w.AppendMany([]Entry{{Op: OpSet, Key: []byte("k"), Value: huge}})
	assert.ErrorContains(t, err, "wal-full")

	assert.Equal(t, w.Head(), headBefore)
	assert.Equal(t, w.Tail(), tailBefore)
	assert.Equal(t, w.LastLSN(), lsnBefore)
}
