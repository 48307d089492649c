package superblock

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leengari/kvengine/internal/storage/block"
)

func newTestFile(t *testing.T) (*block.File, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "test-superblock")
	assert.NilError(t, err)
	path := filepath.Join(dir, "db")
	f, err := block.OpenOrCreate(path)
	assert.NilError(t, err)
	assert.NilError(t, f.EnsureSize(4096 * 2))
	return f, dir
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sb := Superblock{Version: 1, BlockSize: 4096, Epoch: 7, CheckpointLSN: 42, JHead: 100, JTail: 200}
	buf := Encode(sb, 4096)
	got := Decode(buf)
	assert.DeepEqual(t, got, sb)
}

func TestFormatInitialAndLoad(t *testing.T) {
	f, dir := newTestFile(t)
	defer os.RemoveAll(dir)

	m := NewManager(f, 0, 4096, 4096)
	assert.NilError(t, m.FormatInitial(8192, 1))

	m2 := NewManager(f, 0, 4096, 4096)
	sb, err := m2.Load()
	assert.NilError(t, err)
	assert.Equal(t, sb.Epoch, uint64(1))
	assert.Equal(t, sb.JHead, uint64(8192))
	// Both slots carry epoch 1; the tie resolves to B.
	assert.Equal(t, m2.ActiveSlot(), SlotB)
}

func TestLoadPicksLargerEpochTieGoesToB(t *testing.T) {
	f, dir := newTestFile(t)
	defer os.RemoveAll(dir)

	m := NewManager(f, 0, 4096, 4096)
	assert.NilError(t, m.FormatInitial(8192, 5))

	// Write a higher epoch directly to slot A.
	newer := Superblock{Version: 1, BlockSize: 4096, Epoch: 9, CheckpointLSN: 1, JHead: 8192, JTail: 8192}
	assert.NilError(t, f.WriteAt(0, Encode(newer, 4096)))

	m2 := NewManager(f, 0, 4096, 4096)
	sb, err := m2.Load()
	assert.NilError(t, err)
	assert.Equal(t, sb.Epoch, uint64(9))
	assert.Equal(t, m2.ActiveSlot(), SlotA)

	// Now make both equal epoch: tie resolves to B.
	assert.NilError(t, f.WriteAt(0, Encode(Superblock{Version: 1, BlockSize: 4096, Epoch: 9, JHead: 8192, JTail: 8192}, 4096)))
	assert.NilError(t, f.WriteAt(4096, Encode(Superblock{Version: 1, BlockSize: 4096, Epoch: 9, JHead: 8192, JTail: 8192}, 4096)))
	m3 := NewManager(f, 0, 4096, 4096)
	_, err = m3.Load()
	assert.NilError(t, err)
	assert.Equal(t, m3.ActiveSlot(), SlotB)
}

func TestCheckpointIncrementsEpochAndFlips(t *testing.T) {
	f, dir := newTestFile(t)
	defer os.RemoveAll(dir)

	m := NewManager(f, 0, 4096, 4096)
	assert.NilError(t, m.FormatInitial(8192, 1))
	assert.Equal(t, m.ActiveSlot(), SlotA)

	next, err := m.Checkpoint(Update{CheckpointLSN: 3, JHead: 8192, JTail: 8300})
	assert.NilError(t, err)
	assert.Equal(t, next.Epoch, uint64(2))
	assert.Equal(t, m.ActiveSlot(), SlotB)

	next, err = m.Checkpoint(Update{CheckpointLSN: 4, JHead: 8192, JTail: 8400})
	assert.NilError(t, err)
	assert.Equal(t, next.Epoch, uint64(3))
	assert.Equal(t, m.ActiveSlot(), SlotA)
}

func TestLoadFailsWhenNeitherSlotValid(t *testing.T) {
	f, dir := newTestFile(t)
	defer os.RemoveAll(dir)

	m := NewManager(f, 0, 4096, 4096)
	_, err := m.Load()
	assert.ErrorContains(t, err, "no-valid-superblocks")
}
