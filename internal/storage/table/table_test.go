package table

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leengari/kvengine/internal/storage/block"
	"github.com/leengari/kvengine/internal/storage/codec"
	"github.com/leengari/kvengine/internal/storage/manifest"
)

func newTestWriter(t *testing.T, blockSize int, fileBlocks int) (*Writer, *block.File, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "test-table")
	require.NoError(t, err)

	path := filepath.Join(dir, "db")
	f, err := block.OpenOrCreate(path)
	require.NoError(t, err)
	require.NoError(t, f.EnsureSize(uint64(blockSize*fileBlocks)))

	w := NewWriter(f, 0, blockSize, nil)
	require.NoError(t, w.FormatInitial(1, 1))
	return w, f, dir
}

func cleanupTestWriter(t *testing.T, dir string) {
	t.Helper()
	_ = os.RemoveAll(dir)
}

func readAll(t *testing.T, f *block.File, head *Head) []KV {
	t.Helper()
	r := NewReader(f, head)
	var got []KV
	for {
		k, v, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, KV{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
	}
	return got
}

func TestFlushSnapshotRoundTrip(t *testing.T) {
	w, f, dir := newTestWriter(t, 256, 64)
	defer cleanupTestWriter(t, dir)

	pairs := []KV{
		{Key: []byte("zebra"), Value: []byte("z-val")},
		{Key: []byte("apple"), Value: []byte("a-val")},
		{Key: []byte("mango"), Value: []byte("m-val")},
	}
	entry, err := w.FlushSnapshot(pairs)
	require.NoError(t, err)
	require.Equal(t, uint16(0), entry.Level)

	head, err := w.ReadHead(0)
	require.NoError(t, err)
	require.Equal(t, uint32(len(pairs)), head.Meta.EntryCount)

	got := readAll(t, f, head)
	require.Len(t, got, len(pairs))

	byKey := make(map[string]string, len(got))
	for _, kv := range got {
		byKey[string(kv.Key)] = string(kv.Value)
	}
	for _, kv := range pairs {
		require.Equal(t, string(kv.Value), byKey[string(kv.Key)])
	}
}

func TestFlushSnapshotOrdersBySortKeyPrefix(t *testing.T) {
	w, f, dir := newTestWriter(t, 256, 64)
	defer cleanupTestWriter(t, dir)

	pairs := make([]KV, 0, 20)
	for i := 0; i < 20; i++ {
		pairs = append(pairs, KV{Key: []byte(fmt.Sprintf("key-%02d", i)), Value: []byte(fmt.Sprintf("val-%02d", i))})
	}
	_, err := w.FlushSnapshot(pairs)
	require.NoError(t, err)

	head, err := w.ReadHead(0)
	require.NoError(t, err)
	got := readAll(t, f, head)
	require.Len(t, got, len(pairs))

	for i := 1; i < len(got); i++ {
		prevPrefix := codec.SortKey16(got[i-1].Key)
		curPrefix := codec.SortKey16(got[i].Key)
		require.LessOrEqual(t, codec.Cmp16(prevPrefix, curPrefix), 0)
	}
}

func TestFlushSnapshotSealsMultipleBlocks(t *testing.T) {
	// blockSize must be large enough to hold a meta page (fixed header +
	// a UUID id + one extent, ~132 bytes); 64 would make every flush fail
	// with truncated-id before a single data block is ever built.
	w, f, dir := newTestWriter(t, 256, 64)
	defer cleanupTestWriter(t, dir)

	pairs := make([]KV, 0, 30)
	for i := 0; i < 30; i++ {
		pairs = append(pairs, KV{Key: []byte(fmt.Sprintf("k%03d", i)), Value: []byte("0123456789")})
	}
	_, err := w.FlushSnapshot(pairs)
	require.NoError(t, err)

	head, err := w.ReadHead(0)
	require.NoError(t, err)
	require.Greater(t, len(head.Index), 1)

	got := readAll(t, f, head)
	require.Len(t, got, len(pairs))
}

func TestAddEntryFailsAtManifestCapacity(t *testing.T) {
	w, _, dir := newTestWriter(t, 4096, 8192)
	defer cleanupTestWriter(t, dir)

	cap := manifest.Cap(4096)
	for i := 0; i < cap; i++ {
		_, err := w.FlushSnapshot([]KV{{Key: []byte(fmt.Sprintf("k%d", i)), Value: []byte("v")}})
		require.NoError(t, err)
	}

	_, err := w.FlushSnapshot([]KV{{Key: []byte("overflow"), Value: []byte("v")}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "manifest-full")
}

func TestLoadRecomputesTableTail(t *testing.T) {
	w, f, dir := newTestWriter(t, 256, 64)
	defer cleanupTestWriter(t, dir)

	_, err := w.FlushSnapshot([]KV{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	})
	require.NoError(t, err)
	tailBefore := w.tableTail

	reloaded := NewWriter(f, 0, 256, nil)
	require.NoError(t, reloaded.Load())
	require.Equal(t, tailBefore, reloaded.tableTail)
	require.Equal(t, 1, reloaded.EntryCount())
}
