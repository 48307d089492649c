package engine

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leengari/kvengine/internal/metrics"
	"github.com/leengari/kvengine/internal/storage/config"
)

func newTestEngine(t *testing.T, cfg config.Config) (*Engine, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "test-engine")
	assert.NilError(t, err)
	path := filepath.Join(dir, "db")
	e, err := Format(path, cfg, metrics.New("test"), nil)
	assert.NilError(t, err)
	return e, dir
}

func drainSync(t *testing.T, e *Engine) {
	t.Helper()
	drained, err := e.RunIteration()
	assert.NilError(t, err)
	assert.Assert(t, drained)
}

func TestSetThenGetReturnsValue(t *testing.T) {
	cfg := config.Default()
	e, dir := newTestEngine(t, cfg)
	defer os.RemoveAll(dir)

	e.Submit(&Submission{Op: OpSet, Key: []byte("k1"), Value: []byte("v1")})
	drainSync(t, e)

	var got Result
	e.Submit(&Submission{Op: OpGet, Key: []byte("k1"), Done: func(r Result) { got = r }})
	drainSync(t, e)

	assert.Assert(t, got.Found)
	assert.Equal(t, string(got.Value), "v1")
}

func TestGetMissingKeyNotFound(t *testing.T) {
	cfg := config.Default()
	e, dir := newTestEngine(t, cfg)
	defer os.RemoveAll(dir)

	var got Result
	e.Submit(&Submission{Op: OpGet, Key: []byte("missing"), Done: func(r Result) { got = r }})
	drainSync(t, e)

	assert.Assert(t, !got.Found)
}

func TestFlushAtThresholdProducesLevelZeroTable(t *testing.T) {
	cfg := config.Default()
	cfg.MemtableThreshold = 2
	e, dir := newTestEngine(t, cfg)
	defer os.RemoveAll(dir)

	e.Submit(&Submission{Op: OpSet, Key: []byte("a"), Value: []byte("1")})
	e.Submit(&Submission{Op: OpSet, Key: []byte("b"), Value: []byte("2")})
	drainSync(t, e)

	assert.Equal(t, e.tw.EntryCount(), 1)

	var got Result
	e.Submit(&Submission{Op: OpGet, Key: []byte("a"), Done: func(r Result) { got = r }})
	drainSync(t, e)
	assert.Assert(t, got.Found)
	assert.Equal(t, string(got.Value), "1")
}

func TestDeleteThenGetReportsTombstone(t *testing.T) {
	cfg := config.Default()
	e, dir := newTestEngine(t, cfg)
	defer os.RemoveAll(dir)

	e.Submit(&Submission{Op: OpSet, Key: []byte("k"), Value: []byte("v")})
	e.Submit(&Submission{Op: OpDel, Key: []byte("k")})
	drainSync(t, e)

	var got Result
	e.Submit(&Submission{Op: OpGet, Key: []byte("k"), Done: func(r Result) { got = r }})
	drainSync(t, e)

	assert.Assert(t, got.Found)
	assert.Assert(t, got.Tombstone)
}

func TestReopenRecoversUnflushedWrites(t *testing.T) {
	cfg := config.Default()
	cfg.MemtableThreshold = 1000
	dir, err := os.MkdirTemp("", "test-engine-reopen")
	assert.NilError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "db")

	e, err := Format(path, cfg, metrics.New("test1"), nil)
	assert.NilError(t, err)
	e.Submit(&Submission{Op: OpSet, Key: []byte("crash"), Value: []byte("survives")})
	drainSync(t, e)
	assert.NilError(t, e.Close())

	reopened, err := Open(path, cfg, metrics.New("test2"), nil)
	assert.NilError(t, err)
	defer reopened.Close()

	assert.Assert(t, reopened.QueueLen() > 0)
	drained, err := reopened.RunIteration()
	assert.NilError(t, err)
	assert.Assert(t, drained)

	var got Result
	reopened.Submit(&Submission{Op: OpGet, Key: []byte("crash"), Done: func(r Result) { got = r }})
	drainSync(t, reopened)

	assert.Assert(t, got.Found)
	assert.Equal(t, string(got.Value), "survives")
}
