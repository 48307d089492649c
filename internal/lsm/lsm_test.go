package lsm

import (
	"testing"

	"gotest.tools/v3/assert"
)

type fakeTables struct {
	value     []byte
	tombstone bool
	found     bool
}

func (f fakeTables) Lookup(key []byte) ([]byte, bool, bool, error) {
	return f.value, f.tombstone, f.found, nil
}

func TestMemtablePutGetDelete(t *testing.T) {
	m := NewMemtable()
	assert.NilError(t, m.Put([]byte("a"), []byte("1")))

	v, tomb, ok := m.Get([]byte("a"))
	assert.Assert(t, ok)
	assert.Assert(t, !tomb)
	assert.Equal(t, string(v), "1")

	assert.NilError(t, m.Delete([]byte("a")))
	_, tomb, ok = m.Get([]byte("a"))
	assert.Assert(t, ok)
	assert.Assert(t, tomb)

	_, _, ok = m.Get([]byte("missing"))
	assert.Assert(t, !ok)
}

func TestMemtableCloneIsFrozenAndIndependent(t *testing.T) {
	m := NewMemtable()
	assert.NilError(t, m.Put([]byte("a"), []byte("1")))

	clone := m.Clone()
	assert.ErrorContains(t, clone.Put([]byte("b"), []byte("2")), "frozen")

	assert.NilError(t, m.Put([]byte("b"), []byte("2")))
	_, _, ok := clone.Get([]byte("b"))
	assert.Assert(t, !ok)
}

func TestStateNeedsFlushAtThreshold(t *testing.T) {
	s := NewState(2)
	assert.NilError(t, s.Put([]byte("a"), []byte("1")))
	assert.Assert(t, !s.NeedsFlush())
	assert.NilError(t, s.Put([]byte("b"), []byte("2")))
	assert.Assert(t, s.NeedsFlush())
}

func TestStateGetCascadesLiveFrozenTables(t *testing.T) {
	s := NewState(100)
	assert.NilError(t, s.Put([]byte("live"), []byte("v1")))

	v, _, found, err := s.Get([]byte("live"), nil)
	assert.NilError(t, err)
	assert.Assert(t, found)
	assert.Equal(t, string(v), "v1")

	s.Freeze()
	s.ClearLive()

	v, _, found, err = s.Get([]byte("live"), nil)
	assert.NilError(t, err)
	assert.Assert(t, found)
	assert.Equal(t, string(v), "v1")

	v, _, found, err = s.Get([]byte("ondisk"), fakeTables{value: []byte("fromtable"), found: true})
	assert.NilError(t, err)
	assert.Assert(t, found)
	assert.Equal(t, string(v), "fromtable")

	_, _, found, err = s.Get([]byte("nowhere"), fakeTables{found: false})
	assert.NilError(t, err)
	assert.Assert(t, !found)
}

func TestStateRecoveryFlushSentinel(t *testing.T) {
	s := NewState(10)
	assert.Equal(t, s.TakeRecoverFlush(), int64(-1))

	s.BeginRecovery(7)
	assert.Equal(t, s.TakeRecoverFlush(), int64(7))
	assert.Equal(t, s.TakeRecoverFlush(), int64(-1))
}
