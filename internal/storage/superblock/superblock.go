// Package superblock implements the dual A/B superblock protocol:
// epoch-ordered selection on load, and an fsync-before-flip checkpoint,
// generalized from the teacher's single WAL file header (magic-validated,
// explicit byte-offset encode/decode, fsync-before-return) to two
// alternating slots.
package superblock

import (
	"github.com/leengari/kvengine/internal/storage/block"
	"github.com/leengari/kvengine/internal/storage/codec"
	"github.com/leengari/kvengine/internal/storage/dberrors"
)

// Size is the on-disk size of a superblock record. It must not exceed the
// block size B; unused trailing bytes are zero.
const Size = 36

// Slot identifies one of the two superblock copies.
type Slot int

const (
	SlotA Slot = iota
	SlotB
)

// Superblock is the decoded record. Version must be nonzero and
// BlockSize must equal the configured B for the record to be considered
// valid.
type Superblock struct {
	Version       uint16
	BlockSize     uint16
	Epoch         uint64
	CheckpointLSN uint64
	JHead         uint64
	JTail         uint64
}

// Encode serializes sb into a blockSize-byte buffer: the Size-byte record
// followed by zero padding.
func Encode(sb Superblock, blockSize int) []byte {
	buf := make([]byte, blockSize)
	codec.PutUint16(buf, 0, sb.Version)
	codec.PutUint16(buf, 2, sb.BlockSize)
	codec.PutUint64(buf, 4, sb.Epoch)
	codec.PutUint64(buf, 12, sb.CheckpointLSN)
	codec.PutUint64(buf, 20, sb.JHead)
	codec.PutUint64(buf, 28, sb.JTail)
	return buf
}

// Decode parses a superblock record out of buf, which must be at least
// Size bytes. It does not itself reject an invalid (version=0) record;
// callers check IsValid.
func Decode(buf []byte) Superblock {
	return Superblock{
		Version:       codec.GetUint16(buf, 0),
		BlockSize:     codec.GetUint16(buf, 2),
		Epoch:         codec.GetUint64(buf, 4),
		CheckpointLSN: codec.GetUint64(buf, 12),
		JHead:         codec.GetUint64(buf, 20),
		JTail:         codec.GetUint64(buf, 28),
	}
}

// IsValid reports whether sb decodes to a usable record for the given
// block size: version nonzero and BlockSize matching.
func (sb Superblock) IsValid(blockSize uint16) bool {
	return sb.Version != 0 && sb.BlockSize == blockSize
}

// Manager owns the pair of superblock slots at absolute offsets
// aOffset/bOffset within the backing file, tracks which slot is active,
// and holds the last loaded/written record.
type Manager struct {
	file      *block.File
	aOffset   uint64
	bOffset   uint64
	blockSize int

	active  Slot
	current Superblock
	loaded  bool
}

// NewManager binds a Manager to the two fixed slot offsets.
func NewManager(f *block.File, aOffset, bOffset uint64, blockSize int) *Manager {
	return &Manager{file: f, aOffset: aOffset, bOffset: bOffset, blockSize: blockSize}
}

// FormatInitial writes identical superblocks to both slots: version=1,
// checkpointLSN=0, jHead=jTail=journalStart, epoch=initialEpoch. A single
// fsync follows both writes. The active slot becomes A.
func (m *Manager) FormatInitial(journalStart uint64, initialEpoch uint64) error {
	sb := Superblock{
		Version:       1,
		BlockSize:     uint16(m.blockSize),
		Epoch:         initialEpoch,
		CheckpointLSN: 0,
		JHead:         journalStart,
		JTail:         journalStart,
	}
	buf := Encode(sb, m.blockSize)
	if err := m.file.WriteAt(m.aOffset, buf); err != nil {
		return err
	}
	if err := m.file.WriteAt(m.bOffset, buf); err != nil {
		return err
	}
	if err := m.file.Fsync(); err != nil {
		return err
	}
	m.active = SlotA
	m.current = sb
	m.loaded = true
	return nil
}

// Load reads both slots and selects the newest valid one: the copy with
// the larger epoch wins, ties resolve to B. Fails with
// no-valid-superblocks if neither slot decodes.
func (m *Manager) Load() (Superblock, error) {
	abuf, err := m.file.ReadExact(m.aOffset, m.blockSize)
	if err != nil {
		return Superblock{}, err
	}
	bbuf, err := m.file.ReadExact(m.bOffset, m.blockSize)
	if err != nil {
		return Superblock{}, err
	}
	a := Decode(abuf)
	b := Decode(bbuf)
	aValid := a.IsValid(uint16(m.blockSize))
	bValid := b.IsValid(uint16(m.blockSize))

	switch {
	case !aValid && !bValid:
		return Superblock{}, dberrors.New(dberrors.KindSuperblock, dberrors.CodeNoValidSuperblocks)
	case aValid && !bValid:
		m.active = SlotA
		m.current = a
	case !aValid && bValid:
		m.active = SlotB
		m.current = b
	default:
		// Both valid: larger epoch wins; ties resolve to B.
		if a.Epoch > b.Epoch {
			m.active = SlotA
			m.current = a
		} else {
			m.active = SlotB
			m.current = b
		}
	}
	m.loaded = true
	return m.current, nil
}

// Update carries the fields a checkpoint advances.
type Update struct {
	CheckpointLSN uint64
	JHead         uint64
	JTail         uint64
}

// Checkpoint writes a new superblock — epoch incremented by exactly one,
// per spec.md §9's resolution of the two observed variants — to the
// currently inactive slot, fsyncs, then flips the active pointer. If the
// write or fsync fails, the previously active slot is left untouched so a
// subsequent Load still returns the older, consistent state.
func (m *Manager) Checkpoint(u Update) (Superblock, error) {
	if !m.loaded {
		return Superblock{}, dberrors.New(dberrors.KindSuperblock, dberrors.CodeNotInitialized)
	}
	next := Superblock{
		Version:       1,
		BlockSize:     uint16(m.blockSize),
		Epoch:         m.current.Epoch + 1,
		CheckpointLSN: u.CheckpointLSN,
		JHead:         u.JHead,
		JTail:         u.JTail,
	}

	inactiveOffset := m.bOffset
	inactiveSlot := SlotB
	if m.active == SlotB {
		inactiveOffset = m.aOffset
		inactiveSlot = SlotA
	}

	buf := Encode(next, m.blockSize)
	if err := m.file.WriteAt(inactiveOffset, buf); err != nil {
		return Superblock{}, err
	}
	if err := m.file.Fsync(); err != nil {
		return Superblock{}, err
	}

	m.active = inactiveSlot
	m.current = next
	return next, nil
}

// Current returns the last loaded or written superblock. The second
// return is false before Load/FormatInitial has run.
func (m *Manager) Current() (Superblock, bool) {
	return m.current, m.loaded
}

// ActiveSlot returns which slot is currently considered active.
func (m *Manager) ActiveSlot() Slot {
	return m.active
}
