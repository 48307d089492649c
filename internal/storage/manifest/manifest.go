// Package manifest implements the fixed-size manifest page: a header plus
// up to CAP table entries, encoded/decoded as a single B-byte page. The
// shape generalizes the teacher's JSON DatabaseMeta/TableMeta pair (name,
// version, a list of tables) into a binary, capacity-bounded page, since
// this format has no JSON layer.
package manifest

import (
	"github.com/leengari/kvengine/internal/storage/codec"
	"github.com/leengari/kvengine/internal/storage/dberrors"
)

const (
	headerSize = 16
	entrySize  = 48
)

// Cap returns the maximum number of entries a page of blockSize bytes can
// hold: floor((blockSize-16)/48).
func Cap(blockSize int) int {
	return (blockSize - headerSize) / entrySize
}

// Entry describes one admitted table blob.
type Entry struct {
	Level     uint16
	MetaOff   uint64
	MetaLen   uint32
	MinPrefix [16]byte
	MaxPrefix [16]byte
}

// Page is the decoded manifest page contents.
type Page struct {
	Version uint16
	Epoch   uint64
	Entries []Entry
}

// Encode serializes page into exactly blockSize bytes. Fails with
// too-many-entries if len(page.Entries) exceeds Cap(blockSize).
func Encode(page Page, blockSize int) ([]byte, error) {
	cap := Cap(blockSize)
	if len(page.Entries) > cap {
		return nil, dberrors.New(dberrors.KindManifest, dberrors.CodeTooManyEntries)
	}
	buf := make([]byte, blockSize)
	codec.PutUint16(buf, 0, page.Version)
	// reserved uint16 at offset 2
	codec.PutUint64(buf, 4, page.Epoch)
	codec.PutUint16(buf, 12, uint16(len(page.Entries)))
	// reserved uint16 at offset 14

	off := headerSize
	for _, e := range page.Entries {
		codec.PutUint16(buf, off, e.Level)
		// reserved uint16 at off+2
		codec.PutUint64(buf, off+4, e.MetaOff)
		codec.PutUint32(buf, off+12, e.MetaLen)
		copy(buf[off+16:off+32], e.MinPrefix[:])
		copy(buf[off+32:off+48], e.MaxPrefix[:])
		off += entrySize
	}
	return buf, nil
}

// Decode parses a manifest page out of buf, which must be exactly
// blockSize bytes. A page whose version, epoch, and count are all zero
// decodes as an empty page. Fails with count-exceeds-cap if count exceeds
// the capacity for blockSize, or with corrupt if the claimed entries would
// overrun the page.
func Decode(buf []byte, blockSize int) (Page, error) {
	if len(buf) != blockSize {
		return Page{}, dberrors.New(dberrors.KindManifest, dberrors.CodeInvalidPageSize)
	}
	version := codec.GetUint16(buf, 0)
	epoch := codec.GetUint64(buf, 4)
	count := codec.GetUint16(buf, 12)

	if version == 0 && epoch == 0 && count == 0 {
		return Page{}, nil
	}

	cap := Cap(blockSize)
	if int(count) > cap {
		return Page{}, dberrors.New(dberrors.KindManifest, dberrors.CodeCountExceedsCap)
	}
	needed := headerSize + int(count)*entrySize
	if needed > blockSize {
		return Page{}, dberrors.New(dberrors.KindManifest, dberrors.CodeCorrupt)
	}

	page := Page{Version: version, Epoch: epoch, Entries: make([]Entry, count)}
	off := headerSize
	for i := 0; i < int(count); i++ {
		e := Entry{
			Level:   codec.GetUint16(buf, off),
			MetaOff: codec.GetUint64(buf, off+4),
			MetaLen: codec.GetUint32(buf, off+12),
		}
		copy(e.MinPrefix[:], buf[off+16:off+32])
		copy(e.MaxPrefix[:], buf[off+32:off+48])
		page.Entries[i] = e
		off += entrySize
	}
	return page, nil
}
