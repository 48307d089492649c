package wal

// Scan reads up to maxBytes bytes starting at the given absolute offset
// and decodes records from the front of that buffer. Decoding stops
// cleanly (not as an error) on a truncated header or body — the
// remainder is treated as not-yet-written rather than corrupt, matching
// spec.md §7's "short reads during boot-time scan are treated as
// end-of-log." PAD records advance the cursor without yielding anything.
//
// Scan does not itself wrap around jEnd; a caller reading a ring that
// wraps performs two scans (head..jEnd, then jStart..tail) and
// concatenates the results.
func (w *WAL) Scan(fromAbsolute uint64, maxBytes uint64) ([]Record, error) {
	if maxBytes == 0 {
		return nil, nil
	}
	buf, err := w.readForScan(fromAbsolute, maxBytes)
	if err != nil {
		return nil, err
	}

	var records []Record
	pos := 0
	for {
		if pos+HeaderSize > len(buf) {
			break
		}
		lsn, op, klen, vlen := decodeHeader(buf[pos:])
		total := HeaderSize + int(klen) + int(vlen)
		if pos+total > len(buf) {
			break
		}
		aligned := alignedWithin(total)
		if pos+aligned > len(buf) {
			// Body fits but padding doesn't: still a complete record: accept
			// it and stop (no more data follows).
			aligned = total
		}

		if op != OpPad {
			key := append([]byte(nil), buf[pos+HeaderSize:pos+HeaderSize+int(klen)]...)
			value := append([]byte(nil), buf[pos+HeaderSize+int(klen):pos+total]...)
			records = append(records, Record{LSN: lsn, Op: op, Key: key, Value: value})
		}
		pos += aligned
	}
	return records, nil
}

func alignedWithin(n int) int {
	return int((uint64(n) + 7) &^ 7)
}

// scanAndIndex behaves like Scan but additionally returns, for every
// yielded record, its normalized post-record absolute offset — the same
// bookkeeping AppendMany performs as it writes, used to rebuild
// lsnToEnd after a reopen so a later checkpoint can still truncate
// records that were already on disk before the process started.
func (w *WAL) scanAndIndex(fromAbsolute uint64, maxBytes uint64) ([]Record, map[uint64]uint64, error) {
	if maxBytes == 0 {
		return nil, nil, nil
	}
	buf, err := w.readForScan(fromAbsolute, maxBytes)
	if err != nil {
		return nil, nil, err
	}

	var records []Record
	ends := make(map[uint64]uint64)
	pos := 0
	for {
		if pos+HeaderSize > len(buf) {
			break
		}
		lsn, op, klen, vlen := decodeHeader(buf[pos:])
		total := HeaderSize + int(klen) + int(vlen)
		if pos+total > len(buf) {
			break
		}
		aligned := alignedWithin(total)
		if pos+aligned > len(buf) {
			aligned = total
		}

		if op != OpPad {
			key := append([]byte(nil), buf[pos+HeaderSize:pos+HeaderSize+int(klen)]...)
			value := append([]byte(nil), buf[pos+HeaderSize+int(klen):pos+total]...)
			records = append(records, Record{LSN: lsn, Op: op, Key: key, Value: value})
			ends[lsn] = w.normalize(fromAbsolute + uint64(pos+aligned))
		}
		pos += aligned
	}
	return records, ends, nil
}

// readForScan reads up to maxBytes starting at fromAbsolute, tolerating a
// short read at true EOF (the file may not yet be as large as the
// journal region if it was only ever partially preallocated, though in
// practice the EnsureSize call in engine.Format prevents this).
func (w *WAL) readForScan(fromAbsolute, maxBytes uint64) ([]byte, error) {
	buf := make([]byte, maxBytes)
	n, err := w.file.ReadAt(fromAbsolute, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
