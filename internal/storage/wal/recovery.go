package wal

// ReadLive returns every live record currently held in the ring, in LSN
// order, by scanning from head for Used() bytes. If the ring wraps (head
// > tail), it performs the two-part scan spec.md §4.4 describes:
// head..jEnd, then jStart..tail.
func (w *WAL) ReadLive() ([]Record, error) {
	used := w.Used()
	if used == 0 {
		return nil, nil
	}

	if w.head <= w.tail {
		return w.Scan(w.head, used)
	}

	first, err := w.Scan(w.head, w.jEnd-w.head)
	if err != nil {
		return nil, err
	}
	second, err := w.Scan(w.jStart, w.tail-w.jStart)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}

// Reindex is ReadLive plus rebuilding the in-memory lsnToEnd map from the
// scanned records' on-disk positions. A freshly Open'd WAL starts with an
// empty map (Open has no way to know it without scanning); callers that
// intend to keep checkpointing after a reopen — every embedder that
// survives a restart — must call this once before the first Checkpoint.
func (w *WAL) Reindex() ([]Record, error) {
	used := w.Used()
	if used == 0 {
		return nil, nil
	}

	var records []Record
	if w.head <= w.tail {
		recs, ends, err := w.scanAndIndex(w.head, used)
		if err != nil {
			return nil, err
		}
		records = recs
		for lsn, end := range ends {
			w.lsnToEnd[lsn] = end
		}
		return records, nil
	}

	recs1, ends1, err := w.scanAndIndex(w.head, w.jEnd-w.head)
	if err != nil {
		return nil, err
	}
	recs2, ends2, err := w.scanAndIndex(w.jStart, w.tail-w.jStart)
	if err != nil {
		return nil, err
	}
	for lsn, end := range ends1 {
		w.lsnToEnd[lsn] = end
	}
	for lsn, end := range ends2 {
		w.lsnToEnd[lsn] = end
	}
	return append(recs1, recs2...), nil
}
