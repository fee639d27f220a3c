package errhist

// EntryStatus classifies how the extractor disposed of one directory entry.
type EntryStatus uint8

const (
	// EntryExtracted means the buffer was retrieved in full.
	EntryExtracted EntryStatus = iota

	// EntrySkipped means the entry failed the Extractable checks and was
	// never read.
	EntrySkipped

	// EntryFailed means extraction started but stopped early; the artifact
	// holds the prefix retrieved before the failure.
	EntryFailed
)

func (s EntryStatus) String() string {
	switch s {
	case EntryExtracted:
		return "extracted"
	case EntrySkipped:
		return "skipped"
	case EntryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EntryResult records the disposition of one directory entry.
type EntryResult struct {
	BufferID     uint8
	MaxAvailable uint32
	Status       EntryStatus

	// BytesWritten is the extraction cursor at the time the entry
	// finished. Equal to MaxAvailable for extracted entries, zero for
	// skipped ones.
	BytesWritten uint64

	// Err is non-nil only when Status is EntryFailed.
	Err error
}

// Report summarizes one extraction run. Entry-level failures live here,
// not in Extract's error return.
type Report struct {
	Directory Directory
	Entries   []EntryResult
}

// Extracted returns the number of fully retrieved buffers.
func (r *Report) Extracted() int { return r.count(EntryExtracted) }

// Skipped returns the number of entries rejected by validation.
func (r *Report) Skipped() int { return r.count(EntrySkipped) }

// Failed returns the number of entries truncated by an entry-level failure.
func (r *Report) Failed() int { return r.count(EntryFailed) }

func (r *Report) count(st EntryStatus) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == st {
			n++
		}
	}
	return n
}
