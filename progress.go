package errhist

// ProgressEvent represents a progress update during an extraction run.
type ProgressEvent struct {
	// Stage identifies the current phase of the run.
	Stage ProgressStage

	// BufferID is the buffer being processed, if applicable.
	BufferID uint8

	// BytesDone is the number of bytes retrieved so far for the current
	// buffer.
	BytesDone uint64

	// BytesTotal is the byte count the device advertises for the current
	// buffer.
	BytesTotal uint64

	// EntriesDone is the number of directory entries fully disposed of.
	EntriesDone int

	// EntriesTotal is the number of entries in the directory.
	// Zero until the directory has been parsed.
	EntriesTotal int
}

// ProgressStage identifies the current phase of an extraction run.
type ProgressStage uint8

const (
	// StageDirectory indicates the error-history directory is being read.
	StageDirectory ProgressStage = iota

	// StageExtracting indicates buffer chunks are being retrieved.
	StageExtracting

	// StageEntryDone indicates one directory entry finished, whether
	// extracted, skipped, or failed.
	StageEntryDone
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageDirectory:
		return "reading directory"
	case StageExtracting:
		return "extracting"
	case StageEntryDone:
		return "entry done"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during extraction. Calls arrive
// sequentially from the extracting goroutine and should return quickly.
type ProgressFunc func(ProgressEvent)
