package errhist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ChunkSize is the fixed transfer size for buffer reads: the largest single
// transfer the extraction path issues. Buffers larger than this are
// retrieved in ChunkSize pieces plus one smaller final chunk.
const ChunkSize = 256 * 1024

// extractor drives one extraction run. It owns the two scratch buffers for
// the run's lifetime and issues exactly one command at a time.
type extractor struct {
	tpt      Transport
	sink     Sink
	logger   *slog.Logger
	progress ProgressFunc
	timeout  time.Duration
	long     bool
}

// Option configures an extraction run.
type Option func(*extractor)

// WithLogger sets the logger for diagnostic output. By default all logs
// are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(e *extractor) { e.logger = logger }
}

// WithProgress sets a callback receiving progress updates.
func WithProgress(fn ProgressFunc) Option {
	return func(e *extractor) { e.progress = fn }
}

// WithCommandTimeout overrides DefaultCommandTimeout for each device
// command.
func WithCommandTimeout(d time.Duration) Option {
	return func(e *extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLongCommands selects the 16-byte READ BUFFER variant. Devices that
// reject the short form can still be walked with this set; the wire
// parameters are identical.
func WithLongCommands() Option {
	return func(e *extractor) { e.long = true }
}

// Extract reads the device's error-history directory, persists it raw
// through sink, then retrieves every extractable buffer the directory
// advertises in chunked reads.
//
// Failures reading or persisting the directory abort the run with a non-nil
// error wrapping ErrDirectoryRead or ErrDirectorySave. Failures scoped to a
// single entry never abort the run; they are recorded in the Report and the
// next entry is still processed. ctx is checked between commands; a
// cancelled run returns ctx's error together with the report accumulated so
// far.
func Extract(ctx context.Context, tpt Transport, sink Sink, opts ...Option) (*Report, error) {
	if tpt == nil {
		return nil, errors.New("errhist: nil transport")
	}
	if sink == nil {
		return nil, errors.New("errhist: nil sink")
	}

	e := &extractor{
		tpt:     tpt,
		sink:    sink,
		timeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e.run(ctx)
}

func (e *extractor) log() *slog.Logger {
	if e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

func (e *extractor) report(ev ProgressEvent) {
	if e.progress != nil {
		e.progress(ev)
	}
}

func (e *extractor) run(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.report(ProgressEvent{Stage: StageDirectory})
	dirBuf := make([]byte, DirectoryResponseLen)
	out := e.read(DirectoryBufferID, 0, dirBuf)
	if !out.Good() {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryRead, out.Err)
	}

	if err := e.sink.WriteDirectory(dirBuf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectorySave, err)
	}

	dir := DecodeDirectory(dirBuf)
	e.log().Info("error history directory parsed",
		"vendor", dir.Header.Vendor(),
		"version", dir.Header.Version,
		"entries", len(dir.Entries))

	rep := &Report{
		Directory: dir,
		Entries:   make([]EntryResult, 0, len(dir.Entries)),
	}
	chunk := make([]byte, ChunkSize)
	total := len(dir.Entries)

	for i, ent := range dir.Entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		var res EntryResult
		if !ent.Extractable() {
			res = EntryResult{
				BufferID:     ent.BufferID,
				MaxAvailable: ent.MaxAvailable,
				Status:       EntrySkipped,
			}
			e.log().Debug("skipping directory entry",
				"buffer_id", fmt.Sprintf("0x%02x", ent.BufferID),
				"max_available", ent.MaxAvailable)
		} else {
			var err error
			res, err = e.extractEntry(ctx, ent, chunk)
			if err != nil {
				rep.Entries = append(rep.Entries, res)
				return rep, err
			}
		}

		rep.Entries = append(rep.Entries, res)
		e.report(ProgressEvent{
			Stage:        StageEntryDone,
			BufferID:     ent.BufferID,
			EntriesDone:  i + 1,
			EntriesTotal: total,
		})
	}

	e.log().Info("extraction complete",
		"extracted", rep.Extracted(),
		"skipped", rep.Skipped(),
		"failed", rep.Failed())
	return rep, nil
}

// extractEntry retrieves one valid entry. The returned error is non-nil
// only for context cancellation; entry-level failures are folded into the
// result.
func (e *extractor) extractEntry(ctx context.Context, ent DirectoryEntry, chunk []byte) (EntryResult, error) {
	res := EntryResult{BufferID: ent.BufferID, MaxAvailable: ent.MaxAvailable}

	w, err := e.sink.CreateBuffer(ent.BufferID)
	if err != nil {
		e.log().Warn("cannot create buffer artifact",
			"buffer_id", fmt.Sprintf("0x%02x", ent.BufferID),
			"error", err)
		res.Status = EntryFailed
		res.Err = err
		return res, nil
	}

	var (
		readSum  uint32
		entryErr error
		ctxErr   error
	)
	for readSum < ent.MaxAvailable {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}

		size := min(ent.MaxAvailable-readSum, ChunkSize)
		buf := chunk[:size]
		clear(buf)

		out := e.read(ent.BufferID, uint64(readSum), buf)
		if !out.Good() {
			e.log().Warn("buffer read failed",
				"buffer_id", fmt.Sprintf("0x%02x", ent.BufferID),
				"offset", readSum,
				"error", out.Err)
			entryErr = out.Err
			break
		}

		if _, werr := w.Write(buf); werr != nil {
			e.log().Warn("buffer write failed",
				"buffer_id", fmt.Sprintf("0x%02x", ent.BufferID),
				"offset", readSum,
				"error", werr)
			entryErr = werr
			break
		}

		// The cursor advances by the requested size even when the device
		// reports a residual; artifact offsets always mirror the offsets
		// requested on the wire.
		readSum += size
		e.report(ProgressEvent{
			Stage:      StageExtracting,
			BufferID:   ent.BufferID,
			BytesDone:  uint64(readSum),
			BytesTotal: uint64(ent.MaxAvailable),
		})
	}

	cerr := w.Close()
	if entryErr == nil && ctxErr == nil && cerr != nil {
		entryErr = cerr
	}

	res.BytesWritten = uint64(readSum)
	switch {
	case ctxErr != nil:
		res.Status = EntryFailed
		res.Err = ctxErr
		return res, ctxErr
	case entryErr != nil:
		res.Status = EntryFailed
		res.Err = entryErr
	default:
		res.Status = EntryExtracted
		e.log().Info("buffer extracted",
			"buffer_id", fmt.Sprintf("0x%02x", ent.BufferID),
			"bytes", readSum)
	}
	return res, nil
}

// read issues one READ BUFFER for the given id and offset, sized by
// len(data), and classifies the completion.
func (e *extractor) read(id uint8, offset uint64, data []byte) Outcome {
	var cdb []byte
	if e.long {
		c := ReadBuffer16(ModeErrorHistory, 0, id, offset, uint32(len(data)))
		cdb = c[:]
	} else {
		c := ReadBuffer10(ModeErrorHistory, 0, id, uint32(offset), uint32(len(data))) //nolint:gosec // offsets are bounded by MaxBufferLength
		cdb = c[:]
	}

	comp := e.tpt.Execute(cdb, data, e.timeout)
	out := Classify(comp, len(data))

	switch {
	case out.Kind == OutcomeRecovered:
		e.log().Debug("command recovered",
			"buffer_id", fmt.Sprintf("0x%02x", id),
			"offset", offset,
			"sense", out.Key.String())
	case out.Kind == OutcomeOK && out.Bytes < len(data):
		e.log().Debug("short transfer",
			"buffer_id", fmt.Sprintf("0x%02x", id),
			"offset", offset,
			"requested", len(data),
			"transferred", out.Bytes)
	}
	return out
}
