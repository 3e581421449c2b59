// Package writer drives a format strategy (Strategy[T]) that decides when
// to cut a new output file, names it, runs pre/post-file hooks, and
// back-patches on-disk metadata once a file closes. It is the rotating
// segment writer: the only component in the toolchain that owns file
// handles and WriterState.
package writer

import (
	"errors"
	"time"
)

// PostWriteAction is a strategy's verdict after writing one item: whether
// the writer task should rotate to a new file immediately afterward.
type PostWriteAction int

// PostWriteAction values.
const (
	// None means the current file stays open.
	None PostWriteAction = iota
	// Rotate closes the current file after this item.
	Rotate
)

// State is the per-task state a Strategy is handed on every call, mirroring
// WriterState in spec.md §3. CurrentPath is empty until the first file
// opens; afterwards it holds the most recently opened file's path, also
// once that file has closed.
type State struct {
	CurrentPath             string
	BytesWrittenCurrentFile uint64
	ItemsWrittenCurrentFile uint64
	ItemsWrittenTotal       uint64
	FileSequenceNumber      uint32
	FileOpenedAt            time.Time
}

// resetForNewFile clears the per-file counters at the start of a new file. It does
// not touch FileSequenceNumber or ItemsWrittenTotal, both of which persist
// across rotations.
func (s *State) resetForNewFile(path string) {
	s.CurrentPath = path
	s.BytesWrittenCurrentFile = 0
	s.ItemsWrittenCurrentFile = 0
	s.FileOpenedAt = time.Now()
}

// Errors surfaced by the writer task and format strategies.
var (
	// ErrNoInitSegment is returned by the HLS strategy when an M4sSegment
	// arrives in a file that has not yet received an M4sInit; upstream
	// (the limiter operator) guarantees this cannot happen in a correctly
	// wired pipeline, so seeing it indicates a wiring bug, not bad input.
	ErrNoInitSegment = errors.New("writer: m4s segment written before init segment in current file")
	// ErrFileNotOpen reports a write attempted with no output file open.
	// Task opens a file before every strategy write, so no code path in
	// this package returns it.
	ErrFileNotOpen = errors.New("writer: no file open")
)

// ProgressEvent is an optional observability hook reported by Task after
// each file closes: bytes/sec and elapsed duration for the file just
// finished. It is a supplemental ambient feature (spec.md's writer task
// itself has no progress-reporting requirement) mirroring the source's
// write-rate calculation, never required for correctness.
type ProgressEvent struct {
	Path               string
	BytesWritten       uint64
	ItemsWritten       uint64
	Elapsed            time.Duration
	BytesPerSecond     float64
	FileSequenceNumber uint32
}
