package writer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// OnProgress is an optional callback a Task reports to after every file
// close: bytes/sec and elapsed duration for the file just finished. A nil
// callback disables progress reporting entirely.
type OnProgress func(ProgressEvent)

// Task drives a Strategy[T]: it opens/closes files, tracks WriterState, and
// honors the PostWriteAction a strategy returns after each item. One Task
// owns exactly one open file handle at a time and is not safe for
// concurrent use from more than one goroutine — spec.md §5 serializes all
// file I/O to a single output file through a single writer task.
type Task[T any] struct {
	strategy   Strategy[T]
	logger     *slog.Logger
	onProgress OnProgress

	state State
	file  *os.File
}

// NewTask creates a Task bound to strategy. The strategy owns path
// resolution (typically via its own *storage.Sandbox) and file opening. A
// nil logger falls back to slog.Default(); a nil onProgress disables
// progress events.
func NewTask[T any](strategy Strategy[T], logger *slog.Logger, onProgress OnProgress) *Task[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Task[T]{
		strategy:   strategy,
		logger:     logger,
		onProgress: onProgress,
	}
}

// State returns a copy of the task's current WriterState.
func (t *Task[T]) State() State {
	return t.state
}

// Run drains items from the channel until it closes or ctx is canceled,
// writing each one per the spec.md §4.6 writer task loop. It always closes
// any open file before returning, even on error or cancellation.
func (t *Task[T]) Run(ctx context.Context, items <-chan T) error {
	defer func() {
		if t.file != nil {
			_ = t.closeCurrentFile()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-items:
			if !ok {
				return nil
			}
			if err := t.WriteItem(item); err != nil {
				return err
			}
		}
	}
}

// WriteItem runs one pass of the writer task loop (spec.md §4.6 steps 1-4)
// for a single item: opening/rotating the current file as needed, writing
// the item, and honoring the strategy's PostWriteAction.
func (t *Task[T]) WriteItem(item T) error {
	if t.file == nil {
		if err := t.openNextFile(); err != nil {
			return err
		}
	} else if t.strategy.ShouldRotateFile(&t.state) {
		if err := t.closeCurrentFile(); err != nil {
			return err
		}
		if err := t.openNextFile(); err != nil {
			return err
		}
	}

	n, err := t.strategy.WriteItem(t.file, item, &t.state)
	if err != nil {
		return fmt.Errorf("writer: writing item to %s: %w", t.state.CurrentPath, err)
	}
	t.state.BytesWrittenCurrentFile += n
	t.state.ItemsWrittenCurrentFile++
	t.state.ItemsWrittenTotal++

	if t.strategy.AfterItemWritten(item, n, &t.state) == Rotate {
		return t.closeCurrentFile()
	}
	return nil
}

// Close closes any currently open file. It is the caller's responsibility
// to call this after the last WriteItem on end-of-input (spec.md §4.6
// step 5), unless Run is driving the task.
func (t *Task[T]) Close() error {
	if t.file == nil {
		return nil
	}
	return t.closeCurrentFile()
}

func (t *Task[T]) openNextFile() error {
	// The first file keeps sequence number 0; each later file (a rotation)
	// advances it before its path is derived.
	if t.state.CurrentPath != "" {
		t.state.FileSequenceNumber++
	}

	path, err := t.strategy.NextFilePath(&t.state)
	if err != nil {
		return fmt.Errorf("writer: deriving next file path: %w", err)
	}

	f, err := t.strategy.CreateWriter(path)
	if err != nil {
		return fmt.Errorf("writer: opening %s: %w", path, err)
	}

	t.state.resetForNewFile(path)
	t.file = f

	n, err := t.strategy.OnFileOpen(f, path, &t.state)
	if err != nil {
		_ = f.Close()
		t.file = nil
		return fmt.Errorf("writer: on-open hook for %s: %w", path, err)
	}
	t.state.BytesWrittenCurrentFile += n

	t.logger.Info("writer opened file",
		"path", path,
		"file_sequence_number", t.state.FileSequenceNumber,
	)
	return nil
}

func (t *Task[T]) closeCurrentFile() error {
	if t.file == nil {
		return nil
	}
	path := t.state.CurrentPath
	elapsed := time.Since(t.state.FileOpenedAt)

	n, hookErr := t.strategy.OnFileClose(t.file, path, &t.state)
	t.state.BytesWrittenCurrentFile += n

	closeErr := t.file.Close()
	t.file = nil

	if hookErr != nil {
		return fmt.Errorf("writer: on-close hook for %s: %w", path, hookErr)
	}
	if closeErr != nil {
		return fmt.Errorf("writer: closing %s: %w", path, closeErr)
	}

	t.logger.Info("writer closed file",
		"path", path,
		"bytes_written", t.state.BytesWrittenCurrentFile,
		"items_written", t.state.ItemsWrittenCurrentFile,
	)

	if t.onProgress != nil {
		var bps float64
		if elapsed > 0 {
			bps = float64(t.state.BytesWrittenCurrentFile) / elapsed.Seconds()
		}
		t.onProgress(ProgressEvent{
			Path:               path,
			BytesWritten:       t.state.BytesWrittenCurrentFile,
			ItemsWritten:       t.state.ItemsWrittenCurrentFile,
			Elapsed:            elapsed,
			BytesPerSecond:     bps,
			FileSequenceNumber: t.state.FileSequenceNumber,
		})
	}
	return nil
}
