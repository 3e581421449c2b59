package writer

import "os"

// Strategy implements the per-format rules spec.md §4.6 assigns to C6: how
// to write one item, when to rotate, how to name the next file, and the
// pre/post-file hooks. T is the item type the format's pipeline produces
// (flv.Item or hls.Item); strategies are format-specific and not shared.
type Strategy[T any] interface {
	// CreateWriter opens path for writing and returns the handle Task will
	// pass to WriteItem/OnFileOpen/OnFileClose.
	CreateWriter(path string) (*os.File, error)

	// ShouldRotateFile is consulted before WriteItem for every item while a
	// file is open. Returning true closes the current file (OnFileClose)
	// before the item is written to a newly opened one.
	ShouldRotateFile(state *State) bool

	// NextFilePath derives the path for the next file, given the current
	// (possibly zero) state. Task increments FileSequenceNumber before
	// calling this for files after the first.
	NextFilePath(state *State) (string, error)

	// OnFileOpen runs once right after CreateWriter succeeds; it may write
	// header bytes and returns how many bytes it wrote.
	OnFileOpen(f *os.File, path string, state *State) (uint64, error)

	// OnFileClose runs once before a file handle is discarded; it may
	// flush, compute final statistics, and back-patch metadata. Returns
	// how many additional bytes it wrote (typically 0; back-patching
	// overwrites existing bytes rather than appending).
	OnFileClose(f *os.File, path string, state *State) (uint64, error)

	// WriteItem writes one item's on-wire encoding to f and returns the
	// number of bytes written.
	WriteItem(f *os.File, item T, state *State) (uint64, error)

	// AfterItemWritten is consulted after every WriteItem call and decides
	// whether the task should rotate immediately after this item.
	AfterItemWritten(item T, bytesWritten uint64, state *State) PostWriteAction
}
