package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStrategy is a minimal Strategy[int] used to exercise Task's open/
// rotate/close bookkeeping in isolation from any real format.
type countingStrategy struct {
	dir         string
	rotateEvery int
	opens       int
	closes      int
}

func (c *countingStrategy) CreateWriter(path string) (*os.File, error) {
	c.opens++
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
}

func (c *countingStrategy) ShouldRotateFile(state *State) bool { return false }

func (c *countingStrategy) NextFilePath(state *State) (string, error) {
	return filepath.Join(c.dir, fmt.Sprintf("file%d.bin", state.FileSequenceNumber)), nil
}

func (c *countingStrategy) OnFileOpen(f *os.File, path string, state *State) (uint64, error) {
	return 0, nil
}

func (c *countingStrategy) OnFileClose(f *os.File, path string, state *State) (uint64, error) {
	c.closes++
	return 0, nil
}

func (c *countingStrategy) WriteItem(f *os.File, item int, state *State) (uint64, error) {
	b := []byte{byte(item)}
	n, err := f.Write(b)
	return uint64(n), err
}

func (c *countingStrategy) AfterItemWritten(item int, bytesWritten uint64, state *State) PostWriteAction {
	if c.rotateEvery > 0 && int(state.ItemsWrittenCurrentFile) >= c.rotateEvery {
		return Rotate
	}
	return None
}

func TestTaskOpensAndWritesThenClose(t *testing.T) {
	strategy := &countingStrategy{dir: t.TempDir()}
	task := NewTask[int](strategy, nil, nil)

	require.NoError(t, task.WriteItem(1))
	require.NoError(t, task.WriteItem(2))
	require.NoError(t, task.Close())

	assert.Equal(t, 1, strategy.opens)
	assert.Equal(t, 1, strategy.closes)
	assert.Equal(t, uint64(2), task.State().ItemsWrittenTotal)
}

func TestTaskRotatesOnPostWriteAction(t *testing.T) {
	strategy := &countingStrategy{dir: t.TempDir(), rotateEvery: 1}
	task := NewTask[int](strategy, nil, nil)

	require.NoError(t, task.WriteItem(1))
	require.NoError(t, task.WriteItem(2))
	require.NoError(t, task.Close())

	assert.Equal(t, 2, strategy.opens)
	assert.Equal(t, 2, strategy.closes)
}

func TestTaskRunDrainsChannel(t *testing.T) {
	strategy := &countingStrategy{dir: t.TempDir()}
	task := NewTask[int](strategy, nil, nil)

	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	ch <- 3
	close(ch)

	require.NoError(t, task.Run(context.Background(), ch))
	assert.Equal(t, uint64(3), task.State().ItemsWrittenTotal)
	assert.Equal(t, 1, strategy.closes)
}

func TestTaskProgressCallback(t *testing.T) {
	strategy := &countingStrategy{dir: t.TempDir()}
	var events []ProgressEvent
	task := NewTask[int](strategy, nil, func(e ProgressEvent) {
		events = append(events, e)
	})

	require.NoError(t, task.WriteItem(1))
	require.NoError(t, task.Close())

	require.Len(t, events, 1)
	assert.Equal(t, uint64(1), events[0].ItemsWritten)
}
