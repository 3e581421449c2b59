package operator

import (
	"log/slog"

	"github.com/jmylchreest/streamrepair/internal/flv"
)

// minDefragmentTags is the fewest tags following a Header that must
// accumulate before the segment is trusted and flushed.
const minDefragmentTags = 10

// Defragment discards short fragments that appear near a stream restart:
// once a Header arrives, it buffers subsequent tags until either
// minDefragmentTags have accumulated, or the input ends.
type Defragment struct {
	logger    *slog.Logger
	gathering bool
	header    flv.Item
	buffer    []flv.Item
}

// NewDefragment creates a Defragment operator. A nil logger falls back to
// slog.Default().
func NewDefragment(logger *slog.Logger) *Defragment {
	if logger == nil {
		logger = slog.Default()
	}
	return &Defragment{logger: logger}
}

// Process implements Operator.
func (d *Defragment) Process(item flv.Item, emit Emit) error {
	if _, isHeader := item.(flv.Header); isHeader {
		if len(d.buffer) > 0 {
			d.logger.Warn("discarding rejected fragment", slog.Int("buffered_tags", len(d.buffer)))
		}
		d.header = item
		d.buffer = nil
		d.gathering = true
		return nil
	}

	if !d.gathering {
		emit(item)
		return nil
	}

	d.buffer = append(d.buffer, item)
	if len(d.buffer) >= minDefragmentTags {
		d.flush(emit)
	}
	return nil
}

// Finish implements Operator.
func (d *Defragment) Finish(emit Emit) error {
	if d.gathering && len(d.buffer) >= minDefragmentTags {
		d.flush(emit)
	}
	d.header = nil
	d.buffer = nil
	return nil
}

func (d *Defragment) flush(emit Emit) {
	emit(d.header)
	for _, buffered := range d.buffer {
		emit(buffered)
	}
	d.header = nil
	d.buffer = nil
	d.gathering = false
}
