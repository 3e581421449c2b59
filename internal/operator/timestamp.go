package operator

import (
	"github.com/jmylchreest/streamrepair/internal/config"
	"github.com/jmylchreest/streamrepair/internal/flv"
)

// ContinuityMode controls what a Header does to accumulated timestamp
// state.
type ContinuityMode int

const (
	// ContinuityReset clears the offset and last-emitted timestamp on every
	// Header, treating each header epoch as an independent timeline.
	ContinuityReset ContinuityMode = iota
	// ContinuityPreserve carries the offset and last-emitted timestamp
	// across Header boundaries.
	ContinuityPreserve
)

// Timestamp detects backward jumps and large forward jumps that imply a
// stream restart without a fresh Header, and rewrites timestamps so output
// is monotonically non-decreasing with plausible spacing. Audio and video
// are distinct channels (spec.md §4.3.4): each gets its own offset and
// last-emitted timestamp, so repairing one track's discontinuity never
// perturbs the other's, and timestamps stay strictly increasing within a
// channel even when both tracks carry the same input timestamp.
type Timestamp struct {
	cfg  config.TimestampConfig
	mode ContinuityMode

	channels map[flv.TagType]*channelState
}

type channelState struct {
	offset      int64
	lastEmitted int64
	hasEmitted  bool
}

// NewTimestamp creates a Timestamp operator with the given tuning config
// and continuity mode.
func NewTimestamp(cfg config.TimestampConfig, mode ContinuityMode) *Timestamp {
	return &Timestamp{cfg: cfg, mode: mode, channels: make(map[flv.TagType]*channelState)}
}

// Process implements Operator.
func (ts *Timestamp) Process(item flv.Item, emit Emit) error {
	if _, isHeader := item.(flv.Header); isHeader {
		if ts.mode == ContinuityReset {
			ts.channels = make(map[flv.TagType]*channelState)
		}
		emit(item)
		return nil
	}

	tag, isTag := item.(flv.Tag)
	if !isTag {
		emit(item)
		return nil
	}

	ch, ok := ts.channels[tag.Type]
	if !ok {
		ch = &channelState{}
		ts.channels[tag.Type] = ch
	}

	t := int64(tag.TimestampMS) + ch.offset

	if ch.hasEmitted {
		if t+ts.cfg.BackwardToleranceMS < ch.lastEmitted {
			ch.offset += ch.lastEmitted + 1 - t
			t = ch.lastEmitted + 1
		} else if t > ch.lastEmitted+ts.cfg.ForwardJumpMS {
			ch.offset += ch.lastEmitted + 1 - t
			t = ch.lastEmitted + 1
		} else if t <= ch.lastEmitted {
			// Within tolerance: not a restart, but keep the channel
			// strictly increasing.
			t = ch.lastEmitted + 1
		}
	}

	ch.lastEmitted = t
	ch.hasEmitted = true

	tag.TimestampMS = uint32(t)
	emit(tag)
	return nil
}

// Finish implements Operator.
func (ts *Timestamp) Finish(emit Emit) error {
	return nil
}
