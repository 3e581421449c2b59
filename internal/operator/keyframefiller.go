package operator

import (
	"github.com/jmylchreest/streamrepair/internal/amf0"
	"github.com/jmylchreest/streamrepair/internal/flv"
)

// KeyframeFillerConfig tunes the reserved keyframe index size.
type KeyframeFillerConfig struct {
	// DurationLimitMS bounds how long a single output file may run; it
	// determines how many keyframe slots must be reserved.
	DurationLimitMS int64
	// KeyframeIntervalMS is the expected spacing between keyframes.
	KeyframeIntervalMS int64
}

// maxKeyframes returns ceil(DurationLimitMS / KeyframeIntervalMS), clamped
// to at least 1 slot.
func (c KeyframeFillerConfig) maxKeyframes() int {
	if c.KeyframeIntervalMS <= 0 {
		return 1
	}
	n := (c.DurationLimitMS + c.KeyframeIntervalMS - 1) / c.KeyframeIntervalMS
	if n < 1 {
		n = 1
	}
	return int(n)
}

// KeyframeFiller rewrites the script tag at the front of a segment with a
// reserved-size onMetaData object carrying placeholder keyframe arrays; the
// back-patcher fills the real values in once the output file's byte offsets
// are known. It must run downstream of ScriptFilter: it drops every Script
// tag it receives, since it owns the single metadata slot itself.
type KeyframeFiller struct {
	cfg KeyframeFillerConfig
}

// NewKeyframeFiller creates a KeyframeFiller operator.
func NewKeyframeFiller(cfg KeyframeFillerConfig) *KeyframeFiller {
	return &KeyframeFiller{cfg: cfg}
}

// Process implements Operator.
func (k *KeyframeFiller) Process(item flv.Item, emit Emit) error {
	if _, isHeader := item.(flv.Header); isHeader {
		emit(item)
		emit(k.reservedScriptTag())
		return nil
	}

	if tag, isTag := item.(flv.Tag); isTag && tag.IsScript() {
		// Owns the metadata slot; upstream script tags are superseded.
		return nil
	}

	emit(item)
	return nil
}

// Finish implements Operator.
func (k *KeyframeFiller) Finish(emit Emit) error {
	return nil
}

// reservedScriptTag builds a Script tag whose AMF0 payload has placeholder
// values and a keyframes object sized for k.cfg.maxKeyframes() entries, so
// the back-patcher can later overwrite it without changing its byte length.
func (k *KeyframeFiller) reservedScriptTag() flv.Tag {
	n := k.cfg.maxKeyframes()
	times := make(amf0.StrictArray, n)
	positions := make(amf0.StrictArray, n)
	for i := range times {
		times[i] = float64(0)
		positions[i] = float64(0)
	}

	metadata := amf0.Object{
		{Key: "duration", Value: float64(0)},
		{Key: "filesize", Value: float64(0)},
		{Key: "width", Value: float64(0)},
		{Key: "height", Value: float64(0)},
		{Key: "videocodecid", Value: float64(0)},
		{Key: "audiocodecid", Value: float64(0)},
		{Key: "lasttimestamp", Value: float64(0)},
		{Key: "lastkeyframetimestamp", Value: float64(0)},
		{Key: "lastkeyframelocation", Value: float64(0)},
		{Key: "keyframes", Value: amf0.Object{
			{Key: "times", Value: times},
			{Key: "filepositions", Value: positions},
		}},
	}

	var payload []byte
	payload, _ = amf0.Encode(payload, "onMetaData")
	payload, _ = amf0.Encode(payload, metadata)

	return flv.Tag{
		Type: flv.TagTypeScript,
		Data: payload,
	}
}
