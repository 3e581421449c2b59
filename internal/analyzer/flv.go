// Package analyzer accumulates per-file running statistics for each output
// format: tag/segment counts, timestamp bounds, and the codec/resolution
// information the format strategies need to finalize a file's metadata.
package analyzer

import (
	"github.com/jmylchreest/streamrepair/internal/codec"
	"github.com/jmylchreest/streamrepair/internal/flv"
)

// KeyframeEntry is one (timestamp, byte offset) pair recorded for a video
// keyframe, in arrival order.
type KeyframeEntry struct {
	TimestampMS int64
	ByteOffset  int64
}

// FLVStats is the Stats object an FLVAnalyzer produces at file close.
type FLVStats struct {
	AudioTags  int64
	VideoTags  int64
	ScriptTags int64

	FirstAudioTimestampMS, LastAudioTimestampMS int64
	FirstVideoTimestampMS, LastVideoTimestampMS int64
	HasAudio, HasVideo                          bool

	DurationMS int64

	VideoCodec codec.Video
	AudioCodec codec.Audio
	Width      int
	Height     int

	Keyframes []KeyframeEntry
}

// FLVAnalyzer accumulates FLV statistics across the tags of one open output
// file. It is reset at each file open (NewFLVAnalyzer / Reset).
type FLVAnalyzer struct {
	stats           FLVStats
	videoCodecKnown bool
	audioCodecKnown bool
}

// NewFLVAnalyzer creates a fresh FLVAnalyzer.
func NewFLVAnalyzer() *FLVAnalyzer {
	a := &FLVAnalyzer{}
	a.Reset()
	return a
}

// Reset clears all accumulated statistics, as happens at every file open.
func (a *FLVAnalyzer) Reset() {
	a.stats = FLVStats{}
	a.videoCodecKnown = false
	a.audioCodecKnown = false
}

// Observe folds one written item's statistics into the running totals.
// byteOffset is the item's offset in the current output file, used to
// record keyframe locations.
func (a *FLVAnalyzer) Observe(item flv.Item, byteOffset int64) {
	tag, ok := item.(flv.Tag)
	if !ok {
		return
	}

	switch tag.Type {
	case flv.TagTypeAudio:
		a.observeAudio(tag)
	case flv.TagTypeVideo:
		a.observeVideo(tag, byteOffset)
	case flv.TagTypeScript:
		a.stats.ScriptTags++
	}
}

func (a *FLVAnalyzer) observeAudio(tag flv.Tag) {
	a.stats.AudioTags++
	ts := int64(tag.TimestampMS)
	if !a.stats.HasAudio {
		a.stats.FirstAudioTimestampMS = ts
		a.stats.HasAudio = true
	}
	a.stats.LastAudioTimestampMS = ts

	if !a.audioCodecKnown && tag.IsAudioSequenceHeader() {
		a.stats.AudioCodec = codec.AudioAAC
		a.audioCodecKnown = true
	}
}

func (a *FLVAnalyzer) observeVideo(tag flv.Tag, byteOffset int64) {
	a.stats.VideoTags++
	ts := int64(tag.TimestampMS)
	if !a.stats.HasVideo {
		a.stats.FirstVideoTimestampMS = ts
		a.stats.HasVideo = true
	}
	a.stats.LastVideoTimestampMS = ts

	if !a.videoCodecKnown && tag.IsVideoSequenceHeader() {
		a.stats.VideoCodec = codec.VideoH264
		a.videoCodecKnown = true
		// Video tag payload: [frame type/codec id][avc packet type][3-byte
		// composition time][AVCDecoderConfigurationRecord].
		if len(tag.Data) > 5 {
			if w, h, err := codec.AVCDecoderConfigRecordResolution(tag.Data[5:]); err == nil {
				a.stats.Width, a.stats.Height = w, h
			}
		}
	}

	if tag.IsKeyFrameNALU() {
		a.stats.Keyframes = append(a.stats.Keyframes, KeyframeEntry{
			TimestampMS: ts,
			ByteOffset:  byteOffset,
		})
	}
}

// Stats returns the statistics accumulated so far, with DurationMS derived
// as max(last audio/video timestamp) - min(first audio/video timestamp).
func (a *FLVAnalyzer) Stats() FLVStats {
	s := a.stats

	first, haveFirst := int64(0), false
	last := int64(0)
	if s.HasAudio {
		first, haveFirst = s.FirstAudioTimestampMS, true
		last = s.LastAudioTimestampMS
	}
	if s.HasVideo {
		if !haveFirst || s.FirstVideoTimestampMS < first {
			first = s.FirstVideoTimestampMS
		}
		if s.LastVideoTimestampMS > last {
			last = s.LastVideoTimestampMS
		}
		haveFirst = true
	}
	if haveFirst {
		s.DurationMS = last - first
	}
	return s
}
