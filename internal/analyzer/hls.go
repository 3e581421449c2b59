package analyzer

import (
	"time"

	"github.com/jmylchreest/streamrepair/internal/codec"
)

// HLSStats is the Stats object an HLSAnalyzer produces at file close.
type HLSStats struct {
	SegmentCount   int
	Duration       time.Duration
	ProgramCount   int
	VideoCodec     codec.Video
	AudioCodec     codec.Audio
	Width, Height  int
}

// HLSAnalyzer accumulates HLS statistics across the segments written to one
// open output file. Codec identification comes from the first TS segment's
// PMT (via inspectTSPrograms); resolution comes from the first fMP4 init
// segment's track header, when the output strategy is fMP4-based.
type HLSAnalyzer struct {
	stats          HLSStats
	codecsResolved bool
	resolutionSet  bool
}

// NewHLSAnalyzer creates a fresh HLSAnalyzer.
func NewHLSAnalyzer() *HLSAnalyzer {
	return &HLSAnalyzer{}
}

// Reset clears all accumulated statistics, as happens at every file open.
func (a *HLSAnalyzer) Reset() {
	a.stats = HLSStats{}
	a.codecsResolved = false
	a.resolutionSet = false
}

// ObserveSegment folds one delivered segment's playlist-provided duration
// into the running totals and, for TS segments, attempts to identify codecs
// and program count from the segment's PMT the first time it succeeds.
func (a *HLSAnalyzer) ObserveSegment(duration time.Duration, tsData []byte) {
	a.stats.SegmentCount++
	a.stats.Duration += duration

	if a.codecsResolved || len(tsData) == 0 {
		return
	}
	programs, err := inspectTSPrograms(tsData)
	if err != nil || len(programs) == 0 {
		return
	}
	a.codecsResolved = true
	a.stats.ProgramCount = len(programs)
	for _, stream := range programs[0].Streams {
		if v, ok := codec.VideoFromStreamType(stream.StreamType); ok && a.stats.VideoCodec == "" {
			a.stats.VideoCodec = v
		}
		if aud, ok := codec.AudioFromStreamType(stream.StreamType); ok && a.stats.AudioCodec == "" {
			a.stats.AudioCodec = aud
		}
	}
}

// ObserveInitSegment attempts to extract the coded resolution from an fMP4
// initialization segment's track header, the first time it succeeds.
func (a *HLSAnalyzer) ObserveInitSegment(initData []byte) {
	if a.resolutionSet || len(initData) == 0 {
		return
	}
	w, h, err := inspectMP4InitResolution(initData)
	if err != nil || w == 0 || h == 0 {
		return
	}
	a.resolutionSet = true
	a.stats.Width, a.stats.Height = w, h
}

// Stats returns the statistics accumulated so far.
func (a *HLSAnalyzer) Stats() HLSStats {
	return a.stats
}
