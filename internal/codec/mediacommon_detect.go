// This file detects which codecs are supported by the mediacommon library
// at init time, using type assertions, so the set adapts automatically when
// upstream adds or removes codec support.
package codec

import (
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts/codecs"
)

var demuxableVideo = map[Video]bool{}
var demuxableAudio = map[Audio]bool{}

func init() {
	demuxableVideo[VideoH264] = mediacommonDemuxes(&mpegts.CodecH264{})
	demuxableVideo[VideoH265] = mediacommonDemuxes(&mpegts.CodecH265{})
	demuxableVideo[VideoMPEG1] = mediacommonDemuxes(&mpegts.CodecMPEG1Video{})
	demuxableVideo[VideoMPEG2] = demuxableVideo[VideoMPEG1]
	demuxableVideo[VideoMPEG4] = mediacommonDemuxes(&mpegts.CodecMPEG4Video{})

	demuxableAudio[AudioAAC] = mediacommonDemuxes(&mpegts.CodecMPEG4Audio{})
	demuxableAudio[AudioMP3] = mediacommonDemuxes(&mpegts.CodecMPEG1Audio{})
	demuxableAudio[AudioAC3] = mediacommonDemuxes(&mpegts.CodecAC3{})
	// EAC3 lives in the codecs subpackage rather than mpegts itself in
	// upstream mediacommon; the fork used here aliases it into mpegts.Codec.
	demuxableAudio[AudioEAC3] = mediacommonDemuxes(&codecs.EAC3{})
	demuxableAudio[AudioOpus] = mediacommonDemuxes(&mpegts.CodecOpus{})
}

func mediacommonDemuxes(c mpegts.Codec) bool {
	_, unsupported := c.(*mpegts.CodecUnsupported)
	return !unsupported
}

// IsMediacommonCodecSupported reports whether the mediacommon library
// (as vendored by this module) can demux the given codec from an MPEG-TS
// stream. Unrecognized codec names return false.
func IsMediacommonCodecSupported(codecName string) bool {
	name := NormalizeHLSCodec(codecName)
	if v, ok := demuxableVideo[Video(name)]; ok {
		return v
	}
	if a, ok := demuxableAudio[Audio(name)]; ok {
		return a
	}
	return false
}
