// Package codec provides a small registry of video/audio codec identifiers
// used by the FLV and HLS analyzers and the FLV metadata back-patcher.
//
// Bitstream-level codec parsing (H.264/H.265 SPS, AAC ASC) is treated as an
// already-solved problem at the interface boundary: the one SPS read here
// (AVCDecoderConfigRecordResolution) delegates the parsing to mediacommon.
// Otherwise this package normalizes codec name strings (as seen in HLS
// CODECS attributes or MPEG-TS PSI stream types) to a canonical name and to
// the numeric identifiers the FLV container format and AMF0 onMetaData
// object expect.
package codec

import "strings"

// Video represents a video codec.
type Video string

// Video codec constants.
const (
	VideoH264    Video = "h264"
	VideoH265    Video = "h265"
	VideoVP8     Video = "vp8"
	VideoVP9     Video = "vp9"
	VideoAV1     Video = "av1"
	VideoMPEG1   Video = "mpeg1"
	VideoMPEG2   Video = "mpeg2"
	VideoMPEG4   Video = "mpeg4"
	VideoUnknown Video = ""
)

// Audio represents an audio codec.
type Audio string

// Audio codec constants.
const (
	AudioAAC     Audio = "aac"
	AudioMP3     Audio = "mp3"
	AudioAC3     Audio = "ac3"
	AudioEAC3    Audio = "eac3"
	AudioOpus    Audio = "opus"
	AudioUnknown Audio = ""
)

// MPEG-TS PSI stream type identifiers (ISO/IEC 13818-1), used to identify
// codecs from a downloaded MPEG-TS HLS segment's PMT without decoding any
// elementary stream payload.
const (
	StreamTypeMPEG1Video uint8 = 0x01
	StreamTypeMPEG2Video uint8 = 0x02
	StreamTypeMPEG4Video uint8 = 0x10
	StreamTypeAAC        uint8 = 0x0F
	StreamTypeMP3        uint8 = 0x03
	StreamTypeAC3        uint8 = 0x81
	StreamTypeEAC3       uint8 = 0x87
	StreamTypeH264       uint8 = 0x1B
	StreamTypeH265       uint8 = 0x24
)

// FLV numeric codec identifiers, as written to the onMetaData
// videocodecid/audiocodecid fields (Adobe FLV v10 §E.4.3.1).
const (
	FLVVideoCodecSorensonH263 = 2
	FLVVideoCodecScreen       = 3
	FLVVideoCodecVP6          = 4
	FLVVideoCodecAVC          = 7 // H.264

	FLVAudioCodecMP3 = 2
	FLVAudioCodecAAC = 10
)

// videoByStreamType maps MPEG-TS PSI stream types to a canonical Video codec.
var videoByStreamType = map[uint8]Video{
	StreamTypeMPEG1Video: VideoMPEG1,
	StreamTypeMPEG2Video: VideoMPEG2,
	StreamTypeMPEG4Video: VideoMPEG4,
	StreamTypeH264:       VideoH264,
	StreamTypeH265:       VideoH265,
}

// audioByStreamType maps MPEG-TS PSI stream types to a canonical Audio codec.
var audioByStreamType = map[uint8]Audio{
	StreamTypeAAC:  AudioAAC,
	StreamTypeMP3:  AudioMP3,
	StreamTypeAC3:  AudioAC3,
	StreamTypeEAC3: AudioEAC3,
}

// VideoFromStreamType resolves an MPEG-TS PSI stream type to a codec name.
func VideoFromStreamType(streamType uint8) (Video, bool) {
	v, ok := videoByStreamType[streamType]
	return v, ok
}

// AudioFromStreamType resolves an MPEG-TS PSI stream type to a codec name.
func AudioFromStreamType(streamType uint8) (Audio, bool) {
	a, ok := audioByStreamType[streamType]
	return a, ok
}

// NormalizeHLSCodec normalizes an RFC 6381 codec string from an HLS
// EXT-X-STREAM-INF CODECS attribute (e.g. "avc1.64001f", "mp4a.40.2") to
// its canonical short name.
func NormalizeHLSCodec(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	if len(lower) >= 4 {
		switch lower[:4] {
		case "avc1", "avc3":
			return string(VideoH264)
		case "hev1", "hvc1":
			return string(VideoH265)
		case "mp4a":
			return string(AudioAAC)
		case "vp09":
			return string(VideoVP9)
		case "av01":
			return string(VideoAV1)
		}
	}
	switch lower {
	case "hevc":
		return string(VideoH265)
	case "avc", "h.264":
		return string(VideoH264)
	case "ac-3":
		return string(AudioAC3)
	case "ec-3":
		return string(AudioEAC3)
	}
	return lower
}

// FLVVideoCodecID returns the FLV onMetaData videocodecid for a canonical
// video codec name. Returns 0, false for codecs FLV cannot carry.
func FLVVideoCodecID(v Video) (int, bool) {
	switch v {
	case VideoH264:
		return FLVVideoCodecAVC, true
	default:
		return 0, false
	}
}

// FLVAudioCodecID returns the FLV onMetaData audiocodecid for a canonical
// audio codec name. Returns 0, false for codecs FLV cannot carry.
func FLVAudioCodecID(a Audio) (int, bool) {
	switch a {
	case AudioAAC:
		return FLVAudioCodecAAC, true
	case AudioMP3:
		return FLVAudioCodecMP3, true
	default:
		return 0, false
	}
}
