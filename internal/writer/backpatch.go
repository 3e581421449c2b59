package writer

import (
	"errors"
	"fmt"
	"os"

	"github.com/jmylchreest/streamrepair/internal/amf0"
	"github.com/jmylchreest/streamrepair/internal/analyzer"
	"github.com/jmylchreest/streamrepair/internal/codec"
	"github.com/jmylchreest/streamrepair/internal/flv"
)

// Errors surfaced by BackpatchFLV.
var (
	ErrScriptTagNotFound = errors.New("writer: no script tag found to back-patch")
	ErrNotOnMetaData     = errors.New("writer: script tag is not an onMetaData object")
	ErrKeyframesNotArray = errors.New("writer: onMetaData keyframes field is not array-shaped")
)

// flvFixedHeaderSize is the 9-byte FLV header plus the 4-byte "previous tag
// size = 0" that always follows it (Adobe FLV v10 §E.2).
const flvFixedHeaderSize = 13

// BackpatchFLV implements C9: once an FLV output file has closed, it
// locates the first script tag (written at offset flvFixedHeaderSize by the
// keyframe filler operator, reserved to a known byte length), re-encodes it
// with the final statistics, and rewrites it in place without changing its
// byte length — so every filepositions[] offset already recorded for later
// tags stays valid.
//
// f must be open for read+write and positioned anywhere; BackpatchFLV reads
// and writes at absolute offsets (ReadAt/WriteAt), so f's offset is left
// unchanged.
func BackpatchFLV(f *os.File, stats analyzer.FLVStats) error {
	tagOffset, reservedLen, payload, err := readFirstScriptTag(f)
	if err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("writer: stat before back-patch: %w", err)
	}

	value, rest, err := amf0.Decode(payload)
	if err != nil {
		return fmt.Errorf("writer: decoding existing script tag payload: %w", err)
	}
	name, ok := value.(string)
	if !ok || name != "onMetaData" {
		return ErrNotOnMetaData
	}

	metaValue, _, err := amf0.Decode(rest)
	if err != nil {
		return fmt.Errorf("writer: decoding onMetaData object: %w", err)
	}
	obj, ok := metaValue.(amf0.Object)
	if !ok {
		return ErrNotOnMetaData
	}
	if _, ok := obj.Get("keyframes"); !ok {
		return ErrKeyframesNotArray
	}

	finalized := finalizeMetadata(obj, stats, info.Size())

	var encoded []byte
	encoded, err = amf0.Encode(encoded, "onMetaData")
	if err != nil {
		return fmt.Errorf("writer: encoding script name: %w", err)
	}
	encoded, err = amf0.Encode(encoded, finalized)
	if err != nil {
		return fmt.Errorf("writer: encoding finalized metadata: %w", err)
	}

	if len(encoded) > reservedLen {
		encoded = truncateKeyframeIndex(finalized, reservedLen)
	}
	if len(encoded) > reservedLen {
		return fmt.Errorf("writer: finalized metadata (%d bytes) does not fit reserved script tag (%d bytes) even after truncation", len(encoded), reservedLen)
	}
	if len(encoded) < reservedLen {
		encoded = padAMF0(encoded, reservedLen-len(encoded))
	}

	if _, err := f.WriteAt(encoded, tagOffset); err != nil {
		return fmt.Errorf("writer: writing back-patched script tag: %w", err)
	}
	return f.Sync()
}

// readFirstScriptTag locates the first script tag after the FLV header and
// returns the absolute file offset of its body (the AMF0 payload) plus the
// body's on-disk length and current bytes.
func readFirstScriptTag(f *os.File) (bodyOffset int64, bodyLen int, body []byte, err error) {
	info, err := f.Stat()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("writer: stat: %w", err)
	}

	offset := int64(flvFixedHeaderSize)
	for offset+flv.TagHeaderSize <= info.Size() {
		hdr := make([]byte, flv.TagHeaderSize)
		if _, err := f.ReadAt(hdr, offset); err != nil {
			return 0, 0, nil, fmt.Errorf("writer: reading tag header at %d: %w", offset, err)
		}
		tagType := flv.TagType(hdr[0])
		size := int(hdr[1])<<16 | int(hdr[2])<<8 | int(hdr[3])

		bodyStart := offset + flv.TagHeaderSize
		if tagType == flv.TagTypeScript {
			buf := make([]byte, size)
			if _, err := f.ReadAt(buf, bodyStart); err != nil {
				return 0, 0, nil, fmt.Errorf("writer: reading script tag body at %d: %w", bodyStart, err)
			}
			return bodyStart, size, buf, nil
		}
		offset = bodyStart + int64(size) + flv.PrevTagSizeSize
	}
	return 0, 0, nil, ErrScriptTagNotFound
}

// finalizeMetadata overwrites the placeholder onMetaData fields in obj with
// the final statistics, keeping every other key (and ordering) untouched.
// sizeBytes is the file's on-disk size as observed right before the
// back-patch rewrite; since BackpatchFLV never changes the file's length,
// that value is also the final filesize.
func finalizeMetadata(obj amf0.Object, stats analyzer.FLVStats, sizeBytes int64) amf0.Object {
	durationMS := stats.DurationMS
	durationSec := float64(durationMS) / 1000.0

	lastTimestamp := stats.LastVideoTimestampMS
	if stats.LastAudioTimestampMS > lastTimestamp {
		lastTimestamp = stats.LastAudioTimestampMS
	}

	var lastKeyframeTimestamp float64
	var lastKeyframeLocation float64
	times := make(amf0.StrictArray, 0, len(stats.Keyframes))
	positions := make(amf0.StrictArray, 0, len(stats.Keyframes))
	for _, kf := range stats.Keyframes {
		times = append(times, float64(kf.TimestampMS)/1000.0)
		positions = append(positions, float64(kf.ByteOffset))
		lastKeyframeTimestamp = float64(kf.TimestampMS) / 1000.0
		lastKeyframeLocation = float64(kf.ByteOffset)
	}

	out := obj
	out = out.Set("duration", durationSec)
	out = out.Set("filesize", float64(sizeBytes))
	out = out.Set("width", float64(stats.Width))
	out = out.Set("height", float64(stats.Height))
	out = out.Set("videocodecid", float64(flvVideoCodecID(stats.VideoCodec)))
	out = out.Set("audiocodecid", float64(flvAudioCodecID(stats.AudioCodec)))
	out = out.Set("lasttimestamp", float64(lastTimestamp)/1000.0)
	out = out.Set("lastkeyframetimestamp", lastKeyframeTimestamp)
	out = out.Set("lastkeyframelocation", lastKeyframeLocation)
	out = out.Set("keyframes", amf0.Object{
		{Key: "times", Value: times},
		{Key: "filepositions", Value: positions},
	})
	return out
}

// truncateKeyframeIndex re-encodes finalized with progressively fewer
// keyframe entries until the result fits within reservedLen, per spec.md
// §4.8 step 4. It always keeps at least zero entries; if even an empty
// index does not fit, the caller reports an error.
func truncateKeyframeIndex(finalized amf0.Object, reservedLen int) []byte {
	kfVal, ok := finalized.Get("keyframes")
	if !ok {
		var encoded []byte
		encoded, _ = amf0.Encode(encoded, "onMetaData")
		encoded, _ = amf0.Encode(encoded, finalized)
		return encoded
	}
	kfObj, ok := kfVal.(amf0.Object)
	if !ok {
		var encoded []byte
		encoded, _ = amf0.Encode(encoded, "onMetaData")
		encoded, _ = amf0.Encode(encoded, finalized)
		return encoded
	}
	timesVal, _ := kfObj.Get("times")
	times, _ := timesVal.(amf0.StrictArray)
	posVal, _ := kfObj.Get("filepositions")
	positions, _ := posVal.(amf0.StrictArray)

	n := len(times)
	if len(positions) < n {
		n = len(positions)
	}

	for ; n >= 0; n-- {
		trimmed := finalized.Set("keyframes", amf0.Object{
			{Key: "times", Value: append(amf0.StrictArray{}, times[:n]...)},
			{Key: "filepositions", Value: append(amf0.StrictArray{}, positions[:n]...)},
		})
		var encoded []byte
		encoded, _ = amf0.Encode(encoded, "onMetaData")
		encoded, _ = amf0.Encode(encoded, trimmed)
		if len(encoded) <= reservedLen {
			return encoded
		}
		if n == 0 {
			return encoded
		}
	}
	panic("unreachable: loop above always returns by n == 0")
}

// padAMF0 appends n bytes of AMF0 Null fillers (0x05 each) after the
// object-end sentinel, preserving every prior byte offset. Null is a
// single-byte AMF0 value, so n filler bytes require exactly n Null values;
// this is safe only because the padding sits after the top-level value a
// reader stops parsing at, never inside the Object itself.
func padAMF0(encoded []byte, n int) []byte {
	if n <= 0 {
		return encoded
	}
	padding := make([]byte, n)
	for i := range padding {
		padding[i] = 0x05 // AMF0 Null marker, a single-byte no-op filler
	}
	return append(encoded, padding...)
}

func flvVideoCodecID(v codec.Video) int {
	switch v {
	case codec.VideoH264:
		return codec.FLVVideoCodecAVC
	default:
		return 0
	}
}

func flvAudioCodecID(a codec.Audio) int {
	switch a {
	case codec.AudioAAC:
		return codec.FLVAudioCodecAAC
	case codec.AudioMP3:
		return codec.FLVAudioCodecMP3
	default:
		return 0
	}
}
