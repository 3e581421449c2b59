package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// AVCDecoderConfigRecordResolution extracts the coded video resolution from
// an AVCDecoderConfigurationRecord (the payload of an FLV/fMP4 AVC sequence
// header), by locating the first SPS NAL unit and parsing it with
// mediacommon's h264.SPS.
func AVCDecoderConfigRecordResolution(record []byte) (width, height int, err error) {
	sps, err := firstSPSFromAVCConfig(record)
	if err != nil {
		return 0, 0, err
	}

	var parsed h264.SPS
	if err := parsed.Unmarshal(sps); err != nil {
		return 0, 0, fmt.Errorf("codec: parsing SPS: %w", err)
	}
	return parsed.Width(), parsed.Height(), nil
}

// firstSPSFromAVCConfig walks an AVCDecoderConfigurationRecord (ISO/IEC
// 14496-15 §5.2.4.1) and returns the raw bytes of its first SPS NAL unit.
func firstSPSFromAVCConfig(record []byte) ([]byte, error) {
	if len(record) < 6 {
		return nil, fmt.Errorf("codec: AVCDecoderConfigurationRecord too short")
	}
	numSPS := int(record[5] & 0x1F)
	if numSPS == 0 {
		return nil, fmt.Errorf("codec: AVCDecoderConfigurationRecord has no SPS entries")
	}

	pos := 6
	if len(record) < pos+2 {
		return nil, fmt.Errorf("codec: AVCDecoderConfigurationRecord truncated before SPS length")
	}
	spsLen := int(binary.BigEndian.Uint16(record[pos : pos+2]))
	pos += 2
	if len(record) < pos+spsLen || spsLen == 0 {
		return nil, fmt.Errorf("codec: AVCDecoderConfigurationRecord truncated SPS")
	}
	return record[pos : pos+spsLen], nil
}
