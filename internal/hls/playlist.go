package hls

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"github.com/grafov/m3u8"
)

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// VariantInfo describes one variant stream listed in a master playlist.
type VariantInfo struct {
	URI        string
	Bandwidth  uint32
	Codecs     string
	Width      int
	Height     int
	AudioOnly  bool
	IsIframe   bool
}

// VariantPolicyKind selects how SelectVariant chooses among the variants
// ParseMasterPlaylist returns.
type VariantPolicyKind int

const (
	HighestBitrate VariantPolicyKind = iota
	LowestBitrate
	ClosestToBitrate
	AudioOnly
	VideoOnly
	MatchingResolution
)

// VariantPolicy parameterizes variant selection for policies that need a
// target value (ClosestToBitrate, MatchingResolution).
type VariantPolicy struct {
	Kind          VariantPolicyKind
	TargetBitrate uint32
	Width, Height int
}

// SelectVariant applies policy to a list of variants parsed from a master
// playlist, returning ErrNoVariantMatched if the list is empty or no
// variant satisfies a selective policy (AudioOnly/VideoOnly/MatchingResolution).
func SelectVariant(variants []VariantInfo, policy VariantPolicy) (VariantInfo, error) {
	if len(variants) == 0 {
		return VariantInfo{}, ErrNoVariantMatched
	}

	switch policy.Kind {
	case HighestBitrate:
		best := variants[0]
		for _, v := range variants[1:] {
			if v.Bandwidth > best.Bandwidth {
				best = v
			}
		}
		return best, nil

	case LowestBitrate:
		best := variants[0]
		for _, v := range variants[1:] {
			if v.Bandwidth < best.Bandwidth {
				best = v
			}
		}
		return best, nil

	case ClosestToBitrate:
		best := variants[0]
		bestDelta := bitrateDelta(best.Bandwidth, policy.TargetBitrate)
		for _, v := range variants[1:] {
			if d := bitrateDelta(v.Bandwidth, policy.TargetBitrate); d < bestDelta {
				best, bestDelta = v, d
			}
		}
		return best, nil

	case AudioOnly:
		for _, v := range variants {
			if v.AudioOnly {
				return v, nil
			}
		}
		return VariantInfo{}, ErrNoVariantMatched

	case VideoOnly:
		for _, v := range variants {
			if !v.AudioOnly {
				return v, nil
			}
		}
		return VariantInfo{}, ErrNoVariantMatched

	case MatchingResolution:
		for _, v := range variants {
			if v.Width == policy.Width && v.Height == policy.Height {
				return v, nil
			}
		}
		return VariantInfo{}, ErrNoVariantMatched

	default:
		return VariantInfo{}, fmt.Errorf("hls: unknown variant policy %d", policy.Kind)
	}
}

func bitrateDelta(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// ParseMasterPlaylist extracts variant stream information from a master
// playlist's raw bytes.
func ParseMasterPlaylist(data []byte) ([]VariantInfo, error) {
	playlist, listType, err := m3u8.Decode(*bytes.NewBuffer(data), true)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding master playlist: %v", ErrPlaylistError, err)
	}
	if listType != m3u8.MASTER {
		return nil, fmt.Errorf("%w: not a master playlist", ErrPlaylistError)
	}

	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected playlist type from decoder", ErrPlaylistError)
	}

	variants := make([]VariantInfo, 0, len(master.Variants))
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		w, h := 0, 0
		fmt.Sscanf(v.Resolution, "%dx%d", &w, &h)
		variants = append(variants, VariantInfo{
			URI:       v.URI,
			Bandwidth: v.Bandwidth,
			Codecs:    v.Codecs,
			Width:     w,
			Height:    h,
			AudioOnly: v.Video == "" && v.Audio != "" && w == 0 && h == 0,
			IsIframe:  v.Iframe,
		})
	}
	return variants, nil
}

// MediaPlaylistKey mirrors an EXT-X-KEY tag.
type MediaPlaylistKey struct {
	Method string // "NONE", "AES-128", or others (unsupported)
	URI    string
	IV     string // hex string with leading 0x, or empty
}

// MediaSegmentInfo is one EXTINF-delimited segment entry.
type MediaSegmentInfo struct {
	PlaylistEntry
	URI       string
	Key       *MediaPlaylistKey
	IsInit    bool
	ByteRange string
}

// MediaPlaylistInfo is the engine's view of a parsed media playlist.
type MediaPlaylistInfo struct {
	TargetDurationSeconds float64
	MediaSequenceBase     uint64
	EndList               bool
	Segments              []MediaSegmentInfo
	InitSegmentURI        string
}

// ParseMediaPlaylist extracts segment information from a media playlist's
// raw bytes, resolving relative URIs against baseURL.
func ParseMediaPlaylist(data []byte, baseURL string) (*MediaPlaylistInfo, error) {
	playlist, listType, err := m3u8.Decode(*bytes.NewBuffer(data), true)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding media playlist: %v", ErrPlaylistError, err)
	}
	if listType != m3u8.MEDIA {
		return nil, fmt.Errorf("%w: not a media playlist", ErrPlaylistError)
	}

	media, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected playlist type from decoder", ErrPlaylistError)
	}

	info := &MediaPlaylistInfo{
		TargetDurationSeconds: media.TargetDuration,
		MediaSequenceBase:     media.SeqNo,
		EndList:               media.Closed,
	}

	if media.Map != nil {
		info.InitSegmentURI = resolveURI(baseURL, media.Map.URI)
	}

	seq := media.SeqNo
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		entry := MediaSegmentInfo{
			PlaylistEntry: PlaylistEntry{
				MediaSequence: seq,
				Duration:      secondsToDuration(seg.Duration),
				Discontinuity: seg.Discontinuity,
			},
			URI: resolveURI(baseURL, seg.URI),
		}
		if seg.Key != nil && seg.Key.Method != "" && seg.Key.Method != "NONE" {
			entry.Key = &MediaPlaylistKey{
				Method: seg.Key.Method,
				URI:    resolveURI(baseURL, seg.Key.URI),
				IV:     seg.Key.IV,
			}
		}
		if seg.Limit > 0 {
			entry.ByteRange = fmt.Sprintf("%d-%d", seg.Offset, seg.Offset+seg.Limit-1)
		}
		info.Segments = append(info.Segments, entry)
		seq++
	}

	return info, nil
}

// resolveURI resolves ref against base; if ref is already absolute, or base
// fails to parse, ref is returned unchanged.
func resolveURI(base, ref string) string {
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
