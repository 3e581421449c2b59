package hls

import "errors"

// Sentinel errors surfaced at the engine's event boundary.
var (
	ErrPlaylistError    = errors.New("hls: playlist error")
	ErrSegmentFetch     = errors.New("hls: segment fetch error")
	ErrDecryption       = errors.New("hls: decryption error")
	ErrCache            = errors.New("hls: cache error")
	ErrStallTimeout     = errors.New("hls: stall timeout")
	ErrUnsupportedKey   = errors.New("hls: unsupported key method")
	ErrNoVariantMatched = errors.New("hls: no variant matched the selection policy")
)
