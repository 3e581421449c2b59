package hls

import "time"

// LimiterConfig bounds the output segments the limiter composes from many
// HLS segments.
type LimiterConfig struct {
	MaxSizeBytes int64
	MaxDuration  time.Duration
}

// Limiter enforces bounded output segments composed of many HLS segments,
// emitting EndMarker whenever a new segment would exceed either bound.
type Limiter struct {
	cfg LimiterConfig

	currentSize     int64
	currentDuration time.Duration
	initSegment     *M4sInit
	initSentInFile  bool
}

// NewLimiter creates a Limiter bounded by the given config.
func NewLimiter(cfg LimiterConfig) *Limiter {
	return &Limiter{cfg: cfg}
}

// Process applies the limiter policy to one item, emitting zero or more
// items via emit (an EndMarker, a re-emitted cached init segment, and/or the
// item itself).
func (l *Limiter) Process(item Item, emit func(Item)) {
	switch v := item.(type) {
	case M4sInit:
		if l.initSegment == nil {
			cached := v
			l.initSegment = &cached
		}
		l.initSentInFile = true
		emit(item)

	case EndMarker:
		l.resetCounters()
		emit(item)

	case TsSegment:
		l.applyLimit(item, v.Entry.Duration, int64(len(v.Data)), emit)

	case M4sSegment:
		l.applyLimit(item, v.Entry.Duration, int64(len(v.Data)), emit)
	}
}

func (l *Limiter) applyLimit(item Item, dur time.Duration, size int64, emit func(Item)) {
	wouldExceedSize := l.cfg.MaxSizeBytes > 0 && l.currentSize+size > l.cfg.MaxSizeBytes
	wouldExceedDuration := l.cfg.MaxDuration > 0 && l.currentDuration+dur > l.cfg.MaxDuration

	if wouldExceedSize || wouldExceedDuration {
		emit(EndMarker{})
		l.resetCounters()
	}

	if _, isM4s := item.(M4sSegment); isM4s && !l.initSentInFile && l.initSegment != nil {
		emit(*l.initSegment)
		l.initSentInFile = true
	}

	emit(item)
	l.currentSize += size
	l.currentDuration += dur
}

func (l *Limiter) resetCounters() {
	l.currentSize = 0
	l.currentDuration = 0
	l.initSentInFile = false
}
