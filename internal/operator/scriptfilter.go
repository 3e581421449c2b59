package operator

import (
	"log/slog"

	"github.com/jmylchreest/streamrepair/internal/flv"
)

// ScriptFilter keeps only the first Script tag seen between any two Header
// items, dropping the rest so a later keyframe/metadata filler can own the
// single metadata slot.
type ScriptFilter struct {
	logger      *slog.Logger
	seenScript  bool
	scriptCount uint32
}

// NewScriptFilter creates a ScriptFilter operator. A nil logger falls back
// to slog.Default().
func NewScriptFilter(logger *slog.Logger) *ScriptFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptFilter{logger: logger}
}

// Process implements Operator.
func (s *ScriptFilter) Process(item flv.Item, emit Emit) error {
	switch v := item.(type) {
	case flv.Header:
		s.seenScript = false
		s.scriptCount = 0
		emit(item)
	case flv.Tag:
		if v.IsScript() {
			s.scriptCount++
			if s.seenScript {
				return nil
			}
			s.seenScript = true
		}
		emit(item)
	default:
		emit(item)
	}
	return nil
}

// Finish implements Operator.
func (s *ScriptFilter) Finish(emit Emit) error {
	if s.scriptCount > 1 {
		s.logger.Info("multiple script tags collapsed to one", slog.Uint64("script_count", uint64(s.scriptCount)))
	}
	return nil
}
