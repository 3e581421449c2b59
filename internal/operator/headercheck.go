package operator

import "github.com/jmylchreest/streamrepair/internal/flv"

// HeaderCheck ensures the first item a pipeline emits is a Header, even if
// the upstream source never produced one (e.g. a repaired stream whose
// original header was lost). This implements the synchronous Operator
// interpretation; errors delivered before the first successful item do not
// trigger header synthesis, since Process is never called for them.
type HeaderCheck struct {
	seenFirst bool
}

// NewHeaderCheck creates a HeaderCheck operator.
func NewHeaderCheck() *HeaderCheck {
	return &HeaderCheck{}
}

// Process implements Operator.
func (h *HeaderCheck) Process(item flv.Item, emit Emit) error {
	if !h.seenFirst {
		h.seenFirst = true
		if _, isHeader := item.(flv.Header); !isHeader {
			emit(flv.Header{HasAudio: true, HasVideo: true})
		}
	}
	emit(item)
	return nil
}

// Finish implements Operator.
func (h *HeaderCheck) Finish(emit Emit) error {
	return nil
}
