// Package operator implements the stateful, single-producer/single-consumer
// repair stages that a Pipeline chains together: each Operator owns private
// mutable state and is inserted into exactly one pipeline, which transfers
// ownership of that state to the chain.
package operator

import (
	"errors"

	"github.com/jmylchreest/streamrepair/internal/flv"
)

// Emit is the caller-supplied sink an Operator feeds zero, one, or many
// items into per call to Process or Finish.
type Emit func(flv.Item)

// Operator is the shared interface every repair stage implements.
type Operator interface {
	// Process handles one input item, emitting zero or more items via emit.
	Process(item flv.Item, emit Emit) error
	// Finish is called exactly once after the input stream ends. Items it
	// emits flow through every subsequent operator's Process and Finish.
	Finish(emit Emit) error
}

// ErrUnexpectedItemType is returned by an operator that received an Item
// implementation it does not recognize.
var ErrUnexpectedItemType = errors.New("operator: unexpected item type")
