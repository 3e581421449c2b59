// Package pipeline chains repair operators together with explicit
// per-stage buffering, so that an operator emitting many items per input
// is fully drained through every downstream stage before the next input
// item is processed.
package pipeline

import (
	"fmt"

	"github.com/jmylchreest/streamrepair/internal/flv"
	"github.com/jmylchreest/streamrepair/internal/operator"
)

// Pipeline is a finite ordered chain of operators.
type Pipeline struct {
	stages []operator.Operator
}

// New creates a Pipeline running stages in the given order.
func New(stages ...operator.Operator) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process flows item through stage 1, collects everything it emits, flows
// each of those through stage 2, and so on; whatever the final stage emits
// is passed to emit. An error from any stage halts the pipeline and is
// returned without calling emit for that item's remaining stages.
func (p *Pipeline) Process(item flv.Item, emit operator.Emit) error {
	buffer := []flv.Item{item}

	for stageIdx, stage := range p.stages {
		var next []flv.Item
		collect := func(i flv.Item) { next = append(next, i) }

		for _, in := range buffer {
			if err := stage.Process(in, collect); err != nil {
				return fmt.Errorf("pipeline stage %d: %w", stageIdx, err)
			}
		}
		buffer = next
	}

	for _, out := range buffer {
		emit(out)
	}
	return nil
}

// Finish calls Finish on every stage in order. Items a stage's Finish
// produces are fed through every downstream stage's Process before that
// downstream stage's own Finish runs, matching the ordering guarantee that
// finish-phase output still traverses the full remaining chain. An error
// from any stage halts the sweep; remaining stages' Finish are not called.
func (p *Pipeline) Finish(emit operator.Emit) error {
	var pending []flv.Item

	for stageIdx, stage := range p.stages {
		var afterProcess []flv.Item
		collect := func(i flv.Item) { afterProcess = append(afterProcess, i) }

		for _, in := range pending {
			if err := stage.Process(in, collect); err != nil {
				return fmt.Errorf("pipeline stage %d (draining finish backlog): %w", stageIdx, err)
			}
		}

		var finishOut []flv.Item
		collectFinish := func(i flv.Item) { finishOut = append(finishOut, i) }
		if err := stage.Finish(collectFinish); err != nil {
			return fmt.Errorf("pipeline stage %d: %w", stageIdx, err)
		}

		pending = append(afterProcess, finishOut...)
	}

	for _, out := range pending {
		emit(out)
	}
	return nil
}
