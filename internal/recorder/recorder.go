// Package recorder assembles the per-format acquisition, repair pipeline,
// and writer task into the two end-to-end recording operations the CLI
// exposes: RecordFLV and RecordHLS. Neither format shares an assembly
// function, since their acquisition stages (a raw byte Framer vs. a
// playlist-driven Engine) have nothing in common beyond feeding a
// writer.Task.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmylchreest/streamrepair/internal/config"
	"github.com/jmylchreest/streamrepair/internal/flv"
	"github.com/jmylchreest/streamrepair/internal/operator"
	"github.com/jmylchreest/streamrepair/internal/pipeline"
	"github.com/jmylchreest/streamrepair/internal/source"
	"github.com/jmylchreest/streamrepair/internal/storage"
	"github.com/jmylchreest/streamrepair/internal/writer"
)

// KeyframeConfig tunes the FLV keyframe-index reservation; it is part of
// the recorder's surface rather than config.Config because it depends on
// the writer's own rotation bounds (DurationLimitMS derives from
// WriterConfig.MaxDurationSeconds).
type KeyframeConfig struct {
	KeyframeIntervalMS int64
}

// Options bundles everything a recording run needs beyond the acquisition
// target itself.
type Options struct {
	Config   config.Config
	Keyframe KeyframeConfig
	Logger   *slog.Logger
	Progress writer.OnProgress
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// RecordFLV reads a raw FLV byte stream from opts.Config.Source, runs it
// through the repair pipeline (defragment, header check, script filter,
// timestamp continuity, keyframe filler), and writes bounded output files
// via a writer.Task[flv.Item]. It returns once the source is exhausted, ctx
// is canceled, or an unrecoverable error occurs.
func RecordFLV(ctx context.Context, opts Options) error {
	logger := opts.logger()

	src, err := source.New(opts.Config.Source)
	if err != nil {
		return fmt.Errorf("recorder: creating source: %w", err)
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return fmt.Errorf("recorder: opening source: %w", err)
	}
	defer rc.Close()

	sandbox, err := storage.NewSandbox(opts.Config.Writer.OutputDir)
	if err != nil {
		return fmt.Errorf("recorder: creating output sandbox: %w", err)
	}

	maxDuration := time.Duration(opts.Config.Writer.MaxDurationSeconds) * time.Second
	keyframeCfg := operator.KeyframeFillerConfig{
		DurationLimitMS:    maxDuration.Milliseconds(),
		KeyframeIntervalMS: opts.Keyframe.KeyframeIntervalMS,
	}

	stages := pipeline.New(
		operator.NewDefragment(logger),
		operator.NewHeaderCheck(),
		operator.NewScriptFilter(logger),
		operator.NewTimestamp(opts.Config.Timestamp, operator.ContinuityReset),
		operator.NewKeyframeFiller(keyframeCfg),
	)

	strategy := writer.NewFLVStrategy(writer.FLVStrategyConfig{
		FilenameTemplate: opts.Config.Writer.FilenameTemplate,
		MaxSizeBytes:     opts.Config.Writer.MaxSizeBytes,
		MaxDuration:      maxDuration,
	}, sandbox, logger, writer.TemplateData{})
	task := writer.NewTask[flv.Item](strategy, logger, opts.Progress)

	framer := flv.NewFramer(rc)
	emit := func(item flv.Item) {
		if werr := task.WriteItem(item); werr != nil {
			logger.Error("writing flv item", "error", werr)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			break
		}
		item, err := framer.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = task.Close()
			return fmt.Errorf("recorder: framing flv: %w", err)
		}
		if perr := stages.Process(item, emit); perr != nil {
			_ = task.Close()
			return fmt.Errorf("recorder: pipeline: %w", perr)
		}
	}

	if err := stages.Finish(emit); err != nil {
		_ = task.Close()
		return fmt.Errorf("recorder: pipeline finish: %w", err)
	}
	return task.Close()
}
