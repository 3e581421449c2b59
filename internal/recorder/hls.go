package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/streamrepair/internal/hls"
	"github.com/jmylchreest/streamrepair/internal/storage"
	"github.com/jmylchreest/streamrepair/internal/writer"
	"github.com/jmylchreest/streamrepair/pkg/httpclient"
)

// HLSOptions extends Options with the HLS-specific acquisition surface: a
// playlist URL and variant selection policy, neither of which has an FLV
// analog.
type HLSOptions struct {
	Options
	PlaylistURL   string
	VariantPolicy hls.VariantPolicy
	FMP4          bool
}

// RecordHLS runs the acquisition engine against opts.PlaylistURL, bounds
// its segments through the limiter operator, and writes bounded output
// files via a writer.Task[hls.Item]. It returns once the engine's event
// channel closes or ctx is canceled.
func RecordHLS(ctx context.Context, opts HLSOptions) error {
	logger := opts.logger()

	sandbox, err := storage.NewSandbox(opts.Config.Writer.OutputDir)
	if err != nil {
		return fmt.Errorf("recorder: creating output sandbox: %w", err)
	}

	client := httpclient.NewWithDefaults()
	fetcher := hls.NewFetcher(client, hls.DefaultFetcherConfig())
	processor := hls.NewProcessor(fetcher, time.Duration(opts.Config.HLS.SegmentCacheTTLSeconds)*time.Second)

	engineCfg := hls.EngineConfig{
		PlaylistURL: opts.PlaylistURL,
		Playlist: hls.PlaylistEngineConfig{
			LiveRefreshInterval:   time.Duration(opts.Config.HLS.PlaylistRefreshIntervalSeconds) * time.Second,
			LiveMaxRefreshRetries: 3,
			VariantPolicy:         opts.VariantPolicy,
		},
		OutputManager: hls.OutputManagerConfig{
			StallTimeout: time.Duration(opts.Config.HLS.StallTimeoutSeconds) * time.Second,
		},
		MaxConcurrent: opts.Config.HLS.MaxConcurrentFetches,
	}
	engine := hls.NewEngine(engineCfg, fetcher, processor, logger)

	events, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("recorder: starting hls engine: %w", err)
	}

	limiter := hls.NewLimiter(hls.LimiterConfig{
		MaxSizeBytes: opts.Config.Writer.MaxSizeBytes,
		MaxDuration:  time.Duration(opts.Config.Writer.MaxDurationSeconds) * time.Second,
	})

	strategy := writer.NewHLSStrategy(writer.HLSStrategyConfig{
		FilenameTemplate: opts.Config.Writer.FilenameTemplate,
		FMP4:             opts.FMP4,
	}, sandbox, logger, writer.TemplateData{})
	task := writer.NewTask[hls.Item](strategy, logger, opts.Progress)

	emit := func(item hls.Item) {
		if err := task.WriteItem(item); err != nil {
			logger.Error("writing hls item", "error", err)
		}
	}

	for ev := range events {
		switch v := ev.(type) {
		case hls.EventData:
			limiter.Process(v.Item, emit)
		case hls.EventDiscontinuity:
			logger.Warn("hls discontinuity", "media_sequence", v.MediaSequence)
		case hls.EventPlaylistRefreshed:
			logger.Debug("hls playlist refreshed", "media_sequence_base", v.MediaSequenceBase)
		case hls.EventStreamEnded:
			logger.Info("hls stream ended")
		}
	}

	return task.Close()
}
