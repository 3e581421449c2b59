package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/streamrepair/internal/hls"
	"github.com/jmylchreest/streamrepair/internal/recorder"
	"github.com/jmylchreest/streamrepair/internal/urlutil"
	"github.com/jmylchreest/streamrepair/internal/writer"
	"github.com/jmylchreest/streamrepair/pkg/bytesize"
	"github.com/jmylchreest/streamrepair/pkg/duration"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	recordFormat      string
	recordOutputDir   string
	recordMaxSize     string
	recordMaxDuration string
	recordFMP4        bool
)

// recordCmd wires a Source URL/path and the writer's rotation bounds into
// the library's two recording entry points. Argument-parsing edge cases,
// validation UX, and progress-bar rendering are intentionally out of scope
// (spec.md §1 Non-goals); this command only plumbs flags into Options.
var recordCmd = &cobra.Command{
	Use:   "record <url-or-path>",
	Short: "Record a live FLV or HLS stream to disk",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordFormat, "format", "flv", "stream format: flv or hls")
	recordCmd.Flags().StringVar(&recordOutputDir, "output-dir", ".", "directory to write recorded files into")
	recordCmd.Flags().StringVar(&recordMaxSize, "max-size", "", "rotate output once it exceeds this size, e.g. \"500MB\" (empty disables)")
	recordCmd.Flags().StringVar(&recordMaxDuration, "max-duration", "", "rotate output once it exceeds this duration, e.g. \"10m\" (empty disables)")
	recordCmd.Flags().BoolVar(&recordFMP4, "fmp4", false, "treat HLS segments as fMP4 (.m4s) rather than raw MPEG-TS")
	rootCmd.AddCommand(recordCmd)

	viper.SetDefault("writer.output_dir", ".")
}

func runRecord(_ *cobra.Command, args []string) error {
	target := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	cfg.Writer.OutputDir = recordOutputDir
	if recordMaxSize != "" {
		size, err := bytesize.Parse(recordMaxSize)
		if err != nil {
			return fmt.Errorf("parsing --max-size: %w", err)
		}
		cfg.Writer.MaxSizeBytes = int64(size)
	}
	if recordMaxDuration != "" {
		d, err := duration.Parse(recordMaxDuration)
		if err != nil {
			return fmt.Errorf("parsing --max-duration: %w", err)
		}
		cfg.Writer.MaxDurationSeconds = int64(d.Seconds())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := recorder.Options{
		Config: cfg,
		Keyframe: recorder.KeyframeConfig{
			KeyframeIntervalMS: 2000,
		},
		Logger: logger,
		Progress: func(ev writer.ProgressEvent) {
			logger.Info("recorded file",
				"path", ev.Path,
				"size", bytesize.Size(ev.BytesWritten).String(),
				"items", ev.ItemsWritten,
				"rate", bytesize.Size(ev.BytesPerSecond).String()+"/s",
			)
		},
	}

	switch recordFormat {
	case "flv":
		cfg.Source.URL = target
		opts.Config = cfg
		return recorder.RecordFLV(ctx, opts)

	case "hls":
		if !urlutil.IsRemoteURL(target) {
			return fmt.Errorf("hls recording requires an http(s) playlist URL, got %q", target)
		}
		return recorder.RecordHLS(ctx, recorder.HLSOptions{
			Options:       opts,
			PlaylistURL:   target,
			VariantPolicy: hls.VariantPolicy{Kind: hls.HighestBitrate},
			FMP4:          recordFMP4,
		})

	default:
		return fmt.Errorf("unknown format %q: must be flv or hls", recordFormat)
	}
}
