package writer

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmylchreest/streamrepair/internal/analyzer"
	"github.com/jmylchreest/streamrepair/internal/hls"
	"github.com/jmylchreest/streamrepair/internal/storage"
)

// HLSStrategyConfig configures output naming for an HLSStrategy. HLS never
// rotates on its own bounds (spec.md §4.6): rotation is entirely driven by
// the limiter operator's EndMarker, which AfterItemWritten reports as
// PostWriteAction Rotate.
type HLSStrategyConfig struct {
	FilenameTemplate string
	// FMP4 selects the ".m4s"/init-segment naming convention; false uses
	// ".ts" for raw MPEG-TS output.
	FMP4 bool
}

// HLSStrategy implements Strategy[hls.Item]: it concatenates raw TS
// packets or fMP4 boxes byte-exact, tracks whether the current file has
// received its M4sInit, and rotates on EndMarker.
type HLSStrategy struct {
	cfg     HLSStrategyConfig
	sandbox *storage.Sandbox
	logger  *slog.Logger
	tplData TemplateData

	analyzer        *analyzer.HLSAnalyzer
	initWrittenFile bool
}

// NewHLSStrategy creates an HLSStrategy writing files into sandbox.
func NewHLSStrategy(cfg HLSStrategyConfig, sandbox *storage.Sandbox, logger *slog.Logger, tplData TemplateData) *HLSStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &HLSStrategy{
		cfg:      cfg,
		sandbox:  sandbox,
		logger:   logger,
		tplData:  tplData,
		analyzer: analyzer.NewHLSAnalyzer(),
	}
}

// CreateWriter implements Strategy. path is an absolute path already
// resolved by NextFilePath.
func (s *HLSStrategy) CreateWriter(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	s.analyzer.Reset()
	s.initWrittenFile = false
	return f, nil
}

// ShouldRotateFile implements Strategy: HLS never rotates before a write;
// EndMarker handles rotation via AfterItemWritten instead.
func (s *HLSStrategy) ShouldRotateFile(state *State) bool {
	return false
}

// NextFilePath implements Strategy.
func (s *HLSStrategy) NextFilePath(state *State) (string, error) {
	data := s.tplData
	data.SequenceIndex = state.FileSequenceNumber
	ext := ".ts"
	if s.cfg.FMP4 {
		ext = ".m4s"
	}
	name := ExpandFilenameTemplate(s.cfg.FilenameTemplate, data) + ext
	return s.sandbox.ResolvePath(name)
}

// OnFileOpen implements Strategy: HLS writes no header bytes at open time.
func (s *HLSStrategy) OnFileOpen(f *os.File, path string, state *State) (uint64, error) {
	return 0, nil
}

// OnFileClose implements Strategy: HLS has no in-file metadata block to
// back-patch (unlike FLV); it only flushes and logs final statistics.
func (s *HLSStrategy) OnFileClose(f *os.File, path string, state *State) (uint64, error) {
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("flushing hls output: %w", err)
	}
	stats := s.analyzer.Stats()
	s.logger.Info("hls file finalized",
		"path", path,
		"segments", stats.SegmentCount,
		"duration", stats.Duration,
	)
	return 0, nil
}

// WriteItem implements Strategy. EndMarker writes nothing; it exists only
// to drive rotation (see AfterItemWritten).
func (s *HLSStrategy) WriteItem(f *os.File, item hls.Item, state *State) (uint64, error) {
	switch v := item.(type) {
	case hls.EndMarker:
		return 0, nil

	case hls.M4sInit:
		n, err := f.Write(v.Data)
		if err != nil {
			return uint64(n), err
		}
		s.initWrittenFile = true
		s.analyzer.ObserveInitSegment(v.Data)
		return uint64(n), nil

	case hls.M4sSegment:
		if !s.initWrittenFile {
			return 0, ErrNoInitSegment
		}
		n, err := f.Write(v.Data)
		if err != nil {
			return uint64(n), err
		}
		s.analyzer.ObserveSegment(v.Entry.Duration, nil)
		return uint64(n), nil

	case hls.TsSegment:
		n, err := f.Write(v.Data)
		if err != nil {
			return uint64(n), err
		}
		s.analyzer.ObserveSegment(v.Entry.Duration, v.Data)
		return uint64(n), nil

	default:
		return 0, fmt.Errorf("hls writer: unexpected item type %T", item)
	}
}

// AfterItemWritten implements Strategy: an EndMarker requests rotation;
// every other item keeps the file open. The per-file init-segment tracking
// is reset by CreateWriter when the next file opens.
func (s *HLSStrategy) AfterItemWritten(item hls.Item, bytesWritten uint64, state *State) PostWriteAction {
	if _, ok := item.(hls.EndMarker); ok {
		return Rotate
	}
	return None
}
