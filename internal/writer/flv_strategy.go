package writer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmylchreest/streamrepair/internal/analyzer"
	"github.com/jmylchreest/streamrepair/internal/flv"
	"github.com/jmylchreest/streamrepair/internal/storage"
)

// FLVStrategyConfig configures rotation bounds and output naming for an
// FLVStrategy.
type FLVStrategyConfig struct {
	MaxSizeBytes     int64
	MaxDuration      time.Duration
	FilenameTemplate string
}

// FLVStrategy implements Strategy[flv.Item], the C6 format rules for FLV
// output: it writes the 13-byte header once per file, rotates when a
// mid-file Header arrives or a size/duration bound is crossed, and
// back-patches the reserved script tag on close.
type FLVStrategy struct {
	cfg     FLVStrategyConfig
	sandbox *storage.Sandbox
	logger  *slog.Logger
	tplData TemplateData

	analyzer      *analyzer.FLVAnalyzer
	pendingHeader bool
	headerWritten bool
	scriptOffset  int64

	// lastHeader/reservedScriptTag cache the most recent Header and
	// reserved onMetaData script tag the pipeline produced, so
	// OnFileOpen can re-emit both at the start of every file a
	// bounds-driven rotation opens, not just the first — matching the
	// Rust original's writer_task.rs, which re-emits a fresh header and
	// metadata placeholder for every output segment.
	haveHeader            bool
	lastHeader            flv.Header
	haveReservedScriptTag bool
	reservedScriptTag     flv.Tag
}

// NewFLVStrategy creates an FLVStrategy writing files into sandbox.
func NewFLVStrategy(cfg FLVStrategyConfig, sandbox *storage.Sandbox, logger *slog.Logger, tplData TemplateData) *FLVStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &FLVStrategy{
		cfg:      cfg,
		sandbox:  sandbox,
		logger:   logger,
		tplData:  tplData,
		analyzer: analyzer.NewFLVAnalyzer(),
	}
}

// CreateWriter implements Strategy. path is an absolute path already
// resolved by NextFilePath, so it opens it directly.
func (s *FLVStrategy) CreateWriter(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	s.analyzer.Reset()
	s.headerWritten = false
	s.pendingHeader = false
	s.scriptOffset = 0
	return f, nil
}

// ShouldRotateFile implements Strategy. A mid-file Header observed by
// WriteItem sets pendingHeader; the next tag triggers rotation, matching
// spec.md §4.6's "subsequent headers arriving mid-file set a pending_header
// flag and cause should_rotate_file to return true at the next tag". It also
// checks the size/duration bounds before the next item is written, so a
// bound is never exceeded by even one extra tag.
func (s *FLVStrategy) ShouldRotateFile(state *State) bool {
	if s.pendingHeader {
		return true
	}
	if s.cfg.MaxSizeBytes > 0 && int64(state.BytesWrittenCurrentFile) >= s.cfg.MaxSizeBytes {
		return true
	}
	stats := s.analyzer.Stats()
	if s.cfg.MaxDuration > 0 && time.Duration(stats.DurationMS)*time.Millisecond >= s.cfg.MaxDuration {
		return true
	}
	return false
}

// NextFilePath implements Strategy: it expands the configured filename
// template with the current file sequence number, appends ".flv", and
// resolves it to an absolute path within the strategy's sandbox.
func (s *FLVStrategy) NextFilePath(state *State) (string, error) {
	data := s.tplData
	data.SequenceIndex = state.FileSequenceNumber
	name := ExpandFilenameTemplate(s.cfg.FilenameTemplate, data) + ".flv"
	return s.sandbox.ResolvePath(name)
}

// OnFileOpen implements Strategy. The very first file gets its header and
// reserved script tag from WriteItem, once the pipeline's initial Header and
// onMetaData tag arrive. Every file after that is opened mid-stream by a
// bounds-driven rotation, with no Header item coming back around the
// pipeline — so OnFileOpen re-emits the last Header and reserved script tag
// it cached, keeping every rotated file independently valid, patchable FLV.
func (s *FLVStrategy) OnFileOpen(f *os.File, path string, state *State) (uint64, error) {
	if !s.haveHeader {
		return 0, nil
	}

	headerBuf := flv.EncodeHeader(s.lastHeader)
	n, err := f.Write(headerBuf)
	total := uint64(n)
	if err != nil {
		return total, err
	}
	s.headerWritten = true

	if !s.haveReservedScriptTag {
		return total, nil
	}

	scriptOffset := int64(n)
	tagBuf := flv.EncodeTag(s.reservedScriptTag)
	n2, err := f.Write(tagBuf)
	total += uint64(n2)
	if err != nil {
		return total, err
	}
	s.scriptOffset = scriptOffset
	s.analyzer.Observe(s.reservedScriptTag, scriptOffset)
	return total, nil
}

// OnFileClose implements Strategy: it flushes and, if a script tag was
// reserved in this file, back-patches it with final statistics.
func (s *FLVStrategy) OnFileClose(f *os.File, path string, state *State) (uint64, error) {
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("flushing before back-patch: %w", err)
	}

	stats := s.analyzer.Stats()
	if s.scriptOffset == 0 {
		// No script tag was ever observed in this file; nothing to patch.
		return 0, nil
	}

	if err := BackpatchFLV(f, stats); err != nil {
		return 0, fmt.Errorf("back-patching %s: %w", filepath.Base(path), err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat after back-patch: %w", err)
	}
	s.logger.Info("flv file finalized",
		"path", path,
		"duration_ms", stats.DurationMS,
		"size_bytes", info.Size(),
		"keyframes", len(stats.Keyframes),
	)
	return 0, nil
}

// WriteItem implements Strategy.
func (s *FLVStrategy) WriteItem(f *os.File, item flv.Item, state *State) (uint64, error) {
	switch v := item.(type) {
	case flv.Header:
		s.haveHeader = true
		s.lastHeader = v
		if s.headerWritten {
			s.pendingHeader = true
			return 0, nil
		}
		buf := flv.EncodeHeader(v)
		n, err := f.Write(buf)
		s.headerWritten = true
		return uint64(n), err

	case flv.Tag:
		s.pendingHeader = false
		offset := int64(state.BytesWrittenCurrentFile)

		if v.Type == flv.TagTypeScript && s.scriptOffset == 0 {
			s.scriptOffset = offset
			s.haveReservedScriptTag = true
			s.reservedScriptTag = v
		}

		buf := flv.EncodeTag(v)
		n, err := f.Write(buf)
		if err != nil {
			return uint64(n), err
		}
		s.analyzer.Observe(v, offset)
		return uint64(n), nil

	default:
		return 0, fmt.Errorf("flv writer: unexpected item type %T", item)
	}
}

// AfterItemWritten implements Strategy: FLV's size/duration bounds are
// enforced pre-write by ShouldRotateFile, so no post-write rotation is ever
// requested here.
func (s *FLVStrategy) AfterItemWritten(item flv.Item, bytesWritten uint64, state *State) PostWriteAction {
	return None
}
