package hls

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grafov/m3u8"
)

// EngineConfig parameterizes one run of the acquisition engine.
type EngineConfig struct {
	PlaylistURL   string
	Playlist      PlaylistEngineConfig
	OutputManager OutputManagerConfig
	MaxConcurrent int
}

// adaptedFetcher composes the raw Fetcher and the decryption Processor into
// the single FetchAndDecrypt call the Scheduler expects.
type adaptedFetcher struct {
	fetcher   *Fetcher
	processor *Processor
}

func (a *adaptedFetcher) FetchAndDecrypt(ctx context.Context, job SegmentJob) ([]byte, error) {
	raw, err := a.fetcher.Fetch(ctx, job.URI, job.ByteRange)
	if err != nil {
		return nil, err
	}
	return a.processor.Decrypt(ctx, raw, job.Key, job.MediaSequence)
}

// Engine wires the playlist engine, scheduler, processor, and output
// manager together, refreshing a live media playlist and delivering
// processed segments in order over the channel Run returns.
type Engine struct {
	cfg       EngineConfig
	fetcher   *Fetcher
	processor *Processor
	logger    *slog.Logger

	playlist  *PlaylistEngine
	scheduler *Scheduler
	output    *OutputManager
	mediaURL  string
}

// NewEngine creates an Engine. fetcher retrieves playlist and segment
// bytes; processor decrypts AES-128 segments.
func NewEngine(cfg EngineConfig, fetcher *Fetcher, processor *Processor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Engine{
		cfg:       cfg,
		fetcher:   fetcher,
		processor: processor,
		logger:    logger,
		playlist:  NewPlaylistEngine(cfg.Playlist),
	}
}

// Run starts acquisition and returns a channel of Events. The channel is
// closed after EventStreamEnded is sent or ctx is canceled.
func (e *Engine) Run(ctx context.Context) (<-chan Event, error) {
	data, err := e.fetcher.Fetch(ctx, e.cfg.PlaylistURL, "")
	if err != nil {
		return nil, fmt.Errorf("%w: fetching initial playlist: %v", ErrPlaylistError, err)
	}

	isMaster, err := classifyPlaylist(data)
	if err != nil {
		return nil, err
	}

	e.mediaURL = e.cfg.PlaylistURL
	if isMaster {
		variants, err := ParseMasterPlaylist(data)
		if err != nil {
			return nil, err
		}
		mediaRef, err := e.playlist.HandleMasterPlaylist(variants)
		if err != nil {
			return nil, err
		}
		e.mediaURL = resolveURI(e.cfg.PlaylistURL, mediaRef)
		data, err = e.fetcher.Fetch(ctx, e.mediaURL, "")
		if err != nil {
			return nil, fmt.Errorf("%w: fetching selected variant: %v", ErrPlaylistError, err)
		}
	}

	info, err := ParseMediaPlaylist(data, e.mediaURL)
	if err != nil {
		return nil, err
	}

	e.output = NewOutputManager(e.cfg.OutputManager, info.MediaSequenceBase)
	e.scheduler = NewScheduler(&adaptedFetcher{fetcher: e.fetcher, processor: e.processor}, e.cfg.MaxConcurrent)

	events := make(chan Event)
	go e.run(ctx, info, events)
	return events, nil
}

func (e *Engine) run(ctx context.Context, info *MediaPlaylistInfo, events chan<- Event) {
	defer close(events)

	// A dedicated consumer drains scheduler results as they complete,
	// independent of playlist refresh timing, since the scheduler does not
	// preserve submission order.
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for result := range e.scheduler.Results {
			e.deliver(result, events)
		}
	}()

	jobs, ended := e.playlist.HandleMediaPlaylist(info)
	e.submit(ctx, jobs)

	targetDuration := secondsToDuration(info.TargetDurationSeconds)

	for !ended {
		interval := e.playlist.RefreshInterval(targetDuration)
		select {
		case <-ctx.Done():
			ended = true
		case <-time.After(interval):
		}
		if ended {
			break
		}

		data, err := e.fetcher.Fetch(ctx, e.mediaURL, "")
		if err != nil {
			if budgetErr := e.playlist.HandleRefreshError(); budgetErr != nil {
				e.logger.Error("playlist refresh retry budget exhausted", "error", budgetErr)
				break
			}
			continue
		}

		refreshed, err := ParseMediaPlaylist(data, e.mediaURL)
		if err != nil {
			e.logger.Warn("discarding unparseable playlist refresh", "error", err)
			continue
		}
		targetDuration = secondsToDuration(refreshed.TargetDurationSeconds)

		events <- EventPlaylistRefreshed{
			MediaSequenceBase: refreshed.MediaSequenceBase,
			TargetDuration:    targetDuration,
		}

		var newJobs []SegmentJob
		newJobs, ended = e.playlist.HandleMediaPlaylist(refreshed)
		e.submit(ctx, newJobs)
	}

	e.playlist.Shutdown()
	e.scheduler.Wait()
	<-consumerDone

	for _, ev := range e.output.Shutdown() {
		events <- ev
	}
}

func (e *Engine) submit(ctx context.Context, jobs []SegmentJob) {
	for _, job := range jobs {
		if err := e.scheduler.Submit(ctx, job); err != nil {
			e.logger.Error("failed to submit segment job", "uri", job.URI, "error", err)
		}
	}
}

func (e *Engine) deliver(result ProcessedSegment, events chan<- Event) {
	if result.Err != nil {
		e.logger.Error("segment processing failed", "sequence", result.Job.MediaSequence, "error", result.Err)
		return
	}
	for _, ev := range e.output.Push(result.Job.MediaSequence, result.Item, result.Job.Discontinuity, result.Job.Duration) {
		events <- ev
	}
}

func classifyPlaylist(data []byte) (isMaster bool, err error) {
	_, listType, err := m3u8.Decode(*bytes.NewBuffer(data), true)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPlaylistError, err)
	}
	return listType == m3u8.MASTER, nil
}
