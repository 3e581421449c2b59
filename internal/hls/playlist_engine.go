package hls

import (
	"fmt"
	"time"
)

// PlaylistState is one of the playlist engine's states.
type PlaylistState int

const (
	FetchingInitial PlaylistState = iota
	SelectingVariant
	MonitoringMedia
	Ended
)

func (s PlaylistState) String() string {
	switch s {
	case FetchingInitial:
		return "FetchingInitial"
	case SelectingVariant:
		return "SelectingVariant"
	case MonitoringMedia:
		return "MonitoringMedia"
	case Ended:
		return "Ended"
	default:
		return fmt.Sprintf("PlaylistState(%d)", int(s))
	}
}

// PlaylistEngineConfig tunes refresh cadence and retry budget.
type PlaylistEngineConfig struct {
	LiveRefreshInterval   time.Duration
	LiveMaxRefreshRetries int
	VariantPolicy         VariantPolicy
}

// PlaylistEngine drives the FetchingInitial -> SelectingVariant ->
// MonitoringMedia -> Ended state machine and tracks which media sequence
// numbers have already been scheduled, so each is enqueued at most once.
type PlaylistEngine struct {
	cfg   PlaylistEngineConfig
	state PlaylistState

	scheduled     map[uint64]bool
	refreshErrors int
}

// NewPlaylistEngine creates a PlaylistEngine starting in FetchingInitial.
func NewPlaylistEngine(cfg PlaylistEngineConfig) *PlaylistEngine {
	return &PlaylistEngine{
		cfg:       cfg,
		state:     FetchingInitial,
		scheduled: make(map[uint64]bool),
	}
}

// State returns the engine's current state.
func (e *PlaylistEngine) State() PlaylistState { return e.state }

// HandleMasterPlaylist transitions FetchingInitial -> SelectingVariant,
// selects a variant per the configured policy, moves on to MonitoringMedia,
// and returns the variant's URI to fetch next. If no variant matches it
// returns the error and stays in SelectingVariant.
func (e *PlaylistEngine) HandleMasterPlaylist(variants []VariantInfo) (string, error) {
	if e.state != FetchingInitial {
		return "", fmt.Errorf("hls: HandleMasterPlaylist called in state %s", e.state)
	}
	e.state = SelectingVariant

	chosen, err := SelectVariant(variants, e.cfg.VariantPolicy)
	if err != nil {
		return "", err
	}
	e.state = MonitoringMedia
	return chosen.URI, nil
}

// HandleMediaPlaylist transitions (FetchingInitial or SelectingVariant) ->
// MonitoringMedia on first call, and returns the SegmentJobs for every
// segment whose media sequence has not yet been scheduled. It also reports
// whether the stream has ended (EXT-X-ENDLIST with everything scheduled).
func (e *PlaylistEngine) HandleMediaPlaylist(info *MediaPlaylistInfo) (jobs []SegmentJob, ended bool) {
	if e.state == FetchingInitial || e.state == SelectingVariant {
		e.state = MonitoringMedia
	}
	e.refreshErrors = 0

	for _, seg := range info.Segments {
		if e.scheduled[seg.MediaSequence] {
			continue
		}
		e.scheduled[seg.MediaSequence] = true
		jobs = append(jobs, SegmentJob{
			URI:           seg.URI,
			MediaSequence: seg.MediaSequence,
			Duration:      seg.Duration,
			Key:           seg.Key,
			ByteRange:     seg.ByteRange,
			Discontinuity: seg.Discontinuity,
		})
	}

	if info.EndList && e.allScheduledThrough(info) {
		e.state = Ended
		ended = true
	}
	return jobs, ended
}

func (e *PlaylistEngine) allScheduledThrough(info *MediaPlaylistInfo) bool {
	for _, seg := range info.Segments {
		if !e.scheduled[seg.MediaSequence] {
			return false
		}
	}
	return true
}

// HandleRefreshError records a failed playlist refresh, returning
// ErrPlaylistError once the retry budget is exhausted.
func (e *PlaylistEngine) HandleRefreshError() error {
	e.refreshErrors++
	if e.refreshErrors > e.cfg.LiveMaxRefreshRetries {
		return ErrPlaylistError
	}
	return nil
}

// Shutdown forces the engine into Ended, as if a shutdown signal had been
// received mid-monitoring.
func (e *PlaylistEngine) Shutdown() {
	e.state = Ended
}

// RefreshInterval returns the configured refresh interval, bounded below by
// targetDuration/2 for live playlists per the engine's monitoring protocol.
func (e *PlaylistEngine) RefreshInterval(targetDuration time.Duration) time.Duration {
	floor := targetDuration / 2
	if e.cfg.LiveRefreshInterval > floor {
		return e.cfg.LiveRefreshInterval
	}
	return floor
}
