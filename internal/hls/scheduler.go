package hls

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// SegmentJob describes one segment (or init segment) the scheduler must
// fetch and process.
type SegmentJob struct {
	URI           string
	MediaSequence uint64
	Duration      time.Duration
	Key           *MediaPlaylistKey
	ByteRange     string
	Discontinuity bool
	IsInit        bool
	IsFMP4        bool
}

// ProcessedSegment is the scheduler's output: a fetched, decrypted segment
// tagged with its originating job's media sequence for reordering.
type ProcessedSegment struct {
	Job  SegmentJob
	Item Item
	Err  error
}

// SegmentFetcher fetches and decrypts one job's bytes.
type SegmentFetcher interface {
	FetchAndDecrypt(ctx context.Context, job SegmentJob) ([]byte, error)
}

// Scheduler runs jobs with bounded concurrency and publishes results, in
// whatever order they complete, to Results.
type Scheduler struct {
	fetcher SegmentFetcher
	sem     *semaphore.Weighted
	Results chan ProcessedSegment
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler that runs at most maxConcurrent jobs at
// once.
func NewScheduler(fetcher SegmentFetcher, maxConcurrent int) *Scheduler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Scheduler{
		fetcher: fetcher,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		Results: make(chan ProcessedSegment, maxConcurrent),
	}
}

// Submit enqueues job for fetch+process. It blocks until a concurrency slot
// is free or ctx is canceled.
func (s *Scheduler) Submit(ctx context.Context, job SegmentJob) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("scheduler: acquiring slot: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)

		data, err := s.fetcher.FetchAndDecrypt(ctx, job)
		if err != nil {
			s.Results <- ProcessedSegment{Job: job, Err: fmt.Errorf("%w: %v", ErrSegmentFetch, err)}
			return
		}

		item, err := toItem(job, data)
		s.Results <- ProcessedSegment{Job: job, Item: item, Err: err}
	}()
	return nil
}

// Wait blocks until every submitted job has published its result, then
// closes Results. Call after the last Submit.
func (s *Scheduler) Wait() {
	s.wg.Wait()
	close(s.Results)
}

func toItem(job SegmentJob, data []byte) (Item, error) {
	entry := PlaylistEntry{
		MediaSequence: job.MediaSequence,
		Duration:      job.Duration,
		Discontinuity: job.Discontinuity,
	}
	switch {
	case job.IsInit:
		return M4sInit{Data: data}, nil
	case job.IsFMP4:
		return M4sSegment{Entry: entry, Data: data}, nil
	default:
		return TsSegment{Entry: entry, Data: data}, nil
	}
}
