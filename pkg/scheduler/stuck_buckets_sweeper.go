package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
)

// StuckBucketsSweeper periodically returns buckets of workers that
// disappeared or were blocked back to their queues.
type StuckBucketsSweeper struct {
	reenqueuer StuckBucketsReenqueuer
	clock      clock.Clock
	interval   time.Duration
}

// NewStuckBucketsSweeper creates a StuckBucketsSweeper that calls
// ReenqueueStuckBuckets at a fixed interval.
func NewStuckBucketsSweeper(reenqueuer StuckBucketsReenqueuer, clock clock.Clock, interval time.Duration) *StuckBucketsSweeper {
	return &StuckBucketsSweeper{
		reenqueuer: reenqueuer,
		clock:      clock,
		interval:   interval,
	}
}

// Run the sweeper until the context is canceled.
func (s *StuckBucketsSweeper) Run(ctx context.Context) error {
	ticker, tickerChannel := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tickerChannel:
			for _, stuckBucket := range s.reenqueuer.ReenqueueStuckBuckets(ctx) {
				log.Printf(
					"Reenqueued bucket %#v containing %d tests, as worker %#v is in state %s",
					stuckBucket.Bucket.BucketID,
					len(stuckBucket.Bucket.TestEntries),
					stuckBucket.WorkerID,
					stuckBucket.Reason)
			}
		}
	}
}
