package model

import (
	"time"
)

// TestEntryResult is the outcome of a single attempt of running a
// test.
type TestEntryResult struct {
	TestEntry TestEntry `json:"testEntry"`
	Succeeded bool      `json:"succeeded"`
	// Set if the worker did not report an outcome for the test, even
	// though it was part of the bucket. Lost tests count as failures.
	Lost      bool          `json:"lost,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
}

// LostTestEntryResult creates the result that is recorded for a test
// for which a worker did not report an outcome.
func LostTestEntryResult(testEntry TestEntry, now time.Time) TestEntryResult {
	return TestEntryResult{
		TestEntry: testEntry,
		Lost:      true,
		Reason:    "Worker did not report a result for this test",
		StartTime: now,
	}
}

// TestingResult is the set of outcomes reported by a worker after
// executing a bucket.
type TestingResult struct {
	BucketID          BucketID          `json:"bucketId"`
	TestDestination   TestDestination   `json:"testDestination"`
	UnfilteredResults []TestEntryResult `json:"unfilteredResults"`
}

// StuckBucketReason describes why a bucket handed out to a worker was
// taken away from it.
type StuckBucketReason string

const (
	// StuckBucketReasonBucketLost indicates that the worker is alive,
	// but no longer reports the bucket as being executed.
	StuckBucketReasonBucketLost StuckBucketReason = "bucketLost"
	// StuckBucketReasonWorkerBlocked indicates that the worker was
	// blocked administratively.
	StuckBucketReasonWorkerBlocked StuckBucketReason = "workerBlocked"
	// StuckBucketReasonWorkerNotResponding indicates that the worker
	// has not reported in for too long.
	StuckBucketReasonWorkerNotResponding StuckBucketReason = "workerNotResponding"
)

// StuckBucket is a bucket that was taken away from the worker it was
// handed out to, and returned to its queue.
type StuckBucket struct {
	Bucket   Bucket            `json:"bucket"`
	WorkerID WorkerID          `json:"workerId"`
	Reason   StuckBucketReason `json:"reason"`
}
