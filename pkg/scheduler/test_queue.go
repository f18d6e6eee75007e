package scheduler

import (
	"context"

	"github.com/buildbarn/bb-test-queue/pkg/scheduler/aliveness"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/bucketqueue"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
)

// BucketEnqueuer accepts buckets submitted by clients.
type BucketEnqueuer interface {
	EnqueueBuckets(ctx context.Context, buckets []model.Bucket, prioritizedJob *job.PrioritizedJob) error
}

// BucketDequeuer hands out buckets to workers. A nil bucket is
// returned if no bucket is available for the worker, in which case the
// worker should poll again later.
type BucketDequeuer interface {
	DequeueBucket(ctx context.Context, workerID model.WorkerID, workerCapabilities capabilities.Set) (*model.DequeuedBucket, error)
}

// BucketResultAcceptor processes the results of buckets that were
// executed by workers.
type BucketResultAcceptor interface {
	AcceptBucketResult(ctx context.Context, bucketID model.BucketID, testingResult model.TestingResult, workerID model.WorkerID) (*bucketqueue.AcceptResult, error)
}

// JobManipulator can be used to cancel jobs.
type JobManipulator interface {
	DeleteJob(ctx context.Context, jobID job.JobID) error
}

// JobState contains the progress of a single job.
type JobState struct {
	JobID        job.JobID         `json:"jobId"`
	JobGroupID   job.JobGroupID    `json:"jobGroupId"`
	AnalyticsTag string            `json:"analyticsTag,omitempty"`
	Deleted      bool              `json:"deleted"`
	QueueState   bucketqueue.State `json:"queueState"`
}

// JobResults contains the final results collected for a job.
type JobResults struct {
	JobID          job.JobID             `json:"jobId"`
	TestingResults []model.TestingResult `json:"testingResults"`
}

// JobStateProvider can be used to inspect the jobs known by the queue.
type JobStateProvider interface {
	GetJobState(ctx context.Context, jobID job.JobID) (*JobState, error)
	GetJobResults(ctx context.Context, jobID job.JobID) (*JobResults, error)
	GetOngoingJobIDs(ctx context.Context) []job.JobID
	GetOngoingJobGroupIDs(ctx context.Context) []job.JobGroupID
	GetRunningQueueState(ctx context.Context) bucketqueue.State
}

// StuckBucketsReenqueuer returns buckets that were handed out to
// workers that are no longer processing them back to their queues.
type StuckBucketsReenqueuer interface {
	ReenqueueStuckBuckets(ctx context.Context) []model.StuckBucket
}

// WorkerRegistry keeps track of the workers that are permitted to
// request buckets.
type WorkerRegistry interface {
	RegisterWorker(ctx context.Context, workerID model.WorkerID, workerCapabilities capabilities.Set) (capabilities.Set, error)
	ReportInFlightBuckets(ctx context.Context, workerID model.WorkerID, bucketIDs []model.BucketID) error
	BlockWorker(ctx context.Context, workerID model.WorkerID) error
	UnblockWorker(ctx context.Context, workerID model.WorkerID) error
	GetWorkerAliveness(ctx context.Context) *aliveness.Snapshot
}

// TestQueue is the full set of operations offered by the scheduler.
type TestQueue interface {
	BucketEnqueuer
	BucketDequeuer
	BucketResultAcceptor
	JobManipulator
	JobStateProvider
	StuckBucketsReenqueuer
	WorkerRegistry
}
