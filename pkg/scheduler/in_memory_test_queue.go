package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/aliveness"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/bucketqueue"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/history"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// jobQueue binds a job to the queue holding its buckets and the
// results that have been collected for it.
type jobQueue struct {
	scheduled    job.Scheduled
	analyticsTag string
	bucketQueue  *bucketqueue.BucketQueue

	// Protected by InMemoryTestQueue.lock.
	deleted bool

	resultsLock sync.Mutex
	results     []model.TestingResult
}

func (jq *jobQueue) addResult(testingResult model.TestingResult) {
	jq.resultsLock.Lock()
	jq.results = append(jq.results, testingResult)
	jq.resultsLock.Unlock()
}

func (jq *jobQueue) getResults() []model.TestingResult {
	jq.resultsLock.Lock()
	defer jq.resultsLock.Unlock()

	return append([]model.TestingResult{}, jq.results...)
}

// jobQueueList is a list of job queues, sorted in the order in which
// their buckets are handed out.
type jobQueueList []*jobQueue

// insert a job queue, retaining the sort order.
func (l *jobQueueList) insert(jq *jobQueue) {
	i := sort.Search(len(*l), func(i int) bool {
		return job.Compare(&jq.scheduled, &(*l)[i].scheduled) == job.Before
	})
	*l = append(*l, nil)
	copy((*l)[i+1:], (*l)[i:])
	(*l)[i] = jq
}

func (l *jobQueueList) remove(jq *jobQueue) {
	for i, other := range *l {
		if other == jq {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("Job %#v is not part of the list", jq.scheduled.Job.JobID))
}

type trackedJobGroup struct {
	jobGroup       job.JobGroup
	referenceCount int
}

// InMemoryTestQueue implements a TestQueue that keeps all of its state
// in memory. Buckets of multiple jobs are handed out to workers in the
// order determined by job.Compare.
//
// Jobs that are deleted are retained, so that results of buckets that
// were still being executed at the time of deletion can be collected
// and queried.
type InMemoryTestQueue struct {
	clock                clock.Clock
	alivenessTracker     *aliveness.Tracker
	bucketQueueFactory   *bucketqueue.Factory
	workerConfigurations map[model.WorkerID]capabilities.Set

	// Acquired exclusively when jobs are added, resurrected or
	// deleted. All other operations only need to prevent the sets of
	// jobs from changing, and rely on the locks of the individual
	// bucket queues.
	lock             sync.RWMutex
	jobQueues        map[job.JobID]*jobQueue
	runningJobQueues jobQueueList
	deletedJobQueues []*jobQueue
	jobGroups        map[job.JobGroupKey]*trackedJobGroup
}

var _ TestQueue = (*InMemoryTestQueue)(nil)

// NewInMemoryTestQueue creates a new InMemoryTestQueue that is in the
// initial state. It does not have any jobs. Only workers for which
// workerConfigurations contains an entry may register.
func NewInMemoryTestQueue(clock clock.Clock, uuidGenerator util.UUIDGenerator, alivenessTracker *aliveness.Tracker, historyTracker history.Tracker, workerConfigurations map[model.WorkerID]capabilities.Set) *InMemoryTestQueue {
	return &InMemoryTestQueue{
		clock:                clock,
		alivenessTracker:     alivenessTracker,
		workerConfigurations: workerConfigurations,
		bucketQueueFactory: bucketqueue.NewFactory(
			clock,
			uuidGenerator,
			bucketqueue.NewSequentialUniqueIdentifierGenerator(),
			alivenessTracker,
			historyTracker),
		jobQueues: map[job.JobID]*jobQueue{},
		jobGroups: map[job.JobGroupKey]*trackedJobGroup{},
	}
}

// trackJobGroup increments the reference count of a job group,
// creating it if needed. It returns the group as it is tracked, which
// may have been created earlier than the provided one.
func (q *InMemoryTestQueue) trackJobGroup(jobGroup job.JobGroup) job.JobGroup {
	tjg, ok := q.jobGroups[jobGroup.Key()]
	if !ok {
		tjg = &trackedJobGroup{jobGroup: jobGroup}
		q.jobGroups[jobGroup.Key()] = tjg
	}
	tjg.referenceCount++
	return tjg.jobGroup
}

func (q *InMemoryTestQueue) untrackJobGroup(jobGroup job.JobGroup) {
	key := jobGroup.Key()
	tjg, ok := q.jobGroups[key]
	if !ok {
		panic(fmt.Sprintf("Job group %#v with priority %d is not tracked", key.JobGroupID, key.Priority))
	}
	tjg.referenceCount--
	if tjg.referenceCount < 0 {
		panic(fmt.Sprintf("Job group %#v with priority %d has a negative reference count", key.JobGroupID, key.Priority))
	}
	if tjg.referenceCount == 0 {
		delete(q.jobGroups, key)
	}
}

// EnqueueBuckets appends buckets to the queue of a job. The job is
// created if it doesn't exist yet. Enqueueing buckets for a job that
// was deleted causes the job to be running again, without any of the
// buckets that were enqueued before deletion. The priorities of an
// existing job are not altered.
//
// Bucket IDs are unique across jobs. Buckets whose ID is still
// enqueued or dequeued as part of another job are rejected.
func (q *InMemoryTestQueue) EnqueueBuckets(ctx context.Context, buckets []model.Bucket, prioritizedJob *job.PrioritizedJob) error {
	if err := prioritizedJob.Validate(); err != nil {
		return err
	}
	if len(buckets) == 0 {
		return status.Errorf(codes.InvalidArgument, "No buckets provided for job %#v", prioritizedJob.JobID)
	}
	for i := range buckets {
		if err := buckets[i].Validate(); err != nil {
			return err
		}
	}

	q.lock.Lock()
	defer q.lock.Unlock()

	for otherJobID, otherJobQueue := range q.jobQueues {
		if otherJobID != prioritizedJob.JobID {
			if bucketID, ok := otherJobQueue.bucketQueue.FindBucket(buckets); ok {
				return status.Errorf(codes.AlreadyExists, "Bucket %#v is already part of job %#v", bucketID, otherJobID)
			}
		}
	}

	jq, ok := q.jobQueues[prioritizedJob.JobID]
	if !ok {
		now := q.clock.Now()
		j := prioritizedJob.NewJob(now)
		jq = &jobQueue{
			scheduled: job.Scheduled{
				Job:      j,
				JobGroup: q.trackJobGroup(prioritizedJob.NewJobGroup(now)),
			},
			analyticsTag: prioritizedJob.AnalyticsTag,
			bucketQueue:  q.bucketQueueFactory.NewBucketQueue(&j),
		}
		q.jobQueues[j.JobID] = jq
		q.runningJobQueues.insert(jq)
	} else if jq.deleted {
		jq.bucketQueue.RemoveAllEnqueued()
		for i, other := range q.deletedJobQueues {
			if other == jq {
				q.deletedJobQueues = append(q.deletedJobQueues[:i], q.deletedJobQueues[i+1:]...)
				break
			}
		}
		jq.deleted = false
		jq.scheduled.JobGroup = q.trackJobGroup(jq.scheduled.JobGroup)
		q.runningJobQueues.insert(jq)
	}
	jq.bucketQueue.Enqueue(buckets)
	return nil
}

// DequeueBucket hands out the first bucket that the worker is capable
// of executing. Jobs are considered in the order determined by
// job.Compare. The worker needs to be registered and may not be
// blocked.
//
// If capabilities are provided, they replace the ones the worker
// provided previously.
func (q *InMemoryTestQueue) DequeueBucket(ctx context.Context, workerID model.WorkerID, workerCapabilities capabilities.Set) (*model.DequeuedBucket, error) {
	effectiveCapabilities, err := q.alivenessTracker.WillDequeueBucket(workerID, workerCapabilities)
	if err != nil {
		return nil, err
	}

	q.lock.RLock()
	defer q.lock.RUnlock()

	for _, jq := range q.runningJobQueues {
		if dequeuedBucket, ok := jq.bucketQueue.Dequeue(workerID, effectiveCapabilities, q.alivenessTracker.WorkersInWorkingCondition); ok {
			return &dequeuedBucket, nil
		}
	}
	return nil, nil
}

// AcceptBucketResult processes the result of a bucket. Buckets of jobs
// that have been deleted in the meantime are accepted as well, but
// their failed tests are no longer retried.
func (q *InMemoryTestQueue) AcceptBucketResult(ctx context.Context, bucketID model.BucketID, testingResult model.TestingResult, workerID model.WorkerID) (*bucketqueue.AcceptResult, error) {
	q.lock.RLock()
	defer q.lock.RUnlock()

	jq := q.getJobQueueOwningBucket(bucketID, workerID)
	if jq == nil {
		return nil, status.Errorf(codes.NotFound, "Unknown bucket %#v", bucketID)
	}
	acceptResult, err := jq.bucketQueue.Accept(bucketID, testingResult, workerID, !jq.deleted)
	if err != nil {
		return nil, err
	}
	if len(acceptResult.TestingResultToCollect.UnfilteredResults) > 0 {
		jq.addResult(acceptResult.TestingResultToCollect)
	}
	return acceptResult, nil
}

// getJobQueueOwningBucket returns the job queue in which a bucket has
// been dequeued. Queues in which the bucket is owned by the provided
// worker are preferred, so that results are never credited to the
// wrong job.
func (q *InMemoryTestQueue) getJobQueueOwningBucket(bucketID model.BucketID, workerID model.WorkerID) *jobQueue {
	var fallback *jobQueue
	for _, jobQueues := range [][]*jobQueue{q.runningJobQueues, q.deletedJobQueues} {
		for _, jq := range jobQueues {
			if owner, ok := jq.bucketQueue.GetDequeuedBucketOwner(bucketID); ok {
				if owner == workerID {
					return jq
				}
				if fallback == nil {
					fallback = jq
				}
			}
		}
	}
	return fallback
}

func (q *InMemoryTestQueue) getJobQueue(jobID job.JobID) (*jobQueue, error) {
	jq, ok := q.jobQueues[jobID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Unknown job %#v", jobID)
	}
	return jq, nil
}

// DeleteJob stops handing out buckets of a job. Buckets that are being
// executed at the time of deletion may still report their results.
func (q *InMemoryTestQueue) DeleteJob(ctx context.Context, jobID job.JobID) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	jq, err := q.getJobQueue(jobID)
	if err != nil {
		return err
	}
	if jq.deleted {
		return status.Errorf(codes.FailedPrecondition, "Job %#v has already been deleted", jobID)
	}
	q.runningJobQueues.remove(jq)
	q.deletedJobQueues = append(q.deletedJobQueues, jq)
	jq.deleted = true
	jq.bucketQueue.RemoveAllEnqueued()
	q.untrackJobGroup(jq.scheduled.JobGroup)
	return nil
}

// GetJobState returns the number of buckets of a job that are waiting
// or being executed.
func (q *InMemoryTestQueue) GetJobState(ctx context.Context, jobID job.JobID) (*JobState, error) {
	q.lock.RLock()
	defer q.lock.RUnlock()

	jq, err := q.getJobQueue(jobID)
	if err != nil {
		return nil, err
	}
	return &JobState{
		JobID:        jobID,
		JobGroupID:   jq.scheduled.JobGroup.JobGroupID,
		AnalyticsTag: jq.analyticsTag,
		Deleted:      jq.deleted,
		QueueState:   jq.bucketQueue.State(),
	}, nil
}

// GetJobResults returns the final results of all tests of a job that
// have been collected so far.
func (q *InMemoryTestQueue) GetJobResults(ctx context.Context, jobID job.JobID) (*JobResults, error) {
	q.lock.RLock()
	defer q.lock.RUnlock()

	jq, err := q.getJobQueue(jobID)
	if err != nil {
		return nil, err
	}
	return &JobResults{
		JobID:          jobID,
		TestingResults: jq.getResults(),
	}, nil
}

// GetOngoingJobIDs returns the IDs of all jobs that have not been
// deleted, in sorted order.
func (q *InMemoryTestQueue) GetOngoingJobIDs(ctx context.Context) []job.JobID {
	q.lock.RLock()
	defer q.lock.RUnlock()

	jobIDs := make([]job.JobID, 0, len(q.runningJobQueues))
	for _, jq := range q.runningJobQueues {
		jobIDs = append(jobIDs, jq.scheduled.Job.JobID)
	}
	sort.Slice(jobIDs, func(i, j int) bool { return jobIDs[i] < jobIDs[j] })
	return jobIDs
}

// GetOngoingJobGroupIDs returns the IDs of all job groups that have at
// least one job that has not been deleted, in sorted order.
func (q *InMemoryTestQueue) GetOngoingJobGroupIDs(ctx context.Context) []job.JobGroupID {
	q.lock.RLock()
	defer q.lock.RUnlock()

	seen := map[job.JobGroupID]struct{}{}
	jobGroupIDs := []job.JobGroupID{}
	for key := range q.jobGroups {
		if _, ok := seen[key.JobGroupID]; !ok {
			seen[key.JobGroupID] = struct{}{}
			jobGroupIDs = append(jobGroupIDs, key.JobGroupID)
		}
	}
	sort.Slice(jobGroupIDs, func(i, j int) bool { return jobGroupIDs[i] < jobGroupIDs[j] })
	return jobGroupIDs
}

// GetRunningQueueState returns the combined state of all jobs that
// have not been deleted.
func (q *InMemoryTestQueue) GetRunningQueueState(ctx context.Context) bucketqueue.State {
	q.lock.RLock()
	defer q.lock.RUnlock()

	s := bucketqueue.NewState()
	for _, jq := range q.runningJobQueues {
		s.Add(jq.bucketQueue.State())
	}
	return s
}

// ReenqueueStuckBuckets compares the buckets handed out by all running
// jobs against a single snapshot of the aliveness tracker. Buckets
// that are no longer being processed are placed back in their queues.
func (q *InMemoryTestQueue) ReenqueueStuckBuckets(ctx context.Context) []model.StuckBucket {
	q.lock.RLock()
	defer q.lock.RUnlock()

	snapshot := q.alivenessTracker.Snapshot()
	var stuckBuckets []model.StuckBucket
	for _, jq := range q.runningJobQueues {
		stuckBuckets = append(stuckBuckets, jq.bucketQueue.ReclaimStuck(snapshot)...)
	}
	return stuckBuckets
}

// RegisterWorker announces the existence of a worker, so that it may
// request buckets. Only workers that are configured may register. The
// configured capabilities take precedence over the ones reported by the
// worker. The resulting set of capabilities is returned.
func (q *InMemoryTestQueue) RegisterWorker(ctx context.Context, workerID model.WorkerID, workerCapabilities capabilities.Set) (capabilities.Set, error) {
	if workerID == "" {
		return nil, status.Error(codes.InvalidArgument, "No worker ID provided")
	}
	configuredCapabilities, ok := q.workerConfigurations[workerID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Missing worker configuration for worker %#v", workerID)
	}
	effectiveCapabilities := capabilities.Set{}
	for name, value := range workerCapabilities {
		effectiveCapabilities[name] = value
	}
	for name, value := range configuredCapabilities {
		effectiveCapabilities[name] = value
	}
	if err := q.alivenessTracker.Register(workerID, effectiveCapabilities); err != nil {
		return nil, err
	}
	return effectiveCapabilities, nil
}

// ReportInFlightBuckets records the buckets a worker is processing.
// Buckets handed out to the worker that are absent are considered
// stuck.
func (q *InMemoryTestQueue) ReportInFlightBuckets(ctx context.Context, workerID model.WorkerID, bucketIDs []model.BucketID) error {
	return q.alivenessTracker.SetInFlightBuckets(workerID, bucketIDs)
}

// BlockWorker prevents a worker from receiving buckets.
func (q *InMemoryTestQueue) BlockWorker(ctx context.Context, workerID model.WorkerID) error {
	return q.alivenessTracker.Block(workerID)
}

// UnblockWorker reverts the effect of BlockWorker.
func (q *InMemoryTestQueue) UnblockWorker(ctx context.Context, workerID model.WorkerID) error {
	return q.alivenessTracker.Unblock(workerID)
}

// GetWorkerAliveness returns the status of all workers.
func (q *InMemoryTestQueue) GetWorkerAliveness(ctx context.Context) *aliveness.Snapshot {
	return q.alivenessTracker.Snapshot()
}
