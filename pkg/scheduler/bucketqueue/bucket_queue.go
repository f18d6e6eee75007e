package bucketqueue

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/aliveness"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/history"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UniqueIdentifierGenerator yields the identifiers that are assigned
// to EnqueuedBuckets. Every call must return a value greater than the
// ones returned previously.
type UniqueIdentifierGenerator func() uint64

// NewSequentialUniqueIdentifierGenerator creates a
// UniqueIdentifierGenerator that counts upward, starting at one. The
// same generator should be shared by all bucket queues of a process.
func NewSequentialUniqueIdentifierGenerator() UniqueIdentifierGenerator {
	var last atomic.Uint64
	return func() uint64 {
		return last.Add(1)
	}
}

// DequeueRecorder is notified whenever a bucket is handed out to a
// worker. It is implemented by aliveness.Tracker.
type DequeueRecorder interface {
	DidDequeueBucket(workerID model.WorkerID, bucketID model.BucketID) uint64
}

var _ DequeueRecorder = (*aliveness.Tracker)(nil)

// Factory of BucketQueues. It holds the dependencies that are shared
// by the queues of all jobs.
type Factory struct {
	clock                     clock.Clock
	uuidGenerator             util.UUIDGenerator
	uniqueIdentifierGenerator UniqueIdentifierGenerator
	dequeueRecorder           DequeueRecorder
	historyTracker            history.Tracker
}

// NewFactory creates a Factory of BucketQueues. The UUID generator is
// used to obtain IDs of buckets containing retried tests.
func NewFactory(clock clock.Clock, uuidGenerator util.UUIDGenerator, uniqueIdentifierGenerator UniqueIdentifierGenerator, dequeueRecorder DequeueRecorder, historyTracker history.Tracker) *Factory {
	return &Factory{
		clock:                     clock,
		uuidGenerator:             uuidGenerator,
		uniqueIdentifierGenerator: uniqueIdentifierGenerator,
		dequeueRecorder:           dequeueRecorder,
		historyTracker:            historyTracker,
	}
}

// NewBucketQueue creates an empty BucketQueue for a job.
func (f *Factory) NewBucketQueue(j *job.Job) *BucketQueue {
	return &BucketQueue{
		Factory:         f,
		jobID:           j.JobID,
		retryBudget:     j.RetryBudget,
		dequeuedBuckets: map[model.BucketID]*model.DequeuedBucket{},
	}
}

// BucketQueue holds the buckets of a single job: the ones waiting to
// be handed out to a worker, and the ones handed out for which no
// result has been received yet. It is safe for concurrent use.
type BucketQueue struct {
	*Factory
	jobID       job.JobID
	retryBudget uint32

	lock sync.Mutex
	// Ordered by unique identifier, as entries are only ever
	// appended.
	enqueuedBuckets []model.EnqueuedBucket
	dequeuedBuckets map[model.BucketID]*model.DequeuedBucket
}

// enqueueLocked appends a bucket to the tail of the queue. The caller
// must hold the lock.
func (bq *BucketQueue) enqueueLocked(bucket model.Bucket, avoidedWorkerID model.WorkerID) {
	bq.enqueuedBuckets = append(bq.enqueuedBuckets, model.EnqueuedBucket{
		Bucket:           bucket,
		EnqueueTimestamp: bq.clock.Now(),
		UniqueIdentifier: bq.uniqueIdentifierGenerator(),
		AvoidedWorkerID:  avoidedWorkerID,
	})
}

// Enqueue buckets at the tail of the queue. Buckets are not
// deduplicated. Enqueueing the same bucket twice causes it to be
// handed out twice.
func (bq *BucketQueue) Enqueue(buckets []model.Bucket) {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	for _, bucket := range buckets {
		bq.enqueueLocked(bucket, "")
	}
}

// Dequeue hands out the first bucket in the queue whose capability
// requirements are satisfied by the worker. Buckets with requirements
// the worker doesn't satisfy are skipped, but left in place.
//
// Buckets containing tests that last failed on the same worker are
// only handed out to that worker if no other worker in working
// condition is capable of running them. The list of those workers is
// only requested if needed.
func (bq *BucketQueue) Dequeue(workerID model.WorkerID, workerCapabilities capabilities.Set, workersInWorkingCondition func() map[model.WorkerID]capabilities.Set) (model.DequeuedBucket, bool) {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	chosen, avoided := -1, -1
	for i := range bq.enqueuedBuckets {
		enqueuedBucket := &bq.enqueuedBuckets[i]
		if _, ok := bq.dequeuedBuckets[enqueuedBucket.Bucket.BucketID]; ok {
			// A bucket ID may only be owned by a single worker.
			continue
		}
		if !enqueuedBucket.Bucket.CapabilityRequirements.SatisfiedBy(workerCapabilities) {
			continue
		}
		if enqueuedBucket.AvoidedWorkerID != workerID {
			chosen = i
			break
		}
		if avoided < 0 {
			avoided = i
		}
	}
	if chosen < 0 {
		if avoided < 0 || hasOtherCapableWorker(workerID, bq.enqueuedBuckets[avoided].Bucket.CapabilityRequirements, workersInWorkingCondition()) {
			return model.DequeuedBucket{}, false
		}
		chosen = avoided
	}

	enqueuedBucket := bq.enqueuedBuckets[chosen]
	bq.enqueuedBuckets = append(bq.enqueuedBuckets[:chosen], bq.enqueuedBuckets[chosen+1:]...)
	dequeuedBucket := &model.DequeuedBucket{
		EnqueuedBucket:    enqueuedBucket,
		WorkerID:          workerID,
		DequeueTimestamp:  bq.clock.Now(),
		AlivenessRevision: bq.dequeueRecorder.DidDequeueBucket(workerID, enqueuedBucket.Bucket.BucketID),
	}
	bq.dequeuedBuckets[enqueuedBucket.Bucket.BucketID] = dequeuedBucket
	return *dequeuedBucket, true
}

func hasOtherCapableWorker(workerID model.WorkerID, requirements capabilities.Requirements, workers map[model.WorkerID]capabilities.Set) bool {
	for otherWorkerID, otherCapabilities := range workers {
		if otherWorkerID != workerID && requirements.SatisfiedBy(otherCapabilities) {
			return true
		}
	}
	return false
}

// OwnsDequeuedBucket returns whether a bucket with a given ID has been
// handed out by this queue, and no result for it has been received.
func (bq *BucketQueue) OwnsDequeuedBucket(bucketID model.BucketID) bool {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	_, ok := bq.dequeuedBuckets[bucketID]
	return ok
}

// GetDequeuedBucketOwner returns the ID of the worker that was handed
// out a bucket.
func (bq *BucketQueue) GetDequeuedBucketOwner(bucketID model.BucketID) (model.WorkerID, bool) {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	dequeuedBucket, ok := bq.dequeuedBuckets[bucketID]
	if !ok {
		return "", false
	}
	return dequeuedBucket.WorkerID, true
}

// FindBucket returns the first of the provided buckets that is either
// enqueued or dequeued.
func (bq *BucketQueue) FindBucket(buckets []model.Bucket) (model.BucketID, bool) {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	for _, bucket := range buckets {
		if _, ok := bq.dequeuedBuckets[bucket.BucketID]; ok {
			return bucket.BucketID, true
		}
		for _, enqueuedBucket := range bq.enqueuedBuckets {
			if enqueuedBucket.Bucket.BucketID == bucket.BucketID {
				return bucket.BucketID, true
			}
		}
	}
	return "", false
}

// AcceptResult is returned by BucketQueue.Accept.
type AcceptResult struct {
	// The bucket for which the result was accepted.
	DequeuedBucket model.DequeuedBucket `json:"dequeuedBucket"`
	// Results of tests that are final and need to be reported to
	// the client.
	TestingResultToCollect model.TestingResult `json:"testingResultToCollect"`
	// Buckets that were enqueued to retry failed tests.
	ReenqueuedBuckets []model.Bucket `json:"reenqueuedBuckets"`
}

// Accept the result of a bucket that was handed out to a worker.
//
// Every test result is recorded in the history tracker, which decides
// whether failed tests are retried. Tests to retry are placed in a
// single new bucket that is appended to the queue. Tests that are part
// of the bucket, but for which the worker provided no result, are
// treated as having failed. If retries are not allowed (e.g., because
// the job has been deleted), all results are final.
func (bq *BucketQueue) Accept(bucketID model.BucketID, testingResult model.TestingResult, workerID model.WorkerID, retriesAllowed bool) (*AcceptResult, error) {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	dequeuedBucket, ok := bq.dequeuedBuckets[bucketID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Unknown bucket %#v", bucketID)
	}
	if dequeuedBucket.WorkerID != workerID {
		return nil, status.Errorf(codes.FailedPrecondition, "Bucket %#v is owned by worker %#v, not by worker %#v", bucketID, dequeuedBucket.WorkerID, workerID)
	}
	bucket := &dequeuedBucket.EnqueuedBucket.Bucket

	// Only the first result of every test is taken into account.
	// Results for tests that went missing are synthesized.
	now := bq.clock.Now()
	results := make([]model.TestEntryResult, 0, len(testingResult.UnfilteredResults)+len(bucket.TestEntries))
	reported := make(map[model.TestEntry]struct{}, len(testingResult.UnfilteredResults))
	for _, result := range testingResult.UnfilteredResults {
		if _, ok := reported[result.TestEntry]; !ok {
			reported[result.TestEntry] = struct{}{}
			results = append(results, result)
		}
	}
	hasFailures := false
	for _, testEntry := range bucket.TestEntries {
		if _, ok := reported[testEntry]; !ok {
			results = append(results, model.LostTestEntryResult(testEntry, now))
			reported[testEntry] = struct{}{}
		}
	}
	for _, result := range results {
		if !result.Succeeded {
			hasFailures = true
		}
	}

	// Obtain an ID for the bucket of retried tests before making any
	// changes, so that failures leave the queue untouched.
	var retryBucketID model.BucketID
	if hasFailures && retriesAllowed {
		id, err := bq.uuidGenerator()
		if err != nil {
			return nil, util.StatusWrapWithCode(err, codes.Internal, "Failed to generate bucket ID")
		}
		retryBucketID = model.BucketID(id.String())
	}

	delete(bq.dequeuedBuckets, bucketID)
	finalResults := make([]model.TestEntryResult, 0, len(results))
	var retriedTests []model.TestEntry
	retried := map[model.TestEntry]struct{}{}
	var avoidedWorkerID model.WorkerID
	for _, result := range results {
		bq.historyTracker.RecordAttempt(bq.jobID, workerID, result)
		if !retriesAllowed {
			finalResults = append(finalResults, result)
			continue
		}
		decision := bq.historyTracker.ShouldRetry(bq.jobID, result.TestEntry, bq.retryBudget)
		if !decision.Retry {
			finalResults = append(finalResults, result)
			continue
		}
		if _, ok := retried[result.TestEntry]; !ok {
			retried[result.TestEntry] = struct{}{}
			retriedTests = append(retriedTests, result.TestEntry)
		}
		avoidedWorkerID = decision.ExcludedWorkerID
	}

	acceptResult := &AcceptResult{
		DequeuedBucket: *dequeuedBucket,
		TestingResultToCollect: model.TestingResult{
			BucketID:          bucketID,
			TestDestination:   testingResult.TestDestination,
			UnfilteredResults: finalResults,
		},
	}
	if len(retriedTests) > 0 {
		retryBucket := bucket.WithTestEntries(retryBucketID, retriedTests)
		bq.enqueueLocked(retryBucket, avoidedWorkerID)
		acceptResult.ReenqueuedBuckets = []model.Bucket{retryBucket}
	}
	return acceptResult, nil
}

// ReclaimStuck removes all buckets that were handed out to workers
// that, according to the snapshot, are no longer processing them. The
// buckets are placed at the tail of the queue, so that they can be
// handed out again.
func (bq *BucketQueue) ReclaimStuck(snapshot *aliveness.Snapshot) []model.StuckBucket {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	dequeuedBuckets := make([]*model.DequeuedBucket, 0, len(bq.dequeuedBuckets))
	for _, dequeuedBucket := range bq.dequeuedBuckets {
		dequeuedBuckets = append(dequeuedBuckets, dequeuedBucket)
	}
	sort.Slice(dequeuedBuckets, func(i, j int) bool {
		return dequeuedBuckets[i].EnqueuedBucket.UniqueIdentifier < dequeuedBuckets[j].EnqueuedBucket.UniqueIdentifier
	})

	var stuckBuckets []model.StuckBucket
	for _, dequeuedBucket := range dequeuedBuckets {
		bucket := dequeuedBucket.EnqueuedBucket.Bucket
		reason, stuck := snapshot.StuckReason(dequeuedBucket.WorkerID, bucket.BucketID, dequeuedBucket.AlivenessRevision)
		if !stuck {
			continue
		}
		delete(bq.dequeuedBuckets, bucket.BucketID)
		bq.enqueueLocked(bucket, dequeuedBucket.EnqueuedBucket.AvoidedWorkerID)
		stuckBuckets = append(stuckBuckets, model.StuckBucket{
			Bucket:   bucket,
			WorkerID: dequeuedBucket.WorkerID,
			Reason:   reason,
		})
	}
	return stuckBuckets
}

// RemoveAllEnqueued drops all buckets that have not been handed out
// yet. Buckets that are being processed by workers are retained, so
// that their results can still be accepted.
func (bq *BucketQueue) RemoveAllEnqueued() {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	bq.enqueuedBuckets = nil
}

// State of a BucketQueue, or an aggregate of the states of multiple
// queues.
type State struct {
	EnqueuedBucketCount int                         `json:"enqueuedBucketCount"`
	DequeuedBucketCount int                         `json:"dequeuedBucketCount"`
	EnqueuedTests       []string                    `json:"enqueuedTests"`
	DequeuedTests       map[model.WorkerID][]string `json:"dequeuedTests"`
}

// NewState creates an empty State, to which the states of queues can
// be added.
func NewState() State {
	return State{
		EnqueuedTests: []string{},
		DequeuedTests: map[model.WorkerID][]string{},
	}
}

// Add the state of another queue.
func (s *State) Add(other State) {
	s.EnqueuedBucketCount += other.EnqueuedBucketCount
	s.DequeuedBucketCount += other.DequeuedBucketCount
	s.EnqueuedTests = append(s.EnqueuedTests, other.EnqueuedTests...)
	for workerID, testNames := range other.DequeuedTests {
		s.DequeuedTests[workerID] = append(s.DequeuedTests[workerID], testNames...)
	}
}

// IsDepleted returns whether no buckets are waiting or being
// processed.
func (s *State) IsDepleted() bool {
	return s.EnqueuedBucketCount == 0 && s.DequeuedBucketCount == 0
}

// State returns the number of buckets in the queue and the names of
// the tests contained in them. Dequeued tests are listed per worker.
func (bq *BucketQueue) State() State {
	bq.lock.Lock()
	defer bq.lock.Unlock()

	s := NewState()
	s.EnqueuedBucketCount = len(bq.enqueuedBuckets)
	s.DequeuedBucketCount = len(bq.dequeuedBuckets)
	for i := range bq.enqueuedBuckets {
		s.EnqueuedTests = append(s.EnqueuedTests, bq.enqueuedBuckets[i].Bucket.TestNames()...)
	}

	dequeuedBuckets := make([]*model.DequeuedBucket, 0, len(bq.dequeuedBuckets))
	for _, dequeuedBucket := range bq.dequeuedBuckets {
		dequeuedBuckets = append(dequeuedBuckets, dequeuedBucket)
	}
	sort.Slice(dequeuedBuckets, func(i, j int) bool {
		return dequeuedBuckets[i].EnqueuedBucket.UniqueIdentifier < dequeuedBuckets[j].EnqueuedBucket.UniqueIdentifier
	})
	for _, dequeuedBucket := range dequeuedBuckets {
		s.DequeuedTests[dequeuedBucket.WorkerID] = append(s.DequeuedTests[dequeuedBucket.WorkerID], dequeuedBucket.EnqueuedBucket.Bucket.TestNames()...)
	}
	return s
}
