package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/bucketqueue"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/status"
)

var (
	testQueuePrometheusMetrics sync.Once

	testQueueOperationsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "test_queue",
			Name:      "operations_duration_seconds",
			Help:      "Amount of time spent per operation on the test queue, in seconds.",
			Buckets:   util.DecimalExponentialBuckets(-6, 6, 2),
		},
		[]string{"operation", "grpc_code"})

	testQueueBucketsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "test_queue",
			Name:      "buckets_enqueued_total",
			Help:      "Number of buckets enqueued by clients.",
		})
	testQueueDequeueRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "test_queue",
			Name:      "dequeue_requests_total",
			Help:      "Number of requests for buckets made by workers, and whether a bucket was handed out.",
		},
		[]string{"result"})
	testQueueTestResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "test_queue",
			Name:      "test_results_total",
			Help:      "Number of test results accepted from workers.",
		},
		[]string{"result"})
	testQueueStuckBucketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buildbarn",
			Subsystem: "test_queue",
			Name:      "stuck_buckets_total",
			Help:      "Number of buckets taken away from workers and enqueued once more.",
		},
		[]string{"reason"})
)

type metricsTestQueue struct {
	TestQueue
	clock clock.Clock

	enqueueBucketsDuration     metricsOperation
	dequeueBucketDuration      metricsOperation
	acceptBucketResultDuration metricsOperation
	deleteJobDuration          metricsOperation

	dequeueRequestsDequeued prometheus.Counter
	dequeueRequestsEmpty    prometheus.Counter

	testResultsSucceeded prometheus.Counter
	testResultsFailed    prometheus.Counter
	testResultsLost      prometheus.Counter
	testResultsRetried   prometheus.Counter
}

// NewMetricsTestQueue creates a decorator for TestQueue that exposes
// the number of buckets and test results flowing through the queue as
// Prometheus metrics.
func NewMetricsTestQueue(base TestQueue, clock clock.Clock) TestQueue {
	testQueuePrometheusMetrics.Do(func() {
		prometheus.MustRegister(testQueueOperationsDurationSeconds)
		prometheus.MustRegister(testQueueBucketsEnqueuedTotal)
		prometheus.MustRegister(testQueueDequeueRequestsTotal)
		prometheus.MustRegister(testQueueTestResultsTotal)
		prometheus.MustRegister(testQueueStuckBucketsTotal)
	})

	return &metricsTestQueue{
		TestQueue: base,
		clock:     clock,

		enqueueBucketsDuration:     newMetricsOperation("EnqueueBuckets"),
		dequeueBucketDuration:      newMetricsOperation("DequeueBucket"),
		acceptBucketResultDuration: newMetricsOperation("AcceptBucketResult"),
		deleteJobDuration:          newMetricsOperation("DeleteJob"),

		dequeueRequestsDequeued: testQueueDequeueRequestsTotal.WithLabelValues("Dequeued"),
		dequeueRequestsEmpty:    testQueueDequeueRequestsTotal.WithLabelValues("Empty"),

		testResultsSucceeded: testQueueTestResultsTotal.WithLabelValues("Succeeded"),
		testResultsFailed:    testQueueTestResultsTotal.WithLabelValues("Failed"),
		testResultsLost:      testQueueTestResultsTotal.WithLabelValues("Lost"),
		testResultsRetried:   testQueueTestResultsTotal.WithLabelValues("Retried"),
	}
}

// metricsOperation holds the duration histograms of a single
// operation, partially curried.
type metricsOperation struct {
	durationSeconds prometheus.ObserverVec
}

func newMetricsOperation(operation string) metricsOperation {
	return metricsOperation{
		durationSeconds: testQueueOperationsDurationSeconds.MustCurryWith(map[string]string{"operation": operation}),
	}
}

func (o *metricsOperation) observe(startTime, endTime time.Time, err error) {
	o.durationSeconds.WithLabelValues(status.Code(err).String()).Observe(endTime.Sub(startTime).Seconds())
}

func (q *metricsTestQueue) EnqueueBuckets(ctx context.Context, buckets []model.Bucket, prioritizedJob *job.PrioritizedJob) error {
	startTime := q.clock.Now()
	err := q.TestQueue.EnqueueBuckets(ctx, buckets, prioritizedJob)
	q.enqueueBucketsDuration.observe(startTime, q.clock.Now(), err)
	if err == nil {
		testQueueBucketsEnqueuedTotal.Add(float64(len(buckets)))
	}
	return err
}

func (q *metricsTestQueue) DequeueBucket(ctx context.Context, workerID model.WorkerID, workerCapabilities capabilities.Set) (*model.DequeuedBucket, error) {
	startTime := q.clock.Now()
	dequeuedBucket, err := q.TestQueue.DequeueBucket(ctx, workerID, workerCapabilities)
	q.dequeueBucketDuration.observe(startTime, q.clock.Now(), err)
	if err == nil {
		if dequeuedBucket == nil {
			q.dequeueRequestsEmpty.Inc()
		} else {
			q.dequeueRequestsDequeued.Inc()
		}
	}
	return dequeuedBucket, err
}

func (q *metricsTestQueue) AcceptBucketResult(ctx context.Context, bucketID model.BucketID, testingResult model.TestingResult, workerID model.WorkerID) (*bucketqueue.AcceptResult, error) {
	startTime := q.clock.Now()
	acceptResult, err := q.TestQueue.AcceptBucketResult(ctx, bucketID, testingResult, workerID)
	q.acceptBucketResultDuration.observe(startTime, q.clock.Now(), err)
	if err == nil {
		for _, result := range acceptResult.TestingResultToCollect.UnfilteredResults {
			switch {
			case result.Succeeded:
				q.testResultsSucceeded.Inc()
			case result.Lost:
				q.testResultsLost.Inc()
			default:
				q.testResultsFailed.Inc()
			}
		}
		for _, bucket := range acceptResult.ReenqueuedBuckets {
			q.testResultsRetried.Add(float64(len(bucket.TestEntries)))
		}
	}
	return acceptResult, err
}

func (q *metricsTestQueue) DeleteJob(ctx context.Context, jobID job.JobID) error {
	startTime := q.clock.Now()
	err := q.TestQueue.DeleteJob(ctx, jobID)
	q.deleteJobDuration.observe(startTime, q.clock.Now(), err)
	return err
}

func (q *metricsTestQueue) ReenqueueStuckBuckets(ctx context.Context) []model.StuckBucket {
	stuckBuckets := q.TestQueue.ReenqueueStuckBuckets(ctx)
	for _, stuckBucket := range stuckBuckets {
		testQueueStuckBucketsTotal.WithLabelValues(string(stuckBucket.Reason)).Inc()
	}
	return stuckBuckets
}
