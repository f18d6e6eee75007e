package scheduler

import (
	"context"

	"github.com/buildbarn/bb-test-queue/pkg/scheduler/bucketqueue"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type tracingTestQueue struct {
	TestQueue
	tracer trace.Tracer
}

// NewTracingTestQueue is a decorator for TestQueue that creates an
// OpenTelemetry trace span for every operation that alters the state
// of the queue.
func NewTracingTestQueue(base TestQueue, tracerProvider trace.TracerProvider) TestQueue {
	return &tracingTestQueue{
		TestQueue: base,
		tracer:    tracerProvider.Tracer("github.com/buildbarn/bb-test-queue/pkg/scheduler"),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}

func (q *tracingTestQueue) EnqueueBuckets(ctx context.Context, buckets []model.Bucket, prioritizedJob *job.PrioritizedJob) error {
	ctxWithTracing, span := q.tracer.Start(ctx, "TestQueue.EnqueueBuckets", trace.WithAttributes(
		attribute.String("job_id", string(prioritizedJob.JobID)),
		attribute.String("job_group_id", string(prioritizedJob.JobGroupID)),
		attribute.Int64("job_priority", int64(prioritizedJob.JobPriority)),
		attribute.Int64("job_group_priority", int64(prioritizedJob.JobGroupPriority)),
		attribute.Int("buckets", len(buckets)),
	))
	err := q.TestQueue.EnqueueBuckets(ctxWithTracing, buckets, prioritizedJob)
	endSpan(span, err)
	return err
}

func (q *tracingTestQueue) DequeueBucket(ctx context.Context, workerID model.WorkerID, workerCapabilities capabilities.Set) (*model.DequeuedBucket, error) {
	ctxWithTracing, span := q.tracer.Start(ctx, "TestQueue.DequeueBucket", trace.WithAttributes(
		attribute.String("worker_id", string(workerID)),
	))
	dequeuedBucket, err := q.TestQueue.DequeueBucket(ctxWithTracing, workerID, workerCapabilities)
	if dequeuedBucket != nil {
		span.SetAttributes(attribute.String("bucket_id", string(dequeuedBucket.EnqueuedBucket.Bucket.BucketID)))
	}
	endSpan(span, err)
	return dequeuedBucket, err
}

func (q *tracingTestQueue) AcceptBucketResult(ctx context.Context, bucketID model.BucketID, testingResult model.TestingResult, workerID model.WorkerID) (*bucketqueue.AcceptResult, error) {
	ctxWithTracing, span := q.tracer.Start(ctx, "TestQueue.AcceptBucketResult", trace.WithAttributes(
		attribute.String("bucket_id", string(bucketID)),
		attribute.String("worker_id", string(workerID)),
		attribute.Int("results", len(testingResult.UnfilteredResults)),
	))
	acceptResult, err := q.TestQueue.AcceptBucketResult(ctxWithTracing, bucketID, testingResult, workerID)
	if acceptResult != nil {
		for _, bucket := range acceptResult.ReenqueuedBuckets {
			span.AddEvent("Reenqueued", trace.WithAttributes(
				attribute.String("bucket_id", string(bucket.BucketID)),
				attribute.StringSlice("tests", bucket.TestNames()),
			))
		}
	}
	endSpan(span, err)
	return acceptResult, err
}

func (q *tracingTestQueue) DeleteJob(ctx context.Context, jobID job.JobID) error {
	ctxWithTracing, span := q.tracer.Start(ctx, "TestQueue.DeleteJob", trace.WithAttributes(
		attribute.String("job_id", string(jobID)),
	))
	err := q.TestQueue.DeleteJob(ctxWithTracing, jobID)
	endSpan(span, err)
	return err
}

func (q *tracingTestQueue) ReenqueueStuckBuckets(ctx context.Context) []model.StuckBucket {
	ctxWithTracing, span := q.tracer.Start(ctx, "TestQueue.ReenqueueStuckBuckets")
	defer span.End()

	stuckBuckets := q.TestQueue.ReenqueueStuckBuckets(ctxWithTracing)
	for _, stuckBucket := range stuckBuckets {
		span.AddEvent("Stuck", trace.WithAttributes(
			attribute.String("bucket_id", string(stuckBucket.Bucket.BucketID)),
			attribute.String("worker_id", string(stuckBucket.WorkerID)),
			attribute.String("reason", string(stuckBucket.Reason)),
		))
	}
	return stuckBuckets
}
