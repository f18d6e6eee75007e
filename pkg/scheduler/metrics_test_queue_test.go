package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/buildbarn/bb-test-queue/internal/mock"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/bucketqueue"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func getCounterValue(t *testing.T, metricName string, labelValue string) float64 {
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, metricFamily := range metricFamilies {
		if metricFamily.GetName() != metricName {
			continue
		}
		for _, metric := range metricFamily.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetValue() == labelValue {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestMetricsTestQueue(t *testing.T) {
	ctrl, ctx := gomock.WithContext(context.Background(), t)

	baseTestQueue := mock.NewMockTestQueue(ctrl)
	clock := mock.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Unix(1000, 0)).AnyTimes()
	testQueue := scheduler.NewMetricsTestQueue(baseTestQueue, clock)

	t.Run("AcceptBucketResult", func(t *testing.T) {
		succeededBefore := getCounterValue(t, "buildbarn_test_queue_test_results_total", "Succeeded")
		lostBefore := getCounterValue(t, "buildbarn_test_queue_test_results_total", "Lost")
		retriedBefore := getCounterValue(t, "buildbarn_test_queue_test_results_total", "Retried")

		acceptResult := &bucketqueue.AcceptResult{
			TestingResultToCollect: model.TestingResult{
				BucketID: "B1",
				UnfilteredResults: []model.TestEntryResult{
					{TestEntry: t1, Succeeded: true},
					{TestEntry: t2, Lost: true},
				},
			},
			ReenqueuedBuckets: []model.Bucket{newBucket("B2", t1, t2)},
		}
		baseTestQueue.EXPECT().AcceptBucketResult(ctx, model.BucketID("B1"), model.TestingResult{}, model.WorkerID("worker")).Return(acceptResult, nil)
		result, err := testQueue.AcceptBucketResult(ctx, "B1", model.TestingResult{}, "worker")
		require.NoError(t, err)
		require.Equal(t, acceptResult, result)

		require.Equal(t, succeededBefore+1, getCounterValue(t, "buildbarn_test_queue_test_results_total", "Succeeded"))
		require.Equal(t, lostBefore+1, getCounterValue(t, "buildbarn_test_queue_test_results_total", "Lost"))
		require.Equal(t, retriedBefore+2, getCounterValue(t, "buildbarn_test_queue_test_results_total", "Retried"))
	})

	t.Run("DequeueBucket", func(t *testing.T) {
		emptyBefore := getCounterValue(t, "buildbarn_test_queue_dequeue_requests_total", "Empty")

		baseTestQueue.EXPECT().DequeueBucket(ctx, model.WorkerID("worker"), nil).Return(nil, nil)
		dequeuedBucket, err := testQueue.DequeueBucket(ctx, "worker", nil)
		require.NoError(t, err)
		require.Nil(t, dequeuedBucket)

		require.Equal(t, emptyBefore+1, getCounterValue(t, "buildbarn_test_queue_dequeue_requests_total", "Empty"))
	})

	t.Run("ReenqueueStuckBuckets", func(t *testing.T) {
		before := getCounterValue(t, "buildbarn_test_queue_stuck_buckets_total", "bucketLost")

		baseTestQueue.EXPECT().ReenqueueStuckBuckets(ctx).Return([]model.StuckBucket{
			{Bucket: newBucket("B1", t1), WorkerID: "worker", Reason: model.StuckBucketReasonBucketLost},
			{Bucket: newBucket("B2", t2), WorkerID: "worker", Reason: model.StuckBucketReasonBucketLost},
		})
		require.Len(t, testQueue.ReenqueueStuckBuckets(ctx), 2)

		require.Equal(t, before+2, getCounterValue(t, "buildbarn_test_queue_stuck_buckets_total", "bucketLost"))
	})

	t.Run("Collect", func(t *testing.T) {
		// All metrics are registered, and can be linted.
		problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer,
			"buildbarn_test_queue_operations_duration_seconds",
			"buildbarn_test_queue_test_results_total")
		require.NoError(t, err)
		require.Empty(t, problems)
	})
}
