package queueserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/buildbarn/bb-test-queue/internal/mock"
	"github.com/buildbarn/bb-test-queue/pkg/queueserver"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/aliveness"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/bucketqueue"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/history"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type testServer struct {
	router *mux.Router
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var response T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func newTestServer(ctrl *gomock.Controller, testQueue scheduler.TestQueue) (*testServer, *mock.MockErrorLogger) {
	errorLogger := mock.NewMockErrorLogger(ctrl)
	router := mux.NewRouter()
	queueserver.NewTestQueueService(testQueue, errorLogger, router)
	return &testServer{router: router}, errorLogger
}

func TestTestQueueServiceRoundTrip(t *testing.T) {
	ctrl, _ := gomock.WithContext(context.Background(), t)

	clock := mock.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Unix(1000, 0)).AnyTimes()
	uuidGenerator := mock.NewMockUUIDGenerator(ctrl)
	testQueue := scheduler.NewInMemoryTestQueue(
		clock,
		uuidGenerator.Call,
		aliveness.NewTracker(clock, time.Minute),
		history.NewInMemoryTracker(),
		map[model.WorkerID]capabilities.Set{
			"mac1": {"os": "macos"},
		})
	s, _ := newTestServer(ctrl, testQueue)

	// Register a worker and enqueue a bucket that it is capable of
	// running.
	w := s.do(t, http.MethodPost, "/api/v1/workers/mac1/register", `{"capabilities": {"xcode": "15.2"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, queueserver.RegisterWorkerResponse{
		Capabilities: capabilities.Set{"os": "macos", "xcode": "15.2"},
	}, decodeResponse[queueserver.RegisterWorkerResponse](t, w))

	// Workers without a configuration may not register.
	w = s.do(t, http.MethodPost, "/api/v1/workers/mac2/register", `{}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/jobs/job1/buckets", `{
		"prioritizedJob": {"jobGroupId": "group1", "jobPriority": 500, "jobGroupPriority": 500},
		"buckets": [{
			"bucketId": "bucket1",
			"testEntries": [{"className": "LoginTests", "methodName": "testLogin"}],
			"testDestination": {"deviceType": "iPhone 15", "runtime": "17.2"},
			"capabilityRequirements": [{"name": "xcode", "constraint": {"type": "equal", "value": "15.2"}}]
		}]
	}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, queueserver.OngoingJobsResponse{
		JobIDs:      []job.JobID{"job1"},
		JobGroupIDs: []job.JobGroupID{"group1"},
	}, decodeResponse[queueserver.OngoingJobsResponse](t, w))

	// Dequeue the bucket. A second request yields no content.
	w = s.do(t, http.MethodPost, "/api/v1/workers/mac1/dequeue", "")
	require.Equal(t, http.StatusOK, w.Code)
	dequeuedBucket := decodeResponse[model.DequeuedBucket](t, w)
	require.Equal(t, model.BucketID("bucket1"), dequeuedBucket.EnqueuedBucket.Bucket.BucketID)
	require.Equal(t, model.WorkerID("mac1"), dequeuedBucket.WorkerID)

	w = s.do(t, http.MethodPost, "/api/v1/workers/mac1/dequeue", `{}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/workers/mac1/heartbeat", `{"bucketIds": ["bucket1"]}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/queue", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, bucketqueue.State{
		DequeuedBucketCount: 1,
		EnqueuedTests:       []string{},
		DequeuedTests: map[model.WorkerID][]string{
			"mac1": {"LoginTests/testLogin"},
		},
	}, decodeResponse[bucketqueue.State](t, w))

	// Report the result of the bucket.
	w = s.do(t, http.MethodPost, "/api/v1/workers/mac1/results", `{
		"bucketId": "bucket1",
		"unfilteredResults": [{"testEntry": {"className": "LoginTests", "methodName": "testLogin"}, "succeeded": true}]
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	acceptResult := decodeResponse[bucketqueue.AcceptResult](t, w)
	require.Len(t, acceptResult.TestingResultToCollect.UnfilteredResults, 1)
	require.Empty(t, acceptResult.ReenqueuedBuckets)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/job1/results", "")
	require.Equal(t, http.StatusOK, w.Code)
	jobResults := decodeResponse[scheduler.JobResults](t, w)
	require.Len(t, jobResults.TestingResults, 1)

	w = s.do(t, http.MethodDelete, "/api/v1/jobs/job1", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/job1/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	jobState := decodeResponse[scheduler.JobState](t, w)
	require.True(t, jobState.Deleted)

	w = s.do(t, http.MethodPost, "/api/v1/workers/mac1/block", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/workers", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"blocked"`)
	w = s.do(t, http.MethodPost, "/api/v1/workers/mac1/unblock", "")
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestTestQueueServiceErrors(t *testing.T) {
	ctrl, _ := gomock.WithContext(context.Background(), t)

	testQueue := mock.NewMockTestQueue(ctrl)
	s, errorLogger := newTestServer(ctrl, testQueue)

	t.Run("MalformedBody", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/jobs/job1/buckets", `{"buckets": [`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "InvalidArgument", decodeResponse[queueserver.ErrorResponse](t, w).Code)
	})

	t.Run("UnknownField", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/workers/mac1/heartbeat", `{"buckets": []}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MissingBucketID", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/workers/mac1/results", `{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, queueserver.ErrorResponse{
			Code:    "InvalidArgument",
			Message: "Testing result has no bucket ID",
		}, decodeResponse[queueserver.ErrorResponse](t, w))
	})

	t.Run("NotFound", func(t *testing.T) {
		testQueue.EXPECT().DeleteJob(gomock.Any(), job.JobID("job1")).Return(status.Error(codes.NotFound, "Unknown job \"job1\""))
		w := s.do(t, http.MethodDelete, "/api/v1/jobs/job1", "")
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, queueserver.ErrorResponse{
			Code:    "NotFound",
			Message: "Unknown job \"job1\"",
		}, decodeResponse[queueserver.ErrorResponse](t, w))
	})

	t.Run("Conflict", func(t *testing.T) {
		testQueue.EXPECT().AcceptBucketResult(gomock.Any(), model.BucketID("bucket1"), gomock.Any(), model.WorkerID("mac2")).
			Return(nil, status.Error(codes.FailedPrecondition, "Bucket \"bucket1\" is owned by worker \"mac1\", not by worker \"mac2\""))
		w := s.do(t, http.MethodPost, "/api/v1/workers/mac2/results", `{"bucketId": "bucket1"}`)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("AlreadyRegistered", func(t *testing.T) {
		testQueue.EXPECT().RegisterWorker(gomock.Any(), model.WorkerID("mac1"), capabilities.Set{"xcode": "15.2"}).
			Return(nil, status.Error(codes.AlreadyExists, "Worker \"mac1\" is already registered"))
		w := s.do(t, http.MethodPost, "/api/v1/workers/mac1/register", `{"capabilities": {"xcode": "15.2"}}`)
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, queueserver.ErrorResponse{
			Code:    "AlreadyExists",
			Message: "Worker \"mac1\" is already registered",
		}, decodeResponse[queueserver.ErrorResponse](t, w))
	})

	t.Run("InternalError", func(t *testing.T) {
		// Errors that aren't caused by the client are logged.
		err := status.Error(codes.Internal, "Failed to generate bucket ID: Out of entropy")
		testQueue.EXPECT().AcceptBucketResult(gomock.Any(), model.BucketID("bucket1"), gomock.Any(), model.WorkerID("mac1")).Return(nil, err)
		errorLogger.EXPECT().Log(err)
		w := s.do(t, http.MethodPost, "/api/v1/workers/mac1/results", `{"bucketId": "bucket1"}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/jobs/job1", "")
		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
