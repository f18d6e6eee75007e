package queueserver

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
	"github.com/gorilla/mux"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// EnqueueBucketsRequest is the body of a request to enqueue buckets
// under a job. The ID of the job is taken from the URL.
type EnqueueBucketsRequest struct {
	PrioritizedJob job.PrioritizedJob `json:"prioritizedJob"`
	Buckets        []model.Bucket     `json:"buckets"`
}

// OngoingJobsResponse lists the jobs that have not been deleted.
type OngoingJobsResponse struct {
	JobIDs      []job.JobID      `json:"jobIds"`
	JobGroupIDs []job.JobGroupID `json:"jobGroupIds"`
}

// WorkerCapabilitiesRequest is the body of requests made by workers to
// register or obtain a bucket. Capabilities may be omitted when
// dequeueing, in which case the ones provided before are used.
type WorkerCapabilitiesRequest struct {
	Capabilities capabilities.Set `json:"capabilities"`
}

// RegisterWorkerResponse is returned to workers upon registration. It
// contains the capabilities the queue uses for matching buckets.
type RegisterWorkerResponse struct {
	Capabilities capabilities.Set `json:"capabilities"`
}

// HeartbeatRequest is sent by workers periodically to report the
// buckets they are processing.
type HeartbeatRequest struct {
	BucketIDs []model.BucketID `json:"bucketIds"`
}

// ErrorResponse is returned for all requests that fail.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TestQueueService exposes a TestQueue over HTTP, using JSON request
// and response bodies.
type TestQueueService struct {
	testQueue   scheduler.TestQueue
	errorLogger util.ErrorLogger
}

// NewTestQueueService creates a TestQueueService and registers its
// handlers on a router. Errors that do not correspond to a mistake
// made by the client are reported through the error logger.
func NewTestQueueService(testQueue scheduler.TestQueue, errorLogger util.ErrorLogger, router *mux.Router) *TestQueueService {
	s := &TestQueueService{
		testQueue:   testQueue,
		errorLogger: errorLogger,
	}
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/jobs", s.handleGetOngoingJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{jobID}", s.handleDeleteJob).Methods(http.MethodDelete)
	api.HandleFunc("/jobs/{jobID}/buckets", s.handleEnqueueBuckets).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{jobID}/results", s.handleGetJobResults).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{jobID}/state", s.handleGetJobState).Methods(http.MethodGet)
	api.HandleFunc("/queue", s.handleGetRunningQueueState).Methods(http.MethodGet)
	api.HandleFunc("/workers", s.handleGetWorkerAliveness).Methods(http.MethodGet)
	api.HandleFunc("/workers/{workerID}/block", s.handleBlockWorker).Methods(http.MethodPost)
	api.HandleFunc("/workers/{workerID}/dequeue", s.handleDequeueBucket).Methods(http.MethodPost)
	api.HandleFunc("/workers/{workerID}/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)
	api.HandleFunc("/workers/{workerID}/register", s.handleRegisterWorker).Methods(http.MethodPost)
	api.HandleFunc("/workers/{workerID}/results", s.handleAcceptBucketResult).Methods(http.MethodPost)
	api.HandleFunc("/workers/{workerID}/unblock", s.handleUnblockWorker).Methods(http.MethodPost)
	return s
}

var httpStatusCodes = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.NotFound:           http.StatusNotFound,
	codes.FailedPrecondition: http.StatusConflict,
	codes.AlreadyExists:      http.StatusConflict,
}

func (s *TestQueueService) writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	httpStatusCode, ok := httpStatusCodes[st.Code()]
	if !ok {
		httpStatusCode = http.StatusInternalServerError
		s.errorLogger.Log(err)
	}
	s.writeJSON(w, httpStatusCode, ErrorResponse{
		Code:    st.Code().String(),
		Message: st.Message(),
	})
}

func (s *TestQueueService) writeJSON(w http.ResponseWriter, httpStatusCode int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Print("Failed to write response: ", err)
	}
}

// readRequest decodes the JSON body of a request. Empty bodies are
// permitted, leaving the request at its zero value.
func readRequest(req *http.Request, request any) error {
	decoder := json.NewDecoder(req.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(request); err != nil && !errors.Is(err, io.EOF) {
		if _, ok := status.FromError(err); ok {
			return util.StatusWrap(err, "Invalid request body")
		}
		return status.Errorf(codes.InvalidArgument, "Invalid request body: %s", err)
	}
	return nil
}

func getJobID(req *http.Request) job.JobID {
	return job.JobID(mux.Vars(req)["jobID"])
}

func getWorkerID(req *http.Request) model.WorkerID {
	return model.WorkerID(mux.Vars(req)["workerID"])
}

func (s *TestQueueService) handleEnqueueBuckets(w http.ResponseWriter, req *http.Request) {
	var request EnqueueBucketsRequest
	if err := readRequest(req, &request); err != nil {
		s.writeError(w, err)
		return
	}
	request.PrioritizedJob.JobID = getJobID(req)
	if err := s.testQueue.EnqueueBuckets(req.Context(), request.Buckets, &request.PrioritizedJob); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TestQueueService) handleDeleteJob(w http.ResponseWriter, req *http.Request) {
	if err := s.testQueue.DeleteJob(req.Context(), getJobID(req)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TestQueueService) handleGetJobState(w http.ResponseWriter, req *http.Request) {
	jobState, err := s.testQueue.GetJobState(req.Context(), getJobID(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobState)
}

func (s *TestQueueService) handleGetJobResults(w http.ResponseWriter, req *http.Request) {
	jobResults, err := s.testQueue.GetJobResults(req.Context(), getJobID(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobResults)
}

func (s *TestQueueService) handleGetOngoingJobs(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	s.writeJSON(w, http.StatusOK, OngoingJobsResponse{
		JobIDs:      s.testQueue.GetOngoingJobIDs(ctx),
		JobGroupIDs: s.testQueue.GetOngoingJobGroupIDs(ctx),
	})
}

func (s *TestQueueService) handleGetRunningQueueState(w http.ResponseWriter, req *http.Request) {
	s.writeJSON(w, http.StatusOK, s.testQueue.GetRunningQueueState(req.Context()))
}

func (s *TestQueueService) handleRegisterWorker(w http.ResponseWriter, req *http.Request) {
	var request WorkerCapabilitiesRequest
	if err := readRequest(req, &request); err != nil {
		s.writeError(w, err)
		return
	}
	workerCapabilities, err := s.testQueue.RegisterWorker(req.Context(), getWorkerID(req), request.Capabilities)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RegisterWorkerResponse{
		Capabilities: workerCapabilities,
	})
}

func (s *TestQueueService) handleHeartbeat(w http.ResponseWriter, req *http.Request) {
	var request HeartbeatRequest
	if err := readRequest(req, &request); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.testQueue.ReportInFlightBuckets(req.Context(), getWorkerID(req), request.BucketIDs); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TestQueueService) handleDequeueBucket(w http.ResponseWriter, req *http.Request) {
	var request WorkerCapabilitiesRequest
	if err := readRequest(req, &request); err != nil {
		s.writeError(w, err)
		return
	}
	dequeuedBucket, err := s.testQueue.DequeueBucket(req.Context(), getWorkerID(req), request.Capabilities)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if dequeuedBucket == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, dequeuedBucket)
}

func (s *TestQueueService) handleAcceptBucketResult(w http.ResponseWriter, req *http.Request) {
	var testingResult model.TestingResult
	if err := readRequest(req, &testingResult); err != nil {
		s.writeError(w, err)
		return
	}
	if testingResult.BucketID == "" {
		s.writeError(w, status.Error(codes.InvalidArgument, "Testing result has no bucket ID"))
		return
	}
	acceptResult, err := s.testQueue.AcceptBucketResult(req.Context(), testingResult.BucketID, testingResult, getWorkerID(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, acceptResult)
}

func (s *TestQueueService) handleBlockWorker(w http.ResponseWriter, req *http.Request) {
	if err := s.testQueue.BlockWorker(req.Context(), getWorkerID(req)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TestQueueService) handleUnblockWorker(w http.ResponseWriter, req *http.Request) {
	if err := s.testQueue.UnblockWorker(req.Context(), getWorkerID(req)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TestQueueService) handleGetWorkerAliveness(w http.ResponseWriter, req *http.Request) {
	s.writeJSON(w, http.StatusOK, s.testQueue.GetWorkerAliveness(req.Context()))
}
