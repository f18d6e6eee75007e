package aliveness

import (
	"time"

	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
)

// WorkerAliveness is the state of a single worker at the time a
// Snapshot was created.
type WorkerAliveness struct {
	Status                  Status           `json:"status"`
	BucketIDsBeingProcessed []model.BucketID `json:"bucketIdsBeingProcessed"`
	LastReportTimestamp     *time.Time       `json:"lastReportTimestamp,omitempty"`
	Capabilities            capabilities.Set `json:"capabilities,omitempty"`
}

// IsProcessing returns whether the worker is alive and claims to be
// processing a given bucket.
func (wa *WorkerAliveness) IsProcessing(bucketID model.BucketID) bool {
	if wa.Status != StatusAlive && wa.Status != StatusRegistered {
		return false
	}
	for _, processing := range wa.BucketIDsBeingProcessed {
		if processing == bucketID {
			return true
		}
	}
	return false
}

// Snapshot of the state of all workers known to a Tracker.
type Snapshot struct {
	Timestamp time.Time                          `json:"timestamp"`
	Revision  uint64                             `json:"-"`
	Workers   map[model.WorkerID]WorkerAliveness `json:"workers"`
}

// Get the state of a single worker. Workers that are not part of the
// snapshot are reported as not being registered.
func (s *Snapshot) Get(workerID model.WorkerID) WorkerAliveness {
	if wa, ok := s.Workers[workerID]; ok {
		return wa
	}
	return WorkerAliveness{Status: StatusNotRegistered}
}

// StuckReason returns whether a bucket that was handed out to a worker
// at a given revision of the Tracker is stuck, and why. Assignments
// made after the snapshot was created are never considered stuck.
func (s *Snapshot) StuckReason(workerID model.WorkerID, bucketID model.BucketID, assignmentRevision uint64) (model.StuckBucketReason, bool) {
	if assignmentRevision > s.Revision {
		return "", false
	}
	wa := s.Get(workerID)
	switch wa.Status {
	case StatusBlocked:
		return model.StuckBucketReasonWorkerBlocked, true
	case StatusNotResponding:
		return model.StuckBucketReasonWorkerNotResponding, true
	}
	if wa.IsProcessing(bucketID) {
		return "", false
	}
	return model.StuckBucketReasonBucketLost, true
}
