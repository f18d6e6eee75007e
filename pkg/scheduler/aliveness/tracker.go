package aliveness

import (
	"sort"
	"sync"
	"time"

	"github.com/buildbarn/bb-storage/pkg/clock"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status of a worker, as observed by the Tracker.
type Status int

const (
	// StatusNotRegistered is reported for workers that the Tracker
	// has never seen.
	StatusNotRegistered Status = iota
	// StatusRegistered is reported for workers that registered, but
	// never reported in afterwards.
	StatusRegistered
	// StatusAlive is reported for workers that reported in recently.
	StatusAlive
	// StatusNotResponding is reported for workers whose last report
	// is older than the maximum permitted duration. Buckets claimed
	// by these workers are considered stuck.
	StatusNotResponding
	// StatusBlocked is reported for workers that have been disabled
	// administratively. They are not handed out any buckets.
	StatusBlocked
)

var statusNames = map[Status]string{
	StatusNotRegistered: "notRegistered",
	StatusRegistered:    "registered",
	StatusAlive:         "alive",
	StatusNotResponding: "notResponding",
	StatusBlocked:       "blocked",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText converts the status to its name, so that it can be
// embedded in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type workerState struct {
	capabilities        capabilities.Set
	blocked             bool
	hasReported         bool
	lastReportTimestamp time.Time
	bucketIDs           map[model.BucketID]struct{}
}

func (ws *workerState) getStatus(now time.Time, maximumNotReportingDuration time.Duration) Status {
	if ws.blocked {
		return StatusBlocked
	}
	if !ws.hasReported {
		return StatusRegistered
	}
	if now.Sub(ws.lastReportTimestamp) > maximumNotReportingDuration {
		return StatusNotResponding
	}
	return StatusAlive
}

func (ws *workerState) report(now time.Time) {
	ws.hasReported = true
	ws.lastReportTimestamp = now
}

// Tracker of the status of workers and the buckets they are
// processing.
//
// Whether a worker is responding is not tracked using timers. It is
// computed from the time of its last report every time it is
// requested.
type Tracker struct {
	clock                       clock.Clock
	maximumNotReportingDuration time.Duration

	lock    sync.Mutex
	workers map[model.WorkerID]*workerState
	// Incremented on every change, so that snapshots can be ordered
	// relative to the assignments of buckets to workers.
	revision uint64
}

// NewTracker creates a Tracker that considers workers to be no longer
// responding if they haven't reported in for longer than
// maximumNotReportingDuration.
func NewTracker(clock clock.Clock, maximumNotReportingDuration time.Duration) *Tracker {
	return &Tracker{
		clock:                       clock,
		maximumNotReportingDuration: maximumNotReportingDuration,
		workers:                     map[model.WorkerID]*workerState{},
	}
}

// Register a worker. Workers that are alive or blocked may not
// register again. A worker that stopped responding may, in which case
// it loses all of the buckets it claimed to process.
func (t *Tracker) Register(workerID model.WorkerID, workerCapabilities capabilities.Set) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	ws, ok := t.workers[workerID]
	if ok {
		if ws.blocked || (ws.hasReported && ws.getStatus(t.clock.Now(), t.maximumNotReportingDuration) == StatusAlive) {
			return status.Errorf(codes.AlreadyExists, "Worker %#v is already registered", workerID)
		}
	} else {
		ws = &workerState{}
		t.workers[workerID] = ws
	}
	ws.capabilities = workerCapabilities.Clone()
	ws.hasReported = false
	ws.bucketIDs = map[model.BucketID]struct{}{}
	t.revision++
	return nil
}

func (t *Tracker) getWorker(workerID model.WorkerID) (*workerState, error) {
	ws, ok := t.workers[workerID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Worker %#v is not registered", workerID)
	}
	return ws, nil
}

// SetInFlightBuckets replaces the set of buckets a worker claims to be
// processing. Calling this method counts as a sign of life. Reports
// from blocked workers are ignored.
func (t *Tracker) SetInFlightBuckets(workerID model.WorkerID, bucketIDs []model.BucketID) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	ws, err := t.getWorker(workerID)
	if err != nil {
		return err
	}
	if ws.blocked {
		return nil
	}
	ws.report(t.clock.Now())
	ws.bucketIDs = make(map[model.BucketID]struct{}, len(bucketIDs))
	for _, bucketID := range bucketIDs {
		ws.bucketIDs[bucketID] = struct{}{}
	}
	t.revision++
	return nil
}

// WillDequeueBucket is called when a worker requests a bucket. The
// request counts as a sign of life, and updates the capabilities of
// the worker if provided. It returns the capabilities to use for
// matching buckets, or an error if the worker may not be handed out
// any buckets.
func (t *Tracker) WillDequeueBucket(workerID model.WorkerID, workerCapabilities capabilities.Set) (capabilities.Set, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	ws, err := t.getWorker(workerID)
	if err != nil {
		return nil, err
	}
	if ws.blocked {
		return nil, status.Errorf(codes.FailedPrecondition, "Worker %#v is blocked", workerID)
	}
	ws.report(t.clock.Now())
	if workerCapabilities != nil {
		ws.capabilities = workerCapabilities.Clone()
	}
	t.revision++
	return ws.capabilities.Clone(), nil
}

// DidDequeueBucket records that a bucket has been handed out to a
// worker. It returns the revision of the tracker containing this
// assignment.
func (t *Tracker) DidDequeueBucket(workerID model.WorkerID, bucketID model.BucketID) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if ws, ok := t.workers[workerID]; ok && !ws.blocked {
		ws.bucketIDs[bucketID] = struct{}{}
	}
	t.revision++
	return t.revision
}

// Block a worker, so that it no longer receives any buckets. Buckets
// that the worker was processing are considered stuck.
func (t *Tracker) Block(workerID model.WorkerID) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	ws, err := t.getWorker(workerID)
	if err != nil {
		return err
	}
	ws.blocked = true
	ws.bucketIDs = map[model.BucketID]struct{}{}
	t.revision++
	return nil
}

// Unblock a worker. The worker needs to report in before it is
// considered alive again.
func (t *Tracker) Unblock(workerID model.WorkerID) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	ws, err := t.getWorker(workerID)
	if err != nil {
		return err
	}
	if ws.blocked {
		ws.blocked = false
		ws.hasReported = false
		t.revision++
	}
	return nil
}

// IsEligibleForDequeue returns whether a worker is alive and not
// blocked.
func (t *Tracker) IsEligibleForDequeue(workerID model.WorkerID) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	ws, ok := t.workers[workerID]
	return ok && ws.getStatus(t.clock.Now(), t.maximumNotReportingDuration) == StatusAlive
}

// WorkersInWorkingCondition returns the capabilities of all workers
// that are alive and not blocked.
func (t *Tracker) WorkersInWorkingCondition() map[model.WorkerID]capabilities.Set {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.clock.Now()
	workers := map[model.WorkerID]capabilities.Set{}
	for workerID, ws := range t.workers {
		if ws.getStatus(now, t.maximumNotReportingDuration) == StatusAlive {
			workers[workerID] = ws.capabilities.Clone()
		}
	}
	return workers
}

// Snapshot returns a copy of the state of all workers, with statuses
// evaluated at the current time.
func (t *Tracker) Snapshot() *Snapshot {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.clock.Now()
	s := &Snapshot{
		Timestamp: now,
		Revision:  t.revision,
		Workers:   make(map[model.WorkerID]WorkerAliveness, len(t.workers)),
	}
	for workerID, ws := range t.workers {
		s.Workers[workerID] = ws.toAliveness(now, t.maximumNotReportingDuration)
	}
	return s
}

func (ws *workerState) toAliveness(now time.Time, maximumNotReportingDuration time.Duration) WorkerAliveness {
	bucketIDs := make([]model.BucketID, 0, len(ws.bucketIDs))
	for bucketID := range ws.bucketIDs {
		bucketIDs = append(bucketIDs, bucketID)
	}
	sort.Slice(bucketIDs, func(i, j int) bool { return bucketIDs[i] < bucketIDs[j] })
	wa := WorkerAliveness{
		Status:                  ws.getStatus(now, maximumNotReportingDuration),
		BucketIDsBeingProcessed: bucketIDs,
		Capabilities:            ws.capabilities.Clone(),
	}
	if ws.hasReported {
		lastReportTimestamp := ws.lastReportTimestamp
		wa.LastReportTimestamp = &lastReportTimestamp
	}
	return wa
}
