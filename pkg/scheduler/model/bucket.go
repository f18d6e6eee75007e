package model

import (
	"fmt"
	"time"

	"github.com/buildbarn/bb-storage/pkg/util"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/capabilities"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// BucketID uniquely identifies a bucket within the queue.
type BucketID string

// WorkerID identifies a worker that executes buckets.
type WorkerID string

// TestEntry identifies a single test case within a bucket.
type TestEntry struct {
	ClassName  string `json:"className"`
	MethodName string `json:"methodName"`
}

func (te TestEntry) String() string {
	return fmt.Sprintf("%s/%s", te.ClassName, te.MethodName)
}

// TestDestination describes the environment on which the tests in a
// bucket need to run. Its contents are not interpreted by the queue.
type TestDestination struct {
	DeviceType string `json:"deviceType"`
	Runtime    string `json:"runtime"`
}

// Bucket is the unit of work handed out to workers. Buckets are
// created by clients and are not modified afterwards. Retries of a
// subset of its tests are placed in a new bucket with a new ID.
type Bucket struct {
	BucketID               BucketID                  `json:"bucketId"`
	TestEntries            []TestEntry               `json:"testEntries"`
	TestDestination        TestDestination           `json:"testDestination"`
	CapabilityRequirements capabilities.Requirements `json:"capabilityRequirements,omitempty"`
	AnalyticsTag           string                    `json:"analyticsTag,omitempty"`
}

// Validate that a bucket submitted by a client can be scheduled.
func (b *Bucket) Validate() error {
	if b.BucketID == "" {
		return status.Error(codes.InvalidArgument, "Bucket has no ID")
	}
	if len(b.TestEntries) == 0 {
		return status.Errorf(codes.InvalidArgument, "Bucket %#v contains no tests", b.BucketID)
	}
	if err := b.CapabilityRequirements.Validate(); err != nil {
		return util.StatusWrapf(err, "Bucket %#v", b.BucketID)
	}
	return nil
}

// TestNames returns the names of all tests in the bucket, in order.
func (b *Bucket) TestNames() []string {
	names := make([]string, 0, len(b.TestEntries))
	for _, testEntry := range b.TestEntries {
		names = append(names, testEntry.String())
	}
	return names
}

// WithTestEntries returns a copy of the bucket that only contains the
// provided tests, placed under a new bucket ID.
func (b *Bucket) WithTestEntries(bucketID BucketID, testEntries []TestEntry) Bucket {
	n := *b
	n.BucketID = bucketID
	n.TestEntries = testEntries
	return n
}

// EnqueuedBucket is a bucket that is waiting in a queue to be handed
// out to a worker.
type EnqueuedBucket struct {
	Bucket           Bucket    `json:"bucket"`
	EnqueueTimestamp time.Time `json:"enqueueTimestamp"`
	// Strictly increasing within the lifetime of the process. Entries
	// of the same queue are handed out in the order of this value.
	UniqueIdentifier uint64 `json:"uniqueIdentifier"`
	// If set, the worker that last failed tests contained in this
	// bucket. Other workers are preferred when handing it out.
	AvoidedWorkerID WorkerID `json:"avoidedWorkerId,omitempty"`
}

// DequeuedBucket is a bucket that has been handed out to a worker, for
// which no result has been received yet.
type DequeuedBucket struct {
	EnqueuedBucket   EnqueuedBucket `json:"enqueuedBucket"`
	WorkerID         WorkerID       `json:"workerId"`
	DequeueTimestamp time.Time      `json:"dequeueTimestamp"`
	// Revision of the worker aliveness tracker at the time the
	// assignment was recorded. Aliveness snapshots with an older
	// revision cannot be used to conclude the bucket is stuck.
	AlivenessRevision uint64 `json:"-"`
}
