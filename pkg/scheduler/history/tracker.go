package history

import (
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
)

// Decision on how to proceed with a test after an attempt of running
// it has been recorded.
type Decision struct {
	// Whether the test needs to be attempted again. If not, the
	// result of the last attempt is final.
	Retry bool
	// If retrying, the worker that should preferably not be used for
	// the next attempt.
	ExcludedWorkerID model.WorkerID
}

// Final returns a Decision to finalize the result of a test.
func Final() Decision {
	return Decision{}
}

// Retry returns a Decision to attempt a test again, preferably on a
// worker other than the one provided.
func Retry(excludedWorkerID model.WorkerID) Decision {
	return Decision{
		Retry:            true,
		ExcludedWorkerID: excludedWorkerID,
	}
}

// Entry in the history of a test.
type Entry struct {
	JobID    job.JobID             `json:"jobId"`
	WorkerID model.WorkerID        `json:"workerId"`
	Result   model.TestEntryResult `json:"result"`
	// Zero based index of the attempt within the job.
	AttemptIndex int `json:"attemptIndex"`
}

// Tracker of the history of attempts of running tests. Attempts are
// tracked per job, meaning that retry budgets are not shared between
// jobs running the same tests.
type Tracker interface {
	// Record the result of an attempt of running a test.
	RecordAttempt(jobID job.JobID, workerID model.WorkerID, result model.TestEntryResult) Entry
	// Determine whether a test needs to be retried, based on the
	// attempts recorded so far and the number of retries that the
	// job permits.
	ShouldRetry(jobID job.JobID, testEntry model.TestEntry, retryBudget uint32) Decision
	// Return all attempts of a test recorded so far.
	Attempts(jobID job.JobID, testEntry model.TestEntry) []Entry
}
