package history

import (
	"sync"

	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
)

type testKey struct {
	jobID     job.JobID
	testEntry model.TestEntry
}

type inMemoryTracker struct {
	lock    sync.Mutex
	entries map[testKey][]Entry
}

// NewInMemoryTracker creates a Tracker that keeps the history of all
// tests in memory. Entries are never removed, as results of jobs
// remain queryable for the lifetime of the process.
func NewInMemoryTracker() Tracker {
	return &inMemoryTracker{
		entries: map[testKey][]Entry{},
	}
}

func (t *inMemoryTracker) RecordAttempt(jobID job.JobID, workerID model.WorkerID, result model.TestEntryResult) Entry {
	t.lock.Lock()
	defer t.lock.Unlock()

	key := testKey{jobID: jobID, testEntry: result.TestEntry}
	entry := Entry{
		JobID:        jobID,
		WorkerID:     workerID,
		Result:       result,
		AttemptIndex: len(t.entries[key]),
	}
	t.entries[key] = append(t.entries[key], entry)
	return entry
}

func (t *inMemoryTracker) ShouldRetry(jobID job.JobID, testEntry model.TestEntry, retryBudget uint32) Decision {
	t.lock.Lock()
	defer t.lock.Unlock()

	entries := t.entries[testKey{jobID: jobID, testEntry: testEntry}]
	if len(entries) == 0 {
		return Final()
	}
	last := &entries[len(entries)-1]
	if last.Result.Succeeded || uint64(len(entries)) >= 1+uint64(retryBudget) {
		return Final()
	}
	return Retry(last.WorkerID)
}

func (t *inMemoryTracker) Attempts(jobID job.JobID, testEntry model.TestEntry) []Entry {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]Entry(nil), t.entries[testKey{jobID: jobID, testEntry: testEntry}]...)
}
