package history_test

import (
	"testing"

	"github.com/buildbarn/bb-test-queue/pkg/scheduler/history"
	"github.com/buildbarn/bb-test-queue/pkg/scheduler/model"
	"github.com/stretchr/testify/require"
)

var testLogin = model.TestEntry{ClassName: "LoginTests", MethodName: "testLogin"}

func TestInMemoryTrackerShouldRetry(t *testing.T) {
	t.Run("NoAttempts", func(t *testing.T) {
		tracker := history.NewInMemoryTracker()
		require.Equal(t, history.Final(), tracker.ShouldRetry("job", testLogin, 3))
	})

	t.Run("Success", func(t *testing.T) {
		tracker := history.NewInMemoryTracker()
		tracker.RecordAttempt("job", "worker1", model.TestEntryResult{TestEntry: testLogin, Succeeded: true})
		require.Equal(t, history.Final(), tracker.ShouldRetry("job", testLogin, 3))
	})

	t.Run("NoRetryBudget", func(t *testing.T) {
		tracker := history.NewInMemoryTracker()
		tracker.RecordAttempt("job", "worker1", model.TestEntryResult{TestEntry: testLogin})
		require.Equal(t, history.Final(), tracker.ShouldRetry("job", testLogin, 0))
	})

	t.Run("BudgetExhausted", func(t *testing.T) {
		// With a budget of one retry, the first failure is retried
		// and the second one is final.
		tracker := history.NewInMemoryTracker()
		tracker.RecordAttempt("job", "worker1", model.TestEntryResult{TestEntry: testLogin})
		require.Equal(t, history.Retry("worker1"), tracker.ShouldRetry("job", testLogin, 1))
		tracker.RecordAttempt("job", "worker2", model.TestEntryResult{TestEntry: testLogin})
		require.Equal(t, history.Final(), tracker.ShouldRetry("job", testLogin, 1))
	})

	t.Run("MostRecentWorkerExcluded", func(t *testing.T) {
		tracker := history.NewInMemoryTracker()
		tracker.RecordAttempt("job", "worker1", model.TestEntryResult{TestEntry: testLogin})
		tracker.RecordAttempt("job", "worker2", model.TestEntryResult{TestEntry: testLogin, Lost: true})
		require.Equal(t, history.Retry("worker2"), tracker.ShouldRetry("job", testLogin, 5))
	})

	t.Run("JobsAreIndependent", func(t *testing.T) {
		tracker := history.NewInMemoryTracker()
		tracker.RecordAttempt("job1", "worker1", model.TestEntryResult{TestEntry: testLogin})
		tracker.RecordAttempt("job1", "worker1", model.TestEntryResult{TestEntry: testLogin})
		tracker.RecordAttempt("job2", "worker1", model.TestEntryResult{TestEntry: testLogin})
		require.Equal(t, history.Final(), tracker.ShouldRetry("job1", testLogin, 1))
		require.Equal(t, history.Retry("worker1"), tracker.ShouldRetry("job2", testLogin, 1))
	})
}

func TestInMemoryTrackerAttempts(t *testing.T) {
	tracker := history.NewInMemoryTracker()
	require.Empty(t, tracker.Attempts("job", testLogin))

	first := tracker.RecordAttempt("job", "worker1", model.TestEntryResult{TestEntry: testLogin})
	second := tracker.RecordAttempt("job", "worker2", model.TestEntryResult{TestEntry: testLogin, Succeeded: true})
	require.Equal(t, 0, first.AttemptIndex)
	require.Equal(t, 1, second.AttemptIndex)
	require.Equal(t, []history.Entry{first, second}, tracker.Attempts("job", testLogin))
}
