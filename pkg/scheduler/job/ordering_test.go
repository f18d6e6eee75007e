package job_test

import (
	"testing"
	"time"

	"github.com/buildbarn/bb-test-queue/pkg/scheduler/job"
	"github.com/stretchr/testify/require"
)

func newScheduled(jobID job.JobID, jobPriority job.Priority, jobCreation int64, groupID job.JobGroupID, groupPriority job.Priority, groupCreation int64) *job.Scheduled {
	return &job.Scheduled{
		Job: job.Job{
			JobID:        jobID,
			CreationTime: time.Unix(jobCreation, 0),
			Priority:     jobPriority,
			JobGroupID:   groupID,
		},
		JobGroup: job.JobGroup{
			JobGroupID:   groupID,
			CreationTime: time.Unix(groupCreation, 0),
			Priority:     groupPriority,
		},
	}
}

func TestCompare(t *testing.T) {
	t.Run("GroupPriorityDominates", func(t *testing.T) {
		// The group with the higher priority wins, even though it
		// was created later and its job has a lower priority and
		// was created later as well.
		highGroup := newScheduled("job-a", 100, 20, "group-high", 900, 10)
		lowGroup := newScheduled("job-b", 999, 1, "group-low", 100, 1)
		require.Equal(t, job.Before, job.Compare(highGroup, lowGroup))
		require.Equal(t, job.After, job.Compare(lowGroup, highGroup))
	})

	t.Run("GroupCreationTime", func(t *testing.T) {
		older := newScheduled("job-a", 100, 20, "group-1", 500, 1)
		newer := newScheduled("job-b", 900, 5, "group-2", 500, 2)
		require.Equal(t, job.Before, job.Compare(older, newer))
		require.Equal(t, job.After, job.Compare(newer, older))
	})

	t.Run("JobPriorityWithinGroup", func(t *testing.T) {
		medium := newScheduled("job-1", 500, 1, "group", 500, 1)
		highest := newScheduled("job-2", 999, 2, "group", 500, 1)
		require.Equal(t, job.After, job.Compare(medium, highest))
		require.Equal(t, job.Before, job.Compare(highest, medium))
	})

	t.Run("JobCreationTimeWithinGroup", func(t *testing.T) {
		older := newScheduled("job-z", 500, 1, "group", 500, 1)
		newer := newScheduled("job-a", 500, 2, "group", 500, 1)
		require.Equal(t, job.Before, job.Compare(older, newer))
	})

	t.Run("JobIDTieBreak", func(t *testing.T) {
		a := newScheduled("job-a", 500, 1, "group", 500, 1)
		b := newScheduled("job-b", 500, 1, "group", 500, 1)
		require.Equal(t, job.Before, job.Compare(a, b))
		require.Equal(t, job.After, job.Compare(b, a))
		require.Equal(t, job.Equal, job.Compare(a, a))
	})
}

func TestPrioritizedJob(t *testing.T) {
	prioritizedJob := job.PrioritizedJob{
		JobID:            "job",
		JobPriority:      500,
		JobGroupID:       "group",
		JobGroupPriority: 300,
		RetryBudget:      2,
	}
	require.NoError(t, prioritizedJob.Validate())
	require.Equal(t, job.Job{
		JobID:        "job",
		CreationTime: time.Unix(10, 0),
		Priority:     500,
		JobGroupID:   "group",
		RetryBudget:  2,
	}, prioritizedJob.NewJob(time.Unix(10, 0)))

	jobGroup := prioritizedJob.NewJobGroup(time.Unix(10, 0))
	require.Equal(t, job.JobGroupKey{JobGroupID: "group", Priority: 300}, jobGroup.Key())
	require.Equal(t, jobGroup.Key(), prioritizedJob.JobGroupKey())

	require.Error(t, (&job.PrioritizedJob{JobGroupID: "group"}).Validate())
	require.Error(t, (&job.PrioritizedJob{JobID: "job"}).Validate())
}
