package job

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// JobID identifies a single submission of buckets by a client.
type JobID string

// JobGroupID identifies a group of jobs.
type JobGroupID string

// Priority of a job or job group. Higher values are scheduled first.
type Priority uint32

// Job is a submission of buckets by a client.
type Job struct {
	JobID        JobID
	CreationTime time.Time
	Priority     Priority
	JobGroupID   JobGroupID
	// The number of additional attempts a failing test of this job
	// may receive.
	RetryBudget uint32
}

// JobGroup groups jobs that share a priority. Jobs in different groups
// are ordered by the properties of their groups first.
type JobGroup struct {
	JobGroupID   JobGroupID
	CreationTime time.Time
	Priority     Priority
}

// PrioritizedJob is what a client provides alongside the buckets it
// enqueues. The queue turns it into a Job and a JobGroup when the job
// is first seen.
type PrioritizedJob struct {
	JobID            JobID      `json:"jobId"`
	JobPriority      Priority   `json:"jobPriority"`
	JobGroupID       JobGroupID `json:"jobGroupId"`
	JobGroupPriority Priority   `json:"jobGroupPriority"`
	RetryBudget      uint32     `json:"retryBudget"`
	AnalyticsTag     string     `json:"analyticsTag,omitempty"`
}

// Validate that the job can be scheduled.
func (pj *PrioritizedJob) Validate() error {
	if pj.JobID == "" {
		return status.Error(codes.InvalidArgument, "Job has no ID")
	}
	if pj.JobGroupID == "" {
		return status.Errorf(codes.InvalidArgument, "Job %#v has no job group ID", pj.JobID)
	}
	return nil
}

// NewJob creates a new Job for a PrioritizedJob, created at a given
// point in time.
func (pj *PrioritizedJob) NewJob(now time.Time) Job {
	return Job{
		JobID:        pj.JobID,
		CreationTime: now,
		Priority:     pj.JobPriority,
		JobGroupID:   pj.JobGroupID,
		RetryBudget:  pj.RetryBudget,
	}
}

// NewJobGroup creates a new JobGroup for a PrioritizedJob, created at a
// given point in time.
func (pj *PrioritizedJob) NewJobGroup(now time.Time) JobGroup {
	return JobGroup{
		JobGroupID:   pj.JobGroupID,
		CreationTime: now,
		Priority:     pj.JobGroupPriority,
	}
}

// JobGroupKey identifies a tracked job group. Jobs referencing the
// same group ID with different priorities are placed in separate
// groups.
type JobGroupKey struct {
	JobGroupID JobGroupID
	Priority   Priority
}

// Key returns the key under which the job group is tracked.
func (jg *JobGroup) Key() JobGroupKey {
	return JobGroupKey{
		JobGroupID: jg.JobGroupID,
		Priority:   jg.Priority,
	}
}

// JobGroupKey returns the key of the job group to which the job
// belongs.
func (pj *PrioritizedJob) JobGroupKey() JobGroupKey {
	return JobGroupKey{
		JobGroupID: pj.JobGroupID,
		Priority:   pj.JobGroupPriority,
	}
}
