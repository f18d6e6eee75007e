package job

import (
	"time"
)

// ExecutionOrder is the outcome of comparing two jobs using Compare.
type ExecutionOrder int

const (
	// Before indicates that the first job is scheduled before the
	// second one.
	Before ExecutionOrder = iota - 1
	// Equal is only returned when a job is compared against itself.
	Equal
	// After indicates that the first job is scheduled after the
	// second one.
	After
)

func (o ExecutionOrder) String() string {
	switch o {
	case Before:
		return "before"
	case Equal:
		return "equal"
	case After:
		return "after"
	default:
		return "unknown"
	}
}

// Scheduled is a job together with the group it belongs to. This is
// the pair over which the execution order is defined.
type Scheduled struct {
	Job      Job
	JobGroup JobGroup
}

func compareProperties(priorityA Priority, creationTimeA time.Time, priorityB Priority, creationTimeB time.Time) ExecutionOrder {
	if priorityA > priorityB {
		return Before
	}
	if priorityA < priorityB {
		return After
	}
	if creationTimeA.Before(creationTimeB) {
		return Before
	}
	if creationTimeA.After(creationTimeB) {
		return After
	}
	return Equal
}

// Compare two jobs to determine which one's buckets need to be handed
// out first.
//
// Job groups are compared first, using the group's priority and
// falling back to the group's creation time. Only if both groups are
// equivalent are the properties of the jobs themselves considered, in
// the same way. This means that the relative order of two jobs in
// different groups is fully determined by their groups. Remaining ties
// are broken by job ID, causing the order to be total.
func Compare(a, b *Scheduled) ExecutionOrder {
	if order := compareProperties(a.JobGroup.Priority, a.JobGroup.CreationTime, b.JobGroup.Priority, b.JobGroup.CreationTime); order != Equal {
		return order
	}
	if order := compareProperties(a.Job.Priority, a.Job.CreationTime, b.Job.Priority, b.Job.CreationTime); order != Equal {
		return order
	}
	switch {
	case a.Job.JobID < b.Job.JobID:
		return Before
	case a.Job.JobID > b.Job.JobID:
		return After
	default:
		return Equal
	}
}
