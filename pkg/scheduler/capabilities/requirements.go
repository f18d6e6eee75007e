package capabilities

import (
	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Set of capabilities declared by a worker, keyed by capability name.
// Capabilities that don't carry a meaningful value map to the empty
// string.
type Set map[string]string

// Clone returns a copy of the set that may be retained after the
// original is modified by its owner.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	n := make(Set, len(s))
	for name, value := range s {
		n[name] = value
	}
	return n
}

// Requirement that a bucket imposes on a single capability of the
// worker executing it.
type Requirement struct {
	Name       string     `json:"name"`
	Constraint Constraint `json:"constraint"`
}

// Requirements of a bucket. All of them need to hold for a worker to
// be permitted to execute it.
type Requirements []Requirement

// SatisfiedBy returns whether a worker declaring a given set of
// capabilities may execute a bucket with these requirements. A
// capability that is not declared is evaluated as being absent.
func (r Requirements) SatisfiedBy(s Set) bool {
	for _, requirement := range r {
		value, ok := s[requirement.Name]
		if !requirement.Constraint.isSatisfiedBy(value, ok) {
			return false
		}
	}
	return true
}

// Validate all requirements.
func (r Requirements) Validate() error {
	for _, requirement := range r {
		if requirement.Name == "" {
			return status.Error(codes.InvalidArgument, "Capability requirement has no name")
		}
		if err := requirement.Constraint.Validate(); err != nil {
			return util.StatusWrapf(err, "Invalid constraint for capability %#v", requirement.Name)
		}
	}
	return nil
}
