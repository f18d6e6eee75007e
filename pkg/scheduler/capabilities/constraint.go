package capabilities

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/buildbarn/bb-storage/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ConstraintType identifies the kind of test a Constraint performs on
// the value of a single capability.
type ConstraintType string

const (
	// ConstraintTypePresent holds if the worker declares the capability.
	ConstraintTypePresent ConstraintType = "present"
	// ConstraintTypeAbsent holds if the worker does not declare the
	// capability.
	ConstraintTypeAbsent ConstraintType = "absent"
	// ConstraintTypeEqual holds if the capability is declared with
	// exactly the provided value.
	ConstraintTypeEqual ConstraintType = "equal"
	// ConstraintTypeLessThan holds if the capability is declared with
	// a value smaller than the provided one. Values are compared
	// numerically if both of them parse as numbers, and
	// lexicographically otherwise.
	ConstraintTypeLessThan ConstraintType = "lessThan"
	// ConstraintTypeGreaterThan is the counterpart of
	// ConstraintTypeLessThan.
	ConstraintTypeGreaterThan ConstraintType = "greaterThan"
	// ConstraintTypeNot holds if its single operand does not.
	ConstraintTypeNot ConstraintType = "not"
	// ConstraintTypeAll holds if all of its operands hold. Without
	// operands it always holds.
	ConstraintTypeAll ConstraintType = "all"
	// ConstraintTypeAny holds if at least one of its operands holds.
	// Without operands it never holds.
	ConstraintTypeAny ConstraintType = "any"
)

// Constraint on the value of a capability. Constraints form a tree:
// ConstraintTypeNot has exactly one operand, while ConstraintTypeAll
// and ConstraintTypeAny have an arbitrary number of them. The other
// types are leaves, of which the comparison types carry a Value.
type Constraint struct {
	Type     ConstraintType
	Value    string
	Operands []Constraint
}

// Present creates a Constraint that requires a capability to be
// declared, regardless of its value.
func Present() Constraint {
	return Constraint{Type: ConstraintTypePresent}
}

// Absent creates a Constraint that requires a capability not to be
// declared.
func Absent() Constraint {
	return Constraint{Type: ConstraintTypeAbsent}
}

// Equal creates a Constraint that requires a capability to be declared
// with a given value.
func Equal(value string) Constraint {
	return Constraint{Type: ConstraintTypeEqual, Value: value}
}

// LessThan creates a Constraint that requires a capability to be
// declared with a value smaller than the one provided.
func LessThan(value string) Constraint {
	return Constraint{Type: ConstraintTypeLessThan, Value: value}
}

// GreaterThan creates a Constraint that requires a capability to be
// declared with a value greater than the one provided.
func GreaterThan(value string) Constraint {
	return Constraint{Type: ConstraintTypeGreaterThan, Value: value}
}

// Not inverts the outcome of a Constraint.
func Not(operand Constraint) Constraint {
	return Constraint{Type: ConstraintTypeNot, Operands: []Constraint{operand}}
}

// All creates a Constraint that holds if all of its operands hold. An
// empty list of operands always holds.
func All(operands ...Constraint) Constraint {
	return Constraint{Type: ConstraintTypeAll, Operands: operands}
}

// Any creates a Constraint that holds if at least one of its operands
// holds. An empty list of operands never holds.
func Any(operands ...Constraint) Constraint {
	return Constraint{Type: ConstraintTypeAny, Operands: operands}
}

// Validate the structure of a Constraint, so that malformed trees are
// rejected at the time buckets are enqueued.
func (c Constraint) Validate() error {
	switch c.Type {
	case ConstraintTypePresent, ConstraintTypeAbsent:
		if c.Value != "" || len(c.Operands) != 0 {
			return status.Errorf(codes.InvalidArgument, "Constraint of type %#v cannot have a value or operands", c.Type)
		}
	case ConstraintTypeEqual, ConstraintTypeLessThan, ConstraintTypeGreaterThan:
		if len(c.Operands) != 0 {
			return status.Errorf(codes.InvalidArgument, "Constraint of type %#v cannot have operands", c.Type)
		}
	case ConstraintTypeNot:
		if len(c.Operands) != 1 {
			return status.Errorf(codes.InvalidArgument, "Constraint of type %#v must have exactly one operand, while it has %d", c.Type, len(c.Operands))
		}
		if err := c.Operands[0].Validate(); err != nil {
			return util.StatusWrap(err, "Operand")
		}
	case ConstraintTypeAll, ConstraintTypeAny:
		for i, operand := range c.Operands {
			if err := operand.Validate(); err != nil {
				return util.StatusWrapf(err, "Operand %d", i)
			}
		}
	default:
		return status.Errorf(codes.InvalidArgument, "Unknown constraint type %#v", c.Type)
	}
	return nil
}

// isSatisfiedBy evaluates the constraint against the value of a
// capability. The present flag is false if the worker does not declare
// the capability at all.
func (c Constraint) isSatisfiedBy(value string, present bool) bool {
	switch c.Type {
	case ConstraintTypePresent:
		return present
	case ConstraintTypeAbsent:
		return !present
	case ConstraintTypeEqual:
		return present && value == c.Value
	case ConstraintTypeLessThan:
		return present && compareValues(value, c.Value) < 0
	case ConstraintTypeGreaterThan:
		return present && compareValues(value, c.Value) > 0
	case ConstraintTypeNot:
		return len(c.Operands) == 1 && !c.Operands[0].isSatisfiedBy(value, present)
	case ConstraintTypeAll:
		for _, operand := range c.Operands {
			if !operand.isSatisfiedBy(value, present) {
				return false
			}
		}
		return true
	case ConstraintTypeAny:
		for _, operand := range c.Operands {
			if operand.isSatisfiedBy(value, present) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func compareValues(a, b string) int {
	if fa, err := strconv.ParseFloat(a, 64); err == nil {
		if fb, err := strconv.ParseFloat(b, 64); err == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(a, b)
}

func (c Constraint) String() string {
	switch c.Type {
	case ConstraintTypePresent, ConstraintTypeAbsent:
		return string(c.Type)
	case ConstraintTypeEqual, ConstraintTypeLessThan, ConstraintTypeGreaterThan:
		return fmt.Sprintf("%s(%#v)", c.Type, c.Value)
	default:
		operands := make([]string, 0, len(c.Operands))
		for _, operand := range c.Operands {
			operands = append(operands, operand.String())
		}
		return fmt.Sprintf("%s(%s)", c.Type, strings.Join(operands, ", "))
	}
}

type constraintJSON struct {
	Type  ConstraintType  `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON converts a Constraint to the form
// {"type": ..., "value": ...}, where the value is a string for
// comparisons, a constraint for "not" and a list of constraints for
// "all" and "any".
func (c Constraint) MarshalJSON() ([]byte, error) {
	var value any
	switch c.Type {
	case ConstraintTypePresent, ConstraintTypeAbsent:
	case ConstraintTypeNot:
		if len(c.Operands) != 1 {
			return nil, status.Errorf(codes.InvalidArgument, "Constraint of type %#v must have exactly one operand, while it has %d", c.Type, len(c.Operands))
		}
		value = c.Operands[0]
	case ConstraintTypeAll, ConstraintTypeAny:
		operands := c.Operands
		if operands == nil {
			operands = []Constraint{}
		}
		value = operands
	default:
		value = c.Value
	}
	out := constraintJSON{Type: c.Type}
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		out.Value = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON. The resulting
// constraint is validated.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	var in constraintJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	parsed := Constraint{Type: in.Type}
	hasValue := len(in.Value) > 0 && string(in.Value) != "null"
	switch in.Type {
	case ConstraintTypePresent, ConstraintTypeAbsent, "missing":
		if hasValue {
			return status.Errorf(codes.InvalidArgument, "Constraint of type %#v cannot have a value", in.Type)
		}
		if in.Type == "missing" {
			parsed.Type = ConstraintTypeAbsent
		}
	case ConstraintTypeNot:
		if !hasValue {
			return status.Error(codes.InvalidArgument, "Constraint of type \"not\" requires an operand")
		}
		var operand Constraint
		if err := json.Unmarshal(in.Value, &operand); err != nil {
			return err
		}
		parsed.Operands = []Constraint{operand}
	case ConstraintTypeAll, ConstraintTypeAny:
		if hasValue {
			if err := json.Unmarshal(in.Value, &parsed.Operands); err != nil {
				return err
			}
		}
	default:
		if hasValue {
			if err := json.Unmarshal(in.Value, &parsed.Value); err != nil {
				return err
			}
		}
	}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*c = parsed
	return nil
}
