package aliases

import (
	"github.com/google/uuid"
)

// This file contains aliases for function types for which mocks need
// to be generated. mockgen can only generate mocks for interfaces, so
// the function types are rewritten to interfaces having a single Call()
// method. Tests pass the Call method of the mock to the code under
// test.

// UUIDGenerator corresponds to bb-storage's util.UUIDGenerator.
type UUIDGenerator interface {
	Call() (uuid.UUID, error)
}
