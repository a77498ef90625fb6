package dbsequence

import (
	"errors"
	"fmt"
)

// ErrSequenceNotFound matches every *NotFoundError through errors.Is
var ErrSequenceNotFound = errors.New("sequence not found")

// NotFoundError is returned in strict mode when the store object for a sequence has
// not been provisioned. No value is allocated.
type NotFoundError struct {
	Name      string
	Entity    string
	Attribute string
	// StartValue is the first value the object would hand out once provisioned
	StartValue int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sequence %q not found for %s#%s, calculated start value: %d",
		e.Name, e.Entity, e.Attribute, e.StartValue)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrSequenceNotFound
}
