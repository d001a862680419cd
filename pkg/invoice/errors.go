// pkg/invoice/errors.go

package invoice

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned for invoices that do not exist or belong to another owner.
// The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("invoice not found")

// Violation is a single field-level validation message.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidInputError reports user-correctable problems with submitted line items.
type InvalidInputError struct {
	Violations []Violation
}

func (e *InvalidInputError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Field+": "+v.Message)
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (e *InvalidInputError) add(field, format string, args ...any) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

// err returns e when it holds violations, nil otherwise.
func (e *InvalidInputError) err() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

// StoreFailure wraps a persistence error. It is always fatal to the current call.
type StoreFailure struct {
	Op  string
	Err error
}

func (e *StoreFailure) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreFailure) Unwrap() error { return e.Err }

// IsInvalidInput reports whether err carries an InvalidInputError.
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}
