package validation

import "fmt"

// Error marks a descriptor as malformed or out of bounds. Requests failing
// validation are rejected before any quota or job state is touched.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func errorf(format string, args ...interface{}) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}
