package collector

import (
	"errors"
	"fmt"
)

var (
	ErrTransport       = errors.New("collector: transport failure")
	ErrIndexStructure  = errors.New("collector: malformed index")
	ErrInvalidEncoding = errors.New("collector: content is not valid utf-8")
)

// StatusError is returned when the remote answered with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector: http status %d: %s", e.Code, e.URL)
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
