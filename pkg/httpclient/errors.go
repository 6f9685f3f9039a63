package httpclient

import (
	"errors"
	"fmt"
)

// TransportError reports that a stream could not be opened or read.
// Code carries the HTTP status when the server answered with an error status
// and errors are not ignored; otherwise it is 0.
type TransportError struct {
	Code int
	Op   string
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotificationError is returned by the client's notification callback when a
// transport reports a failure event.
type NotificationError struct {
	Code    int
	Message string
	Err     error
}

func (e *NotificationError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("stream notification failure: %v", e.Err)
	}
	return fmt.Sprintf("stream notification failure: %s", e.Message)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// JSONDecodeError is returned when a JSON response body cannot be decoded.
// It is the only error Client.Send passes to its caller.
type JSONDecodeError struct {
	URI string
	Err error
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("JSON Parse Error: %v", e.Err)
}

func (e *JSONDecodeError) Unwrap() error { return e.Err }

// errorCode extracts the status-like code carried by a transport failure.
func errorCode(err error) int {
	var nerr *NotificationError
	if errors.As(err, &nerr) && nerr.Code != 0 {
		return nerr.Code
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.Code
	}
	return 0
}
