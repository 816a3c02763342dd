package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// PageStatus is the outcome of one range request.
type PageStatus int

const (
	// PageRecords means the page carried at least one record.
	PageRecords PageStatus = iota
	// PageEmpty means the API signaled end-of-data for the requested range.
	PageEmpty
	// PageMalformed means the body did not have a recognizable shape.
	PageMalformed
)

func (s PageStatus) String() string {
	switch s {
	case PageRecords:
		return "records"
	case PageEmpty:
		return "empty"
	case PageMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("PageStatus(%d)", int(s))
	}
}

// Page is one bounded-range response from the station API.
//
// Records are kept as raw JSON so the ingestor never reinterprets fields that
// belong to the API.
type Page struct {
	Status  PageStatus
	Records []json.RawMessage

	// TotalCount is the API-reported list_total_count, 0 when absent.
	TotalCount int
	// Code and Message echo the API RESULT block, if any.
	Code    string
	Message string

	// Reason explains a PageMalformed status.
	Reason string
}

// Sourcer fetches the inclusive index range [start, end].
//
// A transport failure or an HTTP error status is returned as an error. A body
// that arrives but cannot be understood is returned as a PageMalformed page.
type Sourcer interface {
	FetchPage(ctx context.Context, start, end int) (Page, error)
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Retryable reports whether a FetchPage error is transient: 5xx and 429
// statuses, timeouts and network-level failures. Context cancellation is
// never retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return false
}
