package news

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput reports a bad country, sector or article count.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound reports a missing record set or curation.
	ErrNotFound = errors.New("not found")
)

// UpstreamError is a failure talking to the search or completion API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned HTTP %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ResponseFormatError is a model reply that does not have the expected shape.
// Raw holds the reply verbatim so the run can be diagnosed and repeated.
type ResponseFormatError struct {
	Raw    string
	Reason string
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf(
		"error parsing the model's reply (%s). Try running again. The reply should be a JSON object such as {\"articles\": [<ids>], \"summary\": \"<paragraph>\"}\nThe received reply was:\n%s",
		e.Reason, e.Raw)
}

// IntegrityError reports selected ids that do not exist in the record set.
type IntegrityError struct {
	Country    Country
	MissingIDs []int
}

func (e *IntegrityError) Error() string {
	ids := make([]string, len(e.MissingIDs))
	for i, id := range e.MissingIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("selected ids [%s] not present in %s records", strings.Join(ids, ", "), e.Country)
}
