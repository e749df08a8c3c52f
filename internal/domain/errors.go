package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals that no indexed document has the requested pid or id.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrMetadataNotFound signals an object without a descriptive metadata datastream.
	ErrMetadataNotFound = errors.New("metadata not found")
	// ErrMalformedMetadata signals descriptive metadata that could not be parsed.
	ErrMalformedMetadata = errors.New("malformed metadata")
	// ErrInvalidSearchMode signals an unknown search mode.
	ErrInvalidSearchMode = errors.New("invalid search mode")
	// ErrUnknownFacet signals a facet label outside the facet table.
	ErrUnknownFacet = errors.New("unknown facet")
	// ErrInvalidQuery signals an empty or unusable query for the chosen mode.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUpstream signals a failed call to the repository object store.
	ErrUpstream = errors.New("upstream error")
)

// StatusError is an unexpected response from the object store.
type StatusError struct {
	Op     string
	PID    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.PID == "" {
		return fmt.Sprintf("%s: %s: status %d", ErrUpstream.Error(), e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s %s: status %d", ErrUpstream.Error(), e.Op, e.PID, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// NewStatusError creates a StatusError, truncating the body for logs.
func NewStatusError(op, pid string, status int, body []byte) error {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &StatusError{Op: op, PID: pid, Status: status, Body: string(body)}
}
