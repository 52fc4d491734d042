package grapeiq

import (
	"errors"
	"fmt"
)

// ErrAuthFailed is wrapped by every Login failure. Bad credentials, transport
// errors and malformed responses are deliberately not told apart.
var ErrAuthFailed = errors.New("authentication failed")

// FetchError describes a failed request to a data endpoint.
type FetchError struct {
	Endpoint string
	Status   int // 0 when no response was received
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UploadError describes a failed dataset upload.
type UploadError struct {
	File   string
	Status int
	Err    error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("uploading %s: status %d", e.File, e.Status)
	}
	return fmt.Sprintf("uploading %s: %v", e.File, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
