package domain

import (
	"errors"
	"fmt"
)

// ValidationKind identifies which input check rejected a submission
type ValidationKind string

const (
	EmptyURL         ValidationKind = "empty_url"
	InvalidURLFormat ValidationKind = "invalid_url_format"
	EmptyDestination ValidationKind = "empty_destination"
)

// ValidationError is returned before any network call is made
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches any ValidationError of the same kind
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrEmptyURL         = &ValidationError{Kind: EmptyURL, Message: "please enter a download link"}
	ErrInvalidURLFormat = &ValidationError{Kind: InvalidURLFormat, Message: "please enter a valid Spotify track link"}
	ErrEmptyDestination = &ValidationError{Kind: EmptyDestination, Message: "please choose a folder to save the music in"}
)

// FetchError reports a failed metadata lookup
type FetchError struct {
	Message string
}

func (e *FetchError) Error() string {
	return e.Message
}

// DefaultJobErrorReason is used when the server accepted the request but sent no identifier
const DefaultJobErrorReason = "missing download identifier"

// JobError reports a failed job submission
type JobError struct {
	Reason string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("failed to start download: %s", e.Reason)
}

// PollError reports a failure observed while polling job status
type PollError struct {
	JobID   string
	Message string
	Err     error
}

func (e *PollError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("progress check failed: %v", e.Err)
	}
	return fmt.Sprintf("progress check failed: %s", e.Message)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

var (
	// ErrMissingJobID is raised when polling is requested without a job identifier
	ErrMissingJobID = errors.New("download identifier not defined")

	// ErrPollTimeout is raised when the poll ceiling is reached before a terminal snapshot
	ErrPollTimeout = errors.New("download did not finish in time")

	// ErrJobNotFound is returned by repositories when no job matches an id
	ErrJobNotFound = errors.New("download not found")

	// ErrUnsupportedSource is returned by the server for links it cannot download
	ErrUnsupportedSource = errors.New("invalid Spotify URL")

	// ErrInvalidFolder is returned for destination folders that do not name a directory
	ErrInvalidFolder = errors.New("invalid folder name")

	// ErrInvalidArtifactPath is returned for file requests outside the download directory
	ErrInvalidArtifactPath = errors.New("invalid file path")
)
