// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetchers.
var (
	// ErrMissingFileID is returned when a task has no remote identifier
	// configured for the requested fetch.
	ErrMissingFileID = errors.New("no remote file identifier configured")

	// ErrInvalidArchive is returned when the downloaded payload is not a
	// valid zip container (typically an HTML error page saved as the
	// expected binary).
	ErrInvalidArchive = errors.New("downloaded file is not a valid zip archive")

	// ErrCascadeExhausted is returned in strict mode when every transport
	// stage failed.
	ErrCascadeExhausted = errors.New("all download methods failed")
)

// TransportError wraps a failure from a single transport stage.
type TransportError struct {
	Stage string // transport name, e.g. "drive-direct"
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// InvalidArchiveError reports a payload that failed the archive check.
type InvalidArchiveError struct {
	Path string
	Err  error
}

func (e *InvalidArchiveError) Error() string {
	return fmt.Sprintf("invalid archive %s: %v", e.Path, e.Err)
}

func (e *InvalidArchiveError) Unwrap() error {
	return e.Err
}

func (e *InvalidArchiveError) Is(target error) bool {
	return errors.Is(target, ErrInvalidArchive)
}

// FetchError wraps a fetch failure with the local target for context.
type FetchError struct {
	Target string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Target, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
