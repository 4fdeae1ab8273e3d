package entity

import (
	"errors"
	"fmt"
	"time"
)

// ErrAllDatesFailed is returned when no requested date could be processed
var ErrAllDatesFailed = errors.New("all dates failed")

// FetchError reports a failure to retrieve the schedule page
type FetchError struct {
	Date       time.Time
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch schedule for %s: unexpected status %d", ScheduleDate(e.Date), e.StatusCode)
	}
	return fmt.Sprintf("fetch schedule for %s: %v", ScheduleDate(e.Date), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a page whose structure or data was not recognized
type ParseError struct {
	Reason string
	Err    error
}

// NewParseError creates a parse error with an optional cause
func NewParseError(reason string, err error) *ParseError {
	return &ParseError{Reason: reason, Err: err}
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse schedule: %s: %v", e.Reason, e.Err)
	}
	return "parse schedule: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StorageError reports a failed read, write or transaction against the store
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err with the failed operation name
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError reports a missing or invalid configuration value
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}
