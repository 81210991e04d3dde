// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chainindexererrors defines the typed error taxonomy processors and
// the persistence layer raise, so callers can branch on kind instead of
// string-matching messages.
package chainindexererrors

import (
	"github.com/cockroachdb/errors"
)

// ParseError indicates a transaction or write-set change could not be
// decoded into a row model. Always carries the version range being
// processed so the caller can log which batch failed.
type ParseError struct {
	ProcessorName string
	StartVersion  uint64
	EndVersion    uint64
	cause         error
}

func NewParseError(processorName string, startVersion, endVersion uint64, cause error) *ParseError {
	return &ParseError{
		ProcessorName: processorName,
		StartVersion:  startVersion,
		EndVersion:    endVersion,
		cause:         cause,
	}
}

func (e *ParseError) Error() string {
	return errors.Wrapf(e.cause, "%s: parse failed for versions [%d, %d]",
		e.ProcessorName, e.StartVersion, e.EndVersion).Error()
}

func (e *ParseError) Unwrap() error { return e.cause }

// TransientDBError indicates a database operation failed in a way that a
// retry may resolve (connection reset, deadline exceeded, serialization
// failure). Read paths retry on this; write paths do not, since the
// monotonicity guard makes a write safe to simply fail and let the
// upstream batch retry supply the whole range again.
type TransientDBError struct {
	Op    string
	cause error
}

func NewTransientDBError(op string, cause error) *TransientDBError {
	return &TransientDBError{Op: op, cause: cause}
}

func (e *TransientDBError) Error() string {
	return errors.Wrapf(e.cause, "transient db error during %s", e.Op).Error()
}

func (e *TransientDBError) Unwrap() error { return e.cause }

// FatalDBError indicates a database operation failed in a way no retry can
// fix (constraint violation unrelated to the guard predicate, schema
// mismatch, auth failure). The runtime stops processing on this.
type FatalDBError struct {
	Op    string
	cause error
}

func NewFatalDBError(op string, cause error) *FatalDBError {
	return &FatalDBError{Op: op, cause: cause}
}

func (e *FatalDBError) Error() string {
	return errors.Wrapf(e.cause, "fatal db error during %s", e.Op).Error()
}

func (e *FatalDBError) Unwrap() error { return e.cause }

// ConfigError indicates RunConfig failed validation: an unknown field, a
// missing mode-specific side config, or an inconsistent field combination.
type ConfigError struct {
	Field string
	cause error
}

func NewConfigError(field string, cause error) *ConfigError {
	return &ConfigError{Field: field, cause: cause}
}

func (e *ConfigError) Error() string {
	return errors.Wrapf(e.cause, "invalid config field %q", e.Field).Error()
}

func (e *ConfigError) Unwrap() error { return e.cause }

// Is* helpers let call sites test an error's kind through errors.As instead
// of writing type assertions.
func IsTransient(err error) bool {
	var t *TransientDBError
	return errors.As(err, &t)
}

func IsFatal(err error) bool {
	var f *FatalDBError
	return errors.As(err, &f)
}
