// Package errors defines the CoreError sum type shared by both ingestion
// pipelines: every fatal condition a pipeline raises is classified into
// one of a small set of Kinds so the driver can map it onto a process
// exit code without inspecting string messages.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a CoreError for the Pipeline Driver's exit-code table.
type Kind int

const (
	// Config covers missing/invalid flags or configuration values.
	Config Kind = iota
	// Setup covers failures opening the input XML or opening or
	// preparing the output database.
	Setup
	// Parse covers malformed input XML.
	Parse
	// Referential covers dangling node/way references during resolution.
	Referential
	// Persistence covers failed inserts, transactions or schema statements.
	Persistence
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Setup:
		return "setup"
	case Parse:
		return "parse"
	case Referential:
		return "referential"
	case Persistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// CoreError is the error type raised across the pipeline. OSMID is set
// when the failure is attributable to a specific entity (a referential
// gap or an insert failure), zero otherwise.
type CoreError struct {
	Kind  Kind
	OSMID int64
	cause error
}

func (e *CoreError) Error() string {
	if e.OSMID != 0 {
		return fmt.Sprintf("%s: osm id %d: %v", e.Kind, e.OSMID, e.cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

func (e *CoreError) Unwrap() error {
	return e.cause
}

// New builds a CoreError wrapping msg with a stack trace via pkg/errors.
func New(kind Kind, msg string) *CoreError {
	return &CoreError{Kind: kind, cause: pkgerrors.New(msg)}
}

// Wrap attaches kind to an existing error, preserving its stack/cause
// chain through pkg/errors.Wrap.
func Wrap(kind Kind, err error, msg string) *CoreError {
	if err == nil {
		return nil
	}
	return &CoreError{Kind: kind, cause: pkgerrors.Wrap(err, msg)}
}

// WithOSMID attaches the offending entity id, for Referential and
// Persistence failures that name a specific node/way/relation.
func (e *CoreError) WithOSMID(id int64) *CoreError {
	e.OSMID = id
	return e
}
