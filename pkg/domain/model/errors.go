package model

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors. Failures of the provisioner are classified by matching them
// with errors.Is.
var (
	ErrInvalidCatalog = errors.New("invalid catalog")

	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrEmptyPayload        = errors.New("empty payload")
	ErrFormatMismatch      = errors.New("format mismatch")
	ErrInstallWriteFailure = errors.New("install write failure")
	ErrNameCollision       = errors.New("name collision")
	ErrIndexRebuildFailure = errors.New("index rebuild failure")

	// ErrSourceNotFound is a permanent SourceUnavailable: retrying cannot help
	ErrSourceNotFound = fmt.Errorf("%w: not found", ErrSourceUnavailable)

	ErrFontNotFound = errors.New("font not found in index")
	ErrRunAborted   = errors.New("provisioning aborted")
)

// FailureKind is the reported classification of an asset failure
type FailureKind string

const (
	KindNone                FailureKind = ""
	KindSourceUnavailable   FailureKind = "SourceUnavailable"
	KindEmptyPayload        FailureKind = "EmptyPayload"
	KindFormatMismatch      FailureKind = "FormatMismatch"
	KindInstallWriteFailure FailureKind = "InstallWriteFailure"
	KindNameCollision       FailureKind = "NameCollision"
	KindIndexRebuildFailure FailureKind = "IndexRebuildFailure"
)

// KindOf classifies err. Errors outside the taxonomy (including transport
// errors the fetchers did not wrap) count as SourceUnavailable.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyPayload):
		return KindEmptyPayload
	case errors.Is(err, ErrFormatMismatch):
		return KindFormatMismatch
	case errors.Is(err, ErrInstallWriteFailure):
		return KindInstallWriteFailure
	case errors.Is(err, ErrNameCollision):
		return KindNameCollision
	case errors.Is(err, ErrIndexRebuildFailure):
		return KindIndexRebuildFailure
	default:
		return KindSourceUnavailable
	}
}

// IsCancellation reports whether err comes from the run being cancelled
// rather than from the unit itself
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
