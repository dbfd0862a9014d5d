package cli

import (
	"errors"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// Process exit statuses
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitPartial = 2
)

type outcomeError struct {
	outcome model.Outcome
	cause   error
}

func (e *outcomeError) Error() string {
	if e.cause != nil {
		return "provisioning " + string(e.outcome) + ": " + e.cause.Error()
	}
	return "provisioning " + string(e.outcome)
}

func (e *outcomeError) Unwrap() error {
	return e.cause
}

// ExitCode maps the error returned by Run to a process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var oe *outcomeError
	if errors.As(err, &oe) && oe.outcome == model.OutcomePartial {
		return ExitPartial
	}
	return ExitFailure
}

// outcomeErr converts a finished report outcome into the error Run returns
func outcomeErr(outcome model.Outcome, cause error) error {
	if outcome == model.OutcomeSuccess && cause == nil {
		return nil
	}
	if cause != nil {
		outcome = model.OutcomeFailure
	}
	return &outcomeError{outcome: outcome, cause: cause}
}
