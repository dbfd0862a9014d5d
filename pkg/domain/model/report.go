package model

import (
	"time"
)

// UnitState is the state of one asset as it moves through a provisioning run
type UnitState string

const (
	UnitPending   UnitState = "pending"
	UnitFetching  UnitState = "fetching"
	UnitVerifying UnitState = "verifying"
	UnitInstalled UnitState = "installed"
	UnitFailed    UnitState = "failed"
	// UnitSkipped marks an asset never attempted, or never installed, because
	// the run was aborted
	UnitSkipped UnitState = "skipped"
)

var unitTransitions = map[UnitState][]UnitState{
	UnitPending:   {UnitFetching, UnitSkipped},
	UnitFetching:  {UnitVerifying, UnitFailed, UnitSkipped},
	UnitVerifying: {UnitInstalled, UnitFailed, UnitSkipped},
}

// CanTransitionTo reports whether the state machine allows s -> next.
// Installed, Failed and Skipped are terminal.
func (s UnitState) CanTransitionTo(next UnitState) bool {
	for _, allowed := range unitTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s UnitState) Terminal() bool {
	return len(unitTransitions[s]) == 0
}

// RunState is the state of a whole provisioning run
type RunState string

const (
	RunNotStarted RunState = "not_started"
	RunInProgress RunState = "in_progress"
	RunCompleted  RunState = "completed"
	RunAborted    RunState = "aborted"
)

// CanTransitionTo reports whether the run state machine allows s -> next
func (s RunState) CanTransitionTo(next RunState) bool {
	switch s {
	case RunNotStarted:
		return next == RunInProgress
	case RunInProgress:
		return next == RunCompleted || next == RunAborted
	default:
		return false
	}
}

// Outcome summarizes a report for the orchestrating caller
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// AssetOutcome is the report slot of one catalog asset
type AssetOutcome struct {
	Family    string      `json:"family"`
	Style     string      `json:"style"`
	Unit      string      `json:"unit"`
	State     UnitState   `json:"state"`
	Kind      FailureKind `json:"kind,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	File      string      `json:"file,omitempty"`
	Bytes     int         `json:"bytes,omitempty"`
	Unchanged bool        `json:"unchanged,omitempty"`
}

// ProvisionReport is the single source of truth for what a run installed
type ProvisionReport struct {
	RunID        string         `json:"run_id"`
	Catalog      string         `json:"catalog"`
	Strategy     Strategy       `json:"strategy"`
	Policy       Policy         `json:"policy"`
	InstallDir   string         `json:"install_dir"`
	State        RunState       `json:"state"`
	Requested    int            `json:"requested"`
	Installed    int            `json:"installed"`
	Failed       int            `json:"failed"`
	Skipped      int            `json:"skipped"`
	Assets       []AssetOutcome `json:"assets"`
	IndexRebuilt bool           `json:"index_rebuilt"`
	IndexError   string         `json:"index_error,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

// Tally recomputes the counters from the per-asset slots
func (r *ProvisionReport) Tally() {
	r.Requested = len(r.Assets)
	r.Installed, r.Failed, r.Skipped = 0, 0, 0
	for _, a := range r.Assets {
		switch a.State {
		case UnitInstalled:
			r.Installed++
		case UnitFailed:
			r.Failed++
		default:
			r.Skipped++
		}
	}
}

// Failures returns the failed asset slots in catalog order
func (r *ProvisionReport) Failures() []AssetOutcome {
	var failed []AssetOutcome
	for _, a := range r.Assets {
		if a.State == UnitFailed {
			failed = append(failed, a)
		}
	}
	return failed
}

// InstalledFiles returns the file names installed (or found unchanged) by the run
func (r *ProvisionReport) InstalledFiles() []string {
	var files []string
	for _, a := range r.Assets {
		if a.State == UnitInstalled {
			files = append(files, a.File)
		}
	}
	return files
}

// Outcome classifies the run as success, partial success or failure
func (r *ProvisionReport) Outcome() Outcome {
	switch {
	case r.State != RunCompleted || !r.IndexRebuilt:
		return OutcomeFailure
	case r.Failed > 0 || r.Skipped > 0:
		if r.Installed == 0 {
			return OutcomeFailure
		}
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

// Duration returns how long the run took
func (r *ProvisionReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
