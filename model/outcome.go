package model

import "errors"

// Phase is a terminal state of a single EndpointSlice reconciliation
type Phase string

const (
	// PhaseReported the readiness was written to the status registry
	PhaseReported Phase = "Reported"
	// PhaseSkipped the slice was disqualified before reaching the registry
	PhaseSkipped Phase = "Skipped"
	// PhaseFailed the registry could not be updated
	PhaseFailed Phase = "Failed"
)

// Failure reason codes
const (
	ReasonRegistryResolve = "RegistryResolveFailed"
	ReasonRegistryReport  = "RegistryReportFailed"
	ReasonStatusReported  = "StatusReported"
)

// Outcome of a single reconciliation
type Outcome struct {
	Phase       Phase
	Reason      string
	Message     string
	Ready       bool
	Description string
	Correlation Correlation
	Err         error
}

// Reported creates a successful outcome
func Reported(c Correlation, ready bool, description string) Outcome {
	return Outcome{
		Phase:       PhaseReported,
		Reason:      ReasonStatusReported,
		Ready:       ready,
		Description: description,
		Correlation: c,
	}
}

// Skipped converts a disqualification into an outcome.
// Errors that are not a *Disqualification are kept as the message only.
func Skipped(c Correlation, err error) Outcome {
	out := Outcome{Phase: PhaseSkipped, Correlation: c, Message: err.Error()}
	var d *Disqualification
	if errors.As(err, &d) {
		out.Reason = d.Reason
		out.Message = d.Message
	}
	return out
}

// Failed creates a failed outcome that should be retried
func Failed(c Correlation, reason string, err error) Outcome {
	return Outcome{
		Phase:       PhaseFailed,
		Reason:      reason,
		Message:     err.Error(),
		Correlation: c,
		Err:         err,
	}
}
