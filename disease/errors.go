package disease

import "errors"

// Expected, locally recoverable outcomes of engine operations.
// Compare with errors.Is; none of these should ever stop a simulation.
var (
	ErrDiseaseNotFound      = errors.New("disease not found")
	ErrAlreadyInfected      = errors.New("already infected")
	ErrAlreadyImmune        = errors.New("already immune")
	ErrTreatmentUnavailable = errors.New("treatment unavailable")
	ErrInsufficientItems    = errors.New("insufficient items")
	ErrInsufficientFunds    = errors.New("insufficient funds")
)
