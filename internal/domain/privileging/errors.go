package privileging

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNoApproverAvailable = errors.New("no approver available")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrNotYourTurn         = fmt.Errorf("%w: not your turn", ErrForbidden)
	ErrInvalidState        = errors.New("invalid state")
	ErrAlreadyDecided      = errors.New("already decided")

	ErrUnknownRole             = fmt.Errorf("%w: unknown organizational role", ErrValidation)
	ErrUnknownReviewLevel      = fmt.Errorf("%w: unknown review level", ErrValidation)
	ErrUnknownRequestKind      = fmt.Errorf("%w: unknown request kind", ErrValidation)
	ErrUnknownPractitionerType = fmt.Errorf("%w: unknown practitioner type", ErrValidation)
)

// ErrorKind maps an error chain to a stable identifier for transport layers.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNoApproverAvailable):
		return "no_approver_available"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrAlreadyDecided):
		return "already_decided"
	default:
		return "internal"
	}
}
