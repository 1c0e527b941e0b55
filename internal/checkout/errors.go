package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrServiceabilityDenied = errors.New("delivery is not available for this pincode")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidTransition    = errors.New("checkout step not allowed in current state")
	ErrCheckoutInProgress   = errors.New("payment is already being processed")
	ErrSuperseded           = errors.New("address was superseded by newer input")
	ErrPaymentFailed        = errors.New("payment failed")
)

// ValidationError is a field-level problem the user can fix and resubmit.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }
