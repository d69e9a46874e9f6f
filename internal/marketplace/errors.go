package marketplace

import "errors"

var (
	// Invalid input at creation.
	ErrInvalidQuantity = errors.New("Quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("Price per unit must be greater than zero")

	ErrContractNotFound = errors.New("Contract not found")

	// Caller does not hold the role the operation requires on this contract.
	ErrNotAuthorized = errors.New("Not authorized for this contract")

	// Illegal lifecycle transitions.
	ErrIncorrectContractStatus = errors.New("Incorrect contract status")
	ErrOnlyPendingCancellable  = errors.New("Can only cancel pending contracts")
	ErrNotAnOffer              = errors.New("Contract is not an offer")
	ErrNotARequest             = errors.New("Contract is not a request")
	ErrNotACommitment          = errors.New("Contract is not a commitment")
)

// IsInvalidInput reports whether err is a creation-input rejection.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) || errors.Is(err, ErrInvalidPrice)
}

// IsNotFound reports whether err means the referenced contract does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound)
}

// IsUnauthorized reports whether err is a role rejection.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}

// IsInvalidTransition reports whether err is a lifecycle rejection.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrIncorrectContractStatus) ||
		errors.Is(err, ErrOnlyPendingCancellable) ||
		errors.Is(err, ErrNotAnOffer) ||
		errors.Is(err, ErrNotARequest) ||
		errors.Is(err, ErrNotACommitment)
}
