package marketplace

import "agrinerds-backend/internal/domain"

// legalTransitions enumerates every edge of the agreement lifecycle.
// Cancellation is reachable from pending only, so a binding already struck
// cannot be unilaterally withdrawn. Completed and cancelled are terminal.
var legalTransitions = map[string][]string{
	domain.StatusPending:           {domain.StatusAgreed, domain.StatusCancelled},
	domain.StatusAgreed:            {domain.StatusDeliveryConfirmed},
	domain.StatusDeliveryConfirmed: {domain.StatusCompleted},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether status has no outgoing edges.
func Terminal(status string) bool {
	return len(legalTransitions[status]) == 0
}

// checkTransition validates a requested status change against the table,
// mapping the illegal-cancel case onto its dedicated error.
func checkTransition(a *domain.Agreement, to string) error {
	if CanTransition(a.Status, to) {
		return nil
	}
	if to == domain.StatusCancelled {
		return ErrOnlyPendingCancellable
	}
	return ErrIncorrectContractStatus
}
