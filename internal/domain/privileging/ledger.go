package privileging

import "fmt"

// LedgerEntry is the decision-relevant projection of one approval record.
type LedgerEntry struct {
	Level      ReviewLevel
	ReviewerID string
	Status     RecordStatus
}

// ActiveIndex returns the index of the lowest-ordered pending entry, or -1.
// The active entry is always derived from the ledger, never stored.
func ActiveIndex(entries []LedgerEntry) int {
	active := -1
	for i, entry := range entries {
		if entry.Status != RecordPending {
			continue
		}
		if active < 0 || entry.Level < entries[active].Level {
			active = i
		}
	}
	return active
}

func highestLevel(entries []LedgerEntry) ReviewLevel {
	var highest ReviewLevel
	for _, entry := range entries {
		if entry.Level > highest {
			highest = entry.Level
		}
	}
	return highest
}

// Transition is the outcome of applying one decision to a ledger.
type Transition struct {
	Entries []LedgerEntry
	Status  RequestStatus
	// Active is the index of the entry awaiting a decision afterwards, -1 when
	// the request reached a terminal status.
	Active int
}

// ApplyDecision writes the decision onto entries[index] and derives the
// aggregate request status. The input slice is not modified.
func ApplyDecision(entries []LedgerEntry, index int, d Decision) (Transition, error) {
	if index < 0 || index >= len(entries) {
		return Transition{}, fmt.Errorf("%w: ledger index %d out of range", ErrInvalidState, index)
	}
	if entries[index].Status != RecordPending {
		return Transition{}, ErrAlreadyDecided
	}
	if ActiveIndex(entries) != index {
		return Transition{}, ErrNotYourTurn
	}

	next := make([]LedgerEntry, len(entries))
	copy(next, entries)
	next[index].Status = d.RecordStatus()

	switch d {
	case DecisionRejected:
		return Transition{Entries: next, Status: StatusRejected, Active: -1}, nil
	case DecisionReturned:
		return Transition{Entries: next, Status: StatusPending, Active: index}, nil
	case DecisionApproved:
		if next[index].Level == highestLevel(next) {
			return Transition{Entries: next, Status: StatusApproved, Active: -1}, nil
		}
		return Transition{Entries: next, Status: StatusInReview, Active: ActiveIndex(next)}, nil
	default:
		return Transition{}, fmt.Errorf("%w: malformed decision %q", ErrValidation, d)
	}
}

// ValidateChain checks that levels are known and strictly ascending.
func ValidateChain(levels []ReviewLevel) error {
	for i, level := range levels {
		if !level.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownReviewLevel, int(level))
		}
		if i > 0 && level <= levels[i-1] {
			return fmt.Errorf("%w: chain levels out of order at %s", ErrValidation, level)
		}
	}
	return nil
}
