package monitor

import (
	"time"

	"duewatch/internal/models"
	"duewatch/internal/timeutil"
)

// Verdict classifies one observed due date against the stored state.
type Verdict int

const (
	// Unchanged covers equal due dates and never-seen cards without a due
	// date; it still triggers a name/detail refresh of the stored record.
	Unchanged Verdict = iota
	// UnseenSet: card never seen before, observed with a due date.
	UnseenSet
	// SetUnset: stored due date removed.
	SetUnset
	// UnsetSet: card seen before without a due date, now has one.
	UnsetSet
	// Changed: both present, normalized values differ.
	Changed
)

func (v Verdict) String() string {
	switch v {
	case UnseenSet:
		return "unseen->set"
	case SetUnset:
		return "set->unset"
	case UnsetSet:
		return "unset->set"
	case Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

// IsTransition reports whether the verdict produces a reminder.
func (v Verdict) IsTransition() bool {
	return v != Unchanged
}

// Classify is a pure function of (stored state, observed due date). Equality
// is on the normalized value, so representation drift between polls never
// registers as a transition.
func Classify(stored *models.CardDueState, observed *time.Time) Verdict {
	if stored == nil {
		if observed != nil {
			return UnseenSet
		}
		return Unchanged
	}
	switch {
	case stored.DueDate != nil && observed == nil:
		return SetUnset
	case stored.DueDate == nil && observed != nil:
		return UnsetSet
	case timeutil.Equal(stored.DueDate, observed):
		return Unchanged
	default:
		return Changed
	}
}
