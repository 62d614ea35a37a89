package monitor

import (
	"time"

	"duewatch/internal/timeutil"
)

// ShouldSuppress decides whether a confirmed transition is recorded
// already-read. A comment posted strictly after the change instant means a
// human has almost certainly seen the new due date already; re-alerting them
// is noise. Ties and missing comments deliver.
func ShouldSuppress(latestComment *time.Time, dueChangedAt time.Time) bool {
	return latestComment != nil && timeutil.StrictlyAfter(*latestComment, dueChangedAt)
}
