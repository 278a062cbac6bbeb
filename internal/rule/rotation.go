package rule

import "time"

// Assignee returns the child responsible for this rule on the given date.
// The second return is false when the rule produces unassigned slots
// (no children listed, or a single-type rule, which is claimed rather than
// assigned).
//
// The result is a pure function of (AssignedChildren order, rotation scheme,
// date): regenerating an overlapping window always lands on the same child,
// so idempotent re-runs never rewrite history.
//
// Daily and repeating rules listing more than one child rotate round-robin
// per due date, the same scheme as an alternating weekly rotation.
func (r Rule) Assignee(date time.Time) (int64, bool) {
	switch r.Type {
	case TypeWeeklyRotation:
		if r.RotationType == RotationOddEvenWeek {
			return r.AssignedChildren[weekIndex(date, len(r.AssignedChildren))], true
		}
		return r.AssignedChildren[dayIndex(date, len(r.AssignedChildren))], true

	case TypeDaily, TypeRepeating:
		switch len(r.AssignedChildren) {
		case 0:
			return 0, false
		case 1:
			return r.AssignedChildren[0], true
		default:
			return r.AssignedChildren[dayIndex(date, len(r.AssignedChildren))], true
		}

	default:
		return 0, false
	}
}

// dayIndex maps a civil date to a rotation slot by counting days since the
// Unix epoch. The count is taken at UTC midnight of the date's own
// year/month/day so the answer never shifts with the caller's zone or DST.
func dayIndex(date time.Time, n int) int {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	days := midnight.Unix() / 86400
	return int(((days % int64(n)) + int64(n)) % int64(n))
}

// weekIndex maps a date to a rotation slot by ISO week number, so every day
// of a calendar week lands on the same child and adjacent weeks alternate.
func weekIndex(date time.Time, n int) int {
	_, week := date.ISOWeek()
	return week % n
}
