// Package rule models a task's recurrence rule as a tagged variant parsed
// once from its stored (rule_type, rule_config) pair. Everything here is
// pure: no clock reads, no I/O, safe for arbitrary historical or future
// dates.
package rule

import (
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	TypeDaily          Type = "daily"
	TypeRepeating      Type = "repeating"
	TypeWeeklyRotation Type = "weekly_rotation"
	TypeSingle         Type = "single"
)

type RotationType string

const (
	RotationAlternating RotationType = "alternating"
	RotationOddEvenWeek RotationType = "odd_even_week"
)

// Rule is the parsed rule variant. Which fields are meaningful depends on
// Type; Parse rejects configs whose fields don't fit their type.
type Rule struct {
	Type Type `json:"-"`

	// RepeatDays holds weekdays 0 (Sunday) through 6 (Saturday). Repeating only.
	RepeatDays []int `json:"repeat_days,omitempty"`

	// RotationType selects the rotation scheme. Weekly rotation only.
	RotationType RotationType `json:"rotation_type,omitempty"`

	// AssignedChildren is the ordered child list the rule assigns from.
	// For single tasks it is the candidate pool; empty means the whole
	// household roster at activation time.
	AssignedChildren []int64 `json:"assigned_children,omitempty"`
}

// Parse decodes and validates a rule config for the given type. It is the
// single place stringly-typed rule data is allowed to exist; callers get
// back a typed variant or an error.
func Parse(ruleType string, config []byte) (Rule, error) {
	var r Rule
	switch Type(ruleType) {
	case TypeDaily, TypeRepeating, TypeWeeklyRotation, TypeSingle:
		r.Type = Type(ruleType)
	default:
		return Rule{}, fmt.Errorf("unknown rule type: %q", ruleType)
	}

	if len(config) > 0 {
		if err := json.Unmarshal(config, &r); err != nil {
			return Rule{}, fmt.Errorf("decode rule config: %w", err)
		}
		r.Type = Type(ruleType)
	}

	if err := r.validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

func (r Rule) validate() error {
	if err := noDuplicateChildren(r.AssignedChildren); err != nil {
		return err
	}

	switch r.Type {
	case TypeDaily:
		if len(r.RepeatDays) > 0 || r.RotationType != "" {
			return fmt.Errorf("daily rule takes no repeat days or rotation type")
		}
	case TypeRepeating:
		if len(r.RepeatDays) == 0 {
			return fmt.Errorf("repeating rule requires at least one repeat day")
		}
		seen := map[int]bool{}
		for _, d := range r.RepeatDays {
			if d < 0 || d > 6 {
				return fmt.Errorf("repeat day %d out of range 0-6", d)
			}
			if seen[d] {
				return fmt.Errorf("duplicate repeat day %d", d)
			}
			seen[d] = true
		}
		if r.RotationType != "" {
			return fmt.Errorf("repeating rule takes no rotation type")
		}
	case TypeWeeklyRotation:
		if r.RotationType != RotationAlternating && r.RotationType != RotationOddEvenWeek {
			return fmt.Errorf("unknown rotation type: %q", r.RotationType)
		}
		if len(r.AssignedChildren) < 2 {
			return fmt.Errorf("weekly rotation requires at least 2 assigned children")
		}
		if len(r.RepeatDays) > 0 {
			return fmt.Errorf("weekly rotation takes no repeat days")
		}
	case TypeSingle:
		if len(r.RepeatDays) > 0 || r.RotationType != "" {
			return fmt.Errorf("single rule takes no repeat days or rotation type")
		}
	}
	return nil
}

func noDuplicateChildren(ids []int64) error {
	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("duplicate assigned child %d", id)
		}
		seen[id] = true
	}
	return nil
}

// MarshalConfig serializes the variant fields back to the stored JSON form.
func (r Rule) MarshalConfig() ([]byte, error) {
	return json.Marshal(r)
}

// Dated reports whether the rule produces dated assignments. Single tasks
// are due exactly once, at activation, and never appear in a date window.
func (r Rule) Dated() bool {
	return r.Type != TypeSingle
}

// IsDue reports whether a task under this rule occurs on the given date.
func (r Rule) IsDue(date time.Time) bool {
	switch r.Type {
	case TypeDaily, TypeWeeklyRotation:
		return true
	case TypeRepeating:
		wd := int(date.Weekday())
		for _, d := range r.RepeatDays {
			if d == wd {
				return true
			}
		}
		return false
	default:
		return false
	}
}
