package model

import (
	"time"

	"github.com/ferncreek/chorewheel/internal/rule"
)

// Task is a chore definition. Rule is parsed once at the boundary from the
// stored (rule_type, rule_config) pair; nothing downstream touches the raw
// config blob. Deactivation stops future generation but never deletes
// history.
type Task struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	Name        string     `json:"name"`
	Points      int        `json:"points"`
	Rule        rule.Rule  `json:"rule"`
	RuleType    rule.Type  `json:"rule_type"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
