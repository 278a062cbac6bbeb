package rule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name     string
		ruleType string
		config   string
		wantErr  bool
	}{
		{"daily empty config", "daily", ``, false},
		{"daily with children", "daily", `{"assigned_children":[1,2]}`, false},
		{"daily with repeat days", "daily", `{"repeat_days":[1]}`, true},
		{"repeating mon wed fri", "repeating", `{"repeat_days":[1,3,5],"assigned_children":[1]}`, false},
		{"repeating no days", "repeating", `{"assigned_children":[1]}`, true},
		{"repeating day out of range", "repeating", `{"repeat_days":[7]}`, true},
		{"repeating duplicate day", "repeating", `{"repeat_days":[1,1]}`, true},
		{"rotation alternating", "weekly_rotation", `{"rotation_type":"alternating","assigned_children":[1,2]}`, false},
		{"rotation odd even", "weekly_rotation", `{"rotation_type":"odd_even_week","assigned_children":[1,2,3]}`, false},
		{"rotation one child", "weekly_rotation", `{"rotation_type":"alternating","assigned_children":[1]}`, true},
		{"rotation bad type", "weekly_rotation", `{"rotation_type":"coin_flip","assigned_children":[1,2]}`, true},
		{"rotation duplicate child", "weekly_rotation", `{"rotation_type":"alternating","assigned_children":[1,1]}`, true},
		{"single empty pool", "single", `{}`, false},
		{"single with pool", "single", `{"assigned_children":[4,5,6]}`, false},
		{"single with rotation", "single", `{"rotation_type":"alternating"}`, true},
		{"unknown type", "hourly", `{}`, true},
		{"bad json", "daily", `{`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.ruleType, []byte(tt.config))
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q, %q) error = %v, wantErr %v", tt.ruleType, tt.config, err, tt.wantErr)
			}
		})
	}
}

func TestParseSetsType(t *testing.T) {
	r, err := Parse("repeating", []byte(`{"repeat_days":[0,6]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Type != TypeRepeating {
		t.Errorf("type = %q, want %q", r.Type, TypeRepeating)
	}
	if len(r.RepeatDays) != 2 {
		t.Errorf("repeat days = %v, want [0 6]", r.RepeatDays)
	}
}

func TestIsDueDaily(t *testing.T) {
	r, _ := Parse("daily", nil)
	for i := 0; i < 10; i++ {
		d := date(2026, time.March, 1).AddDate(0, 0, i)
		if !r.IsDue(d) {
			t.Errorf("daily rule not due on %s", d.Format("2006-01-02"))
		}
	}
}

func TestIsDueRepeating(t *testing.T) {
	// Mon, Wed, Fri
	r, err := Parse("repeating", []byte(`{"repeat_days":[1,3,5]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// 2026-03-02 is a Monday
	monday := date(2026, time.March, 2)
	want := []bool{true, false, true, false, true, false, false}
	for i, w := range want {
		d := monday.AddDate(0, 0, i)
		if got := r.IsDue(d); got != w {
			t.Errorf("IsDue(%s %s) = %v, want %v", d.Weekday(), d.Format("2006-01-02"), got, w)
		}
	}
}

func TestIsDueWeeklyRotation(t *testing.T) {
	r, _ := Parse("weekly_rotation", []byte(`{"rotation_type":"alternating","assigned_children":[1,2]}`))
	if !r.IsDue(date(2026, time.March, 2)) {
		t.Error("weekly rotation should be due every date")
	}
}

func TestIsDueSingle(t *testing.T) {
	r, _ := Parse("single", nil)
	if r.IsDue(date(2026, time.March, 2)) {
		t.Error("single rule is never date-due")
	}
	if r.Dated() {
		t.Error("single rule should not be dated")
	}
}

func TestMarshalConfigRoundTrip(t *testing.T) {
	orig, err := Parse("weekly_rotation", []byte(`{"rotation_type":"odd_even_week","assigned_children":[7,8]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	config, err := orig.MarshalConfig()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Parse(string(orig.Type), config)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if got.RotationType != orig.RotationType || len(got.AssignedChildren) != 2 {
		t.Errorf("round trip changed rule: %+v vs %+v", got, orig)
	}
}
