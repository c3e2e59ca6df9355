// Package recurrence expands a single appointment template into the concrete
// series of calendar instances described by a recurrence rule. Expansion is
// pure: persistence, quota enforcement and overlap checks are the caller's
// responsibility.
package recurrence

import (
	"errors"
	"time"

	"github.com/example/clinic-manager/internal/calendar"
)

// RuleType enumerates the supported recurrence frequencies.
type RuleType string

const (
	// RuleTypeNone produces a single instance equal to the template.
	RuleTypeNone RuleType = "none"
	// RuleTypeDaily produces one instance per consecutive calendar day.
	RuleTypeDaily RuleType = "daily"
	// RuleTypeWeekly produces instances on the selected weekdays only.
	RuleTypeWeekly RuleType = "weekly"
	// RuleTypeMonthly produces one instance per month on the seed day-of-month.
	RuleTypeMonthly RuleType = "monthly"
)

// Valid reports whether the rule type is supported.
func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeNone, RuleTypeDaily, RuleTypeWeekly, RuleTypeMonthly:
		return true
	default:
		return false
	}
}

// Rule describes how a template is repeated.
type Rule struct {
	Type     RuleType
	Weekdays []time.Weekday
	Count    int
}

// Template carries the fields shared by every instance of a series.
type Template struct {
	PatientID       string
	ProfessionalID  string
	Date            calendar.Date
	Time            calendar.TimeOfDay
	DurationMinutes int
	Notes           string
}

// Instance is one concrete occurrence produced from a template and rule.
// Instances share no relationship once materialized; deleting one does not
// affect its siblings.
type Instance struct {
	PatientID       string
	ProfessionalID  string
	Date            calendar.Date
	Time            calendar.TimeOfDay
	DurationMinutes int
	Notes           string
}

var (
	// ErrInvalidRuleType indicates an unsupported recurrence type.
	ErrInvalidRuleType = errors.New("recurrence: invalid rule type")
	// ErrInvalidCount indicates a non-positive occurrence count.
	ErrInvalidCount = errors.New("recurrence: occurrence count must be positive")
	// ErrEmptyWeekdays indicates a weekly rule without any selected weekday.
	// A weekly rule that can never match is a caller error, not an empty
	// series.
	ErrEmptyWeekdays = errors.New("recurrence: weekly rule requires at least one weekday")
	// ErrMissingDate indicates a template without a seed date.
	ErrMissingDate = errors.New("recurrence: template date is required")
)

// Engine expands recurrence rules into appointment instances.
type Engine struct{}

// NewEngine constructs an expansion engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Expand produces the ordered series of instances described by rule.
//
// Semantics:
//   - none: a single instance equal to the template; Count is ignored.
//   - daily: Count instances on consecutive calendar days from the seed date.
//   - weekly: walk forward day by day from the seed date inclusive, emitting
//     dates whose weekday is in the rule's set, until Count instances exist.
//   - monthly: Count instances on the seed day-of-month. When a target month
//     is shorter, the day clamps to the month's last day; later steps
//     re-derive from the seed so Jan 31 yields Feb 28 and then Mar 31.
//
// The returned slice is ordered by non-decreasing date and every instance
// carries the template's refs, duration, notes and time-of-day verbatim.
func (e *Engine) Expand(template Template, rule Rule) ([]Instance, error) {
	if template.Date.IsZero() {
		return nil, ErrMissingDate
	}

	if rule.Type == RuleTypeNone || rule.Type == "" {
		return []Instance{instanceAt(template, template.Date)}, nil
	}

	if !rule.Type.Valid() {
		return nil, ErrInvalidRuleType
	}
	if rule.Count < 1 {
		return nil, ErrInvalidCount
	}

	switch rule.Type {
	case RuleTypeDaily:
		return expandDaily(template, rule.Count), nil
	case RuleTypeWeekly:
		return expandWeekly(template, rule)
	default:
		return expandMonthly(template, rule.Count), nil
	}
}

func expandDaily(template Template, count int) []Instance {
	instances := make([]Instance, 0, count)
	for i := 0; i < count; i++ {
		instances = append(instances, instanceAt(template, template.Date.AddDays(i)))
	}
	return instances
}

func expandWeekly(template Template, rule Rule) ([]Instance, error) {
	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}
	if len(weekdaySet) == 0 {
		return nil, ErrEmptyWeekdays
	}

	instances := make([]Instance, 0, rule.Count)
	current := template.Date
	for len(instances) < rule.Count {
		if _, ok := weekdaySet[current.Weekday()]; ok {
			instances = append(instances, instanceAt(template, current))
		}
		current = current.AddDays(1)
	}
	return instances, nil
}

func expandMonthly(template Template, count int) []Instance {
	instances := make([]Instance, 0, count)
	for i := 0; i < count; i++ {
		// AddMonths from the seed, not the previous occurrence, so a clamp
		// in a short month does not stick for the rest of the series.
		instances = append(instances, instanceAt(template, template.Date.AddMonths(i)))
	}
	return instances
}

func instanceAt(template Template, date calendar.Date) Instance {
	return Instance{
		PatientID:       template.PatientID,
		ProfessionalID:  template.ProfessionalID,
		Date:            date,
		Time:            template.Time,
		DurationMinutes: template.DurationMinutes,
		Notes:           template.Notes,
	}
}
