package domain

import (
	"time"

	perioddomain "github.com/praxishq/praxis/internal/period/domain"
)

// EffectiveTitle applies the per-work override, if any.
func (t TaskTemplate) EffectiveTitle(cfg *WorkTaskConfig) string {
	if cfg != nil && cfg.Title != nil && *cfg.Title != "" {
		return *cfg.Title
	}
	return t.Title
}

// EffectivePriority applies the per-work override, if any.
func (t TaskTemplate) EffectivePriority(cfg *WorkTaskConfig) string {
	if cfg != nil && cfg.Priority != nil && *cfg.Priority != "" {
		return *cfg.Priority
	}
	return t.Priority
}

// DueRule builds the resolver input for this template, applying the per-work
// override subset on top of the template fields.
func (t TaskTemplate) DueRule(cfg *WorkTaskConfig) perioddomain.DueRule {
	rule := perioddomain.DueRule{
		Cadence:     t.Cadence,
		OffsetKind:  t.OffsetKind,
		OffsetValue: t.OffsetValue,
		MonthsAfter: t.MonthsAfter,
		ExactDate:   t.ExactDueDate,
		AnchorMonth: time.Month(t.AnchorMonth),
		AnchorDay:   t.AnchorDay,
	}
	if t.Weekday != nil {
		wd := time.Weekday(*t.Weekday)
		rule.Weekday = &wd
	}
	if cfg != nil {
		if cfg.OffsetKind != nil {
			rule.OffsetKind = perioddomain.OffsetKind(*cfg.OffsetKind)
		}
		if cfg.OffsetValue != nil {
			rule.OffsetValue = *cfg.OffsetValue
		}
	}
	if len(t.DueDateOverrides) > 0 {
		rule.Overrides = make(map[string]time.Time, len(t.DueDateOverrides))
		for periodEnd, raw := range t.DueDateOverrides {
			s, ok := raw.(string)
			if !ok {
				continue
			}
			due, err := time.ParseInLocation("2006-01-02", s, time.UTC)
			if err != nil {
				continue
			}
			rule.Overrides[periodEnd] = due
		}
	}
	return rule
}
