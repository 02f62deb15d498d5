package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
	"github.com/praxishq/praxis/internal/events"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxSpansPerRun bounds a single generation pass. A work backdated a decade
// on a daily cadence should not hold a transaction open indefinitely; the
// next sweep continues where this one stopped.
const maxSpansPerRun = 4000

// taskCandidate is one prospective task row before the eligibility gate.
type taskCandidate struct {
	templateID snowflake.ID
	dueDate    time.Time
	title      string
	priority   string
}

// BackfillWork materializes every period of the work from its start date
// through today, gated on task due dates having elapsed. Safe to re-run: the
// unique keys on periods and period_tasks turn replays into no-ops.
func (s *Service) BackfillWork(ctx context.Context, workID snowflake.ID) error {
	return s.generate(ctx, workID)
}

// EnsureUpToDate re-walks the work's spans so periods that closed since the
// last run, and tasks whose due dates elapsed since the last run, get
// materialized. The walk is a full re-scan rather than a continue-from-latest:
// an existing period can still gain tasks whose due dates fall after the ones
// that first made it eligible.
func (s *Service) EnsureUpToDate(ctx context.Context, workID snowflake.ID) error {
	return s.generate(ctx, workID)
}

func (s *Service) generate(ctx context.Context, workID snowflake.ID) error {
	var pending []events.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var work workdomain.Work
		if err := tx.First(&work, "id = ?", workID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return perioddomain.ErrWorkNotFound
			}
			return err
		}

		templates, configs, err := s.loadTemplates(ctx, tx, work)
		if err != nil {
			return err
		}

		today := perioddomain.DateOf(s.clock.Now())
		if !work.Recurring {
			evs, err := s.generateOneTime(ctx, tx, work, templates, configs)
			if err != nil {
				return err
			}
			pending = append(pending, evs...)
			return nil
		}

		evs, err := s.generateRecurring(ctx, tx, work, templates, configs, today)
		if err != nil {
			return err
		}
		pending = append(pending, evs...)
		return nil
	})
	if err != nil {
		return err
	}

	for _, ev := range pending {
		s.bus.Publish(ctx, ev)
	}
	return nil
}

func (s *Service) loadTemplates(ctx context.Context, tx *gorm.DB, work workdomain.Work) ([]catalogdomain.TaskTemplate, map[snowflake.ID]*catalogdomain.WorkTaskConfig, error) {
	var templates []catalogdomain.TaskTemplate
	err := tx.Where("service_id = ?", work.ServiceID).
		Order("sort_order, id").
		Find(&templates).Error
	if err != nil {
		return nil, nil, err
	}
	if len(templates) == 0 {
		return nil, nil, perioddomain.ErrNoTaskTemplates
	}

	var overrides []catalogdomain.WorkTaskConfig
	if err := tx.Where("work_id = ?", work.ID).Find(&overrides).Error; err != nil {
		return nil, nil, err
	}
	configs := make(map[snowflake.ID]*catalogdomain.WorkTaskConfig, len(overrides))
	for i := range overrides {
		configs[overrides[i].TemplateID] = &overrides[i]
	}
	return templates, configs, nil
}

// generateRecurring walks spans from the work's first period through the span
// containing today, materializing each closed span that has at least one task
// whose due date has elapsed.
func (s *Service) generateRecurring(ctx context.Context, tx *gorm.DB, work workdomain.Work, templates []catalogdomain.TaskTemplate, configs map[snowflake.ID]*catalogdomain.WorkTaskConfig, today time.Time) ([]events.Event, error) {
	span, err := firstSpan(work)
	if err != nil {
		return nil, err
	}

	var pending []events.Event
	start := perioddomain.DateOf(work.StartDate)
	for i := 0; i < maxSpansPerRun && !span.Start.After(today); i++ {
		// Open periods are never materialized; once one is reached, every
		// later span is open too.
		if !span.End.Before(today) {
			break
		}

		candidates := buildCandidates(work, templates, configs, span)
		eligible := candidates[:0]
		for _, c := range candidates {
			if c.dueDate.Before(start) || c.dueDate.After(today) {
				continue
			}
			eligible = append(eligible, c)
		}

		if len(eligible) > 0 {
			evs, err := s.materialize(ctx, tx, work, span, eligible)
			if err != nil {
				return nil, err
			}
			pending = append(pending, evs...)
		}

		span, err = perioddomain.NextSpan(span, work.Cadence, work.FiscalStart(), work.WeekStart())
		if err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// generateOneTime gives a non-recurring work a single degenerate period whose
// start and end both equal the work's start date. Tasks are created
// immediately, without the elapsed-due-date gate: one-time engagements start
// with their full checklist visible.
func (s *Service) generateOneTime(ctx context.Context, tx *gorm.DB, work workdomain.Work, templates []catalogdomain.TaskTemplate, configs map[snowflake.ID]*catalogdomain.WorkTaskConfig) ([]events.Event, error) {
	start := perioddomain.DateOf(work.StartDate)
	span := perioddomain.Span{Start: start, End: start, Name: start.Format("2 Jan 2006")}

	candidates := make([]taskCandidate, 0, len(templates))
	for _, tmpl := range templates {
		cfg := configs[tmpl.ID]
		rule := tmpl.DueRule(cfg)
		// Template cadences are meaningless for a one-shot engagement; clear
		// the cadence so the resolver never rejects the degenerate span.
		rule.Cadence = ""
		due := perioddomain.ResolveDueDate(rule, span)
		if due == nil {
			continue
		}
		candidates = append(candidates, taskCandidate{
			templateID: tmpl.ID,
			dueDate:    *due,
			title:      tmpl.EffectiveTitle(cfg),
			priority:   tmpl.EffectivePriority(cfg),
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return s.materialize(ctx, tx, work, span, candidates)
}

// buildCandidates expands the templates against one span. Templates whose
// cadence matches the work (or is unset) yield one task; finer cadences nest,
// yielding one task per sub-span with the sub-span name folded into the title.
func buildCandidates(work workdomain.Work, templates []catalogdomain.TaskTemplate, configs map[snowflake.ID]*catalogdomain.WorkTaskConfig, span perioddomain.Span) []taskCandidate {
	var out []taskCandidate
	for _, tmpl := range templates {
		cfg := configs[tmpl.ID]
		rule := tmpl.DueRule(cfg)
		title := tmpl.EffectiveTitle(cfg)
		priority := tmpl.EffectivePriority(cfg)

		if tmpl.Cadence == "" || tmpl.Cadence == work.Cadence {
			if due := perioddomain.ResolveDueDate(rule, span); due != nil {
				out = append(out, taskCandidate{tmpl.ID, *due, title, priority})
			}
			continue
		}

		if tmpl.Cadence == perioddomain.CadenceMonthly && work.Cadence.Months() > 1 {
			for _, month := range perioddomain.MonthSpans(span) {
				due := perioddomain.ResolveDueDate(rule, month)
				if due == nil {
					continue
				}
				out = append(out, taskCandidate{
					templateID: tmpl.ID,
					dueDate:    *due,
					title:      fmt.Sprintf("%s (%s)", title, month.Name),
					priority:   priority,
				})
			}
			continue
		}

		// Coarser-than-work cadences resolve against the outer span when they
		// fit, and are skipped otherwise (a yearly template on a monthly work
		// has no sensible anchor inside one month).
		if due := perioddomain.ResolveDueDate(rule, span); due != nil {
			out = append(out, taskCandidate{tmpl.ID, *due, title, priority})
		}
	}
	return out
}

// materialize upserts the period row, its document checklist copy and the
// eligible task rows. Every insert is conflict-tolerant so concurrent sweeps
// and repeated backfills converge on the same rows.
func (s *Service) materialize(ctx context.Context, tx *gorm.DB, work workdomain.Work, span perioddomain.Span, candidates []taskCandidate) ([]events.Event, error) {
	now := s.clock.Now()
	period := perioddomain.Period{
		ID:          s.genID.Generate(),
		OrgID:       work.OrgID,
		WorkID:      work.ID,
		PeriodStart: span.Start,
		PeriodEnd:   span.End,
		Name:        span.Name,
		Status:      perioddomain.PeriodStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "work_id"}, {Name: "period_start"}},
		DoNothing: true,
	}).Create(&period)
	if res.Error != nil {
		return nil, res.Error
	}
	created := res.RowsAffected > 0
	if !created {
		// Drop the never-inserted ID so the refetch matches on the natural
		// key alone instead of gorm adding a stale primary-key condition.
		period.ID = 0
		if err := tx.First(&period, "work_id = ? AND period_start = ?", work.ID, span.Start).Error; err != nil {
			return nil, err
		}
	}

	if created {
		if err := s.copyDocuments(ctx, tx, work, period); err != nil {
			return nil, err
		}
	}

	var inserted int64
	for _, c := range candidates {
		task := perioddomain.PeriodTask{
			ID:         s.genID.Generate(),
			OrgID:      work.OrgID,
			WorkID:     work.ID,
			PeriodID:   period.ID,
			TemplateID: c.templateID,
			DueDate:    c.dueDate,
			Title:      c.title,
			Priority:   c.priority,
			Status:     perioddomain.TaskStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "period_id"}, {Name: "template_id"}, {Name: "due_date"}},
			DoNothing: true,
		}).Create(&task)
		if res.Error != nil {
			return nil, res.Error
		}
		inserted += res.RowsAffected
	}

	if created {
		s.log.Info("period materialized",
			zap.Int64("work_id", int64(work.ID)),
			zap.String("period", span.Name),
			zap.Int64("tasks", inserted))
	}

	if !created && inserted == 0 {
		return nil, nil
	}

	// New tasks can reopen a period that was previously all-complete; the
	// recount also seeds the counters on first materialization.
	completedNow, err := s.recount(ctx, tx, period.ID)
	if err != nil {
		return nil, err
	}
	if completedNow {
		ev, err := s.completionEvent(ctx, tx, period.ID)
		if err != nil {
			return nil, err
		}
		return []events.Event{ev}, nil
	}
	return nil, nil
}

func (s *Service) copyDocuments(ctx context.Context, tx *gorm.DB, work workdomain.Work, period perioddomain.Period) error {
	var docs []workdomain.WorkDocument
	if err := tx.Where("work_id = ?", work.ID).Order("id").Find(&docs).Error; err != nil {
		return err
	}
	now := s.clock.Now()
	for _, doc := range docs {
		row := perioddomain.PeriodDocument{
			ID:             s.genID.Generate(),
			OrgID:          work.OrgID,
			PeriodID:       period.ID,
			WorkDocumentID: doc.ID,
			Name:           doc.Name,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "period_id"}, {Name: "work_document_id"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// firstSpan positions the work's first period relative to its start date per
// the period calc type: previous bills the cycle that ended just before
// onboarding, next skips the partial cycle in progress.
func firstSpan(work workdomain.Work) (perioddomain.Span, error) {
	base, err := perioddomain.Boundaries(work.StartDate, work.Cadence, work.FiscalStart(), work.WeekStart())
	if err != nil {
		return perioddomain.Span{}, err
	}
	switch work.PeriodCalcType {
	case workdomain.PeriodCalcPrevious:
		return perioddomain.PreviousSpan(base, work.Cadence, work.FiscalStart(), work.WeekStart())
	case workdomain.PeriodCalcNext:
		return perioddomain.NextSpan(base, work.Cadence, work.FiscalStart(), work.WeekStart())
	default:
		return base, nil
	}
}
