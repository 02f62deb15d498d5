package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/praxishq/praxis/internal/clock"
	"github.com/praxishq/praxis/internal/events"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Bus   *events.Bus
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	bus   *events.Bus
}

func NewService(p ServiceParam) perioddomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("period.service"),
		genID: p.GenID,
		clock: p.Clock,
		bus:   p.Bus,
	}
}

func (s *Service) List(ctx context.Context, req perioddomain.ListPeriodsRequest) (perioddomain.ListPeriodsResponse, error) {
	stmt := s.db.WithContext(ctx).Where("org_id = ?", req.OrgID)
	if req.WorkID != 0 {
		stmt = stmt.Where("work_id = ?", req.WorkID)
	}

	var periods []perioddomain.Period
	if err := stmt.Order("period_start").Find(&periods).Error; err != nil {
		return perioddomain.ListPeriodsResponse{}, err
	}
	return perioddomain.ListPeriodsResponse{Periods: periods}, nil
}

func (s *Service) ListTasks(ctx context.Context, req perioddomain.ListTasksRequest) (perioddomain.ListTasksResponse, error) {
	var tasks []perioddomain.PeriodTask
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND period_id = ?", req.OrgID, req.PeriodID).
		Order("due_date, id").
		Find(&tasks).Error
	if err != nil {
		return perioddomain.ListTasksResponse{}, err
	}
	return perioddomain.ListTasksResponse{Tasks: tasks}, nil
}

// UpdateTaskStatus flips one task and recomputes the owning period's
// aggregates from scratch. The recount is total, not incremental, so it
// stays correct under bulk edits and deletions.
func (s *Service) UpdateTaskStatus(ctx context.Context, taskID snowflake.ID, status perioddomain.TaskStatus) error {
	if status != perioddomain.TaskStatusPending && status != perioddomain.TaskStatusCompleted {
		return perioddomain.ErrInvalidStatus
	}

	var pending []events.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task perioddomain.PeriodTask
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return perioddomain.ErrTaskNotFound
			}
			return err
		}
		if task.Status == status {
			return nil
		}

		now := s.clock.Now()
		updates := map[string]any{"status": status, "updated_at": now}
		if status == perioddomain.TaskStatusCompleted {
			updates["completed_at"] = now
		} else {
			updates["completed_at"] = nil
		}
		if err := tx.Model(&perioddomain.PeriodTask{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
			return err
		}

		completedNow, err := s.recount(ctx, tx, task.PeriodID)
		if err != nil {
			return err
		}
		if completedNow {
			ev, err := s.completionEvent(ctx, tx, task.PeriodID)
			if err != nil {
				return err
			}
			pending = append(pending, ev)
		}
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

// recount recomputes the period aggregates and reports whether the period
// just transitioned into the all-complete state.
func (s *Service) recount(ctx context.Context, tx *gorm.DB, periodID snowflake.ID) (bool, error) {
	var period perioddomain.Period
	if err := tx.First(&period, "id = ?", periodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, perioddomain.ErrPeriodNotFound
		}
		return false, err
	}

	var total, completed int64
	if err := tx.Model(&perioddomain.PeriodTask{}).Where("period_id = ?", periodID).Count(&total).Error; err != nil {
		return false, err
	}
	if err := tx.Model(&perioddomain.PeriodTask{}).
		Where("period_id = ? AND status = ?", periodID, perioddomain.TaskStatusCompleted).
		Count(&completed).Error; err != nil {
		return false, err
	}

	allComplete := total > 0 && total == completed
	status := perioddomain.PeriodStatusPending
	switch {
	case allComplete:
		status = perioddomain.PeriodStatusCompleted
	case completed > 0:
		status = perioddomain.PeriodStatusActive
	}

	err := tx.Model(&perioddomain.Period{}).Where("id = ?", periodID).Updates(map[string]any{
		"total_tasks":         total,
		"completed_tasks":     completed,
		"all_tasks_completed": allComplete,
		"status":              status,
		"updated_at":          s.clock.Now(),
	}).Error
	if err != nil {
		return false, err
	}

	return allComplete && !period.AllTasksCompleted, nil
}

// completionEvent builds the downstream event for a period that just
// completed: recurring works invoice per period, one-time works per work.
func (s *Service) completionEvent(ctx context.Context, tx *gorm.DB, periodID snowflake.ID) (events.Event, error) {
	var period perioddomain.Period
	if err := tx.First(&period, "id = ?", periodID).Error; err != nil {
		return nil, err
	}

	var recurring bool
	if err := tx.Raw(`SELECT recurring FROM works WHERE id = ?`, period.WorkID).Scan(&recurring).Error; err != nil {
		return nil, err
	}
	if recurring {
		return events.PeriodCompleted{OrgID: period.OrgID, WorkID: period.WorkID, PeriodID: period.ID}, nil
	}
	return events.WorkCompleted{OrgID: period.OrgID, WorkID: period.WorkID}, nil
}
