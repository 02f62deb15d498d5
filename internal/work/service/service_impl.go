package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/praxishq/praxis/internal/clock"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Periods perioddomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	periods perioddomain.Service
}

func NewService(p ServiceParam) workdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("work.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		periods: p.Periods,
	}
}

// Create persists the work plus its document checklist and immediately
// backfills periods through today.
func (s *Service) Create(ctx context.Context, req workdomain.CreateWorkRequest) (*workdomain.Work, error) {
	if req.StartDate.IsZero() {
		return nil, workdomain.ErrInvalidStartDate
	}
	if req.Recurring && !req.Cadence.Valid() {
		return nil, workdomain.ErrInvalidCadence
	}

	calcType := req.PeriodCalcType
	if calcType == "" {
		calcType = workdomain.PeriodCalcCurrent
	}
	fyStart := req.FiscalYearStartMonth
	if fyStart < 1 || fyStart > 12 {
		fyStart = int(perioddomain.DefaultFiscalYearStartMonth)
	}

	now := s.clock.Now()
	work := &workdomain.Work{
		ID:                   s.genID.Generate(),
		OrgID:                req.OrgID,
		CustomerID:           req.CustomerID,
		ServiceID:            req.ServiceID,
		Title:                req.Title,
		Recurring:            req.Recurring,
		Cadence:              req.Cadence,
		FiscalYearStartMonth: fyStart,
		WeekStartDay:         req.WeekStartDay,
		PeriodCalcType:       calcType,
		StartDate:            perioddomain.DateOf(req.StartDate),
		AutoBill:             req.AutoBill,
		BillingAmount:        req.BillingAmount,
		Status:               workdomain.WorkStatusActive,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(work).Error; err != nil {
			return err
		}
		for _, name := range req.Documents {
			if name == "" {
				continue
			}
			doc := workdomain.WorkDocument{
				ID:        s.genID.Generate(),
				OrgID:     req.OrgID,
				WorkID:    work.ID,
				Name:      name,
				CreatedAt: now,
			}
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.periods.BackfillWork(ctx, work.ID); err != nil {
		// The work exists; the next scheduler sweep retries the backfill.
		s.log.Error("period backfill failed after work creation",
			zap.Int64("work_id", int64(work.ID)), zap.Error(err))
	}
	return work, nil
}

// Update applies partial mutations. Recurrence fields are rejected once any
// period has been materialized.
func (s *Service) Update(ctx context.Context, req workdomain.UpdateWorkRequest) (*workdomain.Work, error) {
	var work workdomain.Work
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&work, "id = ? AND org_id = ?", req.WorkID, req.OrgID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workdomain.ErrWorkNotFound
			}
			return err
		}

		if req.Cadence != nil || req.FiscalYearStartMonth != nil || req.PeriodCalcType != nil {
			var periods int64
			if err := tx.Model(&perioddomain.Period{}).Where("work_id = ?", work.ID).Count(&periods).Error; err != nil {
				return err
			}
			if periods > 0 {
				return workdomain.ErrRecurrenceLocked
			}
		}

		updates := map[string]any{"updated_at": s.clock.Now()}
		if req.Title != nil {
			updates["title"] = *req.Title
		}
		if req.AutoBill != nil {
			updates["auto_bill"] = *req.AutoBill
		}
		if req.BillingAmount != nil {
			updates["billing_amount"] = *req.BillingAmount
		}
		if req.Status != nil {
			updates["status"] = *req.Status
		}
		if req.Cadence != nil {
			if !req.Cadence.Valid() {
				return workdomain.ErrInvalidCadence
			}
			updates["cadence"] = *req.Cadence
		}
		if req.FiscalYearStartMonth != nil {
			updates["fiscal_year_start_month"] = *req.FiscalYearStartMonth
		}
		if req.PeriodCalcType != nil {
			updates["period_calc_type"] = *req.PeriodCalcType
		}

		if err := tx.Model(&work).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&work, "id = ?", work.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &work, nil
}

func (s *Service) GetByID(ctx context.Context, orgID, workID snowflake.ID) (*workdomain.Work, error) {
	var work workdomain.Work
	err := s.db.WithContext(ctx).First(&work, "id = ? AND org_id = ?", workID, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workdomain.ErrWorkNotFound
		}
		return nil, err
	}
	return &work, nil
}

func (s *Service) List(ctx context.Context, req workdomain.ListWorksRequest) (workdomain.ListWorksResponse, error) {
	var works []workdomain.Work
	err := s.db.WithContext(ctx).
		Where("org_id = ?", req.OrgID).
		Order("created_at DESC").
		Find(&works).Error
	if err != nil {
		return workdomain.ListWorksResponse{}, err
	}
	return workdomain.ListWorksResponse{Works: works}, nil
}
