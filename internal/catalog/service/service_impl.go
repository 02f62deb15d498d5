package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
	"github.com/praxishq/praxis/internal/clock"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) catalogdomain.CatalogService {
	return &Service{db: p.DB, log: p.Log.Named("catalog.service"), genID: p.GenID, clock: p.Clock}
}

func (s *Service) CreateService(ctx context.Context, req catalogdomain.CreateServiceRequest) (*catalogdomain.Service, error) {
	taxRate := decimal.Zero
	if req.TaxRatePercent != "" {
		rate, err := decimal.NewFromString(req.TaxRatePercent)
		if err != nil || rate.IsNegative() {
			return nil, catalogdomain.ErrInvalidTaxRate
		}
		taxRate = rate
	}

	now := s.clock.Now()
	svc := &catalogdomain.Service{
		ID:              s.genID.Generate(),
		OrgID:           req.OrgID,
		Name:            req.Name,
		DefaultPrice:    req.DefaultPrice,
		TaxRatePercent:  taxRate,
		IncomeAccountID: req.IncomeAccountID,
		PaymentTermDays: req.PaymentTermDays,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if svc.PaymentTermDays <= 0 {
		svc.PaymentTermDays = 15
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(svc).Error; err != nil {
			return err
		}
		for i, t := range req.Templates {
			tmpl, err := s.buildTemplate(req.OrgID, svc.ID, t, i, now)
			if err != nil {
				return err
			}
			if err := tx.Create(tmpl).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) buildTemplate(orgID, serviceID snowflake.ID, req catalogdomain.CreateTemplateRequest, idx int, now time.Time) (*catalogdomain.TaskTemplate, error) {
	cadence := perioddomain.Cadence(req.Cadence)
	if cadence != "" && !cadence.Valid() {
		return nil, catalogdomain.ErrInvalidDueRule
	}

	tmpl := &catalogdomain.TaskTemplate{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		ServiceID:      serviceID,
		Title:          req.Title,
		Priority:       req.Priority,
		EstimatedHours: req.EstimatedHours,
		Cadence:        cadence,
		OffsetKind:     perioddomain.OffsetKind(req.OffsetKind),
		OffsetValue:    req.OffsetValue,
		MonthsAfter:    req.MonthsAfter,
		AnchorMonth:    req.AnchorMonth,
		AnchorDay:      req.AnchorDay,
		Weekday:        req.Weekday,
		SortOrder:      req.SortOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if tmpl.Priority == "" {
		tmpl.Priority = "medium"
	}
	if tmpl.SortOrder == 0 {
		tmpl.SortOrder = idx
	}
	if req.ExactDueDate != "" {
		due, err := time.ParseInLocation("2006-01-02", req.ExactDueDate, time.UTC)
		if err != nil {
			return nil, catalogdomain.ErrInvalidDueRule
		}
		tmpl.ExactDueDate = &due
	}
	if len(req.DueDateOverrides) > 0 {
		overrides := datatypes.JSONMap{}
		for periodEnd, due := range req.DueDateOverrides {
			if _, err := time.ParseInLocation("2006-01-02", due, time.UTC); err != nil {
				return nil, catalogdomain.ErrInvalidDueRule
			}
			overrides[periodEnd] = due
		}
		tmpl.DueDateOverrides = overrides
	}
	return tmpl, nil
}

func (s *Service) GetService(ctx context.Context, orgID, serviceID snowflake.ID) (*catalogdomain.Service, error) {
	var svc catalogdomain.Service
	err := s.db.WithContext(ctx).First(&svc, "id = ? AND org_id = ?", serviceID, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalogdomain.ErrServiceNotFound
		}
		return nil, err
	}
	return &svc, nil
}

func (s *Service) ListServices(ctx context.Context, req catalogdomain.ListServicesRequest) (catalogdomain.ListServicesResponse, error) {
	var services []catalogdomain.Service
	err := s.db.WithContext(ctx).Where("org_id = ?", req.OrgID).Order("name").Find(&services).Error
	if err != nil {
		return catalogdomain.ListServicesResponse{}, err
	}
	return catalogdomain.ListServicesResponse{Services: services}, nil
}

func (s *Service) ListTemplates(ctx context.Context, orgID, serviceID snowflake.ID) ([]catalogdomain.TaskTemplate, error) {
	var templates []catalogdomain.TaskTemplate
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND service_id = ?", orgID, serviceID).
		Order("sort_order, id").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}
