package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/praxishq/praxis/internal/clock"
	orgdomain "github.com/praxishq/praxis/internal/org/domain"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) orgdomain.Service {
	return &Service{db: p.DB, log: p.Log.Named("org.service"), genID: p.GenID, clock: p.Clock}
}

// SettingsFor returns the org's settings row, or an unsaved default row when
// none exists yet.
func (s *Service) SettingsFor(ctx context.Context, orgID snowflake.ID) (orgdomain.Settings, error) {
	var settings orgdomain.Settings
	err := s.db.WithContext(ctx).First(&settings, "org_id = ?", orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return orgdomain.DefaultSettings(orgID), nil
		}
		return orgdomain.Settings{}, err
	}
	return settings, nil
}

func (s *Service) Update(ctx context.Context, req orgdomain.UpdateSettingsRequest) (orgdomain.Settings, error) {
	var settings orgdomain.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&settings, "org_id = ?", req.OrgID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			settings = orgdomain.DefaultSettings(req.OrgID)
			settings.ID = s.genID.Generate()
			settings.CreatedAt = s.clock.Now()
			if err := tx.Create(&settings).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		updates := map[string]any{"updated_at": s.clock.Now()}
		if req.DefaultIncomeAccountID != nil {
			updates["default_income_account_id"] = *req.DefaultIncomeAccountID
		}
		if req.CashAccountID != nil {
			updates["cash_account_id"] = *req.CashAccountID
		}
		if req.InvoicePrefix != nil {
			updates["invoice_prefix"] = *req.InvoicePrefix
		}
		if req.InvoiceNumberWidth != nil {
			updates["invoice_number_width"] = *req.InvoiceNumberWidth
		}
		if req.InvoiceZeroPad != nil {
			updates["invoice_zero_pad"] = *req.InvoiceZeroPad
		}
		if req.InvoiceStartNumber != nil {
			updates["invoice_start_number"] = *req.InvoiceStartNumber
		}
		if req.InvoiceSuffix != nil {
			updates["invoice_suffix"] = *req.InvoiceSuffix
		}
		if err := tx.Model(&settings).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&settings, "id = ?", settings.ID).Error
	})
	if err != nil {
		return orgdomain.Settings{}, err
	}
	return settings, nil
}
