// Package seed bootstraps a demo tenant: chart of accounts, settings, one
// service with task templates, a customer and a recurring work. Safe to run
// repeatedly.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
	"github.com/praxishq/praxis/internal/config"
	customerdomain "github.com/praxishq/praxis/internal/customer/domain"
	ledgerdomain "github.com/praxishq/praxis/internal/ledger/domain"
	orgdomain "github.com/praxishq/praxis/internal/org/domain"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module seeds demo data on startup when SEED_DEMO_DATA is set.
var Module = fx.Module("seed",
	fx.Invoke(Run),
)

func Run(cfg config.Config, db *gorm.DB, node *snowflake.Node, log *zap.Logger, workSvc workdomain.Service) error {
	if !cfg.SeedDemoData {
		return nil
	}

	ctx := context.Background()
	orgID := snowflake.ID(cfg.DefaultOrgID)
	if orgID == 0 {
		orgID = node.Generate()
		log.Info("seed: no DEFAULT_ORG configured, generated one",
			zap.Int64("org_id", int64(orgID)))
	}

	var serviceID, customerID snowflake.ID
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts, err := ensureAccounts(tx, node, orgID)
		if err != nil {
			return err
		}
		if err := ensureSettings(tx, node, orgID, accounts); err != nil {
			return err
		}
		serviceID, err = ensureDemoService(tx, node, orgID, accounts[ledgerdomain.AccountCodeIncome])
		if err != nil {
			return err
		}
		customerID, err = ensureDemoCustomer(tx, node, orgID, accounts[ledgerdomain.AccountCodeReceivable], serviceID)
		return err
	})
	if err != nil {
		return err
	}

	if err := ensureDemoWork(ctx, db, workSvc, orgID, customerID, serviceID); err != nil {
		return err
	}

	log.Info("demo data seeded", zap.Int64("org_id", int64(orgID)))
	return nil
}

func ensureAccounts(tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) (map[ledgerdomain.AccountCode]snowflake.ID, error) {
	wanted := []ledgerdomain.Account{
		{Code: ledgerdomain.AccountCodeReceivable, Name: "Accounts Receivable", Type: ledgerdomain.AccountTypeAsset},
		{Code: ledgerdomain.AccountCodeIncome, Name: "Service Income", Type: ledgerdomain.AccountTypeIncome},
		{Code: ledgerdomain.AccountCodeCash, Name: "Cash", Type: ledgerdomain.AccountTypeAsset},
		{Code: ledgerdomain.AccountCodeBank, Name: "Bank", Type: ledgerdomain.AccountTypeAsset},
	}

	out := make(map[ledgerdomain.AccountCode]snowflake.ID, len(wanted))
	for _, want := range wanted {
		var account ledgerdomain.Account
		err := tx.First(&account, "org_id = ? AND code = ?", orgID, want.Code).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			account = want
			account.ID = node.Generate()
			account.OrgID = orgID
			account.CreatedAt = time.Now().UTC()
			err = tx.Create(&account).Error
		}
		if err != nil {
			return nil, err
		}
		out[want.Code] = account.ID
	}
	return out, nil
}

func ensureSettings(tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID, accounts map[ledgerdomain.AccountCode]snowflake.ID) error {
	var settings orgdomain.Settings
	err := tx.First(&settings, "org_id = ?", orgID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	scheme := orgdomain.DefaultNumberingScheme()
	now := time.Now().UTC()
	return tx.Create(&orgdomain.Settings{
		ID:                     node.Generate(),
		OrgID:                  orgID,
		DefaultIncomeAccountID: accounts[ledgerdomain.AccountCodeIncome],
		CashAccountID:          accounts[ledgerdomain.AccountCodeCash],
		InvoicePrefix:          scheme.Prefix,
		InvoiceNumberWidth:     scheme.Width,
		InvoiceZeroPad:         scheme.ZeroPad,
		InvoiceStartNumber:     scheme.StartNumber,
		CreatedAt:              now,
		UpdatedAt:              now,
	}).Error
}

func ensureDemoService(tx *gorm.DB, node *snowflake.Node, orgID, incomeAccountID snowflake.ID) (snowflake.ID, error) {
	const name = "GST Filing"

	var svc catalogdomain.Service
	err := tx.First(&svc, "org_id = ? AND name = ?", orgID, name).Error
	if err == nil {
		return svc.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	now := time.Now().UTC()
	price := int64(500000) // 5000.00 in minor units
	svc = catalogdomain.Service{
		ID:              node.Generate(),
		OrgID:           orgID,
		Name:            name,
		DefaultPrice:    &price,
		TaxRatePercent:  decimal.NewFromInt(18),
		IncomeAccountID: incomeAccountID,
		PaymentTermDays: 15,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.Create(&svc).Error; err != nil {
		return 0, err
	}

	templates := []catalogdomain.TaskTemplate{
		{
			Title:       "File GSTR-1",
			Priority:    "high",
			Cadence:     perioddomain.CadenceMonthly,
			OffsetKind:  perioddomain.OffsetDayOfMonth,
			OffsetValue: 11,
			SortOrder:   0,
		},
		{
			Title:       "File GSTR-3B",
			Priority:    "high",
			Cadence:     perioddomain.CadenceMonthly,
			OffsetKind:  perioddomain.OffsetDayOfMonth,
			OffsetValue: 20,
			SortOrder:   1,
		},
		{
			Title:       "Quarterly reconciliation",
			Priority:    "medium",
			Cadence:     perioddomain.CadenceQuarterly,
			OffsetKind:  perioddomain.OffsetDays,
			OffsetValue: 15,
			SortOrder:   2,
		},
	}
	for i := range templates {
		templates[i].ID = node.Generate()
		templates[i].OrgID = orgID
		templates[i].ServiceID = svc.ID
		templates[i].CreatedAt = now
		templates[i].UpdatedAt = now
		if err := tx.Create(&templates[i]).Error; err != nil {
			return 0, err
		}
	}
	return svc.ID, nil
}

func ensureDemoCustomer(tx *gorm.DB, node *snowflake.Node, orgID, receivableAccountID, serviceID snowflake.ID) (snowflake.ID, error) {
	const name = "Acme Traders"

	var customer customerdomain.Customer
	err := tx.First(&customer, "org_id = ? AND name = ?", orgID, name).Error
	if err == nil {
		return customer.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	now := time.Now().UTC()
	customer = customerdomain.Customer{
		ID:                  node.Generate(),
		OrgID:               orgID,
		Name:                name,
		Email:               "accounts@acmetraders.example",
		ReceivableAccountID: receivableAccountID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.Create(&customer).Error; err != nil {
		return 0, err
	}

	negotiated := customerdomain.ServicePrice{
		ID:         node.Generate(),
		OrgID:      orgID,
		CustomerID: customer.ID,
		ServiceID:  serviceID,
		Price:      450000,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tx.Create(&negotiated).Error; err != nil {
		return 0, err
	}
	return customer.ID, nil
}

func ensureDemoWork(ctx context.Context, db *gorm.DB, workSvc workdomain.Service, orgID, customerID, serviceID snowflake.ID) error {
	var count int64
	err := db.WithContext(ctx).Model(&workdomain.Work{}).
		Where("org_id = ? AND customer_id = ? AND service_id = ?", orgID, customerID, serviceID).
		Count(&count).Error
	if err != nil || count > 0 {
		return err
	}

	// Created through the service so the period backfill runs.
	_, err = workSvc.Create(ctx, workdomain.CreateWorkRequest{
		OrgID:          orgID,
		CustomerID:     customerID,
		ServiceID:      serviceID,
		Title:          "GST Filing - Acme Traders",
		Recurring:      true,
		Cadence:        perioddomain.CadenceQuarterly,
		PeriodCalcType: workdomain.PeriodCalcCurrent,
		StartDate:      time.Now().UTC().AddDate(0, -6, 0),
		AutoBill:       true,
		Documents:      []string{"Sales register", "Purchase register"},
	})
	return err
}
