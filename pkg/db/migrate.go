package db

import (
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
	customerdomain "github.com/praxishq/praxis/internal/customer/domain"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	ledgerdomain "github.com/praxishq/praxis/internal/ledger/domain"
	orgdomain "github.com/praxishq/praxis/internal/org/domain"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	pipelinedomain "github.com/praxishq/praxis/internal/pipeline/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate applies the schema for every persisted model. Ordered parent-first
// so dialects that infer foreign keys resolve cleanly.
func Migrate(gdb *gorm.DB, logger *zap.Logger) error {
	err := gdb.AutoMigrate(
		&orgdomain.Settings{},
		&customerdomain.Customer{},
		&catalogdomain.Service{},
		&catalogdomain.TaskTemplate{},
		&customerdomain.ServicePrice{},
		&workdomain.Work{},
		&workdomain.WorkDocument{},
		&catalogdomain.WorkTaskConfig{},
		&perioddomain.Period{},
		&perioddomain.PeriodTask{},
		&perioddomain.PeriodDocument{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&ledgerdomain.Account{},
		&ledgerdomain.Transaction{},
		&ledgerdomain.Voucher{},
		&ledgerdomain.VoucherEntry{},
		&pipelinedomain.Failure{},
	)
	if err != nil {
		return err
	}
	logger.Info("database schema migrated")
	return nil
}
