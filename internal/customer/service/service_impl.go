package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/praxishq/praxis/internal/clock"
	customerdomain "github.com/praxishq/praxis/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func NewService(p ServiceParam) customerdomain.Service {
	return &Service{db: p.DB, log: p.Log.Named("customer.service"), genID: p.GenID, clock: p.Clock}
}

func (s *Service) Create(ctx context.Context, req customerdomain.CreateCustomerRequest) (*customerdomain.Customer, error) {
	now := s.clock.Now()
	customer := &customerdomain.Customer{
		ID:                  s.genID.Generate(),
		OrgID:               req.OrgID,
		Name:                req.Name,
		Email:               req.Email,
		ReceivableAccountID: req.ReceivableAccountID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, orgID, customerID snowflake.ID) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := s.db.WithContext(ctx).First(&customer, "id = ? AND org_id = ?", customerID, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerdomain.ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Service) List(ctx context.Context, req customerdomain.ListCustomersRequest) (customerdomain.ListCustomersResponse, error) {
	var customers []customerdomain.Customer
	err := s.db.WithContext(ctx).Where("org_id = ?", req.OrgID).Order("name").Find(&customers).Error
	if err != nil {
		return customerdomain.ListCustomersResponse{}, err
	}
	return customerdomain.ListCustomersResponse{Customers: customers}, nil
}

func (s *Service) SetServicePrice(ctx context.Context, req customerdomain.SetServicePriceRequest) error {
	now := s.clock.Now()
	row := customerdomain.ServicePrice{
		ID:         s.genID.Generate(),
		OrgID:      req.OrgID,
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
		Price:      req.Price,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "service_id"}},
		DoUpdates: clause.Assignments(map[string]any{"price": req.Price, "updated_at": now}),
	}).Create(&row).Error
}

func (s *Service) ServicePriceFor(ctx context.Context, orgID, customerID, serviceID snowflake.ID) (*int64, error) {
	var row customerdomain.ServicePrice
	err := s.db.WithContext(ctx).
		First(&row, "org_id = ? AND customer_id = ? AND service_id = ?", orgID, customerID, serviceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row.Price, nil
}
