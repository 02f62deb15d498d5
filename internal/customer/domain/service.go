package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateCustomerRequest struct {
	OrgID               snowflake.ID
	Name                string
	Email               string
	ReceivableAccountID snowflake.ID
}

type SetServicePriceRequest struct {
	OrgID      snowflake.ID
	CustomerID snowflake.ID
	ServiceID  snowflake.ID
	Price      int64 // minor units
}

type ListCustomersRequest struct {
	OrgID snowflake.ID
}

type ListCustomersResponse struct {
	Customers []Customer `json:"customers"`
}

// Service manages customers and their negotiated per-service prices.
type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error)
	GetByID(ctx context.Context, orgID, customerID snowflake.ID) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) (ListCustomersResponse, error)

	// SetServicePrice upserts the negotiated price for one service.
	SetServicePrice(ctx context.Context, req SetServicePriceRequest) error

	// ServicePriceFor returns the negotiated price, or nil when none is set.
	ServicePriceFor(ctx context.Context, orgID, customerID, serviceID snowflake.ID) (*int64, error)
}

var ErrCustomerNotFound = errors.New("customer_not_found")
