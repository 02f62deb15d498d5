package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateServiceRequest struct {
	OrgID           snowflake.ID
	Name            string
	DefaultPrice    *int64
	TaxRatePercent  string // decimal string, e.g. "18"
	IncomeAccountID snowflake.ID
	PaymentTermDays int
	Templates       []CreateTemplateRequest
}

type CreateTemplateRequest struct {
	Title            string
	Priority         string
	EstimatedHours   int
	Cadence          string
	OffsetKind       string
	OffsetValue      int
	MonthsAfter      int
	ExactDueDate     string // 2006-01-02, optional
	AnchorMonth      int
	AnchorDay        int
	Weekday          *int
	DueDateOverrides map[string]string
	SortOrder        int
}

type ListServicesRequest struct {
	OrgID snowflake.ID
}

type ListServicesResponse struct {
	Services []Service `json:"services"`
}

// Service manages the service catalog and its task templates.
type CatalogService interface {
	CreateService(ctx context.Context, req CreateServiceRequest) (*Service, error)
	GetService(ctx context.Context, orgID, serviceID snowflake.ID) (*Service, error)
	ListServices(ctx context.Context, req ListServicesRequest) (ListServicesResponse, error)
	ListTemplates(ctx context.Context, orgID, serviceID snowflake.ID) ([]TaskTemplate, error)
}

var (
	ErrServiceNotFound = errors.New("service_not_found")
	ErrInvalidTaxRate  = errors.New("invalid_tax_rate")
	ErrInvalidDueRule  = errors.New("invalid_due_rule")
)
