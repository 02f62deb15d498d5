package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/praxishq/praxis/internal/customer/domain"
)

type createCustomerRequest struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	ReceivableAccountID int64  `json:"receivable_account_id"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customer, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		OrgID:               orgID(c),
		Name:                strings.TrimSpace(req.Name),
		Email:               strings.TrimSpace(req.Email),
		ReceivableAccountID: snowflakeID(req.ReceivableAccountID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": customer})
}

func (s *Server) ListCustomers(c *gin.Context) {
	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomersRequest{OrgID: orgID(c)})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setServicePriceRequest struct {
	Price int64 `json:"price"` // minor units
}

// SetCustomerServicePrice upserts a negotiated per-service price, the middle
// rung of the invoice price chain.
func (s *Server) SetCustomerServicePrice(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	serviceID, ok := pathID(c, "serviceID")
	if !ok {
		return
	}
	var req setServicePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.customerSvc.SetServicePrice(c.Request.Context(), customerdomain.SetServicePriceRequest{
		OrgID:      orgID(c),
		CustomerID: customerID,
		ServiceID:  serviceID,
		Price:      req.Price,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
