package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
)

func (s *Server) ListInvoices(c *gin.Context) {
	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoicesRequest{OrgID: orgID(c)})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoice(c *gin.Context) {
	invoiceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), orgID(c), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

type transitionInvoiceRequest struct {
	Status string `json:"status"`
}

// TransitionInvoiceStatus applies the state machine; the ledger poster
// reacts to the published status change.
func (s *Server) TransitionInvoiceStatus(c *gin.Context) {
	invoiceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transitionInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	// Scope check before the mutation: the service keys on id alone.
	if _, err := s.invoiceSvc.GetByID(c.Request.Context(), orgID(c), invoiceID); err != nil {
		AbortWithError(c, err)
		return
	}

	err := s.invoiceSvc.TransitionStatus(c.Request.Context(), invoiceID, invoicedomain.InvoiceStatus(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
