package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
	customerdomain "github.com/praxishq/praxis/internal/customer/domain"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	ledgerdomain "github.com/praxishq/praxis/internal/ledger/domain"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
	"github.com/praxishq/praxis/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ErrorHandlingMiddleware converts errors attached to the gin context into a
// uniform JSON error envelope. Handlers call AbortWithError and return.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{{Field: field, Code: code, Message: message}},
	}
}

func mapError(err error) (int, errorPayload) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}

	case isConflictError(err):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}

	case isBadRequestError(err):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}

	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{Type: "unprocessable", Message: err.Error()}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, workdomain.ErrWorkNotFound) ||
		errors.Is(err, perioddomain.ErrWorkNotFound) ||
		errors.Is(err, perioddomain.ErrPeriodNotFound) ||
		errors.Is(err, perioddomain.ErrTaskNotFound) ||
		errors.Is(err, invoicedomain.ErrInvoiceNotFound) ||
		errors.Is(err, catalogdomain.ErrServiceNotFound) ||
		errors.Is(err, customerdomain.ErrCustomerNotFound)
}

func isConflictError(err error) bool {
	return errors.Is(err, ErrConflict) ||
		db.IsDuplicateKeyErr(err) ||
		errors.Is(err, workdomain.ErrRecurrenceLocked) ||
		errors.Is(err, invoicedomain.ErrAlreadyInvoiced)
}

func isBadRequestError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, workdomain.ErrInvalidStartDate) ||
		errors.Is(err, workdomain.ErrInvalidCadence) ||
		errors.Is(err, perioddomain.ErrInvalidStatus) ||
		errors.Is(err, perioddomain.ErrInvalidCadence) ||
		errors.Is(err, catalogdomain.ErrInvalidTaxRate) ||
		errors.Is(err, catalogdomain.ErrInvalidDueRule) ||
		errors.Is(err, invoicedomain.ErrInvalidTransition)
}

func isUnprocessableError(err error) bool {
	return errors.Is(err, invoicedomain.ErrPeriodIncomplete) ||
		errors.Is(err, invoicedomain.ErrAutoBillDisabled) ||
		errors.Is(err, invoicedomain.ErrNoPriceConfigured) ||
		errors.Is(err, invoicedomain.ErrNoIncomeAccount) ||
		errors.Is(err, perioddomain.ErrNoTaskTemplates) ||
		errors.Is(err, ledgerdomain.ErrAccountNotMapped) ||
		errors.Is(err, ledgerdomain.ErrNoCashAccount)
}
