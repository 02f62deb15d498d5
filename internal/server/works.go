package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
)

type createWorkRequest struct {
	CustomerID int64  `json:"customer_id"`
	ServiceID  int64  `json:"service_id"`
	Title      string `json:"title"`

	Recurring            bool   `json:"recurring"`
	Cadence              string `json:"cadence"`
	FiscalYearStartMonth int    `json:"fiscal_year_start_month"`
	WeekStartDay         int    `json:"week_start_day"`
	PeriodCalcType       string `json:"period_calc_type"`
	StartDate            string `json:"start_date"` // 2006-01-02

	AutoBill      bool     `json:"auto_bill"`
	BillingAmount *int64   `json:"billing_amount"`
	Documents     []string `json:"documents"`
}

func (s *Server) CreateWork(c *gin.Context) {
	var req createWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, time.UTC)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "start_date must be YYYY-MM-DD"))
		return
	}

	work, err := s.workSvc.Create(c.Request.Context(), workdomain.CreateWorkRequest{
		OrgID:                orgID(c),
		CustomerID:           snowflakeID(req.CustomerID),
		ServiceID:            snowflakeID(req.ServiceID),
		Title:                strings.TrimSpace(req.Title),
		Recurring:            req.Recurring,
		Cadence:              perioddomain.Cadence(req.Cadence),
		FiscalYearStartMonth: req.FiscalYearStartMonth,
		WeekStartDay:         req.WeekStartDay,
		PeriodCalcType:       workdomain.PeriodCalcType(req.PeriodCalcType),
		StartDate:            startDate,
		AutoBill:             req.AutoBill,
		BillingAmount:        req.BillingAmount,
		Documents:            req.Documents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": work})
}

type updateWorkRequest struct {
	Title         *string `json:"title"`
	AutoBill      *bool   `json:"auto_bill"`
	BillingAmount *int64  `json:"billing_amount"`
	Status        *string `json:"status"`

	Cadence              *string `json:"cadence"`
	FiscalYearStartMonth *int    `json:"fiscal_year_start_month"`
	PeriodCalcType       *string `json:"period_calc_type"`
}

func (s *Server) UpdateWork(c *gin.Context) {
	workID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := workdomain.UpdateWorkRequest{
		OrgID:                orgID(c),
		WorkID:               workID,
		Title:                req.Title,
		AutoBill:             req.AutoBill,
		BillingAmount:        req.BillingAmount,
		FiscalYearStartMonth: req.FiscalYearStartMonth,
	}
	if req.Status != nil {
		status := workdomain.WorkStatus(*req.Status)
		update.Status = &status
	}
	if req.Cadence != nil {
		cadence := perioddomain.Cadence(*req.Cadence)
		update.Cadence = &cadence
	}
	if req.PeriodCalcType != nil {
		calcType := workdomain.PeriodCalcType(*req.PeriodCalcType)
		update.PeriodCalcType = &calcType
	}

	work, err := s.workSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": work})
}

func (s *Server) GetWork(c *gin.Context) {
	workID, ok := pathID(c, "id")
	if !ok {
		return
	}
	work, err := s.workSvc.GetByID(c.Request.Context(), orgID(c), workID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": work})
}

func (s *Server) ListWorks(c *gin.Context) {
	resp, err := s.workSvc.List(c.Request.Context(), workdomain.ListWorksRequest{OrgID: orgID(c)})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListWorkPeriods(c *gin.Context) {
	workID, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.periodSvc.List(c.Request.Context(), perioddomain.ListPeriodsRequest{
		OrgID:  orgID(c),
		WorkID: workID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GenerateWorkPeriods is the manual catch-up trigger, same core the
// scheduler sweep runs.
func (s *Server) GenerateWorkPeriods(c *gin.Context) {
	workID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := s.workSvc.GetByID(c.Request.Context(), orgID(c), workID); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.periodSvc.EnsureUpToDate(c.Request.Context(), workID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
