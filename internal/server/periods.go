package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
)

func (s *Server) ListPeriodTasks(c *gin.Context) {
	periodID, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.periodSvc.ListTasks(c.Request.Context(), perioddomain.ListTasksRequest{
		OrgID:    orgID(c),
		PeriodID: periodID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateTaskStatusRequest struct {
	Status string `json:"status"`
}

// UpdateTaskStatus flips one task; completion cascades into the period
// recount and, when the period finishes, invoice generation.
func (s *Server) UpdateTaskStatus(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.periodSvc.UpdateTaskStatus(c.Request.Context(), taskID, perioddomain.TaskStatus(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
