package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pipelinedomain "github.com/praxishq/praxis/internal/pipeline/domain"
)

// ListPipelineFailures surfaces the downstream failures (missing price,
// unmapped account) that the fail-open pipeline recorded instead of
// breaking the triggering user action.
func (s *Server) ListPipelineFailures(c *gin.Context) {
	resp, err := s.failures.List(c.Request.Context(), pipelinedomain.ListFailuresRequest{
		OrgID:      orgID(c),
		Unresolved: c.Query("unresolved") == "true",
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResolvePipelineFailure(c *gin.Context) {
	failureID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.failures.Resolve(c.Request.Context(), orgID(c), failureID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
