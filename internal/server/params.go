package server

import (
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/praxishq/praxis/pkg/tenantctx"
)

// snowflakeID converts a raw JSON int64 into an id.
func snowflakeID(raw int64) snowflake.ID {
	return snowflake.ID(raw)
}

// orgID resolves the tenant set by OrgMiddleware.
func orgID(c *gin.Context) snowflake.ID {
	id, _ := tenantctx.OrgID(c.Request.Context())
	return snowflake.ID(id)
}

// pathID parses a snowflake id path parameter, aborting with a validation
// error when malformed.
func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	raw := c.Param(name)
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		AbortWithError(c, newValidationError(name, "invalid_id", "invalid "+name))
		return 0, false
	}
	return snowflake.ID(parsed), true
}
