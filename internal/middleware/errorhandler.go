package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bearhedge/navledger/internal/domain/dto"
	"github.com/bearhedge/navledger/internal/logger"
)

// ErrorHandler converts errors attached to the gin context during request
// handling into a standardized JSON error response.
//
// Handlers that already wrote a response are left alone; this is a safety
// net for errors pushed via c.Error() without an explicit status.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	logger.L().Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled request error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", err))
}
