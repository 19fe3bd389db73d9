package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tirth-chokshi/strategy-backend/services"
)

// requestTimeout bounds the store work done for a single request.
const requestTimeout = 5 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func statusOf(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindConflict, services.KindInvalidOrExpired:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes the failure envelope for err. Internal failures are
// logged; their cause is only echoed back outside release mode.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	kind := services.KindOf(err)
	status := statusOf(kind)
	body := gin.H{"success": false, "message": services.MessageOf(err)}

	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
		if gin.Mode() != gin.ReleaseMode {
			body["error"] = err.Error()
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
}
