package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/productsync/internal/interfaces/http/dto"
)

// BodyLimit returns a middleware that limits request body size.
// Bodies without a Content-Length are cut off by http.MaxBytesReader and fail JSON binding.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			AbortWithError(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size")
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
