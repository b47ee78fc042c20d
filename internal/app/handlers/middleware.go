package handlers

import (
	"net/http"

	"enact/internal/app/network"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

const CallerHeader = "X-Caller-Address"

// CallerMiddleware puts the address from X-Caller-Address into the request
// context, where identity placeholders are resolved from.
func CallerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(CallerHeader)
		if raw == "" {
			c.Next()
			return
		}
		if !common.IsHexAddress(raw) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": CallerHeader + " is not an address"})
			return
		}
		c.Request = c.Request.WithContext(network.WithCaller(c.Request.Context(), common.HexToAddress(raw)))
		c.Next()
	}
}
