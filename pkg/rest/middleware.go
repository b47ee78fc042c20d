package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AllGroups applies a middleware to the whole engine instead of a single group.
const AllGroups = "*"

type Middleware struct {
	Handler gin.HandlerFunc
	Group   string
}

func NewMiddleware(group string, handler gin.HandlerFunc) Middleware {
	return Middleware{
		Group:   group,
		Handler: handler,
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Caller-Address")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
