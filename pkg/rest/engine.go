package rest

import (
	"enact/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts middlewares and routes on the engine, creating one group per distinct Group.
func RegisterRoutes(engine *gin.Engine, log *logger.Logger, middlewares []Middleware, routes []Route) {
	groups := map[string]*gin.RouterGroup{}
	group := func(name string) *gin.RouterGroup {
		if _, exists := groups[name]; !exists {
			groups[name] = engine.Group("/" + name)
		}
		return groups[name]
	}

	for _, m := range middlewares {
		if m.Group == AllGroups {
			engine.Use(m.Handler)
			continue
		}
		group(m.Group).Use(m.Handler)
	}

	for _, r := range routes {
		g := group(r.Group)

		switch r.Method {
		case GET:
			g.GET(r.Path, r.HandlerFunc)
		case POST:
			g.POST(r.Path, r.HandlerFunc)
		case PUT:
			g.PUT(r.Path, r.HandlerFunc)
		case PATCH:
			g.PATCH(r.Path, r.HandlerFunc)
		case DELETE:
			g.DELETE(r.Path, r.HandlerFunc)
		default:
			log.Warnf("Unrecognized HTTP method: %s", r.Method)
		}
	}
}
