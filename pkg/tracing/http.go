package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// GinMiddleware traces HTTP requests, skipping operational endpoints and
// the long-lived WebSocket/SSE routes whose spans would never close.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			if p == "/health" || p == "/metrics" || p == "/ws" {
				return false
			}
			if strings.HasPrefix(p, "/swagger/") {
				return false
			}
			return !strings.HasSuffix(p, "/stream")
		}),
	)
}
