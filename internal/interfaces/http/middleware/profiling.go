package middleware

import (
	"context"
	"strings"

	"github.com/erp/servicedesk/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling tags every request's profile samples with its route pattern,
// method and resource ("service-orders", "kanban"). Requests to skipPaths
// and unmatched routes run unlabelled.
func Profiling(enabled bool, skipPaths ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		labels := profilingLabels(c)
		if len(labels) == 0 {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	if route == "" {
		return nil
	}
	labels := map[string]string{
		telemetry.ProfilingLabelRoute:  route,
		telemetry.ProfilingLabelMethod: c.Request.Method,
	}
	if resource := resourceFromRoute(route); resource != "" {
		labels[telemetry.ProfilingLabelResource] = resource
	}
	return labels
}

// resourceFromRoute returns the first segment after the API version:
// "/api/v1/kanban/cards/:id/move" -> "kanban"
func resourceFromRoute(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	for i, part := range parts {
		if part == "api" {
			continue
		}
		if strings.HasPrefix(part, "v") && i > 0 && parts[i-1] == "api" {
			continue
		}
		if part == "" || strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			return ""
		}
		return part
	}
	return ""
}
