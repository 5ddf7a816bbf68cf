package web

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	lf "github.com/bigredeye/catalystx/internal/logfield"
	"github.com/bigredeye/catalystx/internal/metrics"
)

func instrument(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	method := c.Request.Method
	metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
}

func formatSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}

// rateLimit allows a fixed number of requests per client ip and window. A limiter failure lets the request through.
func (s *server) rateLimit(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		ip := c.ClientIP()
		res, err := s.limiter.Allow(c.Request.Context(), name+":"+ip)
		if err != nil {
			s.logger.Warn("Rate limiter failed", lf.ClientIP(ip), zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			metrics.RateLimitedTotal.WithLabelValues(name).Inc()
			s.logger.Info("Rate limited", lf.ClientIP(ip), zap.String("route", name))
			c.Header("Retry-After", formatSeconds(res.RetryAfter))
			abortWithStatus(c, http.StatusTooManyRequests,
				errors.Errorf("Too many requests, retry in %ss", formatSeconds(res.RetryAfter)))
			return
		}
		c.Next()
	}
}
