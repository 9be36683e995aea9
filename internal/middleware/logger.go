package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/gecilind/University-Management-System/internal/logging"
)

// RequestLogger puts a request scoped entry into the request context and
// logs one line per completed request.
func RequestLogger(base *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			entry := base.WithFields(logrus.Fields{
				"method":    req.Method,
				"path":      c.Path(),
				"url":       req.URL.Path,
				"remote_ip": c.RealIP(),
			})
			if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
				entry = entry.WithField("request_id", rid)
			} else if rid := req.Header.Get(echo.HeaderXRequestID); rid != "" {
				entry = entry.WithField("request_id", rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), entry)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			fields := logrus.Fields{"status": status, "duration_ms": time.Since(start).Milliseconds()}
			if p, ok := PrincipalFrom(c); ok {
				fields["user_id"] = p.User.ID
			}
			l := entry.WithFields(fields)

			switch {
			case err != nil || status >= 500:
				l.WithError(err).Error("request completed")
			case status >= 400:
				l.Warn("request completed")
			default:
				l.WithField("bytes", c.Response().Size).Info("request completed")
			}
			return nil
		}
	}
}
