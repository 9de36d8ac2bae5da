package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

func logMiddleware(next http.Handler, logger *zap.Logger, corsEnabled bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		setCORSHeaders(w, corsEnabled)
		sw := newStatusResponseWriter(w)
		next.ServeHTTP(sw, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
