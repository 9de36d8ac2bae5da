package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/treefix50/showroom/internal/auth"
)

// handleAdminScan triggers a library scan. The endpoint does not exist
// unless an admin password hash is configured.
func (s *Server) handleAdminScan(w http.ResponseWriter, r *http.Request) {
	if !s.credentials.Enabled() || s.scanner == nil {
		s.handleNotFound(w, r)
		return
	}

	if ok, wait := s.limiter.Allow(clientKey(r)); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		writeAPIError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		s.unauthorized(w)
		return
	}
	if err := s.credentials.Check(username, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("admin login failed", zap.String("user", username), zap.String("client", clientKey(r)))
			s.unauthorized(w)
			return
		}
		writeAPIError(w, http.StatusInternalServerError, errInternal)
		return
	}

	result, err := s.scanner.Scan(r.Context())
	if err != nil {
		s.logger.Error("admin scan failed", zap.Error(err))
		writeAPIError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="showroom admin", charset="UTF-8"`)
	writeAPIError(w, http.StatusUnauthorized, "invalid credentials")
}
