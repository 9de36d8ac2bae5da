package server

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/treefix50/showroom/internal/catalog"
	"github.com/treefix50/showroom/internal/navigation"
)

const (
	errNotFound = "not found"
	errInternal = "internal error"
)

// showResponse is the JSON form of the detail modal.
type showResponse struct {
	Show     *catalog.Show    `json:"show"`
	Previous *catalog.Summary `json:"previous"`
	Next     *catalog.Summary `json:"next"`
}

func (s *Server) handleAPIShows(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	f := catalog.Filter{
		Query: query.Get("q"),
		Genre: query.Get("genre"),
	}
	if raw := query.Get("person"); raw != "" {
		id, ok := navigation.ParseID(raw)
		if !ok {
			writeAPIError(w, http.StatusBadRequest, "invalid person id")
			return
		}
		f.PersonID = id
	}
	writeJSON(w, http.StatusOK, s.collection.Shows(f))
}

func (s *Server) handleAPIShow(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, ok := navigation.ParseID(raw)
	if !ok {
		writeAPIError(w, http.StatusNotFound, errNotFound)
		return
	}
	show, ok := s.details.Lookup(id)
	if !ok {
		writeAPIError(w, http.StatusNotFound, errNotFound)
		return
	}

	shows := s.collection.Shows(catalog.Filter{Query: r.URL.Query().Get("q")})
	neighbors := navigation.Resolve(shows, raw)
	writeJSON(w, http.StatusOK, showResponse{
		Show:     show,
		Previous: neighbors.Previous,
		Next:     neighbors.Next,
	})
}

func (s *Server) handleAPIScans(w http.ResponseWriter, r *http.Request) {
	if s.scanRuns == nil {
		writeAPIError(w, http.StatusNotImplemented, "not available without database")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeAPIError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.scanRuns.ListScanRuns(limit)
	if err != nil {
		s.logger.Error("list scan runs failed", zap.Error(err))
		writeAPIError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if runs == nil {
		runs = []catalog.ScanRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}
