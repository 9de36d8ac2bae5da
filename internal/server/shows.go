package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/treefix50/showroom/internal/catalog"
	"github.com/treefix50/showroom/internal/navigation"
)

func (s *Server) handleShows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	heading := "All shows"
	if q != "" {
		heading = fmt.Sprintf("Shows matching %q", q)
	}
	s.render(w, http.StatusOK, "shows.html", listPage{
		Title:    "Shows",
		Heading:  heading,
		Query:    q,
		Shows:    s.collection.Shows(catalog.Filter{Query: q}),
		LastScan: s.collection.LastScan(),
	})
}

// handleShowDetail renders the detail modal. Prev/Next follow the order of
// the list the modal was opened from, which is the search for q.
func (s *Server) handleShowDetail(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, ok := navigation.ParseID(raw)
	if !ok {
		s.notFound(w, "No show with id "+raw+".")
		return
	}
	show, ok := s.details.Lookup(id)
	if !ok {
		s.notFound(w, "No show with id "+raw+".")
		return
	}

	q := r.URL.Query().Get("q")
	shows := s.collection.Shows(catalog.Filter{Query: q})
	neighbors := navigation.Resolve(shows, raw)

	s.render(w, http.StatusOK, "detail.html", detailPage{
		listPage: listPage{
			Title:    show.Name,
			Heading:  "Shows",
			Query:    q,
			Shows:    shows,
			LastScan: s.collection.LastScan(),
		},
		Show:     show,
		Previous: neighbors.Previous,
		Next:     neighbors.Next,
	})
}

func (s *Server) handlePoster(w http.ResponseWriter, r *http.Request) {
	id, ok := navigation.ParseID(r.PathValue("id"))
	if !ok {
		httpError(w, http.StatusNotFound, "poster not found")
		return
	}
	show, ok := s.details.Lookup(id)
	if !ok || show.PosterPath == "" {
		httpError(w, http.StatusNotFound, "poster not found")
		return
	}

	f, err := os.Open(show.PosterPath)
	if err != nil {
		httpError(w, http.StatusNotFound, "poster not found")
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		s.logger.Warn("poster stat failed", zap.String("path", show.PosterPath), zap.Error(err))
		httpError(w, http.StatusInternalServerError, "poster stat failed")
		return
	}

	w.Header().Set("Content-Type", catalog.PosterContentType(show.PosterPath))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, filepath.Base(show.PosterPath), st.ModTime(), f)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "tags.html", tagsPage{
		Title:  "Tags",
		Genres: s.collection.Genres(),
	})
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	genre := r.PathValue("genre")
	shows := s.collection.Shows(catalog.Filter{Genre: genre})
	if len(shows) == 0 {
		s.notFound(w, "No shows tagged "+genre+".")
		return
	}
	s.render(w, http.StatusOK, "shows.html", listPage{
		Title:    genre,
		Heading:  "Tagged " + genre,
		Shows:    shows,
		LastScan: s.collection.LastScan(),
	})
}

func (s *Server) handleActor(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, ok := navigation.ParseID(raw)
	if !ok {
		s.notFound(w, "No actor with id "+raw+".")
		return
	}
	shows := s.collection.Shows(catalog.Filter{PersonID: id})
	if len(shows) == 0 {
		s.notFound(w, "No actor with id "+raw+".")
		return
	}

	heading := "Shows"
	if name := s.personName(shows[0].ID, id); name != "" {
		heading = "Shows with " + name
	}
	s.render(w, http.StatusOK, "shows.html", listPage{
		Title:    heading,
		Heading:  heading,
		Shows:    shows,
		LastScan: s.collection.LastScan(),
	})
}

// personName finds the display name of a person through one of their shows.
func (s *Server) personName(showID, personID int64) string {
	show, ok := s.details.Lookup(showID)
	if !ok {
		return ""
	}
	for _, member := range show.Cast {
		if member.Person.ID == personID {
			return member.Person.Name
		}
	}
	return ""
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.notFound(w, "Nothing lives at "+r.URL.Path+".")
}

func (s *Server) notFound(w http.ResponseWriter, msg string) {
	s.render(w, http.StatusNotFound, "notfound.html", notFoundPage{
		Title:   "Not found",
		Message: msg,
	})
}
