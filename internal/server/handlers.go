package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sourcingdenis/devfinder/pkg/errors"
	"github.com/sourcingdenis/devfinder/pkg/export"
	"github.com/sourcingdenis/devfinder/pkg/search"
)

// filterFromQuery decodes a search filter from URL query parameters.
func (s *Server) filterFromQuery(r *http.Request) (search.Filter, error) {
	q := r.URL.Query()
	filter := search.Filter{
		Text:     q.Get("q"),
		Language: q.Get("language"),
		Hireable: q.Get("hireable") == "true",
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
		PerPage:  s.cfg.Search.PerPage,
	}
	if locations := q.Get("locations"); locations != "" {
		for _, loc := range strings.Split(locations, ",") {
			if loc = strings.TrimSpace(loc); loc != "" {
				filter.Locations = append(filter.Locations, loc)
			}
		}
	}
	if page := q.Get("page"); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return filter, errors.New(errors.ErrCodeInvalidFilter, "invalid page %q", page)
		}
		filter.Page = n
	}
	if perPage := q.Get("per_page"); perPage != "" {
		n, err := strconv.Atoi(perPage)
		if err != nil || n < 1 || n > 100 {
			return filter, errors.New(errors.ErrCodeInvalidFilter, "per_page must be in [1, 100]")
		}
		filter.PerPage = n
	}
	if err := errors.ValidateQueryText(filter.Text); err != nil {
		return filter, err
	}
	return filter, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	filter, err := s.filterFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := s.fetcherFor(sess).FetchPage(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleSearchCSV streams every page of the filter's results as CSV.
func (s *Server) handleSearchCSV(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	filter, err := s.filterFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	all, err := s.fetcherFor(sess).FetchAllPages(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="devfinder-search.csv"`)
	if err := export.WriteCSV(all.Records, w); err != nil {
		s.log.Error("csv export failed", "err", err)
	}
}

// storeEmailRequest is the body of POST /api/emails.
type storeEmailRequest struct {
	Login      string  `json:"login"`
	Email      string  `json:"email"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

func (s *Server) handleStoreEmail(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req storeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid JSON body"))
		return
	}

	rec, err := s.enricherFor(sess).StoreEmail(r.Context(), req.Login, req.Email, req.Source, req.Confidence, sess.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleBestEmail(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	login := chi.URLParam(r, "login")

	rec, err := s.enricherFor(sess).BestEmail(r.Context(), login)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// nameRequest is the body of list create and rename calls.
type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid JSON body"))
		return
	}

	rec, err := s.lists.CreateList(r.Context(), sess.UserID(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	all, err := s.lists.Lists(r.Context(), sess.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	rec, err := s.lists.List(r.Context(), sess.UserID(), chi.URLParam(r, "listID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRenameList(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid JSON body"))
		return
	}
	if err := s.lists.RenameList(r.Context(), sess.UserID(), chi.URLParam(r, "listID"), req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := s.lists.DeleteList(r.Context(), sess.UserID(), chi.URLParam(r, "listID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCSV(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	rec, err := s.lists.List(r.Context(), sess.UserID(), chi.URLParam(r, "listID"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="devfinder-list.csv"`)
	if err := export.WriteListCSV(rec, w); err != nil {
		s.log.Error("csv export failed", "err", err)
	}
}

func (s *Server) handleAddProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var rec search.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid JSON body"))
		return
	}
	if err := s.lists.SaveProfile(r.Context(), sess.UserID(), chi.URLParam(r, "listID"), rec); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	err := s.lists.RemoveProfile(r.Context(), sess.UserID(), chi.URLParam(r, "listID"), chi.URLParam(r, "login"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// saveSearchRequest is the body of POST /api/searches.
type saveSearchRequest struct {
	Name   string        `json:"name"`
	Filter search.Filter `json:"filter"`
}

func (s *Server) handleSaveSearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req saveSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid JSON body"))
		return
	}

	rec, err := s.lists.SaveSearch(r.Context(), sess.UserID(), req.Name, req.Filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleSavedSearches(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	all, err := s.lists.SavedSearches(r.Context(), sess.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// handleReplaySearch loads a saved filter and runs it.
func (s *Server) handleReplaySearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	filter, err := s.lists.ReplaySearch(r.Context(), sess.UserID(), chi.URLParam(r, "searchID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if filter.PerPage == 0 {
		filter.PerPage = s.cfg.Search.PerPage
	}

	page, err := s.fetcherFor(sess).FetchPage(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDeleteSearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := s.lists.DeleteSearch(r.Context(), sess.UserID(), chi.URLParam(r, "searchID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
