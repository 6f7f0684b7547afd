package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aptitude-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Tests

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := s.service.ListTests(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, len(tests), tests)
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request) {
	test, err := s.service.GetTest(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, test)
}

type submitRequest struct {
	Answers   json.RawMessage `json:"answers"`
	TimeTaken json.RawMessage `json:"timeTaken"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	timeTaken, err := parseTimeTaken(req.TimeTaken)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	answers, err := domain.DecodeAnswers(req.Answers)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	id := identityFromContext(r.Context())
	attempt, err := s.service.Submit(r.Context(), id.UserID, chi.URLParam(r, "testID"), answers, timeTaken)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, attempt)
}

// parseTimeTaken accepts a JSON integer; range checks belong to grading.
func parseTimeTaken(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || (trimmed[0] != '-' && (trimmed[0] < '0' || trimmed[0] > '9')) {
		return 0, domain.ErrInvalidTime
	}
	n, err := json.Number(trimmed).Int64()
	if err != nil || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, domain.ErrInvalidTime
	}
	return int(n), nil
}

// Attempts

func (s *Server) handleMyAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.service.MyAttempts(r.Context(), identityFromContext(r.Context()).UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, len(attempts), attempts)
}

func (s *Server) handleTestAttempts(w http.ResponseWriter, r *http.Request) {
	userID := identityFromContext(r.Context()).UserID
	attempts, err := s.service.TestAttempts(r.Context(), userID, chi.URLParam(r, "testID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, len(attempts), attempts)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	userID := identityFromContext(r.Context()).UserID
	cmp, err := s.service.Compare(r.Context(), userID, chi.URLParam(r, "testID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Summarize(r.Context(), identityFromContext(r.Context()).UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	id := identityFromContext(r.Context())
	attempt, err := s.service.GetAttempt(r.Context(), id.UserID, id.IsAdmin(), chi.URLParam(r, "attemptID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, attempt)
}

// Leaderboards

func (s *Server) handleOverallLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := s.parseLimit(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	entries, err := s.service.OverallLeaderboard(r.Context(), limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, len(entries), entries)
}

func (s *Server) handleTestLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.handleTestLeaderboardFor(w, r, chi.URLParam(r, "testID"))
}

// parseLimit returns the service default when the parameter is absent.
func (s *Server) parseLimit(r *http.Request) (int, error) {
	raw, ok := r.URL.Query()["limit"]
	if !ok || len(raw) == 0 {
		return s.service.DefaultLimit(), nil
	}
	limit, err := strconv.Atoi(strings.TrimSpace(raw[0]))
	if err != nil || limit < 1 {
		return 0, domain.ErrInvalidLimit
	}
	return limit, nil
}

// Admin

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.AdminStats(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, len(users), users)
}

func (s *Server) handleAdminAttempts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AttemptFilter{
		UserID: q.Get("userId"),
		TestID: q.Get("testId"),
	}
	var err error
	if filter.From, err = parseDate(q.Get("startDate")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if filter.To, err = parseDate(q.Get("endDate")); err != nil {
		respondServiceError(w, r, err)
		return
	}

	attempts, err := s.service.ListAttempts(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, len(attempts), attempts)
}

func (s *Server) handleAdminLeaderboard(w http.ResponseWriter, r *http.Request) {
	if testID := r.URL.Query().Get("testId"); testID != "" {
		s.handleTestLeaderboardFor(w, r, testID)
		return
	}
	s.handleOverallLeaderboard(w, r)
}

func (s *Server) handleTestLeaderboardFor(w http.ResponseWriter, r *http.Request, testID string) {
	limit, err := s.parseLimit(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	lb, err := s.service.TestLeaderboard(r.Context(), testID, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, len(lb.Entries), lb.Entries)
}

// parseDate accepts RFC 3339 timestamps or bare YYYY-MM-DD dates (midnight UTC).
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: bad date %q", domain.ErrInvalidInput, raw)
}
