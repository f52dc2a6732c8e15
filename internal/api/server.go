package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mledder/camplan/internal/models"
	"github.com/mledder/camplan/internal/service"
)

// Server provides the JSON API over the planning engine.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// API – Parents
	s.mux.HandleFunc("GET /api/parents", s.handleGetParents)
	s.mux.HandleFunc("POST /api/parents", s.handleCreateParent)
	s.mux.HandleFunc("PUT /api/parents/{id}", s.handleUpdateParent)

	// API – Kids
	s.mux.HandleFunc("GET /api/kids", s.handleGetKids)
	s.mux.HandleFunc("POST /api/kids", s.handleCreateKid)
	s.mux.HandleFunc("GET /api/kids/{id}", s.handleGetKid)
	s.mux.HandleFunc("PUT /api/kids/{id}", s.handleUpdateKid)
	s.mux.HandleFunc("DELETE /api/kids/{id}", s.handleDeactivateKid)
	s.mux.HandleFunc("GET /api/kids/{id}/weeks", s.handleKidWeeks)

	// API – Trips
	s.mux.HandleFunc("GET /api/trips", s.handleGetTrips)
	s.mux.HandleFunc("POST /api/trips", s.handleCreateTrip)
	s.mux.HandleFunc("PUT /api/trips/{id}", s.handleUpdateTrip)
	s.mux.HandleFunc("DELETE /api/trips/{id}", s.handleDeleteTrip)

	// API – Camps & sessions
	s.mux.HandleFunc("GET /api/camps", s.handleGetCamps)
	s.mux.HandleFunc("POST /api/camps", s.handleCreateCamp)
	s.mux.HandleFunc("PUT /api/camps/{id}", s.handleUpdateCamp)
	s.mux.HandleFunc("DELETE /api/camps/{id}", s.handleDeleteCamp)
	s.mux.HandleFunc("POST /api/camps/{id}/sessions/bulk", s.handleBulkImport)
	s.mux.HandleFunc("GET /api/sessions", s.handleGetSessions)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("PUT /api/sessions/{id}", s.handleUpdateSession)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("GET /api/sessions/{id}/eligibility", s.handleEligibility)

	// API – Weeks
	s.mux.HandleFunc("GET /api/weeks", s.handleGetWeeks)
	s.mux.HandleFunc("POST /api/weeks/recalculate", s.handleRecalculateWeeks)

	// API – Candidacies (the booking ledger)
	s.mux.HandleFunc("POST /api/candidacies", s.handleAddIdea)
	s.mux.HandleFunc("GET /api/candidacies/active", s.handleActiveView)
	s.mux.HandleFunc("PUT /api/candidacies/{id}/prefer", s.handlePrefer)
	s.mux.HandleFunc("PUT /api/candidacies/{id}/unprefer", s.handleUnprefer)
	s.mux.HandleFunc("PUT /api/candidacies/{id}/book", s.handleBook)
	s.mux.HandleFunc("PUT /api/candidacies/{id}/unbook", s.handleUnbook)

	// API – Conflicts & sync health
	s.mux.HandleFunc("GET /api/conflicts", s.handleConflicts)
	s.mux.HandleFunc("GET /api/sync/degraded", s.handleDegraded)
	s.mux.HandleFunc("POST /api/sync/retry", s.handleRetrySync)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the engine's sentinel errors onto HTTP codes.
// Invariant violations are the caller's problem, not the server's.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrAlreadyBooked),
		errors.Is(err, service.ErrDuplicateRank):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrIneligible),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrNoSchoolDates):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.WithError(err).Error(fallback)
		s.respondError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// queryID reads a required int64 query parameter. It writes an error
// response and returns false when the parameter is absent or invalid.
func (s *Server) queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, name+" query parameter is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return id, true
}

// ---------------------------------------------------------------------------
// Parents
// ---------------------------------------------------------------------------

func (s *Server) handleGetParents(w http.ResponseWriter, r *http.Request) {
	parents, err := s.svc.Parents.GetAll(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "failed to get parents")
		return
	}
	s.respondJSON(w, http.StatusOK, parents)
}

func (s *Server) handleCreateParent(w http.ResponseWriter, r *http.Request) {
	var parent models.Parent
	if ok, msg := s.decodeJSON(r, &parent); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(parent.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := s.svc.Parents.Create(r.Context(), &parent)
	if err != nil {
		s.respondServiceError(w, err, "failed to create parent")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateParent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var parent models.Parent
	if ok, msg := s.decodeJSON(r, &parent); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	parent.ID = id
	updated, err := s.svc.Parents.Update(r.Context(), &parent)
	if err != nil {
		s.respondServiceError(w, err, "failed to update parent")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

// ---------------------------------------------------------------------------
// Kids
// ---------------------------------------------------------------------------

func (s *Server) handleGetKids(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	kids, err := s.svc.Kids.GetAll(r.Context(), activeOnly)
	if err != nil {
		s.respondServiceError(w, err, "failed to get kids")
		return
	}
	s.respondJSON(w, http.StatusOK, kids)
}

func (s *Server) handleCreateKid(w http.ResponseWriter, r *http.Request) {
	var kid models.Kid
	if ok, msg := s.decodeJSON(r, &kid); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(kid.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if kid.Birthdate.IsZero() {
		s.respondError(w, http.StatusBadRequest, "birthdate is required")
		return
	}
	kid.Active = true
	created, err := s.svc.Kids.Create(r.Context(), &kid)
	if err != nil {
		s.respondServiceError(w, err, "failed to create kid")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetKid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	kid, err := s.svc.Kids.GetByID(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "failed to get kid")
		return
	}
	if kid == nil {
		s.respondError(w, http.StatusNotFound, "kid not found")
		return
	}
	s.respondJSON(w, http.StatusOK, kid)
}

// handleUpdateKid saves roster changes. Eligibility of the kid's live
// candidacies is re-checked; stale ones come back as warnings, never as
// silent mutations.
func (s *Server) handleUpdateKid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var kid models.Kid
	if ok, msg := s.decodeJSON(r, &kid); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	kid.ID = id
	updated, warnings, err := s.svc.UpdateKid(r.Context(), &kid)
	if err != nil {
		s.respondServiceError(w, err, "failed to update kid")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"kid":      updated,
		"warnings": warnings,
	})
}

func (s *Server) handleDeactivateKid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.svc.Kids.Deactivate(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "failed to deactivate kid")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleKidWeeks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	weeks, err := s.svc.WeeksForKid(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "failed to project weeks")
		return
	}
	s.respondJSON(w, http.StatusOK, weeks)
}

// ---------------------------------------------------------------------------
// Trips
// ---------------------------------------------------------------------------

func (s *Server) handleGetTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.svc.Trips.GetAll(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "failed to get trips")
		return
	}
	s.respondJSON(w, http.StatusOK, trips)
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var trip models.Trip
	if ok, msg := s.decodeJSON(r, &trip); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(trip.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if trip.EndDate.Before(trip.StartDate) {
		s.respondError(w, http.StatusBadRequest, "end_date precedes start_date")
		return
	}
	created, err := s.svc.Trips.Create(r.Context(), &trip)
	if err != nil {
		s.respondServiceError(w, err, "failed to create trip")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var trip models.Trip
	if ok, msg := s.decodeJSON(r, &trip); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	trip.ID = id
	updated, err := s.svc.Trips.Update(r.Context(), &trip)
	if err != nil {
		s.respondServiceError(w, err, "failed to update trip")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.svc.Trips.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "failed to delete trip")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Camps & sessions
// ---------------------------------------------------------------------------

func (s *Server) handleGetCamps(w http.ResponseWriter, r *http.Request) {
	camps, err := s.svc.Camps.GetAll(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "failed to get camps")
		return
	}
	s.respondJSON(w, http.StatusOK, camps)
}

func (s *Server) handleCreateCamp(w http.ResponseWriter, r *http.Request) {
	var camp models.Camp
	if ok, msg := s.decodeJSON(r, &camp); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(camp.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := s.svc.Camps.Create(r.Context(), &camp)
	if err != nil {
		s.respondServiceError(w, err, "failed to create camp")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCamp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var camp models.Camp
	if ok, msg := s.decodeJSON(r, &camp); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	camp.ID = id
	updated, err := s.svc.Camps.Update(r.Context(), &camp)
	if err != nil {
		s.respondServiceError(w, err, "failed to update camp")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCamp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.svc.Camps.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "failed to delete camp")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	campID, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var proposals []service.SessionProposal
	if ok, msg := s.decodeJSON(r, &proposals); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	result, err := s.svc.BulkImportSessions(r.Context(), campID, proposals)
	if result == nil && err != nil {
		s.respondServiceError(w, err, "failed to import sessions")
		return
	}
	// Partial failure still returns the full per-item report.
	status := http.StatusCreated
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	s.respondJSON(w, status, result)
}

func (s *Server) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("camp_id"); raw != "" {
		campID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "camp_id must be an integer")
			return
		}
		sessions, err := s.svc.Sessions.GetByCampID(r.Context(), campID)
		if err != nil {
			s.respondServiceError(w, err, "failed to get sessions")
			return
		}
		s.respondJSON(w, http.StatusOK, sessions)
		return
	}
	sessions, err := s.svc.Sessions.GetAll(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "failed to get sessions")
		return
	}
	s.respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var session models.Session
	if ok, msg := s.decodeJSON(r, &session); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(session.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if session.EndDate.Before(session.StartDate) {
		s.respondError(w, http.StatusBadRequest, "end_date precedes start_date")
		return
	}
	if !session.HolidaysWithinSpan() {
		s.respondError(w, http.StatusBadRequest, "holidays must fall inside the session span")
		return
	}
	created, err := s.svc.Sessions.Create(r.Context(), &session)
	if err != nil {
		s.respondServiceError(w, err, "failed to create session")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	session, err := s.svc.Sessions.GetByID(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "failed to get session")
		return
	}
	if session == nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var session models.Session
	if ok, msg := s.decodeJSON(r, &session); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	session.ID = id
	updated, err := s.svc.UpdateSession(r.Context(), &session)
	if err != nil {
		s.respondServiceError(w, err, "failed to update session")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.svc.Sessions.Delete(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "failed to delete session")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	kidID, ok := s.queryID(w, r, "kid_id")
	if !ok {
		return
	}
	session, err := s.svc.Sessions.GetByID(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err, "failed to get session")
		return
	}
	if session == nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	kid, err := s.svc.Kids.GetByID(r.Context(), kidID)
	if err != nil {
		s.respondServiceError(w, err, "failed to get kid")
		return
	}
	if kid == nil {
		s.respondError(w, http.StatusNotFound, "kid not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"eligibility":       service.CheckEligibility(kid, session),
		"friends_attending": session.MutualFriends(kid),
	})
}

// ---------------------------------------------------------------------------
// Weeks
// ---------------------------------------------------------------------------

func (s *Server) handleGetWeeks(w http.ResponseWriter, r *http.Request) {
	weeks, err := s.svc.Weeks.GetAll(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "failed to get weeks")
		return
	}
	s.respondJSON(w, http.StatusOK, weeks)
}

func (s *Server) handleRecalculateWeeks(w http.ResponseWriter, r *http.Request) {
	weeks, warnings, err := s.svc.RecalculateWeeks(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "failed to recalculate weeks")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"weeks":    weeks,
		"orphaned": warnings,
	})
}

// ---------------------------------------------------------------------------
// Candidacies
// ---------------------------------------------------------------------------

type addIdeaRequest struct {
	KidID     int64 `json:"kid_id"`
	SessionID int64 `json:"session_id"`
}

func (s *Server) handleAddIdea(w http.ResponseWriter, r *http.Request) {
	var req addIdeaRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.KidID == 0 || req.SessionID == 0 {
		s.respondError(w, http.StatusBadRequest, "kid_id and session_id are required")
		return
	}
	created, err := s.svc.AddIdea(r.Context(), req.KidID, req.SessionID)
	if err != nil {
		s.respondServiceError(w, err, "failed to add idea")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleActiveView(w http.ResponseWriter, r *http.Request) {
	kidID, ok := s.queryID(w, r, "kid_id")
	if !ok {
		return
	}
	weekID, ok := s.queryID(w, r, "week_id")
	if !ok {
		return
	}
	showHidden := r.URL.Query().Get("show_hidden") == "true"
	cands, err := s.svc.ActiveView(r.Context(), kidID, weekID, showHidden)
	if err != nil {
		s.respondServiceError(w, err, "failed to get candidacies")
		return
	}
	s.respondJSON(w, http.StatusOK, cands)
}

type preferRequest struct {
	Rank   int  `json:"rank"`
	Reflow bool `json:"reflow"`
}

func (s *Server) handlePrefer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req preferRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Rank < 1 {
		s.respondError(w, http.StatusBadRequest, "rank must be a positive integer")
		return
	}
	updated, err := s.svc.Prefer(r.Context(), id, req.Rank, req.Reflow)
	if err != nil {
		s.respondServiceError(w, err, "failed to prefer candidacy")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleUnprefer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	updated, err := s.svc.Unprefer(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "failed to unprefer candidacy")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	updated, err := s.svc.Book(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "failed to book candidacy")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleUnbook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	updated, err := s.svc.Unbook(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "failed to unbook candidacy")
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

// ---------------------------------------------------------------------------
// Conflicts & sync health
// ---------------------------------------------------------------------------

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("kid_id") != "" || q.Get("week_id") != "" {
		kidID, ok := s.queryID(w, r, "kid_id")
		if !ok {
			return
		}
		weekID, ok := s.queryID(w, r, "week_id")
		if !ok {
			return
		}
		conflicts, err := s.svc.ConflictsForKidWeek(r.Context(), kidID, weekID)
		if err != nil {
			s.respondServiceError(w, err, "failed to detect conflicts")
			return
		}
		s.respondJSON(w, http.StatusOK, conflicts)
		return
	}
	conflicts, err := s.svc.AllConflicts(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "failed to detect conflicts")
		return
	}
	s.respondJSON(w, http.StatusOK, conflicts)
}

func (s *Server) handleDegraded(w http.ResponseWriter, r *http.Request) {
	cands, err := s.svc.DegradedCandidacies(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "failed to list degraded candidacies")
		return
	}
	s.respondJSON(w, http.StatusOK, cands)
}

type retrySyncRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleRetrySync(w http.ResponseWriter, r *http.Request) {
	var req retrySyncRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Key == "" {
		s.respondError(w, http.StatusBadRequest, "key is required")
		return
	}
	if err := s.svc.RetrySync(r.Context(), req.Key); err != nil {
		s.respondServiceError(w, err, "failed to retry sync")
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "at": time.Now().Format(time.RFC3339)})
}
