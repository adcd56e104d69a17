package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/tally/internal/models"
	"github.com/julianstephens/tally/internal/storage"
)

// Credentials is the body of sign-up and password grant requests.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of a refresh_token grant.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthorizeRequest asks for an OAuth authorization URL.
type AuthorizeRequest struct {
	Provider   string `json:"provider"`
	RedirectTo string `json:"redirect_to"`
}

// AuthorizeResponse carries the URL the user must visit.
type AuthorizeResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if !decode(w, r, &req) {
		return
	}
	session, err := s.backend.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var (
		session models.Session
		err     error
	)
	switch grant := r.URL.Query().Get("grant_type"); grant {
	case "password":
		var req Credentials
		if !decode(w, r, &req) {
			return
		}
		session, err = s.backend.SignInWithPassword(r.Context(), req.Email, req.Password)
	case "refresh_token":
		var req RefreshRequest
		if !decode(w, r, &req) {
			return
		}
		session, err = s.backend.RefreshSession(r.Context(), req.RefreshToken)
	default:
		err = storage.NewError(storage.KindInvalid, "unsupported grant_type "+grant, nil)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if !decode(w, r, &req) {
		return
	}
	url, err := s.backend.SignInWithOAuth(r.Context(), req.Provider, req.RedirectTo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthorizeResponse{URL: url})
}

// handleLogout accepts an optional refresh token body so an expired access
// token can still revoke its session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := models.Session{AccessToken: bearerToken(r)}
	if r.ContentLength != 0 {
		var req RefreshRequest
		if !decode(w, r, &req) {
			return
		}
		session.RefreshToken = req.RefreshToken
	}
	if err := s.backend.SignOut(r.Context(), session); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).User)
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := s.backend.ListHabits(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	habit, err := s.backend.GetHabit(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (s *Server) handleInsertHabit(w http.ResponseWriter, r *http.Request) {
	var req models.NewHabit
	if !decode(w, r, &req) {
		return
	}
	habit, err := s.backend.InsertHabit(r.Context(), sessionFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	var req models.HabitUpdate
	if !decode(w, r, &req) {
		return
	}
	habit, err := s.backend.UpdateHabit(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteHabit(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	var req models.Profile
	if !decode(w, r, &req) {
		return
	}
	if err := s.backend.UpsertProfile(r.Context(), sessionFrom(r.Context()), req); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListHabitLogs(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, r, storage.NewError(storage.KindInvalid, "since must be an RFC 3339 timestamp", err))
			return
		}
		since = t
	}
	logs, err := s.backend.ListHabitLogs(r.Context(), sessionFrom(r.Context()), since)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleInsertHabitLog(w http.ResponseWriter, r *http.Request) {
	var req models.NewHabitLog
	if !decode(w, r, &req) {
		return
	}
	entry, err := s.backend.InsertHabitLog(r.Context(), sessionFrom(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
