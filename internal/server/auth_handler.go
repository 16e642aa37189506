package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-live/internal/server/middleware"
	"github.com/jonathan/resume-live/internal/types"
)

// handleLogin exchanges host credentials for a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, extractValidationErrors(err), nil)
		return
	}

	host, err := s.hosts.Login(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.respondWithToken(w, r, http.StatusOK, host)
}

// handleRegister creates a host account. The first account may be created
// anonymously; after that a host token is required.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	bootstrap, err := s.hosts.NeedsBootstrap(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if !bootstrap {
		if _, err := middleware.Authenticate(s.jwtService.AsTokenValidator(), r); err != nil {
			s.writeError(w, r, ErrForbidden, nil)
			return
		}
	}

	var req types.RegisterHostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, extractValidationErrors(err), nil)
		return
	}

	host, err := s.hosts.Register(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.respondWithToken(w, r, http.StatusCreated, host)
}

func (s *Server) respondWithToken(w http.ResponseWriter, r *http.Request, status int, host *types.Host) {
	token, err := s.jwtService.GenerateToken(host.ID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.jsonResponse(w, status, types.LoginResponse{Host: host, Token: token})
}

// handleMe returns the authenticated host.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	hostID, err := middleware.GetHostID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	host, err := s.hosts.Get(r.Context(), hostID)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, host)
}

// extractValidationErrors reports the first failed field of a validator error.
func extractValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &RequestError{Field: strings.ToLower(ve.Field()), Message: "failed " + ve.Tag() + " validation"}
	}
	return &RequestError{Message: "invalid request"}
}
