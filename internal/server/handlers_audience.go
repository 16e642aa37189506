package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-live/internal/ingestion"
	"github.com/jonathan/resume-live/internal/schemas"
	"github.com/jonathan/resume-live/internal/types"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	maxJSONBody      = 64 << 10
)

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return &RequestError{Message: "request body too large"}
		case errors.Is(err, io.EOF):
			return &RequestError{Message: "request body is empty"}
		default:
			return &RequestError{Message: "invalid request body"}
		}
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &RequestError{Field: name, Message: "must be a UUID"}
	}
	return id, nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, &RequestError{Field: "limit", Message: "must be a positive integer"}
	}
	return min(limit, maxListLimit), nil
}

// queryTarget returns the target named in the query, falling back to the
// current register. ok is false when neither names a target.
func (s *Server) queryTarget(r *http.Request) (target string, ok bool, err error) {
	if target = strings.TrimSpace(r.URL.Query().Get("target")); target != "" {
		return target, true, nil
	}
	current, err := s.store.GetTarget(r.Context())
	if err != nil {
		return "", false, err
	}
	target, ok = current.Current()
	return target, ok, nil
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	target, err := s.store.GetTarget(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, target)
}

type createdResponse struct {
	ID uuid.UUID `json:"id"`
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var in ingestion.RatingInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	id, err := s.ingest.SubmitRating(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, in)
		return
	}
	s.jsonResponse(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleSubmitReaction(w http.ResponseWriter, r *http.Request) {
	var in ingestion.ReactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	id, err := s.ingest.SubmitReaction(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, in)
		return
	}
	s.jsonResponse(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleSubmitChat(w http.ResponseWriter, r *http.Request) {
	var in ingestion.ChatInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	id, err := s.ingest.SubmitChat(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, in)
		return
	}
	s.jsonResponse(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleSubmitQuestion(w http.ResponseWriter, r *http.Request) {
	var in ingestion.QuestionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	id, err := s.ingest.SubmitQuestion(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, in)
		return
	}
	s.jsonResponse(w, http.StatusCreated, createdResponse{ID: id})
}

type upvoteRequest struct {
	SessionID string `json:"session_id"`
}

type upvoteResponse struct {
	Upvotes int  `json:"upvotes"`
	Upvoted bool `json:"upvoted"`
}

func (s *Server) handleUpvote(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	var in upvoteRequest
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	upvotes, upvoted, err := s.ingest.ToggleUpvote(r.Context(), id, in.SessionID)
	if err != nil {
		s.writeError(w, r, err, in)
		return
	}
	s.jsonResponse(w, http.StatusOK, upvoteResponse{Upvotes: upvotes, Upvoted: upvoted})
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	target, ok, err := s.queryTarget(r)
	if err != nil || !ok {
		writeList[types.Rating](s, w, r, nil, err)
		return
	}
	ratings, err := s.store.ListRatings(r.Context(), target, limit)
	if err == nil {
		switch r.URL.Query().Get("kind") {
		case "scored":
			ratings = slices.DeleteFunc(ratings, func(rt types.Rating) bool { return !rt.IsScored() })
		case "reaction":
			ratings = slices.DeleteFunc(ratings, func(rt types.Rating) bool { return !rt.IsQuickReaction() })
		}
	}
	writeList(s, w, r, ratings, err)
}

func (s *Server) handleListChat(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	target, ok, err := s.queryTarget(r)
	if err != nil || !ok {
		writeList[types.ChatMessage](s, w, r, nil, err)
		return
	}
	chat, err := s.store.ListChat(r.Context(), target, limit)
	writeList(s, w, r, chat, err)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	target, ok, err := s.queryTarget(r)
	if err != nil || !ok {
		writeList[types.Question](s, w, r, nil, err)
		return
	}
	includeAnswered := r.URL.Query().Get("answered") == "true"
	questions, err := s.store.ListQuestions(r.Context(), target, includeAnswered)
	writeList(s, w, r, questions, err)
}

// writeList writes items, substituting an empty array for nil.
func writeList[T any](s *Server, w http.ResponseWriter, r *http.Request, items []T, err error) {
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if items == nil {
		items = []T{}
	}
	s.jsonResponse(w, http.StatusOK, items)
}

// handleDisplay returns the server-side session snapshot for the streaming
// overlay. Stats are omitted while results are hidden.
func (s *Server) handleDisplay(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	record, err := s.settingsRecord(r, r.PathValue("key"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

// settingsRecord loads a settings row, substituting the default value at
// version 0 when the row has never been written.
func (s *Server) settingsRecord(r *http.Request, key string) (*types.SettingsRecord, error) {
	if !slices.Contains(types.SettingsKeys, key) {
		return nil, &schemas.UnknownKeyError{Key: key}
	}
	record, err := s.store.GetSettings(r.Context(), key)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}
	value, err := json.Marshal(types.DefaultSettings()[key])
	if err != nil {
		return nil, fmt.Errorf("failed to encode default %s settings: %w", key, err)
	}
	return &types.SettingsRecord{Key: key, Value: value}, nil
}

func (s *Server) handleRegisterPresenter(w http.ResponseWriter, r *http.Request) {
	var in ingestion.PresenterInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	presenter, err := s.ingest.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, in)
		return
	}
	s.jsonResponse(w, http.StatusCreated, presenter)
}
