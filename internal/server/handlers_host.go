package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-live/internal/feed"
	"github.com/jonathan/resume-live/internal/ingestion"
	"github.com/jonathan/resume-live/internal/logger"
	"github.com/jonathan/resume-live/internal/schemas"
	"github.com/jonathan/resume-live/internal/types"
)

// targetRowID is the id of the single targets row.
const targetRowID = "1"

type setTargetRequest struct {
	Name            string `json:"name"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var in setTargetRequest
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	name := ingestion.SingleLine(in.Name)
	if name == "" {
		s.writeError(w, r, &RequestError{Field: "name", Message: "is required"}, in)
		return
	}

	target, err := s.store.SetTarget(r.Context(), name, in.ExpectedVersion)
	if err != nil {
		s.writeError(w, r, err, in)
		return
	}
	s.publish(feed.EventUpdate, feed.TableTargets, targetRowID, "", target)
	s.logger.Info("review target set", zap.String(logger.FieldTarget, name), zap.Int64("version", target.Version))
	s.jsonResponse(w, http.StatusOK, target)
}

func (s *Server) handleClearTarget(w http.ResponseWriter, r *http.Request) {
	expected, err := queryVersion(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	target, err := s.store.ClearTarget(r.Context(), expected)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.publish(feed.EventUpdate, feed.TableTargets, targetRowID, "", target)
	s.logger.Info("review target cleared", zap.Int64("version", target.Version))
	s.jsonResponse(w, http.StatusOK, target)
}

func queryVersion(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("expected_version")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &RequestError{Field: "expected_version", Message: "must be an integer"}
	}
	return &v, nil
}

type clearResponse struct {
	Kind    types.ClearKind `json:"kind"`
	Target  string          `json:"target"`
	Deleted int             `json:"deleted"`
}

// handleClear deletes one kind of event for a target. The display session
// is reset before the delete changes arrive, which then find nothing to
// remove.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	kind, err := types.ParseClearKind(r.PathValue("kind"))
	if err != nil {
		s.writeError(w, r, &RequestError{Field: "kind", Message: err.Error()}, nil)
		return
	}
	target, ok, err := s.queryTarget(r)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if !ok {
		s.writeError(w, r, &ingestion.ValidationError{Field: "target", Message: "no review target is set"}, nil)
		return
	}

	reset := false
	if current, ok := s.session.Cell().Load(); ok && current == target {
		s.session.Clear(kind)
		reset = true
	}
	deleted, err := s.clearRows(r.Context(), target, kind)
	if err != nil {
		if reset {
			// Rows that were not deleted come back on the display.
			s.syncSession(context.WithoutCancel(r.Context()))
		}
		s.writeError(w, r, err, nil)
		return
	}

	s.logger.Info("cleared events",
		zap.String(logger.FieldTarget, target),
		zap.String("kind", string(kind)),
		zap.Int("deleted", deleted))
	s.jsonResponse(w, http.StatusOK, clearResponse{Kind: kind, Target: target, Deleted: deleted})
}

func (s *Server) clearRows(ctx context.Context, target string, kind types.ClearKind) (int, error) {
	deleted := 0
	emit := func(table string, ids []uuid.UUID) {
		for _, id := range ids {
			s.publish(feed.EventDelete, table, id.String(), target, nil)
		}
		deleted += len(ids)
	}

	if kind.Includes(types.ClearRatings) || kind.Includes(types.ClearReactions) {
		ids, err := s.store.DeleteRatings(ctx, target, kind)
		if err != nil {
			return deleted, fmt.Errorf("failed to clear ratings: %w", err)
		}
		emit(feed.TableRatings, ids)
	}
	if kind.Includes(types.ClearQuestions) {
		ids, err := s.store.DeleteQuestions(ctx, target)
		if err != nil {
			return deleted, fmt.Errorf("failed to clear questions: %w", err)
		}
		emit(feed.TableQuestions, ids)
	}
	if kind.Includes(types.ClearChat) {
		ids, err := s.store.DeleteChat(ctx, target)
		if err != nil {
			return deleted, fmt.Errorf("failed to clear chat: %w", err)
		}
		emit(feed.TableChat, ids)
	}
	return deleted, nil
}

func (s *Server) handleAnswerQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	q, err := s.store.AnswerQuestion(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.publish(feed.EventUpdate, feed.TableQuestions, q.ID.String(), q.TargetName, q)
	s.jsonResponse(w, http.StatusOK, q)
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	records := make([]types.SettingsRecord, 0, len(types.SettingsKeys))
	for _, key := range types.SettingsKeys {
		record, err := s.settingsRecord(r, key)
		if err != nil {
			s.writeError(w, r, err, nil)
			return
		}
		records = append(records, *record)
	}
	s.jsonResponse(w, http.StatusOK, records)
}

type putSettingsRequest struct {
	Value           json.RawMessage `json:"value"`
	ExpectedVersion *int64          `json:"expected_version,omitempty"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var in putSettingsRequest
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if len(in.Value) == 0 {
		s.writeError(w, r, &RequestError{Field: "value", Message: "is required"}, in)
		return
	}

	record, err := s.writeSettings(r.Context(), key, in.Value, in.ExpectedVersion)
	if err != nil {
		s.writeError(w, r, err, in)
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

// writeSettings validates value against the key's schema, stores it and
// publishes the change.
func (s *Server) writeSettings(ctx context.Context, key string, value json.RawMessage, expected *int64) (*types.SettingsRecord, error) {
	if err := schemas.ValidateSettings(key, value); err != nil {
		return nil, err
	}
	record, err := s.store.PutSettings(ctx, key, value, expected)
	if err != nil {
		return nil, err
	}
	s.publish(feed.EventUpdate, feed.TableSettings, key, "", record)
	return record, nil
}

type timerRequest struct {
	DurationSeconds int `json:"duration_seconds,omitempty"`
}

type timerResponse struct {
	types.TimerState
	RemainingSeconds int   `json:"remaining_seconds"`
	Version          int64 `json:"version"`
}

func (s *Server) handleTimerStart(w http.ResponseWriter, r *http.Request) {
	var in timerRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &in); err != nil {
			s.writeError(w, r, err, nil)
			return
		}
	}
	s.updateTimer(w, r, func(t *types.TimerState) {
		if in.DurationSeconds > 0 {
			t.DurationSeconds = in.DurationSeconds
		}
		now := s.now().UTC()
		t.Running = true
		t.StartedAt = &now
	})
}

func (s *Server) handleTimerStop(w http.ResponseWriter, r *http.Request) {
	s.updateTimer(w, r, func(t *types.TimerState) {
		t.Running = false
		t.StartedAt = nil
	})
}

func (s *Server) updateTimer(w http.ResponseWriter, r *http.Request, update func(*types.TimerState)) {
	current, err := s.settingsRecord(r, types.SettingsTimer)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	var timer types.TimerState
	if err := json.Unmarshal(current.Value, &timer); err != nil {
		s.writeError(w, r, fmt.Errorf("failed to decode timer settings: %w", err), nil)
		return
	}
	update(&timer)

	value, err := json.Marshal(timer)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	record, err := s.writeSettings(r.Context(), types.SettingsTimer, value, nil)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	s.jsonResponse(w, http.StatusOK, timerResponse{
		TimerState:       timer,
		RemainingSeconds: int(timer.Remaining(s.now()).Seconds()),
		Version:          record.Version,
	})
}

func (s *Server) handleListPresenters(w http.ResponseWriter, r *http.Request) {
	presenters, err := s.store.ListPresenters(r.Context())
	writeList(s, w, r, presenters, err)
}
