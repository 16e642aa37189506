package server

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-live/internal/db"
	"github.com/jonathan/resume-live/internal/types"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu         sync.Mutex
	target     types.Target
	ratings    []types.Rating
	chat       []types.ChatMessage
	questions  []*types.Question
	upvotes    map[string]bool
	settings   map[string]*types.SettingsRecord
	resumes    []types.Resume
	analyses   []types.ResumeAnalysis
	presenters []types.Presenter
	hosts      []*db.HostUser
	pingErr    error
	deleteErr  error
}

var _ Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		upvotes:  make(map[string]bool),
		settings: make(map[string]*types.SettingsRecord),
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) GetTarget(context.Context) (*types.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.target
	return &t, nil
}

func (m *memStore) writeTarget(name *string, expected *int64) (*types.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expected != nil && *expected != m.target.Version {
		return nil, &db.VersionConflictError{Key: "target", Expected: *expected, Actual: m.target.Version}
	}
	m.target = types.Target{Name: name, Version: m.target.Version + 1, UpdatedAt: time.Now()}
	t := m.target
	return &t, nil
}

func (m *memStore) SetTarget(_ context.Context, name string, expected *int64) (*types.Target, error) {
	return m.writeTarget(&name, expected)
}

func (m *memStore) ClearTarget(_ context.Context, expected *int64) (*types.Target, error) {
	return m.writeTarget(nil, expected)
}

func (m *memStore) InsertRating(_ context.Context, r types.Rating) (types.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.ratings = append(m.ratings, r)
	return r, nil
}

func (m *memStore) ListRatings(_ context.Context, target string, limit int) ([]types.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Rating
	for i := len(m.ratings) - 1; i >= 0 && len(out) < limit; i-- {
		if m.ratings[i].TargetName == target {
			out = append(out, m.ratings[i])
		}
	}
	return out, nil
}

func (m *memStore) DeleteRatings(_ context.Context, target string, kind types.ClearKind) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	var ids []uuid.UUID
	m.ratings = slices.DeleteFunc(m.ratings, func(r types.Rating) bool {
		match := r.TargetName == target &&
			(kind == types.ClearAll ||
				(kind == types.ClearRatings && r.Kind == types.RatingScored) ||
				(kind == types.ClearReactions && r.Kind == types.RatingReaction))
		if match {
			ids = append(ids, r.ID)
		}
		return match
	})
	return ids, nil
}

func (m *memStore) InsertChat(_ context.Context, c types.ChatMessage) (types.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.chat = append(m.chat, c)
	return c, nil
}

func (m *memStore) ListChat(_ context.Context, target string, limit int) ([]types.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ChatMessage
	for i := len(m.chat) - 1; i >= 0 && len(out) < limit; i-- {
		if m.chat[i].TargetName == target {
			out = append(out, m.chat[i])
		}
	}
	return out, nil
}

func (m *memStore) DeleteChat(_ context.Context, target string) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	var ids []uuid.UUID
	m.chat = slices.DeleteFunc(m.chat, func(c types.ChatMessage) bool {
		if c.TargetName == target {
			ids = append(ids, c.ID)
			return true
		}
		return false
	})
	return ids, nil
}

func (m *memStore) InsertQuestion(_ context.Context, q types.Question) (types.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = uuid.New()
	q.CreatedAt = time.Now()
	m.questions = append(m.questions, &q)
	return q, nil
}

func (m *memStore) findQuestion(id uuid.UUID) *types.Question {
	for _, q := range m.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (m *memStore) ToggleUpvote(_ context.Context, id uuid.UUID, sessionID string) (*types.Question, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.findQuestion(id)
	if q == nil {
		return nil, false, db.ErrNotFound
	}
	key := id.String() + "/" + sessionID
	upvoted := !m.upvotes[key]
	if upvoted {
		m.upvotes[key] = true
		q.Upvotes++
	} else {
		delete(m.upvotes, key)
		q.Upvotes--
	}
	copied := *q
	return &copied, upvoted, nil
}

func (m *memStore) ListQuestions(_ context.Context, target string, includeAnswered bool) ([]types.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Question
	for _, q := range m.questions {
		if q.TargetName == target && (includeAnswered || !q.Answered) {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memStore) AnswerQuestion(_ context.Context, id uuid.UUID) (*types.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.findQuestion(id)
	if q == nil {
		return nil, db.ErrNotFound
	}
	now := time.Now()
	q.Answered = true
	q.AnsweredAt = &now
	copied := *q
	return &copied, nil
}

func (m *memStore) DeleteQuestions(_ context.Context, target string) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	var ids []uuid.UUID
	m.questions = slices.DeleteFunc(m.questions, func(q *types.Question) bool {
		if q.TargetName == target {
			ids = append(ids, q.ID)
			return true
		}
		return false
	})
	return ids, nil
}

func (m *memStore) GetSettings(_ context.Context, key string) (*types.SettingsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.settings[key]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (m *memStore) ListSettings(context.Context) ([]types.SettingsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.SettingsRecord
	for _, rec := range m.settings {
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memStore) PutSettings(_ context.Context, key string, value json.RawMessage, expected *int64) (*types.SettingsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var version int64
	if rec, ok := m.settings[key]; ok {
		version = rec.Version
	}
	if expected != nil && *expected != version {
		return nil, &db.VersionConflictError{Key: key, Expected: *expected, Actual: version}
	}
	rec := &types.SettingsRecord{Key: key, Value: value, Version: version + 1, UpdatedAt: time.Now()}
	m.settings[key] = rec
	copied := *rec
	return &copied, nil
}

func (m *memStore) InsertPresenter(_ context.Context, p types.Presenter) (types.Presenter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.presenters {
		if existing.Email == p.Email {
			return types.Presenter{}, &db.DuplicateError{Entity: "presenter", Field: "email", Value: p.Email}
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.presenters = append(m.presenters, p)
	return p, nil
}

func (m *memStore) ListPresenters(context.Context) ([]types.Presenter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.presenters), nil
}

func (m *memStore) InsertResume(_ context.Context, r types.Resume) (types.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New()
	r.UploadedAt = time.Now()
	m.resumes = append(m.resumes, r)
	return r, nil
}

func (m *memStore) GetResume(_ context.Context, id uuid.UUID) (*types.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.resumes {
		if r.ID == id {
			copied := r
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListResumes(_ context.Context, limit int) ([]types.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.resumes)
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) SaveAnalysis(_ context.Context, a types.ResumeAnalysis) (types.ResumeAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.analyses = append(m.analyses, a)
	return a, nil
}

func (m *memStore) GetLatestAnalysis(_ context.Context, resumeID uuid.UUID) (*types.ResumeAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.analyses) - 1; i >= 0; i-- {
		if m.analyses[i].ResumeID == resumeID {
			copied := m.analyses[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateHost(_ context.Context, name, email, hash string) (*db.HostUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, h := range m.hosts {
		if h.Email == email {
			return nil, &db.DuplicateError{Entity: "host", Field: "email", Value: email}
		}
	}
	h := &db.HostUser{ID: uuid.New(), Name: name, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	m.hosts = append(m.hosts, h)
	return h, nil
}

func (m *memStore) GetHostByEmail(_ context.Context, email string) (*db.HostUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hosts {
		if strings.EqualFold(h.Email, email) {
			return h, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetHost(_ context.Context, id uuid.UUID) (*db.HostUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hosts {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, nil
}

func (m *memStore) CountHosts(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hosts), nil
}
