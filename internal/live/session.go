package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-live/internal/feed"
	"github.com/jonathan/resume-live/internal/types"
	"go.uber.org/zap"
)

// Session bundles every live surface behind one target cell and folds the
// change feed into them. A target change resets every surface.
type Session struct {
	cell            *Cell
	scores          *ScoreBoard
	chat            *ChatFeed
	questions       *QuestionBoard
	reactions       *Overlay
	feedback        *Overlay
	chatBubbles     *Overlay
	questionBubbles *Overlay

	mu      sync.RWMutex
	display types.DisplaySettings

	onTarget func(target string, set bool)
	onResync func(target string, set bool)
	logger   *zap.Logger
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	now       func() time.Time
	seed      *uint64
	chatLimit int
	onTarget  func(string, bool)
	onResync  func(string, bool)
	logger    *zap.Logger
}

// WithClock sets the time source used by the overlays.
func WithClock(now func() time.Time) SessionOption {
	return func(c *sessionConfig) { c.now = now }
}

// WithSeed makes overlay positions reproducible.
func WithSeed(seed uint64) SessionOption {
	return func(c *sessionConfig) { c.seed = &seed }
}

// WithChatLimit bounds the chat feed.
func WithChatLimit(limit int) SessionOption {
	return func(c *sessionConfig) { c.chatLimit = limit }
}

// WithTargetHook is called after a target change has reset the session.
// Callers use it to fetch the new target's existing rows and Load them.
func WithTargetHook(fn func(target string, set bool)) SessionOption {
	return func(c *sessionConfig) { c.onTarget = fn }
}

// WithResyncHook is called when the feed reports that changes may have been
// missed.
func WithResyncHook(fn func(target string, set bool)) SessionOption {
	return func(c *sessionConfig) { c.onResync = fn }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(c *sessionConfig) { c.logger = logger }
}

// NewSession creates an empty session with no target.
func NewSession(opts ...SessionOption) *Session {
	cfg := sessionConfig{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	cell := &Cell{}
	overlay := func(kind OverlayKind, offset uint64) *Overlay {
		overlayOpts := []OverlayOption{WithOverlayClock(cfg.now)}
		if cfg.seed != nil {
			overlayOpts = append(overlayOpts, WithOverlaySeed(*cfg.seed+offset))
		}
		return NewOverlay(kind, cell, overlayOpts...)
	}

	return &Session{
		cell:            cell,
		scores:          NewScoreBoard(cell),
		chat:            NewChatFeed(cell, cfg.chatLimit),
		questions:       NewQuestionBoard(cell),
		reactions:       overlay(OverlayReactions, 0),
		feedback:        overlay(OverlayFeedback, 1),
		chatBubbles:     overlay(OverlayChat, 2),
		questionBubbles: overlay(OverlayQuestions, 3),
		display:         types.DisplaySettings{Orientation: types.OrientationHorizontal},
		onTarget:        cfg.onTarget,
		onResync:        cfg.onResync,
		logger:          cfg.logger,
	}
}

// Cell returns the session's target cell.
func (s *Session) Cell() *Cell { return s.cell }

// Scores returns the score aggregator.
func (s *Session) Scores() *ScoreBoard { return s.scores }

// Chat returns the chat feed.
func (s *Session) Chat() *ChatFeed { return s.chat }

// Questions returns the question board.
func (s *Session) Questions() *QuestionBoard { return s.questions }

// Overlay returns the overlay surface of the given kind.
func (s *Session) Overlay(kind OverlayKind) *Overlay {
	switch kind {
	case OverlayFeedback:
		return s.feedback
	case OverlayChat:
		return s.chatBubbles
	case OverlayQuestions:
		return s.questionBubbles
	default:
		return s.reactions
	}
}

// Display returns the last display settings seen on the feed.
func (s *Session) Display() types.DisplaySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display
}

// SetDisplay replaces the display settings.
func (s *Session) SetDisplay(d types.DisplaySettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = d
}

// SetTarget switches the session to target, or to no target when set is
// false. Every surface is reset when the value actually changes.
func (s *Session) SetTarget(target string, set bool) bool {
	var changed bool
	if set && target != "" {
		changed = s.cell.Store(target)
	} else {
		changed = s.cell.Clear()
	}
	if !changed {
		return false
	}

	s.resetSurfaces(types.ClearAll)
	s.logger.Info("review target changed", zap.String("target", target), zap.Bool("set", set))
	if s.onTarget != nil {
		s.onTarget(s.cell.Load())
	}
	return true
}

// Clear resets the surfaces covered by kind. Deletes for the cleared rows
// that arrive afterwards are no-ops.
func (s *Session) Clear(kind types.ClearKind) {
	s.resetSurfaces(kind)
}

func (s *Session) resetSurfaces(kind types.ClearKind) {
	if kind.Includes(types.ClearRatings) {
		s.scores.Reset()
		s.feedback.Reset()
	}
	if kind.Includes(types.ClearReactions) {
		s.reactions.Reset()
	}
	if kind.Includes(types.ClearQuestions) {
		s.questions.Reset()
		s.questionBubbles.Reset()
	}
	if kind.Includes(types.ClearChat) {
		s.chat.Reset()
		s.chatBubbles.Reset()
	}
}

// Load replaces the lists with rows fetched for the current target, given
// newest first. Rows for other targets are ignored. Overlays are not
// populated from history.
func (s *Session) Load(ratings []types.Rating, chat []types.ChatMessage, questions []types.Question) {
	s.scores.Reset()
	s.chat.Reset()
	s.questions.Reset()

	for i := len(ratings) - 1; i >= 0; i-- {
		s.scores.Accept(ratings[i])
	}
	for i := len(chat) - 1; i >= 0; i-- {
		s.chat.Accept(chat[i])
	}
	for _, q := range questions {
		s.questions.Upsert(q)
	}
}

// Apply folds one change into the session.
func (s *Session) Apply(c feed.Change) error {
	if c.Type == feed.EventResync {
		if s.onResync != nil {
			s.onResync(s.cell.Load())
		}
		return nil
	}

	switch c.Table {
	case feed.TableTargets:
		return s.applyTarget(c)
	case feed.TableRatings:
		return s.applyRating(c)
	case feed.TableChat:
		return s.applyChat(c)
	case feed.TableQuestions:
		return s.applyQuestion(c)
	case feed.TableSettings:
		return s.applySettings(c)
	default:
		return nil
	}
}

func (s *Session) applyTarget(c feed.Change) error {
	if c.Type == feed.EventDelete {
		s.SetTarget("", false)
		return nil
	}
	var t types.Target
	if err := c.Decode(&t); err != nil {
		return err
	}
	name, ok := t.Current()
	s.SetTarget(name, ok)
	return nil
}

func (s *Session) applyRating(c feed.Change) error {
	if c.Type == feed.EventDelete {
		id, err := changeID(c)
		if err != nil {
			return err
		}
		s.scores.Remove(id)
		s.feedback.Remove(id.String())
		s.reactions.Remove(id.String())
		return nil
	}

	var row types.RatingRow
	if err := c.Decode(&row); err != nil {
		return err
	}
	rating, err := row.Classify()
	if err != nil {
		return fmt.Errorf("rating %s: %w", row.ID, err)
	}

	switch {
	case rating.IsQuickReaction():
		s.reactions.Push(rating.ID.String(), rating.TargetName, rating.Reaction)
	case rating.IsScored():
		if s.scores.Accept(rating) && rating.Feedback != "" {
			s.feedback.Push(rating.ID.String(), rating.TargetName, rating.Feedback)
		}
	}
	return nil
}

func (s *Session) applyChat(c feed.Change) error {
	if c.Type == feed.EventDelete {
		id, err := changeID(c)
		if err != nil {
			return err
		}
		s.chat.Remove(id)
		s.chatBubbles.Remove(id.String())
		return nil
	}

	var m types.ChatMessage
	if err := c.Decode(&m); err != nil {
		return err
	}
	if s.chat.Accept(m) {
		s.chatBubbles.Push(m.ID.String(), m.TargetName, m.Body)
	}
	return nil
}

func (s *Session) applyQuestion(c feed.Change) error {
	if c.Type == feed.EventDelete {
		id, err := changeID(c)
		if err != nil {
			return err
		}
		s.questions.Remove(id)
		s.questionBubbles.Remove(id.String())
		return nil
	}

	var q types.Question
	if err := c.Decode(&q); err != nil {
		return err
	}
	// Updates to questions the board had not loaded, such as an upvote on
	// an old question, join the list without a bubble.
	if s.questions.Upsert(q) && c.Type == feed.EventInsert && !q.Answered {
		s.questionBubbles.Push(q.ID.String(), q.TargetName, q.Body)
	}
	return nil
}

func (s *Session) applySettings(c feed.Change) error {
	if c.Type == feed.EventDelete {
		return nil
	}
	var rec types.SettingsRecord
	if err := c.Decode(&rec); err != nil {
		return err
	}
	if rec.Key != types.SettingsDisplay {
		return nil
	}
	var d types.DisplaySettings
	if err := json.Unmarshal(rec.Value, &d); err != nil {
		return fmt.Errorf("failed to decode display settings: %w", err)
	}
	s.SetDisplay(d)
	return nil
}

func changeID(c feed.Change) (uuid.UUID, error) {
	raw := c.ID
	if raw == "" && len(c.Row) > 0 {
		var row struct {
			ID string `json:"id"`
		}
		if err := c.Decode(&row); err != nil {
			return uuid.Nil, err
		}
		raw = row.ID
	}
	if raw == "" {
		return uuid.Nil, errors.New("delete change carries no id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid row id %q: %w", raw, err)
	}
	return id, nil
}

// Run applies changes until ctx is cancelled or the channel closes.
// Malformed changes are logged and skipped.
func (s *Session) Run(ctx context.Context, changes <-chan feed.Change) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			if err := s.Apply(c); err != nil {
				s.logger.Warn("skipping change",
					zap.String("table", c.Table),
					zap.String("type", string(c.Type)),
					zap.Error(err))
			}
		}
	}
}

// Snapshot is a point-in-time view of the session for the display.
type Snapshot struct {
	Target        *string                       `json:"target"`
	ResultsHidden bool                          `json:"results_hidden"`
	Orientation   string                        `json:"orientation"`
	Stats         *Stats                        `json:"stats,omitempty"`
	Overlays      map[OverlayKind][]OverlayItem `json:"overlays"`
	Questions     []types.Question              `json:"questions"`
	Chat          []types.ChatMessage           `json:"chat"`
}

// Snapshot returns the current state. Stats are omitted while results are
// hidden.
func (s *Session) Snapshot() Snapshot {
	display := s.Display()
	snap := Snapshot{
		ResultsHidden: display.ResultsHidden,
		Orientation:   display.Orientation,
		Overlays: map[OverlayKind][]OverlayItem{
			OverlayReactions: s.reactions.Visible(),
			OverlayFeedback:  s.feedback.Visible(),
			OverlayChat:      s.chatBubbles.Visible(),
			OverlayQuestions: s.questionBubbles.Visible(),
		},
		Questions: s.questions.Open(),
		Chat:      s.chat.Messages(),
	}
	if name, ok := s.cell.Load(); ok {
		snap.Target = &name
	}
	if !display.ResultsHidden {
		stats := s.scores.Stats()
		snap.Stats = &stats
	}
	return snap
}
