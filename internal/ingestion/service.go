package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-live/internal/feed"
	"github.com/jonathan/resume-live/internal/moderation"
	"github.com/jonathan/resume-live/internal/types"
)

// Store is the row store used by the service.
type Store interface {
	GetTarget(ctx context.Context) (*types.Target, error)
	InsertRating(ctx context.Context, r types.Rating) (types.Rating, error)
	InsertChat(ctx context.Context, m types.ChatMessage) (types.ChatMessage, error)
	InsertQuestion(ctx context.Context, q types.Question) (types.Question, error)
	ToggleUpvote(ctx context.Context, questionID uuid.UUID, sessionID string) (*types.Question, bool, error)
	GetSettings(ctx context.Context, key string) (*types.SettingsRecord, error)
	InsertPresenter(ctx context.Context, p types.Presenter) (types.Presenter, error)
}

// ValidationError reports a rejected field. Nothing is written when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RatingInput is a scorecard submission. All four scores are required.
type RatingInput struct {
	TargetName   string `json:"target_name"`
	Overall      int    `json:"overall"`
	Presentation int    `json:"presentation"`
	Layout       int    `json:"layout"`
	Content      int    `json:"content"`
	Feedback     string `json:"feedback" validate:"max=1000"`
	Agreement    string `json:"agreement" validate:"omitempty,oneof=agree disagree"`
}

// ReactionInput is a quick emoji reaction.
type ReactionInput struct {
	TargetName string `json:"target_name"`
	Reaction   string `json:"reaction" validate:"required"`
}

// ChatInput is a chat line.
type ChatInput struct {
	TargetName string `json:"target_name"`
	Author     string `json:"author" validate:"max=50"`
	Body       string `json:"body" validate:"required,max=500"`
}

// QuestionInput is an audience question.
type QuestionInput struct {
	TargetName string `json:"target_name"`
	Author     string `json:"author" validate:"max=50"`
	Body       string `json:"body" validate:"required,max=500"`
}

// PresenterInput is a signup for a review slot.
type PresenterInput struct {
	Name     string     `json:"name" validate:"required,max=100"`
	Email    string     `json:"email" validate:"required,email,max=254"`
	ResumeID *uuid.UUID `json:"resume_id,omitempty"`
}

// DefaultAuthor is stored when a chat line or question has no author.
const DefaultAuthor = "Anonymous"

// Service accepts audience events: it validates and moderates input, writes
// the row and publishes the change.
type Service struct {
	store     Store
	checker   *moderation.Checker
	publisher feed.Publisher
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewService creates an ingestion service. publisher may be feed.Nop when the
// store broadcasts its own changes.
func NewService(store Store, checker *moderation.Checker, publisher feed.Publisher, logger *zap.Logger) *Service {
	if checker == nil {
		checker = moderation.NewChecker()
	}
	if publisher == nil {
		publisher = feed.Nop
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		checker:   checker,
		publisher: publisher,
		validate:  validator.New(),
		logger:    logger,
	}
}

// SubmitRating stores a scorecard for the target. Scores are checked before
// the store is touched.
func (s *Service) SubmitRating(ctx context.Context, in RatingInput) (uuid.UUID, error) {
	if err := s.validateStruct(in); err != nil {
		return uuid.Nil, err
	}
	feedback := CleanText(in.Feedback)
	scores := types.Scores{Overall: in.Overall, Presentation: in.Presentation, Layout: in.Layout, Content: in.Content}
	rating, err := types.NewScoredRating("", scores, feedback, types.Agreement(in.Agreement))
	if err != nil {
		return uuid.Nil, ratingError(err)
	}
	if feedback != "" {
		if err := s.moderate("rating", feedback); err != nil {
			return uuid.Nil, err
		}
	}
	target, err := s.resolveTarget(ctx, in.TargetName)
	if err != nil {
		return uuid.Nil, err
	}
	rating.TargetName = target

	saved, err := s.store.InsertRating(ctx, rating)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save rating: %w", err)
	}
	s.publish(feed.TableRatings, saved.ID, target, saved.Row())
	return saved.ID, nil
}

// SubmitReaction stores a quick reaction for the target.
func (s *Service) SubmitReaction(ctx context.Context, in ReactionInput) (uuid.UUID, error) {
	if err := s.validateStruct(in); err != nil {
		return uuid.Nil, err
	}
	rating, err := types.NewQuickReaction("", in.Reaction)
	if err != nil {
		return uuid.Nil, ratingError(err)
	}
	target, err := s.resolveTarget(ctx, in.TargetName)
	if err != nil {
		return uuid.Nil, err
	}
	rating.TargetName = target

	saved, err := s.store.InsertRating(ctx, rating)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save reaction: %w", err)
	}
	s.publish(feed.TableRatings, saved.ID, target, saved.Row())
	return saved.ID, nil
}

// SubmitChat stores a chat line for the target.
func (s *Service) SubmitChat(ctx context.Context, in ChatInput) (uuid.UUID, error) {
	if err := s.validateStruct(in); err != nil {
		return uuid.Nil, err
	}
	author, body, err := s.cleanPost("chat", in.Author, in.Body)
	if err != nil {
		return uuid.Nil, err
	}
	target, err := s.resolveTarget(ctx, in.TargetName)
	if err != nil {
		return uuid.Nil, err
	}

	saved, err := s.store.InsertChat(ctx, types.ChatMessage{TargetName: target, Author: author, Body: body})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save chat message: %w", err)
	}
	s.publish(feed.TableChat, saved.ID, target, saved)
	return saved.ID, nil
}

// SubmitQuestion stores a question for the target.
func (s *Service) SubmitQuestion(ctx context.Context, in QuestionInput) (uuid.UUID, error) {
	if err := s.validateStruct(in); err != nil {
		return uuid.Nil, err
	}
	author, body, err := s.cleanPost("question", in.Author, in.Body)
	if err != nil {
		return uuid.Nil, err
	}
	target, err := s.resolveTarget(ctx, in.TargetName)
	if err != nil {
		return uuid.Nil, err
	}

	saved, err := s.store.InsertQuestion(ctx, types.Question{TargetName: target, Author: author, Body: body})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save question: %w", err)
	}
	s.publish(feed.TableQuestions, saved.ID, target, saved)
	return saved.ID, nil
}

// ToggleUpvote adds the session's upvote to a question, or removes it when
// the session already upvoted. It returns the new count and whether the
// session now holds an upvote.
func (s *Service) ToggleUpvote(ctx context.Context, questionID uuid.UUID, sessionID string) (int, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, false, &ValidationError{Field: "session_id", Message: "is required"}
	}
	q, upvoted, err := s.store.ToggleUpvote(ctx, questionID, sessionID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to toggle upvote: %w", err)
	}
	s.publishType(feed.EventUpdate, feed.TableQuestions, q.ID, q.TargetName, q)
	return q.Upvotes, upvoted, nil
}

// Register adds a presenter to the signup queue.
func (s *Service) Register(ctx context.Context, in PresenterInput) (*types.Presenter, error) {
	in.Name = SingleLine(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}

	open, err := s.signupsOpen(ctx)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, &ValidationError{Field: "signup", Message: "signups are closed"}
	}

	if err := s.checker.CheckEmail(in.Email); err != nil {
		s.logBlocked("presenter", err)
		return nil, err
	}
	if err := s.moderate("presenter", in.Name); err != nil {
		return nil, err
	}

	saved, err := s.store.InsertPresenter(ctx, types.Presenter{Name: in.Name, Email: in.Email, ResumeID: in.ResumeID})
	if err != nil {
		return nil, fmt.Errorf("failed to register presenter: %w", err)
	}
	s.logger.Info("presenter registered", zap.String("presenter_id", saved.ID.String()))
	return &saved, nil
}

func (s *Service) signupsOpen(ctx context.Context) (bool, error) {
	record, err := s.store.GetSettings(ctx, types.SettingsSignup)
	if err != nil {
		return false, fmt.Errorf("failed to load signup settings: %w", err)
	}
	if record == nil {
		return types.DefaultSettings()[types.SettingsSignup].(types.SignupSettings).Open, nil
	}
	var signup types.SignupSettings
	if err := json.Unmarshal(record.Value, &signup); err != nil {
		return false, fmt.Errorf("failed to decode signup settings: %w", err)
	}
	return signup.Open, nil
}

// resolveTarget returns the explicit target, or the current one from the
// register when none was given.
func (s *Service) resolveTarget(ctx context.Context, explicit string) (string, error) {
	if name := strings.TrimSpace(explicit); name != "" {
		return name, nil
	}
	target, err := s.store.GetTarget(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read target: %w", err)
	}
	name, ok := target.Current()
	if !ok {
		return "", &ValidationError{Field: "target_name", Message: "no resume is under review"}
	}
	return name, nil
}

func (s *Service) cleanPost(kind, author, body string) (string, string, error) {
	author = SingleLine(author)
	if author == "" {
		author = DefaultAuthor
	}
	body = CleanText(body)
	if body == "" {
		return "", "", &ValidationError{Field: "body", Message: "is required"}
	}
	if err := s.moderate(kind, body); err != nil {
		return "", "", err
	}
	if author != DefaultAuthor {
		if err := s.moderate(kind, author); err != nil {
			return "", "", err
		}
	}
	return author, body, nil
}

func (s *Service) moderate(kind, text string) error {
	if err := s.checker.CheckText(text); err != nil {
		s.logBlocked(kind, err)
		return err
	}
	return nil
}

func (s *Service) logBlocked(kind string, err error) {
	var blocked *moderation.BlockedError
	if errors.As(err, &blocked) {
		s.logger.Warn("content blocked by moderation",
			zap.String("kind", kind),
			zap.String("reason", blocked.Reason),
		)
	}
}

func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: jsonFieldName(fe.Field()), Message: tagMessage(fe)}
	}
	return &ValidationError{Field: "body", Message: err.Error()}
}

func (s *Service) publish(table string, id uuid.UUID, target string, row any) {
	s.publishType(feed.EventInsert, table, id, target, row)
}

func (s *Service) publishType(eventType feed.EventType, table string, id uuid.UUID, target string, row any) {
	change, err := feed.NewChange(eventType, table, id.String(), target, row)
	if err != nil {
		s.logger.Error("failed to encode change", zap.String("table", table), zap.Error(err))
		return
	}
	s.publisher.Publish(change)
}

// ratingError maps rating construction errors onto the offending field.
func ratingError(err error) error {
	switch {
	case errors.Is(err, types.ErrIncompleteScores), errors.Is(err, types.ErrScoreOutOfRange):
		return &ValidationError{Field: "scores", Message: err.Error()}
	case errors.Is(err, types.ErrUnknownGlyph):
		return &ValidationError{Field: "reaction", Message: err.Error()}
	case errors.Is(err, types.ErrInvalidAgreement):
		return &ValidationError{Field: "agreement", Message: err.Error()}
	default:
		return &ValidationError{Field: "rating", Message: err.Error()}
	}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// jsonFieldName converts a Go field name to its snake_case JSON key.
func jsonFieldName(field string) string {
	var sb strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
