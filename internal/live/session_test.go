package live

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-live/internal/feed"
	"github.com/jonathan/resume-live/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targetChange(t *testing.T, name *string) feed.Change {
	t.Helper()
	c, err := feed.NewChange(feed.EventUpdate, feed.TableTargets, "1", "", types.Target{Name: name, Version: 1})
	require.NoError(t, err)
	return c
}

func ratingInsert(t *testing.T, r types.Rating) feed.Change {
	t.Helper()
	c, err := feed.NewChange(feed.EventInsert, feed.TableRatings, r.ID.String(), r.TargetName, r.Row())
	require.NoError(t, err)
	return c
}

func deleteChange(table string, id uuid.UUID) feed.Change {
	return feed.Change{Type: feed.EventDelete, Table: table, ID: id.String()}
}

func newTestSession(t *testing.T, target string, opts ...SessionOption) *Session {
	t.Helper()
	clock := newFakeClock()
	opts = append([]SessionOption{WithClock(clock.Now), WithSeed(1)}, opts...)
	s := NewSession(opts...)
	require.NoError(t, s.Apply(targetChange(t, &target)))
	return s
}

func TestSession_TargetSwitchScopesRatings(t *testing.T) {
	bobView := newTestSession(t, "Alice")
	aliceView := newTestSession(t, "Alice")

	inFlight := scored(t, "Alice", 4, 4, 4, 4)

	bob := "Bob"
	require.NoError(t, bobView.Apply(targetChange(t, &bob)))

	require.NoError(t, bobView.Apply(ratingInsert(t, inFlight)))
	require.NoError(t, aliceView.Apply(ratingInsert(t, inFlight)))

	assert.Equal(t, 0, bobView.Scores().Stats().Count)
	assert.Equal(t, 1, aliceView.Scores().Stats().Count)
	assert.Equal(t, 4.0, aliceView.Scores().Stats().Average)
}

func TestSession_TargetChangeResetsEverySurface(t *testing.T) {
	var hookTargets []string
	s := newTestSession(t, "Alice", WithTargetHook(func(target string, set bool) {
		if set {
			hookTargets = append(hookTargets, target)
		}
	}))

	require.NoError(t, s.Apply(ratingInsert(t, scored(t, "Alice", 5, 5, 5, 5))))
	msg := types.ChatMessage{ID: uuid.New(), TargetName: "Alice", Body: "hello"}
	chat, err := feed.NewChange(feed.EventInsert, feed.TableChat, msg.ID.String(), "Alice", msg)
	require.NoError(t, err)
	require.NoError(t, s.Apply(chat))

	bob := "Bob"
	require.NoError(t, s.Apply(targetChange(t, &bob)))
	// The same target again does not reset or call the hook.
	require.NoError(t, s.Apply(targetChange(t, &bob)))

	assert.Equal(t, Stats{}, s.Scores().Stats())
	assert.Empty(t, s.Chat().Messages())
	assert.Empty(t, s.Overlay(OverlayChat).Visible())
	assert.Equal(t, []string{"Alice", "Bob"}, hookTargets)

	require.NoError(t, s.Apply(targetChange(t, nil)))
	assert.Nil(t, s.Snapshot().Target)
}

func TestSession_QuickReactionsGoToOverlayOnly(t *testing.T) {
	s := newTestSession(t, "Alice")

	reaction, err := types.NewQuickReaction("Alice", "👏")
	require.NoError(t, err)
	reaction.ID = uuid.New()
	require.NoError(t, s.Apply(ratingInsert(t, reaction)))

	withFeedback, err := types.NewScoredRating("Alice", types.Scores{Overall: 3, Presentation: 3, Layout: 3, Content: 3}, "tighten the summary", types.AgreementAgree)
	require.NoError(t, err)
	withFeedback.ID = uuid.New()
	require.NoError(t, s.Apply(ratingInsert(t, withFeedback)))

	stats := s.Scores().Stats()
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 3.0, stats.Average)
	assert.Equal(t, 1, stats.Agree)

	reactions := s.Overlay(OverlayReactions).Visible()
	require.Len(t, reactions, 1)
	assert.Equal(t, "👏", reactions[0].Text)

	feedback := s.Overlay(OverlayFeedback).Visible()
	require.Len(t, feedback, 1)
	assert.Equal(t, "tighten the summary", feedback[0].Text)
}

func TestSession_DuplicateDeliveryIsIdempotent(t *testing.T) {
	s := newTestSession(t, "Alice")
	r := scored(t, "Alice", 2, 3, 4, 5)
	change := ratingInsert(t, r)

	require.NoError(t, s.Apply(change))
	before := s.Scores().Stats()
	require.NoError(t, s.Apply(change))

	assert.Equal(t, before, s.Scores().Stats())
	assert.Len(t, s.Scores().Ratings(), 1)
}

func TestSession_RejectsMixedRatingRow(t *testing.T) {
	s := newTestSession(t, "Alice")
	overall, glyph := 4, "🔥"
	row := types.RatingRow{ID: uuid.New(), TargetName: "Alice", Overall: &overall, Reaction: &glyph}
	c, err := feed.NewChange(feed.EventInsert, feed.TableRatings, row.ID.String(), "Alice", row)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Apply(c), types.ErrMixedRating)
	assert.Equal(t, 0, s.Scores().Stats().Count)
}

func TestSession_ClearWithLateDeletes(t *testing.T) {
	s := newTestSession(t, "Alice")
	r1 := scored(t, "Alice", 5, 5, 5, 5)
	r2 := scored(t, "Alice", 3, 3, 3, 3)
	require.NoError(t, s.Apply(ratingInsert(t, r1)))
	require.NoError(t, s.Apply(ratingInsert(t, r2)))
	require.Equal(t, 2, s.Scores().Stats().Count)

	s.Clear(types.ClearRatings)
	assert.Equal(t, Stats{}, s.Scores().Stats())

	require.NoError(t, s.Apply(deleteChange(feed.TableRatings, r1.ID)))
	require.NoError(t, s.Apply(deleteChange(feed.TableRatings, r2.ID)))
	assert.Equal(t, Stats{}, s.Scores().Stats())

	r3 := scored(t, "Alice", 4, 4, 4, 4)
	require.NoError(t, s.Apply(ratingInsert(t, r3)))
	assert.Equal(t, 4.0, s.Scores().Stats().Average)
}

func TestSession_ClearKindsAreScoped(t *testing.T) {
	s := newTestSession(t, "Alice")
	require.NoError(t, s.Apply(ratingInsert(t, scored(t, "Alice", 5, 5, 5, 5))))
	q := types.Question{ID: uuid.New(), TargetName: "Alice", Body: "why?"}
	qc, err := feed.NewChange(feed.EventInsert, feed.TableQuestions, q.ID.String(), "Alice", q)
	require.NoError(t, err)
	require.NoError(t, s.Apply(qc))

	s.Clear(types.ClearQuestions)
	assert.Equal(t, 0, s.Questions().Len())
	assert.Equal(t, 1, s.Scores().Stats().Count)

	s.Clear(types.ClearAll)
	assert.Equal(t, 0, s.Scores().Stats().Count)
}

func TestSession_QuestionUpdates(t *testing.T) {
	s := newTestSession(t, "Alice")
	q := types.Question{ID: uuid.New(), TargetName: "Alice", Body: "why?"}
	insert, err := feed.NewChange(feed.EventInsert, feed.TableQuestions, q.ID.String(), "Alice", q)
	require.NoError(t, err)
	require.NoError(t, s.Apply(insert))
	assert.Len(t, s.Overlay(OverlayQuestions).Visible(), 1)

	q.Upvotes = 2
	update, err := feed.NewChange(feed.EventUpdate, feed.TableQuestions, q.ID.String(), "Alice", q)
	require.NoError(t, err)
	require.NoError(t, s.Apply(update))

	open := s.Questions().Open()
	require.Len(t, open, 1)
	assert.Equal(t, 2, open[0].Upvotes)

	require.NoError(t, s.Apply(deleteChange(feed.TableQuestions, q.ID)))
	assert.Empty(t, s.Questions().Open())
	assert.Empty(t, s.Overlay(OverlayQuestions).Visible())
}

func TestSession_UpdateOfUnseenQuestionShowsNoBubble(t *testing.T) {
	s := newTestSession(t, "Alice")
	q := types.Question{ID: uuid.New(), TargetName: "Alice", Body: "old question", Upvotes: 7}
	update, err := feed.NewChange(feed.EventUpdate, feed.TableQuestions, q.ID.String(), "Alice", q)
	require.NoError(t, err)
	require.NoError(t, s.Apply(update))

	open := s.Questions().Open()
	require.Len(t, open, 1)
	assert.Equal(t, 7, open[0].Upvotes)
	assert.Empty(t, s.Overlay(OverlayQuestions).Visible())
}

func TestSession_DisplaySettingsHideResults(t *testing.T) {
	s := newTestSession(t, "Alice")
	require.NoError(t, s.Apply(ratingInsert(t, scored(t, "Alice", 5, 5, 5, 5))))
	require.NotNil(t, s.Snapshot().Stats)

	value, err := json.Marshal(types.DisplaySettings{ResultsHidden: true, Orientation: types.OrientationVertical})
	require.NoError(t, err)
	c, err := feed.NewChange(feed.EventUpdate, feed.TableSettings, types.SettingsDisplay, "",
		types.SettingsRecord{Key: types.SettingsDisplay, Value: value, Version: 2})
	require.NoError(t, err)
	require.NoError(t, s.Apply(c))

	snap := s.Snapshot()
	assert.True(t, snap.ResultsHidden)
	assert.Equal(t, types.OrientationVertical, snap.Orientation)
	assert.Nil(t, snap.Stats)
	require.NotNil(t, snap.Target)
	assert.Equal(t, "Alice", *snap.Target)
}

func TestSession_LoadSeedsListsNewestFirst(t *testing.T) {
	s := newTestSession(t, "Alice")
	older := scored(t, "Alice", 1, 1, 1, 1)
	newer := scored(t, "Alice", 5, 5, 5, 5)
	stale := scored(t, "Bob", 3, 3, 3, 3)

	s.Load([]types.Rating{newer, older, stale}, nil, nil)

	ratings := s.Scores().Ratings()
	require.Len(t, ratings, 2)
	assert.Equal(t, newer.ID, ratings[0].ID)
	assert.Equal(t, 3.0, s.Scores().Stats().Average)
	assert.Empty(t, s.Overlay(OverlayFeedback).Visible())

	// A feed replay of a loaded row is a duplicate.
	require.NoError(t, s.Apply(ratingInsert(t, newer)))
	assert.Equal(t, 2, s.Scores().Stats().Count)
}

func TestSession_ResyncCallsHook(t *testing.T) {
	called := 0
	s := newTestSession(t, "Alice", WithResyncHook(func(target string, set bool) {
		called++
		assert.Equal(t, "Alice", target)
		assert.True(t, set)
	}))

	require.NoError(t, s.Apply(feed.Change{Type: feed.EventResync}))
	assert.Equal(t, 1, called)
}

func TestSession_DeleteWithoutID(t *testing.T) {
	s := newTestSession(t, "Alice")
	assert.Error(t, s.Apply(feed.Change{Type: feed.EventDelete, Table: feed.TableChat}))
	assert.Error(t, s.Apply(feed.Change{Type: feed.EventDelete, Table: feed.TableChat, ID: "not-a-uuid"}))

	id := uuid.New()
	assert.NoError(t, s.Apply(feed.Change{
		Type:  feed.EventDelete,
		Table: feed.TableChat,
		Row:   json.RawMessage(`{"id":"` + id.String() + `"}`),
	}))
}

func TestSession_Run(t *testing.T) {
	s := newTestSession(t, "Alice")
	changes := make(chan feed.Change, 4)
	changes <- ratingInsert(t, scored(t, "Alice", 4, 4, 4, 4))
	changes <- feed.Change{Type: feed.EventInsert, Table: feed.TableRatings, Row: json.RawMessage(`{`)}
	changes <- ratingInsert(t, scored(t, "Alice", 2, 2, 2, 2))
	close(changes)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx, changes))

	stats := s.Scores().Stats()
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 3.0, stats.Average)
}

func TestSession_RunStopsOnCancel(t *testing.T) {
	s := NewSession()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.Run(ctx, make(chan feed.Change)))
}
