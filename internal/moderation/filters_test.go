package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"request-service/internal/canonical"
	"request-service/internal/live"
	"request-service/internal/model"
)

const trackA = "https://open.spotify.com/track/aaa111"

func TestCheckBlocked(t *testing.T) {
	ctx := context.Background()
	key := canonical.Key(trackA)

	t.Run("blacklist wins over word", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetBlacklistEntry", ctx, key).Return(&model.BlacklistEntry{ID: key}, nil)

		f := NewFilters(store, nil, zap.NewNop())
		v, err := f.CheckBlocked(ctx, trackA+"?si=share", "Bad Song Artist")
		require.NoError(t, err)
		assert.Equal(t, Verdict{Blocked: true, Reason: ReasonBlacklist}, v)
		store.AssertNotCalled(t, "ListWords", mock.Anything)
	})

	t.Run("legacy entry matched by identity", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetBlacklistEntry", ctx, key).Return(nil, model.ErrNotFound)
		store.On("FindBlacklistByIdentity", ctx, trackA).Return(&model.BlacklistEntry{ID: "old"}, nil)

		f := NewFilters(store, nil, zap.NewNop())
		v, err := f.CheckBlocked(ctx, trackA, "anything")
		require.NoError(t, err)
		assert.Equal(t, ReasonBlacklist, v.Reason)
	})

	t.Run("forbidden word", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetBlacklistEntry", ctx, key).Return(nil, model.ErrNotFound)
		store.On("FindBlacklistByIdentity", ctx, trackA).Return(nil, model.ErrNotFound)
		store.On("ListWords", ctx).Return([]model.ForbiddenWord{{Word: "bad"}}, nil)

		f := NewFilters(store, nil, zap.NewNop())
		v, err := f.CheckBlocked(ctx, trackA, "BAD Song Artist")
		require.NoError(t, err)
		assert.Equal(t, Verdict{Blocked: true, Reason: ReasonWord}, v)
		assert.Equal(t, "blocked: word", v.Err().Error())
	})

	t.Run("clean", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetBlacklistEntry", ctx, key).Return(nil, model.ErrNotFound)
		store.On("FindBlacklistByIdentity", ctx, trackA).Return(nil, model.ErrNotFound)
		store.On("ListWords", ctx).Return([]model.ForbiddenWord{{Word: "bad"}}, nil)

		f := NewFilters(store, nil, zap.NewNop())
		v, err := f.CheckBlocked(ctx, trackA, "Badlands Artist")
		require.NoError(t, err)
		assert.False(t, v.Blocked)
		assert.NoError(t, v.Err())
	})

	t.Run("store error", func(t *testing.T) {
		store := new(MockStore)
		store.On("GetBlacklistEntry", ctx, key).Return(nil, errors.New("db error"))

		f := NewFilters(store, nil, zap.NewNop())
		_, err := f.CheckBlocked(ctx, trackA, "x")
		assert.Error(t, err)
	})
}

func TestMatchesWord(t *testing.T) {
	words := []model.ForbiddenWord{{Word: "ex"}, {Word: "a+b"}}

	tests := []struct {
		text string
		want bool
	}{
		{"My Ex Song", true},
		{"Texas Hold", false},
		{"ex", true},
		{"song a+b band", true},
		{"aab", false},
		{"", false},
	}
	for _, tt := range tests {
		_, got := MatchesWord(words, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestAddWord(t *testing.T) {
	ctx := context.Background()

	t.Run("normalized", func(t *testing.T) {
		store := new(MockStore)
		notifier := new(MockNotifier)
		store.On("PutWord", ctx, model.ForbiddenWord{Word: "bad word"}).Return(nil)
		notifier.On("Notify", ctx, []live.Collection{live.ForbiddenWords}).Return()

		f := NewFilters(store, notifier, zap.NewNop())
		w, err := f.AddWord(ctx, "  Bad Word ")
		require.NoError(t, err)
		assert.Equal(t, "bad word", w.Word)
		store.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("empty", func(t *testing.T) {
		store := new(MockStore)
		f := NewFilters(store, nil, zap.NewNop())
		_, err := f.AddWord(ctx, "   ")
		assert.ErrorIs(t, err, ErrEmptyWord)
		store.AssertNotCalled(t, "PutWord", mock.Anything, mock.Anything)
	})
}

func TestRemoveWord(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("DeleteWord", ctx, "bad").Return(nil)

	f := NewFilters(store, nil, zap.NewNop())
	require.NoError(t, f.RemoveWord(ctx, "BAD "))
	store.AssertExpectations(t)
}

func TestAddToBlacklist(t *testing.T) {
	ctx := context.Background()

	t.Run("default reason and canonical key", func(t *testing.T) {
		store := new(MockStore)
		notifier := new(MockNotifier)
		want := model.BlacklistEntry{
			ID:       canonical.Key(trackA),
			Identity: trackA,
			Title:    "Song",
			Reason:   DefaultBlacklistReason,
		}
		store.On("PutBlacklistEntry", ctx, want).Return(nil)
		notifier.On("Notify", ctx, []live.Collection{live.Blacklist}).Return()

		f := NewFilters(store, notifier, zap.NewNop())
		got, err := f.AddToBlacklist(ctx, trackA+"?si=1", "Song", "")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		notifier.AssertExpectations(t)
	})

	t.Run("empty identity", func(t *testing.T) {
		f := NewFilters(new(MockStore), nil, zap.NewNop())
		_, err := f.AddToBlacklist(ctx, " ", "Song", "x")
		assert.ErrorIs(t, err, ErrEmptyTrack)
	})

	t.Run("store error", func(t *testing.T) {
		store := new(MockStore)
		store.On("PutBlacklistEntry", ctx, mock.Anything).Return(errors.New("db error"))
		f := NewFilters(store, nil, zap.NewNop())
		_, err := f.AddToBlacklist(ctx, trackA, "Song", "spam")
		assert.Error(t, err)
	})
}

func TestRemoveFromBlacklist(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("DeleteBlacklistEntry", ctx, "k1").Return(nil)

	f := NewFilters(store, nil, zap.NewNop())
	require.NoError(t, f.RemoveFromBlacklist(ctx, "k1"))
	store.AssertExpectations(t)
}
