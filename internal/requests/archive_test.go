package requests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"request-service/internal/model"
)

func TestAccept_ArchiveBound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	var accepted []string
	for i := 0; i < 60; i++ {
		song := model.SongData{
			Reference: fmt.Sprintf("https://open.spotify.com/track/T%03d", i),
			Title:     fmt.Sprintf("Track %d", i),
		}
		res := f.submit(t, "d1", song)
		entry, err := f.svc.Accept(ctx, res.RequestID)
		require.NoError(t, err)
		accepted = append(accepted, entry.ID)
	}

	archive, err := f.svc.Archive(ctx)
	require.NoError(t, err)
	require.Len(t, archive, DefaultArchiveCap)

	// newest first, exactly the last 50 acceptances
	for i, a := range archive {
		assert.Equal(t, accepted[59-i], a.ID)
	}

	history, err := f.svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 60, "history is not capped")
}

func TestAccept_CustomCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{ArchiveCap: 3})

	for i := 0; i < 5; i++ {
		res := f.submit(t, "d1", model.SongData{Reference: fmt.Sprintf("track/X%d", i), Title: "x"})
		_, err := f.svc.Accept(ctx, res.RequestID)
		require.NoError(t, err)
	}
	archive, err := f.svc.Archive(ctx)
	require.NoError(t, err)
	assert.Len(t, archive, 3)
}

func TestAccept_SnapshotsRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	song := songA()
	song.CoverURL = "https://img/cover.jpg"
	song.Explicit = true
	res := f.submit(t, "d1", song)
	f.submit(t, "d2", song)

	entry, err := f.svc.Accept(ctx, res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, res.RequestID, entry.RequestID)
	assert.Equal(t, "https://img/cover.jpg", entry.CoverURL)
	assert.True(t, entry.Explicit)
	assert.Equal(t, []string{"d1", "d2"}, entry.Voters)
	assert.Equal(t, 2, entry.VoteCount)
	assert.True(t, entry.PlayedAt.After(entry.CreatedAt))
}

func TestAccept_Missing(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Accept(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRestore_MissingIsNoop(t *testing.T) {
	f := newFixture(t, Options{})
	r, err := f.svc.Restore(context.Background(), "gone")
	assert.NoError(t, err)
	assert.Nil(t, r)
}

func TestRestore_ResetsRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	res := f.submit(t, "d1", songA())
	f.submit(t, "d2", songA())
	entry, err := f.svc.Accept(ctx, res.RequestID)
	require.NoError(t, err)

	r, err := f.svc.Restore(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.NotEqual(t, res.RequestID, r.ID)
	assert.Equal(t, model.StatusPending, r.Status)
	assert.Equal(t, "d1", r.OwnerDevice)
	assert.Equal(t, []string{"d1"}, r.Voters)
	assert.True(t, r.CreatedAt.After(entry.PlayedAt))

	_, err = f.store.GetArchiveEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// a second restore of the same entry is a no-op
	again, err := f.svc.Restore(ctx, entry.ID)
	assert.NoError(t, err)
	assert.Nil(t, again)
}

func TestSortRequests(t *testing.T) {
	base := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	list := []model.Request{
		{ID: "old-popular", CreatedAt: base, VoteCount: 5},
		{ID: "new-single", CreatedAt: base.Add(3 * time.Minute), VoteCount: 1},
		{ID: "mid-popular", CreatedAt: base.Add(time.Minute), VoteCount: 5},
	}

	SortRequests(list, SortByDate)
	assert.Equal(t, []string{"new-single", "mid-popular", "old-popular"}, ids(list))

	SortRequests(list, SortByVotes)
	assert.Equal(t, []string{"mid-popular", "old-popular", "new-single"}, ids(list))

	top := TopRequests(list, 0)
	assert.Len(t, top, 3)
	assert.Equal(t, ParseSort("votes"), SortByVotes)
	assert.Equal(t, ParseSort("bogus"), SortByDate)
}

func ids(list []model.Request) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.ID
	}
	return out
}
