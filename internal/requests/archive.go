package requests

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"request-service/internal/canonical"
	"request-service/internal/live"
	"request-service/internal/model"
)

// Accept moves request id into the archive and the history. The request
// stays in the queue if the archive and history writes fail.
func (s *Service) Accept(ctx context.Context, id string) (*model.ArchiveEntry, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	identity := canonical.Canonicalize(r.Identity)
	now := s.now()
	entry := model.ArchiveEntry{
		ID:          s.newID(),
		RequestID:   r.ID,
		Identity:    identity,
		Title:       r.Title,
		Artist:      r.Artist,
		CoverURL:    r.CoverURL,
		DurationMs:  r.DurationMs,
		Explicit:    r.Explicit,
		CreatedAt:   r.CreatedAt,
		Status:      model.StatusAccepted,
		OwnerDevice: r.OwnerDevice,
		Voters:      append([]string(nil), r.Voters...),
		VoteCount:   r.VoteCount,
		PlayedAt:    now,
	}
	hist := model.HistoryRecord{
		Key:        canonical.Key(identity),
		Identity:   identity,
		Title:      r.Title,
		Artist:     r.Artist,
		AcceptedAt: now,
	}
	committed, err := s.store.CommitAcceptance(ctx, r.ID, entry, hist)
	if err != nil {
		return nil, fmt.Errorf("commit acceptance: %w", err)
	}
	s.log.Info("request accepted", zap.String("request", r.ID), zap.String("identity", identity))
	s.notify.Notify(ctx, live.Requests, live.Archive, live.History)

	s.trimArchive(ctx)
	return committed, nil
}

func (s *Service) trimArchive(ctx context.Context) {
	n, err := s.store.TrimArchive(ctx, s.opts.ArchiveCap)
	if err != nil {
		s.log.Warn("trim archive", zap.Int("cap", s.opts.ArchiveCap), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Debug("archive trimmed", zap.Int("removed", n))
		s.notify.Notify(ctx, live.Archive)
	}
}

// Restore puts an archived track back into the queue as a fresh pending
// request and reopens it for submission. A missing entry is not an error:
// it returns nil, nil.
func (s *Service) Restore(ctx context.Context, archiveID string) (*model.Request, error) {
	a, err := s.store.GetArchiveEntry(ctx, archiveID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	identity := canonical.Canonicalize(a.Identity)
	r := model.Request{
		ID:          s.newID(),
		Identity:    identity,
		Title:       a.Title,
		Artist:      a.Artist,
		CoverURL:    a.CoverURL,
		DurationMs:  a.DurationMs,
		Explicit:    a.Explicit,
		CreatedAt:   s.now(),
		Status:      model.StatusPending,
		OwnerDevice: a.OwnerDevice,
		Voters:      []string{a.OwnerDevice},
		VoteCount:   1,
	}
	err = s.store.CommitRestore(ctx, a.ID, canonical.Key(identity), r)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("commit restore: %w", err)
	}
	s.log.Info("archive entry restored", zap.String("archive", a.ID), zap.String("request", r.ID))
	s.notify.Notify(ctx, live.Requests, live.Archive, live.History)
	return &r, nil
}

func (s *Service) Archive(ctx context.Context) ([]model.ArchiveEntry, error) {
	return s.store.ListArchive(ctx)
}

func (s *Service) History(ctx context.Context) ([]model.HistoryRecord, error) {
	return s.store.ListHistory(ctx)
}
