package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"request-service/internal/canonical"
	"request-service/internal/live"
	"request-service/internal/model"
)

// DefaultArchiveCap bounds the archive.
const DefaultArchiveCap = 50

type Options struct {
	ArchiveCap     int
	RejectExplicit bool
	// Cooldown is optional; nil disables throttling.
	Cooldown Cooldown
}

type Service struct {
	store   Store
	bans    BanGate
	filters BlockChecker
	notify  live.Notifier
	log     *zap.Logger
	opts    Options
	now     func() time.Time
	newID   func() string
}

func NewService(store Store, bans BanGate, filters BlockChecker, notify live.Notifier, log *zap.Logger, opts Options) *Service {
	if opts.ArchiveCap <= 0 {
		opts.ArchiveCap = DefaultArchiveCap
	}
	if notify == nil {
		notify = live.NopNotifier{}
	}
	return &Service{
		store:   store,
		bans:    bans,
		filters: filters,
		notify:  notify,
		log:     log,
		opts:    opts,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Submit runs a device's song through the gates and merges it into the
// queue. The gates run in a fixed order: ban, cooldown, blacklist and
// words, explicit content, queue merge, history.
func (s *Service) Submit(ctx context.Context, deviceID string, song model.SongData) (SubmitResult, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return SubmitResult{}, ErrMissingDevice
	}
	if err := s.bans.Check(ctx, deviceID); err != nil {
		return SubmitResult{}, err
	}
	if s.opts.Cooldown != nil {
		if err := s.opts.Cooldown.Check(deviceID); err != nil {
			return SubmitResult{}, err
		}
	}

	song.Reference = strings.TrimSpace(song.Reference)
	song.Title = strings.TrimSpace(song.Title)
	song.Artist = strings.TrimSpace(song.Artist)
	if song.Reference == "" || song.Title == "" {
		return SubmitResult{}, ErrInvalidSong
	}
	identity := canonical.Canonicalize(song.Reference)

	verdict, err := s.filters.CheckBlocked(ctx, identity, song.Title+" "+song.Artist)
	if err != nil {
		return SubmitResult{}, err
	}
	if verdict.Blocked {
		s.log.Info("submission blocked",
			zap.String("device", deviceID),
			zap.String("identity", identity),
			zap.String("reason", verdict.Reason))
		return SubmitResult{}, verdict.Err()
	}
	if s.opts.RejectExplicit && song.Explicit {
		return SubmitResult{}, ErrExplicitRejected
	}

	res, err := s.merge(ctx, deviceID, identity, song)
	if err != nil {
		return SubmitResult{}, err
	}
	if res.Type != AlreadyVoted && s.opts.Cooldown != nil {
		until := s.opts.Cooldown.Start(deviceID)
		res.CooldownUntil = &until
	}
	return res, nil
}

func (s *Service) merge(ctx context.Context, deviceID, identity string, song model.SongData) (SubmitResult, error) {
	existing, err := s.store.FindActiveByIdentity(ctx, identity)
	switch {
	case err == nil:
		if existing.HasVoter(deviceID) {
			return SubmitResult{Type: AlreadyVoted, RequestID: existing.ID, VoteCount: existing.VoteCount}, nil
		}
		added, count, err := s.store.AddVoter(ctx, existing.ID, deviceID)
		if errors.Is(err, model.ErrNotFound) {
			// accepted or rejected since the lookup; the slot is free again
			break
		}
		if err != nil {
			return SubmitResult{}, fmt.Errorf("add voter: %w", err)
		}
		if !added {
			return SubmitResult{Type: AlreadyVoted, RequestID: existing.ID, VoteCount: count}, nil
		}
		s.log.Debug("vote merged",
			zap.String("request", existing.ID),
			zap.String("device", deviceID),
			zap.Int("votes", count))
		s.notify.Notify(ctx, live.Requests)
		return SubmitResult{Type: Voted, RequestID: existing.ID, VoteCount: count}, nil
	case !errors.Is(err, model.ErrNotFound):
		return SubmitResult{}, fmt.Errorf("find active request: %w", err)
	}

	played, err := s.store.HasHistory(ctx, canonical.Key(identity))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("history lookup: %w", err)
	}
	if played {
		return SubmitResult{}, ErrAlreadyAccepted
	}

	r := model.Request{
		ID:          s.newID(),
		Identity:    identity,
		Title:       song.Title,
		Artist:      song.Artist,
		CoverURL:    song.CoverURL,
		DurationMs:  song.DurationMs,
		Explicit:    song.Explicit,
		CreatedAt:   s.now(),
		Status:      model.StatusPending,
		OwnerDevice: deviceID,
		Voters:      []string{deviceID},
		VoteCount:   1,
	}
	if err := s.store.CreateRequest(ctx, r); err != nil {
		return SubmitResult{}, fmt.Errorf("create request: %w", err)
	}
	s.log.Info("request created",
		zap.String("request", r.ID),
		zap.String("identity", identity),
		zap.String("device", deviceID))
	s.notify.Notify(ctx, live.Requests)
	return SubmitResult{Type: Created, RequestID: r.ID, VoteCount: 1}, nil
}

// SetStatus moves a queue entry out of the queue.
func (s *Service) SetStatus(ctx context.Context, id string, status model.Status) error {
	switch status {
	case model.StatusAccepted:
		_, err := s.Accept(ctx, id)
		return err
	case model.StatusRejected:
		_, err := s.Reject(ctx, id)
		return err
	default:
		return ErrInvalidTransition
	}
}

// Reject removes a request from the queue and returns it, so the caller
// can blacklist it as a separate step.
func (s *Service) Reject(ctx context.Context, id string) (*model.Request, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteRequest(ctx, id); err != nil {
		return nil, fmt.Errorf("delete request: %w", err)
	}
	s.log.Info("request rejected", zap.String("request", id), zap.String("identity", r.Identity))
	s.notify.Notify(ctx, live.Requests)
	return r, nil
}

// BanOwner bans the device that submitted request id and rejects the
// request.
func (s *Service) BanOwner(ctx context.Context, id string) (*model.Request, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.bans.Ban(ctx, r.OwnerDevice); err != nil {
		return nil, err
	}
	return s.Reject(ctx, id)
}

// ResetCooldown lets deviceID submit again right away. It is a no-op when
// throttling is disabled.
func (s *Service) ResetCooldown(deviceID string) {
	if s.opts.Cooldown == nil {
		return
	}
	s.opts.Cooldown.Reset(strings.TrimSpace(deviceID))
}

// Requests lists the active queue in the given order.
func (s *Service) Requests(ctx context.Context, by SortKey) ([]model.Request, error) {
	list, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	SortRequests(list, by)
	return list, nil
}

// Top lists the most voted requests.
func (s *Service) Top(ctx context.Context, limit int) ([]model.Request, error) {
	list, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	return TopRequests(list, limit), nil
}
