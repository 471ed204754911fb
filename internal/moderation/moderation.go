// Package moderation holds the read-side gates a submission must pass
// (device bans, blacklist, forbidden words) together with the moderator
// operations that maintain them.
package moderation

import (
	"context"
	"errors"

	"request-service/internal/model"
)

const (
	ReasonBlacklist = "blacklist"
	ReasonWord      = "word"

	DefaultBlacklistReason = "Manually rejected"
)

var (
	ErrDeviceBanned = errors.New("device banned")
	ErrEmptyWord    = errors.New("empty word")
	ErrEmptyDevice  = errors.New("empty device id")
	ErrEmptyTrack   = errors.New("empty identity")
)

// BlockedError reports that a submission was refused by the filters.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "blocked: " + e.Reason
}

type BlacklistStore interface {
	GetBlacklistEntry(ctx context.Context, id string) (*model.BlacklistEntry, error)
	FindBlacklistByIdentity(ctx context.Context, identity string) (*model.BlacklistEntry, error)
	ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error)
	PutBlacklistEntry(ctx context.Context, e model.BlacklistEntry) error
	DeleteBlacklistEntry(ctx context.Context, id string) error
}

type WordStore interface {
	ListWords(ctx context.Context) ([]model.ForbiddenWord, error)
	PutWord(ctx context.Context, w model.ForbiddenWord) error
	DeleteWord(ctx context.Context, word string) error
}

type BanStore interface {
	IsBanned(ctx context.Context, deviceID string) (bool, error)
	PutBan(ctx context.Context, b model.BannedDevice) error
	DeleteBan(ctx context.Context, deviceID string) error
	ListBans(ctx context.Context) ([]model.BannedDevice, error)
}
