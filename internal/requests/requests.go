// Package requests implements the request lifecycle: submission with
// vote-merge, status transitions, the play history gate and the bounded
// archive with restore.
package requests

import (
	"context"
	"errors"
	"time"

	"request-service/internal/model"
	"request-service/internal/moderation"
)

var (
	ErrAlreadyAccepted   = errors.New("track already played")
	ErrExplicitRejected  = errors.New("explicit tracks are not accepted")
	ErrInvalidSong       = errors.New("song reference and title are required")
	ErrMissingDevice     = errors.New("device id is required")
	ErrInvalidTransition = errors.New("status must be accepted or rejected")
)

type ResultType string

const (
	Created      ResultType = "created"
	Voted        ResultType = "voted"
	AlreadyVoted ResultType = "already_voted"
)

type SubmitResult struct {
	Type          ResultType `json:"type"`
	RequestID     string     `json:"requestId"`
	VoteCount     int        `json:"voteCount"`
	CooldownUntil *time.Time `json:"-"`
}

// Store persists the active queue, the archive and the history.
//
// Lookups by key return model.ErrNotFound when nothing matches.
type Store interface {
	// FindActiveByIdentity returns the oldest queue entry for identity.
	FindActiveByIdentity(ctx context.Context, identity string) (*model.Request, error)
	GetRequest(ctx context.Context, id string) (*model.Request, error)
	CreateRequest(ctx context.Context, r model.Request) error
	// AddVoter appends deviceID to the voters of request id unless already
	// present, as one compare-and-update. It reports whether the device was
	// added and the resulting vote count.
	AddVoter(ctx context.Context, id, deviceID string) (added bool, voteCount int, err error)
	DeleteRequest(ctx context.Context, id string) error
	ListRequests(ctx context.Context) ([]model.Request, error)

	GetArchiveEntry(ctx context.Context, id string) (*model.ArchiveEntry, error)
	// ListArchive returns entries by PlayedAt, newest first.
	ListArchive(ctx context.Context) ([]model.ArchiveEntry, error)
	// TrimArchive deletes the oldest entries beyond limit and returns how
	// many were removed.
	TrimArchive(ctx context.Context, limit int) (int, error)

	HasHistory(ctx context.Context, key string) (bool, error)
	ListHistory(ctx context.Context) ([]model.HistoryRecord, error)

	// CommitAcceptance inserts the archive entry, upserts the history record
	// and deletes the request in one transaction. The entry's voters and
	// vote count are copied from the request as it is at commit time; the
	// stored entry is returned.
	CommitAcceptance(ctx context.Context, requestID string, a model.ArchiveEntry, h model.HistoryRecord) (*model.ArchiveEntry, error)
	// CommitRestore deletes the history record, inserts r and deletes the
	// archive entry in one transaction. It returns model.ErrNotFound when the
	// archive entry is already gone.
	CommitRestore(ctx context.Context, archiveID, historyKey string, r model.Request) error
}

// BanGate is the device ban registry as seen by the submission path.
type BanGate interface {
	Check(ctx context.Context, deviceID string) error
	Ban(ctx context.Context, deviceID string) error
}

type BlockChecker interface {
	CheckBlocked(ctx context.Context, identity, text string) (moderation.Verdict, error)
}

// Cooldown throttles submissions per device.
type Cooldown interface {
	Check(deviceID string) error
	Start(deviceID string) time.Time
	Reset(deviceID string)
}
