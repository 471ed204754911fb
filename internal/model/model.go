// Package model holds the persisted shapes shared by the request engine,
// the moderation filters and the storage backends.
package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a keyed lookup has no row.
var ErrNotFound = errors.New("not found")

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// SongData is what a device submits. Reference may be a link, a URI or an
// already canonical identity.
type SongData struct {
	Reference  string `json:"reference"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	CoverURL   string `json:"coverUrl"`
	DurationMs int    `json:"durationMs"`
	Explicit   bool   `json:"explicit"`
}

// Request is an entry of the active queue.
type Request struct {
	ID          string    `json:"id"`
	Identity    string    `json:"identity"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	CoverURL    string    `json:"coverUrl"`
	DurationMs  int       `json:"durationMs"`
	Explicit    bool      `json:"explicit"`
	CreatedAt   time.Time `json:"-"`
	Status      Status    `json:"status"`
	OwnerDevice string    `json:"ownerDevice"`
	Voters      []string  `json:"voters"`
	VoteCount   int       `json:"voteCount"`
}

// HasVoter reports whether device already voted for r.
func (r *Request) HasVoter(device string) bool {
	for _, v := range r.Voters {
		if v == device {
			return true
		}
	}
	return false
}

func (r Request) MarshalJSON() ([]byte, error) {
	type alias Request
	return json.Marshal(struct {
		alias
		CreatedAt int64 `json:"createdAt"`
	}{alias(r), r.CreatedAt.UnixMilli()})
}

func (r *Request) UnmarshalJSON(b []byte) error {
	type alias Request
	aux := struct {
		*alias
		CreatedAt int64 `json:"createdAt"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.CreatedAt = time.UnixMilli(aux.CreatedAt)
	return nil
}

// ArchiveEntry is a snapshot of an accepted request.
type ArchiveEntry struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"requestId"`
	Identity    string    `json:"identity"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	CoverURL    string    `json:"coverUrl"`
	DurationMs  int       `json:"durationMs"`
	Explicit    bool      `json:"explicit"`
	CreatedAt   time.Time `json:"-"`
	Status      Status    `json:"status"`
	OwnerDevice string    `json:"ownerDevice"`
	Voters      []string  `json:"voters"`
	VoteCount   int       `json:"voteCount"`
	PlayedAt    time.Time `json:"-"`
}

func (a ArchiveEntry) MarshalJSON() ([]byte, error) {
	type alias ArchiveEntry
	return json.Marshal(struct {
		alias
		CreatedAt int64 `json:"createdAt"`
		PlayedAt  int64 `json:"playedAt"`
	}{alias(a), a.CreatedAt.UnixMilli(), a.PlayedAt.UnixMilli()})
}

// HistoryRecord marks a track as played. Its presence blocks new
// submissions of the same identity.
type HistoryRecord struct {
	Key        string    `json:"key"`
	Identity   string    `json:"identity"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	AcceptedAt time.Time `json:"-"`
}

func (h HistoryRecord) MarshalJSON() ([]byte, error) {
	type alias HistoryRecord
	return json.Marshal(struct {
		alias
		AcceptedAt int64 `json:"acceptedAt"`
	}{alias(h), h.AcceptedAt.UnixMilli()})
}

type BlacklistEntry struct {
	ID       string `json:"id"`
	Identity string `json:"identity"`
	Title    string `json:"title"`
	Reason   string `json:"reason"`
}

type ForbiddenWord struct {
	Word string `json:"word"`
}

type BannedDevice struct {
	DeviceID string    `json:"deviceId"`
	BannedAt time.Time `json:"-"`
}

func (b BannedDevice) MarshalJSON() ([]byte, error) {
	type alias BannedDevice
	return json.Marshal(struct {
		alias
		BannedAt int64 `json:"bannedAt"`
	}{alias(b), b.BannedAt.UnixMilli()})
}
