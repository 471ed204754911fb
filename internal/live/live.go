// Package live lets any number of observers watch the persisted
// collections. Writers announce which collection changed; the Feed reloads
// that collection and hands every subscriber the complete current snapshot.
package live

import (
	"context"
	"errors"
	"time"
)

type Collection string

const (
	Requests       Collection = "requests"
	TopRequests    Collection = "top_requests"
	Archive        Collection = "archive"
	History        Collection = "history"
	Blacklist      Collection = "blacklist"
	ForbiddenWords Collection = "forbidden_words"
	BannedDevices  Collection = "banned_devices"
)

var ErrUnknownCollection = errors.New("unknown collection")

// ParseCollection validates a client supplied collection name.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	switch c {
	case Requests, TopRequests, Archive, History, Blacklist, ForbiddenWords, BannedDevices:
		return c, nil
	}
	return "", ErrUnknownCollection
}

// Notifier is implemented by anything that can announce a change.
type Notifier interface {
	Notify(ctx context.Context, collections ...Collection)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, ...Collection) {}

// Snapshot is the full state of one collection at a point in time.
type Snapshot struct {
	Collection Collection `json:"collection"`
	Data       any        `json:"data"`
	At         time.Time  `json:"-"`
}
