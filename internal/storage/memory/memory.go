// Package memory is a process-local store for development and tests. All
// collections share one mutex.
package memory

import (
	"context"
	"sort"
	"sync"

	"request-service/internal/model"
)

type Store struct {
	mu        sync.Mutex
	requests  map[string]model.Request
	archive   map[string]model.ArchiveEntry
	history   map[string]model.HistoryRecord
	blacklist map[string]model.BlacklistEntry
	words     map[string]model.ForbiddenWord
	bans      map[string]model.BannedDevice
}

func New() *Store {
	return &Store{
		requests:  make(map[string]model.Request),
		archive:   make(map[string]model.ArchiveEntry),
		history:   make(map[string]model.HistoryRecord),
		blacklist: make(map[string]model.BlacklistEntry),
		words:     make(map[string]model.ForbiddenWord),
		bans:      make(map[string]model.BannedDevice),
	}
}

func cloneRequest(r model.Request) model.Request {
	r.Voters = append([]string(nil), r.Voters...)
	return r
}

func (s *Store) FindActiveByIdentity(_ context.Context, identity string) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *model.Request
	for _, r := range s.requests {
		if r.Identity != identity {
			continue
		}
		if found == nil || r.CreatedAt.Before(found.CreatedAt) {
			c := cloneRequest(r)
			found = &c
		}
	}
	if found == nil {
		return nil, model.ErrNotFound
	}
	return found, nil
}

func (s *Store) GetRequest(_ context.Context, id string) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	c := cloneRequest(r)
	return &c, nil
}

func (s *Store) CreateRequest(_ context.Context, r model.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = cloneRequest(r)
	return nil
}

func (s *Store) AddVoter(_ context.Context, id, deviceID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return false, 0, model.ErrNotFound
	}
	if r.HasVoter(deviceID) {
		return false, r.VoteCount, nil
	}
	r.Voters = append(append([]string(nil), r.Voters...), deviceID)
	r.VoteCount = len(r.Voters)
	s.requests[id] = r
	return true, r.VoteCount, nil
}

func (s *Store) DeleteRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, id)
	return nil
}

func (s *Store) ListRequests(_ context.Context) ([]model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Request, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, cloneRequest(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetArchiveEntry(_ context.Context, id string) (*model.ArchiveEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.archive[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListArchive(_ context.Context) ([]model.ArchiveEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archiveNewestFirst(), nil
}

func (s *Store) archiveNewestFirst() []model.ArchiveEntry {
	out := make([]model.ArchiveEntry, 0, len(s.archive))
	for _, a := range s.archive {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayedAt.Equal(out[j].PlayedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].PlayedAt.After(out[j].PlayedAt)
	})
	return out
}

func (s *Store) TrimArchive(_ context.Context, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.archiveNewestFirst()
	if len(list) <= limit {
		return 0, nil
	}
	for _, a := range list[limit:] {
		delete(s.archive, a.ID)
	}
	return len(list) - limit, nil
}

func (s *Store) HasHistory(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.history[key]
	return ok, nil
}

func (s *Store) ListHistory(_ context.Context) ([]model.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.HistoryRecord, 0, len(s.history))
	for _, h := range s.history {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AcceptedAt.After(out[j].AcceptedAt) })
	return out, nil
}

func (s *Store) CommitAcceptance(_ context.Context, requestID string, a model.ArchiveEntry, h model.HistoryRecord) (*model.ArchiveEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.requests[requestID]
	if !ok {
		return nil, model.ErrNotFound
	}
	a.Voters = append([]string(nil), cur.Voters...)
	a.VoteCount = cur.VoteCount
	s.archive[a.ID] = a
	s.history[h.Key] = h
	delete(s.requests, requestID)

	out := a
	out.Voters = append([]string(nil), a.Voters...)
	return &out, nil
}

func (s *Store) CommitRestore(_ context.Context, archiveID, historyKey string, r model.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.archive[archiveID]; !ok {
		return model.ErrNotFound
	}
	delete(s.history, historyKey)
	s.requests[r.ID] = cloneRequest(r)
	delete(s.archive, archiveID)
	return nil
}

func (s *Store) GetBlacklistEntry(_ context.Context, id string) (*model.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.blacklist[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

func (s *Store) FindBlacklistByIdentity(_ context.Context, identity string) (*model.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.blacklist {
		if e.Identity == identity {
			return &e, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *Store) ListBlacklist(_ context.Context) ([]model.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.BlacklistEntry, 0, len(s.blacklist))
	for _, e := range s.blacklist {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *Store) PutBlacklistEntry(_ context.Context, e model.BlacklistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[e.ID] = e
	return nil
}

func (s *Store) DeleteBlacklistEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blacklist, id)
	return nil
}

func (s *Store) ListWords(_ context.Context) ([]model.ForbiddenWord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ForbiddenWord, 0, len(s.words))
	for _, w := range s.words {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out, nil
}

func (s *Store) PutWord(_ context.Context, w model.ForbiddenWord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words[w.Word] = w
	return nil
}

func (s *Store) DeleteWord(_ context.Context, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.words, word)
	return nil
}

func (s *Store) IsBanned(_ context.Context, deviceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bans[deviceID]
	return ok, nil
}

func (s *Store) PutBan(_ context.Context, b model.BannedDevice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[b.DeviceID] = b
	return nil
}

func (s *Store) DeleteBan(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bans, deviceID)
	return nil
}

func (s *Store) ListBans(_ context.Context) ([]model.BannedDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.BannedDevice, 0, len(s.bans))
	for _, b := range s.bans {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BannedAt.After(out[j].BannedAt) })
	return out, nil
}
