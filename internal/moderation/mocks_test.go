package moderation

import (
	"context"

	"github.com/stretchr/testify/mock"

	"request-service/internal/live"
	"request-service/internal/model"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetBlacklistEntry(ctx context.Context, id string) (*model.BlacklistEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlacklistEntry), args.Error(1)
}

func (m *MockStore) FindBlacklistByIdentity(ctx context.Context, identity string) (*model.BlacklistEntry, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BlacklistEntry), args.Error(1)
}

func (m *MockStore) ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BlacklistEntry), args.Error(1)
}

func (m *MockStore) PutBlacklistEntry(ctx context.Context, e model.BlacklistEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockStore) DeleteBlacklistEntry(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) ListWords(ctx context.Context) ([]model.ForbiddenWord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ForbiddenWord), args.Error(1)
}

func (m *MockStore) PutWord(ctx context.Context, w model.ForbiddenWord) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockStore) DeleteWord(ctx context.Context, word string) error {
	return m.Called(ctx, word).Error(0)
}

func (m *MockStore) IsBanned(ctx context.Context, deviceID string) (bool, error) {
	args := m.Called(ctx, deviceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) PutBan(ctx context.Context, b model.BannedDevice) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockStore) DeleteBan(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

func (m *MockStore) ListBans(ctx context.Context) ([]model.BannedDevice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BannedDevice), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, collections ...live.Collection) {
	m.Called(ctx, collections)
}
