package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"request-service/internal/live"
	"request-service/internal/model"
)

// Bans is the registry of devices refused at the submission gate.
type Bans struct {
	store  BanStore
	notify live.Notifier
	log    *zap.Logger
	now    func() time.Time
}

func NewBans(store BanStore, notify live.Notifier, log *zap.Logger) *Bans {
	if notify == nil {
		notify = live.NopNotifier{}
	}
	return &Bans{store: store, notify: notify, log: log, now: time.Now}
}

func (b *Bans) IsBanned(ctx context.Context, deviceID string) (bool, error) {
	banned, err := b.store.IsBanned(ctx, strings.TrimSpace(deviceID))
	if err != nil {
		return false, fmt.Errorf("ban lookup: %w", err)
	}
	return banned, nil
}

// Check returns ErrDeviceBanned for a banned device.
func (b *Bans) Check(ctx context.Context, deviceID string) error {
	banned, err := b.IsBanned(ctx, deviceID)
	if err != nil {
		return err
	}
	if banned {
		return ErrDeviceBanned
	}
	return nil
}

// Ban upserts deviceID with the current time.
func (b *Bans) Ban(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return ErrEmptyDevice
	}
	if err := b.store.PutBan(ctx, model.BannedDevice{DeviceID: deviceID, BannedAt: b.now()}); err != nil {
		return fmt.Errorf("put ban: %w", err)
	}
	b.log.Info("device banned", zap.String("device", deviceID))
	b.notify.Notify(ctx, live.BannedDevices)
	return nil
}

// Unban is a no-op for devices that are not banned.
func (b *Bans) Unban(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return ErrEmptyDevice
	}
	if err := b.store.DeleteBan(ctx, deviceID); err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	b.log.Info("device unbanned", zap.String("device", deviceID))
	b.notify.Notify(ctx, live.BannedDevices)
	return nil
}

// List returns the bans, most recent first.
func (b *Bans) List(ctx context.Context) ([]model.BannedDevice, error) {
	return b.store.ListBans(ctx)
}
