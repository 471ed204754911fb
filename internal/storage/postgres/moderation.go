package postgres

import (
	"context"
	"fmt"

	"request-service/internal/model"
)

func (s *Store) GetBlacklistEntry(ctx context.Context, id string) (*model.BlacklistEntry, error) {
	var e model.BlacklistEntry
	err := s.db.QueryRow(ctx, `
        SELECT id, identity, title, reason FROM blacklist WHERE id = $1
    `, id).Scan(&e.ID, &e.Identity, &e.Title, &e.Reason)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *Store) FindBlacklistByIdentity(ctx context.Context, identity string) (*model.BlacklistEntry, error) {
	var e model.BlacklistEntry
	err := s.db.QueryRow(ctx, `
        SELECT id, identity, title, reason FROM blacklist WHERE identity = $1 LIMIT 1
    `, identity).Scan(&e.ID, &e.Identity, &e.Title, &e.Reason)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *Store) ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	rows, err := s.db.Query(ctx, `SELECT id, identity, title, reason FROM blacklist ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BlacklistEntry{}
	for rows.Next() {
		var e model.BlacklistEntry
		if err := rows.Scan(&e.ID, &e.Identity, &e.Title, &e.Reason); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) PutBlacklistEntry(ctx context.Context, e model.BlacklistEntry) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO blacklist(id, identity, title, reason)
        VALUES($1,$2,$3,$4)
        ON CONFLICT (id) DO UPDATE
        SET identity = EXCLUDED.identity, title = EXCLUDED.title, reason = EXCLUDED.reason
    `, e.ID, e.Identity, e.Title, e.Reason)
	if err != nil {
		return fmt.Errorf("upsert blacklist: %w", err)
	}
	return nil
}

func (s *Store) DeleteBlacklistEntry(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM blacklist WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete blacklist: %w", err)
	}
	return nil
}

func (s *Store) ListWords(ctx context.Context) ([]model.ForbiddenWord, error) {
	rows, err := s.db.Query(ctx, `SELECT word FROM forbidden_words ORDER BY word`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ForbiddenWord{}
	for rows.Next() {
		var w model.ForbiddenWord
		if err := rows.Scan(&w.Word); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) PutWord(ctx context.Context, w model.ForbiddenWord) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO forbidden_words(word) VALUES($1) ON CONFLICT (word) DO NOTHING
    `, w.Word)
	if err != nil {
		return fmt.Errorf("insert word: %w", err)
	}
	return nil
}

func (s *Store) DeleteWord(ctx context.Context, word string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM forbidden_words WHERE word = $1`, word); err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	return nil
}

func (s *Store) IsBanned(ctx context.Context, deviceID string) (bool, error) {
	var banned bool
	err := s.db.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM banned_devices WHERE device_id = $1)
    `, deviceID).Scan(&banned)
	if err != nil {
		return false, err
	}
	return banned, nil
}

func (s *Store) PutBan(ctx context.Context, b model.BannedDevice) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO banned_devices(device_id, banned_at)
        VALUES($1,$2)
        ON CONFLICT (device_id) DO UPDATE SET banned_at = EXCLUDED.banned_at
    `, b.DeviceID, b.BannedAt)
	if err != nil {
		return fmt.Errorf("upsert ban: %w", err)
	}
	return nil
}

func (s *Store) DeleteBan(ctx context.Context, deviceID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM banned_devices WHERE device_id = $1`, deviceID); err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	return nil
}

func (s *Store) ListBans(ctx context.Context) ([]model.BannedDevice, error) {
	rows, err := s.db.Query(ctx, `
        SELECT device_id, banned_at FROM banned_devices ORDER BY banned_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BannedDevice{}
	for rows.Next() {
		var b model.BannedDevice
		if err := rows.Scan(&b.DeviceID, &b.BannedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
