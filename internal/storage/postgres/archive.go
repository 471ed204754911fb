package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"request-service/internal/model"
)

const archiveColumns = `id, request_id, identity, title, artist, cover_url, duration_ms, explicit,
created_at, status, owner_device, voters, vote_count, played_at`

func scanArchive(row pgx.Row) (*model.ArchiveEntry, error) {
	var (
		a      model.ArchiveEntry
		status string
	)
	err := row.Scan(
		&a.ID, &a.RequestID, &a.Identity, &a.Title, &a.Artist, &a.CoverURL, &a.DurationMs, &a.Explicit,
		&a.CreatedAt, &status, &a.OwnerDevice, &a.Voters, &a.VoteCount, &a.PlayedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = model.Status(status)
	return &a, nil
}

func (s *Store) GetArchiveEntry(ctx context.Context, id string) (*model.ArchiveEntry, error) {
	a, err := scanArchive(s.db.QueryRow(ctx, `
        SELECT `+archiveColumns+`
        FROM archive
        WHERE id = $1
    `, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) ListArchive(ctx context.Context) ([]model.ArchiveEntry, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+archiveColumns+`
        FROM archive
        ORDER BY played_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ArchiveEntry{}
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) TrimArchive(ctx context.Context, limit int) (int, error) {
	tag, err := s.db.Exec(ctx, `
        DELETE FROM archive
        WHERE id IN (
            SELECT id FROM archive
            ORDER BY played_at DESC, id DESC
            OFFSET $1
        )
    `, limit)
	if err != nil {
		return 0, fmt.Errorf("trim archive: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) HasHistory(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM history WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("history lookup: %w", err)
	}
	return exists, nil
}

func (s *Store) ListHistory(ctx context.Context) ([]model.HistoryRecord, error) {
	rows, err := s.db.Query(ctx, `
        SELECT key, identity, title, artist, accepted_at
        FROM history
        ORDER BY accepted_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.HistoryRecord{}
	for rows.Next() {
		var h model.HistoryRecord
		if err := rows.Scan(&h.Key, &h.Identity, &h.Title, &h.Artist, &h.AcceptedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// CommitAcceptance copies the request row into the archive while holding
// its lock, so a vote racing the acceptance is either archived or refused.
func (s *Store) CommitAcceptance(ctx context.Context, requestID string, a model.ArchiveEntry, h model.HistoryRecord) (*model.ArchiveEntry, error) {
	var out *model.ArchiveEntry
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT 1 FROM requests WHERE id = $1 FOR UPDATE`, requestID); err != nil {
			return fmt.Errorf("lock request: %w", err)
		}

		entry, err := scanArchive(tx.QueryRow(ctx, `
            INSERT INTO archive(`+archiveColumns+`)
            SELECT $1, id, $2, title, artist, cover_url, duration_ms, explicit,
                   created_at, $3, owner_device, voters, vote_count, $4
            FROM requests
            WHERE id = $5
            RETURNING `+archiveColumns+`
        `, a.ID, a.Identity, string(a.Status), a.PlayedAt, requestID))
		if err != nil {
			return notFound(err)
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO history(key, identity, title, artist, accepted_at)
            VALUES($1,$2,$3,$4,$5)
            ON CONFLICT (key) DO UPDATE
            SET identity = EXCLUDED.identity,
                title = EXCLUDED.title,
                artist = EXCLUDED.artist,
                accepted_at = EXCLUDED.accepted_at
        `, h.Key, h.Identity, h.Title, h.Artist, h.AcceptedAt); err != nil {
			return fmt.Errorf("upsert history: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM requests WHERE id = $1`, requestID)
		if err != nil {
			return fmt.Errorf("delete request: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrNotFound
		}
		out = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CommitRestore(ctx context.Context, archiveID, historyKey string, r model.Request) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM archive WHERE id = $1`, archiveID)
		if err != nil {
			return fmt.Errorf("delete archive entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM history WHERE key = $1`, historyKey); err != nil {
			return fmt.Errorf("delete history: %w", err)
		}

		if _, err := tx.Exec(ctx, `
            INSERT INTO requests(`+requestColumns+`)
            VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        `, r.ID, r.Identity, r.Title, r.Artist, r.CoverURL, r.DurationMs, r.Explicit,
			r.CreatedAt, string(r.Status), r.OwnerDevice, r.Voters, r.VoteCount); err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		return nil
	})
}
