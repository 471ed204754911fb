package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"request-service/internal/model"
)

const requestColumns = `id, identity, title, artist, cover_url, duration_ms, explicit,
created_at, status, owner_device, voters, vote_count`

func scanRequest(row pgx.Row) (*model.Request, error) {
	var (
		r      model.Request
		status string
	)
	err := row.Scan(
		&r.ID, &r.Identity, &r.Title, &r.Artist, &r.CoverURL, &r.DurationMs, &r.Explicit,
		&r.CreatedAt, &status, &r.OwnerDevice, &r.Voters, &r.VoteCount,
	)
	if err != nil {
		return nil, err
	}
	r.Status = model.Status(status)
	return &r, nil
}

func (s *Store) FindActiveByIdentity(ctx context.Context, identity string) (*model.Request, error) {
	r, err := scanRequest(s.db.QueryRow(ctx, `
        SELECT `+requestColumns+`
        FROM requests
        WHERE identity = $1
        ORDER BY created_at ASC
        LIMIT 1
    `, identity))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	r, err := scanRequest(s.db.QueryRow(ctx, `
        SELECT `+requestColumns+`
        FROM requests
        WHERE id = $1
    `, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Store) CreateRequest(ctx context.Context, r model.Request) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO requests(`+requestColumns+`)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    `, r.ID, r.Identity, r.Title, r.Artist, r.CoverURL, r.DurationMs, r.Explicit,
		r.CreatedAt, string(r.Status), r.OwnerDevice, r.Voters, r.VoteCount)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// AddVoter updates the row only when the device is not yet a voter, so two
// concurrent votes can never count the same device twice.
func (s *Store) AddVoter(ctx context.Context, id, deviceID string) (bool, int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
        UPDATE requests
        SET voters = array_append(voters, $2::text),
            vote_count = cardinality(voters) + 1
        WHERE id = $1 AND NOT ($2::text = ANY(voters))
        RETURNING vote_count
    `, id, deviceID).Scan(&count)
	if err == nil {
		return true, count, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, 0, fmt.Errorf("add voter: %w", err)
	}

	// either the row is gone or the device already voted
	err = s.db.QueryRow(ctx, `SELECT vote_count FROM requests WHERE id = $1`, id).Scan(&count)
	if err != nil {
		return false, 0, notFound(err)
	}
	return false, count, nil
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context) ([]model.Request, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+requestColumns+`
        FROM requests
        ORDER BY created_at ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
