// Package catalog looks up track metadata in the external music catalog.
package catalog

import (
	"context"
	"errors"
)

var (
	ErrTrackNotFound = errors.New("track not found")
	// ErrLookupUnavailable covers timeouts, transport failures and upstream
	// errors. Callers fall back to manual entry.
	ErrLookupUnavailable = errors.New("catalog lookup unavailable")
)

// PlaceholderCover is used when the catalog has no artwork for a track.
const PlaceholderCover = "https://placehold.co/300x300?text=Spotify"

type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	CoverURL   string `json:"coverUrl"`
	DurationMs int    `json:"durationMs"`
	Explicit   bool   `json:"explicit"`
	Reference  string `json:"reference"`
}

type Catalog interface {
	Resolve(ctx context.Context, trackID string) (*Track, error)
	// Search returns one fixed-size page of matches starting at offset.
	Search(ctx context.Context, query string, offset int) ([]Track, error)
}

// Disabled is used when no catalog credentials are configured. Every
// lookup reports ErrLookupUnavailable, so clients enter songs manually.
type Disabled struct{}

func (Disabled) Resolve(context.Context, string) (*Track, error) {
	return nil, ErrLookupUnavailable
}

func (Disabled) Search(context.Context, string, int) ([]Track, error) {
	return nil, ErrLookupUnavailable
}
