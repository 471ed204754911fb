package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"request-service/internal/canonical"
)

const (
	DefaultAPIURL   = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultTimeout  = 5 * time.Second
	DefaultPageSize = 3
)

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	TokenURL     string
	Timeout      time.Duration
	PageSize     int
}

type SpotifyClient struct {
	apiURL   string
	pageSize int
	timeout  time.Duration
	http     *http.Client
	tokens   *TokenSource
}

func NewSpotifyClient(cfg SpotifyConfig) *SpotifyClient {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &SpotifyClient{
		apiURL:   strings.TrimRight(cfg.APIURL, "/"),
		pageSize: cfg.PageSize,
		timeout:  cfg.Timeout,
		http:     httpClient,
		tokens:   NewTokenSource(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, httpClient),
	}
}

type spTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	Explicit   bool   `json:"explicit"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type spSearchResponse struct {
	Tracks struct {
		Items []spTrack `json:"items"`
	} `json:"tracks"`
}

func (t spTrack) toTrack() Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	cover := PlaceholderCover
	if len(t.Album.Images) > 0 && t.Album.Images[0].URL != "" {
		cover = t.Album.Images[0].URL
	}
	ref := canonical.Canonicalize(t.ExternalURLs.Spotify)
	if t.ID != "" {
		ref = canonical.URL(t.ID)
	}
	return Track{
		ID:         t.ID,
		Title:      t.Name,
		Artist:     strings.Join(names, ", "),
		CoverURL:   cover,
		DurationMs: t.DurationMs,
		Explicit:   t.Explicit,
		Reference:  ref,
	}
}

func (c *SpotifyClient) Resolve(ctx context.Context, trackID string) (*Track, error) {
	var body spTrack
	status, err := c.get(ctx, "/tracks/"+url.PathEscape(trackID), nil, &body)
	if status == http.StatusNotFound || status == http.StatusBadRequest {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, err
	}
	t := body.toTrack()
	return &t, nil
}

func (c *SpotifyClient) Search(ctx context.Context, query string, offset int) ([]Track, error) {
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))

	var body spSearchResponse
	if _, err := c.get(ctx, "/search", q, &body); err != nil {
		return nil, err
	}
	out := make([]Track, 0, len(body.Tracks.Items))
	for _, it := range body.Tracks.Items {
		out = append(out, it.toTrack())
	}
	return out, nil
}

// get performs an authorized GET bounded by the client timeout. Failures
// wrap ErrLookupUnavailable; the status is returned whenever one arrived.
func (c *SpotifyClient) get(ctx context.Context, path string, q url.Values, dst any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: token: %v", ErrLookupUnavailable, err)
	}

	reqURL := c.apiURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLookupUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("%w: catalog status %d", ErrLookupUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode: %v", ErrLookupUnavailable, err)
	}
	return resp.StatusCode, nil
}
