package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"request-service/internal/auth"
	"request-service/internal/canonical"
	"request-service/internal/catalog"
	"request-service/internal/cooldown"
	"request-service/internal/model"
	"request-service/internal/moderation"
	"request-service/internal/requests"
)

const maxQueryLen = 200

type SearchResponse struct {
	Items      []catalog.Track `json:"items"`
	NextOffset int             `json:"nextOffset"`
}

type PreviewChecks struct {
	Blocked  bool   `json:"blocked"`
	Reason   string `json:"reason,omitempty"`
	Explicit bool   `json:"explicit"`
}

type PreviewResponse struct {
	Manual bool           `json:"manual"`
	Track  *catalog.Track `json:"track,omitempty"`
	Checks PreviewChecks  `json:"checks"`
}

type SubmitResponse struct {
	requests.SubmitResult
	CooldownUntil int64 `json:"cooldownUntil,omitempty"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// HandleNewDevice hands out an anonymous device identity.
func (s *Server) HandleNewDevice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{
		"deviceId": uuid.NewString(),
	})
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	if len(q) > maxQueryLen {
		writeError(w, http.StatusBadRequest, "q is too long")
		return
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = n
	}

	items, err := s.catalog.Search(r.Context(), q, offset)
	if err != nil {
		s.metrics.Lookup("search", "error")
		s.log.Warn("catalog search failed", zap.String("q", q), zap.Error(err))
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	s.metrics.Lookup("search", "ok")
	if items == nil {
		items = []catalog.Track{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Items: items, NextOffset: offset + len(items)})
}

// HandlePreview resolves a pasted reference before submission. Banned
// devices are stopped before any catalog call. An unreachable catalog or a
// link it does not know turns into manual entry.
func (s *Server) HandlePreview(w http.ResponseWriter, r *http.Request) {
	device := deviceID(r)
	if device == "" {
		writeError(w, http.StatusBadRequest, requests.ErrMissingDevice.Error())
		return
	}
	ref := strings.TrimSpace(r.URL.Query().Get("ref"))
	if ref == "" {
		writeError(w, http.StatusBadRequest, "ref is required")
		return
	}
	if err := s.bans.Check(r.Context(), device); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	identity := canonical.Canonicalize(ref)
	resp := PreviewResponse{}

	trackID, ok := canonical.TrackID(ref)
	if ok {
		t, err := s.catalog.Resolve(r.Context(), trackID)
		switch {
		case err == nil:
			s.metrics.Lookup("resolve", "ok")
			resp.Track = t
		case errors.Is(err, catalog.ErrTrackNotFound):
			s.metrics.Lookup("resolve", "not_found")
			writeError(w, http.StatusNotFound, "track not found")
			return
		default:
			s.metrics.Lookup("resolve", "unavailable")
			s.log.Warn("catalog lookup failed, manual entry", zap.String("track", trackID), zap.Error(err))
		}
	}
	if resp.Track == nil {
		resp.Manual = true
		resp.Track = &catalog.Track{Reference: identity}
	}

	verdict, err := s.filters.CheckBlocked(r.Context(), identity, resp.Track.Title+" "+resp.Track.Artist)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp.Checks = PreviewChecks{
		Blocked:  verdict.Blocked,
		Reason:   verdict.Reason,
		Explicit: resp.Track.Explicit,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var song model.SongData
	if err := decodeJSON(r, &song); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	res, err := s.requests.Submit(r.Context(), deviceID(r), song)
	if err != nil {
		s.metrics.Submission(outcomeOf(err))
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Submission(string(res.Type))

	resp := SubmitResponse{SubmitResult: res}
	if res.CooldownUntil != nil {
		resp.CooldownUntil = res.CooldownUntil.UnixMilli()
	}
	status := http.StatusOK
	if res.Type == requests.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) HandleTop(w http.ResponseWriter, r *http.Request) {
	limit := requests.DefaultTopLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}
	items, err := s.requests.Top(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	token, expires, err := s.auth.Login(req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.log.Warn("moderator login failed", zap.String("ip", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, ExpiresAt: expires.UnixMilli()})
}

func outcomeOf(err error) string {
	var blocked *moderation.BlockedError
	var active *cooldown.ActiveError
	switch {
	case errors.Is(err, moderation.ErrDeviceBanned):
		return "banned"
	case errors.As(err, &blocked):
		return "blocked"
	case errors.Is(err, requests.ErrAlreadyAccepted):
		return "already_played"
	case errors.Is(err, requests.ErrExplicitRejected):
		return "explicit"
	case errors.As(err, &active):
		return "cooldown"
	case errors.Is(err, requests.ErrInvalidSong), errors.Is(err, requests.ErrMissingDevice):
		return "invalid"
	}
	return "error"
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
