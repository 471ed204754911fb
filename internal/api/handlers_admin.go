package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"request-service/internal/model"
	"request-service/internal/moderation"
	"request-service/internal/requests"
)

// QueueItem is a queue entry as the moderator sees it. Word is the
// forbidden word that flagged it, if any.
type QueueItem struct {
	Request model.Request `json:"request"`
	Flagged bool          `json:"flagged"`
	Word    string        `json:"word,omitempty"`
}

type RejectResponse struct {
	Request   *model.Request        `json:"request"`
	Blacklist *model.BlacklistEntry `json:"blacklist,omitempty"`
}

type RestoreResponse struct {
	Restored bool           `json:"restored"`
	Request  *model.Request `json:"request,omitempty"`
}

type blacklistRequest struct {
	Reference string `json:"reference"`
	Title     string `json:"title"`
	Reason    string `json:"reason"`
}

type wordRequest struct {
	Word string `json:"word"`
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

type banRequest struct {
	DeviceID string `json:"deviceId"`
}

func (s *Server) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	list, err := s.requests.Requests(r.Context(), requests.ParseSort(r.URL.Query().Get("sort")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	words, err := s.filters.Words(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	items := make([]QueueItem, 0, len(list))
	for _, req := range list {
		word, flagged := moderation.MatchesWord(words, req.Title+" "+req.Artist)
		items = append(items, QueueItem{Request: req, Flagged: flagged, Word: word})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) HandleAccept(w http.ResponseWriter, r *http.Request) {
	entry, err := s.requests.Accept(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Moderation("accept")
	writeJSON(w, http.StatusOK, entry)
}

// HandleSetStatus accepts or rejects a queue entry through a single
// endpoint. Rejecting this way never blacklists.
func (s *Server) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !body.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if err := s.requests.SetStatus(r.Context(), chi.URLParam(r, "id"), body.Status); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if body.Status == model.StatusAccepted {
		s.metrics.Moderation("accept")
	} else {
		s.metrics.Moderation("reject")
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReject removes a request. With blacklist=true the track is also
// blacklisted, as a second step after the removal.
func (s *Server) HandleReject(w http.ResponseWriter, r *http.Request) {
	blacklist, _ := strconv.ParseBool(r.URL.Query().Get("blacklist"))

	req, err := s.requests.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Moderation("reject")

	resp := RejectResponse{Request: req}
	if blacklist {
		entry, err := s.filters.AddToBlacklist(r.Context(), req.Identity, req.Title, r.URL.Query().Get("reason"))
		if err != nil {
			s.log.Error("blacklist after reject failed", zap.String("request", req.ID), zap.Error(err))
			s.writeServiceError(w, r, err)
			return
		}
		s.metrics.Moderation("blacklist")
		resp.Blacklist = &entry
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleBanOwner(w http.ResponseWriter, r *http.Request) {
	req, err := s.requests.BanOwner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Moderation("ban")
	writeJSON(w, http.StatusOK, map[string]any{
		"request":  req,
		"deviceId": req.OwnerDevice,
	})
}

func (s *Server) HandleListArchive(w http.ResponseWriter, r *http.Request) {
	list, err := s.requests.Archive(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(list)})
}

func (s *Server) HandleRestore(w http.ResponseWriter, r *http.Request) {
	req, err := s.requests.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if req == nil {
		writeJSON(w, http.StatusOK, RestoreResponse{Restored: false})
		return
	}
	s.metrics.Moderation("restore")
	writeJSON(w, http.StatusOK, RestoreResponse{Restored: true, Request: req})
}

func (s *Server) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.requests.History(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(list)})
}

func (s *Server) HandleListBlacklist(w http.ResponseWriter, r *http.Request) {
	list, err := s.filters.Blacklist(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(list)})
}

func (s *Server) HandleAddBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	entry, err := s.filters.AddToBlacklist(r.Context(), req.Reference, req.Title, req.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Moderation("blacklist")
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) HandleRemoveBlacklist(w http.ResponseWriter, r *http.Request) {
	if err := s.filters.RemoveFromBlacklist(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Moderation("unblacklist")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleListWords(w http.ResponseWriter, r *http.Request) {
	list, err := s.filters.Words(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(list)})
}

func (s *Server) HandleAddWord(w http.ResponseWriter, r *http.Request) {
	var req wordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	word, err := s.filters.AddWord(r.Context(), req.Word)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Moderation("add_word")
	writeJSON(w, http.StatusCreated, word)
}

func (s *Server) HandleRemoveWord(w http.ResponseWriter, r *http.Request) {
	word := chi.URLParam(r, "word")
	if v, err := url.PathUnescape(word); err == nil {
		word = v
	}
	if err := s.filters.RemoveWord(r.Context(), word); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Moderation("remove_word")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleListBans(w http.ResponseWriter, r *http.Request) {
	list, err := s.bans.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(list)})
}

func (s *Server) HandleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.bans.Ban(r.Context(), req.DeviceID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.Moderation("ban")
	writeJSON(w, http.StatusCreated, map[string]string{"deviceId": req.DeviceID})
}

func (s *Server) HandleUnban(w http.ResponseWriter, r *http.Request) {
	device := chi.URLParam(r, "deviceId")
	if err := s.bans.Unban(r.Context(), device); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	// an unbanned device starts over without a pending cooldown
	s.requests.ResetCooldown(device)
	s.metrics.Moderation("unban")
	w.WriteHeader(http.StatusNoContent)
}
