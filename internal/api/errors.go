package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"request-service/internal/cooldown"
	"request-service/internal/model"
	"request-service/internal/moderation"
	"request-service/internal/requests"
)

// writeServiceError maps domain errors onto status codes. Block reasons
// and internal failures are logged, never returned.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var blocked *moderation.BlockedError
	var active *cooldown.ActiveError

	switch {
	case errors.Is(err, moderation.ErrDeviceBanned):
		writeError(w, http.StatusForbidden, "device banned")
	case errors.As(err, &blocked):
		s.log.Info("song not allowed", zap.String("reason", blocked.Reason))
		writeError(w, http.StatusUnprocessableEntity, "song not allowed")
	case errors.Is(err, requests.ErrAlreadyAccepted):
		writeError(w, http.StatusConflict, "song was already played")
	case errors.Is(err, requests.ErrExplicitRejected):
		writeError(w, http.StatusUnprocessableEntity, "explicit songs are not accepted")
	case errors.As(err, &active):
		secs := int(math.Ceil(time.Until(active.Until).Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":         "cooldown active",
			"cooldownUntil": active.Until.UnixMilli(),
		})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, requests.ErrInvalidSong),
		errors.Is(err, requests.ErrMissingDevice),
		errors.Is(err, requests.ErrInvalidTransition),
		errors.Is(err, moderation.ErrEmptyWord),
		errors.Is(err, moderation.ErrEmptyDevice),
		errors.Is(err, moderation.ErrEmptyTrack):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
