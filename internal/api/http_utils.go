package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// DeviceHeader carries the anonymous device identity of public callers.
const DeviceHeader = "X-Device-Id"

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func deviceID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(DeviceHeader))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
