// Package canonical turns the many spellings of a track reference into the
// single identity string used as merge key for the queue, the history and
// the blacklist.
package canonical

import (
	"encoding/base64"
	"regexp"
	"strings"
)

const trackBaseURL = "https://open.spotify.com/track/"

var (
	trackPathRe = regexp.MustCompile(`track/([a-zA-Z0-9]+)`)
	trackURIRe  = regexp.MustCompile(`^spotify:track:([a-zA-Z0-9]+)$`)
)

// TrackID extracts the catalog track token from ref.
func TrackID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if m := trackURIRe.FindStringSubmatch(ref); m != nil {
		return m[1], true
	}
	if m := trackPathRe.FindStringSubmatch(ref); m != nil {
		return m[1], true
	}
	return "", false
}

// Canonicalize returns the canonical track link for ref, or ref unchanged
// when no track token can be found. Canonicalize(Canonicalize(x)) equals
// Canonicalize(x) for every x.
func Canonicalize(ref string) string {
	id, ok := TrackID(ref)
	if !ok {
		return ref
	}
	return trackBaseURL + id
}

// Key derives a storage-safe document key from an identity.
func Key(identity string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(identity))
}

// URL builds the canonical link for a bare track id.
func URL(trackID string) string {
	return trackBaseURL + trackID
}
