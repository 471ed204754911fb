package realtime

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"request-service/internal/auth"
	"request-service/internal/live"
)

// TokenVerifier checks moderator tokens.
type TokenVerifier interface {
	Verify(raw string) (*auth.TokenClaims, error)
}

type Server struct {
	hub      *Hub
	verifier TokenVerifier
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer builds the /ws handler. An empty origins list or "*" accepts
// any origin.
func NewServer(hub *Hub, verifier TokenVerifier, origins []string, log *zap.Logger) *Server {
	s := &Server{hub: hub, verifier: verifier, log: log}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return s
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return allowed[u.Scheme+"://"+u.Host]
	}
}

// publicCollections may be watched without a moderator token.
var publicCollections = map[live.Collection]bool{
	live.TopRequests: true,
}

// HandleWS upgrades the connection and streams the collections named in
// ?collections= (comma separated, default top_requests). Anything beyond
// the public view needs a moderator token in ?token= or the Authorization
// header.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	collections, err := parseCollections(r.URL.Query().Get("collections"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	needsAuth := false
	for _, c := range collections {
		if !publicCollections[c] {
			needsAuth = true
		}
	}
	if needsAuth && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "moderator token required")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("realtime: ws upgrade", zap.Error(err))
		return
	}

	client := newClient(s.hub, conn, collections)
	if !s.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) authorized(r *http.Request) bool {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		var ok bool
		if raw, ok = auth.BearerToken(r.Header.Get("Authorization")); !ok {
			return false
		}
	}
	_, err := s.verifier.Verify(raw)
	return err == nil
}

func parseCollections(raw string) ([]live.Collection, error) {
	if strings.TrimSpace(raw) == "" {
		return []live.Collection{live.TopRequests}, nil
	}
	seen := make(map[live.Collection]bool)
	var out []live.Collection
	for _, part := range strings.Split(raw, ",") {
		c, err := live.ParseCollection(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}
