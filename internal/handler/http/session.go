package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/luxemarket/storefront/pkg/httputil"
	"github.com/luxemarket/storefront/pkg/logger"
)

const (
	sessionCookieName = "luxe_session"
	sessionIDValue    = "sid"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

// SessionConfig configures the shopper session cookie.
type SessionConfig struct {
	Key    []byte
	MaxAge time.Duration
	Secure bool
	Domain string
}

// SessionManager issues and reads the signed cookie that identifies a
// shopper's cart container.
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager creates a cookie-backed session manager.
func NewSessionManager(cfg SessionConfig) *SessionManager {
	store := sessions.NewCookieStore(cfg.Key)
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge / time.Second),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Middleware attaches a session ID to every /api/v1 request, starting a new
// session when the cookie is missing or cannot be verified. Probes and the
// stateless notification endpoint never get a session.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v1/") {
			next.ServeHTTP(w, r)
			return
		}

		// A tampered or expired cookie yields a fresh session alongside the error.
		session, _ := m.store.Get(r, sessionCookieName)

		sid, _ := session.Values[sessionIDValue].(string)
		if sid == "" {
			sid = uuid.NewString()
			session.Values[sessionIDValue] = sid
			if err := session.Save(r, w); err != nil {
				httputil.WriteError(w, r, err, nil)
				return
			}
		}

		ctx := context.WithValue(r.Context(), sessionIDKey, sid)
		ctx = logger.WithSessionID(ctx, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// End expires the session cookie.
func (m *SessionManager) End(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, sessionCookieName)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

func sessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}
