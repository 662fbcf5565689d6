package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/kontakt/internal/auth"
	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/internal/session"
)

// SessionConfig wires the session middleware
type SessionConfig struct {
	Store  session.Store
	Tokens *auth.SessionTokenManager
	Cookie auth.CookieConfig
	Logger *slog.Logger
}

// Session loads the visitor's session at request start (or creates a fresh one) and
// flushes it before the response header is written. Sessions that carry no state
// are never persisted, so one-off requests do not fill the store.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, stale := loadSession(r, cfg)

			sw := &sessionWriter{ResponseWriter: w}
			sw.flush = func() {
				if !sess.Dirty() || sess.CSRF == nil {
					if stale {
						auth.ClearSessionCookie(w, cfg.Cookie)
					}
					return
				}
				if err := cfg.Store.Save(r.Context(), sess); err != nil {
					cfg.Logger.ErrorContext(r.Context(), "failed to save session", slog.Any("error", err))
					return
				}
				value, err := cfg.Tokens.Sign(sess.ID, sess.ExpiresAt)
				if err != nil {
					cfg.Logger.ErrorContext(r.Context(), "failed to sign session cookie", slog.Any("error", err))
					return
				}
				auth.SetSessionCookie(w, value, sess.ExpiresAt, cfg.Cookie)
			}

			next.ServeHTTP(sw, r.WithContext(session.WithSession(r.Context(), sess)))
			sw.flushOnce()
		})
	}
}

// loadSession returns the visitor's session. stale is set when the request carried
// a cookie that no longer resolves to a live session.
func loadSession(r *http.Request, cfg SessionConfig) (sess *session.Session, stale bool) {
	value, err := auth.GetSessionCookie(r)
	if err != nil {
		return session.New(cfg.Tokens.TTL()), false
	}

	id, err := cfg.Tokens.Parse(value)
	if err != nil {
		cfg.Logger.DebugContext(r.Context(), "discarding invalid session cookie")
		return session.New(cfg.Tokens.TTL()), true
	}

	sess, err = cfg.Store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			cfg.Logger.ErrorContext(r.Context(), "failed to load session", slog.Any("error", err))
		}
		return session.New(cfg.Tokens.TTL()), true
	}
	if sess.Expired(time.Now()) {
		return session.New(cfg.Tokens.TTL()), true
	}
	return sess, false
}

// sessionWriter runs flush right before the status line goes out
type sessionWriter struct {
	http.ResponseWriter
	flush   func()
	flushed bool
}

func (w *sessionWriter) flushOnce() {
	if !w.flushed {
		w.flushed = true
		w.flush()
	}
}

func (w *sessionWriter) WriteHeader(code int) {
	w.flushOnce()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flushOnce()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
