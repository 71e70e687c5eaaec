package handler

import (
	"context"
	"time"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/internal/server/httpserver"
)

// SessionInfo describes the session attached to a request.
type SessionInfo struct {
	Valid   bool       `json:"valid" yaml:"valid"`
	Expires *time.Time `json:"expires,omitempty" yaml:"expires,omitempty"`
}

func sessionInfo(sess *domain.Session) SessionInfo {
	exp := sess.ExpiresAt().UTC()
	return SessionInfo{Valid: true, Expires: &exp}
}

// checkSession reports whether the session cookie is live. Credentials
// are not consulted and no challenge is sent, so browser clients can
// probe without a login prompt.
func (h *Handler) checkSession(ctx context.Context, conn *httpserver.Connection) (any, error) {
	ck, err := conn.Request().Cookie(h.srv.Config().SessionCookie)
	if err != nil || ck.Value == "" {
		return nil, domain.ErrSessionNotFound
	}
	sess, ok := h.srv.Sessions().Find(ctx, ck.Value)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	conn.Session = sess
	return sessionInfo(sess), nil
}

// checkLogin authenticates by cookie or Basic credentials, issuing a
// session for the latter. Failure sends the Basic challenge.
func (h *Handler) checkLogin(_ context.Context, conn *httpserver.Connection) (any, error) {
	if !h.srv.HasValidSession(conn, true) {
		return nil, nil
	}
	return sessionInfo(conn.Session), nil
}

// invalidate ends the request's session.
func (h *Handler) invalidate(_ context.Context, conn *httpserver.Connection) (any, error) {
	if !h.srv.InvalidateSession(conn) {
		return nil, domain.ErrSessionNotFound
	}
	return SessionInfo{Valid: false}, nil
}
