package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/yndnr/statehttpd/internal/core/domain"
	"github.com/yndnr/statehttpd/pkg/token"
)

// Auth failure reasons reported to metrics.
const (
	authReasonMissing     = "missing"
	authReasonCredentials = "bad_credentials"
	authReasonSession     = "bad_session"
)

// CreateSession issues a session. With conn it is attached to the
// request; with header a Set-Cookie line is appended.
func (s *Server) CreateSession(ctx context.Context, conn *Connection, header http.Header, lifetime time.Duration) (*domain.Session, error) {
	sess, err := s.sessions.Create(ctx, lifetime)
	if err != nil {
		return nil, err
	}
	s.metrics.SessionCreated()

	if conn != nil {
		conn.Session = sess
	}
	if header != nil {
		header.Add("Set-Cookie", s.sessionCookie(sess.ID, sess.Lifetime).String())
		if conn != nil {
			conn.cookieSet = true
		}
	}
	return sess, nil
}

// HasValidSession authenticates the request.
//
// A session cookie that resolves to a live session wins; Basic
// credentials on the same request are then not inspected. Otherwise
// Basic credentials are checked and, on success, a new session is issued
// and cookied. On failure with sendReject the pending response becomes a
// 401 Basic challenge.
func (s *Server) HasValidSession(conn *Connection, sendReject bool) bool {
	ctx := conn.Context()
	r := conn.req

	if ck, err := r.Cookie(s.cfg.SessionCookie); err == nil && ck.Value != "" {
		if sess, ok := s.sessions.Find(ctx, ck.Value); ok {
			conn.Session = sess
			return true
		}
		s.metrics.AuthFailed(authReasonSession)
	}

	reason := authReasonMissing
	if user, pass, ok := r.BasicAuth(); ok {
		if s.checkCredentials(user, pass) {
			if _, err := s.CreateSession(ctx, conn, conn.Header(), s.cfg.SessionTimeout); err != nil {
				s.logger.Error("unable to create session", "error", err)
				s.writeError(conn, domain.ErrInternalServer.WithCause(err))
				return false
			}
			return true
		}
		reason = authReasonCredentials
		s.logger.Warn("login failed", "user", user, "remote", s.proxies.ClientIP(r))
	}
	s.metrics.AuthFailed(reason)

	if sendReject {
		conn.Header().Set("WWW-Authenticate", `Basic realm=`+strconv.Quote(s.cfg.Realm)+`, charset="UTF-8"`)
		rejectErr := domain.ErrAuthRequired
		if reason == authReasonCredentials {
			rejectErr = domain.ErrAuthInvalid
		}
		s.writeError(conn, rejectErr)
	}
	return false
}

// InvalidateSession deletes the request's session and expires the
// cookie.
func (s *Server) InvalidateSession(conn *Connection) bool {
	if conn.Session == nil {
		return false
	}
	ok := s.sessions.Delete(conn.Context(), conn.Session.ID)
	conn.Session = nil
	ck := s.sessionCookie("", 0)
	ck.MaxAge = -1
	conn.Header().Add("Set-Cookie", ck.String())
	conn.cookieSet = true
	return ok
}

func (s *Server) checkCredentials(user, pass string) bool {
	userOK := token.Equal(user, s.cfg.Username)
	var passOK bool
	if s.cfg.PasswordHash != "" {
		match, err := argon2id.ComparePasswordAndHash(pass, s.cfg.PasswordHash)
		if err != nil {
			s.logger.Error("password hash check failed", "error", err)
		}
		passOK = err == nil && match
	} else {
		passOK = s.cfg.Password != "" && token.Equal(pass, s.cfg.Password)
	}
	return userOK && passOK
}

func (s *Server) sessionCookie(id string, lifetime time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    id,
		Path:     s.cfg.URIPrefix + "/",
		MaxAge:   int(lifetime / time.Second),
		HttpOnly: true,
		Secure:   s.UsingTLS(),
		SameSite: http.SameSiteLaxMode,
	}
}
