package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated caller, resolved once per request from the
// bearer token and carried in the request context.
type Session struct {
	UserID string
	Name   string
	Role   string
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s.UserID != ""
}

// SessionMiddleware validates an HS256 bearer token and attaches its Session.
// The token must carry the user id in the "id" claim.
func SessionMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respondError(w, http.StatusUnauthorized, "unauthorized", "authorization token missing or malformed")
				return
			}

			session, err := parseSession(strings.TrimPrefix(authHeader, "Bearer "), secret)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "authentication failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func parseSession(tokenString string, secret []byte) (Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, errors.New("unexpected claims type")
	}

	var session Session
	switch id := claims["id"].(type) {
	case string:
		session.UserID = id
	case float64:
		session.UserID = fmt.Sprintf("%.0f", id)
	}
	if session.UserID == "" {
		return Session{}, errors.New("token has no user id")
	}
	session.Name, _ = claims["name"].(string)
	session.Role, _ = claims["role"].(string)
	return session, nil
}

// requireSession writes 401 and returns false when the request carries no session.
func requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return Session{}, false
	}
	return session, true
}

// requireOwner resolves the session and checks that the {userId} path
// parameter names the same owner.
func requireOwner(w http.ResponseWriter, r *http.Request) (Session, bool) {
	session, ok := requireSession(w, r)
	if !ok {
		return Session{}, false
	}
	if userID := chi.URLParam(r, "userId"); userID != session.UserID {
		respondError(w, http.StatusForbidden, "permission_denied", "cannot access another user's data")
		return Session{}, false
	}
	return session, true
}
