// internal/httpserver/tokens.go
//
// Play tokens and the anonymous player cookie.
//   - A play token is an HS256 JWT {gid, sub, exp} binding one game to its owner.
//   - Tokens are read from "Authorization: Bearer" first, then the token cookie.
//   - The anonymous cookie gives every browser a stable player ID for history.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenCookieName = "concentration_token"
	anonCookieName  = "concentration_anon"
)

// playClaims are the claims carried by a play token.
type playClaims struct {
	GameID string `json:"gid"`
	jwt.RegisteredClaims
}

// ctxClaimsKey is the context key type for verified play claims.
type ctxClaimsKey struct{}

// signPlayToken issues a token for gameID owned by owner, valid for SESSION_TTL.
func (s *Server) signPlayToken(gameID, owner string) (string, time.Time, error) {
	now := s.clock.Now()
	exp := now.Add(s.cfg.SessionTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, playClaims{
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// parsePlayToken verifies tok and returns its claims.
func (s *Server) parsePlayToken(tok string) (*playClaims, error) {
	claims := &playClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, err
	}
	if !t.Valid || claims.GameID == "" {
		return nil, errors.New("invalid play token")
	}
	return claims, nil
}

// requirePlayToken enforces a valid play token and injects its claims into the request context.
func (s *Server) requirePlayToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerOrCookie(r)
			if tok == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			claims, err := s.parsePlayToken(tok)
			if err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxClaimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFrom(ctx context.Context) *playClaims {
	c, _ := ctx.Value(ctxClaimsKey{}).(*playClaims)
	return c
}

// bearerOrCookie extracts a bearer token from Authorization header or the token cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(tokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// setCookie writes a cookie with the security attributes for the current environment.
func (s *Server) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if id := anonID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	s.setCookie(w, anonCookieName, id, s.clock.Now().Add(180*24*time.Hour))
	return id
}

// anonID returns the caller's anonymous ID without assigning one.
func anonID(r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil {
		return c.Value
	}
	return ""
}
