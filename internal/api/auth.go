package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// tokenQueryParam carries the token on the stream handshake, where browsers
// cannot set an Authorization header.
const tokenQueryParam = "access_token"

// requireToken admits requests carrying an unexpired HS256 token signed
// with api.auth.secret. Without a configured secret every request is
// rejected.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.authSecret) == 0 {
			s.unauthorized(w, r, "api auth is not configured")
			return
		}

		raw := bearerToken(r)
		if raw == "" {
			s.unauthorized(w, r, "missing bearer token")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, s.signingKey,
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		)
		if err != nil {
			s.logger.Warn("api token rejected",
				"path", r.URL.Path,
				"error", err,
				"request_id", requestID(r),
			)
			s.unauthorized(w, r, "invalid bearer token")
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) signingKey(_ *jwt.Token) (any, error) {
	return s.authSecret, nil
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="beacon-station"`)
	fail(w, r, http.StatusUnauthorized, CodeUnauthorized, message)
}

// bearerToken reads the token from the Authorization header, falling back
// to the access_token query parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get(tokenQueryParam)
}
