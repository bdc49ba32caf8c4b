package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type userKeyType string

const UserIDKey userKeyType = "user_id"

// OptionalAuth reads a Bearer JWT signed with hmacSecret and, when it is
// valid, stores its subject in the request context. Requests without a token
// or with an invalid one pass through unchanged: ownership is advisory and
// the handlers fall back to the configured shared identity.
func OptionalAuth(hmacSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(hmacSecret) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid := subjectFromRequest(r, hmacSecret); uid != "" {
				r = r.WithContext(context.WithValue(r.Context(), UserIDKey, uid))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func subjectFromRequest(r *http.Request, hmacSecret []byte) string {
	ah := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		return ""
	}
	tokenStr := strings.TrimSpace(ah[len("Bearer "):])
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return hmacSecret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// GetUserID returns the authenticated subject, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
