package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
)

type contextKey string

const CapabilityKey contextKey = "capability"

// CapabilityMiddleware parses the admin token (Authorization bearer or the
// access_token cookie) into a domain.Capability. Claims are checked here,
// issued elsewhere: the identity collaborator signs these tokens.
func CapabilityMiddleware(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			cap, err := capabilityFromToken(tokenStr, jwtSecret)
			if err != nil {
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CapabilityKey, cap)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalCapabilityMiddleware attaches a capability when a valid token is
// present but lets anonymous requests through; the public_results flag does
// the gating downstream.
func OptionalCapabilityMiddleware(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr := bearerToken(r); tokenStr != "" {
				if cap, err := capabilityFromToken(tokenStr, jwtSecret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), CapabilityKey, cap))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func capabilityFromToken(tokenStr string, secret []byte) (domain.Capability, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Capability{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Capability{}, errors.New("invalid claims")
	}

	sub, _ := claims["sub"].(string)
	actorID, err := uuid.Parse(sub)
	if err != nil {
		return domain.Capability{}, errors.New("invalid subject")
	}

	cap := domain.Capability{ActorID: actorID}
	cap.ChapterID, _ = claims["chapter_id"].(string)
	cap.ManageElections, _ = claims["manage_elections"].(bool)
	cap.ApproveElections, _ = claims["approve_elections"].(bool)
	return cap, nil
}

func capabilityFromContext(r *http.Request) (domain.Capability, bool) {
	cap, ok := r.Context().Value(CapabilityKey).(domain.Capability)
	return cap, ok
}
