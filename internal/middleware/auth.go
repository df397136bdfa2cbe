package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/petpals/internal/auth"
)

const (
	UserHeader   = "X-User-ID"
	DeviceHeader = "X-Device-ID"

	maxUserIDLen = 128
)

// RequireUser reads the opaque user id supplied by the identity provider in
// front of this service and populates AuthContext. Requests without a usable
// id get 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			unauthorized(w, "missing user id")
			return
		}
		if !validUserID(userID) {
			unauthorized(w, "invalid user id")
			return
		}

		ac := auth.AuthContext{
			UserID:   userID,
			DeviceID: strings.TrimSpace(r.Header.Get(DeviceHeader)),
		}
		ctx := auth.WithAuth(r.Context(), ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validUserID rejects ids that could escape the user's document keys.
func validUserID(id string) bool {
	if len(id) > maxUserIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == '@':
		default:
			return false
		}
	}
	return true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
