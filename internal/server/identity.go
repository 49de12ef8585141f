package server

import (
	"context"
	"net/http"

	"tailscale.com/client/tailscale/apitype"
)

type contextKey int

const userInfoKey contextKey = iota

// DevUserHeader selects the user when Tailscale is off.
const DevUserHeader = "X-User-ID"

// UserInfo identifies the caller. Login doubles as the user ID for sessions
// and stored results.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

var devUser = UserInfo{Login: "local", DisplayName: "Local Dev User"}

// WhoIsClient resolves a tailnet peer. *local.Client satisfies it.
type WhoIsClient interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// TailscaleIdentity resolves the caller with WhoIs and rejects unknown peers.
func TailscaleIdentity(c WhoIsClient) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := c.WhoIs(r.Context(), r.RemoteAddr)
			if err != nil || who.UserProfile == nil || who.UserProfile.LoginName == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown tailnet peer"})
				return
			}
			info := UserInfo{Login: who.UserProfile.LoginName, DisplayName: who.UserProfile.DisplayName}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userInfoKey, info)))
		})
	}
}

// DevIdentity takes the user from the X-User-ID header, falling back to the
// local dev user.
func DevIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := devUser
		if id := r.Header.Get(DevUserHeader); id != "" {
			info = UserInfo{Login: id, DisplayName: id}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userInfoKey, info)))
	})
}

func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois != nil {
			TailscaleIdentity(s.whois)(next).ServeHTTP(w, r)
			return
		}
		dev.ServeHTTP(w, r)
	})
}

func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return devUser
}

func userIDFromContext(r *http.Request) string {
	return userInfoFromContext(r).Login
}
