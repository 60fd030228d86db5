package server

import (
	"net/http"

	"github.com/google/uuid"
)

// tabCookieName identifies a browser tab for parked shares
const tabCookieName = "synco_tab"

// tabCookieMaxAge covers a login round trip
const tabCookieMaxAge = 30 * 60

func (s *Server) SetTabCookie(w http.ResponseWriter, tabID string, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tabCookieName,
		Value:    tabID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   tabCookieMaxAge,
	})
}

// tabID returns the caller's tab id, issuing a new one when absent
func (s *Server) tabID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(tabCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.NewString()
	s.SetTabCookie(w, id, r)
	return id
}
