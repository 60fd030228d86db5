package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/synco-portal/users"
)

// StatusResponse is a snapshot of the client session
type StatusResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *users.User `json:"user,omitempty"`
	JustLoggedOut bool        `json:"justLoggedOut,omitempty"`
	HasRefresh    bool        `json:"hasRefreshToken"`

	// UI hints only, the backend decides what each call may do
	IsAdmin           bool `json:"isAdmin"`
	CanVerifyPayments bool `json:"canVerifyPayments"`

	LoginURL string `json:"loginUrl,omitempty"`
}

// LoginCallbackHandler is where the backend sends the browser back after an
// interactive login. A share parked before login resumes on the payment route.
func (s *Server) LoginCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authenticated, err := s.auth.HandleLoginCallback(r.Context(), r.URL.Query())
		if err != nil {
			s.logger.Warn().Err(err).Msg("login callback")
		}

		target := safeRedirect(r.URL.Query().Get("next"))
		if authenticated {
			if _, query, ok := s.intake.Restore(s.tabID(w, r)); ok {
				target = s.paymentRoute + "?" + query.Encode()
			}
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func (s *Server) LoginRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		selectAccount := r.URL.Query().Get("select_account") != ""
		http.Redirect(w, r, s.auth.LoginURL(selectAccount), http.StatusFound)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Logout(r.Context()); err != nil {
			// In-memory state is already cleared at this point
			s.logger.Error().Err(err).Msg("logout left persisted state behind")
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.auth.Store().Snapshot()
		resp := StatusResponse{
			Authenticated: snap.IsAuthenticated,
			User:          snap.User,
			JustLoggedOut: snap.JustLoggedOut,
			HasRefresh:    snap.RefreshToken != "",

			IsAdmin:           snap.User.IsAdmin(),
			CanVerifyPayments: snap.User.CanVerifyPayments(),
		}
		if !snap.IsAuthenticated {
			resp.LoginURL = s.auth.LoginURL(false)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// safeRedirect only allows same-site absolute paths
func safeRedirect(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}
