package sandbox

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/users"
)

var errNoSession = errors.New("no session")

type DashboardPageData struct {
	User     *users.User
	DailyTip string
}

// DashboardHandler renders the protected page. Without a session it
// redirects to the login page, or answers 401 to JSON clients.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := s.currentAccount(r)
		if err != nil {
			if wantsJSON(r) {
				writeJSONError(w, http.StatusUnauthorized, "Não autenticado")
				return
			}
			http.Redirect(w, r, RouteLogin, http.StatusFound)
			return
		}

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"user": account.User}})
			return
		}

		data := DashboardPageData{User: &account.User, DailyTip: dailyTip}
		tmpl := s.dashboardTmpl
		if s.dashboard == DashboardGeneric {
			tmpl = s.genericTmpl
		}
		render(w, tmpl, http.StatusOK, data)
	}
}

// currentAccount resolves the caller from a bearer token first, then from
// the session cookie.
func (s *Server) currentAccount(r *http.Request) (*users.Account, error) {
	if userID, ok := s.bearerUser(r); ok {
		return s.accounts.GetByID(userID)
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, errNoSession
	}
	session, err := s.loginSessions.Get(cookie.Value)
	if err != nil {
		return nil, errNoSession
	}
	if session.Expired(s.nowTime()) {
		if err := s.loginSessions.Delete(cookie.Value); err != nil {
			log.Err(err).Msg("Failed to delete expired session")
		}
		return nil, errNoSession
	}
	return s.accounts.GetByID(session.UserID)
}

func (s *Server) bearerUser(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	userID, err := s.tokens.Verify(token)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected bearer token")
		return "", false
	}
	return userID, true
}
