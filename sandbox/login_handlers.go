package sandbox

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/internal/config"
	"github.com/jrsteele09/energia-client/sandbox/loginsession"
	"github.com/jrsteele09/energia-client/users"
)

const maxFormMemory = 1 << 20

var errUnsupportedEncoding = errors.New("unsupported login encoding")

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	Error string
	Email string // Preserve email on error
}

type loginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, s.indexTmpl, http.StatusOK, struct{ AppName string }{AppName: "EnergIA"})
	}
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, s.loginTmpl, http.StatusOK, LoginPageData{Email: r.URL.Query().Get("email")})
	}
}

// LoginSubmissionHandler behaves like the legacy backend: a failed login
// re-renders the form with 200, a successful one sets the session cookie and
// redirects to the dashboard. JSON submissions get a JSON session back.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, encoding, err := readLoginForm(r)
		if err == nil && !s.encodings[encoding] {
			err = errUnsupportedEncoding
		}
		if err != nil {
			log.Debug().Err(err).Str("encoding", encoding).Msg("LoginSubmission: unreadable body")
			render(w, s.loginTmpl, http.StatusOK, LoginPageData{Error: "Preencha e-mail e senha."})
			return
		}

		account, err := s.accounts.GetByEmail(form.Email)
		if err != nil || !account.CheckPassword(form.Password) {
			render(w, s.loginTmpl, http.StatusOK, LoginPageData{Error: "E-mail ou senha inválidos.", Email: form.Email})
			return
		}

		if err := s.startSession(w, r, &account.User); err != nil {
			log.Err(err).Msg("LoginSubmission: failed to start session")
			http.Error(w, "Failed to start session", http.StatusInternalServerError)
			return
		}

		if encoding == config.EncodingJSON {
			s.writeSession(w, http.StatusOK, &account.User)
			return
		}
		http.Redirect(w, r, RouteDashboard, http.StatusFound)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			if err := s.loginSessions.Delete(cookie.Value); err != nil {
				log.Err(err).Msg("Logout: Failed to delete login session")
			}
		}
		if userID, ok := s.bearerUser(r); ok {
			s.tokens.RevokeAll(userID)
		}
		s.setSessionCookie(w, r, "", -1)
		http.Redirect(w, r, RouteLogin, http.StatusFound)
	}
}

// readLoginForm decodes email and password from any of the three body
// encodings and reports which one was used.
func readLoginForm(r *http.Request) (loginForm, string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return loginForm{}, "", errors.Wrap(errUnsupportedEncoding, "missing content type")
	}

	var form loginForm
	var encoding string
	switch mediaType {
	case "application/json":
		encoding = config.EncodingJSON
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return loginForm{}, encoding, errors.Wrap(err, "decode json")
		}
	case "multipart/form-data":
		encoding = config.EncodingMultipart
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return loginForm{}, encoding, errors.Wrap(err, "parse multipart")
		}
		form = loginForm{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	case "application/x-www-form-urlencoded":
		encoding = config.EncodingForm
		if err := r.ParseForm(); err != nil {
			return loginForm{}, encoding, errors.Wrap(err, "parse form")
		}
		form = loginForm{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	default:
		return loginForm{}, "", errors.Wrapf(errUnsupportedEncoding, "content type %q", mediaType)
	}

	form.Email = strings.TrimSpace(form.Email)
	if form.Email == "" || form.Password == "" {
		return loginForm{}, encoding, errors.New("email and password are required")
	}
	return form, encoding, nil
}

// startSession stores a cookie session for u and sets the cookie.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u *users.User) error {
	sessionID := uuid.NewString()
	now := s.nowTime()
	if err := s.loginSessions.Upsert(sessionID, loginsession.Session{
		UserID:    u.ID,
		Email:     u.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}); err != nil {
		return err
	}
	s.setSessionCookie(w, r, sessionID, int(s.sessionTTL.Seconds()))
	return nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// writeSession answers with the user record and a fresh token pair in the
// {success, data: {user, tokens}} envelope.
func (s *Server) writeSession(w http.ResponseWriter, status int, u *users.User) {
	tokens, err := s.tokens.Issue(u)
	if err != nil {
		log.Err(err).Msg("Failed to issue tokens")
		writeJSONError(w, http.StatusInternalServerError, "Falha ao emitir tokens")
		return
	}
	writeJSON(w, status, envelope{Success: true, Data: map[string]any{"user": u, "tokens": tokens}})
}
