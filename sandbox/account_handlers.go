package sandbox

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/users"
)

const minPasswordLength = 6

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Group           string `json:"group"`
}

// AddAccount creates an account directly, bypassing the HTTP API.
func (s *Server) AddAccount(name, email, password string, group users.Group) (*users.User, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &users.Account{
		User: users.User{
			ID:    uuid.NewString(),
			Name:  name,
			Email: strings.ToLower(strings.TrimSpace(email)),
			Group: group,
		},
		PasswordHash: hash,
	}
	if account.Group == "" {
		account.Group = users.GroupWatts
	}
	if err := s.accounts.Upsert(account); err != nil {
		return nil, err
	}
	u := account.User
	return &u, nil
}

// RevokeUser ends every cookie session of the user and invalidates their
// access tokens. Refresh tokens stay valid, so a client can recover.
func (s *Server) RevokeUser(userID string) error {
	s.tokens.RevokeAccess(userID)
	return s.loginSessions.DeleteForUser(userID)
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSONBody(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Requisição inválida")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)

		switch {
		case req.Name == "":
			writeJSONError(w, http.StatusBadRequest, "Nome é obrigatório")
			return
		case !strings.Contains(req.Email, "@"):
			writeJSONError(w, http.StatusBadRequest, "E-mail inválido")
			return
		case utf8.RuneCountInString(req.Password) < minPasswordLength:
			writeJSONError(w, http.StatusBadRequest, "A senha deve ter pelo menos 6 caracteres")
			return
		case req.ConfirmPassword != "" && req.ConfirmPassword != req.Password:
			writeJSONError(w, http.StatusBadRequest, "As senhas não coincidem")
			return
		}
		if _, err := s.accounts.GetByEmail(req.Email); err == nil {
			writeJSONError(w, http.StatusConflict, "E-mail já cadastrado")
			return
		}

		group, ok := users.ParseGroup(req.Group)
		if !ok {
			group = users.GroupWatts
		}
		u, err := s.AddAccount(req.Name, req.Email, req.Password, group)
		if err != nil {
			log.Err(err).Msg("Register: failed to create account")
			writeJSONError(w, http.StatusInternalServerError, "Falha ao criar conta")
			return
		}

		if s.registerRedirect {
			http.Redirect(w, r, RouteLogin, http.StatusFound)
			return
		}
		if err := s.startSession(w, r, u); err != nil {
			log.Err(err).Msg("Register: failed to start session")
			writeJSONError(w, http.StatusInternalServerError, "Falha ao iniciar sessão")
			return
		}
		s.writeSession(w, http.StatusCreated, u)
	}
}

// RefreshHandler rotates a refresh token into a new token pair.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeJSONBody(w, r, &req); err != nil || req.RefreshToken == "" {
			writeJSONError(w, http.StatusBadRequest, "Refresh token é obrigatório")
			return
		}

		userID, err := s.tokens.Rotate(req.RefreshToken)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Refresh token inválido")
			return
		}
		account, err := s.accounts.GetByID(userID)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Usuário não encontrado")
			return
		}
		tokens, err := s.tokens.Issue(&account.User)
		if err != nil {
			log.Err(err).Msg("Refresh: failed to issue tokens")
			writeJSONError(w, http.StatusInternalServerError, "Falha ao emitir tokens")
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"tokens": tokens}})
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := s.currentAccount(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Não autenticado")
			return
		}

		var req struct {
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if err := decodeJSONBody(w, r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Requisição inválida")
			return
		}
		if !account.CheckPassword(req.CurrentPassword) {
			writeJSONError(w, http.StatusBadRequest, "Senha atual incorreta")
			return
		}
		if utf8.RuneCountInString(req.NewPassword) < minPasswordLength {
			writeJSONError(w, http.StatusBadRequest, "A senha deve ter pelo menos 6 caracteres")
			return
		}

		hash, err := users.HashPassword(req.NewPassword)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "Falha ao alterar senha")
			return
		}
		if err := s.accounts.SetPassword(account.Email, hash); err != nil {
			log.Err(err).Msg("ChangePassword: failed to store password")
			writeJSONError(w, http.StatusInternalServerError, "Falha ao alterar senha")
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Senha alterada"})
	}
}

// ForgotPasswordHandler always answers success so that it does not reveal
// which emails have accounts. Requests for known accounts are recorded.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := decodeJSONBody(w, r, &req); err != nil || !strings.Contains(req.Email, "@") {
			writeJSONError(w, http.StatusBadRequest, "E-mail inválido")
			return
		}
		if account, err := s.accounts.GetByEmail(req.Email); err == nil {
			s.stateLock.Lock()
			s.resetRequests = append(s.resetRequests, account.Email)
			s.stateLock.Unlock()
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Se o e-mail existir, enviaremos um link de redefinição"})
	}
}

// PasswordResetRequests lists the emails a reset link was requested for.
func (s *Server) PasswordResetRequests() []string {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	return append([]string(nil), s.resetRequests...)
}
