package sandbox

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/users"
)

const (
	assistantType = "EnergIA"
	dailyTip      = "Aproveite a luz natural durante o dia e mantenha as lâmpadas apagadas."
)

// Icebreakers served by the sandbox. They differ from the client's offline
// list so callers can tell the two apart.
var icebreakers = []icebreaker{
	{ID: "sb-1", Text: "Quanto gasta um chuveiro elétrico por mês?"},
	{ID: "sb-2", Text: "Vale a pena trocar a geladeira antiga?"},
	{ID: "sb-3", Text: "Como ler a minha conta de luz?"},
}

type icebreaker struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type chatEntry struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	IsUser        bool      `json:"isUser"`
	Timestamp     time.Time `json:"timestamp"`
	AssistantType string    `json:"assistantType,omitempty"`
}

func defaultChatReply(u *users.User, message string) string {
	return "Olá, " + u.Name + "! Você perguntou: " + message
}

// ChatMessageHandler answers either with a JSON envelope or, in SSE mode,
// with the reply split into data: chunks in a single body.
func (s *Server) ChatMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := s.currentAccount(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Não autenticado")
			return
		}

		var req struct {
			Message string `json:"message"`
		}
		if err := decodeJSONBody(w, r, &req); err != nil || strings.TrimSpace(req.Message) == "" {
			writeJSONError(w, http.StatusBadRequest, "Mensagem é obrigatória")
			return
		}

		reply := s.chatReply(&account.User, req.Message)
		s.appendHistory(account.ID,
			chatEntry{ID: uuid.NewString(), Text: req.Message, IsUser: true, Timestamp: s.nowTime()},
			chatEntry{ID: uuid.NewString(), Text: reply, Timestamp: s.nowTime(), AssistantType: assistantType},
		)

		if s.chatMode == ChatModeSSE {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte(sseBody(reply))); err != nil {
				log.Err(err).Msg("ChatMessage: failed to write stream")
			}
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{
			"response":      reply,
			"assistantType": assistantType,
		}})
	}
}

func sseBody(reply string) string {
	var b strings.Builder
	b.WriteString(": keep-alive\n\n")
	for _, chunk := range strings.SplitAfter(reply, " ") {
		if chunk == "" {
			continue
		}
		data, _ := json.Marshal(map[string]string{"chunk": chunk})
		b.WriteString("data: ")
		b.Write(data)
		b.WriteString("\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func (s *Server) appendHistory(userID string, entries ...chatEntry) {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	s.history[userID] = append(s.history[userID], entries...)
}

func (s *Server) ChatHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := s.currentAccount(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Não autenticado")
			return
		}
		s.stateLock.Lock()
		entries := append([]chatEntry{}, s.history[account.ID]...)
		s.stateLock.Unlock()
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: entries})
	}
}

func (s *Server) ChatHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"status": "ok"}})
	}
}

func (s *Server) IcebreakersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
			"icebreakers": icebreakers,
			"dailyTip":    dailyTip,
		}})
	}
}
