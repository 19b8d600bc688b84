// Package chat talks to the EnergIA assistant endpoints and keeps the local
// conversation log.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/energia-client/internal/errors"
	"github.com/jrsteele09/energia-client/transport"
)

// DefaultAssistantType names the assistant when the backend does not.
const DefaultAssistantType = "EnergIA"

const (
	historyPath     = "/chat"
	messagePath     = "/chat/message"
	healthPath      = "/chat/health"
	icebreakersPath = "/chat/daily/icebreakers"

	messageAccept = "application/json, text/event-stream"
)

// Transport is the part of transport.Client the service needs.
type Transport interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
	GetJSON(ctx context.Context, path string, out any) error
}

type Service struct {
	client       Transport
	conversation *Conversation
	nowTime      func() time.Time
}

type Option func(*Service)

func WithConversation(c *Conversation) Option {
	return func(s *Service) {
		s.conversation = c
	}
}

func WithNowTime(nowTime func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowTime
	}
}

func NewService(client Transport, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, pkgerrors.New("[NewService] transport is required")
	}
	s := &Service{
		client:       client,
		conversation: NewConversation(),
		nowTime:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Conversation() *Conversation {
	return s.conversation
}

// Send records text as a user message, posts it and records the decoded
// answer. The user message stays in the log when the request fails.
func (s *Service) Send(ctx context.Context, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New(errors.ErrValidation, "[Service.Send]", "Message is required")
	}
	s.conversation.Append(Message{Role: RoleUser, Content: text, Timestamp: s.nowTime()})

	body, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Send] marshal")
	}
	resp, err := s.client.Do(ctx, transport.Request{
		Method:      http.MethodPost,
		Path:        messagePath,
		Body:        body,
		ContentType: "application/json",
		Accept:      messageAccept,
	})
	if err != nil {
		return nil, err
	}
	if err := transport.CheckStatus("[Service.Send]", resp); err != nil {
		return nil, err
	}
	if err := rejected(resp.Body); err != nil {
		return nil, err
	}

	reply := Decode(resp.Body)
	if reply.AssistantType == "" {
		reply.AssistantType = DefaultAssistantType
	}
	log.Debug().Int("length", len(reply.Text)).Str("contentType", resp.ContentType()).Msg("[Service.Send] reply decoded")

	m := s.conversation.Append(Message{
		Role:          RoleAssistant,
		Content:       reply.Text,
		Timestamp:     s.nowTime(),
		AssistantType: reply.AssistantType,
	})
	return &m, nil
}

// rejected reports a 2xx envelope with success false and no answer.
func rejected(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var env struct {
		Success  *bool           `json:"success"`
		Message  string          `json:"message"`
		Response *string         `json:"response"`
		Data     json.RawMessage `json:"data"`
	}
	if json.Unmarshal(trimmed, &env) != nil {
		return nil
	}
	if env.Success != nil && !*env.Success && env.Response == nil && len(env.Data) == 0 {
		msg := env.Message
		if msg == "" {
			msg = "Failed to send message"
		}
		return errors.New(errors.ErrServer, "[Service.Send]", msg)
	}
	return nil
}

// Icebreakers fetches the daily starters. Any failure or an empty list
// yields FallbackIcebreakers; no error is ever returned to the caller.
func (s *Service) Icebreakers(ctx context.Context) Icebreakers {
	var payload struct {
		Success *bool        `json:"success"`
		Data    *Icebreakers `json:"data"`
		Icebreakers
	}
	if err := s.client.GetJSON(ctx, icebreakersPath, &payload); err != nil {
		log.Warn().Err(err).Msg("[Service.Icebreakers] using local fallback")
		return FallbackIcebreakers()
	}

	got := payload.Icebreakers
	if payload.Data != nil {
		got = *payload.Data
	}
	if (payload.Success != nil && !*payload.Success) || len(got.Items) == 0 {
		log.Warn().Msg("[Service.Icebreakers] empty response, using local fallback")
		return FallbackIcebreakers()
	}
	got.Fallback = false
	return got
}

type historyEntry struct {
	ID            string `json:"id"`
	Role          Role   `json:"role"`
	Content       string `json:"content"`
	Text          string `json:"text"`
	IsUser        bool   `json:"isUser"`
	Timestamp     string `json:"timestamp"`
	AssistantType string `json:"assistantType"`
}

func (e historyEntry) message() Message {
	m := Message{ID: e.ID, Role: e.Role, Content: e.Content, AssistantType: e.AssistantType}
	if m.Content == "" {
		m.Content = e.Text
	}
	if m.Role == "" {
		m.Role = RoleAssistant
		if e.IsUser {
			m.Role = RoleUser
		}
	}
	if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
		m.Timestamp = ts
	}
	return m
}

// History returns the messages stored by the backend. Both a bare array and
// the {success, data} envelope are accepted.
func (s *Service) History(ctx context.Context) ([]Message, error) {
	resp, err := s.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: historyPath, Accept: "application/json"})
	if err != nil {
		return nil, err
	}
	if err := transport.CheckStatus("[Service.History]", resp); err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, errors.E(errors.ErrServer, "[Service.History]", pkgerrors.Wrap(err, "decode envelope"))
		}
		body = bytes.TrimSpace(env.Data)
	}
	if len(body) == 0 || string(body) == "null" {
		return []Message{}, nil
	}

	var entries []historyEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.E(errors.ErrServer, "[Service.History]", pkgerrors.Wrap(err, "decode history"))
	}
	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.message())
	}
	return out, nil
}

// Health reports whether the chat backend answers. Errors count as down.
func (s *Service) Health(ctx context.Context) bool {
	var payload struct {
		Success *bool `json:"success"`
	}
	if err := s.client.GetJSON(ctx, healthPath, &payload); err != nil {
		log.Debug().Err(err).Msg("[Service.Health] chat unavailable")
		return false
	}
	return payload.Success == nil || *payload.Success
}
