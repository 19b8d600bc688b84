package chat

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DecodeErrorText replaces a reply nothing could be assembled from.
const DecodeErrorText = "Erro ao processar resposta do servidor."

const sseMarker = "data:"

// Reply is a decoded assistant answer.
type Reply struct {
	Text          string
	AssistantType string
}

// Decode turns a /chat/message body into a reply. It accepts a JSON object
// with a response field (top level or under data), a JSON string, an event
// stream of data: lines carrying {"chunk": ...}, or plain text. It never
// fails; an empty result becomes DecodeErrorText.
func Decode(raw []byte) Reply {
	r := decode(bytes.TrimSpace(raw), 0)
	if strings.TrimSpace(r.Text) == "" {
		r.Text = DecodeErrorText
	}
	return r
}

type replyObject struct {
	Response      *string         `json:"response"`
	AssistantType string          `json:"assistantType"`
	Data          json.RawMessage `json:"data"`
}

// decode recurses at most twice: an envelope around an object or a string.
func decode(raw []byte, depth int) Reply {
	if len(raw) == 0 || depth > 2 {
		return Reply{}
	}

	switch raw[0] {
	case '{':
		var obj replyObject
		if err := json.Unmarshal(raw, &obj); err == nil {
			if obj.Response != nil {
				return Reply{Text: *obj.Response, AssistantType: obj.AssistantType}
			}
			r := decode(bytes.TrimSpace(obj.Data), depth+1)
			if r.AssistantType == "" {
				r.AssistantType = obj.AssistantType
			}
			return r
		}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if r := decode(bytes.TrimSpace([]byte(s)), depth+1); r.Text != "" {
				return r
			}
			if !strings.Contains(s, sseMarker) {
				return Reply{Text: s}
			}
			return Reply{}
		}
	}

	text := string(raw)
	if strings.Contains(text, sseMarker) {
		return Reply{Text: ParseEventStream(text)}
	}
	if depth == 0 {
		return Reply{Text: text}
	}
	return Reply{}
}

// ParseEventStream concatenates the chunk fields of every data: line in
// input order. Lines that are not JSON, such as keep-alives or [DONE], are
// skipped.
func ParseEventStream(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, sseMarker) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, sseMarker))
		if payload == "" {
			continue
		}
		var event struct {
			Chunk string `json:"chunk"`
		}
		if json.Unmarshal([]byte(payload), &event) != nil {
			continue
		}
		b.WriteString(event.Chunk)
	}
	return b.String()
}
