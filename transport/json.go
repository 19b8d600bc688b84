package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/jrsteele09/energia-client/internal/errors"
)

const jsonContentType = "application/json"

// GetJSON fetches path and decodes a JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Accept: jsonContentType})
	if err != nil {
		return err
	}
	return DecodeJSON("[Client.GetJSON]", resp, out)
}

// PostJSON sends in as JSON and decodes the JSON reply into out. A nil out
// discards the body.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return pkgerrors.Wrap(err, "[Client.PostJSON] marshal")
	}
	resp, err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: jsonContentType,
		Accept:      jsonContentType,
	})
	if err != nil {
		return err
	}
	return DecodeJSON("[Client.PostJSON]", resp, out)
}

// CheckStatus maps non-success statuses to error kinds.
func CheckStatus(op string, resp *Response) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.IsRedirect():
		if strings.Contains(strings.ToLower(resp.Location), "login") {
			return errors.New(errors.ErrNotAuthenticated, op, "")
		}
		return errors.E(errors.ErrServer, op, pkgerrors.Errorf("unexpected redirect to %q", resp.Location))
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.New(errors.ErrSessionExpired, op, "")
	case resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.ErrNotAuthenticated, op, "")
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return &errors.Error{Kind: errors.ErrValidation, Op: op, Message: ServerMessage(resp.Body)}
	}
	return errors.E(errors.ErrServer, op, pkgerrors.Errorf("status %d", resp.StatusCode))
}

// DecodeJSON checks the status and decodes the body into out.
func DecodeJSON(op string, resp *Response, out any) error {
	if err := CheckStatus(op, resp); err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.E(errors.ErrServer, op, pkgerrors.Wrap(err, "decode response"))
	}
	return nil
}

// ServerMessage pulls a message or error string out of a JSON error body.
func ServerMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
