package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/url"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/jrsteele09/energia-client/internal/config"
)

// Strategy is one way of submitting credentials to the login endpoint.
type Strategy struct {
	Name   string
	Encode func(Credentials) (body []byte, contentType string, err error)
}

var FormStrategy = Strategy{
	Name: config.EncodingForm,
	Encode: func(c Credentials) ([]byte, string, error) {
		values := url.Values{}
		values.Set("email", c.Email)
		values.Set("password", c.Password)
		return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
	},
}

var MultipartStrategy = Strategy{
	Name: config.EncodingMultipart,
	Encode: func(c Credentials) ([]byte, string, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField("email", c.Email); err != nil {
			return nil, "", err
		}
		if err := w.WriteField("password", c.Password); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), w.FormDataContentType(), nil
	},
}

var JSONStrategy = Strategy{
	Name: config.EncodingJSON,
	Encode: func(c Credentials) ([]byte, string, error) {
		body, err := json.Marshal(map[string]string{"email": c.Email, "password": c.Password})
		return body, "application/json", err
	},
}

var knownStrategies = map[string]Strategy{
	FormStrategy.Name:      FormStrategy,
	MultipartStrategy.Name: MultipartStrategy,
	JSONStrategy.Name:      JSONStrategy,
}

// DefaultStrategies is the cascade order used when nothing is configured.
func DefaultStrategies() []Strategy {
	return []Strategy{FormStrategy, MultipartStrategy, JSONStrategy}
}

// StrategiesFor resolves encoding names, keeping their order.
func StrategiesFor(names []string) ([]Strategy, error) {
	if len(names) == 0 {
		return DefaultStrategies(), nil
	}
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, ok := knownStrategies[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, pkgerrors.Errorf("[StrategiesFor] unknown login encoding %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}

// FirstSuccess runs try for each step in order, strictly one after another,
// and returns the first result without error. When no step succeeds it
// returns every error in step order and ok is false.
func FirstSuccess[S, T any](ctx context.Context, steps []S, try func(context.Context, S) (T, error)) (result T, errs []error, ok bool) {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, append(errs, err), false
		}
		v, err := try(ctx, step)
		if err == nil {
			return v, nil, true
		}
		errs = append(errs, err)
	}
	return result, errs, false
}
