package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"mime"
	"mime/multipart"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/energia-client/auth"
)

var sample = auth.Credentials{Email: "maria@energia.com.br", Password: "p&ss=word"}

func TestStrategies_Encode(t *testing.T) {
	t.Run("form", func(t *testing.T) {
		body, contentType, err := auth.FormStrategy.Encode(sample)
		require.NoError(t, err)
		require.Equal(t, "application/x-www-form-urlencoded", contentType)
		values, err := url.ParseQuery(string(body))
		require.NoError(t, err)
		require.Equal(t, sample.Password, values.Get("password"))
	})

	t.Run("multipart", func(t *testing.T) {
		body, contentType, err := auth.MultipartStrategy.Encode(sample)
		require.NoError(t, err)
		mediaType, params, err := mime.ParseMediaType(contentType)
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		form, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).ReadForm(1 << 10)
		require.NoError(t, err)
		require.Equal(t, []string{sample.Email}, form.Value["email"])
		require.Equal(t, []string{sample.Password}, form.Value["password"])
	})

	t.Run("json", func(t *testing.T) {
		body, contentType, err := auth.JSONStrategy.Encode(sample)
		require.NoError(t, err)
		require.Equal(t, "application/json", contentType)
		var got map[string]string
		require.NoError(t, json.Unmarshal(body, &got))
		require.Equal(t, sample.Email, got["email"])
	})
}

func TestStrategiesFor(t *testing.T) {
	t.Run("keeps configured order", func(t *testing.T) {
		got, err := auth.StrategiesFor([]string{"JSON", " form "})
		require.NoError(t, err)
		require.Equal(t, []string{"json", "form"}, []string{got[0].Name, got[1].Name})
	})

	t.Run("default cascade", func(t *testing.T) {
		got, err := auth.StrategiesFor(nil)
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, "form", got[0].Name)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := auth.StrategiesFor([]string{"xml"})
		require.Error(t, err)
	})
}

func TestFirstSuccess(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("boom")

	t.Run("stops at the first success", func(t *testing.T) {
		var tried []int
		got, errs, ok := auth.FirstSuccess(ctx, []int{1, 2, 3}, func(_ context.Context, n int) (string, error) {
			tried = append(tried, n)
			if n < 2 {
				return "", boom
			}
			return "ok", nil
		})
		require.True(t, ok)
		require.Equal(t, "ok", got)
		require.Nil(t, errs)
		require.Equal(t, []int{1, 2}, tried)
	})

	t.Run("returns every error in order", func(t *testing.T) {
		_, errs, ok := auth.FirstSuccess(ctx, []string{"a", "b"}, func(_ context.Context, s string) (int, error) {
			return 0, stderrors.New(s)
		})
		require.False(t, ok)
		require.Len(t, errs, 2)
		require.EqualError(t, errs[0], "a")
		require.EqualError(t, errs[1], "b")
	})

	t.Run("empty", func(t *testing.T) {
		_, errs, ok := auth.FirstSuccess(ctx, nil, func(context.Context, int) (int, error) { return 1, nil })
		require.False(t, ok)
		require.Empty(t, errs)
	})
}
