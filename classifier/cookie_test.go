package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/energia-client/classifier"
)

func TestExtractSessionCookie(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{"none", nil, ""},
		{"attributes dropped", []string{"connect.sid=s%3Aabc.def; Path=/; Expires=Wed, 21 Oct 2026 07:28:00 GMT; HttpOnly"}, "connect.sid=s%3Aabc.def"},
		{"among others", []string{"lang=pt; Path=/", "connect.sid=s%3Azzz; Path=/"}, "connect.sid=s%3Azzz"},
		{"combined header", []string{"lang=pt; Path=/, connect.sid=s%3Ayyy; HttpOnly"}, "connect.sid=s%3Ayyy"},
		{"no marker keeps raw", []string{"session=abc; Path=/", "lang=pt"}, "session=abc; Path=/, lang=pt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, classifier.ExtractSessionCookie(tt.input, "connect.sid"))
		})
	}
}
