package classifier

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jrsteele09/energia-client/users"
)

// markers are the structural facts found by tokenizing a page.
type markers struct {
	hasPasswordInput bool
	hasEmailInput    bool
	hasLogout        bool
	hasDashboard     bool
	metadataID       string
	metadataGroup    users.Group
	title            string
}

func (m markers) loginForm() bool {
	return m.hasPasswordInput && m.hasEmailInput
}

// scanMarkers walks the token stream once. The tokenizer tolerates any
// input, so malformed pages just yield fewer markers.
func scanMarkers(page []byte) markers {
	var m markers
	z := html.NewTokenizer(bytes.NewReader(page))
	inTitle := false

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a read error; either way the scan is over.
			if strings.Contains(strings.ToLower(m.title), "dashboard") {
				m.hasDashboard = true
			}
			return m
		case html.TextToken:
			if inTitle {
				m.title += string(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Title {
				inTitle = false
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Title && tt == html.StartTagToken {
				inTitle = true
			}
			m.inspect(tok)
		}
	}
}

func (m *markers) inspect(tok html.Token) {
	var inputType, inputName, id, class, href, action string
	for _, a := range tok.Attr {
		val := strings.TrimSpace(a.Val)
		switch strings.ToLower(a.Key) {
		case "type":
			inputType = strings.ToLower(val)
		case "name":
			inputName = strings.ToLower(val)
		case "id":
			id = strings.ToLower(val)
		case "class":
			class = strings.ToLower(val)
		case "href":
			href = strings.ToLower(val)
		case "action":
			action = strings.ToLower(val)
		case "data-userid":
			if m.metadataID == "" && val != "" && !isTemplatePlaceholder(val) {
				m.metadataID = val
			}
		case "data-group":
			if g, ok := users.ParseGroup(val); ok && m.metadataGroup == "" {
				m.metadataGroup = g
			}
		}
	}

	if tok.DataAtom == atom.Input {
		switch {
		case inputType == "password":
			m.hasPasswordInput = true
		case inputType == "email", inputName == "email":
			m.hasEmailInput = true
		}
	}

	if strings.Contains(href, "logout") || strings.Contains(action, "logout") ||
		strings.Contains(id, "logout") || strings.Contains(class, "logout") {
		m.hasLogout = true
	}
	if strings.Contains(id, "dashboard") || strings.Contains(class, "dashboard") {
		m.hasDashboard = true
	}
}

// isTemplatePlaceholder catches unrendered server template tags.
func isTemplatePlaceholder(v string) bool {
	return strings.Contains(v, "<%") || strings.Contains(v, "{{")
}
