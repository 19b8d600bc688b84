package classifier

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/jrsteele09/energia-client/users"
)

const maxNameLength = 80

type namePattern struct {
	name string
	re   *regexp.Regexp
}

// namePatterns are tried in order, most specific first. Each has exactly one
// capture group holding the name.
var namePatterns = []namePattern{
	{
		// Olá,<br><h3> Maria Silva!</h3>
		name: "structural",
		re:   regexp.MustCompile(`(?is)Olá\s*,\s*(?:<br\s*/?>\s*)*<h3[^>]*>\s*([^<]+?)\s*</h3>`),
	},
	{
		// greeting, a few inline or block tags, then a heading holding the name
		name: "heading",
		re:   regexp.MustCompile(`(?is)(?:Olá|Hello|Bem-vindo|Bem-vinda|Welcome)\s*,?\s*(?:</?(?:br|span|div|p|strong|b|em)\b[^>]{0,60}>\s*){0,3}<h[1-6][^>]*>\s*([^<]+?)\s*</h[1-6]>`),
	},
	{
		name: "greeting",
		re:   regexp.MustCompile(`(?i)(?:Olá|Hello|Bem-vindo|Bem-vinda|Welcome)\s*,\s*([^<,!\n]+)`),
	},
	{
		name: "script-name",
		re:   regexp.MustCompile(`(?i)\bname['"]?\s*:\s*['"]([^'"]+)['"]`),
	},
	{
		name: "script-user",
		re:   regexp.MustCompile(`(?i)"user"\s*:\s*"([^"]+)"`),
	},
	{
		// Olá Maria
		name: "bare",
		re:   regexp.MustCompile(`(?i:Olá|Hello|Bem-vindo|Bem-vinda|Welcome)\s+(\p{Lu}[\p{L}'-]*(?:\s+\p{Lu}[\p{L}'-]*){0,3})`),
	},
}

var loginPrompts = []string{"entrar", "login", "log in", "sign in", "faça login", "fazer login", "cadastre"}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	spaces       = regexp.MustCompile(`\s+`)
)

// genericDashboardFragments identify the Volts dashboard template when the
// page carries no data-group attribute.
var genericDashboardFragments = []string{"dashboard_gen", "Visualização Genérica"}

// extractName returns the first acceptable name and the pattern that found it.
func extractName(page string) (string, string) {
	for _, p := range namePatterns {
		for _, m := range p.re.FindAllStringSubmatch(page, -1) {
			if name, ok := cleanName(m[1]); ok {
				return name, p.name
			}
		}
	}
	return "", ""
}

func cleanName(raw string) (string, bool) {
	name := html.UnescapeString(raw)
	name = spaces.ReplaceAllString(name, " ")
	name = strings.Trim(name, " !.,;:\t")
	if name == "" || len(name) > maxNameLength || isTemplatePlaceholder(name) {
		return "", false
	}
	lower := strings.ToLower(name)
	for _, prompt := range loginPrompts {
		if strings.Contains(lower, prompt) {
			return "", false
		}
	}
	if lower == strings.ToLower(users.DefaultName) {
		return "", false
	}
	return name, true
}

func extractEmail(page string) string {
	return emailPattern.FindString(page)
}

func fallbackGroup(page string) users.Group {
	for _, fragment := range genericDashboardFragments {
		if strings.Contains(page, fragment) {
			return users.GroupVolts
		}
	}
	return users.GroupWatts
}
