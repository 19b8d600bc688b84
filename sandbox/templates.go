package sandbox

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

//go:embed templates/*
var templateFiles embed.FS

func templateFS() (fs.FS, error) {
	return fs.Sub(templateFiles, "templates")
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	sub, err := templateFS()
	if err != nil {
		return nil, err
	}
	return template.ParseFS(sub, name)
}

func (s *Server) parseTemplates() error {
	for name, dst := range map[string]**template.Template{
		"index.html":         &s.indexTmpl,
		"login.html":         &s.loginTmpl,
		"dashboard.html":     &s.dashboardTmpl,
		"dashboard_gen.html": &s.genericTmpl,
	} {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return err
		}
		*dst = tmpl
	}
	return nil
}

func render(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
	}
}
