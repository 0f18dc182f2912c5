// This code is in Public Domain. Take all the code you want, I'll just write more.
package web

import (
	"bytes"
	"html/template"
	"net/http"
	"path/filepath"
)

var (
	tmplMain      = "main.html"
	tmplBoard     = "board.html"
	tmplThread    = "thread.html"
	tmplProfile   = "profile.html"
	tmplLogin     = "login.html"
	tmplSignup    = "signup.html"
	tmplNewThread = "newthread.html"
	tmplLogs      = "logs.html"
	templateNames = [...]string{tmplMain, tmplBoard, tmplThread, tmplProfile,
		tmplLogin, tmplSignup, tmplNewThread, tmplLogs, "footer.html", "analytics.html"}
)

type templateCache struct {
	paths  []string
	cached *template.Template
	// reload on every request during development
	reload bool
}

func newTemplateCache(dir string, reload bool) *templateCache {
	c := &templateCache{reload: reload}
	for _, name := range templateNames {
		c.paths = append(c.paths, filepath.Join(dir, name))
	}
	return c
}

// post bodies are already HTML; markdown conversion dropped anything raw
var templateFuncs = template.FuncMap{
	"rawHTML": func(s string) template.HTML { return template.HTML(s) },
}

func (c *templateCache) get() *template.Template {
	if c.reload || c.cached == nil {
		c.cached = template.Must(template.New(templateNames[0]).Funcs(templateFuncs).ParseFiles(c.paths...))
	}
	return c.cached
}

// execTemplate renders into a buffer first so a template error can still
// become a 500 instead of a half-written page.
func (s *Server) execTemplate(w http.ResponseWriter, templateName string, model interface{}) bool {
	var buf bytes.Buffer
	if err := s.templates.get().ExecuteTemplate(&buf, templateName, model); err != nil {
		s.log.Errorf("Failed to execute template %q, error: %s", templateName, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	// at this point we ignore error
	w.Write(buf.Bytes())
	return true
}
