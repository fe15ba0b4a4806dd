package adminui

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/service"
)

type templates struct {
	pages  map[string]*template.Template
	login  *template.Template
	errorT *template.Template
}

type flash struct {
	Kind    string
	Message string
}

// pageData is passed to every page rendered inside the admin layout.
type pageData struct {
	Title string
	Nav   string
	User  domain.User
	Flash *flash
	Error string
	Data  any
}

type loginViewData struct {
	Title          string
	Email          string
	Flash          *flash
	Error          string
	GoogleClientID string
	AppleServiceID string
	AppleRedirect  string
}

type errorViewData struct {
	Title string
	Error string
}

type dashboardData struct {
	Counts service.Dashboard
}

type subscribersData struct {
	Subscribers []domain.Subscriber
}

type usersData struct {
	Users []userRow
}

type userRow struct {
	ID          string
	Email       string
	CompanyName string
	Type        string
	Status      string
	Disabled    bool
	Self        bool
	CreatedAt   string
	LastLoginAt string
}

type submissionsData struct {
	Status      string
	Submissions []domain.Submission
}

type dispatchData struct {
	Logs []domain.DispatchLog
}

var pageFiles = []string{"dashboard", "subscribers", "users", "submissions", "dispatch"}

func parseTemplates() (*templates, error) {
	funcs := template.FuncMap{
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("02/01/2006 15:04")
		},
	}
	parse := func(files ...string) (*template.Template, error) {
		return template.New("base").Funcs(funcs).ParseFS(assets, files...)
	}

	t := &templates{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, name := range pageFiles {
		pt, err := parse("templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		t.pages[name] = pt
	}

	var err error
	if t.login, err = parse("templates/login.html"); err != nil {
		return nil, fmt.Errorf("parse login: %w", err)
	}
	if t.errorT, err = parse("templates/error.html"); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return t, nil
}

func render(w http.ResponseWriter, t *template.Template, name string, status int, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *templates) renderPage(w http.ResponseWriter, status int, name string, data pageData) {
	pt, ok := t.pages[name]
	if !ok {
		t.renderError(w, http.StatusInternalServerError, "Erreur", "Page inconnue")
		return
	}
	data.Nav = name
	render(w, pt, name+".html", status, data)
}

func (t *templates) renderLogin(w http.ResponseWriter, status int, data loginViewData) {
	render(w, t.login, "login.html", status, data)
}

func (t *templates) renderError(w http.ResponseWriter, status int, title, msg string) {
	render(w, t.errorT, "error.html", status, errorViewData{Title: title, Error: msg})
}
