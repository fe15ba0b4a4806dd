package merchantui

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"Newsletterwebserver/internal/domain"
)

type templates struct {
	login    *template.Template
	register *template.Template
	home     *template.Template
}

type flash struct {
	Kind    string
	Message string
}

type loginViewData struct {
	Title string
	Email string
	Error string
	Flash *flash
}

type registerViewData struct {
	Title       string
	Email       string
	CompanyName string
	Error       string
	Fields      map[string]string
}

type homeViewData struct {
	Title       string
	User        domain.User
	Submissions []submissionRow
	Form        domain.NewSubmission
	Fields      map[string]string
	Error       string
	Flash       *flash
}

type submissionRow struct {
	Title     string
	Category  string
	Status    string
	CreatedAt string
}

var statusLabels = map[domain.SubmissionStatus]string{
	domain.SubmissionPending:  "En attente",
	domain.SubmissionApproved: "Publiée",
	domain.SubmissionRejected: "Refusée",
}

func toRows(subs []domain.Submission) []submissionRow {
	rows := make([]submissionRow, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, submissionRow{
			Title:     s.Title,
			Category:  s.Category,
			Status:    statusLabels[s.Status],
			CreatedAt: s.CreatedAt.Local().Format(time.DateOnly),
		})
	}
	return rows
}

func parseTemplates() (*templates, error) {
	parse := func(files ...string) (*template.Template, error) {
		return template.New("base").ParseFS(assets, files...)
	}

	login, err := parse("templates/layout.html", "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("parse login: %w", err)
	}
	register, err := parse("templates/layout.html", "templates/register.html")
	if err != nil {
		return nil, fmt.Errorf("parse register: %w", err)
	}
	home, err := parse("templates/layout.html", "templates/home.html")
	if err != nil {
		return nil, fmt.Errorf("parse home: %w", err)
	}
	return &templates{login: login, register: register, home: home}, nil
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

func (t *templates) renderLogin(w http.ResponseWriter, status int, data loginViewData) {
	render(w, t.login, "login.html", status, data)
}

func (t *templates) renderRegister(w http.ResponseWriter, status int, data registerViewData) {
	render(w, t.register, "register.html", status, data)
}

func (t *templates) renderHome(w http.ResponseWriter, status int, data homeViewData) {
	render(w, t.home, "home.html", status, data)
}
