package adminui

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/ratelimit"
	"Newsletterwebserver/internal/service"
)

const (
	loginTitle      = "Administration"
	maxFormBytes    = 16 << 10
	maxEditionBytes = 4 << 20
	dispatchLimit   = 200
)

func (a *app) popFlash(w http.ResponseWriter, r *http.Request) *flash {
	kind, msg, ok := auth.PopFlash(w, r, a.cookieCodec, a.cookieSecure)
	if !ok {
		return nil
	}
	return &flash{Kind: kind, Message: msg}
}

func (a *app) setFlash(w http.ResponseWriter, kind, msg string) {
	auth.SetFlash(w, a.cookieCodec, kind, msg, a.cookieSecure)
}

func (a *app) loginView(email string) loginViewData {
	v := loginViewData{
		Title:          loginTitle,
		Email:          email,
		GoogleClientID: a.googleClientID,
		AppleServiceID: a.appleServiceID,
	}
	if a.appleServiceID != "" && a.publicURL != "" {
		v.AppleRedirect = strings.TrimRight(a.publicURL, "/") + "/admin/login/apple"
	}
	return v
}

func (a *app) handleDashboard(w http.ResponseWriter, r *http.Request, u domain.User) {
	view := pageData{Title: "Tableau de bord", User: u, Flash: a.popFlash(w, r)}
	d, err := a.adminSvc.Dashboard(r.Context())
	if err != nil {
		a.logger.Error("adminui: dashboard failed", "err", err)
		view.Error = "Impossible de charger les chiffres."
	}
	view.Data = dashboardData{Counts: d}
	a.templates.renderPage(w, http.StatusOK, "dashboard", view)
}

func (a *app) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	if _, _, err := a.currentAdmin(r); err == nil {
		http.Redirect(w, r, "/admin/", http.StatusFound)
		return
	}
	view := a.loginView("")
	view.Flash = a.popFlash(w, r)
	a.templates.renderLogin(w, http.StatusOK, view)
}

func (a *app) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		view := a.loginView("")
		view.Error = "Formulaire invalide"
		a.templates.renderLogin(w, http.StatusBadRequest, view)
		return
	}

	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	view := a.loginView(email)
	if email == "" || password == "" {
		view.Error = "Email et mot de passe requis"
		a.templates.renderLogin(w, http.StatusBadRequest, view)
		return
	}

	_, sessID, err := a.authSvc.Login(r.Context(), service.LoginRequest{
		Email:     email,
		Password:  password,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		AdminOnly: true,
	})
	if err != nil {
		a.renderLoginError(w, view, err)
		return
	}

	auth.SetSessionCookie(w, auth.AdminCookieName, a.cookieCodec.EncodeSessionID(sessID), a.sessionTTL, a.cookieSecure)
	http.Redirect(w, r, "/admin/", http.StatusFound)
}

// handleIDTokenLogin accepts the form post made by the Google and Apple
// sign-in scripts. Google sends the token as "credential", Apple as "id_token".
func (a *app) handleIDTokenLogin(w http.ResponseWriter, r *http.Request) {
	provider := strings.ToLower(r.PathValue("provider"))
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		view := a.loginView("")
		view.Error = "Formulaire invalide"
		a.templates.renderLogin(w, http.StatusBadRequest, view)
		return
	}

	token := r.PostForm.Get("credential")
	if token == "" {
		token = r.PostForm.Get("id_token")
	}
	if token == "" {
		view := a.loginView("")
		view.Error = "Jeton d'identification manquant"
		a.templates.renderLogin(w, http.StatusBadRequest, view)
		return
	}

	_, sessID, err := a.authSvc.LoginWithIDToken(r.Context(), provider, token, ratelimit.ClientIP(r), r.UserAgent())
	if err != nil {
		a.renderLoginError(w, a.loginView(""), err)
		return
	}

	auth.SetSessionCookie(w, auth.AdminCookieName, a.cookieCodec.EncodeSessionID(sessID), a.sessionTTL, a.cookieSecure)
	http.Redirect(w, r, "/admin/", http.StatusFound)
}

func (a *app) renderLoginError(w http.ResponseWriter, view loginViewData, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		a.observeLogin(err)
		view.Error = "Identifiants incorrects"
		a.templates.renderLogin(w, http.StatusUnauthorized, view)
	case errors.Is(err, domain.ErrLoginBlocked):
		a.observeLogin(err)
		view.Error = "Trop de tentatives. Réessayez dans quelques minutes."
		a.templates.renderLogin(w, http.StatusTooManyRequests, view)
	case errors.Is(err, domain.ErrForbidden):
		view.Error = "Ce compte n'a pas accès à l'administration."
		a.templates.renderLogin(w, http.StatusForbidden, view)
	case errors.Is(err, domain.ErrUserDisabled):
		view.Error = "Ce compte est désactivé"
		a.templates.renderLogin(w, http.StatusForbidden, view)
	default:
		a.logger.Error("adminui: login failed", "err", err)
		view.Error = "La connexion a échoué"
		a.templates.renderLogin(w, http.StatusInternalServerError, view)
	}
}

func (a *app) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.AdminCookieName); err == nil {
		if sessID, ok := a.cookieCodec.DecodeSessionID(c.Value); ok {
			_ = a.authSvc.Logout(r.Context(), sessID)
		}
	}
	auth.ClearSessionCookie(w, auth.AdminCookieName, a.cookieSecure)
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}

func (a *app) handleSubscribersList(w http.ResponseWriter, r *http.Request, u domain.User) {
	view := pageData{Title: "Abonnés", User: u, Flash: a.popFlash(w, r)}
	if a.subsSvc == nil {
		view.Error = "Service indisponible"
		a.templates.renderPage(w, http.StatusServiceUnavailable, "subscribers", view)
		return
	}
	subs, err := a.subsSvc.List(r.Context())
	if err != nil {
		a.logger.Error("adminui: list subscribers failed", "err", err)
		view.Error = "Impossible de charger les abonnés."
	}
	view.Data = subscribersData{Subscribers: subs}
	a.templates.renderPage(w, http.StatusOK, "subscribers", view)
}

func (a *app) handleSubscribersCSV(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if a.subsSvc == nil {
		http.Error(w, "Service indisponible", http.StatusServiceUnavailable)
		return
	}
	var buf bytes.Buffer
	if err := a.subsSvc.ExportCSV(r.Context(), &buf); err != nil {
		a.logger.Error("adminui: export subscribers failed", "err", err)
		http.Error(w, "Export impossible", http.StatusInternalServerError)
		return
	}
	name := "abonnes-" + a.now().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = buf.WriteTo(w)
}

func (a *app) handleSubscriberDelete(w http.ResponseWriter, r *http.Request, u domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil || a.subsSvc == nil {
		a.setFlash(w, "error", "Requête invalide")
		http.Redirect(w, r, "/admin/subscribers", http.StatusSeeOther)
		return
	}
	email := r.PostForm.Get("email")
	err := a.subsSvc.Unsubscribe(r.Context(), email)
	switch {
	case err == nil:
		a.logger.Info("subscriber removed", "admin_id", u.ID)
		a.setFlash(w, "notice", "Abonné supprimé.")
	case errors.Is(err, domain.ErrNotFound):
		a.setFlash(w, "error", "Abonné introuvable.")
	default:
		a.logger.Error("adminui: delete subscriber failed", "err", err)
		a.setFlash(w, "error", "La suppression a échoué.")
	}
	http.Redirect(w, r, "/admin/subscribers", http.StatusSeeOther)
}

func (a *app) handleUsersList(w http.ResponseWriter, r *http.Request, u domain.User) {
	view := pageData{Title: "Comptes", User: u, Flash: a.popFlash(w, r)}
	users, err := a.adminSvc.ListUsers(r.Context())
	if err != nil {
		a.logger.Error("adminui: list users failed", "err", err)
		view.Error = "Impossible de charger les comptes."
	}

	rows := make([]userRow, 0, len(users))
	for _, usr := range users {
		row := userRow{
			ID:          usr.ID,
			Email:       usr.Email,
			CompanyName: usr.CompanyName,
			Type:        userType(usr, a.authSvc.IsAdmin),
			Status:      string(usr.Status),
			Disabled:    usr.Status == domain.UserStatusDisabled,
			Self:        usr.ID == u.ID,
			CreatedAt:   usr.CreatedAt.Format("02/01/2006"),
		}
		if usr.LastLoginAt != nil {
			row.LastLoginAt = usr.LastLoginAt.Format("02/01/2006 15:04")
		}
		rows = append(rows, row)
	}
	view.Data = usersData{Users: rows}
	a.templates.renderPage(w, http.StatusOK, "users", view)
}

func (a *app) handleUserStatus(w http.ResponseWriter, r *http.Request, u domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		a.setFlash(w, "error", "Requête invalide")
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return
	}
	status, ok := parseUserStatus(r.PostForm.Get("status"))
	if !ok {
		a.setFlash(w, "error", "Statut inconnu")
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return
	}

	userID := r.PathValue("id")
	err := a.adminSvc.SetUserStatus(r.Context(), u.ID, userID, status)
	switch {
	case err == nil:
		a.logger.Info("user status changed", "admin_id", u.ID, "user_id", userID, "status", status)
		a.setFlash(w, "notice", "Compte mis à jour.")
	case errors.Is(err, domain.ErrForbidden):
		a.setFlash(w, "error", "Vous ne pouvez pas désactiver votre propre compte.")
	case errors.Is(err, domain.ErrNotFound):
		a.setFlash(w, "error", "Compte introuvable.")
	default:
		a.logger.Error("adminui: set user status failed", "user_id", userID, "err", err)
		a.setFlash(w, "error", "La mise à jour a échoué.")
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (a *app) handleSubmissionsList(w http.ResponseWriter, r *http.Request, u domain.User) {
	status := statusFilter(r.URL.Query().Get("status"))
	view := pageData{Title: "Offres", User: u, Flash: a.popFlash(w, r)}
	if a.submitSvc == nil {
		view.Error = "Service indisponible"
		view.Data = submissionsData{Status: string(status)}
		a.templates.renderPage(w, http.StatusServiceUnavailable, "submissions", view)
		return
	}
	subs, err := a.submitSvc.List(r.Context(), status)
	if err != nil {
		a.logger.Error("adminui: list submissions failed", "status", status, "err", err)
		view.Error = "Impossible de charger les offres."
	}
	view.Data = submissionsData{Status: string(status), Submissions: subs}
	a.templates.renderPage(w, http.StatusOK, "submissions", view)
}

func (a *app) handleSubmissionReview(w http.ResponseWriter, r *http.Request, u domain.User) {
	back := "/admin/submissions"
	if a.submitSvc == nil {
		a.setFlash(w, "error", "Service indisponible")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	id := r.PathValue("id")
	var err error
	switch r.PathValue("action") {
	case "approve":
		_, err = a.submitSvc.Approve(r.Context(), id)
	case "reject":
		_, err = a.submitSvc.Reject(r.Context(), id)
	default:
		http.NotFound(w, r)
		return
	}

	switch {
	case err == nil:
		a.logger.Info("submission reviewed", "admin_id", u.ID, "submission_id", id, "action", r.PathValue("action"))
		a.setFlash(w, "notice", "Offre mise à jour.")
	case errors.Is(err, domain.ErrNotFound):
		a.setFlash(w, "error", "Offre introuvable.")
	case errors.Is(err, domain.ErrInvalidTransition):
		a.setFlash(w, "error", "Cette offre a déjà été traitée.")
	default:
		a.logger.Error("adminui: review submission failed", "submission_id", id, "err", err)
		a.setFlash(w, "error", "La mise à jour a échoué.")
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (a *app) handleDispatchLogs(w http.ResponseWriter, r *http.Request, u domain.User) {
	view := pageData{Title: "Envois", User: u, Flash: a.popFlash(w, r)}
	limit := dispatchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	var logs []domain.DispatchLog
	if a.dispatchSvc != nil {
		var err error
		logs, err = a.dispatchSvc.RecentLogs(r.Context(), limit)
		if err != nil {
			a.logger.Error("adminui: dispatch logs failed", "err", err)
			view.Error = "Impossible de charger l'historique des envois."
		}
	}
	view.Data = dispatchData{Logs: logs}
	a.templates.renderPage(w, http.StatusOK, "dispatch", view)
}

// handlePublish stages the next edition. An uploaded "edition" file wins;
// without one the digest of approved offers is published.
func (a *app) handlePublish(w http.ResponseWriter, r *http.Request, u domain.User) {
	if a.publisher == nil {
		a.setFlash(w, "error", "Publication indisponible")
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		return
	}

	body, err := a.editionBody(w, r)
	if err != nil {
		a.logger.Warn("adminui: publish rejected", "err", err)
		a.setFlash(w, "error", "Édition introuvable ou invalide.")
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		return
	}

	if err := a.publisher.PublishBytes(r.Context(), body, a.now()); err != nil {
		a.logger.Error("adminui: publish failed", "err", err)
		a.setFlash(w, "error", "La publication a échoué.")
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		return
	}

	a.logger.Info("edition published", "admin_id", u.ID, "bytes", len(body))
	a.setFlash(w, "notice", "Édition publiée. Elle sera visible après le délai de diffusion.")
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

func (a *app) editionBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEditionBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxEditionBytes); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile("edition")
		switch {
		case err == nil:
			defer f.Close()
			body, err := io.ReadAll(f)
			if err != nil {
				return nil, err
			}
			if len(bytes.TrimSpace(body)) == 0 {
				return nil, errors.New("empty edition")
			}
			return body, nil
		case !errors.Is(err, http.ErrMissingFile):
			return nil, err
		}
	}

	if a.dispatchSvc == nil {
		return nil, errors.New("no edition source")
	}
	html, err := a.dispatchSvc.RenderDigest(r.Context())
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

func (a *app) handleSendTest(w http.ResponseWriter, r *http.Request, u domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil || a.dispatchSvc == nil {
		a.setFlash(w, "error", "Envoi de test indisponible")
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
		return
	}

	to := strings.TrimSpace(r.PostForm.Get("to"))
	if to == "" {
		to = u.Email
	}
	html, err := a.dispatchSvc.RenderDigest(r.Context())
	if err == nil {
		err = a.dispatchSvc.SendTest(r.Context(), to, html)
	}
	switch {
	case err == nil:
		a.setFlash(w, "notice", "Email de test envoyé à "+to+".")
	case errors.Is(err, domain.ErrValidation):
		a.setFlash(w, "error", "Adresse email invalide")
	default:
		a.logger.Error("adminui: send test failed", "err", err)
		a.setFlash(w, "error", "L'envoi de test a échoué.")
	}
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

func (a *app) observeLogin(err error) {
	if a.metrics == nil {
		return
	}
	if errors.Is(err, domain.ErrLoginBlocked) {
		a.metrics.BlockedLogins.WithLabelValues("admin").Inc()
		return
	}
	a.metrics.FailedLogins.WithLabelValues("admin").Inc()
}
