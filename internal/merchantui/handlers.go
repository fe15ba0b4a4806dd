package merchantui

import (
	"errors"
	"net/http"
	"strings"

	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/ratelimit"
	"Newsletterwebserver/internal/service"
)

const (
	pageTitle      = "Espace commerçant"
	unavailableMsg = "L'espace commerçant est indisponible pour le moment."
	maxFormBytes   = 16 << 10
)

func (a *app) popFlash(w http.ResponseWriter, r *http.Request) *flash {
	kind, msg, ok := auth.PopFlash(w, r, a.cookieCodec, a.cookieSecure)
	if !ok {
		return nil
	}
	return &flash{Kind: kind, Message: msg}
}

func (a *app) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	if a.authSvc == nil {
		a.templates.renderLogin(w, http.StatusServiceUnavailable, loginViewData{Title: pageTitle, Error: unavailableMsg})
		return
	}
	if _, _, ok := a.currentUser(r); ok {
		http.Redirect(w, r, "/commercant/", http.StatusFound)
		return
	}
	a.templates.renderLogin(w, http.StatusOK, loginViewData{Title: pageTitle, Flash: a.popFlash(w, r)})
}

func (a *app) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if a.authSvc == nil {
		a.templates.renderLogin(w, http.StatusServiceUnavailable, loginViewData{Title: pageTitle, Error: unavailableMsg})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		a.templates.renderLogin(w, http.StatusBadRequest, loginViewData{Title: pageTitle, Error: "Formulaire invalide"})
		return
	}

	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		a.templates.renderLogin(w, http.StatusBadRequest, loginViewData{Title: pageTitle, Email: email, Error: "Email et mot de passe requis"})
		return
	}

	_, sessID, err := a.authSvc.Login(r.Context(), service.LoginRequest{
		Email:     email,
		Password:  password,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			a.observeLogin(err)
			a.templates.renderLogin(w, http.StatusUnauthorized, loginViewData{Title: pageTitle, Email: email, Error: "Email ou mot de passe incorrect"})
		case errors.Is(err, domain.ErrLoginBlocked):
			a.observeLogin(err)
			a.templates.renderLogin(w, http.StatusTooManyRequests, loginViewData{Title: pageTitle, Email: email, Error: "Trop de tentatives. Réessayez dans quelques minutes."})
		case errors.Is(err, domain.ErrUserDisabled):
			a.templates.renderLogin(w, http.StatusForbidden, loginViewData{Title: pageTitle, Email: email, Error: "Ce compte est désactivé"})
		default:
			a.logger.Error("merchantui: login failed", "err", err)
			a.templates.renderLogin(w, http.StatusInternalServerError, loginViewData{Title: pageTitle, Email: email, Error: "La connexion a échoué"})
		}
		return
	}

	auth.SetSessionCookie(w, auth.MerchantCookieName, a.cookieCodec.EncodeSessionID(sessID), a.sessionTTL, a.cookieSecure)
	http.Redirect(w, r, "/commercant/", http.StatusFound)
}

func (a *app) handleRegisterGet(w http.ResponseWriter, r *http.Request) {
	if a.authSvc == nil {
		a.templates.renderRegister(w, http.StatusServiceUnavailable, registerViewData{Title: pageTitle, Error: unavailableMsg})
		return
	}
	if _, _, ok := a.currentUser(r); ok {
		http.Redirect(w, r, "/commercant/", http.StatusFound)
		return
	}
	a.templates.renderRegister(w, http.StatusOK, registerViewData{Title: pageTitle})
}

func (a *app) handleRegisterPost(w http.ResponseWriter, r *http.Request) {
	if a.authSvc == nil {
		a.templates.renderRegister(w, http.StatusServiceUnavailable, registerViewData{Title: pageTitle, Error: unavailableMsg})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		a.templates.renderRegister(w, http.StatusBadRequest, registerViewData{Title: pageTitle, Error: "Formulaire invalide"})
		return
	}

	view := registerViewData{
		Title:       pageTitle,
		Email:       strings.TrimSpace(r.PostForm.Get("email")),
		CompanyName: strings.TrimSpace(r.PostForm.Get("company_name")),
	}
	_, sessID, err := a.authSvc.Register(r.Context(), service.RegisterRequest{
		Email:       view.Email,
		CompanyName: view.CompanyName,
		Password:    r.PostForm.Get("password"),
		IP:          ratelimit.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			view.Error = "Merci de corriger les champs indiqués."
			view.Fields = domain.FieldErrors(err)
			a.templates.renderRegister(w, http.StatusBadRequest, view)
		case errors.Is(err, domain.ErrEmailTaken):
			view.Error = "Un compte existe déjà avec cette adresse."
			a.templates.renderRegister(w, http.StatusConflict, view)
		default:
			a.logger.Error("merchantui: register failed", "err", err)
			view.Error = "L'inscription a échoué."
			a.templates.renderRegister(w, http.StatusInternalServerError, view)
		}
		return
	}

	auth.SetSessionCookie(w, auth.MerchantCookieName, a.cookieCodec.EncodeSessionID(sessID), a.sessionTTL, a.cookieSecure)
	auth.SetFlash(w, a.cookieCodec, "notice", "Bienvenue ! Vous pouvez proposer vos offres.", a.cookieSecure)
	http.Redirect(w, r, "/commercant/", http.StatusFound)
}

func (a *app) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	if _, sessID, ok := a.currentUser(r); ok && sessID != "" {
		_ = a.authSvc.Logout(r.Context(), sessID)
	}
	auth.ClearSessionCookie(w, auth.MerchantCookieName, a.cookieSecure)
	http.Redirect(w, r, "/commercant/login", http.StatusFound)
}

func (a *app) handleHome(w http.ResponseWriter, r *http.Request, u domain.User) {
	view := homeViewData{Title: pageTitle, User: u, Flash: a.popFlash(w, r)}
	a.renderHome(w, r, http.StatusOK, view)
}

func (a *app) handleSubmissionPost(w http.ResponseWriter, r *http.Request, u domain.User) {
	view := homeViewData{Title: pageTitle, User: u}
	if a.submitSvc == nil {
		view.Error = unavailableMsg
		a.renderHome(w, r, http.StatusServiceUnavailable, view)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		view.Error = "Formulaire invalide"
		a.renderHome(w, r, http.StatusBadRequest, view)
		return
	}

	view.Form = domain.NewSubmission{
		Category:    r.PostForm.Get("category"),
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
		LinkURL:     r.PostForm.Get("link_url"),
		ImageURL:    r.PostForm.Get("image_url"),
	}
	sub, err := a.submitSvc.Submit(r.Context(), u, view.Form)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			view.Error = "Merci de corriger les champs indiqués."
			view.Fields = domain.FieldErrors(err)
			a.renderHome(w, r, http.StatusBadRequest, view)
			return
		}
		a.logger.Error("merchantui: submit failed", "user_id", u.ID, "err", err)
		view.Error = "L'envoi de l'offre a échoué."
		a.renderHome(w, r, http.StatusInternalServerError, view)
		return
	}

	a.logger.Info("submission received", "submission_id", sub.ID, "user_id", u.ID)
	auth.SetFlash(w, a.cookieCodec, "notice", "Offre envoyée ! Elle sera publiée après validation.", a.cookieSecure)
	http.Redirect(w, r, "/commercant/", http.StatusSeeOther)
}

func (a *app) renderHome(w http.ResponseWriter, r *http.Request, status int, view homeViewData) {
	if a.submitSvc != nil {
		subs, err := a.submitSvc.ListByUser(r.Context(), view.User.ID)
		if err != nil {
			a.logger.Error("merchantui: list submissions failed", "user_id", view.User.ID, "err", err)
			if view.Error == "" {
				view.Error = "Impossible de charger vos offres."
			}
		}
		view.Submissions = toRows(subs)
	}
	a.templates.renderHome(w, status, view)
}

func (a *app) observeLogin(err error) {
	if a.metrics == nil {
		return
	}
	if errors.Is(err, domain.ErrLoginBlocked) {
		a.metrics.BlockedLogins.WithLabelValues("merchant").Inc()
		return
	}
	a.metrics.FailedLogins.WithLabelValues("merchant").Inc()
}
