package httpapi

import (
	"errors"
	"net/http"

	"Newsletterwebserver/internal/domain"
)

const (
	genericErrorText    = "Une erreur est survenue, réessayez plus tard."
	statsErrorText      = "Erreur lors de l'affichage des stats"
	invalidEmailText    = "Adresse email invalide"
	maxSubscribeFormLen = 4 << 10
)

func (a *api) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if a.statsSvc != nil {
		if _, err := a.statsSvc.RecordView(r.Context()); err != nil {
			a.logger.Warn("record view", "err", err)
		}
	}

	var data homeData
	if a.subsSvc != nil {
		n, err := a.subsSvc.Count(r.Context())
		if err != nil {
			a.logger.Error("count subscribers", "err", err)
			writeText(w, http.StatusInternalServerError, genericErrorText)
			return
		}
		data.SubscriberCount = n
	}
	a.renderPublicPage(w, http.StatusOK, "home", "Les Plans Malin", data)
}

func (a *api) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if a.subsSvc == nil {
		writeText(w, http.StatusServiceUnavailable, genericErrorText)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSubscribeFormLen)
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, invalidEmailText)
		return
	}

	res, err := a.subsSvc.Subscribe(r.Context(), r.PostForm.Get("email"))
	if err != nil {
		a.observeSubscribe(err, res.AlreadySubscribed)
		if errors.Is(err, domain.ErrValidation) {
			writeText(w, http.StatusBadRequest, invalidEmailText)
			return
		}
		a.logger.Error("subscribe", "err", err)
		writeText(w, http.StatusInternalServerError, genericErrorText)
		return
	}
	a.observeSubscribe(nil, res.AlreadySubscribed)

	a.renderPublicPage(w, http.StatusOK, "subscribed", "Inscription", subscribedData{
		Email:             res.Email,
		AlreadySubscribed: res.AlreadySubscribed,
		SubscriberCount:   res.Count,
	})
}

func (a *api) observeSubscribe(err error, already bool) {
	if a.metrics == nil {
		return
	}
	result := "new"
	switch {
	case errors.Is(err, domain.ErrValidation):
		result = "invalid"
	case err != nil:
		result = "error"
	case already:
		result = "existing"
	}
	a.metrics.Subscriptions.WithLabelValues(result).Inc()
}

func (a *api) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	if a.library == nil {
		writeText(w, http.StatusServiceUnavailable, genericErrorText)
		return
	}
	ed, err := a.library.Load(r.Context())
	if err != nil {
		a.logger.Error("load newsletter", "err", err)
		writeText(w, http.StatusInternalServerError, genericErrorText)
		return
	}
	if a.metrics != nil {
		a.metrics.NewsletterViews.WithLabelValues(string(ed.Slot)).Inc()
	}
	a.renderPublicPage(w, http.StatusOK, "newsletter", "Newsletter", newsletterData{NewsletterContent: ed.Body})
}

func (a *api) handleNewsletterTest(w http.ResponseWriter, r *http.Request) {
	if a.library == nil {
		writeText(w, http.StatusServiceUnavailable, genericErrorText)
		return
	}
	ed, err := a.library.Draft(r.Context())
	if err != nil {
		a.logger.Error("load newsletter draft", "err", err)
		writeText(w, http.StatusInternalServerError, genericErrorText)
		return
	}
	a.renderPublicPage(w, http.StatusOK, "newsletter", "Newsletter (aperçu)", newsletterData{Preview: true, NewsletterContent: ed.Body})
}

// handleStats keeps the historical behavior of answering 200 with a plain
// error line when storage fails.
func (a *api) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.statsSvc == nil {
		writeText(w, http.StatusOK, statsErrorText)
		return
	}
	st, err := a.statsSvc.Stats(r.Context())
	if err != nil {
		a.logger.Error("load stats", "err", err)
		writeText(w, http.StatusOK, statsErrorText)
		return
	}
	a.renderPublicPage(w, http.StatusOK, "stats", "Statistiques", statsData{SubscriberCount: st.Subscribers, Views: st.Views})
}

func (a *api) handleAbout(w http.ResponseWriter, _ *http.Request) {
	a.renderPublicPage(w, http.StatusOK, "apropos", "À propos", nil)
}
