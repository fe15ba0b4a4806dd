package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"Newsletterwebserver/internal/domain"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

type countResponse struct {
	Count int `json:"count"`
}

func (a *api) handleAPISubscriberCount(w http.ResponseWriter, r *http.Request) {
	if a.subsSvc == nil {
		handleNotImplemented(w, r)
		return
	}
	n, err := a.subsSvc.Count(r.Context())
	if err != nil {
		a.logger.Error("count subscribers", "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "", countResponse{Count: n})
}

type subscribeRequest struct {
	Email string `json:"email"`
}

type subscribeResponse struct {
	Email             string `json:"email"`
	AlreadySubscribed bool   `json:"already_subscribed"`
	Count             int    `json:"count"`
}

func (a *api) handleAPISubscribe(w http.ResponseWriter, r *http.Request) {
	if a.subsSvc == nil {
		handleNotImplemented(w, r)
		return
	}
	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	res, err := a.subsSvc.Subscribe(r.Context(), req.Email)
	a.observeSubscribe(err, res.AlreadySubscribed)
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			a.logger.Error("subscribe", "err", err)
		}
		WriteDomainError(w, err)
		return
	}

	msg := "subscribed"
	if res.AlreadySubscribed {
		msg = "already subscribed"
	}
	WriteSuccess(w, http.StatusOK, msg, subscribeResponse{
		Email:             res.Email,
		AlreadySubscribed: res.AlreadySubscribed,
		Count:             res.Count,
	})
}

func (a *api) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	if a.statsSvc == nil {
		handleNotImplemented(w, r)
		return
	}
	st, err := a.statsSvc.Stats(r.Context())
	if err != nil {
		a.logger.Error("load stats", "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "", st)
}

type newsletterResponse struct {
	Edition string `json:"edition"`
	HTML    string `json:"html"`
	Missing bool   `json:"missing"`
}

func (a *api) handleAPINewsletter(w http.ResponseWriter, r *http.Request) {
	if a.library == nil {
		handleNotImplemented(w, r)
		return
	}
	ed, err := a.library.Load(r.Context())
	if err != nil {
		a.logger.Error("load newsletter", "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteSuccess(w, http.StatusOK, "", newsletterResponse{
		Edition: string(ed.Slot),
		HTML:    string(ed.Body),
		Missing: ed.Missing,
	})
}

func (a *api) handleAPIDispatchLogs(w http.ResponseWriter, r *http.Request) {
	if a.dispatchSvc == nil {
		handleNotImplemented(w, r)
		return
	}
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"limit": "must be an integer between 1 and 1000"}))
		return
	}
	logs, err := a.dispatchSvc.RecentLogs(r.Context(), limit)
	if err != nil {
		a.logger.Error("list dispatch logs", "err", err)
		WriteDomainError(w, err)
		return
	}
	if logs == nil {
		logs = []domain.DispatchLog{}
	}
	WriteSuccess(w, http.StatusOK, "", logs)
}

func (a *api) handleAPISubmissions(w http.ResponseWriter, r *http.Request) {
	if a.submitSvc == nil {
		handleNotImplemented(w, r)
		return
	}
	status := domain.SubmissionPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, ok := domain.ParseSubmissionStatus(raw)
		if !ok {
			WriteDomainError(w, domain.NewValidationError(map[string]string{"status": "must be pending, approved or rejected"}))
			return
		}
		status = s
	}
	subs, err := a.submitSvc.List(r.Context(), status)
	if err != nil {
		a.logger.Error("list submissions", "err", err)
		WriteDomainError(w, err)
		return
	}
	if subs == nil {
		subs = []domain.Submission{}
	}
	WriteSuccess(w, http.StatusOK, "", subs)
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultLogLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLogLimit {
		return 0, false
	}
	return n, true
}
