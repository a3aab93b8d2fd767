package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-xtrack/internal/ledger"
	"github.com/Dan9191/loan-xtrack/internal/middleware"
	"github.com/Dan9191/loan-xtrack/internal/models"
	"github.com/Dan9191/loan-xtrack/internal/recorder"
	"github.com/Dan9191/loan-xtrack/internal/service"
	"github.com/Dan9191/loan-xtrack/internal/snapshot"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// NewRouter registers the public and bearer-protected routes
func NewRouter(h *Handler, auth mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(auth)
	authRouter.HandleFunc("/actions/current", h.CurrentActions).Methods("GET")
	authRouter.HandleFunc("/actions/history", h.History).Methods("GET")
	authRouter.HandleFunc("/actions/{week}", h.RecordActions).Methods("POST")
	authRouter.HandleFunc("/loans", h.Loans).Methods("GET")
	authRouter.HandleFunc("/loans/summary", h.LoanSummary).Methods("GET")
	authRouter.HandleFunc("/reports/take-action", h.TakeActionReport).Methods("GET")
	authRouter.HandleFunc("/reports/must-contact", h.MustContactReport).Methods("GET")
	return r
}

// Login handles operator authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	token, err := h.svc.Login(req.Username, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, models.LoginResponse{Token: token})
}

// CurrentActions returns this week's action sheet
func (h *Handler) CurrentActions(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.svc.CurrentActions(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, sheet)
}

// RecordActions stores a submitted action form
func (h *Handler) RecordActions(w http.ResponseWriter, r *http.Request) {
	var req models.RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	week := mux.Vars(r)["week"]
	saved, err := h.svc.RecordActions(r.Context(), week, req)
	if err != nil {
		h.fail(w, err)
		return
	}
	operator, _ := middleware.Operator(r.Context())
	h.log.WithFields(logrus.Fields{"operator": operator, "week": week, "entries": len(saved.Entries)}).Info("Action form submitted")
	h.respond(w, http.StatusOK, saved)
}

// History returns all recorded entries
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.History(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, entries)
}

// Loans returns the snapshot, filtered by the optional tier query parameter
func (h *Handler) Loans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.Loans(r.Context(), r.URL.Query().Get("tier"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, loans)
}

// LoanSummary returns dashboard statistics
func (h *Handler) LoanSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.LoanSummary(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, summary)
}

// TakeActionReport returns the take-action report data
func (h *Handler) TakeActionReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.TakeActionReport(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, rep)
}

// MustContactReport returns the must-contact report data
func (h *Handler) MustContactReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.MustContactReport(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.respond(w, http.StatusOK, rep)
}

func (h *Handler) respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Error("Failed to encode response")
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("Request failed")
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, recorder.ErrInvalidLoanKey):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, service.ErrNoReport):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrVersionConflict), errors.Is(err, recorder.ErrWeekClosed):
		return http.StatusConflict
	case errors.Is(err, snapshot.ErrMissingDataset), errors.Is(err, ledger.ErrEmptySnapshot):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
