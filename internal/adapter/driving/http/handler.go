package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
	"github.com/Sachin7013/vision-connect/internal/core/port"
	"github.com/Sachin7013/vision-connect/internal/core/service"
)

type Handler struct {
	Auth      *service.AuthService
	Provision *service.ProvisionService
	Relay     *service.RelayService
	QR        port.QREncoder
}

func NewHandler(auth *service.AuthService, provision *service.ProvisionService, relay *service.RelayService, qr port.QREncoder) *Handler {
	return &Handler{
		Auth:      auth,
		Provision: provision,
		Relay:     relay,
		QR:        qr,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.RegisterUser)
		r.Post("/login", h.Login)
	})

	r.Route("/api/camera", func(r chi.Router) {
		r.Get("/models", h.ListCameraModels)
		// Called by the camera itself; the device token is the credential.
		r.Post("/activate", h.Activate)
		r.Get("/check-status/{device_token}", h.CheckStatus)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Post("/onboard", h.Onboard)
			r.Get("/devices", h.ListDevices)
			r.Get("/devices/{device_id}", h.GetDevice)
			r.Delete("/devices/{device_id}", h.DeleteDevice)
		})
	})

	r.Get("/ws/{device_id}", h.ServeWS)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain sentinels onto HTTP statuses. Anything unclassified
// is a 500 with a generic body.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenNotFound),
		errors.Is(err, domain.ErrDeviceNotFound),
		errors.Is(err, domain.ErrUnknownDevice),
		errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrAlreadyActivated):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
