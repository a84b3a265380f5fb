package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
	"github.com/Sachin7013/vision-connect/internal/core/service"
)

func (h *Handler) ListCameraModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.SupportedCameraModels())
}

type onboardRequest struct {
	CameraModel  string `json:"camera_model"`
	DeviceName   string `json:"device_name"`
	WifiSSID     string `json:"wifi_ssid"`
	WifiPassword string `json:"wifi_password"`
}

// Onboard is step 1 of the flow: issue a pending record and hand the app a QR
// code to show the camera.
func (h *Handler) Onboard(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrInvalidCredentials)
		return
	}
	var req onboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad request"})
		return
	}
	device, payload, err := h.Provision.Onboard(r.Context(), owner, service.OnboardParams{
		CameraModel:  req.CameraModel,
		DeviceName:   req.DeviceName,
		WifiSSID:     req.WifiSSID,
		WifiPassword: req.WifiPassword,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	image, err := h.QR.Encode(payload)
	if err != nil {
		// The record exists and polling still works; report the render failure.
		log.Error().Err(err).Str("device_id", device.ID.String()).Msg("qr encoding failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id":    device.ID.String(),
		"device_token": device.Token,
		"qr_code":      image,
		"qr_data":      payload,
		"status":       device.Status,
	})
}

type activateRequest struct {
	DeviceToken string `json:"device_token"`
	DeviceUID   string `json:"device_uid"`
	CameraModel string `json:"camera_model"`
	LocalIP     string `json:"local_ip"`
}

// Activate is step 2, called by the camera after it joined WiFi.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad request"})
		return
	}
	device, err := h.Provision.Activate(r.Context(), req.DeviceToken, req.DeviceUID, req.CameraModel, req.LocalIP)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"device_id": device.ID.String(),
		"status":    string(device.Status),
	})
}

// CheckStatus is what the app polls while the QR code is on screen.
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.Provision.CheckStatus(r.Context(), chi.URLParam(r, "device_token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id":   report.DeviceID.String(),
		"device_name": report.DeviceName,
		"status":      report.Status,
		"activated":   report.Activated,
	})
}

func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrInvalidCredentials)
		return
	}
	devices, err := h.Provision.ListDevices(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	if devices == nil {
		devices = []*domain.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrInvalidCredentials)
		return
	}
	id, err := domain.ParseDeviceID(chi.URLParam(r, "device_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid device id"})
		return
	}
	device, err := h.Provision.GetDevice(r.Context(), owner, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// DeleteDevice removes the record and tears down any live relay pairing.
func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrInvalidCredentials)
		return
	}
	id, err := domain.ParseDeviceID(chi.URLParam(r, "device_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid device id"})
		return
	}
	if err := h.Provision.RemoveDevice(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	h.Relay.DropDevice(id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
