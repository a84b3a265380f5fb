package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
	"github.com/Sachin7013/vision-connect/internal/core/port"
	"github.com/Sachin7013/vision-connect/internal/observability/metrics"
	"github.com/rs/zerolog/log"
)

// ProvisionService owns the onboarding lifecycle: it issues activation tokens,
// arbitrates the single pending -> active transition, and answers the status
// polls the app runs while the QR code is on screen.
type ProvisionService struct {
	devices   port.DeviceRepository
	serverURL string
	now       func() time.Time
}

func NewProvisionService(devices port.DeviceRepository, serverURL string) *ProvisionService {
	return &ProvisionService{
		devices:   devices,
		serverURL: serverURL,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type OnboardParams struct {
	CameraModel  string
	DeviceName   string
	WifiSSID     string
	WifiPassword string
}

// Onboard creates a pending device record for the owner and returns it with
// the payload the camera will scan. The token is regenerated once if the store
// reports a collision; a second collision means the entropy source is broken
// and the call fails outright.
func (s *ProvisionService) Onboard(ctx context.Context, owner domain.OwnerID, p OnboardParams) (*domain.Device, domain.ProvisionPayload, error) {
	var device *domain.Device
	for attempt := 0; attempt < 2; attempt++ {
		d, err := domain.NewDevice(owner, p.CameraModel, p.DeviceName, p.WifiSSID, p.WifiPassword, domain.NewDeviceToken(), s.now())
		if err != nil {
			return nil, domain.ProvisionPayload{}, err
		}
		err = s.devices.Insert(ctx, d)
		if errors.Is(err, domain.ErrDuplicateToken) {
			log.Warn().Str("device_id", d.ID.String()).Msg("device token collision, regenerating")
			continue
		}
		if err != nil {
			metrics.OnboardsTotal.WithLabelValues("error").Inc()
			return nil, domain.ProvisionPayload{}, err
		}
		device = d
		break
	}
	if device == nil {
		metrics.OnboardsTotal.WithLabelValues("error").Inc()
		return nil, domain.ProvisionPayload{}, fmt.Errorf("token collided twice, entropy source unusable")
	}

	payload := domain.ProvisionPayload{
		WifiSSID:     device.WifiSSID,
		WifiPassword: device.WifiSecret,
		ServerURL:    s.serverURL,
		DeviceToken:  device.Token,
		OwnerID:      device.OwnerID.String(),
		CameraModel:  device.CameraModel,
		Version:      domain.ProvisionPayloadVersion,
	}
	metrics.OnboardsTotal.WithLabelValues("ok").Inc()
	log.Info().
		Str("device_id", device.ID.String()).
		Str("owner_id", owner.String()).
		Str("model", device.CameraModel).
		Msg("device onboarding issued")
	return device, payload, nil
}

// Activate is the camera's claim of a previously issued token. The store does
// the arbitration: at most one concurrent claim observes pending, everyone
// else gets ErrAlreadyActivated. Cameras retrying after a dropped response hit
// the same path and should treat it as success-adjacent.
func (s *ProvisionService) Activate(ctx context.Context, token, deviceUID, cameraModel, localIP string) (*domain.Device, error) {
	if token == "" || deviceUID == "" {
		return nil, domain.ErrTokenNotFound
	}
	device, err := s.devices.ClaimPending(ctx, token, deviceUID, localIP, s.now())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenNotFound):
			metrics.ActivationsTotal.WithLabelValues("token_not_found").Inc()
		case errors.Is(err, domain.ErrAlreadyActivated):
			metrics.ActivationsTotal.WithLabelValues("already_activated").Inc()
		default:
			metrics.ActivationsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	if cameraModel != "" && cameraModel != device.CameraModel {
		log.Warn().
			Str("device_id", device.ID.String()).
			Str("issued_model", device.CameraModel).
			Str("reported_model", cameraModel).
			Msg("camera reported a different model than issued")
	}
	metrics.ActivationsTotal.WithLabelValues("ok").Inc()
	log.Info().
		Str("device_id", device.ID.String()).
		Str("device_uid", deviceUID).
		Msg("device activated")
	return device, nil
}

type StatusReport struct {
	DeviceID   domain.DeviceID
	DeviceName string
	Status     domain.DeviceStatus
	Activated  bool
}

// CheckStatus is the non-mutating poll the app runs while waiting for the
// camera. Tokens stay resolvable after the claim, so a poll issued right after
// a successful activation reports activated=true instead of not-found.
func (s *ProvisionService) CheckStatus(ctx context.Context, token string) (StatusReport, error) {
	device, err := s.devices.GetByToken(ctx, token)
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{
		DeviceID:   device.ID,
		DeviceName: device.Name,
		Status:     device.Status,
		Activated:  device.Activated(),
	}, nil
}

func (s *ProvisionService) ListDevices(ctx context.Context, owner domain.OwnerID) ([]*domain.Device, error) {
	return s.devices.GetByOwner(ctx, owner)
}

func (s *ProvisionService) GetDevice(ctx context.Context, owner domain.OwnerID, id domain.DeviceID) (*domain.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if device.OwnerID != owner {
		// Don't leak existence of someone else's device.
		return nil, domain.ErrDeviceNotFound
	}
	return device, nil
}

// RemoveDevice deletes an owner's device record. The caller is responsible for
// tearing down any live relay pairing afterwards.
func (s *ProvisionService) RemoveDevice(ctx context.Context, owner domain.OwnerID, id domain.DeviceID) error {
	if err := s.devices.Delete(ctx, id, owner); err != nil {
		return err
	}
	log.Info().Str("device_id", id.String()).Str("owner_id", owner.String()).Msg("device removed")
	return nil
}
