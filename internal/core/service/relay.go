package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
	"github.com/Sachin7013/vision-connect/internal/core/port"
	"github.com/Sachin7013/vision-connect/internal/observability/metrics"
	"github.com/rs/zerolog/log"
)

const presenceTimeout = 5 * time.Second

// RelayService pairs the single camera connection of a device with its
// viewers and forwards opaque payloads between them. Nothing is buffered or
// persisted: no counterpart means the message is dropped.
//
// The table mutex only guards the device map. Each device entry carries its
// own lock, and sends snapshot their targets under that lock but write outside
// it, so a slow viewer stalls neither its siblings nor other devices.
type RelayService struct {
	devices port.DeviceRepository

	mu    sync.Mutex
	table map[domain.DeviceID]*deviceEntry
}

type deviceEntry struct {
	mu      sync.Mutex
	camera  port.Client
	viewers map[port.Client]struct{}
}

func (e *deviceEntry) emptyLocked() bool {
	return e.camera == nil && len(e.viewers) == 0
}

func NewRelayService(devices port.DeviceRepository) *RelayService {
	return &RelayService{
		devices: devices,
		table:   make(map[domain.DeviceID]*deviceEntry),
	}
}

// Register admits a connection under (device, role). The device must have
// reached activation at least once; a pending or unknown identifier is
// rejected with ErrUnknownDevice so an unclaimed token cannot smuggle a relay
// channel. A second camera connection replaces the first and the predecessor
// is closed: one video source per device.
func (s *RelayService) Register(ctx context.Context, deviceID domain.DeviceID, role port.Role, client port.Client) error {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return domain.ErrUnknownDevice
		}
		return err
	}
	if device.Status == domain.StatusPending {
		return domain.ErrUnknownDevice
	}

	s.mu.Lock()
	entry, ok := s.table[deviceID]
	if !ok {
		entry = &deviceEntry{viewers: make(map[port.Client]struct{})}
		s.table[deviceID] = entry
	}
	// Take the entry lock before releasing the table lock. A concurrent
	// unregister that just emptied this entry would otherwise delete it from
	// the table in between, leaving the client admitted into an unreachable
	// entry.
	entry.mu.Lock()
	s.mu.Unlock()

	var replaced port.Client
	switch role {
	case port.RoleCamera:
		replaced = entry.camera
		entry.camera = client
	default:
		entry.viewers[client] = struct{}{}
	}
	entry.mu.Unlock()

	if replaced != nil {
		log.Info().Str("device_id", deviceID.String()).Msg("replacing existing camera connection")
		_ = replaced.Close()
	} else {
		metrics.RelayConnections.WithLabelValues(string(role)).Inc()
	}

	if role == port.RoleCamera {
		s.flipPresence(deviceID, domain.StatusOffline, domain.StatusActive)
	}
	log.Info().
		Str("device_id", deviceID.String()).
		Str("role", string(role)).
		Str("conn_id", client.ID()).
		Msg("relay connection registered")
	return nil
}

// Send forwards one frame to the counterpart role(s): camera traffic fans out
// to every viewer, viewer traffic goes to the camera. The frame type travels
// with the payload so binary frames stay binary. Counterparts that fail the
// write are closed and dropped, same as a transport-level disconnect.
func (s *RelayService) Send(deviceID domain.DeviceID, from port.Role, frameType int, payload []byte) {
	s.mu.Lock()
	entry, ok := s.table[deviceID]
	s.mu.Unlock()
	if !ok {
		return
	}

	var targets []port.Client
	entry.mu.Lock()
	if from == port.RoleCamera {
		targets = make([]port.Client, 0, len(entry.viewers))
		for v := range entry.viewers {
			targets = append(targets, v)
		}
	} else if entry.camera != nil {
		targets = []port.Client{entry.camera}
	}
	entry.mu.Unlock()

	to := port.RoleCamera
	if from == port.RoleCamera {
		to = port.RoleViewer
	}
	for _, target := range targets {
		if err := target.Send(frameType, payload); err != nil {
			log.Warn().
				Err(err).
				Str("device_id", deviceID.String()).
				Str("conn_id", target.ID()).
				Msg("dropping relay counterpart after failed write")
			_ = target.Close()
			s.Unregister(deviceID, to, target)
			continue
		}
		metrics.RelayMessagesTotal.WithLabelValues(string(from)).Inc()
		metrics.RelayBytesTotal.WithLabelValues(string(from)).Add(float64(len(payload)))
	}
}

// Unregister removes exactly that connection entry; identifiers with no entry
// are a no-op. Removing the sole camera flips the device offline.
func (s *RelayService) Unregister(deviceID domain.DeviceID, role port.Role, client port.Client) {
	s.mu.Lock()
	entry, ok := s.table[deviceID]
	s.mu.Unlock()
	if !ok {
		return
	}

	removed := false
	entry.mu.Lock()
	switch role {
	case port.RoleCamera:
		if entry.camera == client {
			entry.camera = nil
			removed = true
		}
	default:
		if _, ok := entry.viewers[client]; ok {
			delete(entry.viewers, client)
			removed = true
		}
	}
	empty := entry.emptyLocked()
	entry.mu.Unlock()

	if !removed {
		return
	}
	metrics.RelayConnections.WithLabelValues(string(role)).Dec()

	if empty {
		s.mu.Lock()
		// Re-check under the table lock: a concurrent Register may have
		// repopulated the entry.
		entry.mu.Lock()
		if entry.emptyLocked() && s.table[deviceID] == entry {
			delete(s.table, deviceID)
		}
		entry.mu.Unlock()
		s.mu.Unlock()
	}

	if role == port.RoleCamera {
		s.flipPresence(deviceID, domain.StatusActive, domain.StatusOffline)
	}
	log.Info().
		Str("device_id", deviceID.String()).
		Str("role", string(role)).
		Str("conn_id", client.ID()).
		Msg("relay connection unregistered")
}

// DropDevice closes and forgets every connection for a device. Called when the
// owner deletes the record; no presence flip, the record is gone.
func (s *RelayService) DropDevice(deviceID domain.DeviceID) {
	s.mu.Lock()
	entry, ok := s.table[deviceID]
	if ok {
		delete(s.table, deviceID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	camera := entry.camera
	entry.camera = nil
	viewers := make([]port.Client, 0, len(entry.viewers))
	for v := range entry.viewers {
		viewers = append(viewers, v)
	}
	entry.viewers = make(map[port.Client]struct{})
	entry.mu.Unlock()

	if camera != nil {
		_ = camera.Close()
		metrics.RelayConnections.WithLabelValues(string(port.RoleCamera)).Dec()
	}
	for _, v := range viewers {
		_ = v.Close()
		metrics.RelayConnections.WithLabelValues(string(port.RoleViewer)).Dec()
	}
	log.Info().Str("device_id", deviceID.String()).Msg("relay pairing dropped")
}

// Stop closes every live connection. Used on shutdown.
func (s *RelayService) Stop() {
	s.mu.Lock()
	ids := make([]domain.DeviceID, 0, len(s.table))
	for id := range s.table {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.DropDevice(id)
	}
}

// flipPresence is best-effort bookkeeping: it never fails the relay operation
// and never touches pending records (the conditional update includes the
// source status).
func (s *RelayService) flipPresence(deviceID domain.DeviceID, from, to domain.DeviceStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if _, err := s.devices.SetPresence(ctx, deviceID, from, to); err != nil {
		log.Error().
			Err(err).
			Str("device_id", deviceID.String()).
			Str("to", string(to)).
			Msg("presence flip failed")
	}
}
