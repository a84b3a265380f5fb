package domain

import (
	"fmt"
	"strings"
	"time"
)

type DeviceStatus string

const (
	// StatusPending means the record was issued but no camera has claimed it yet.
	StatusPending DeviceStatus = "pending"
	// StatusActive means the camera claimed the token and its relay link is (or
	// was last known to be) up.
	StatusActive DeviceStatus = "active"
	// StatusOffline means the camera activated at some point but its relay
	// connection is currently absent.
	StatusOffline DeviceStatus = "offline"
)

// Device is one physical camera claimed (or being claimed) by one owner.
// Status only ever moves forward: pending -> active, then active <-> offline
// driven by relay presence. It never returns to pending.
type Device struct {
	ID          DeviceID     `gorm:"type:uuid;primaryKey" json:"device_id"`
	OwnerID     OwnerID      `gorm:"type:uuid;index;not null" json:"owner_id"`
	Name        string       `gorm:"type:text;not null" json:"device_name"`
	CameraModel string       `gorm:"type:text;not null" json:"camera_model"`
	DeviceUID   *string      `gorm:"type:text" json:"device_uid,omitempty"`
	Token       string       `gorm:"column:device_token;type:text;uniqueIndex;not null" json:"-"`
	Status      DeviceStatus `gorm:"type:text;not null" json:"status"`
	WifiSSID    string       `gorm:"type:text;not null" json:"wifi_ssid"`
	WifiSecret  string       `gorm:"type:text;not null" json:"-"`
	LocalIP     *string      `gorm:"type:text" json:"local_ip,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	ActivatedAt *time.Time   `json:"activated_at,omitempty"`
}

func (Device) TableName() string { return "devices" }

func (d *Device) Activated() bool {
	return d.Status != StatusPending
}

// NewDevice builds a pending record for a fresh onboarding attempt. The token
// is assigned by the caller so it can be regenerated on a store collision.
func NewDevice(owner OwnerID, model, name, ssid, secret, token string, now time.Time) (*Device, error) {
	name = strings.TrimSpace(name)
	model = strings.TrimSpace(model)
	ssid = strings.TrimSpace(ssid)
	if name == "" {
		return nil, fmt.Errorf("%w: device name cannot be empty", ErrInvalidInput)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: camera model cannot be empty", ErrInvalidInput)
	}
	if ssid == "" {
		return nil, fmt.Errorf("%w: wifi ssid cannot be empty", ErrInvalidInput)
	}
	return &Device{
		ID:          NewDeviceID(),
		OwnerID:     owner,
		Name:        name,
		CameraModel: model,
		Token:       token,
		Status:      StatusPending,
		WifiSSID:    ssid,
		WifiSecret:  secret,
		CreatedAt:   now,
	}, nil
}
