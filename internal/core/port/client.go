package port

import (
	"fmt"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
)

// Role designates which side of a device's pairing a connection represents.
type Role string

const (
	RoleCamera Role = "camera"
	RoleViewer Role = "viewer"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCamera:
		return RoleCamera, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Frame types, matching RFC 6455 data opcodes. Forwarding preserves them: a
// binary frame re-framed as text would make strict receivers fail UTF-8
// validation and drop the connection.
const (
	FrameText   = 1
	FrameBinary = 2
)

// Client is a live relay connection. Send must be safe to call from multiple
// goroutines: several viewers can forward to one camera concurrently.
type Client interface {
	ID() string
	Send(frameType int, payload []byte) error
	Close() error
}

// QREncoder renders a provisioning payload as a scannable image, returned as a
// data URL the app can display directly.
type QREncoder interface {
	Encode(p domain.ProvisionPayload) (string, error)
}
