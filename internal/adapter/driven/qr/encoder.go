package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
)

const defaultSize = 256

// Encoder renders provisioning payloads as PNG QR codes. High error
// correction: the camera reads the code off a phone screen.
type Encoder struct {
	size int
}

func NewEncoder() *Encoder {
	return &Encoder{size: defaultSize}
}

func (e *Encoder) Encode(p domain.ProvisionPayload) (string, error) {
	buf, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal provisioning payload: %w", err)
	}
	png, err := qrcode.Encode(string(buf), qrcode.High, e.size)
	if err != nil {
		return "", fmt.Errorf("encode qr image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
