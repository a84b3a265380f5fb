package domain

// ProvisionPayloadVersion tags the payload layout the camera firmware parses.
const ProvisionPayloadVersion = "1.0"

// ProvisionPayload is the structured data a camera reads during onboarding:
// how to join the WiFi network, where to reach the server, and the single-use
// token that links it to the owner who initiated the flow. Rendering it as a
// scannable image is the QR adapter's job; the core only ever handles this
// struct.
type ProvisionPayload struct {
	WifiSSID     string `json:"wifi_ssid"`
	WifiPassword string `json:"wifi_password"`
	ServerURL    string `json:"server_url"`
	DeviceToken  string `json:"device_token"`
	OwnerID      string `json:"user_id"`
	CameraModel  string `json:"camera_model"`
	Version      string `json:"version"`
}

// CameraModel is a supported camera type the owner picks before onboarding.
type CameraModel struct {
	ModelID      string `json:"model_id"`
	ModelName    string `json:"model_name"`
	Manufacturer string `json:"manufacturer"`
	SupportsQR   bool   `json:"supports_qr"`
}

func SupportedCameraModels() []CameraModel {
	return []CameraModel{
		{ModelID: "CP_PLUS_WIFI_V2", ModelName: "CP Plus WiFi Camera V2", Manufacturer: "CP Plus", SupportsQR: true},
		{ModelID: "HIKVISION_DS_2CD", ModelName: "Hikvision DS-2CD Series", Manufacturer: "Hikvision", SupportsQR: true},
		{ModelID: "GENERIC_ONVIF", ModelName: "Generic ONVIF Camera", Manufacturer: "Generic", SupportsQR: true},
	}
}
