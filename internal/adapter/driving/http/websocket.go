package http

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Sachin7013/vision-connect/internal/core/domain"
	"github.com/Sachin7013/vision-connect/internal/core/port"
)

const maxFrameSize = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// TODO: restrict to the app origin once it is deployed
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient wraps one relay connection. The mutex serializes writers: several
// viewer read-pumps can forward to the same camera concurrently and gorilla
// allows only one writer at a time.
type WSClient struct {
	id   string
	conn *websocket.Conn

	mu sync.Mutex
}

func (c *WSClient) ID() string {
	return c.id
}

func (c *WSClient) Send(frameType int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(frameType, payload)
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

// ServeWS upgrades the connection and runs its read pump. Frames are opaque:
// they go to the device's counterpart role byte-for-byte, never parsed here.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	deviceID, err := domain.ParseDeviceID(chi.URLParam(r, "device_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid device id"})
		return
	}
	role, err := port.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &WSClient{
		id:   uuid.NewString(),
		conn: conn,
	}
	l := log.With().
		Str("device_id", deviceID.String()).
		Str("role", string(role)).
		Str("conn_id", client.id).
		Logger()

	if err := h.Relay.Register(r.Context(), deviceID, role, client); err != nil {
		l.Warn().Err(err).Msg("relay registration rejected")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		conn.Close()
		return
	}
	l.Info().Msg("relay client connected")

	defer func() {
		h.Relay.Unregister(deviceID, role, client)
		conn.Close()
		l.Info().Msg("relay client disconnected")
	}()

	conn.SetReadLimit(maxFrameSize)
	for {
		frameType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("unexpected close error")
			}
			break
		}
		h.Relay.Send(deviceID, role, frameType, payload)
	}
}
