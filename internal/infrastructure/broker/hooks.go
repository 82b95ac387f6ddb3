package broker

import (
	"bytes"
	"sync/atomic"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

// statsHook counts broker traffic and logs client sessions.
type statsHook struct {
	mqtt.HookBase
	logger    Logger
	published atomic.Uint64
	clients   atomic.Int64
}

func (h *statsHook) ID() string {
	return "graylogic-stats"
}

func (h *statsHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnConnect,
		mqtt.OnDisconnect,
		mqtt.OnPublish,
	}, []byte{b})
}

func (h *statsHook) OnConnect(cl *mqtt.Client, _ packets.Packet) error {
	h.clients.Add(1)
	h.logger.Debug("mqtt client connected", "client_id", cl.ID)
	return nil
}

func (h *statsHook) OnDisconnect(cl *mqtt.Client, err error, _ bool) {
	h.clients.Add(-1)
	h.logger.Debug("mqtt client disconnected", "client_id", cl.ID, "error", err)
}

func (h *statsHook) OnPublish(_ *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	h.published.Add(1)
	return pk, nil
}
