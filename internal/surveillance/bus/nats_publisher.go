package bus

import (
	"time"

	"github.com/nats-io/nats.go"
)

// natsPublisher adapts a *nats.Conn to Publisher, mapping MQTT-flavored
// topic/qos/retained semantics onto plain NATS subjects (qos/retained are
// ignored — NATS core has neither). Retry-with-backoff on publish follows
// the same "loop with sleep, give up after N" shape as
// internal/nvr/nats_publisher.go's NATSPublisher.Publish.
type natsPublisher struct {
	conn       *nats.Conn
	maxRetries int
}

func NewNATSPublisher(conn *nats.Conn, maxRetries int) Publisher {
	return &natsPublisher{conn: conn, maxRetries: maxRetries}
}

func (p *natsPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	var err error
	for i := 0; i <= p.maxRetries; i++ {
		if err = p.conn.Publish(topic, payload); err == nil {
			return nil
		}
		time.Sleep(time.Duration(i*100) * time.Millisecond)
	}
	return err
}

func (p *natsPublisher) Connected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
