package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RequestRoutingKey = "scan.request"
	StatusRoutingKey  = "scan.status"
)

// Topology names the exchange and queues the scan worker relies on.
type Topology struct {
	Exchange     string
	RequestQueue string
	StatusQueue  string
	DLQ          string
}

// Declare creates the topic exchange and the durable queues and binds the
// request and status queues to their routing keys. It is idempotent.
func (t Topology) Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{t.RequestQueue, t.DLQ, t.StatusQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	if err := ch.QueueBind(t.RequestQueue, RequestRoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind request queue: %w", err)
	}
	if err := ch.QueueBind(t.StatusQueue, StatusRoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind status queue: %w", err)
	}
	return nil
}
