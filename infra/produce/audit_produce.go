package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	AuditExchange   = "files.audit.exchange"
	AuditQueue      = "files.audit"
	AuditRoutingKey = "files.audit"
)

// AuditEventMessage mirrors an audit entry for downstream consumers. Fan-out
// is best effort; the database row written in the same transaction as the
// mutation stays the source of truth.
type AuditEventMessage struct {
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

// AuditService publishes audit events to the audit exchange.
type AuditService struct {
	channel *amqp.Channel
}

func InitAuditService(channel *amqp.Channel) *AuditService {
	service := &AuditService{channel: channel}

	err := channel.ExchangeDeclare(
		AuditExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare audit exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		AuditQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare audit queue: " + err.Error())
	}

	err = channel.QueueBind(
		AuditQueue,
		AuditRoutingKey,
		AuditExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind audit queue: " + err.Error())
	}

	return service
}

// PublishAuditEvent publishes one audit event.
func (s *AuditService) PublishAuditEvent(ctx context.Context, msg AuditEventMessage) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		AuditExchange,
		AuditRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}
