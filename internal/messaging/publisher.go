package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ScriptUpdatePublisher defines the interface for announcing script edits.
type ScriptUpdatePublisher interface {
	PublishScriptUpdate(ctx context.Context, payload ScriptUpdatePayload) error
}

// rabbitMQScriptUpdatePublisher implements ScriptUpdatePublisher over a
// durable RabbitMQ queue.
type rabbitMQScriptUpdatePublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQScriptUpdatePublisher opens a channel and declares the script
// update queue. Queue parameters must match the consumer's declaration.
func NewRabbitMQScriptUpdatePublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (ScriptUpdatePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("script update publisher: failed to open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("script update publisher: failed to declare queue %q: %w", queueName, err)
	}
	return &rabbitMQScriptUpdatePublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("ScriptUpdatePublisher"),
	}, nil
}

func (p *rabbitMQScriptUpdatePublisher) PublishScriptUpdate(ctx context.Context, payload ScriptUpdatePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal script update payload: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		p.logger.Error("Failed to publish script update",
			zap.Error(err),
			zap.String("scriptID", payload.ScriptID.String()))
		return fmt.Errorf("failed to publish script update: %w", err)
	}

	p.logger.Debug("Script update published",
		zap.String("scriptID", payload.ScriptID.String()),
		zap.Int("version", payload.Version))
	return nil
}
