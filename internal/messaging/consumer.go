package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"tinypot-server/internal/engine"
	"tinypot-server/internal/ws"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RefreshedSession is one live session reconciled against an edited script.
type RefreshedSession struct {
	PlaythroughID uuid.UUID        `json:"playthrough_id"`
	PlayerID      uuid.UUID        `json:"player_id"`
	State         engine.GameState `json:"state"`
}

// SessionRefresher resyncs every live session of a script. Implemented by
// the play service.
type SessionRefresher interface {
	RefreshScriptSessions(ctx context.Context, scriptID uuid.UUID) ([]RefreshedSession, error)
}

// wsStateUpdate is the frame pushed to connected players after a resync.
type wsStateUpdate struct {
	Type          string           `json:"type"`
	PlaythroughID uuid.UUID        `json:"playthrough_id"`
	State         engine.GameState `json:"state"`
}

// ScriptUpdateConsumer listens for script.updated events, resyncs live
// sessions and pushes refreshed states to connected players.
type ScriptUpdateConsumer struct {
	conn      *amqp.Connection
	refresher SessionRefresher
	manager   *ws.ConnectionManager
	queueName string
	logger    *zap.Logger
	stop      chan struct{}
}

// NewScriptUpdateConsumer creates a consumer for the script update queue.
func NewScriptUpdateConsumer(
	conn *amqp.Connection,
	refresher SessionRefresher,
	manager *ws.ConnectionManager,
	queueName string,
	logger *zap.Logger,
) *ScriptUpdateConsumer {
	return &ScriptUpdateConsumer{
		conn:      conn,
		refresher: refresher,
		manager:   manager,
		queueName: queueName,
		logger:    logger.Named("ScriptUpdateConsumer"),
		stop:      make(chan struct{}),
	}
}

// StartConsuming opens a channel and processes messages until Stop is
// called or the channel closes. Blocking; run in a goroutine.
func (c *ScriptUpdateConsumer) StartConsuming(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", c.queueName, err)
	}

	// One message at a time; resync of a large script fanout can be slow.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"tinypot-script-update-consumer", // consumer tag
		false,                            // manual ack
		false,                            // exclusive
		false,                            // no-local
		false,                            // no-wait
		nil,                              // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started, waiting for script updates", zap.String("queue", q.Name))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn("RabbitMQ message channel closed")
				return nil
			}
			c.handleDelivery(ctx, d)
		case <-c.stop:
			c.logger.Info("Consumer stopping")
			return nil
		case <-ctx.Done():
			c.logger.Info("Consumer context cancelled")
			return ctx.Err()
		}
	}
}

// Stop signals the consume loop to exit.
func (c *ScriptUpdateConsumer) Stop() {
	close(c.stop)
}

func (c *ScriptUpdateConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	scriptUpdatesReceived.Inc()

	var payload ScriptUpdatePayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		c.logger.Error("Failed to decode script update payload, rejecting", zap.Error(err))
		scriptUpdatesFailed.WithLabelValues("decode").Inc()
		// Malformed payload will never succeed; do not requeue.
		_ = d.Nack(false, false)
		return
	}

	log := c.logger.With(
		zap.String("scriptID", payload.ScriptID.String()),
		zap.Int("version", payload.Version))

	refreshed, err := c.refresher.RefreshScriptSessions(ctx, payload.ScriptID)
	if err != nil {
		scriptUpdatesFailed.WithLabelValues("refresh").Inc()
		// With Qos(1) an unconditional requeue of a message that keeps
		// failing (say, stored content that no longer validates) would
		// spin the consumer. Retry once, then drop.
		if d.Redelivered {
			log.Error("Failed to refresh script sessions on redelivery, dropping", zap.Error(err))
			_ = d.Nack(false, false)
			return
		}
		log.Error("Failed to refresh script sessions, requeueing", zap.Error(err))
		_ = d.Nack(false, true)
		return
	}

	for _, session := range refreshed {
		sessionsResynced.Inc()
		frame, err := json.Marshal(wsStateUpdate{
			Type:          "playthrough_refreshed",
			PlaythroughID: session.PlaythroughID,
			State:         session.State,
		})
		if err != nil {
			log.Error("Failed to marshal state update frame", zap.Error(err))
			continue
		}
		if !c.manager.SendToPlayer(session.PlayerID.String(), frame) {
			log.Debug("Player not connected, state update not pushed",
				zap.String("playerID", session.PlayerID.String()))
		}
	}

	log.Info("Script update processed", zap.Int("sessionsRefreshed", len(refreshed)))
	_ = d.Ack(false)
}
