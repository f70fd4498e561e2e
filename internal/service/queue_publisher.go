// Package queue_publisher publishes domain events to RabbitMQ. Errors
// are logged and returned so callers on the request path can ignore
// failures without interrupting the response.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/identity-service/internal/auth"
	"github.com/iliyamo/identity-service/internal/model"
	q "github.com/iliyamo/identity-service/internal/queue"
)

// PublishSessionCleanup schedules the given session ids for deletion.
// Called from listing reads, which must not block on store writes.
func PublishSessionCleanup(ctx context.Context, ev q.SessionCleanupEvent) error {
	return publish(ctx, q.SessionCleanupQueueName, ev)
}

// PublishMail requests a notification mail for a freshly issued reset or
// verification token.
func PublishMail(ctx context.Context, ev q.MailEvent) error {
	return publish(ctx, q.MailQueueName, ev)
}

// ScheduleSessionCleanup fires a cleanup event for the given ids
// without blocking the caller, mirroring MailNotifier.
func ScheduleSessionCleanup(sessionUUIDs []string) {
	ev := q.SessionCleanupEvent{SessionUUIDs: sessionUUIDs}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = PublishSessionCleanup(ctx, ev)
	}()
}

// MailNotifier adapts the publisher into the lifecycle's notification
// hook. The publish happens in a goroutine with its own deadline so the
// token-issuing request never waits on the broker.
func MailNotifier() auth.NotifyFunc {
	return func(user *model.User, kind auth.TokenKind, tok string) {
		ev := q.MailEvent{
			UserUUID: user.UUID,
			Username: user.Username,
			Kind:     string(kind),
			Token:    tok,
			IssuedAt: time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = PublishMail(ctx, ev)
		}()
	}
}

// publish dials the broker, declares the durable queue and sends one
// persistent JSON message. The connection is per call; publish volume
// here is low (reads that found expired sessions, token issuance).
func publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
