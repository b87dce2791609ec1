// Package notification delivers customer notifications requested by the
// workflow. Actual SMS, WhatsApp or e-mail delivery is done by a separate
// worker reading the outbound stream.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStream is the Redis stream outbound notifications are appended to
const DefaultStream = "notifications:outbound"

// maxStreamLen caps the stream; older entries are trimmed approximately
const maxStreamLen = 100_000

// RedisStreamNotifier appends each notification to a Redis stream
type RedisStreamNotifier struct {
	client redis.UniversalClient
	stream string
	now    func() time.Time
}

// NewRedisStreamNotifier creates a notifier writing to stream, or to
// DefaultStream when stream is empty.
func NewRedisStreamNotifier(client redis.UniversalClient, stream string) *RedisStreamNotifier {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamNotifier{client: client, stream: stream, now: time.Now}
}

// Notify enqueues the notification with XADD
func (n *RedisStreamNotifier) Notify(ctx context.Context, address, template string, variables map[string]string) error {
	vars, err := json.Marshal(variables)
	if err != nil {
		return fmt.Errorf("failed to encode notification variables: %w", err)
	}
	err = n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{
			"address":      address,
			"template":     template,
			"variables":    string(vars),
			"requested_at": n.now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue %s notification: %w", template, err)
	}
	return nil
}

// LogNotifier writes notifications to the log. It is used when Redis is off.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notification")}
}

// Notify logs the notification and never fails
func (n *LogNotifier) Notify(ctx context.Context, address, template string, variables map[string]string) error {
	n.logger.Info("notification",
		zap.String("address", address),
		zap.String("template", template),
		zap.Any("variables", variables),
	)
	return nil
}

var (
	_ serviceorder.Notifier = (*RedisStreamNotifier)(nil)
	_ serviceorder.Notifier = (*LogNotifier)(nil)
)
