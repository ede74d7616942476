package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes alert events on a Redis pub/sub channel.
type RedisNotifier struct {
	client  redisPublisher
	channel string
	logger  zerolog.Logger
}

// NewRedisNotifier builds a notifier on top of an existing client.
func NewRedisNotifier(client redisPublisher, channel string, logger zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: channel,
		logger:  logger.With().Str("component", "alert_redis").Logger(),
	}
}

// Notify publishes the JSON event; zero subscribers is not an error.
func (r *RedisNotifier) Notify(ctx context.Context, note Notification) error {
	payload, err := json.Marshal(note.Event())
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	receivers, err := r.client.Publish(ctx, r.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish redis alert: %w", err)
	}

	r.logger.Debug().Str("alert_id", note.ID.String()).
		Str("channel", r.channel).
		Int64("receivers", receivers).
		Msg("alert published")
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes alert events to a Kafka topic keyed by alert ID.
type KafkaNotifier struct {
	writer  messageWriter
	timeout time.Duration
	logger  zerolog.Logger
}

// NewKafkaWriter configures a synchronous writer for the alert topic.
func NewKafkaWriter(brokers []string, topic string, timeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: timeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// NewKafkaNotifier wraps a kafka writer.
func NewKafkaNotifier(writer messageWriter, timeout time.Duration, logger zerolog.Logger) *KafkaNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaNotifier{
		writer:  writer,
		timeout: timeout,
		logger:  logger.With().Str("component", "alert_kafka").Logger(),
	}
}

// Notify writes one message per alert.
func (k *KafkaNotifier) Notify(ctx context.Context, note Notification) error {
	payload, err := json.Marshal(note.Event())
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(note.ID.String()),
		Value: payload,
		Time:  note.Time,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka alert: %w", err)
	}

	k.logger.Debug().Str("alert_id", note.ID.String()).Msg("alert written")
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

var (
	_ Notifier = (*RedisNotifier)(nil)
	_ Notifier = (*KafkaNotifier)(nil)
)
