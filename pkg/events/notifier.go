package events

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// SyncEvent describes one successfully written page of plays. Downstream
// reporting consumers subscribe to these instead of polling the store.
type SyncEvent struct {
	GameID        int       `json:"game_id"`
	GameName      string    `json:"game_name"`
	Strategy      string    `json:"strategy"` // "full" or "incremental"
	Page          int       `json:"page"`
	PlayCount     int       `json:"play_count"`
	MatchedCount  int64     `json:"matched_count"`
	ModifiedCount int64     `json:"modified_count"`
	InsertedCount int64     `json:"inserted_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Notifier publishes sync events. Publishing is best-effort; the engine logs
// failures and moves on.
type Notifier interface {
	// PlaysSynced publishes one event.
	PlaysSynced(ctx context.Context, event SyncEvent) error

	// Close gracefully shuts down the notifier
	Close() error
}

// NopNotifier discards every event. Used when Kafka is disabled.
type NopNotifier struct{}

func (NopNotifier) PlaysSynced(ctx context.Context, event SyncEvent) error { return nil }
func (NopNotifier) Close() error                                           { return nil }

// KafkaNotifier publishes sync events to a Kafka topic using kafka-go.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// Config holds Kafka notifier configuration.
type Config struct {
	Brokers []string
	Topic   string
}

// NewKafkaNotifier creates a new KafkaNotifier instance.
func NewKafkaNotifier(cfg Config) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KafkaNotifier{writer: writer}
}

// PlaysSynced publishes one event keyed by the game name so a game's events
// stay ordered within a partition.
func (n *KafkaNotifier) PlaysSynced(ctx context.Context, event SyncEvent) error {
	value, err := encodeEvent(event)
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.GameName),
		Value: value,
	})
}

// Close gracefully shuts down the notifier.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func encodeEvent(event SyncEvent) ([]byte, error) {
	return json.Marshal(event)
}
