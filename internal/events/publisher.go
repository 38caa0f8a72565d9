package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher defines the interface for publishing notification events
type EventPublisher interface {
	PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error
	Close() error
}

// WatermillEventPublisher publishes events on a topic of any watermill
// publisher: Kafka in production, an in-process gochannel otherwise.
type WatermillEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
	owned     bool
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// NewKafkaEventPublisher creates a publisher that owns its own Kafka connection.
func NewKafkaEventPublisher(config PublisherConfig) (*WatermillEventPublisher, error) {
	publisher, err := NewKafkaPublisher(config.KafkaBrokers, config.Logger)
	if err != nil {
		return nil, err
	}

	return &WatermillEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
		owned:     true,
	}, nil
}

// NewWatermillEventPublisher wraps a shared publisher; Close leaves it open.
func NewWatermillEventPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *WatermillEventPublisher {
	return &WatermillEventPublisher{
		publisher: publisher,
		logger:    logger,
		topicName: topic,
	}
}

func NewKafkaPublisher(brokers []string, logger *slog.Logger) (message.Publisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}
	return publisher, nil
}

func NewKafkaSubscriber(brokers []string, consumerGroup string, logger *slog.Logger) (message.Subscriber, error) {
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:       brokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: consumerGroup,
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}
	return subscriber, nil
}

func (p *WatermillEventPublisher) PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		p.logger.Error("Failed to publish notification event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish notification event: %w", err)
	}

	p.logger.Info("Published notification event",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", p.topicName)

	return nil
}

func (p *WatermillEventPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.publisher.Close()
}

// MockEventPublisher records events in memory (for testing and when events are disabled)
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []NotificationEvent
	Logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]NotificationEvent, 0),
		Logger: logger,
	}
}

func (m *MockEventPublisher) PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, *event)
	m.mu.Unlock()

	m.Logger.Debug("Mock: Published notification event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of all published events
func (m *MockEventPublisher) GetPublishedEvents() []NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NotificationEvent, len(m.Events))
	copy(out, m.Events)
	return out
}

// EventsOfType filters published events by type
func (m *MockEventPublisher) EventsOfType(eventType EventType) []NotificationEvent {
	var out []NotificationEvent
	for _, e := range m.GetPublishedEvents() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	m.Events = make([]NotificationEvent, 0)
	m.mu.Unlock()
}
