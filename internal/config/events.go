package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/evaluation-service/internal/events"
)

// EventConfig holds configuration for event publishing
type EventConfig struct {
	Enabled           bool
	Publisher         string // kafka, gochannel or mock
	KafkaBrokers      string
	NotificationTopic string
	PlagiarismTopic   string
	ConsumerGroup     string
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// EventBus is the messaging wiring for one process. Queue and Subscriber are
// nil when events are mocked, in which case plagiarism checks run inline.
type EventBus struct {
	Publisher  events.EventPublisher
	Queue      events.PlagiarismQueue
	Subscriber message.Subscriber
	Topic      string

	closers []func() error
}

func (b *EventBus) Close() error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CreateEventBus builds publishers and the plagiarism queue from configuration.
func (c *EventConfig) CreateEventBus(logger *slog.Logger) (*EventBus, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return &EventBus{Publisher: events.NewMockEventPublisher(logger)}, nil
	}

	switch c.Publisher {
	case "kafka":
		logger.Info("Creating Kafka event bus",
			"brokers", c.KafkaBrokers,
			"notification_topic", c.NotificationTopic,
			"plagiarism_topic", c.PlagiarismTopic)

		publisher, err := events.NewKafkaPublisher(c.GetKafkaBrokers(), logger)
		if err != nil {
			return nil, err
		}
		subscriber, err := events.NewKafkaSubscriber(c.GetKafkaBrokers(), c.ConsumerGroup, logger)
		if err != nil {
			_ = publisher.Close()
			return nil, err
		}
		return c.busFrom(publisher, subscriber, logger, publisher.Close, subscriber.Close), nil

	case "gochannel":
		logger.Info("Using in-process gochannel event bus")
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewSlogLogger(logger))
		return c.busFrom(pubSub, pubSub, logger, pubSub.Close), nil

	case "mock":
		logger.Info("Using mock event publisher")
		return &EventBus{Publisher: events.NewMockEventPublisher(logger)}, nil

	default:
		return nil, fmt.Errorf("unknown event publisher %q", c.Publisher)
	}
}

func (c *EventConfig) busFrom(publisher message.Publisher, subscriber message.Subscriber, logger *slog.Logger, closers ...func() error) *EventBus {
	return &EventBus{
		Publisher:  events.NewWatermillEventPublisher(publisher, c.NotificationTopic, logger),
		Queue:      events.NewPlagiarismQueue(publisher, c.PlagiarismTopic),
		Subscriber: subscriber,
		Topic:      c.PlagiarismTopic,
		closers:    closers,
	}
}
