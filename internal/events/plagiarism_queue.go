package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// PlagiarismRequest asks the analyzer to (re)check one attempt.
type PlagiarismRequest struct {
	AttemptID   uint      `json:"attempt_id"`
	Reason      string    `json:"reason"` // submission, rerun, retry
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

type PlagiarismQueue interface {
	Enqueue(ctx context.Context, req PlagiarismRequest) error
}

type WatermillPlagiarismQueue struct {
	publisher message.Publisher
	topic     string
}

func NewPlagiarismQueue(publisher message.Publisher, topic string) *WatermillPlagiarismQueue {
	return &WatermillPlagiarismQueue{publisher: publisher, topic: topic}
}

func (q *WatermillPlagiarismQueue) Enqueue(ctx context.Context, req PlagiarismRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal plagiarism request: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(EventPlagiarismRequested))
	msg.Metadata.Set("source", eventSource)

	if err := q.publisher.Publish(q.topic, msg); err != nil {
		return fmt.Errorf("failed to enqueue plagiarism request: %w", err)
	}
	return nil
}

// PlagiarismHandler processes one request. Returning an error triggers a retry.
type PlagiarismHandler func(ctx context.Context, req PlagiarismRequest) error

type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 2 * time.Second,
	MaxInterval:     30 * time.Second,
}

// NewPlagiarismRouter wires a consumer for the plagiarism topic. Failures are
// retried with backoff; a request that still fails is acked and left for the
// reconcile sweep, so one broken submission cannot stall the topic.
func NewPlagiarismRouter(subscriber message.Subscriber, topic string, handle PlagiarismHandler, policy RetryPolicy, logger *slog.Logger) (*message.Router, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	router.AddMiddleware(
		settle(logger),
		middleware.Retry{
			MaxRetries:      policy.MaxRetries,
			InitialInterval: policy.InitialInterval,
			MaxInterval:     policy.MaxInterval,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
		middleware.Recoverer,
	)

	router.AddNoPublisherHandler("plagiarism_analyzer", topic, subscriber, func(msg *message.Message) error {
		var req PlagiarismRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			logger.Error("Dropping malformed plagiarism request", "message_id", msg.UUID, "error", err)
			return nil
		}
		return handle(msg.Context(), req)
	})

	return router, nil
}

func settle(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			produced, err := h(msg)
			if err != nil {
				logger.Warn("Plagiarism request failed after retries, leaving it pending",
					"message_id", msg.UUID,
					"error", err)
				return nil, nil
			}
			return produced, nil
		}
	}
}
