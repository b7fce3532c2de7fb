package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
)

const traceIDMetadataKey = "trace_id"

type traceIDKey struct{}

// TraceIDMiddleware stamps messages that arrived without a trace id and
// mirrors the id into the handler context.
func TraceIDMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		traceID := msg.Metadata.Get(traceIDMetadataKey)
		if traceID == "" {
			traceID = uuid.NewString()
			msg.Metadata.Set(traceIDMetadataKey, traceID)
		}

		msg.SetContext(context.WithValue(msg.Context(), traceIDKey{}, traceID))
		return h(msg)
	}
}

// LoggingMiddleware records every handled message with latency and trace id.
func LoggingMiddleware(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			start := time.Now()
			msgs, err := h(msg)

			logger.Debug("bus message handled",
				"msg_id", msg.UUID,
				"trace_id", msg.Metadata.Get(traceIDMetadataKey),
				"duration_ms", time.Since(start).Milliseconds(),
				"success", err == nil,
			)
			return msgs, err
		}
	}
}

// NewRetryMiddleware bounds redelivery of failed handlers. The bus is
// in-process; a stalled consumer backs up into login paths, so the backoff
// stays short.
func NewRetryMiddleware() middleware.Retry {
	return middleware.Retry{
		MaxRetries:      3,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	}
}
