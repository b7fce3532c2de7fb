package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Handler is the typed signature bus consumers implement.
type Handler[T any] func(ctx context.Context, ev *T) error

// Bind adapts a typed handler to watermill. A panic or an undecodable payload
// is logged and acked; neither parses better on redelivery. Handler errors
// propagate so the retry middleware can act on them.
func Bind[T any](logger *slog.Logger, fn Handler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("bus handler panic",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID,
				)
			}
		}()

		ev := new(T)
		if err := json.Unmarshal(msg.Payload, ev); err != nil {
			logger.Error("bus payload decode failed", "err", err, "msg_id", msg.UUID)
			return nil
		}

		return fn(msg.Context(), ev)
	}
}
