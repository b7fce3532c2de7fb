package registry

import (
	"context"

	"go.uber.org/fx"
)

// Module wires the sender store. The SessionRegistry implementation is
// provided by the composition root, which knows whether a shared Redis is
// configured.
var Module = fx.Module("registry",
	fx.Provide(
		NewSenderStore,
	),

	fx.Invoke(func(lc fx.Lifecycle, senders *SenderStore) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				// Closing the mailboxes lets every connection writer drain
				// and exit before the HTTP server finishes shutting down.
				senders.ClearAll()
				return nil
			},
		})
	}),
)
