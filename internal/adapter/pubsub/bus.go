// Package pubsub carries domain events. An in-process gochannel bus moves
// presence edges from the services to the bus handler; an optional AMQP
// publisher exports persisted messages to external consumers.
package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the in-process event transport. Publisher and Subscriber are the
// same gochannel, so events never leave the node.
type Bus struct {
	channel *gochannel.GoChannel
}

func NewBus(wmLogger watermill.LoggerAdapter) *Bus {
	return &Bus{
		channel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, wmLogger),
	}
}

func (b *Bus) Publisher() message.Publisher   { return b.channel }
func (b *Bus) Subscriber() message.Subscriber { return b.channel }

// Close stops delivery and unblocks every subscriber.
func (b *Bus) Close() error { return b.channel.Close() }
