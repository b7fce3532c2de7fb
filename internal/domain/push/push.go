// Package push defines the frames the server pushes to connected clients and
// the codecs for both directions of the socket.
//
// Chat messages travel as big-endian binary frames with a one-byte kind
// discriminant. Presence updates travel as tagged JSON text so thin clients
// can consume them without the binary decoder. Pongs echo the ping payload.
// All three are queued through the same per-connection mailbox, which is what
// guarantees ordering between them.
package push

// OutboundKind selects the socket frame type used for an Outbound.
type OutboundKind uint8

const (
	OutboundBinary OutboundKind = iota + 1
	OutboundText
	OutboundPong
)

// String names the kind for logs and metric labels.
func (k OutboundKind) String() string {
	switch k {
	case OutboundBinary:
		return "binary"
	case OutboundText:
		return "text"
	case OutboundPong:
		return "pong"
	}
	return "unknown"
}

// Outbound is one frame waiting in a connection mailbox.
type Outbound struct {
	Kind OutboundKind
	Data []byte
}

// Binary wraps an encoded chat-message frame.
func Binary(data []byte) Outbound { return Outbound{Kind: OutboundBinary, Data: data} }

// Text wraps a JSON text frame.
func Text(data []byte) Outbound { return Outbound{Kind: OutboundText, Data: data} }

// Pong wraps a pong carrying the client's ping payload.
func Pong(payload []byte) Outbound { return Outbound{Kind: OutboundPong, Data: payload} }
