package push

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind is the one-byte discriminant leading every binary push frame.
type Kind uint8

const (
	KindSendMessage      Kind = 0
	KindSendGroupMessage Kind = 1
	KindOnlineMessage    Kind = 2
	KindOfflineMessage   Kind = 3
)

var (
	ErrUnknownKind = errors.New("push: unknown frame kind")
	ErrTruncated   = errors.New("push: truncated frame")
	ErrTrailing    = errors.New("push: trailing bytes after frame")
)

// Frame is any server push expressible in the binary codec.
type Frame interface {
	kind() Kind
}

// PrivateMessage pushes one persisted direct message (kind 0).
type PrivateMessage struct {
	MessageID uint64
	Sender    uint32
	Receiver  uint32
	Timestamp int64
	Body      string
}

// GroupMessage pushes one persisted group message (kind 1).
type GroupMessage struct {
	MessageID uint64
	Sender    uint32
	GroupID   uint32
	Timestamp int64
	Body      string
}

// Online signals that a friend came online (kind 2).
type Online struct{ FriendID uint32 }

// Offline signals that a friend went offline (kind 3).
type Offline struct{ FriendID uint32 }

func (PrivateMessage) kind() Kind { return KindSendMessage }
func (GroupMessage) kind() Kind   { return KindSendGroupMessage }
func (Online) kind() Kind         { return KindOnlineMessage }
func (Offline) kind() Kind        { return KindOfflineMessage }

// kind byte + u64 id + u32 sender + u32 peer + i64 timestamp + u32 body length
const messageHeaderLen = 1 + 8 + 4 + 4 + 8 + 4

const presenceFrameLen = 1 + 4

// Encode serializes f into its big-endian wire form.
func Encode(f Frame) ([]byte, error) {
	switch v := f.(type) {
	case PrivateMessage:
		return encodeMessage(KindSendMessage, v.MessageID, v.Sender, v.Receiver, v.Timestamp, v.Body), nil
	case GroupMessage:
		return encodeMessage(KindSendGroupMessage, v.MessageID, v.Sender, v.GroupID, v.Timestamp, v.Body), nil
	case Online:
		return encodePresence(KindOnlineMessage, v.FriendID), nil
	case Offline:
		return encodePresence(KindOfflineMessage, v.FriendID), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, f)
	}
}

func encodeMessage(k Kind, id uint64, sender, peer uint32, ts int64, body string) []byte {
	buf := make([]byte, messageHeaderLen+len(body))
	buf[0] = byte(k)
	binary.BigEndian.PutUint64(buf[1:], id)
	binary.BigEndian.PutUint32(buf[9:], sender)
	binary.BigEndian.PutUint32(buf[13:], peer)
	binary.BigEndian.PutUint64(buf[17:], uint64(ts))
	binary.BigEndian.PutUint32(buf[25:], uint32(len(body)))
	copy(buf[messageHeaderLen:], body)
	return buf
}

func encodePresence(k Kind, friend uint32) []byte {
	buf := make([]byte, presenceFrameLen)
	buf[0] = byte(k)
	binary.BigEndian.PutUint32(buf[1:], friend)
	return buf
}

// Decode parses exactly one frame. Unknown kinds, truncated input and
// trailing bytes are all rejected, so decode(encode(f)) == f holds for every
// well-formed frame and nothing else passes.
func Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return nil, ErrTruncated
	}
	k := Kind(data[0])
	switch k {
	case KindSendMessage, KindSendGroupMessage:
		if len(data) < messageHeaderLen {
			return nil, ErrTruncated
		}
		bodyLen := binary.BigEndian.Uint32(data[25:29])
		total := uint64(messageHeaderLen) + uint64(bodyLen)
		if uint64(len(data)) < total {
			return nil, ErrTruncated
		}
		if uint64(len(data)) > total {
			return nil, ErrTrailing
		}
		id := binary.BigEndian.Uint64(data[1:9])
		sender := binary.BigEndian.Uint32(data[9:13])
		peer := binary.BigEndian.Uint32(data[13:17])
		ts := int64(binary.BigEndian.Uint64(data[17:25]))
		body := string(data[messageHeaderLen : messageHeaderLen+int(bodyLen)])
		if k == KindSendMessage {
			return PrivateMessage{MessageID: id, Sender: sender, Receiver: peer, Timestamp: ts, Body: body}, nil
		}
		return GroupMessage{MessageID: id, Sender: sender, GroupID: peer, Timestamp: ts, Body: body}, nil

	case KindOnlineMessage, KindOfflineMessage:
		if len(data) < presenceFrameLen {
			return nil, ErrTruncated
		}
		if len(data) > presenceFrameLen {
			return nil, ErrTrailing
		}
		friend := binary.BigEndian.Uint32(data[1:5])
		if k == KindOnlineMessage {
			return Online{FriendID: friend}, nil
		}
		return Offline{FriendID: friend}, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, data[0])
	}
}
