package push

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type tags accepted on client text frames.
const (
	ClientSendMessage      = "SendMessage"
	ClientSendGroupMessage = "SendGroupMessage"
)

// ErrBadClientFrame marks a client text frame that did not parse. The reader
// logs it and keeps the connection; a garbled frame is not worth a hangup.
var ErrBadClientFrame = errors.New("push: malformed client frame")

// ClientFrame is the tagged JSON payload read from client text frames.
type ClientFrame struct {
	Type     string `json:"type"`
	Receiver uint32 `json:"receiver,omitempty"`
	GroupID  uint32 `json:"group_id,omitempty"`
	Message  string `json:"message"`
}

// DecodeClient parses one client text frame.
func DecodeClient(data []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ClientFrame{}, fmt.Errorf("%w: %v", ErrBadClientFrame, err)
	}
	if f.Type == "" {
		return ClientFrame{}, fmt.Errorf("%w: missing type tag", ErrBadClientFrame)
	}
	return f, nil
}

// presenceNotice is the JSON form used for presence pushes.
type presenceNotice struct {
	Type     string `json:"type"`
	FriendID uint32 `json:"friend_id"`
}

// OnlineNotice builds the text frame telling a client that friend came online.
func OnlineNotice(friend uint32) []byte {
	b, _ := json.Marshal(presenceNotice{Type: "OnlineMessage", FriendID: friend})
	return b
}

// OfflineNotice builds the text frame telling a client that friend went offline.
func OfflineNotice(friend uint32) []byte {
	b, _ := json.Marshal(presenceNotice{Type: "OfflineMessage", FriendID: friend})
	return b
}
