package rest

import (
	"log/slog"
	"net/http"

	"github.com/DingWH03/uchat-sub000/internal/store"
)

// MessageHandler serves conversation history. The private axis is always
// anchored at the calling user; the peer comes from the query.
type MessageHandler struct {
	messages store.MessageStore
	logger   *slog.Logger
}

func NewMessageHandler(messages store.MessageStore, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

func (h *MessageHandler) User(w http.ResponseWriter, r *http.Request) {
	peer, err := queryUint32(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	offset, err := queryOffset(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	caller, _ := UserFrom(r.Context())
	msgs, err := h.messages.PrivateMessages(r.Context(), caller, peer, offset)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, msgs)
}

func (h *MessageHandler) UserLatest(w http.ResponseWriter, r *http.Request) {
	peer, err := queryUint32(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	caller, _ := UserFrom(r.Context())
	ts, err := h.messages.LatestPrivateTimestamp(r.Context(), caller, peer)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, ts)
}

func (h *MessageHandler) UserAfter(w http.ResponseWriter, r *http.Request) {
	peer, err := queryUint32(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	ts, err := queryInt64(r, "timestamp")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	caller, _ := UserFrom(r.Context())
	msgs, err := h.messages.PrivateMessagesAfter(r.Context(), caller, peer, ts)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, msgs)
}

func (h *MessageHandler) Group(w http.ResponseWriter, r *http.Request) {
	gid, err := queryUint32(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	offset, err := queryOffset(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	msgs, err := h.messages.GroupMessages(r.Context(), gid, offset)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, msgs)
}

func (h *MessageHandler) GroupLatest(w http.ResponseWriter, r *http.Request) {
	gid, err := queryUint32(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	ts, err := h.messages.LatestGroupTimestamp(r.Context(), gid)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, ts)
}

func (h *MessageHandler) GroupAfter(w http.ResponseWriter, r *http.Request) {
	gid, err := queryUint32(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	ts, err := queryInt64(r, "timestamp")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	msgs, err := h.messages.GroupMessagesAfter(r.Context(), gid, ts)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, msgs)
}
