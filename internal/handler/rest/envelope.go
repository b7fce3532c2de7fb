// Package rest is the HTTP surface: auth, contacts, groups, history, uploads
// and the administrative endpoints. Every response wears the same envelope
// and the HTTP status always mirrors the envelope code.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
)

// Envelope is the uniform response body.
type Envelope struct {
	Status  bool   `json:"status"`
	Code    uint16 `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, code int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Debug("envelope write failed", "err", err)
	}
}

func respondOK(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, Envelope{
		Status:  true,
		Code:    http.StatusOK,
		Message: "ok",
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, model.ErrBadRequest):
		code, msg = http.StatusBadRequest, "bad request"
	case errors.Is(err, model.ErrUnauthenticated):
		code, msg = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, model.ErrForbidden):
		code, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrNotFound):
		code, msg = http.StatusNotFound, "not found"
	default:
		// Unclassified failures keep their detail in the log, not the body.
		logger.Error("request failed", "err", err)
	}

	writeEnvelope(w, code, Envelope{Status: false, Code: uint16(code), Message: msg})
}
