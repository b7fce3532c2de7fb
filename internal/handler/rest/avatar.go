package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
	"github.com/DingWH03/uchat-sub000/internal/media"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

const maxAvatarBytes = 5 << 20

// avatarExtensions also acts as the accepted-type allowlist.
var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type AvatarHandler struct {
	users   store.UserStore
	objects media.ObjectStore
	logger  *slog.Logger
}

func NewAvatarHandler(users store.UserStore, objects media.ObjectStore, logger *slog.Logger) *AvatarHandler {
	return &AvatarHandler{users: users, objects: objects, logger: logger}
}

// Upload stores a new avatar under a fresh key and points the user row at it.
// Old avatars are not collected; keys are content-addressed by upload, not by
// user.
func (h *AvatarHandler) Upload(w http.ResponseWriter, r *http.Request) {
	caller, ok := UserFrom(r.Context())
	if !ok {
		respondError(w, h.logger, model.ErrUnauthenticated)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: %v", model.ErrBadRequest, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, h.logger, fmt.Errorf("%w: missing file field", model.ErrBadRequest))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext, ok := avatarExtensions[contentType]
	if !ok {
		respondError(w, h.logger, fmt.Errorf("%w: unsupported content type %q", model.ErrBadRequest, contentType))
		return
	}

	key := fmt.Sprintf("avatars/%d/%s%s", caller, uuid.NewString(), ext)
	url, err := h.objects.Put(r.Context(), key, file, header.Size, contentType)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.users.UpdateAvatar(r.Context(), caller, url); err != nil {
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("avatar updated", "user_id", caller, "key", key)
	respondOK(w, map[string]string{"avatar_url": url})
}
