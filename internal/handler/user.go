package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/academyportal/internal/logger"
	"github.com/academyportal/internal/metrics"
	"github.com/academyportal/internal/middleware"
	"github.com/academyportal/internal/model"
	"github.com/academyportal/internal/storage"
)

type UserHandler struct {
	users   storage.UserStore
	cache   storage.RecipientCache
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewUserHandler — cache может быть nil, тогда список адресатов всегда читается из БД.
func NewUserHandler(users storage.UserStore, cache storage.RecipientCache, ttl time.Duration, m *metrics.Metrics) *UserHandler {
	return &UserHandler{users: users, cache: cache, ttl: ttl, metrics: m}
}

// Me — профиль текущего пользователя. GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		logger.Errorf("users me user_id=%d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Recipients — кому текущий пользователь может написать (все активные, кроме него самого).
// GET /api/users/recipients
func (h *UserHandler) Recipients(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	all, err := h.activeRecipients(r.Context())
	if err != nil {
		logger.Errorf("users recipients: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get recipients")
		return
	}
	out := make([]model.Recipient, 0, len(all))
	for _, rc := range all {
		if rc.ID != userID {
			out = append(out, rc)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// activeRecipients читает кеш, при промахе или ошибке кеша идёт в БД и прогревает кеш.
func (h *UserHandler) activeRecipients(ctx context.Context) ([]model.Recipient, error) {
	if h.cache != nil {
		list, err := h.cache.GetRecipients(ctx)
		switch {
		case err != nil:
			h.metrics.CacheLookup("error")
			logger.Warnf("recipient cache get: %v", err)
		case list != nil:
			h.metrics.CacheLookup("hit")
			return list, nil
		default:
			h.metrics.CacheLookup("miss")
		}
	}
	list, err := h.users.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		if err := h.cache.SetRecipients(ctx, list, h.ttl); err != nil {
			logger.Warnf("recipient cache set: %v", err)
		}
	}
	return list, nil
}
