package handler

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/academyportal/internal/logger"
	"github.com/academyportal/internal/metrics"
	"github.com/academyportal/internal/middleware"
	"github.com/academyportal/internal/model"
	"github.com/academyportal/internal/storage"
)

// maxContentRunes — максимальная длина текста сообщения.
const maxContentRunes = 4000

type MessageHandler struct {
	messages storage.MessageStore
	users    storage.UserStore
	metrics  *metrics.Metrics
}

func NewMessageHandler(messages storage.MessageStore, users storage.UserStore, m *metrics.Metrics) *MessageHandler {
	return &MessageHandler{messages: messages, users: users, metrics: m}
}

// ListForUser — все сообщения пользователя, из которых клиент строит список диалогов.
// GET /api/messages/user/{userId}
func (h *MessageHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID != middleware.GetUserID(r.Context()) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	list, err := h.messages.ListByParticipant(r.Context(), userID)
	if err != nil {
		logger.Errorf("messages list user_id=%d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to get messages")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// GetThread — переписка с одним собеседником.
// GET /api/messages/thread/{userId}/{partnerId}
func (h *MessageHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	partnerID, ok := pathID(r, "partnerId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid partner id")
		return
	}
	if userID != middleware.GetUserID(r.Context()) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	list, err := h.messages.ListThread(r.Context(), userID, partnerID)
	if err != nil {
		logger.Errorf("messages thread user_id=%d partner_id=%d: %v", userID, partnerID, err)
		writeError(w, http.StatusInternalServerError, "failed to get thread")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// Send сохраняет новое сообщение. POST /api/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	me := middleware.GetUserID(r.Context())
	if req.SenderID != me {
		writeError(w, http.StatusForbidden, "sender must be the authenticated user")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if utf8.RuneCountInString(content) > maxContentRunes {
		writeError(w, http.StatusBadRequest, "content is too long")
		return
	}
	if req.ReceiverID <= 0 || req.ReceiverID == me {
		writeError(w, http.StatusBadRequest, "invalid receiver")
		return
	}
	receiver, err := h.users.GetByID(r.Context(), req.ReceiverID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && receiver.DisabledAt != nil) {
		writeError(w, http.StatusNotFound, "receiver not found")
		return
	}
	if err != nil {
		logger.Errorf("messages send lookup receiver_id=%d: %v", req.ReceiverID, err)
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	m := &model.Message{SenderID: me, ReceiverID: req.ReceiverID, Content: content}
	if err := h.messages.Create(r.Context(), m); err != nil {
		logger.Errorf("messages send sender_id=%d receiver_id=%d: %v", me, req.ReceiverID, err)
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	h.metrics.MessageSent()
	writeJSON(w, http.StatusCreated, m)
}

// MarkRead — PUT /api/messages/{id}/read. Только получатель; повтор возвращает 200.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	me := middleware.GetUserID(r.Context())
	err := h.messages.MarkRead(r.Context(), id, me)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		logger.Errorf("messages mark read id=%d user_id=%d: %v", id, me, err)
		writeError(w, http.StatusInternalServerError, "failed to mark as read")
		return
	}
	h.metrics.MessageRead()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func nonNil(list []model.Message) []model.Message {
	if list == nil {
		return []model.Message{}
	}
	return list
}
