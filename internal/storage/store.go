package storage

import (
	"context"
	"errors"
	"time"

	"github.com/academyportal/internal/model"
)

var ErrNotFound = errors.New("not found")

// MessageStore — хранилище сообщений один-на-один.
// Реализации: repository.MessageRepository (PostgreSQL), memory.Client (для -memory и тестов).
type MessageStore interface {
	// ListByParticipant — все сообщения, где userID отправитель или получатель, по sent_at ASC.
	ListByParticipant(ctx context.Context, userID int64) ([]model.Message, error)
	// ListThread — переписка userID и partnerID в обе стороны, по sent_at ASC, id ASC.
	ListThread(ctx context.Context, userID, partnerID int64) ([]model.Message, error)
	// Create сохраняет сообщение; заполняет ID и подписи отправителя/получателя.
	Create(ctx context.Context, m *model.Message) error
	// MarkRead выставляет read=true, только если receiverID — получатель. ErrNotFound иначе.
	MarkRead(ctx context.Context, messageID, receiverID int64) error
}

// UserStore — каталог пользователей академии.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// ListActive — все не отключённые пользователи, по имени.
	ListActive(ctx context.Context) ([]model.Recipient, error)
}

// RecipientCache — кеш списка адресатов.
// Реализации: redis.Client, memory.Client. Промах — (nil, nil).
type RecipientCache interface {
	GetRecipients(ctx context.Context) ([]model.Recipient, error)
	SetRecipients(ctx context.Context, list []model.Recipient, ttl time.Duration) error
	InvalidateRecipients(ctx context.Context) error
	Close() error
}
