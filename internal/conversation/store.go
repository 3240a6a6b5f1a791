package conversation

import (
	"context"

	"github.com/academyportal/internal/model"
)

// MessageStore — внешнее хранилище сообщений (в portalctl это portalapi.Client).
type MessageStore interface {
	// ListConversations — все сообщения, где viewerID отправитель или получатель.
	ListConversations(ctx context.Context, viewerID int64) ([]model.Message, error)
	// ListThread — переписка в обе стороны, по sentAt по возрастанию.
	ListThread(ctx context.Context, viewerID, partnerID int64) ([]model.Message, error)
	Send(ctx context.Context, senderID, receiverID int64, content string) (*model.Message, error)
	MarkRead(ctx context.Context, messageID int64) error
}

// RecipientSource — каталог адресатов. Для каждой роли может быть свой источник.
type RecipientSource interface {
	ListRecipients(ctx context.Context) ([]model.Recipient, error)
}

// ThreadView получает результаты опроса открытой переписки.
// Вызовы идут из горутины синхронизатора, по одному за раз; вызывать из них Close нельзя.
type ThreadView interface {
	ThreadUpdated(t Thread)
	ThreadFailed(partnerID int64, err error)
}

type noopView struct{}

func (noopView) ThreadUpdated(Thread)      {}
func (noopView) ThreadFailed(int64, error) {}
