package conversation

import (
	"context"
	"strings"

	"github.com/academyportal/internal/model"
)

// Dispatcher отправляет сообщения в открытую переписку.
type Dispatcher struct {
	store    MessageStore
	viewerID int64
	threads  *Synchronizer
}

func NewDispatcher(store MessageStore, viewerID int64, threads *Synchronizer) *Dispatcher {
	return &Dispatcher{store: store, viewerID: viewerID, threads: threads}
}

// Send отправляет content выбранному собеседнику и сразу запрашивает обновление переписки.
// Пустой текст отклоняется без обращения к хранилищу. Ошибка хранилища — *SendError.
func (d *Dispatcher) Send(ctx context.Context, content string) (*model.Message, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil, ErrEmptyContent
	}
	partnerID := d.threads.PartnerID()
	if partnerID == 0 {
		return nil, ErrNoPartner
	}
	m, err := d.store.Send(ctx, d.viewerID, partnerID, text)
	if err != nil {
		return nil, &SendError{PartnerID: partnerID, Err: err}
	}
	d.threads.Refresh()
	return m, nil
}
