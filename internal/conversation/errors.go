package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIdentity — нет текущего пользователя; без него нельзя отличить "себя" от собеседника.
	ErrNoIdentity       = errors.New("conversation: no signed-in user")
	ErrEmptyContent     = errors.New("conversation: message is empty")
	ErrNoPartner        = errors.New("conversation: no conversation selected")
	ErrSelfConversation = errors.New("conversation: cannot message yourself")
	ErrClosed           = errors.New("conversation: closed")
)

// SendError — хранилище не приняло сообщение. Черновик остаётся у вызывающего.
type SendError struct {
	PartnerID int64
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("conversation: send to %d: %v", e.PartnerID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
