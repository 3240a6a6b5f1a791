// Package conversation — переписка один-на-один поверх хранилища сообщений без push-канала:
// список диалогов, поиск адресатов, опрос открытой переписки с отметками о прочтении и отправка.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/academyportal/internal/model"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Store      MessageStore
	Recipients RecipientSource
	Session    SessionSource
	// View получает обновления открытой переписки. nil — только Thread().
	View         ThreadView
	PollInterval time.Duration
	// Roles сужает список адресатов (например, тренер пишет только родителям).
	Roles []model.Role
}

// Inbox — переписка текущего пользователя: один экземпляр на сессию, для любой роли.
type Inbox struct {
	viewer     model.SessionUser
	store      MessageStore
	recipients *RecipientResolver
	threads    *Synchronizer
	dispatch   *Dispatcher

	mu        sync.RWMutex
	directory []model.ConversationSummary
	contacts  []model.Recipient
}

// New проверяет, что пользователь известен; иначе ErrNoIdentity и ничего не запускается.
func New(opts Options) (*Inbox, error) {
	viewer, err := ResolveViewer(opts.Session)
	if err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("conversation: message store is required")
	}
	src := opts.Recipients
	if src == nil {
		return nil, fmt.Errorf("conversation: recipient source is required")
	}
	threads := NewSynchronizer(opts.Store, viewer.ID, opts.PollInterval, opts.View)
	return &Inbox{
		viewer:     viewer,
		store:      opts.Store,
		recipients: NewRecipientResolver(src, viewer.ID, opts.Roles...),
		threads:    threads,
		dispatch:   NewDispatcher(opts.Store, viewer.ID, threads),
	}, nil
}

func (in *Inbox) Viewer() model.SessionUser { return in.viewer }

// Load загружает список диалогов и адресатов параллельно. При ошибке прежние данные сохраняются.
func (in *Inbox) Load(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := in.ReloadDirectory(gctx)
		return err
	})
	g.Go(func() error {
		list, err := in.recipients.List(gctx)
		if err != nil {
			return err
		}
		in.mu.Lock()
		in.contacts = list
		in.mu.Unlock()
		return nil
	})
	return g.Wait()
}

// ReloadDirectory перестраивает список диалогов. При ошибке возвращает прежний список и ошибку.
func (in *Inbox) ReloadDirectory(ctx context.Context) ([]model.ConversationSummary, error) {
	msgs, err := in.store.ListConversations(ctx, in.viewer.ID)
	if err != nil {
		return in.Directory(), fmt.Errorf("load conversations: %w", err)
	}
	dir := BuildDirectory(in.viewer.ID, msgs)
	in.mu.Lock()
	in.directory = dir
	in.mu.Unlock()
	return append([]model.ConversationSummary(nil), dir...), nil
}

func (in *Inbox) Directory() []model.ConversationSummary {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]model.ConversationSummary(nil), in.directory...)
}

// Recipients — адресаты, загруженные в Load.
func (in *Inbox) Recipients() []model.Recipient {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]model.Recipient(nil), in.contacts...)
}

// SearchRecipients ищет по актуальному каталогу адресатов.
func (in *Inbox) SearchRecipients(ctx context.Context, query string) ([]model.Recipient, error) {
	return in.recipients.Search(ctx, query)
}

func (in *Inbox) Select(partnerID int64) error {
	if partnerID == in.viewer.ID {
		return ErrSelfConversation
	}
	return in.threads.Select(partnerID)
}

func (in *Inbox) Deselect() { in.threads.Deselect() }

func (in *Inbox) Send(ctx context.Context, content string) (*model.Message, error) {
	return in.dispatch.Send(ctx, content)
}

func (in *Inbox) Refresh() { in.threads.Refresh() }

func (in *Inbox) Thread() (Thread, bool) { return in.threads.Thread() }

func (in *Inbox) State() State { return in.threads.State() }

func (in *Inbox) PartnerID() int64 { return in.threads.PartnerID() }

// Close останавливает опрос. Вызывать при выходе из переписки или logout.
func (in *Inbox) Close() { in.threads.Close() }
