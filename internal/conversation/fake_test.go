package conversation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/academyportal/internal/model"
)

var errTransport = errors.New("transport down")

// fakeStore — хранилище сообщений в памяти с управляемыми сбоями и задержками.
type fakeStore struct {
	mu          sync.Mutex
	msgs        []model.Message
	nextID      int64
	clock       time.Time
	threadCalls int
	sendCalls   int
	threadErr   error
	sendErr     error
	listErr     error
	failMark    map[int64]bool
	marked      []int64
	// gates задерживают ListThread по собеседнику до закрытия канала (контекст не учитывается).
	gates map[int64]chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:   1,
		clock:    time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC),
		failMark: make(map[int64]bool),
		gates:    make(map[int64]chan struct{}),
	}
}

func (f *fakeStore) add(m model.Message) model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == 0 {
		m.ID = f.nextID
	}
	if m.ID >= f.nextID {
		f.nextID = m.ID + 1
	}
	if m.SentAt.IsZero() {
		f.clock = f.clock.Add(time.Minute)
		m.SentAt = f.clock
	}
	f.msgs = append(f.msgs, m)
	return m
}

func (f *fakeStore) ListConversations(ctx context.Context, viewerID int64) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Message
	for _, m := range f.msgs {
		if m.Involves(viewerID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListThread(ctx context.Context, viewerID, partnerID int64) ([]model.Message, error) {
	f.mu.Lock()
	gate := f.gates[partnerID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadCalls++
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	var out []model.Message
	for _, m := range f.msgs {
		if (m.SenderID == viewerID && m.ReceiverID == partnerID) || (m.SenderID == partnerID && m.ReceiverID == viewerID) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.Before(out[j].SentAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) Send(ctx context.Context, senderID, receiverID int64, content string) (*model.Message, error) {
	f.mu.Lock()
	f.sendCalls++
	err := f.sendErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	m := f.add(model.Message{SenderID: senderID, ReceiverID: receiverID, Content: content})
	return &m, nil
}

func (f *fakeStore) MarkRead(ctx context.Context, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMark[messageID] {
		return errTransport
	}
	for i := range f.msgs {
		if f.msgs[i].ID == messageID {
			f.msgs[i].Read = true
			f.marked = append(f.marked, messageID)
			return nil
		}
	}
	return errors.New("not found")
}

// setRead подменяет флаг на "сервере" (для проверки монотонности на клиенте).
func (f *fakeStore) setRead(id int64, read bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.msgs {
		if f.msgs[i].ID == id {
			f.msgs[i].Read = read
		}
	}
}

func (f *fakeStore) isRead(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			return m.Read
		}
	}
	return false
}

func (f *fakeStore) counts() (thread, send int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.threadCalls, f.sendCalls
}

func (f *fakeStore) markedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.marked...)
}

type staticRecipients struct {
	list []model.Recipient
	err  error
}

func (s staticRecipients) ListRecipients(context.Context) ([]model.Recipient, error) {
	return s.list, s.err
}

type staticSession struct{ user *model.SessionUser }

func (s staticSession) CurrentUser() (*model.SessionUser, bool) {
	return s.user, s.user != nil
}

// recView собирает уведомления синхронизатора.
type recView struct {
	updates chan Thread
	fails   chan error
}

func newRecView() *recView {
	return &recView{updates: make(chan Thread, 64), fails: make(chan error, 64)}
}

func (v *recView) ThreadUpdated(t Thread) { v.updates <- t }

func (v *recView) ThreadFailed(partnerID int64, err error) { v.fails <- err }

func (v *recView) next(t *testing.T) Thread {
	t.Helper()
	select {
	case th := <-v.updates:
		return th
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for thread update")
	}
	return Thread{}
}

func (v *recView) nextFailure(t *testing.T) error {
	t.Helper()
	select {
	case err := <-v.fails:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for thread failure")
	}
	return nil
}

func academyRecipients() staticRecipients {
	return staticRecipients{list: []model.Recipient{
		{ID: 1, Name: "Academy Admin", Role: model.RoleAdmin},
		{ID: 2, Name: "Maria Manager", Role: model.RoleManager},
		{ID: 3, Name: "Coach Anna", Role: model.RoleCoach},
		{ID: 4, Name: "Parent Bo", Role: model.RoleParent},
		{ID: 5, Name: "Coach Boris", Role: model.RoleCoach},
	}}
}
