package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/academyportal/internal/model"
)

func TestSend_EmptyNeverCallsStore(t *testing.T) {
	store := newFakeStore()
	in, _ := newInbox(t, store, 1, time.Hour)
	if err := in.Select(2); err != nil {
		t.Fatalf("Select: %v", err)
	}
	for _, content := range []string{"", " ", "\n\t  "} {
		if _, err := in.Send(context.Background(), content); !errors.Is(err, ErrEmptyContent) {
			t.Errorf("Send(%q) = %v, want ErrEmptyContent", content, err)
		}
	}
	if _, sends := store.counts(); sends != 0 {
		t.Errorf("store Send called %d times", sends)
	}
}

func TestSend_NoPartner(t *testing.T) {
	store := newFakeStore()
	in, _ := newInbox(t, store, 1, time.Hour)
	if _, err := in.Send(context.Background(), "hi"); !errors.Is(err, ErrNoPartner) {
		t.Fatalf("Send = %v, want ErrNoPartner", err)
	}
	if _, sends := store.counts(); sends != 0 {
		t.Errorf("store Send called %d times", sends)
	}
}

func TestSend_StoreFailureIsSendError(t *testing.T) {
	store := newFakeStore()
	store.sendErr = errTransport
	in, view := newInbox(t, store, 1, time.Hour)
	if err := in.Select(2); err != nil {
		t.Fatalf("Select: %v", err)
	}
	view.next(t)

	_, err := in.Send(context.Background(), "draft")
	var se *SendError
	if !errors.As(err, &se) {
		t.Fatalf("Send err = %v, want *SendError", err)
	}
	if se.PartnerID != 2 || !errors.Is(err, errTransport) {
		t.Errorf("SendError = %+v", se)
	}
}

func TestSend_TriggersImmediateRefresh(t *testing.T) {
	store := newFakeStore()
	in, view := newInbox(t, store, 1, time.Hour)
	if err := in.Select(2); err != nil {
		t.Fatalf("Select: %v", err)
	}
	view.next(t)
	m, err := in.Send(context.Background(), "  see you at practice  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.Content != "see you at practice" || m.SenderID != 1 || m.ReceiverID != 2 || m.Read {
		t.Errorf("sent = %+v", m)
	}
	th := view.next(t)
	if len(th.Messages) != 1 {
		t.Fatalf("thread after send = %+v", th.Messages)
	}
}

func TestInbox_NewRequiresIdentity(t *testing.T) {
	_, err := New(Options{Store: newFakeStore(), Recipients: academyRecipients(), Session: staticSession{}})
	if !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("New = %v, want ErrNoIdentity", err)
	}
}

func TestInbox_SelectSelf(t *testing.T) {
	in, _ := newInbox(t, newFakeStore(), 3, time.Hour)
	if err := in.Select(3); !errors.Is(err, ErrSelfConversation) {
		t.Fatalf("Select(self) = %v", err)
	}
}

func TestInbox_LoadAndKeepDirectoryOnFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.add(model.Message{SenderID: 2, ReceiverID: 1, Content: "hi"})
	in, _ := newInbox(t, store, 1, time.Hour)

	if err := in.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(in.Directory()) != 1 {
		t.Fatalf("directory = %+v", in.Directory())
	}
	if got := in.Recipients(); len(got) != 4 {
		t.Errorf("recipients = %d, want 4 (viewer excluded)", len(got))
	}

	store.mu.Lock()
	store.listErr = errTransport
	store.mu.Unlock()
	dir, err := in.ReloadDirectory(ctx)
	if !errors.Is(err, errTransport) {
		t.Fatalf("ReloadDirectory err = %v", err)
	}
	if len(dir) != 1 || len(in.Directory()) != 1 {
		t.Errorf("previous directory must survive a failed reload")
	}
}

func TestRecipientResolver(t *testing.T) {
	ctx := context.Background()
	r := NewRecipientResolver(academyRecipients(), 3)
	list, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, rc := range list {
		if rc.ID == 3 {
			t.Error("viewer must be excluded")
		}
	}
	if len(list) != 4 {
		t.Errorf("len = %d, want 4", len(list))
	}

	parentsOnly := NewRecipientResolver(academyRecipients(), 3, model.RoleParent)
	if got, _ := parentsOnly.List(ctx); len(got) != 1 || got[0].ID != 4 {
		t.Errorf("role filter = %+v", got)
	}

	found, err := r.Search(ctx, "COACH")
	if err != nil || len(found) != 1 || found[0].ID != 5 {
		t.Errorf("Search = %+v, %v", found, err)
	}

	broken := NewRecipientResolver(staticRecipients{err: errTransport}, 3)
	if _, err := broken.Search(ctx, "x"); !errors.Is(err, errTransport) {
		t.Errorf("Search err = %v", err)
	}
}
