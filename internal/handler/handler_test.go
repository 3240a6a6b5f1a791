package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/academyportal/internal/auth"
	"github.com/academyportal/internal/config"
	"github.com/academyportal/internal/metrics"
	"github.com/academyportal/internal/model"
	"github.com/academyportal/internal/storage/memory"
)

const testSecret = "handler-test-secret"

type fixture struct {
	store  *memory.Client
	router http.Handler
	tokens map[int64]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Auth:               config.AuthConfig{Secret: testSecret},
		RateLimit:          config.RateLimitConfig{RPS: 1000, Burst: 1000},
		Cache:              config.CacheConfig{TTLMinutes: 10},
		Client:             config.ClientConfig{PollInterval: 5 * time.Second},
		CORSAllowedOrigins: "*",
	}
	store := memory.NewDemo()
	f := &fixture{
		store:  store,
		router: NewRouter(Deps{Config: cfg, Messages: store, Users: store, Cache: store, Metrics: metrics.New()}),
		tokens: make(map[int64]string),
	}
	for _, u := range memory.DemoUsers() {
		tok, err := auth.Issue(testSecret, model.SessionUser{ID: u.ID, Name: u.Name, Role: u.Role}, time.Hour)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		f.tokens[u.ID] = tok
	}
	return f
}

func (f *fixture) do(t *testing.T, as int64, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if as != 0 {
		req.Header.Set("Authorization", "Bearer "+f.tokens[as])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		as   int64
		body string
		want int
	}{
		{"unauthenticated", 0, `{"sender_id":3,"receiver_id":4,"content":"hi"}`, http.StatusUnauthorized},
		{"spoofed sender", 3, `{"sender_id":2,"receiver_id":4,"content":"hi"}`, http.StatusForbidden},
		{"blank content", 3, `{"sender_id":3,"receiver_id":4,"content":"   "}`, http.StatusBadRequest},
		{"self", 3, `{"sender_id":3,"receiver_id":3,"content":"note"}`, http.StatusBadRequest},
		{"unknown receiver", 3, `{"sender_id":3,"receiver_id":99,"content":"hi"}`, http.StatusNotFound},
		{"malformed", 3, `{"sender_id":`, http.StatusBadRequest},
		{"ok", 3, `{"sender_id":3,"receiver_id":4,"content":"  Practice at 5  "}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.as, http.MethodPost, "/api/messages", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	got, _ := f.store.ListThread(context.Background(), 3, 4)
	if len(got) != 1 {
		t.Fatalf("stored = %d messages, want 1", len(got))
	}
	if got[0].Content != "Practice at 5" {
		t.Errorf("content = %q, want trimmed", got[0].Content)
	}
}

func TestSend_ResponseBody(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, 4, http.MethodPost, "/api/messages", `{"sender_id":4,"receiver_id":3,"content":"Is practice on?"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var m model.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.ID == 0 || m.SenderName != "Parent Bo" || m.ReceiverName != "Coach Anna" || m.Read {
		t.Errorf("unexpected message %+v", m)
	}
}

func TestListForUser_OnlySelf(t *testing.T) {
	f := newFixture(t)
	f.store.AddMessage(model.Message{SenderID: 3, ReceiverID: 4, Content: "a", SentAt: time.Now()})

	if rec := f.do(t, 4, http.MethodGet, "/api/messages/user/3", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign list status = %d, want 403", rec.Code)
	}
	rec := f.do(t, 4, http.MethodGet, "/api/messages/user/4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []model.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}

	// Пустой список — [] а не null.
	rec = f.do(t, 1, http.MethodGet, "/api/messages/user/1", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty body = %q, want []", rec.Body.String())
	}
}

func TestGetThread(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f.store.AddMessage(model.Message{SenderID: 4, ReceiverID: 3, Content: "second", SentAt: base.Add(time.Minute)})
	f.store.AddMessage(model.Message{SenderID: 3, ReceiverID: 4, Content: "first", SentAt: base})
	f.store.AddMessage(model.Message{SenderID: 2, ReceiverID: 3, Content: "other", SentAt: base})

	rec := f.do(t, 3, http.MethodGet, "/api/messages/thread/3/4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []model.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].Content != "first" || list[1].Content != "second" {
		t.Fatalf("thread = %+v", list)
	}
	if rec := f.do(t, 3, http.MethodGet, "/api/messages/thread/4/3", ""); rec.Code != http.StatusForbidden {
		t.Errorf("foreign thread status = %d, want 403", rec.Code)
	}
	if rec := f.do(t, 3, http.MethodGet, "/api/messages/thread/3/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad partner status = %d, want 400", rec.Code)
	}
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	m := f.store.AddMessage(model.Message{SenderID: 3, ReceiverID: 4, Content: "hi", SentAt: time.Now()})
	path := "/api/messages/" + strconv.FormatInt(m.ID, 10) + "/read"

	if rec := f.do(t, 3, http.MethodPut, path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("sender mark read status = %d, want 404", rec.Code)
	}
	for i := 0; i < 2; i++ {
		if rec := f.do(t, 4, http.MethodPut, path, ""); rec.Code != http.StatusOK {
			t.Fatalf("receiver mark read #%d status = %d, want 200", i, rec.Code)
		}
	}
	got, _ := f.store.ListThread(context.Background(), 3, 4)
	if !got[0].Read {
		t.Error("message should be read")
	}
	if rec := f.do(t, 4, http.MethodPut, "/api/messages/999/read", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}
}

func TestRecipients_ExcludesSelfAndUsesCache(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, 3, http.MethodGet, "/api/users/recipients", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []model.Recipient
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for _, r := range list {
		if r.ID == 3 {
			t.Error("viewer must not be in own recipient list")
		}
	}
	cached, err := f.store.GetRecipients(context.Background())
	if err != nil || len(cached) != 4 {
		t.Errorf("cache = %d entries (%v), want full active list of 4", len(cached), err)
	}
}

func TestMeAndClientConfig(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, 2, http.MethodGet, "/api/users/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	var u model.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.ID != 2 || u.Role != model.RoleManager {
		t.Errorf("me = %+v", u)
	}

	rec = f.do(t, 0, http.MethodGet, "/api/config/client", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("config status = %d", rec.Code)
	}
	var cc map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &cc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cc["poll_interval_seconds"] != 5 {
		t.Errorf("poll_interval_seconds = %d, want 5", cc["poll_interval_seconds"])
	}
}

type failingCache struct{}

func (failingCache) GetRecipients(context.Context) ([]model.Recipient, error) {
	return nil, errors.New("redis down")
}

func (failingCache) SetRecipients(context.Context, []model.Recipient, time.Duration) error {
	return errors.New("redis down")
}

func (failingCache) InvalidateRecipients(context.Context) error { return nil }
func (failingCache) Close() error                               { return nil }

func TestRecipients_CacheErrorFallsThrough(t *testing.T) {
	store := memory.NewDemo()
	h := NewUserHandler(store, failingCache{}, time.Minute, nil)
	list, err := h.activeRecipients(context.Background())
	if err != nil {
		t.Fatalf("activeRecipients: %v", err)
	}
	if len(list) != 4 {
		t.Errorf("len = %d, want 4 from store", len(list))
	}
}
