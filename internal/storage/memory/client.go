package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/academyportal/internal/model"
	"github.com/academyportal/internal/storage"
)

type item struct {
	val []model.Recipient
	exp time.Time
}

// Client — хранилище в памяти процесса: сообщения, пользователи и кеш адресатов.
// Используется сервером в режиме -memory и в тестах.
type Client struct {
	mu       sync.RWMutex
	users    map[int64]model.User
	messages []model.Message
	nextID   int64
	cache    *item
	now      func() time.Time
}

func New() *Client {
	return &Client{
		users:  make(map[int64]model.User),
		nextID: 1,
		now:    time.Now,
	}
}

// NewDemo — хранилище с демо-пользователями академии (admin, manager, coach, parent).
func NewDemo() *Client {
	c := New()
	for _, u := range DemoUsers() {
		c.AddUser(u)
	}
	return c
}

// DemoUsers — учётки для локального запуска (-memory, -dev).
func DemoUsers() []model.User {
	return []model.User{
		{ID: 1, Name: "Academy Admin", Email: "admin@academy.local", Role: model.RoleAdmin},
		{ID: 2, Name: "Maria Manager", Email: "manager@academy.local", Role: model.RoleManager},
		{ID: 3, Name: "Coach Anna", Email: "coach@academy.local", Role: model.RoleCoach},
		{ID: 4, Name: "Parent Bo", Email: "parent@academy.local", Role: model.RoleParent},
	}
}

func (c *Client) Close() error { return nil }

// AddUser добавляет или заменяет пользователя.
func (c *Client) AddUser(u model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = c.now()
	}
	c.users[u.ID] = u
}

// AddMessage кладёт готовую запись как есть (тесты и сиды). ID выдаётся, если не задан.
func (c *Client) AddMessage(m model.Message) model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.ID == 0 {
		m.ID = c.nextID
	}
	if m.ID >= c.nextID {
		c.nextID = m.ID + 1
	}
	c.messages = append(c.messages, m)
	return m
}

func (c *Client) GetByID(ctx context.Context, id int64) (*model.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (c *Client) ListActive(ctx context.Context) ([]model.Recipient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]model.Recipient, 0, len(c.users))
	for _, u := range c.users {
		if u.DisabledAt != nil {
			continue
		}
		list = append(list, u.ToRecipient())
	}
	sort.Slice(list, func(i, j int) bool {
		ni, nj := strings.ToLower(list[i].Name), strings.ToLower(list[j].Name)
		if ni != nj {
			return ni < nj
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (c *Client) ListByParticipant(ctx context.Context, userID int64) ([]model.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Message
	for _, m := range c.messages {
		if m.Involves(userID) {
			out = append(out, c.labelled(m))
		}
	}
	sortChrono(out)
	return out, nil
}

func (c *Client) ListThread(ctx context.Context, userID, partnerID int64) ([]model.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Message
	for _, m := range c.messages {
		if (m.SenderID == userID && m.ReceiverID == partnerID) || (m.SenderID == partnerID && m.ReceiverID == userID) {
			out = append(out, c.labelled(m))
		}
	}
	sortChrono(out)
	return out, nil
}

func (c *Client) Create(ctx context.Context, m *model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m.ID = c.nextID
	c.nextID++
	if m.SentAt.IsZero() {
		m.SentAt = c.now().UTC()
	}
	m.Read = false
	c.messages = append(c.messages, *m)
	*m = c.labelled(*m)
	return nil
}

func (c *Client) MarkRead(ctx context.Context, messageID, receiverID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID == messageID && c.messages[i].ReceiverID == receiverID {
			c.messages[i].Read = true
			return nil
		}
	}
	return storage.ErrNotFound
}

func (c *Client) GetRecipients(ctx context.Context) ([]model.Recipient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cache == nil || c.now().After(c.cache.exp) {
		return nil, nil
	}
	return append([]model.Recipient(nil), c.cache.val...), nil
}

func (c *Client) SetRecipients(ctx context.Context, list []model.Recipient, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = &item{val: append([]model.Recipient(nil), list...), exp: c.now().Add(ttl)}
	return nil
}

func (c *Client) InvalidateRecipients(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = nil
	return nil
}

// labelled подставляет имена и роли из каталога пользователей. Вызывать под mu.
func (c *Client) labelled(m model.Message) model.Message {
	if u, ok := c.users[m.SenderID]; ok {
		m.SenderName, m.SenderRole = u.Name, u.Role
	}
	if u, ok := c.users[m.ReceiverID]; ok {
		m.ReceiverName, m.ReceiverRole = u.Name, u.Role
	}
	return m
}

func sortChrono(list []model.Message) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].SentAt.Equal(list[j].SentAt) {
			return list[i].SentAt.Before(list[j].SentAt)
		}
		return list[i].ID < list[j].ID
	})
}

var (
	_ storage.MessageStore   = (*Client)(nil)
	_ storage.UserStore      = (*Client)(nil)
	_ storage.RecipientCache = (*Client)(nil)
)
