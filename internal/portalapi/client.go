// Package portalapi — HTTP-клиент REST API сообщений портала.
package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/academyportal/internal/model"
)

// StatusError — сервер ответил не-2xx.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("portal api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("portal api: %d %s", e.Status, e.Message)
}

// IsStatus сообщает, что err — StatusError с кодом code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == code
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient — timeout ограничивает каждый запрос; 0 — 10 секунд.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListConversations(ctx context.Context, viewerID int64) ([]model.Message, error) {
	var out []model.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages/user/"+id(viewerID), nil, &out); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out, nil
}

func (c *Client) ListThread(ctx context.Context, viewerID, partnerID int64) ([]model.Message, error) {
	var out []model.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages/thread/"+id(viewerID)+"/"+id(partnerID), nil, &out); err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	return out, nil
}

func (c *Client) Send(ctx context.Context, senderID, receiverID int64, content string) (*model.Message, error) {
	req := model.SendMessageRequest{SenderID: senderID, ReceiverID: receiverID, Content: content}
	var out model.Message
	if err := c.do(ctx, http.MethodPost, "/api/messages", req, &out); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &out, nil
}

func (c *Client) MarkRead(ctx context.Context, messageID int64) error {
	if err := c.do(ctx, http.MethodPut, "/api/messages/"+id(messageID)+"/read", nil, nil); err != nil {
		return fmt.Errorf("mark read %d: %w", messageID, err)
	}
	return nil
}

func (c *Client) ListRecipients(ctx context.Context) ([]model.Recipient, error) {
	var out []model.Recipient
	if err := c.do(ctx, http.MethodGet, "/api/users/recipients", nil, &out); err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return out, nil
}

// Me — профиль владельца токена.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &out, nil
}

// PollInterval — период опроса, рекомендованный сервером; 0, если сервер его не отдал.
func (c *Client) PollInterval(ctx context.Context) (time.Duration, error) {
	var out struct {
		PollIntervalSeconds int `json:"poll_interval_seconds"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/config/client", nil, &out); err != nil {
		return 0, fmt.Errorf("client config: %w", err)
	}
	return time.Duration(out.PollIntervalSeconds) * time.Second, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &StatusError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func id(n int64) string { return strconv.FormatInt(n, 10) }
