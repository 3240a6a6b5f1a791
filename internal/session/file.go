// Package session хранит bearer-токен пользователя portalctl в локальном файле.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/academyportal/internal/auth"
	"github.com/academyportal/internal/model"
)

var ErrNoSession = errors.New("session: not logged in")

type fileData struct {
	Token string `json:"token"`
}

// File — сессия в JSON-файле {"token": "..."}.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

// Token возвращает сохранённый токен или ErrNoSession.
func (f *File) Token() (string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("session: read %s: %w", f.path, err)
	}
	var d fileData
	if err := json.Unmarshal(raw, &d); err != nil {
		return "", fmt.Errorf("session: parse %s: %w", f.path, err)
	}
	tok := strings.TrimSpace(d.Token)
	if tok == "" {
		return "", ErrNoSession
	}
	return tok, nil
}

// Save проверяет, что токен читается, и записывает его с правами 0600.
func (f *File) Save(token string) (*model.SessionUser, error) {
	token = strings.TrimSpace(token)
	claims, err := auth.Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: token has no user id", auth.ErrInvalidToken)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return nil, fmt.Errorf("session: mkdir: %w", err)
	}
	raw, err := json.MarshalIndent(fileData{Token: token}, "", "  ")
	if err != nil {
		return nil, err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return nil, fmt.Errorf("session: write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return nil, fmt.Errorf("session: rename: %w", err)
	}
	u := claims.User()
	return &u, nil
}

// Clear удаляет сессию; отсутствие файла не ошибка.
func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove: %w", err)
	}
	return nil
}

// CurrentUser — пользователь из сохранённого токена. Подпись не проверяется: это делает сервер.
func (f *File) CurrentUser() (*model.SessionUser, bool) {
	tok, err := f.Token()
	if err != nil {
		return nil, false
	}
	claims, err := auth.Decode(tok)
	if err != nil || claims.UserID <= 0 {
		return nil, false
	}
	u := claims.User()
	return &u, true
}
