package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academyportal/internal/config"
	"github.com/academyportal/internal/conversation"
	"github.com/academyportal/internal/logger"
	"github.com/academyportal/internal/model"
	"github.com/academyportal/internal/portalapi"
	"github.com/academyportal/internal/session"
)

type globalOptions struct {
	apiURL      string
	sessionPath string
}

// env — настроенные конфиг, сессия и клиент API для одной команды.
type env struct {
	cfg     *config.Config
	session *session.File
	client  *portalapi.Client
}

func loadEnv(opts *globalOptions) (*env, error) {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	if opts.apiURL != "" {
		cfg.Client.APIBaseURL = opts.apiURL
	}
	if opts.sessionPath != "" {
		cfg.Client.SessionPath = opts.sessionPath
	}
	sess := session.NewFile(cfg.Client.SessionPath)
	tok, err := sess.Token()
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return nil, err
	}
	return &env{
		cfg:     cfg,
		session: sess,
		client:  portalapi.NewClient(cfg.Client.APIBaseURL, tok, cfg.Client.RequestTimeout),
	}, nil
}

// pollInterval — интервал сервера, если он доступен, иначе из конфига.
func (e *env) pollInterval(ctx context.Context) time.Duration {
	d, err := e.client.PollInterval(ctx)
	if err != nil || d <= 0 {
		if err != nil {
			logger.Debugf("client config unavailable, using %v: %v", e.cfg.Client.PollInterval, err)
		}
		return e.cfg.Client.PollInterval
	}
	return d
}

// openInbox создаёт Inbox текущего пользователя. Без сессии — подсказка про login.
func (e *env) openInbox(ctx context.Context, view conversation.ThreadView, roles ...model.Role) (*conversation.Inbox, error) {
	in, err := conversation.New(conversation.Options{
		Store:        e.client,
		Recipients:   e.client,
		Session:      e.session,
		View:         view,
		PollInterval: e.pollInterval(ctx),
		Roles:        roles,
	})
	if errors.Is(err, conversation.ErrNoIdentity) {
		return nil, fmt.Errorf("not logged in: run 'portalctl login --token <token>'")
	}
	return in, err
}
