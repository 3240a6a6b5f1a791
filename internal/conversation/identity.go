package conversation

import "github.com/academyportal/internal/model"

// SessionSource — локальная сессия (в portalctl это session.File).
type SessionSource interface {
	CurrentUser() (*model.SessionUser, bool)
}

// ResolveViewer возвращает текущего пользователя или ErrNoIdentity.
func ResolveViewer(src SessionSource) (model.SessionUser, error) {
	if src == nil {
		return model.SessionUser{}, ErrNoIdentity
	}
	u, ok := src.CurrentUser()
	if !ok || u == nil || u.ID <= 0 {
		return model.SessionUser{}, ErrNoIdentity
	}
	return *u, nil
}
