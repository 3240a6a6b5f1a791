package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/academyportal/internal/model"
)

// RecipientResolver — кому можно написать, независимо от истории переписки.
type RecipientResolver struct {
	src      RecipientSource
	viewerID int64
	roles    map[model.Role]bool
}

// NewRecipientResolver — roles сужает список до этих ролей; пусто — все роли.
func NewRecipientResolver(src RecipientSource, viewerID int64, roles ...model.Role) *RecipientResolver {
	r := &RecipientResolver{src: src, viewerID: viewerID}
	if len(roles) > 0 {
		r.roles = make(map[model.Role]bool, len(roles))
		for _, role := range roles {
			r.roles[role] = true
		}
	}
	return r
}

// List — все адресаты, кроме самого пользователя.
func (r *RecipientResolver) List(ctx context.Context) ([]model.Recipient, error) {
	all, err := r.src.ListRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	out := make([]model.Recipient, 0, len(all))
	for _, rc := range all {
		if rc.ID == r.viewerID || rc.ID <= 0 {
			continue
		}
		if r.roles != nil && !r.roles[rc.Role] {
			continue
		}
		out = append(out, rc)
	}
	return out, nil
}

func (r *RecipientResolver) Search(ctx context.Context, query string) ([]model.Recipient, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterRecipients(list, query), nil
}

// FilterRecipients — подстрока в имени без учёта регистра. Пустой запрос возвращает весь список.
func FilterRecipients(list []model.Recipient, query string) []model.Recipient {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Recipient, 0, len(list))
	for _, rc := range list {
		if q == "" || strings.Contains(strings.ToLower(rc.Name), q) {
			out = append(out, rc)
		}
	}
	return out
}
