package conversation

import (
	"sort"

	"github.com/academyportal/internal/model"
)

// BuildDirectory сворачивает сообщения пользователя в одну строку на собеседника.
//
// Строка собеседника строится по самому позднему сообщению (SentAt, при равенстве больший ID),
// порядок входа не важен. Непрочитанными считаются только сообщения от собеседника к viewerID.
// Записи без обоих id, чужие записи и сообщения самому себе пропускаются.
// Результат: по LastMessageTime от новых к старым, при равенстве по PartnerID.
func BuildDirectory(viewerID int64, msgs []model.Message) []model.ConversationSummary {
	if viewerID <= 0 {
		return nil
	}
	latest := make(map[int64]*model.Message)
	unread := make(map[int64]int)
	for i := range msgs {
		m := &msgs[i]
		if m.SenderID == 0 && m.ReceiverID == 0 {
			continue
		}
		if !m.Involves(viewerID) {
			continue
		}
		partnerID := m.PartnerOf(viewerID)
		if partnerID == viewerID || partnerID <= 0 {
			continue
		}
		if cur, ok := latest[partnerID]; !ok || m.Newer(cur) {
			latest[partnerID] = m
		}
		if m.ReceiverID == viewerID && !m.Read {
			unread[partnerID]++
		}
	}

	out := make([]model.ConversationSummary, 0, len(latest))
	for partnerID, m := range latest {
		out = append(out, summarize(viewerID, partnerID, m, unread[partnerID]))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageTime.Equal(out[j].LastMessageTime) {
			return out[i].LastMessageTime.After(out[j].LastMessageTime)
		}
		return out[i].PartnerID < out[j].PartnerID
	})
	return out
}

func summarize(viewerID, partnerID int64, m *model.Message, unread int) model.ConversationSummary {
	name, role := m.SenderName, m.SenderRole
	if m.SenderID == viewerID {
		name, role = m.ReceiverName, m.ReceiverRole
	}
	if name == "" {
		name = model.UnknownName
	}
	if role == "" {
		role = model.RoleUnknown
	}
	return model.ConversationSummary{
		PartnerID:          partnerID,
		PartnerName:        name,
		PartnerRole:        role,
		LastMessageID:      m.ID,
		LastMessageContent: m.Content,
		LastMessageTime:    m.SentAt,
		UnreadCount:        unread,
	}
}

// TotalUnread — сумма непрочитанных по всем диалогам.
func TotalUnread(dir []model.ConversationSummary) int {
	n := 0
	for _, s := range dir {
		n += s.UnreadCount
	}
	return n
}
