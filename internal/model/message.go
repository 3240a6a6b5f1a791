package model

import "time"

// Message — сообщение один-на-один. После сохранения меняется только флаг Read (false → true, один раз).
type Message struct {
	ID           int64     `json:"id"`
	SenderID     int64     `json:"sender_id"`
	ReceiverID   int64     `json:"receiver_id"`
	SenderName   string    `json:"sender_name"`
	ReceiverName string    `json:"receiver_name"`
	SenderRole   Role      `json:"sender_role"`
	ReceiverRole Role      `json:"receiver_role"`
	Content      string    `json:"content"`
	SentAt       time.Time `json:"sent_at"`
	Read         bool      `json:"read"`
}

// Involves сообщает, участвует ли userID в сообщении (как отправитель или получатель).
func (m *Message) Involves(userID int64) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// PartnerOf возвращает id собеседника относительно viewerID.
func (m *Message) PartnerOf(viewerID int64) int64 {
	if m.SenderID == viewerID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Newer — строгий порядок "позже": по SentAt, при равенстве по ID.
func (m *Message) Newer(other *Message) bool {
	if !m.SentAt.Equal(other.SentAt) {
		return m.SentAt.After(other.SentAt)
	}
	return m.ID > other.ID
}

// ConversationSummary — строка списка диалогов (вычисляется, не хранится).
type ConversationSummary struct {
	PartnerID          int64     `json:"partner_id"`
	PartnerName        string    `json:"partner_name"`
	PartnerRole        Role      `json:"partner_role"`
	LastMessageID      int64     `json:"last_message_id"`
	LastMessageContent string    `json:"last_message_content"`
	LastMessageTime    time.Time `json:"last_message_time"`
	UnreadCount        int       `json:"unread_count"`
}

type SendMessageRequest struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}
