package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/academyportal/internal/logger"
	"github.com/academyportal/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// messageSelect — сообщение с подписями отправителя и получателя.
// LEFT JOIN: удалённый пользователь не прячет историю, подписи будут пустыми.
const messageSelect = `SELECT m.id, m.sender_id, m.receiver_id, m.content, m.sent_at, m.read,
        COALESCE(s.name, ''), COALESCE(s.role, ''), COALESCE(r.name, ''), COALESCE(r.role, '')
 FROM messages m
 LEFT JOIN users s ON s.id = m.sender_id
 LEFT JOIN users r ON r.id = m.receiver_id`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }, m *model.Message) error {
	var senderRole, receiverRole string
	if err := s.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.SentAt, &m.Read,
		&m.SenderName, &senderRole, &m.ReceiverName, &receiverRole); err != nil {
		return err
	}
	m.SenderRole, m.ReceiverRole = model.Role(senderRole), model.Role(receiverRole)
	return nil
}

func collectMessages(rows pgx.Rows, op string) ([]model.Message, error) {
	defer rows.Close()
	messages := make([]model.Message, 0, 32)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("msgRepo.%s scan: %w", op, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.%s rows: %w", op, err)
	}
	return messages, nil
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx,
		`WITH ins AS (
		   INSERT INTO messages (sender_id, receiver_id, content, sent_at, read)
		   VALUES ($1, $2, $3, $4, false)
		   RETURNING id
		 )
		 SELECT ins.id, COALESCE(s.name, ''), COALESCE(s.role, ''), COALESCE(r.name, ''), COALESCE(r.role, '')
		 FROM ins
		 LEFT JOIN users s ON s.id = $1
		 LEFT JOIN users r ON r.id = $2`,
		m.SenderID, m.ReceiverID, m.Content, m.SentAt,
	).Scan(&m.ID, &m.SenderName, (*string)(&m.SenderRole), &m.ReceiverName, (*string)(&m.ReceiverRole))
	if err != nil {
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	m.Read = false
	return nil
}

// ListByParticipant — все сообщения пользователя (входящие и исходящие), старые первыми.
func (r *MessageRepository) ListByParticipant(ctx context.Context, userID int64) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListByParticipant", time.Now())()
	rows, err := r.pool.Query(ctx,
		messageSelect+`
		 WHERE m.sender_id = $1 OR m.receiver_id = $1
		 ORDER BY m.sent_at ASC, m.id ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByParticipant query: %w", err)
	}
	return collectMessages(rows, "ListByParticipant")
}

func (r *MessageRepository) ListThread(ctx context.Context, userID, partnerID int64) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListThread", time.Now())()
	rows, err := r.pool.Query(ctx,
		messageSelect+`
		 WHERE (m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1)
		 ORDER BY m.sent_at ASC, m.id ASC`, userID, partnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListThread query: %w", err)
	}
	return collectMessages(rows, "ListThread")
}

// MarkRead отмечает сообщение прочитанным. Только получатель; повтор не ошибка.
func (r *MessageRepository) MarkRead(ctx context.Context, messageID, receiverID int64) error {
	defer logger.DeferLogDuration("msg.MarkRead", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET read = true WHERE id = $1 AND receiver_id = $2`,
		messageID, receiverID,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.MarkRead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
