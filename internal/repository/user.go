package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academyportal/internal/logger"
	"github.com/academyportal/internal/model"
	"github.com/academyportal/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound совпадает с storage.ErrNotFound, чтобы обработчики проверяли одну ошибку.
var ErrNotFound = storage.ErrNotFound

const userCols = `id, name, email, role, created_at, disabled_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// scanUser сканирует строку в model.User (порядок соответствует userCols).
func scanUser(s interface{ Scan(dest ...any) error }, u *model.User) error {
	var role string
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt, &u.DisabledAt); err != nil {
		return err
	}
	u.Role = model.Role(role)
	return nil
}

// Upsert создаёт пользователя с заданным id или обновляет имя, email и роль.
// Используется для демо-данных в режиме -dev.
func (r *UserRepository) Upsert(ctx context.Context, u *model.User) error {
	defer logger.DeferLogDuration("user.Upsert", time.Now())()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, role, created_at, disabled_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role`,
		u.ID, u.Name, u.Email, string(u.Role), u.CreatedAt, u.DisabledAt,
	)
	if err != nil {
		return fmt.Errorf("userRepo.Upsert: %w", err)
	}
	// BIGSERIAL не знает о явно вставленных id.
	if _, err := r.pool.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT MAX(id) FROM users), 1))`); err != nil {
		return fmt.Errorf("userRepo.Upsert setval: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByID", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return u, nil
}

// ListActive — не отключённые пользователи по имени, для списка адресатов.
func (r *UserRepository) ListActive(ctx context.Context) ([]model.Recipient, error) {
	defer logger.DeferLogDuration("user.ListActive", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, role FROM users WHERE disabled_at IS NULL ORDER BY lower(name), id`)
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListActive: %w", err)
	}
	defer rows.Close()
	list := make([]model.Recipient, 0, 64)
	for rows.Next() {
		var rc model.Recipient
		var role string
		if err := rows.Scan(&rc.ID, &rc.Name, &role); err != nil {
			return nil, fmt.Errorf("userRepo.ListActive scan: %w", err)
		}
		rc.Role = model.Role(role)
		list = append(list, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepo.ListActive rows: %w", err)
	}
	return list, nil
}

var (
	_ storage.MessageStore = (*MessageRepository)(nil)
	_ storage.UserStore    = (*UserRepository)(nil)
)
