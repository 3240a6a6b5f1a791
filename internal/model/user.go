package model

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCoach   Role = "coach"
	RoleParent  Role = "parent"
	// RoleUnknown — подпись, когда роль собеседника не пришла с сервера.
	RoleUnknown Role = "user"
)

// UnknownName — подпись, когда имя собеседника отсутствует.
const UnknownName = "Unknown user"

// Valid сообщает, является ли роль одной из ролей академии.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCoach, RoleParent:
		return true
	}
	return false
}

type User struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	CreatedAt  time.Time  `json:"created_at"`
	DisabledAt *time.Time `json:"-"` // не null = пользователь отключён, писать ему нельзя
}

// Recipient — адресат для нового диалога (id, имя, роль).
type Recipient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (u *User) ToRecipient() Recipient {
	return Recipient{ID: u.ID, Name: u.Name, Role: u.Role}
}

// SessionUser — текущий пользователь из локальной сессии.
type SessionUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}
