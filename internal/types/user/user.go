package user

import (
	"fmt"

	myErr "feedback-portal/internal/types/errors"
)

// Role роль пользователя, выдаваемая бэкендом
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole проверяет строку роли, пришедшую от бэкенда
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	}

	return "", fmt.Errorf("%w: %q", myErr.ErrInvalidRole, s)
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Identity ответ /users/me
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Credentials форма входа и регистрации
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
