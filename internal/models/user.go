// models содержит доменные сущности сервиса.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import "time"

const (
	// RoleUser — роль по умолчанию для новых пользователей.
	RoleUser = "user"
	// RoleAdmin управляет чужими учётными записями, ролями и активностью.
	RoleAdmin = "admin"
)

// User — учётная запись.
// PasswordHash пустой у пользователей, созданных через Google: такие
// пользователи не могут войти по паролю. GoogleID пустой, если аккаунт
// не привязан к Google.
type User struct {
	ID           int64
	Name         string
	Email        string
	Role         string
	IsActive     bool
	PasswordHash string
	GoogleID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserInfo — публичная проекция пользователя. Не содержит хэша пароля и GoogleID.
type UserInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// Info возвращает публичную проекцию пользователя.
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

// UserCreate — входные данные для создания пользователя.
type UserCreate struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UserUpdate — частичное обновление: nil-поле остаётся без изменений.
// Password — открытый пароль, хэшируется сервисом; в хранилище
// передаётся уже PasswordHash.
type UserUpdate struct {
	Name         *string
	Email        *string
	Role         *string
	IsActive     *bool
	Password     *string
	PasswordHash *string
	GoogleID     *string
}

// IsEmpty сообщает, что обновлять нечего.
func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Role == nil && u.IsActive == nil &&
		u.Password == nil && u.PasswordHash == nil && u.GoogleID == nil
}
