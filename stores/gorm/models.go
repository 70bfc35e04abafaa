//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	al "github.com/authlink/authlink"
)

// JSONMap is a helper type for storing JSON maps in GORM
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, m)
}

// AuthModel is the GORM model for auth records
type AuthModel struct {
	ID        string     `gorm:"primaryKey;size:64"`
	Provider  string     `gorm:"size:32;index:idx_auths_provider_email"`
	Email     string     `gorm:"size:255;index:idx_auths_provider_email"`
	Username  string     `gorm:"size:255"`
	Extra     JSONMap    `gorm:"type:jsonb"`
	UserID    string     `gorm:"size:64;index"`
	User      *UserModel `gorm:"foreignKey:UserID"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (AuthModel) TableName() string {
	return "auths"
}

func (m *AuthModel) ToAuth() *al.Auth {
	auth := &al.Auth{
		ID:        m.ID,
		Provider:  m.Provider,
		Email:     m.Email,
		Username:  m.Username,
		Extra:     m.Extra,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.User != nil {
		auth.Owner = m.User.ToUser()
	}
	return auth
}

func AuthToModel(a *al.Auth) *AuthModel {
	return &AuthModel{
		ID:        a.ID,
		Provider:  a.Provider,
		Email:     a.Email,
		Username:  a.Username,
		Extra:     JSONMap(a.Extra),
		UserID:    a.UserID,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// UserModel is the GORM model for user records
type UserModel struct {
	ID        string      `gorm:"primaryKey;size:64"`
	Username  string      `gorm:"size:255"`
	Email     string      `gorm:"size:255;index"`
	Extra     JSONMap     `gorm:"type:jsonb"`
	Auths     []AuthModel `gorm:"foreignKey:UserID"`
	CreatedAt time.Time   `gorm:"autoCreateTime"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *al.User {
	user := &al.User{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		Extra:     m.Extra,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for i := range m.Auths {
		user.Auths = append(user.Auths, m.Auths[i].ToAuth())
	}
	return user
}
