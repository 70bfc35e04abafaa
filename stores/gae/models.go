//go:build !wasm
// +build !wasm

package gae

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/datastore"

	al "github.com/authlink/authlink"
)

// Kind constants for Datastore entities
const (
	KindAuth      = "Auth"
	KindUser      = "User"
	KindAuthIndex = "AuthIndex"
)

// AuthEntity is the Datastore entity for auth records
type AuthEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Provider  string         `datastore:"provider"`
	Email     string         `datastore:"email"`
	Username  string         `datastore:"username"`
	Extra     []byte         `datastore:"extra,noindex"` // JSON encoded
	UserID    string         `datastore:"user_id"`
	CreatedAt time.Time      `datastore:"created_at"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}

func (e *AuthEntity) ToAuth() *al.Auth {
	var extra map[string]any
	if len(e.Extra) > 0 {
		json.Unmarshal(e.Extra, &extra)
	}
	return &al.Auth{
		ID:        e.Key.Name,
		Provider:  e.Provider,
		Email:     e.Email,
		Username:  e.Username,
		Extra:     extra,
		UserID:    e.UserID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// AuthIndexEntity maps a canonical find-or-create key to an auth id so that
// get-or-insert can run inside a transaction (Datastore cannot query within
// a cross-group transaction).
type AuthIndexEntity struct {
	Key    *datastore.Key `datastore:"__key__"`
	AuthID string         `datastore:"auth_id"`
}

// UserEntity is the Datastore entity for user records
type UserEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Username  string         `datastore:"username"`
	Email     string         `datastore:"email"`
	Extra     []byte         `datastore:"extra,noindex"` // JSON encoded
	CreatedAt time.Time      `datastore:"created_at"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}

func (e *UserEntity) ToUser() *al.User {
	var extra map[string]any
	if len(e.Extra) > 0 {
		json.Unmarshal(e.Extra, &extra)
	}
	return &al.User{
		ID:        e.Key.Name,
		Username:  e.Username,
		Email:     e.Email,
		Extra:     extra,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func encodeExtra(extra map[string]any) []byte {
	if extra == nil {
		return nil
	}
	data, _ := json.Marshal(extra)
	return data
}
