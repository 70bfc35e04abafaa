//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	al "github.com/authlink/authlink"
)

// AutoMigrate runs database migrations for all authlink tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&AuthModel{},
	)
}

// =============================================================================
// AuthStore
// =============================================================================

// AuthStore implements al.AuthStore using GORM
type AuthStore struct {
	db *gorm.DB
}

func NewAuthStore(db *gorm.DB) *AuthStore {
	return &AuthStore{db: db}
}

func (s *AuthStore) FindOne(ctx context.Context, criteria al.AuthCriteria, withOwner bool) (*al.Auth, error) {
	q := s.db.WithContext(ctx).Where(authConds(criteria))
	if withOwner {
		q = q.Preload("User")
	}

	var model AuthModel
	if err := q.Order("created_at, id").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToAuth(), nil
}

func (s *AuthStore) FindOrCreate(ctx context.Context, criteria al.AuthCriteria, attrs al.AuthAttributes) (*al.Auth, bool, error) {
	var model AuthModel
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(authConds(criteria)).Order("created_at, id").First(&model).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		model = AuthModel{
			ID:       uuid.NewString(),
			Provider: attrs.Provider,
			Email:    attrs.Email,
			Username: attrs.Username,
			Extra:    JSONMap(attrs.Extra),
			UserID:   attrs.UserID,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return model.ToAuth(), created, nil
}

func (s *AuthStore) Update(ctx context.Context, id string, patch al.AuthPatch) (*al.Auth, error) {
	updates := map[string]any{"updated_at": time.Now()}
	if patch.UserID != nil {
		updates["user_id"] = *patch.UserID
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.Username != nil {
		updates["username"] = *patch.Username
	}
	if patch.Extra != nil {
		updates["extra"] = JSONMap(patch.Extra)
	}

	if err := s.db.WithContext(ctx).Model(&AuthModel{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	var model AuthModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return model.ToAuth(), nil
}

func authConds(c al.AuthCriteria) map[string]any {
	conds := map[string]any{}
	if c.ID != "" {
		conds["id"] = c.ID
	}
	if c.Provider != "" {
		conds["provider"] = c.Provider
	}
	if c.Email != "" {
		conds["email"] = c.Email
	}
	if c.Username != "" {
		conds["username"] = c.Username
	}
	if c.UserID != "" {
		conds["user_id"] = c.UserID
	}
	return conds
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements al.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, attrs al.UserAttributes) (*al.User, error) {
	model := &UserModel{
		ID:       uuid.NewString(),
		Username: attrs.Username,
		Email:    attrs.Email,
		Extra:    JSONMap(attrs.Extra),
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) FindOne(ctx context.Context, criteria al.UserCriteria, withAuths bool) (*al.User, error) {
	q := s.db.WithContext(ctx).Where(userConds(criteria))
	if withAuths {
		q = q.Preload("Auths", func(db *gorm.DB) *gorm.DB {
			return db.Order("auths.created_at")
		})
	}

	var model UserModel
	if err := q.Order("created_at, id").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func userConds(c al.UserCriteria) map[string]any {
	conds := map[string]any{}
	if c.ID != "" {
		conds["id"] = c.ID
	}
	if c.Email != "" {
		conds["email"] = c.Email
	}
	if c.Username != "" {
		conds["username"] = c.Username
	}
	return conds
}
