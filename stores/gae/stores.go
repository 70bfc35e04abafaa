//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	al "github.com/authlink/authlink"
)

// =============================================================================
// AuthStore
// =============================================================================

// AuthStore implements al.AuthStore using Google Cloud Datastore
type AuthStore struct {
	client    *datastore.Client
	namespace string
}

// NewAuthStore creates a new Datastore-backed AuthStore
func NewAuthStore(client *datastore.Client, namespace string) *AuthStore {
	return &AuthStore{client: client, namespace: namespace}
}

func (s *AuthStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *AuthStore) newQuery(kind string) *datastore.Query {
	return datastore.NewQuery(kind).Namespace(s.namespace)
}

func (s *AuthStore) FindOne(ctx context.Context, criteria al.AuthCriteria, withOwner bool) (*al.Auth, error) {
	auth, err := s.findOne(ctx, criteria)
	if err != nil || auth == nil {
		return nil, err
	}

	if withOwner && auth.UserID != "" {
		var entity UserEntity
		key := s.namespacedKey(KindUser, auth.UserID)
		if err := s.client.Get(ctx, key, &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return auth, nil
			}
			return nil, err
		}
		auth.Owner = entity.ToUser()
	}
	return auth, nil
}

func (s *AuthStore) findOne(ctx context.Context, criteria al.AuthCriteria) (*al.Auth, error) {
	if criteria.ID != "" {
		var entity AuthEntity
		if err := s.client.Get(ctx, s.namespacedKey(KindAuth, criteria.ID), &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return nil, nil
			}
			return nil, err
		}
		auth := entity.ToAuth()
		if !matchAuth(auth, criteria) {
			return nil, nil
		}
		return auth, nil
	}

	query := s.newQuery(KindAuth)
	if criteria.Provider != "" {
		query = query.FilterField("provider", "=", criteria.Provider)
	}
	if criteria.Email != "" {
		query = query.FilterField("email", "=", criteria.Email)
	}
	if criteria.Username != "" {
		query = query.FilterField("username", "=", criteria.Username)
	}
	if criteria.UserID != "" {
		query = query.FilterField("user_id", "=", criteria.UserID)
	}
	query = query.Order("created_at").Order("__key__").Limit(1)

	it := s.client.Run(ctx, query)
	var entity AuthEntity
	if _, err := it.Next(&entity); err != nil {
		if err == iterator.Done {
			return nil, nil
		}
		return nil, err
	}
	return entity.ToAuth(), nil
}

func (s *AuthStore) FindOrCreate(ctx context.Context, criteria al.AuthCriteria, attrs al.AuthAttributes) (*al.Auth, bool, error) {
	if auth, err := s.findOne(ctx, criteria); auth != nil || err != nil {
		return auth, false, err
	}

	newID := uuid.NewString()
	resolvedID := newID
	created := false
	idxKey := s.namespacedKey(KindAuthIndex, criteriaKey(criteria))

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		created = false
		var idx AuthIndexEntity
		err := tx.Get(idxKey, &idx)
		if err == nil {
			resolvedID = idx.AuthID
			return nil
		}
		if err != datastore.ErrNoSuchEntity {
			return err
		}

		now := time.Now()
		entity := &AuthEntity{
			Provider:  attrs.Provider,
			Email:     attrs.Email,
			Username:  attrs.Username,
			Extra:     encodeExtra(attrs.Extra),
			UserID:    attrs.UserID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.Put(s.namespacedKey(KindAuth, newID), entity); err != nil {
			return err
		}
		if _, err := tx.Put(idxKey, &AuthIndexEntity{AuthID: newID}); err != nil {
			return err
		}
		resolvedID = newID
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	auth, err := s.findOne(ctx, al.AuthCriteria{ID: resolvedID})
	if err != nil {
		return nil, false, err
	}
	if auth == nil {
		return nil, false, fmt.Errorf("auth not found after find-or-create: %s", resolvedID)
	}
	return auth, created, nil
}

func (s *AuthStore) Update(ctx context.Context, id string, patch al.AuthPatch) (*al.Auth, error) {
	key := s.namespacedKey(KindAuth, id)
	var entity AuthEntity

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := tx.Get(key, &entity); err != nil {
			return err
		}
		if patch.UserID != nil {
			entity.UserID = *patch.UserID
		}
		if patch.Email != nil {
			entity.Email = *patch.Email
		}
		if patch.Username != nil {
			entity.Username = *patch.Username
		}
		if patch.Extra != nil {
			entity.Extra = encodeExtra(patch.Extra)
		}
		entity.UpdatedAt = time.Now()
		_, err := tx.Put(key, &entity)
		return err
	})
	if err != nil {
		return nil, err
	}

	entity.Key = key
	return entity.ToAuth(), nil
}

func matchAuth(auth *al.Auth, criteria al.AuthCriteria) bool {
	if criteria.Provider != "" && auth.Provider != criteria.Provider {
		return false
	}
	if criteria.Email != "" && auth.Email != criteria.Email {
		return false
	}
	if criteria.Username != "" && auth.Username != criteria.Username {
		return false
	}
	if criteria.UserID != "" && auth.UserID != criteria.UserID {
		return false
	}
	return true
}

// criteriaKey builds the canonical find-or-create key for the index entity.
func criteriaKey(c al.AuthCriteria) string {
	parts := make([]string, 0, 5)
	if c.ID != "" {
		parts = append(parts, "id="+url.QueryEscape(c.ID))
	}
	if c.Provider != "" {
		parts = append(parts, "provider="+url.QueryEscape(c.Provider))
	}
	if c.Email != "" {
		parts = append(parts, "email="+url.QueryEscape(c.Email))
	}
	if c.Username != "" {
		parts = append(parts, "username="+url.QueryEscape(c.Username))
	}
	if c.UserID != "" {
		parts = append(parts, "user="+url.QueryEscape(c.UserID))
	}
	return strings.Join(parts, "&")
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements al.UserStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{client: client, namespace: namespace}
}

func (s *UserStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) newQuery(kind string) *datastore.Query {
	return datastore.NewQuery(kind).Namespace(s.namespace)
}

func (s *UserStore) Create(ctx context.Context, attrs al.UserAttributes) (*al.User, error) {
	id := uuid.NewString()
	key := s.namespacedKey(KindUser, id)

	now := time.Now()
	entity := &UserEntity{
		Username:  attrs.Username,
		Email:     attrs.Email,
		Extra:     encodeExtra(attrs.Extra),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.client.Put(ctx, key, entity); err != nil {
		return nil, err
	}

	entity.Key = key
	return entity.ToUser(), nil
}

func (s *UserStore) FindOne(ctx context.Context, criteria al.UserCriteria, withAuths bool) (*al.User, error) {
	user, err := s.findOne(ctx, criteria)
	if err != nil || user == nil {
		return nil, err
	}

	if withAuths {
		auths, err := s.authsForUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		user.Auths = auths
	}
	return user, nil
}

func (s *UserStore) findOne(ctx context.Context, criteria al.UserCriteria) (*al.User, error) {
	if criteria.ID != "" {
		var entity UserEntity
		if err := s.client.Get(ctx, s.namespacedKey(KindUser, criteria.ID), &entity); err != nil {
			if err == datastore.ErrNoSuchEntity {
				return nil, nil
			}
			return nil, err
		}
		return entity.ToUser(), nil
	}

	query := s.newQuery(KindUser)
	if criteria.Email != "" {
		query = query.FilterField("email", "=", criteria.Email)
	}
	if criteria.Username != "" {
		query = query.FilterField("username", "=", criteria.Username)
	}
	query = query.Order("__key__").Limit(1)

	it := s.client.Run(ctx, query)
	var entity UserEntity
	if _, err := it.Next(&entity); err != nil {
		if err == iterator.Done {
			return nil, nil
		}
		return nil, err
	}
	return entity.ToUser(), nil
}

func (s *UserStore) authsForUser(ctx context.Context, userID string) ([]*al.Auth, error) {
	query := s.newQuery(KindAuth).
		FilterField("user_id", "=", userID).
		Order("created_at")

	var auths []*al.Auth
	it := s.client.Run(ctx, query)
	for {
		var entity AuthEntity
		if _, err := it.Next(&entity); err != nil {
			if err == iterator.Done {
				break
			}
			return nil, err
		}
		auths = append(auths, entity.ToAuth())
	}
	return auths, nil
}
