package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	al "github.com/authlink/authlink"
)

// UserStore stores user records as JSON files. The auths relation is
// derived: population scans the auth directory for matching owner ids and
// orders the result by creation time.
type UserStore struct {
	StoragePath string
}

func NewUserStore(storagePath string) *UserStore {
	return &UserStore{StoragePath: storagePath}
}

func userDir(storagePath string) string {
	return filepath.Join(storagePath, "users")
}

func userPath(storagePath, id string) string {
	return filepath.Join(userDir(storagePath), id+".json")
}

func (s *UserStore) Create(ctx context.Context, attrs al.UserAttributes) (*al.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	user := &al.User{
		ID:        uuid.NewString(),
		Username:  attrs.Username,
		Email:     attrs.Email,
		Extra:     attrs.Extra,
		CreatedAt: now,
		UpdatedAt: now,
	}

	path := userPath(s.StoragePath, user.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeAtomicFile(path, data); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserStore) FindOne(ctx context.Context, criteria al.UserCriteria, withAuths bool) (*al.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user, err := s.findOne(criteria)
	if err != nil || user == nil {
		return nil, err
	}

	if withAuths {
		auths, err := s.authsForUser(user.ID)
		if err != nil {
			return nil, err
		}
		user.Auths = auths
	}
	return user, nil
}

func (s *UserStore) findOne(criteria al.UserCriteria) (*al.User, error) {
	if criteria.ID != "" {
		user, err := readUser(s.StoragePath, criteria.ID)
		if err != nil || user == nil {
			return nil, err
		}
		if matchUser(user, criteria) {
			return user, nil
		}
		return nil, nil
	}

	entries, err := os.ReadDir(userDir(s.StoragePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		user, err := readUser(s.StoragePath, idFromFilename(entry.Name()))
		if err != nil {
			return nil, err
		}
		if user != nil && matchUser(user, criteria) {
			return user, nil
		}
	}
	return nil, nil
}

func (s *UserStore) authsForUser(userID string) ([]*al.Auth, error) {
	authsDir := filepath.Join(s.StoragePath, "auths")
	entries, err := os.ReadDir(authsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var auths []*al.Auth
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(authsDir, entry.Name()))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		var auth al.Auth
		if err := json.Unmarshal(data, &auth); err != nil {
			return nil, err
		}
		if auth.UserID == userID {
			a := auth
			auths = append(auths, &a)
		}
	}

	sort.Slice(auths, func(i, j int) bool {
		return auths[i].CreatedAt.Before(auths[j].CreatedAt)
	})
	return auths, nil
}

func readUser(storagePath, id string) (*al.User, error) {
	data, err := os.ReadFile(userPath(storagePath, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var user al.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func matchUser(user *al.User, criteria al.UserCriteria) bool {
	if criteria.ID != "" && user.ID != criteria.ID {
		return false
	}
	if criteria.Email != "" && user.Email != criteria.Email {
		return false
	}
	if criteria.Username != "" && user.Username != criteria.Username {
		return false
	}
	return true
}
