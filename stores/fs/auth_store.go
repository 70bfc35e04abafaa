package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	al "github.com/authlink/authlink"
)

// AuthStore stores auth records as JSON files, one per record. Criteria
// scans walk the whole directory and pick the oldest matching record, so
// store order is insertion order regardless of filename.
type AuthStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewAuthStore(storagePath string) *AuthStore {
	return &AuthStore{StoragePath: storagePath}
}

func (s *AuthStore) authDir() string {
	return filepath.Join(s.StoragePath, "auths")
}

func (s *AuthStore) authPath(id string) string {
	return filepath.Join(s.authDir(), id+".json")
}

func (s *AuthStore) FindOne(ctx context.Context, criteria al.AuthCriteria, withOwner bool) (*al.Auth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	auth, err := s.findOne(criteria)
	if err != nil || auth == nil {
		return nil, err
	}

	if withOwner && auth.UserID != "" {
		owner, err := readUser(s.StoragePath, auth.UserID)
		if err != nil {
			return nil, err
		}
		auth.Owner = owner
	}
	return auth, nil
}

func (s *AuthStore) findOne(criteria al.AuthCriteria) (*al.Auth, error) {
	// Id lookups skip the scan.
	if criteria.ID != "" {
		auth, err := s.readAuth(criteria.ID)
		if err != nil || auth == nil {
			return nil, err
		}
		if matchAuth(auth, criteria) {
			return auth, nil
		}
		return nil, nil
	}

	entries, err := os.ReadDir(s.authDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	// Store order is insertion order: the oldest matching record wins.
	var found *al.Auth
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		auth, err := s.readAuth(idFromFilename(entry.Name()))
		if err != nil {
			return nil, err
		}
		if auth == nil || !matchAuth(auth, criteria) {
			continue
		}
		if found == nil || auth.CreatedAt.Before(found.CreatedAt) ||
			(auth.CreatedAt.Equal(found.CreatedAt) && auth.ID < found.ID) {
			found = auth
		}
	}
	return found, nil
}

func (s *AuthStore) FindOrCreate(ctx context.Context, criteria al.AuthCriteria, attrs al.AuthAttributes) (*al.Auth, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	auth, err := s.findOne(criteria)
	if err != nil {
		return nil, false, err
	}
	if auth != nil {
		return auth, false, nil
	}

	now := time.Now()
	auth = &al.Auth{
		ID:        uuid.NewString(),
		Provider:  attrs.Provider,
		Email:     attrs.Email,
		Username:  attrs.Username,
		Extra:     attrs.Extra,
		UserID:    attrs.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writeAuth(auth); err != nil {
		return nil, false, err
	}
	return auth, true, nil
}

func (s *AuthStore) Update(ctx context.Context, id string, patch al.AuthPatch) (*al.Auth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	auth, err := s.readAuth(id)
	if err != nil {
		return nil, err
	}
	if auth == nil {
		return nil, os.ErrNotExist
	}

	if patch.UserID != nil {
		auth.UserID = *patch.UserID
	}
	if patch.Email != nil {
		auth.Email = *patch.Email
	}
	if patch.Username != nil {
		auth.Username = *patch.Username
	}
	if patch.Extra != nil {
		auth.Extra = patch.Extra
	}
	auth.UpdatedAt = time.Now()

	if err := s.writeAuth(auth); err != nil {
		return nil, err
	}
	return auth, nil
}

func (s *AuthStore) readAuth(id string) (*al.Auth, error) {
	data, err := os.ReadFile(s.authPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var auth al.Auth
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

func (s *AuthStore) writeAuth(auth *al.Auth) error {
	path := s.authPath(auth.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(auth, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

func matchAuth(auth *al.Auth, criteria al.AuthCriteria) bool {
	if criteria.ID != "" && auth.ID != criteria.ID {
		return false
	}
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

func idFromFilename(name string) string {
	if len(name) > len(".json") && name[len(name)-len(".json"):] == ".json" {
		return name[:len(name)-len(".json")]
	}
	return name
}
