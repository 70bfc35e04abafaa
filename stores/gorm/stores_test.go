//go:build !wasm
// +build !wasm

package gorm_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	gormdb "gorm.io/gorm"
	"gorm.io/gorm/logger"

	al "github.com/authlink/authlink"
	algorm "github.com/authlink/authlink/stores/gorm"
)

func setupDB(t *testing.T) *gormdb.DB {
	path := filepath.Join(t.TempDir(), "authlink-test.db")
	db, err := gormdb.Open(sqlite.Open(path), &gormdb.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := algorm.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func TestAuthStoreRoundTrip(t *testing.T) {
	db := setupDB(t)
	auths := algorm.NewAuthStore(db)
	ctx := context.Background()

	missing, err := auths.FindOne(ctx, al.AuthCriteria{Provider: "google"}, false)
	if err != nil {
		t.Fatalf("Expected no error on empty table, got: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for no match, got %+v", missing)
	}

	criteria := al.AuthCriteria{Provider: "google", Email: "a@example.com"}
	attrs := al.AuthAttributes{Provider: "google", Email: "a@example.com", Username: "a",
		Extra: map[string]any{"access_token": "tok"}}

	first, created, err := auths.FindOrCreate(ctx, criteria, attrs)
	if err != nil {
		t.Fatalf("Failed to create auth: %v", err)
	}
	if !created || first.ID == "" {
		t.Errorf("Expected a created record with id, got created=%v %+v", created, first)
	}

	second, created, err := auths.FindOrCreate(ctx, criteria, attrs)
	if err != nil {
		t.Fatalf("Failed on repeat call: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("Expected same record on repeat call, got created=%v id=%s", created, second.ID)
	}

	found, err := auths.FindOne(ctx, al.AuthCriteria{ID: first.ID}, false)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found == nil || found.Extra["access_token"] != "tok" {
		t.Errorf("Expected extra bag to round-trip, got %+v", found)
	}
}

func TestAuthStoreUpdate(t *testing.T) {
	db := setupDB(t)
	auths := algorm.NewAuthStore(db)
	ctx := context.Background()

	created, _, err := auths.FindOrCreate(ctx,
		al.AuthCriteria{Provider: "google", Email: "b@example.com"},
		al.AuthAttributes{Provider: "google", Email: "b@example.com", Username: "b"})
	if err != nil {
		t.Fatalf("Failed to create auth: %v", err)
	}

	userID := "u-42"
	updated, err := auths.Update(ctx, created.ID, al.AuthPatch{
		UserID: &userID,
		Extra:  map[string]any{"access_token": "tok-2"},
	})
	if err != nil {
		t.Fatalf("Failed to update auth: %v", err)
	}
	if updated.UserID != "u-42" {
		t.Errorf("Expected user id patched, got %q", updated.UserID)
	}
	if updated.Email != "b@example.com" || updated.Username != "b" {
		t.Errorf("Expected unpatched fields preserved, got %+v", updated)
	}
	if updated.Extra["access_token"] != "tok-2" {
		t.Errorf("Expected extra replaced, got %v", updated.Extra)
	}
}

func TestAuthStoreOldestMatchWins(t *testing.T) {
	db := setupDB(t)
	auths := algorm.NewAuthStore(db)
	ctx := context.Background()

	older, _, err := auths.FindOrCreate(ctx,
		al.AuthCriteria{Provider: "local", Email: "dup@example.com"},
		al.AuthAttributes{Provider: "local", Email: "dup@example.com"})
	if err != nil {
		t.Fatalf("Failed to create first auth: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, _, err := auths.FindOrCreate(ctx,
		al.AuthCriteria{Provider: "google", Email: "dup@example.com"},
		al.AuthAttributes{Provider: "google", Email: "dup@example.com"}); err != nil {
		t.Fatalf("Failed to create second auth: %v", err)
	}

	found, err := auths.FindOne(ctx, al.AuthCriteria{Email: "dup@example.com"}, false)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found == nil || found.ID != older.ID {
		t.Errorf("Expected oldest record %s to win, got %+v", older.ID, found)
	}
}

func TestOwnerAndAuthsPopulation(t *testing.T) {
	db := setupDB(t)
	auths := algorm.NewAuthStore(db)
	users := algorm.NewUserStore(db)
	ctx := context.Background()

	user, err := users.Create(ctx, al.UserAttributes{Username: "carol", Email: "c@example.com"})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if _, _, err := auths.FindOrCreate(ctx,
		al.AuthCriteria{Provider: "local", UserID: user.ID},
		al.AuthAttributes{Provider: "local", UserID: user.ID}); err != nil {
		t.Fatalf("Failed to create first auth: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, _, err := auths.FindOrCreate(ctx,
		al.AuthCriteria{Provider: "google", UserID: user.ID},
		al.AuthAttributes{Provider: "google", UserID: user.ID, Email: "c@example.com"}); err != nil {
		t.Fatalf("Failed to create second auth: %v", err)
	}

	auth, err := auths.FindOne(ctx, al.AuthCriteria{Provider: "google", Email: "c@example.com"}, true)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if auth.Owner == nil || auth.Owner.ID != user.ID {
		t.Errorf("Expected owner populated, got %+v", auth.Owner)
	}

	full, err := users.FindOne(ctx, al.UserCriteria{ID: user.ID}, true)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(full.Auths) != 2 {
		t.Fatalf("Expected 2 auths, got %d", len(full.Auths))
	}
	if full.Auths[0].Provider != "local" || full.Auths[1].Provider != "google" {
		t.Errorf("Expected auths ordered by creation, got %s then %s",
			full.Auths[0].Provider, full.Auths[1].Provider)
	}
}

func TestEngineOverGormStores(t *testing.T) {
	db := setupDB(t)
	engine, err := al.New(algorm.NewAuthStore(db), algorm.NewUserStore(db))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	ctx := context.Background()

	seeded, err := engine.FindOrCreateAuth(ctx,
		al.AuthCriteria{Provider: "local", Email: "erin@example.com"},
		al.AuthAttributes{Provider: "local", Email: "erin@example.com", Username: "erin"})
	if err != nil {
		t.Fatalf("Failed to seed account: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	merged, err := engine.FindOrCreateAuth(ctx,
		al.AuthCriteria{Provider: "google", Email: "erin@example.com"},
		al.AuthAttributes{Provider: "google", Email: "erin@example.com"})
	if err != nil {
		t.Fatalf("Failed to resolve second provider: %v", err)
	}
	if merged.ID != seeded.ID {
		t.Errorf("Expected second provider merged into %s, got %s", seeded.ID, merged.ID)
	}
}
