package service

import (
	"context"
	"os"
	"testing"

	"github.com/splitkaro/splitkaro/internal/models"
	"github.com/splitkaro/splitkaro/internal/storage"
	"github.com/splitkaro/splitkaro/internal/storage/sqlite"
)

// setupTestStore creates a SQLite store on a temp file with three registered
// users.
func setupTestStore(t *testing.T) (storage.Store, map[string]*models.User, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	users := make(map[string]*models.User)
	for _, handle := range []string{"alice", "bob", "charlie"} {
		user := models.NewUser(handle, "", "test-hash")
		if err := store.CreateUser(context.Background(), user); err != nil {
			t.Fatalf("failed to create user %s: %v", handle, err)
		}
		users[handle] = user
	}

	cleanup := func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}

	return store, users, cleanup
}

// createTestGroup creates a group with the given users as members.
func createTestGroup(t *testing.T, store storage.Store, name string, members ...*models.User) *models.Group {
	t.Helper()

	group := &models.Group{Name: name}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	if err := store.AddGroupMembers(context.Background(), group.ID, ids); err != nil {
		t.Fatalf("failed to add members: %v", err)
	}
	return group
}
