package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/splitkaro/splitkaro/internal/models"
	"github.com/splitkaro/splitkaro/internal/storage"
)

// GroupService implements group and membership management.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a group and enrolls the creator as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, name, creatorID string) (*models.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name required")
	}

	creator, err := s.store.GetUserByID(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up creator: %w", err)
	}
	if creator == nil {
		return nil, fmt.Errorf("user %s: %w", creatorID, storage.ErrNotFound)
	}

	group := &models.Group{Name: name}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, err
	}
	if err := s.store.AddGroupMembers(ctx, group.ID, []string{creatorID}); err != nil {
		slog.Error("CreateGroup: failed to enroll creator", "group_id", group.ID, "error", err)
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID, "name", name)
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

// ListGroups retrieves all groups.
func (s *GroupService) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return s.store.ListGroups(ctx)
}

// AddMembers adds existing users to a group. Every user must exist; the call
// is all-or-nothing on that check but tolerant of already-present members.
func (s *GroupService) AddMembers(ctx context.Context, groupID string, userIDs []string) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("failed to look up users: %w", err)
	}
	for _, id := range userIDs {
		if _, ok := users[id]; !ok {
			return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
		}
	}

	if err := s.store.AddGroupMembers(ctx, groupID, userIDs); err != nil {
		slog.Error("AddMembers failed", "group_id", groupID, "error", err)
		return err
	}

	slog.Info("Members added", "group_id", groupID, "count", len(userIDs))
	return nil
}

// RemoveMember removes one member from a group.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if err := s.store.RemoveGroupMember(ctx, groupID, userID); err != nil {
		return err
	}
	slog.Info("Member removed", "group_id", groupID, "user_id", userID)
	return nil
}

// ListMembers returns a group's members as users, in join order.
func (s *GroupService) ListMembers(ctx context.Context, groupID string) ([]*models.User, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	rows, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.UserID
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	members := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := users[id]; ok {
			members = append(members, user)
		}
	}
	return members, nil
}
