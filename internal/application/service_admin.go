package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/viralforge/webauth/internal/domain"
)

const (
	recentUsersLimit = 5
	// maxListPage keeps the row offset far from int overflow.
	maxListPage = 1_000_000
)

func (s *Service) AdminDashboard(ctx context.Context, identity Identity) (AdminDashboard, error) {
	if err := RequireRole(identity, domain.RoleAdmin); err != nil {
		return AdminDashboard{}, err
	}
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	recent, _, err := s.users.List(ctx, recentUsersLimit, 0)
	if err != nil {
		return AdminDashboard{}, fmt.Errorf("recent users: %w", err)
	}
	views := make([]UserView, 0, len(recent))
	for _, u := range recent {
		views = append(views, toUserView(u))
	}
	return AdminDashboard{
		TotalUsers:    stats.Total,
		ActiveUsers:   stats.Active,
		InactiveUsers: stats.Inactive,
		AdminUsers:    stats.Admins,
		RecentUsers:   views,
	}, nil
}

// ListUsers pages through all users, newest first. Moderators may read the list.
func (s *Service) ListUsers(ctx context.Context, identity Identity, page int) (UserPage, error) {
	if err := RequireRole(identity, domain.RoleAdmin, domain.RoleModerator); err != nil {
		return UserPage{}, err
	}
	page = min(max(page, 1), maxListPage)
	size := s.cfg.AdminPageSize
	users, total, err := s.users.List(ctx, size, (page-1)*size)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	return UserPage{
		Users:      views,
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

// ToggleUserStatus flips isActive. Deactivation ends every session of the target.
func (s *Service) ToggleUserStatus(ctx context.Context, identity Identity, userID uuid.UUID) (UserView, error) {
	if err := RequireRole(identity, domain.RoleAdmin); err != nil {
		return UserView{}, err
	}
	if userID == identity.User.ID {
		return UserView{}, &domain.ValidationError{Field: "id", Message: "you cannot change your own status"}
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UserView{}, err
		}
		return UserView{}, fmt.Errorf("load user: %w", err)
	}
	updated, err := s.users.SetActive(ctx, userID, !target.IsActive, s.nowFn())
	if err != nil {
		return UserView{}, fmt.Errorf("set user status: %w", err)
	}
	if !updated.IsActive {
		if err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
			return UserView{}, err
		}
	}
	s.emit(ctx, eventTypeUserStatusChanged, userID, map[string]any{
		"is_active":  updated.IsActive,
		"changed_by": identity.User.ID.String(),
	})
	return toUserView(updated), nil
}
