package postgres

import (
	"errors"
	"strings"

	"github.com/viralforge/webauth/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	role, ok := domain.ParseRole(row.Role)
	if !ok {
		role = domain.RoleUser
	}
	return domain.User{
		UserID:           row.UserID,
		Name:             row.Name,
		Email:            row.Email,
		PasswordHash:     row.PasswordHash,
		Role:             role,
		IsActive:         row.IsActive,
		FailedLoginCount: row.FailedLoginCount,
		LockedUntil:      row.LockedUntil,
		LastLoginAt:      row.LastLoginAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
