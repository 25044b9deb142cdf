package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/viralforge/webauth/internal/domain"
	"gorm.io/gorm"
)

// column widths from 0002_login_attempts.sql
const (
	maxAttemptIPLen     = 64
	maxAttemptReasonLen = 64
	maxAttemptAgentLen  = 512
)

type loginAttemptRepository struct {
	db *gorm.DB
}

// Insert writes one audit row. Client-supplied strings are cut to the column
// widths so an oversized header cannot make the audit write fail.
func (r *loginAttemptRepository) Insert(ctx context.Context, attempt domain.LoginAttempt) error {
	rec := loginAttemptModel{
		UserID:        attempt.UserID,
		AttemptAt:     attempt.AttemptAt,
		IPAddress:     nullableString(truncate(attempt.IPAddress, maxAttemptIPLen)),
		Status:        attempt.Status,
		FailureReason: truncate(attempt.FailureReason, maxAttemptReasonLen),
		UserAgent:     truncate(attempt.UserAgent, maxAttemptAgentLen),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}

// truncate keeps at most n characters, matching VARCHAR(n). Invalid UTF-8
// is replaced first since postgres rejects it.
func truncate(v string, n int) string {
	v = strings.ToValidUTF8(v, "\uFFFD")
	count := 0
	for i := range v {
		if count == n {
			return v[:i]
		}
		count++
	}
	return v
}
