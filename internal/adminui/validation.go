package adminui

import (
	"strings"

	"Newsletterwebserver/internal/domain"
)

func parseUserStatus(s string) (domain.UserStatus, bool) {
	switch domain.UserStatus(strings.TrimSpace(strings.ToLower(s))) {
	case domain.UserStatusActive:
		return domain.UserStatusActive, true
	case domain.UserStatusDisabled:
		return domain.UserStatusDisabled, true
	default:
		return "", false
	}
}

// statusFilter reads the submissions tab; unknown or empty values show the
// pending queue.
func statusFilter(s string) domain.SubmissionStatus {
	if st, ok := domain.ParseSubmissionStatus(s); ok {
		return st
	}
	return domain.SubmissionPending
}
