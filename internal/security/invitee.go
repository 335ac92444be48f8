package security

import (
	"log/slog"

	"github.com/aryan0dhankhar/teamhub/internal/apperr"
	"github.com/aryan0dhankhar/teamhub/internal/domain"
)

// MsgNotInvitee is returned when someone other than the addressee tries to
// resolve an invite
const MsgNotInvitee = "This invite is not addressed to you"

// CheckInvitee verifies that the invite was sent to the caller's email.
// Emails are compared in normalised form.
func CheckInvitee(logger *slog.Logger, invite *domain.Invite, caller *domain.User) error {
	if domain.NormalizeEmail(caller.Email) == invite.Email {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("invite access denied",
		slog.String("invite_id", invite.ID),
		slog.String("user_id", caller.ID),
	)
	return apperr.Forbidden(MsgNotInvitee)
}
