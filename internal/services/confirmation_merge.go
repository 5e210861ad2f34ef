package services

import (
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
)

// MergeConfirmationItem combines the stored item of a pair (nil on first sight) with the
// freshly computed one. Derived fields come from computed; operator state (status,
// snooze_until, copied_at) comes from existing. contact_was_created never reverts to false.
// An elapsed snooze is moved back to pending.
func MergeConfirmationItem(existing, computed *models.ConfirmationItem, now time.Time) *models.ConfirmationItem {
	merged := *computed
	if existing == nil {
		merged.ReactivateIfDue(now)
		return &merged
	}

	merged.ID = existing.ID
	merged.Version = existing.Version
	merged.CreatedAt = existing.CreatedAt
	merged.Status = existing.Status
	merged.SnoozeUntil = existing.SnoozeUntil
	merged.CopiedAt = existing.CopiedAt
	merged.ContactWasCreated = existing.ContactWasCreated || computed.ContactWasCreated

	merged.ReactivateIfDue(now)
	return &merged
}
