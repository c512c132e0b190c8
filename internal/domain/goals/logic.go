package goals

// Status transitions are confined to this file and the service methods
// that call it; nothing else writes goals.status.

func CanSubmit(status string) bool {
	return status == StatusDraft
}

func CanDecide(status string) bool {
	return status == StatusPendingApproval
}

func CanEdit(status string) bool {
	return status == StatusDraft || status == StatusPendingApproval
}

func CanRecordProgress(status string) bool {
	return status == StatusApproved || status == StatusInProgress
}

// NextStatusAfterProgress moves an approved goal to in_progress on its
// first progress entry; later entries leave the status alone.
func NextStatusAfterProgress(status string) string {
	if status == StatusApproved {
		return StatusInProgress
	}
	return status
}

func ValidCategory(category string) bool {
	for _, candidate := range Categories {
		if category == candidate {
			return true
		}
	}
	return false
}
