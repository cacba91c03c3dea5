package capture

import (
	"fmt"

	"shadow/internal/services"
)

// allowedTransitions lists every legal status change except archival, which is
// permitted from any state other than CAPTURING and ARCHIVED.
var allowedTransitions = map[Status][]Status{
	StatusCapturing:      {StatusProcessing},
	StatusProcessing:     {StatusReadyForReview, StatusFailed},
	StatusFailed:         {StatusProcessing},
	StatusReadyForReview: {StatusPublished},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	if _, ok := statusSet[from]; !ok {
		return false
	}
	if to == StatusArchived {
		return from != StatusCapturing && from != StatusArchived
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an InvalidOperation error when the change is illegal.
func CheckTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return services.InvalidOperation(fmt.Sprintf("cannot move capture from %s to %s", from, to))
}

// completesProcessing reports whether entering status stamps processing_completed_at.
func completesProcessing(status Status) bool {
	return status == StatusReadyForReview || status == StatusFailed
}
