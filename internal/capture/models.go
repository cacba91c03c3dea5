package capture

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a capture.
type Status string

const (
	StatusCapturing      Status = "CAPTURING"
	StatusProcessing     Status = "PROCESSING"
	StatusReadyForReview Status = "READY_FOR_REVIEW"
	StatusPublished      Status = "PUBLISHED"
	StatusFailed         Status = "FAILED"
	StatusArchived       Status = "ARCHIVED"
)

var allStatuses = []Status{
	StatusCapturing,
	StatusProcessing,
	StatusReadyForReview,
	StatusPublished,
	StatusFailed,
	StatusArchived,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every lifecycle state in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status, accepting any letter case.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Capture is a recorded session and the analysis derived from it.
type Capture struct {
	ID                    string
	Title                 string
	Description           string
	Status                Status
	MediaRef              string
	Transcript            string
	DurationSeconds       int
	ExecutiveSummary      string
	KeyTakeaways          []string
	QualityScore          *int
	Tags                  []string
	ProcessingStartedAt   *time.Time
	ProcessingCompletedAt *time.Time
	PublishedAt           *time.Time
	ArchivedAt            *time.Time
	ClaimedBy             string
	LeaseExpiresAt        *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasMedia reports whether raw media has been attached.
func (c *Capture) HasMedia() bool {
	return c != nil && strings.TrimSpace(c.MediaRef) != ""
}

// IsTerminal reports whether the pipeline has nothing further to do.
func (c *Capture) IsTerminal() bool {
	if c == nil {
		return false
	}
	switch c.Status {
	case StatusReadyForReview, StatusPublished, StatusFailed, StatusArchived:
		return true
	}
	return false
}

// Chapter is an ordered section of a capture.
type Chapter struct {
	ID           string
	CaptureID    string
	OrderIndex   int
	Title        string
	StartSeconds float64
	EndSeconds   float64
	Summary      string
}

// DecisionPoint is a moment where the presenter made a choice worth recording.
type DecisionPoint struct {
	ID               string
	CaptureID        string
	ChapterID        string
	OrderIndex       int
	TimestampSeconds float64
	Description      string
	Reasoning        string
	Alternatives     []string
	ContextBefore    string
	Confidence       float64
	UserVerified     bool
}

// Analysis is the summary block written alongside chapters and decision points.
type Analysis struct {
	ExecutiveSummary string
	KeyTakeaways     []string
	QualityScore     int
}

// NewCaptureParams describes a capture being started.
type NewCaptureParams struct {
	Title       string
	Description string
	MediaRef    string
	Tags        []string
}

// Stats aggregates capture counts per status.
type Stats map[Status]int
