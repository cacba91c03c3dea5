package transcription

import (
	"fmt"
	"strings"
)

// Job states reported by the provider.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Word is a single recognized token. Times are milliseconds.
type Word struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker"`
}

// Utterance is a contiguous speaker turn. Times are milliseconds.
type Utterance struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker"`
}

// Chapter is a provider generated auto chapter. Times are milliseconds.
type Chapter struct {
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Gist     string `json:"gist"`
}

// JobStatus is the transcript resource returned by GET /v2/transcript/{id}.
type JobStatus struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	Error         string      `json:"error"`
	Text          string      `json:"text"`
	Words         []Word      `json:"words"`
	Utterances    []Utterance `json:"utterances"`
	Chapters      []Chapter   `json:"chapters"`
	AudioDuration float64     `json:"audio_duration"`
	Confidence    float64     `json:"confidence"`
}

// Done reports whether the job reached a terminal state.
func (s *JobStatus) Done() bool {
	return s != nil && (s.Status == StatusCompleted || s.Status == StatusError)
}

// DurationSeconds returns the audio duration rounded to whole seconds.
func (s *JobStatus) DurationSeconds() int {
	if s == nil || s.AudioDuration <= 0 {
		return 0
	}
	return int(s.AudioDuration + 0.5)
}

func (s *JobStatus) validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("transcript response missing id")
	}
	switch s.Status {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusError:
	default:
		return fmt.Errorf("transcript response has unknown status %q", s.Status)
	}
	return nil
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type createRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	AutoChapters  bool   `json:"auto_chapters"`
}

type createResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
