package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrStructural       = errors.New("structural error")
	ErrProvider         = errors.New("provider error")
	ErrInfrastructure   = errors.New("infrastructure error")
	ErrPathSecurity     = errors.New("path security error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrExternalService  = errors.New("external service error")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("timeout")
	ErrTransient        = errors.New("transient failure")
)

// Kind tags a pipeline failure with the policy the caller should apply.
type Kind string

const (
	KindStructural     Kind = "structural"
	KindProvider       Kind = "provider"
	KindInfrastructure Kind = "infrastructure"
	KindPathSecurity   Kind = "path_security"
)

func (k Kind) marker() error {
	switch k {
	case KindStructural:
		return ErrStructural
	case KindProvider:
		return ErrProvider
	case KindPathSecurity:
		return ErrPathSecurity
	default:
		return ErrInfrastructure
	}
}

// PipelineError is the tagged failure returned by pipeline stages. Structural
// and PathSecurity failures are terminal, Provider failures are isolated by the
// executor, and Infrastructure failures abort the run and may be retried.
type PipelineError struct {
	Kind    Kind
	Stage   string
	Op      string
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	detail := buildDetail(e.Stage, e.Op, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.marker(), detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.marker(), detail)
}

// Unwrap exposes both the kind marker and the underlying cause.
func (e *PipelineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.marker()}
	}
	return []error{e.Kind.marker(), e.Err}
}

// ErrorKind satisfies the classifier interface used by the queue workers.
func (e *PipelineError) ErrorKind() string { return string(e.Kind) }

func newPipelineError(kind Kind, stage, op, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Op: op, Message: message, Err: err}
}

// Structural reports a non-recoverable input problem such as missing media.
func Structural(stage, op, message string, err error) *PipelineError {
	return newPipelineError(KindStructural, stage, op, message, err)
}

// Provider reports a transcription or analysis provider failure.
func Provider(stage, op, message string, err error) *PipelineError {
	return newPipelineError(KindProvider, stage, op, message, err)
}

// Infrastructure reports persistence failures and other unexpected errors.
func Infrastructure(stage, op, message string, err error) *PipelineError {
	return newPipelineError(KindInfrastructure, stage, op, message, err)
}

// PathSecurity reports a media reference that escapes the storage root.
func PathSecurity(stage, op, message string, err error) *PipelineError {
	return newPipelineError(KindPathSecurity, stage, op, message, err)
}

// KindOf returns the pipeline kind carried by err. Untagged errors are
// classified as infrastructure.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrStructural):
		return KindStructural
	case errors.Is(err, ErrPathSecurity):
		return KindPathSecurity
	case errors.Is(err, ErrProvider), errors.Is(err, ErrExternalService):
		return KindProvider
	default:
		return KindInfrastructure
	}
}

// Retryable reports whether a queued attempt that returned err may run again.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == KindInfrastructure
}

// ExternalService wraps a malformed or failed provider exchange.
func ExternalService(service, message string, err error) error {
	return Wrap(ErrExternalService, service, "", message, err)
}

// InvalidOperation reports an illegal lifecycle request.
func InvalidOperation(message string) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, strings.TrimSpace(message))
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

const maxReasonRunes = 200

// Reason condenses err to a single explanatory line suitable for storing on a
// user-visible record.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	text := strings.TrimSpace(err.Error())
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	if utf8.RuneCountInString(text) > maxReasonRunes {
		runes := []rune(text)
		text = string(runes[:maxReasonRunes-3]) + "..."
	}
	if text == "" {
		return "unknown error"
	}
	return text
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
