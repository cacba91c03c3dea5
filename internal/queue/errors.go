package queue

import "errors"

// ErrorClassifier allows errors to declare their classification so failed
// jobs record why they stopped.
type ErrorClassifier interface {
	// ErrorKind returns a string classification of the error such as
	// "structural", "provider", "infrastructure", or "path_security".
	ErrorKind() string
}

// ErrorKind returns the classification recorded alongside a job failure.
// Errors without a classifier are reported as "infrastructure".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		if kind := classifier.ErrorKind(); kind != "" {
			return kind
		}
	}
	return "infrastructure"
}
