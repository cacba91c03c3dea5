package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"
)

// maxConsoleValue caps one rendered value in console output. Provider error
// bodies and transcript excerpts otherwise flood the terminal; the JSON
// handler keeps them whole.
const maxConsoleValue = 240

// attrString renders a value as plain text, for header fields such as the
// component and capture ID.
func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// formatValue renders a key=value value for the console handler: truncated
// to maxConsoleValue runes and quoted when it would not read as one token.
func formatValue(v slog.Value) string {
	s := attrString(v)
	if utf8.RuneCountInString(s) > maxConsoleValue {
		s = string([]rune(s)[:maxConsoleValue]) + "..."
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
