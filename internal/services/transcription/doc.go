// Package transcription talks to an AssemblyAI v2 compatible speech-to-text
// API: upload raw media, create a diarized transcription job, and poll it to
// completion. Transient HTTP failures are retried with exponential backoff.
package transcription
