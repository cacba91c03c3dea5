// Package analysis extracts chapters, decision points, and an executive
// summary from a transcript with three strict-JSON LLM calls.
//
// Every response is decoded into an explicit schema and validated before it
// is returned. Any failed call or invalid payload fails the whole analysis so
// callers never persist a partial result.
package analysis
