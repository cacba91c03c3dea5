package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shadow/internal/capture"
	"shadow/internal/logging"
	"shadow/internal/pipeline"
	"shadow/internal/services"
)

// Dispatcher routes a PROCESSING capture to a worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, captureID string) (DispatchOutcome, error)
}

// Executor runs the pipeline synchronously.
type Executor interface {
	Execute(ctx context.Context, captureID string) (pipeline.Result, error)
}

// StartRequest describes a capture being recorded.
type StartRequest struct {
	Title       string
	Description string
	MediaRef    string
	Tags        []string
}

// EndResult reports where an ended capture was dispatched.
type EndResult struct {
	Capture  Capture
	Dispatch DispatchOutcome
}

// ProcessResult reports a synchronous pipeline run.
type ProcessResult struct {
	Capture Capture
	Result  pipeline.Result
}

// CaptureService implements the capture lifecycle operations.
type CaptureService struct {
	store      *capture.Store
	dispatcher Dispatcher
	executor   Executor
	logger     *slog.Logger
}

// NewCaptureService wires the lifecycle service. The dispatcher is required
// for End and Retry; the executor is required for Process.
func NewCaptureService(store *capture.Store, dispatcher Dispatcher, executor Executor, logger *slog.Logger) *CaptureService {
	return &CaptureService{
		store:      store,
		dispatcher: dispatcher,
		executor:   executor,
		logger:     logging.NewComponentLogger(logger, "capture-service"),
	}
}

// Start creates a capture in CAPTURING.
func (s *CaptureService) Start(ctx context.Context, req StartRequest) (*Capture, error) {
	c, err := s.store.Create(ctx, capture.NewCaptureParams{
		Title:       req.Title,
		Description: req.Description,
		MediaRef:    req.MediaRef,
		Tags:        req.Tags,
	})
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithCaptureID(ctx, c.ID), s.logger).Info("capture started",
		logging.String(logging.FieldEventType, "capture_started"),
		logging.Bool("has_media", c.HasMedia()),
	)
	dto := FromCapture(c)
	return &dto, nil
}

// End closes recording, attaches media when given, moves the capture to
// PROCESSING, and dispatches it.
func (s *CaptureService) End(ctx context.Context, id, mediaRef string) (*EndResult, error) {
	if s.dispatcher == nil {
		return nil, errors.New("capture service has no dispatcher")
	}
	c, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != capture.StatusCapturing {
		return nil, services.InvalidOperation(fmt.Sprintf("capture %s is %s; only CAPTURING captures can be ended", id, c.Status))
	}
	if ref := strings.TrimSpace(mediaRef); ref != "" {
		if err := s.store.SetMediaRef(ctx, id, ref); err != nil {
			return nil, err
		}
	}
	if err := s.store.Transition(ctx, id, capture.StatusCapturing, capture.StatusProcessing); err != nil {
		return nil, err
	}
	return s.dispatch(ctx, id, "capture_ended")
}

// Retry re-dispatches a FAILED capture.
func (s *CaptureService) Retry(ctx context.Context, id string) (*EndResult, error) {
	if s.dispatcher == nil {
		return nil, errors.New("capture service has no dispatcher")
	}
	c, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != capture.StatusFailed {
		return nil, services.InvalidOperation(fmt.Sprintf("capture %s is %s; only FAILED captures can be retried", id, c.Status))
	}
	if err := s.store.Transition(ctx, id, capture.StatusFailed, capture.StatusProcessing); err != nil {
		return nil, err
	}
	return s.dispatch(ctx, id, "capture_retried")
}

// Process runs the pipeline inline. CAPTURING and FAILED captures are moved
// to PROCESSING first.
func (s *CaptureService) Process(ctx context.Context, id string) (*ProcessResult, error) {
	if s.executor == nil {
		return nil, errors.New("capture service has no executor")
	}
	c, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case capture.StatusCapturing, capture.StatusFailed:
		if err := s.store.Transition(ctx, id, c.Status, capture.StatusProcessing); err != nil {
			return nil, err
		}
	case capture.StatusProcessing:
	default:
		return nil, services.InvalidOperation(fmt.Sprintf("capture %s is %s and cannot be processed", id, c.Status))
	}

	result, execErr := s.executor.Execute(ctx, id)
	updated, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProcessResult{Capture: FromCapture(updated), Result: result}, execErr
}

// Publish moves a reviewed capture to PUBLISHED.
func (s *CaptureService) Publish(ctx context.Context, id string) (*Capture, error) {
	return s.transition(ctx, id, capture.StatusPublished, "capture_published")
}

// Archive moves a capture to ARCHIVED.
func (s *CaptureService) Archive(ctx context.Context, id string) (*Capture, error) {
	return s.transition(ctx, id, capture.StatusArchived, "capture_archived")
}

// Delete removes a capture and its artifacts.
func (s *CaptureService) Delete(ctx context.Context, id string) error {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("capture %s: %w", id, services.ErrNotFound)
	}
	logging.WithContext(services.WithCaptureID(ctx, id), s.logger).Info("capture deleted",
		logging.String(logging.FieldEventType, "capture_deleted"))
	return nil
}

// Describe returns a capture with its chapters and decision points.
func (s *CaptureService) Describe(ctx context.Context, id string) (*CaptureDetail, error) {
	c, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	chapters, err := s.store.Chapters(ctx, id)
	if err != nil {
		return nil, err
	}
	points, err := s.store.DecisionPoints(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CaptureDetail{
		Capture:        FromCapture(c),
		Chapters:       FromChapters(chapters),
		DecisionPoints: FromDecisionPoints(points),
	}, nil
}

// List returns captures, newest first, optionally filtered by status.
func (s *CaptureService) List(ctx context.Context, statuses ...capture.Status) ([]Capture, error) {
	captures, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromCaptures(captures), nil
}

func (s *CaptureService) dispatch(ctx context.Context, id, event string) (*EndResult, error) {
	outcome, err := s.dispatcher.Dispatch(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithCaptureID(ctx, id), s.logger).Info("capture dispatched",
		logging.String(logging.FieldEventType, event),
		logging.String("dispatch_mode", string(outcome.Mode)),
		logging.Int64(logging.FieldJobID, outcome.JobID),
	)
	return &EndResult{Capture: FromCapture(c), Dispatch: outcome}, nil
}

func (s *CaptureService) transition(ctx context.Context, id string, to capture.Status, event string) (*Capture, error) {
	c, err := s.store.TransitionFromCurrent(ctx, id, to)
	if err != nil {
		return nil, err
	}
	logging.WithContext(services.WithCaptureID(ctx, id), s.logger).Info("capture status changed",
		logging.String(logging.FieldEventType, event),
		logging.String("status", string(c.Status)),
	)
	dto := FromCapture(c)
	return &dto, nil
}

func (s *CaptureService) mustGet(ctx context.Context, id string) (*capture.Capture, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "load capture", "capture id is required", nil)
	}
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("capture %s: %w", id, services.ErrNotFound)
	}
	return c, nil
}
