package services

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
	"github.com/AnshRaj112/plant-journal-backend/internal/metrics"
)

// BreakerStore fails fast once the wrapped media store keeps failing.
type BreakerStore struct {
	name string
	next MediaStore
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerStore opens after failures consecutive upload failures and
// probes again after openFor.
func NewBreakerStore(name string, next MediaStore, failures uint32, openFor time.Duration) *BreakerStore {
	settings := gobreaker.Settings{
		Name:        "media-" + name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		// Rejected formats and abandoned requests say nothing about the store.
		IsSuccessful: func(err error) bool {
			var (
				merr     *apperrors.MediaError
				canceled *canceledUpload
			)
			return err == nil ||
				errors.As(err, &canceled) ||
				(errors.As(err, &merr) && merr.Kind == apperrors.MediaUnsupportedFormat)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.MediaBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().Str("backend", name).Str("from", from.String()).Str("to", to.String()).Msg("media breaker state changed")
		},
	}
	metrics.MediaBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return &BreakerStore{name: name, next: next, cb: gobreaker.NewCircuitBreaker[string](settings)}
}

func (s *BreakerStore) Store(ctx context.Context, upload Upload) (string, error) {
	url, err := s.cb.Execute(func() (string, error) {
		url, err := s.next.Store(ctx, upload)
		if err != nil && errors.Is(ctx.Err(), context.Canceled) {
			return "", &canceledUpload{err: err}
		}
		return url, err
	})

	var (
		merr     *apperrors.MediaError
		canceled *canceledUpload
	)
	if errors.As(err, &canceled) {
		err = canceled.err
		metrics.MediaUploadsTotal.WithLabelValues(s.name, "canceled").Inc()
		if !errors.As(err, &merr) {
			err = &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: err}
		}
		return "", err
	}
	switch {
	case err == nil:
		metrics.MediaUploadsTotal.WithLabelValues(s.name, "ok").Inc()
		return url, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.MediaUploadsTotal.WithLabelValues(s.name, "failed").Inc()
		return "", &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: err}
	case errors.As(err, &merr) && merr.Kind == apperrors.MediaUnsupportedFormat:
		metrics.MediaUploadsTotal.WithLabelValues(s.name, "rejected").Inc()
		return "", err
	default:
		metrics.MediaUploadsTotal.WithLabelValues(s.name, "failed").Inc()
		if !errors.As(err, &merr) {
			err = &apperrors.MediaError{Kind: apperrors.MediaUploadFailed, Err: err}
		}
		return "", err
	}
}

// canceledUpload marks a store error caused by the caller going away.
type canceledUpload struct {
	err error
}

func (e *canceledUpload) Error() string { return e.err.Error() }
func (e *canceledUpload) Unwrap() error { return e.err }
