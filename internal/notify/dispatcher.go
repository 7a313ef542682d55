package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/rs/zerolog"
)

// Dispatcher delivers the notification requests a committed ledger
// operation produced. Delivery is best-effort and happens strictly
// after the ledger write: a dispatch failure is logged by the caller
// and never rolls anything back.
type Dispatcher interface {
	Dispatch(ctx context.Context, reqs []domain.NotificationRequest) error
}

// NoOpDispatcher drops every request (for tests or when delivery is
// disabled).
type NoOpDispatcher struct{}

func (NoOpDispatcher) Dispatch(ctx context.Context, reqs []domain.NotificationRequest) error {
	return nil
}

// LogDispatcher writes each request to the log. Useful as a default
// sink and in development.
type LogDispatcher struct {
	logger zerolog.Logger
}

// NewLogDispatcher creates a LogDispatcher.
func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With().Str("component", "notify").Logger()}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, reqs []domain.NotificationRequest) error {
	for _, req := range reqs {
		d.logger.Info().
			Str("kind", string(req.Kind)).
			Str("loan_id", req.LoanID.String()).
			Str("borrower_id", req.BorrowerID.String()).
			Str("amount", req.Amount.String()).
			Str("remaining", req.Remaining.String()).
			Msg("Notification dispatched")
	}
	return nil
}

// Broadcaster is the borrower-channel sink a HubDispatcher pushes to.
// push.Hub satisfies it.
type Broadcaster interface {
	Broadcast(borrowerID uuid.UUID, data []byte)
}

// HubDispatcher delivers requests to connected borrower clients as
// JSON events.
type HubDispatcher struct {
	hub    Broadcaster
	logger zerolog.Logger
}

// NewHubDispatcher creates a HubDispatcher.
func NewHubDispatcher(hub Broadcaster, logger zerolog.Logger) *HubDispatcher {
	return &HubDispatcher{
		hub:    hub,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

func (d *HubDispatcher) Dispatch(ctx context.Context, reqs []domain.NotificationRequest) error {
	for _, req := range reqs {
		data, err := NewEvent(req).ToJSON()
		if err != nil {
			d.logger.Error().
				Err(err).
				Str("kind", string(req.Kind)).
				Str("loan_id", req.LoanID.String()).
				Msg("Failed to serialize notification")
			continue
		}
		d.hub.Broadcast(req.BorrowerID, data)
	}
	return nil
}

// Fanout dispatches every request to each of its delegates, so e.g.
// log and push delivery can run side by side.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, reqs []domain.NotificationRequest) error {
	var firstErr error
	for _, d := range f {
		if err := d.Dispatch(ctx, reqs); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
