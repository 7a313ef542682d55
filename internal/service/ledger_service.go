package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meridianpay/ledger-backend/internal/domain"
	"github.com/meridianpay/ledger-backend/internal/ledger"
	"github.com/meridianpay/ledger-backend/internal/notify"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultMaxRetries bounds how often a ledger write is re-attempted
// after losing a version race. Each retry re-fetches the loan and
// re-runs the engine against fresh state.
const DefaultMaxRetries = 3

// LedgerService orchestrates the pure ledger engine against its
// collaborators: it fetches the loan, runs the engine, persists the
// result with an optimistic version check, and dispatches notifications
// strictly after the commit. Same-loan writes are serialized by the
// version check alone; there are no in-process locks.
type LedgerService struct {
	loanRepo   domain.LoanRepository
	auditRepo  domain.AuditRepository
	refs       domain.PaymentReferenceStore
	engine     *ledger.Engine
	dispatcher notify.Dispatcher
	logger     zerolog.Logger
	maxRetries int
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	loanRepo domain.LoanRepository,
	auditRepo domain.AuditRepository,
	refs domain.PaymentReferenceStore,
	engine *ledger.Engine,
	dispatcher notify.Dispatcher,
	logger zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		loanRepo:   loanRepo,
		auditRepo:  auditRepo,
		refs:       refs,
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "ledger_service").Logger(),
		maxRetries: DefaultMaxRetries,
	}
}

// OpenLoanInput contains input for opening a loan application.
type OpenLoanInput struct {
	BorrowerID   uuid.UUID
	Principal    decimal.Decimal
	RatePercent  decimal.Decimal
	TenureMonths int
	Currency     domain.Currency
	StartDate    time.Time
}

// OpenLoan builds a Pending loan with a computed schedule and persists it.
func (s *LedgerService) OpenLoan(ctx context.Context, input OpenLoanInput) (*domain.Loan, error) {
	now := time.Now().UTC()
	loan, err := s.engine.BuildLoan(input.BorrowerID, input.Principal, input.RatePercent,
		input.TenureMonths, input.Currency, input.StartDate, now)
	if err != nil {
		return nil, err
	}
	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("loan_id", loan.ID.String()).
		Str("borrower_id", loan.BorrowerID.String()).
		Str("principal", loan.Principal.String()).
		Int("tenure_months", loan.TenureMonths).
		Msg("Loan opened")
	return loan, nil
}

// GetLoan retrieves a loan by ID.
func (s *LedgerService) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return s.loanRepo.GetByID(ctx, id)
}

// GetBorrowerLoans retrieves all loans of a borrower.
func (s *LedgerService) GetBorrowerLoans(ctx context.Context, borrowerID uuid.UUID) ([]*domain.Loan, error) {
	return s.loanRepo.GetByBorrower(ctx, borrowerID)
}

// AuditTrail retrieves the audit log of a loan.
func (s *LedgerService) AuditTrail(ctx context.Context, loanID uuid.UUID) ([]*domain.AuditEntry, error) {
	if _, err := s.loanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.auditRepo.ListByLoan(ctx, loanID)
}

// RecordPayment applies a payment command to a loan. The payment
// reference is claimed up front so a duplicate submission is rejected
// before any ledger work; the claim is released again when the
// operation fails, so the caller may retry with the same reference.
func (s *LedgerService) RecordPayment(ctx context.Context, loanID uuid.UUID, cmd domain.PaymentCommand) (*domain.LedgerUpdateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	claimed, err := s.refs.Claim(ctx, loanID, cmd.PaymentReference)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, domain.ErrDuplicatePaymentReference
	}

	result, err := s.run(ctx, loanID, "payment", func(loan *domain.Loan, now time.Time) (*domain.LedgerUpdateResult, error) {
		return s.engine.ApplyPayment(loan, cmd, now)
	})
	if err != nil {
		if releaseErr := s.refs.Release(ctx, loanID, cmd.PaymentReference); releaseErr != nil {
			s.logger.Warn().
				Err(releaseErr).
				Str("loan_id", loanID.String()).
				Str("payment_reference", cmd.PaymentReference).
				Msg("Failed to release payment reference")
		}
		return nil, err
	}
	return result, nil
}

// ApproveLoan moves a Pending loan to Approved.
func (s *LedgerService) ApproveLoan(ctx context.Context, loanID uuid.UUID) (*domain.LedgerUpdateResult, error) {
	return s.run(ctx, loanID, "approve", s.engine.Approve)
}

// RejectLoan moves a Pending loan to Rejected.
func (s *LedgerService) RejectLoan(ctx context.Context, loanID uuid.UUID) (*domain.LedgerUpdateResult, error) {
	return s.run(ctx, loanID, "reject", s.engine.Reject)
}

// DisburseLoan moves an Approved loan to Active.
func (s *LedgerService) DisburseLoan(ctx context.Context, loanID uuid.UUID) (*domain.LedgerUpdateResult, error) {
	return s.run(ctx, loanID, "disburse", s.engine.Disburse)
}

// DefaultLoan moves an Active loan to Defaulted. When to default is an
// operator decision; the service only executes it.
func (s *LedgerService) DefaultLoan(ctx context.Context, loanID uuid.UUID) (*domain.LedgerUpdateResult, error) {
	return s.run(ctx, loanID, "default", s.engine.MarkDefaulted)
}

// ChangeInterestRate regenerates the schedule at a new rate. The caller
// must pass confirmed=true; otherwise the engine returns
// ScheduleRegenerationRequiredError describing the consequences.
func (s *LedgerService) ChangeInterestRate(ctx context.Context, loanID uuid.UUID, newRate decimal.Decimal, confirmed bool) (*domain.LedgerUpdateResult, error) {
	return s.run(ctx, loanID, "rate_change", func(loan *domain.Loan, now time.Time) (*domain.LedgerUpdateResult, error) {
		return s.engine.ChangeRate(loan, newRate, confirmed, now)
	})
}

// run executes one engine operation with optimistic-concurrency retry:
// fetch, compute, compare-and-swap persist. On a version conflict the
// loan is re-fetched and the engine re-run against fresh state, which
// is safe because the engine is pure. Notifications are dispatched only
// after a successful commit and never affect the returned result.
func (s *LedgerService) run(ctx context.Context, loanID uuid.UUID, action string, op func(*domain.Loan, time.Time) (*domain.LedgerUpdateResult, error)) (*domain.LedgerUpdateResult, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		loan, err := s.loanRepo.GetByID(ctx, loanID)
		if err != nil {
			return nil, err
		}

		result, err := op(loan, time.Now().UTC())
		if err != nil {
			return nil, err
		}

		err = s.loanRepo.UpdateLedger(ctx, result.Loan, &result.AuditEntry)
		if err == domain.ErrVersionConflict {
			lastErr = err
			s.logger.Debug().
				Str("loan_id", loanID.String()).
				Str("action", action).
				Int("attempt", attempt+1).
				Msg("Version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.dispatch(ctx, result.Notifications)
		return result, nil
	}
	return nil, lastErr
}

// dispatch hands notifications to the dispatcher. Failures are logged
// and swallowed: the ledger update is already committed.
func (s *LedgerService) dispatch(ctx context.Context, reqs []domain.NotificationRequest) {
	if len(reqs) == 0 {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, reqs); err != nil {
		s.logger.Warn().
			Err(err).
			Int("count", len(reqs)).
			Msg("Notification dispatch failed")
	}
}
