package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/meridianpay/ledger-backend/internal/domain"
)

// MockLoanRepository is a mock implementation of domain.LoanRepository
type MockLoanRepository struct {
	Loans          map[uuid.UUID]*domain.Loan
	Entries        []*domain.AuditEntry
	UpdateCalls    int
	ConflictsLeft  int
	UpdateLedgerFn func(ctx context.Context, loan *domain.Loan, entry *domain.AuditEntry) error
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{
		Loans: make(map[uuid.UUID]*domain.Loan),
	}
}

// Create stores a new loan
func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	m.Loans[loan.ID] = loan.Clone()
	return nil
}

// GetByID retrieves a loan by ID
func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	if loan, ok := m.Loans[id]; ok {
		return loan.Clone(), nil
	}
	return nil, domain.ErrLoanNotFound
}

// GetByBorrower retrieves all loans for a borrower
func (m *MockLoanRepository) GetByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	for _, loan := range m.Loans {
		if loan.BorrowerID == borrowerID {
			loans = append(loans, loan.Clone())
		}
	}
	return loans, nil
}

// ListByStatus retrieves all loans in the given status
func (m *MockLoanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	for _, loan := range m.Loans {
		if loan.Status == status {
			loans = append(loans, loan.Clone())
		}
	}
	return loans, nil
}

// UpdateLedger persists a loan with an optimistic version check.
// ConflictsLeft simulates concurrent writers: each call while it is
// positive fails with ErrVersionConflict and decrements the counter.
func (m *MockLoanRepository) UpdateLedger(ctx context.Context, loan *domain.Loan, entry *domain.AuditEntry) error {
	m.UpdateCalls++
	if m.UpdateLedgerFn != nil {
		return m.UpdateLedgerFn(ctx, loan, entry)
	}
	if m.ConflictsLeft > 0 {
		m.ConflictsLeft--
		return domain.ErrVersionConflict
	}
	stored, ok := m.Loans[loan.ID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	if stored.Version != loan.Version {
		return domain.ErrVersionConflict
	}
	loan.Version++
	m.Loans[loan.ID] = loan.Clone()
	if entry != nil {
		m.Entries = append(m.Entries, entry)
	}
	return nil
}

// AddLoan adds a loan to the mock repository (helper for tests)
func (m *MockLoanRepository) AddLoan(loan *domain.Loan) {
	m.Loans[loan.ID] = loan.Clone()
}

// MockAuditRepository is a mock implementation of domain.AuditRepository
type MockAuditRepository struct {
	Entries []*domain.AuditEntry
}

// NewMockAuditRepository creates a new MockAuditRepository
func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

// AddEntry seeds an audit entry into the mock repository (helper for tests)
func (m *MockAuditRepository) AddEntry(entry *domain.AuditEntry) {
	m.Entries = append(m.Entries, entry)
}

// ListByLoan retrieves all audit entries for a loan
func (m *MockAuditRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.AuditEntry, error) {
	var entries []*domain.AuditEntry
	for _, entry := range m.Entries {
		if entry.LoanID == loanID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// MockReferenceStore is an in-memory domain.PaymentReferenceStore
type MockReferenceStore struct {
	Claimed map[string]bool
	ClaimFn func(ctx context.Context, loanID uuid.UUID, reference string) (bool, error)
}

// NewMockReferenceStore creates a new MockReferenceStore
func NewMockReferenceStore() *MockReferenceStore {
	return &MockReferenceStore{
		Claimed: make(map[string]bool),
	}
}

func (m *MockReferenceStore) key(loanID uuid.UUID, reference string) string {
	return loanID.String() + ":" + reference
}

// Claim marks a payment reference as used
func (m *MockReferenceStore) Claim(ctx context.Context, loanID uuid.UUID, reference string) (bool, error) {
	if m.ClaimFn != nil {
		return m.ClaimFn(ctx, loanID, reference)
	}
	k := m.key(loanID, reference)
	if m.Claimed[k] {
		return false, nil
	}
	m.Claimed[k] = true
	return true, nil
}

// Release frees a previously claimed payment reference
func (m *MockReferenceStore) Release(ctx context.Context, loanID uuid.UUID, reference string) error {
	delete(m.Claimed, m.key(loanID, reference))
	return nil
}

// MockDispatcher records dispatched notifications
type MockDispatcher struct {
	Dispatched []domain.NotificationRequest
	Err        error
}

// NewMockDispatcher creates a new MockDispatcher
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// Dispatch records the notification requests
func (m *MockDispatcher) Dispatch(ctx context.Context, reqs []domain.NotificationRequest) error {
	if m.Err != nil {
		return m.Err
	}
	m.Dispatched = append(m.Dispatched, reqs...)
	return nil
}
