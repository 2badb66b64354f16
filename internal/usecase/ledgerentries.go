package usecase

import (
	"fmt"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// LedgerEntryService implements the plain CRUD write paths for the two
// non-ledger-gated money records (spec.md §6: "GET|POST /expenses",
// "GET|POST /payments") — these never touch inventory stock, so they need
// no transaction spanning a repository boundary the way sales and batches do.
type LedgerEntryService struct {
	Expenses domain.ExpenseRepository
	Payments domain.StaffPaymentRepository
}

// NewLedgerEntryService constructs a LedgerEntryService.
func NewLedgerEntryService(expenses domain.ExpenseRepository, payments domain.StaffPaymentRepository) *LedgerEntryService {
	return &LedgerEntryService{Expenses: expenses, Payments: payments}
}

// RecordExpense inserts a branch expense row.
func (s *LedgerEntryService) RecordExpense(ctx domain.Context, e domain.Expense) (int64, error) {
	if e.Amount <= 0 {
		return 0, fmt.Errorf("op=ledger_entries.expense.validate: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	id, err := s.Expenses.Create(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("op=ledger_entries.expense.create: %w", err)
	}
	return id, nil
}

// ListExpenses returns a branch's recorded expenses.
func (s *LedgerEntryService) ListExpenses(ctx domain.Context, branchID int64) ([]domain.Expense, error) {
	es, err := s.Expenses.List(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("op=ledger_entries.expense.list: %w", err)
	}
	return es, nil
}

// RecordStaffPayment inserts a staff payment row.
func (s *LedgerEntryService) RecordStaffPayment(ctx domain.Context, p domain.StaffPayment) (int64, error) {
	if p.Amount <= 0 {
		return 0, fmt.Errorf("op=ledger_entries.payment.validate: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	id, err := s.Payments.Create(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("op=ledger_entries.payment.create: %w", err)
	}
	return id, nil
}

// ListStaffPayments returns a branch's recorded staff payments.
func (s *LedgerEntryService) ListStaffPayments(ctx domain.Context, branchID int64) ([]domain.StaffPayment, error) {
	ps, err := s.Payments.List(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("op=ledger_entries.payment.list: %w", err)
	}
	return ps, nil
}
