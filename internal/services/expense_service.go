package services

import (
	"context"
	"fmt"
	"strings"

	"kaskelas/internal/core"
	"kaskelas/internal/log"
	"kaskelas/internal/store"
)

// ExpenseInput is the raw admin expense form.
type ExpenseInput struct {
	Date        string // YYYY-MM-DD
	Category    string
	Fund        string
	Description string
	Amount      string
	ReceiptURL  string
}

// ExpenseService records manual expenses.
type ExpenseService struct {
	store  store.TransactionStore
	logger *log.Logger
}

func NewExpenseService(s store.TransactionStore, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExpenseService{store: s, logger: logger.WithComponent(log.ComponentExpense)}
}

// Parse converts the form into an expense transaction created by creator.
func (in ExpenseInput) Parse(creator string) (core.Transaction, error) {
	if strings.TrimSpace(in.Category) == "" || strings.TrimSpace(in.Description) == "" || strings.TrimSpace(in.Amount) == "" {
		return core.Transaction{}, &core.ValidationError{Reason: "Harap isi semua field yang wajib."}
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	fund, err := core.ParseFund(in.Fund)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		Date:        date,
		Type:        core.Expense,
		Category:    strings.TrimSpace(in.Category),
		Fund:        fund,
		Description: strings.TrimSpace(in.Description),
		Amount:      core.Money{Rupiah: amount},
		ReceiptURL:  core.StringPtr(in.ReceiptURL),
		CreatedBy:   core.StringPtr(creator),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// Add validates in and stores it as an expense.
func (s *ExpenseService) Add(ctx context.Context, in ExpenseInput, creator string) (core.Transaction, error) {
	if err := core.CheckVerifier(creator); err != nil {
		return core.Transaction{}, err
	}
	t, err := in.Parse(creator)
	if err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save expense: %w", err)
	}

	fields := log.NewFields().
		WithTransaction(saved.ID, string(saved.Fund), saved.Amount.Rupiah).
		WithOperation(log.OpCreate)
	s.logger.InfoContext(ctx, "Expense recorded", fields.ToSlice()...)
	return saved, nil
}
