package services

import (
	"context"
	"errors"
	"fmt"

	"kaskelas/internal/core"
	"kaskelas/internal/log"
	"kaskelas/internal/store"
)

// PaymentService turns admin decisions on submitted payments into ledger entries.
type PaymentService struct {
	store  store.Store
	logger *log.Logger
	events *log.StructuredLogger
}

func NewPaymentService(s store.Store, logger *log.Logger) *PaymentService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentPayment)
	return &PaymentService{
		store:  s,
		logger: logger,
		events: log.NewStructuredLogger(logger),
	}
}

// Approve marks the payment valid and posts one dues income for it.
//
// The status update runs first. If it fails nothing is inserted. If the
// insert fails afterwards the payment stays valid without a ledger entry and
// the error is returned; no rollback is attempted. A payment whose dues
// entry already exists gets its status re-written but no second entry, and
// approving an already valid one is a conflict.
func (s *PaymentService) Approve(ctx context.Context, paymentID, verifier string) (core.Transaction, error) {
	if err := core.CheckVerifier(verifier); err != nil {
		return core.Transaction{}, err
	}

	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return core.Transaction{}, err
	}
	st, err := s.store.GetStudent(ctx, p.StudentID)
	if err != nil {
		return core.Transaction{}, err
	}

	existing, err := s.store.FindTransactionByPayment(ctx, paymentID)
	posted := err == nil
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, fmt.Errorf("check ledger for payment: %w", err)
	}

	if _, err := s.store.UpdatePaymentStatus(ctx, paymentID, core.StatusValid, verifier); err != nil {
		s.events.LogError(ctx, "Approve status update failed", err, log.ComponentPayment, log.OpApprove,
			log.NewFields().WithPayment(p.ID, p.StudentID, p.Amount.Rupiah, verifier))
		return core.Transaction{}, err
	}

	// A payment already in the ledger is never posted twice. Re-approving a
	// rejected one only restores its status.
	if posted {
		s.logger.WarnContext(ctx, "Payment already posted to ledger",
			log.FieldPaymentID, paymentID,
			log.FieldTransactionID, existing.ID)
		if p.Status == core.StatusValid {
			return core.Transaction{}, &core.ConflictError{Entity: "transaction", Field: "ref_payment", Value: paymentID}
		}
		s.events.LogPaymentDecision(ctx, log.OpApprove, p.ID, p.StudentID, p.Amount.Rupiah, verifier)
		return existing, nil
	}

	tx, err := s.store.CreateTransaction(ctx, core.NewDuesTransaction(p, st, verifier))
	if err != nil {
		s.events.LogError(ctx, "Payment approved but ledger insert failed", err, log.ComponentPayment, log.OpApprove,
			log.NewFields().WithPayment(p.ID, p.StudentID, p.Amount.Rupiah, verifier))
		if errors.Is(err, core.ErrConflict) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, &core.StoreError{
			Op:      "approve payment",
			Message: "Pembayaran sudah divalidasi, tetapi transaksi gagal dicatat.",
			Detail:  err.Error(),
			Hint:    "Catat pemasukan iuran ini secara manual.",
			Err:     err,
		}
	}

	s.events.LogPaymentDecision(ctx, log.OpApprove, p.ID, p.StudentID, p.Amount.Rupiah, verifier)
	return tx, nil
}

// Reject marks the payment rejected. A previously approved payment may be
// rejected; its dues transaction is left in the ledger.
func (s *PaymentService) Reject(ctx context.Context, paymentID, verifier string) (core.Payment, error) {
	if err := core.CheckVerifier(verifier); err != nil {
		return core.Payment{}, err
	}

	prev, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return core.Payment{}, err
	}

	p, err := s.store.UpdatePaymentStatus(ctx, paymentID, core.StatusRejected, verifier)
	if err != nil {
		s.events.LogError(ctx, "Reject status update failed", err, log.ComponentPayment, log.OpReject,
			log.NewFields().WithPayment(prev.ID, prev.StudentID, prev.Amount.Rupiah, verifier))
		return core.Payment{}, err
	}

	if prev.Status == core.StatusValid {
		s.logger.WarnContext(ctx, "Rejected a validated payment; its ledger entry is kept",
			log.FieldPaymentID, paymentID,
			log.FieldVerifier, verifier)
	}
	s.events.LogPaymentDecision(ctx, log.OpReject, p.ID, p.StudentID, p.Amount.Rupiah, verifier)
	return p, nil
}
