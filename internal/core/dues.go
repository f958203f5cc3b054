package core

import (
	"fmt"
	"strings"
)

// DuesDescription is the ledger text for a student's dues payment.
func DuesDescription(s Student, period Month) string {
	return fmt.Sprintf("Pembayaran %s bulan %s", s.Name, FormatMonthYear(period))
}

// NewDuesTransaction derives the income posted when p is approved by verifier.
// ID and CreatedAt are left for the store to assign.
func NewDuesTransaction(p Payment, s Student, verifier string) Transaction {
	ref := p.ID
	by := verifier
	return Transaction{
		Date:        p.Date,
		Type:        Income,
		Category:    DuesCategory,
		Fund:        FundKas,
		Description: DuesDescription(s, p.Period),
		Amount:      p.Amount,
		PaymentRef:  &ref,
		CreatedBy:   &by,
	}
}

// CheckVerifier rejects a blank admin identity.
func CheckVerifier(verifier string) error {
	if strings.TrimSpace(verifier) == "" {
		return ErrMissingVerifier
	}
	return nil
}
