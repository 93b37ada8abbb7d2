// Package model defines the core data structures for the ebb application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction represents a single imported bank transaction.
// Transactions are immutable once imported.
type BankTransaction struct {
	Date                time.Time
	ID                  string
	TenantID            string
	CounterpartyName    string
	CounterpartyAccount string // empty when the statement carried no account
	Description         string
	Hash                string
	Amount              decimal.Decimal // signed; negative = outgoing
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *BankTransaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s",
		t.TenantID,
		t.Date.Format("2006-01-02"),
		t.Amount.String(),
		t.CounterpartyName,
		t.CounterpartyAccount)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsIncome reports whether the transaction is an incoming payment.
func (t *BankTransaction) IsIncome() bool {
	return t.Amount.IsPositive()
}
