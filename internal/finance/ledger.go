// Package finance is the shop's income/expense log.
//
// Aggregates are always recomputed from the full collection so edits and
// deletes are reflected immediately.
package finance

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeIncome, TypeExpense:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, s)
}

type Transaction struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date"`
}

// DateLayout is the wire form of Transaction.Date.
const DateLayout = "2006-01-02"

// MarshalJSON writes Date as YYYY-MM-DD, the same form the API accepts.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain(t), t.Date.Format(DateLayout)})
}

func (t *Transaction) UnmarshalJSON(b []byte) error {
	type plain Transaction
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		t.Date = time.Time{}
		return nil
	}
	d, err := time.Parse(DateLayout, aux.Date)
	if err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidTransaction, aux.Date)
	}
	t.Date = d
	return nil
}

func (t Transaction) Validate() error {
	if t.Amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, t.Amount)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidTransaction)
	}
	if _, err := ParseType(string(t.Type)); err != nil {
		return err
	}
	return nil
}

// Patch carries the fields an update changes; nil fields are kept.
type Patch struct {
	Type        *Type      `json:"type,omitempty"`
	Amount      *int64     `json:"amount,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// Apply returns the patched copy, validated.
func (p Patch) Apply(t Transaction) (Transaction, error) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t, t.Validate()
}

// Filter is a read-side projection. Month is "YYYY-MM"; empty fields match all.
type Filter struct {
	Type  Type
	Month string
}

func (f Filter) Match(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Month != "" && t.Date.Format("2006-01") != f.Month {
		return false
	}
	return true
}

type Summary struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Profit  int64 `json:"profit"`
	Count   int   `json:"count"`
}

type Ledger struct {
	txs []Transaction
}

func NewLedger(txs ...Transaction) *Ledger {
	return &Ledger{txs: append([]Transaction(nil), txs...)}
}

// Add validates tx, assigns an id when missing and appends it.
func (l *Ledger) Add(tx Transaction) (Transaction, error) {
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	l.txs = append(l.txs, tx)
	return tx, nil
}

func (l *Ledger) Update(id string, p Patch) (Transaction, error) {
	i := l.index(id)
	if i < 0 {
		return Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next, err := p.Apply(l.txs[i])
	if err != nil {
		return Transaction{}, err
	}
	l.txs[i] = next
	return next, nil
}

// Delete is a no-op for unknown ids.
func (l *Ledger) Delete(id string) {
	if i := l.index(id); i >= 0 {
		l.txs = append(l.txs[:i], l.txs[i+1:]...)
	}
}

func (l *Ledger) All() []Transaction {
	return append([]Transaction(nil), l.txs...)
}

func (l *Ledger) TotalIncome() int64 { return l.sum(TypeIncome) }

func (l *Ledger) TotalExpense() int64 { return l.sum(TypeExpense) }

func (l *Ledger) Profit() int64 { return l.TotalIncome() - l.TotalExpense() }

// Filter never mutates the ledger.
func (l *Ledger) Filter(f Filter) []Transaction {
	var out []Transaction
	for _, t := range l.txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Summarize aggregates the transactions matching f.
func (l *Ledger) Summarize(f Filter) Summary {
	var s Summary
	for _, t := range l.txs {
		if !f.Match(t) {
			continue
		}
		s.Count++
		switch t.Type {
		case TypeIncome:
			s.Income += t.Amount
		case TypeExpense:
			s.Expense += t.Amount
		}
	}
	s.Profit = s.Income - s.Expense
	return s
}

func (l *Ledger) sum(typ Type) int64 {
	var total int64
	for _, t := range l.txs {
		if t.Type == typ {
			total += t.Amount
		}
	}
	return total
}

func (l *Ledger) index(id string) int {
	for i, t := range l.txs {
		if t.ID == id {
			return i
		}
	}
	return -1
}
