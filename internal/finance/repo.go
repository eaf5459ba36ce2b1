package finance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-flowershop/internal/postgres"
)

// Store persists transactions, last write wins.
type Store interface {
	Insert(ctx context.Context, tx Transaction) error
	Get(ctx context.Context, id string) (Transaction, error)
	List(ctx context.Context) ([]Transaction, error)
	Update(ctx context.Context, tx Transaction) error
	Delete(ctx context.Context, id string) error
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, t Transaction) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO transactions(id, type, amount, description, category, date)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, string(t.Type), t.Amount, t.Description, t.Category, t.Date)
	return constraintErr(err)
}

func (r *Repo) Get(ctx context.Context, id string) (Transaction, error) {
	t, err := scanTx(r.DB.QueryRow(ctx, `SELECT id, type, amount, description, category, date FROM transactions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

func (r *Repo) List(ctx context.Context) ([]Transaction, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, type, amount, description, category, date FROM transactions ORDER BY date DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, t Transaction) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE transactions SET type=$2, amount=$3, description=$4, category=$5, date=$6
		WHERE id=$1`,
		t.ID, string(t.Type), t.Amount, t.Description, t.Category, t.Date)
	if err != nil {
		return constraintErr(err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM transactions WHERE id=$1`, id)
	return err
}

func constraintErr(err error) error {
	if name, ok := postgres.Violation(err); ok {
		return fmt.Errorf("%w: violates %s", ErrInvalidTransaction, name)
	}
	return err
}

func scanTx(row pgx.Row) (Transaction, error) {
	var (
		t   Transaction
		typ string
	)
	if err := row.Scan(&t.ID, &typ, &t.Amount, &t.Description, &t.Category, &t.Date); err != nil {
		return Transaction{}, err
	}
	t.Type = Type(typ)
	return t, nil
}

// MemStore keeps transactions in memory.
type MemStore struct {
	mu  sync.Mutex
	txs map[string]Transaction
}

func NewMemStore() *MemStore { return &MemStore{txs: map[string]Transaction{}} }

func (m *MemStore) Insert(_ context.Context, t Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[t.ID] = t
	return nil
}

func (m *MemStore) Get(_ context.Context, id string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

func (m *MemStore) List(context.Context) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transaction, 0, len(m.txs))
	for _, t := range m.txs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (m *MemStore) Update(_ context.Context, t Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[t.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	m.txs[t.ID] = t
	return nil
}

func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.txs, id)
	return nil
}
