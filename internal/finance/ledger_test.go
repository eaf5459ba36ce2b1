package finance

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestAggregates(t *testing.T) {
	l := NewLedger()
	_, err := l.Add(Transaction{Type: TypeIncome, Amount: 500, Description: "order #1", Date: day(2026, 1, 3)})
	require.NoError(t, err)
	exp, err := l.Add(Transaction{Type: TypeExpense, Amount: 200, Description: "flowers", Category: "supplies", Date: day(2026, 2, 1)})
	require.NoError(t, err)
	assert.NotEmpty(t, exp.ID)

	assert.Equal(t, int64(500), l.TotalIncome())
	assert.Equal(t, int64(200), l.TotalExpense())
	assert.Equal(t, int64(300), l.Profit())

	amount := int64(450)
	_, err = l.Update(exp.ID, Patch{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, int64(50), l.Profit())

	l.Delete(exp.ID)
	assert.Equal(t, int64(0), l.TotalExpense())
	assert.Equal(t, int64(500), l.Profit())
}

func TestAdd_Validation(t *testing.T) {
	l := NewLedger()
	_, err := l.Add(Transaction{Type: TypeIncome, Amount: 0, Description: "x"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Add(Transaction{Type: TypeIncome, Amount: -5, Description: "x"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Add(Transaction{Type: TypeIncome, Amount: 5, Description: "   "})
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	_, err = l.Add(Transaction{Type: "refund", Amount: 5, Description: "x"})
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	assert.Empty(t, l.All())
}

func TestUpdate(t *testing.T) {
	l := NewLedger(Transaction{ID: "t1", Type: TypeIncome, Amount: 10, Description: "a"})

	_, err := l.Update("nope", Patch{})
	assert.ErrorIs(t, err, ErrNotFound)

	bad := int64(0)
	_, err = l.Update("t1", Patch{Amount: &bad})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, int64(10), l.All()[0].Amount)

	typ, desc := TypeExpense, "rent"
	got, err := l.Update("t1", Patch{Type: &typ, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, TypeExpense, got.Type)
	assert.Equal(t, "rent", got.Description)
	assert.Equal(t, int64(-10), l.Profit())
}

func TestDelete_UnknownIsNoop(t *testing.T) {
	l := NewLedger(Transaction{ID: "t1", Type: TypeIncome, Amount: 10, Description: "a"})
	l.Delete("t2")
	assert.Len(t, l.All(), 1)
}

func TestFilter_DoesNotMutate(t *testing.T) {
	l := NewLedger(
		Transaction{ID: "a", Type: TypeIncome, Amount: 10, Description: "a", Date: day(2026, 1, 5)},
		Transaction{ID: "b", Type: TypeExpense, Amount: 4, Description: "b", Date: day(2026, 1, 20)},
		Transaction{ID: "c", Type: TypeIncome, Amount: 7, Description: "c", Date: day(2026, 2, 2)},
	)

	jan := l.Filter(Filter{Month: "2026-01"})
	assert.Len(t, jan, 2)

	income := l.Filter(Filter{Type: TypeIncome})
	assert.Len(t, income, 2)

	janIncome := l.Filter(Filter{Type: TypeIncome, Month: "2026-01"})
	require.Len(t, janIncome, 1)
	assert.Equal(t, "a", janIncome[0].ID)

	assert.Len(t, l.All(), 3)
	assert.Equal(t, int64(13), l.Profit())

	s := l.Summarize(Filter{Month: "2026-01"})
	assert.Equal(t, Summary{Income: 10, Expense: 4, Profit: 6, Count: 2}, s)
}

func TestRandomSequencesKeepProfitConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := NewLedger()
	var ids []string

	for step := 0; step < 500; step++ {
		switch rng.Intn(3) {
		case 0:
			typ := TypeIncome
			if rng.Intn(2) == 0 {
				typ = TypeExpense
			}
			tx, err := l.Add(Transaction{Type: typ, Amount: int64(rng.Intn(1000) + 1), Description: "x"})
			require.NoError(t, err)
			ids = append(ids, tx.ID)
		case 1:
			if len(ids) > 0 {
				amount := int64(rng.Intn(1000) + 1)
				_, _ = l.Update(ids[rng.Intn(len(ids))], Patch{Amount: &amount})
			}
		case 2:
			if len(ids) > 0 {
				l.Delete(ids[rng.Intn(len(ids))])
			}
		}

		var income, expense int64
		for _, tx := range l.All() {
			if tx.Type == TypeIncome {
				income += tx.Amount
			} else {
				expense += tx.Amount
			}
		}
		require.Equal(t, income, l.TotalIncome())
		require.Equal(t, expense, l.TotalExpense())
		require.Equal(t, l.TotalIncome()-l.TotalExpense(), l.Profit())
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("Income")
	require.NoError(t, err)
	assert.Equal(t, TypeIncome, typ)

	_, err = ParseType("gift")
	assert.Error(t, err)
}

func TestTransactionJSON_DateOnly(t *testing.T) {
	tx := Transaction{ID: "t1", Type: TypeIncome, Amount: 900000, Description: "event order", Date: day(2026, 5, 12)}

	b, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t1","type":"income","amount":900000,"description":"event order","date":"2026-05-12"}`, string(b))

	var back Transaction
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, tx, back)

	err = json.Unmarshal([]byte(`{"id":"t2","date":"2026-05-12T00:00:00Z"}`), &back)
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}
