package orders

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-flowershop/internal/cart"
	"github.com/ariefcatur/go-flowershop/internal/catalog"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []Envelope
}

func (p *recordingPublisher) Publish(key, value []byte, _ ...kafkago.Header) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		panic(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, env)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.EventType)
	}
	return out
}

type mapCache struct {
	m    map[string]Status
	fail bool
}

func (c *mapCache) SetStatus(_ context.Context, id string, s Status) error {
	if c.fail {
		return errors.New("redis down")
	}
	c.m[id] = s
	return nil
}

func (c *mapCache) GetStatus(_ context.Context, id string) (Status, bool, error) {
	s, ok := c.m[id]
	return s, ok, nil
}

func (c *mapCache) DeleteStatus(_ context.Context, id string) error {
	delete(c.m, id)
	return nil
}

var shopCatalog = catalog.Static{Products: []catalog.Product{
	{ID: "1", Name: "Red Roses", ImageRef: "roses.jpg", Sizes: []catalog.Size{{Name: "S", Price: 350000}, {Name: "L", Price: 550000}}, InStock: true},
	{ID: "2", Name: "White Lilies", Price: 120000, InStock: true},
	{ID: "3", Name: "Peonies", Price: 900000, InStock: false},
}}

type fixture struct {
	svc    *Service
	store  *MemStore
	placed *recordingPublisher
	status *recordingPublisher
	cache  *mapCache
}

func newFixture() *fixture {
	f := &fixture{
		store:  NewMemStore(),
		placed: &recordingPublisher{},
		status: &recordingPublisher{},
		cache:  &mapCache{m: map[string]Status{}},
	}
	f.svc = &Service{
		Store:        f.store,
		Catalog:      shopCatalog,
		Placed:       f.placed,
		StatusEvents: f.status,
		Cache:        f.cache,
		ServiceName:  "test",
		ShippingFee:  30000,
		Now:          func() time.Time { return time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC) },
	}
	return f
}

func (f *fixture) place(t *testing.T, method PaymentMethod) Order {
	t.Helper()
	o, err := f.svc.Checkout(context.Background(), CheckoutInput{
		Lines:         []cart.Line{{ProductID: "1", SizeName: "S", UnitPrice: 1, Quantity: 2}},
		Customer:      buyer,
		PaymentMethod: method,
		OwnerUserID:   "u1",
	})
	require.NoError(t, err)
	return o
}

func TestCheckout_RepricesFromCatalog(t *testing.T) {
	f := newFixture()
	o, err := f.svc.Checkout(context.Background(), CheckoutInput{
		Lines: []cart.Line{
			{ProductID: "1", SizeName: "L", UnitPrice: 1, Quantity: 1},
			{ProductID: "2", UnitPrice: 5, Quantity: 3, Name: "stale"},
		},
		Customer:      buyer,
		PaymentMethod: PaymentCOD,
		OwnerUserID:   "u1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, int64(550000+3*120000+30000), o.TotalPrice)
	assert.Equal(t, "White Lilies", o.Items[1].Name)
	assert.Equal(t, "roses.jpg", o.Items[0].ImageRef)
	assert.Equal(t, StatusNew, o.Status)

	stored, err := f.store.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.TotalPrice, stored.TotalPrice)
	assert.Equal(t, StatusNew, f.cache.m[o.ID])
	assert.Equal(t, []string{EventOrderPlaced}, f.placed.types())
}

func TestCheckout_Rejects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, CheckoutInput{Customer: buyer, PaymentMethod: PaymentCOD})
	assert.ErrorIs(t, err, ErrCartEmpty)

	_, err = f.svc.Checkout(ctx, CheckoutInput{
		Lines: []cart.Line{{ProductID: "3", Quantity: 1}}, Customer: buyer, PaymentMethod: PaymentCOD,
	})
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = f.svc.Checkout(ctx, CheckoutInput{
		Lines: []cart.Line{{ProductID: "404", Quantity: 1}}, Customer: buyer, PaymentMethod: PaymentCOD,
	})
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = f.svc.Checkout(ctx, CheckoutInput{
		Lines: []cart.Line{{ProductID: "1", SizeName: "XL", Quantity: 1}}, Customer: buyer, PaymentMethod: PaymentCOD,
	})
	assert.ErrorIs(t, err, catalog.ErrUnknownSize)

	orders, _ := f.store.List(ctx, ListFilter{})
	assert.Empty(t, orders)
	assert.Empty(t, f.placed.types())
}

func TestCheckout_SnapshotSurvivesCatalogChange(t *testing.T) {
	f := newFixture()
	o := f.place(t, PaymentCOD)

	f.svc.Catalog = catalog.Static{Products: []catalog.Product{
		{ID: "1", Name: "Red Roses", Sizes: []catalog.Size{{Name: "S", Price: 1}}, InStock: true},
	}}

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(350000), got.Items[0].UnitPrice)
	assert.Equal(t, o.TotalPrice, got.TotalPrice)
}

func TestTransition_PendingPaymentToProcessingThenNoShortcut(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, PaymentBank)
	require.Equal(t, StatusPendingPayment, o.Status)

	o, err := f.svc.Transition(ctx, o.ID, StatusProcessing, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)

	_, err = f.svc.Transition(ctx, o.ID, StatusCompleted, "admin", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, _ := f.store.Get(ctx, o.ID)
	assert.Equal(t, StatusProcessing, stored.Status)
	assert.Equal(t, []string{EventOrderStatusChanged}, f.status.types())
}

func TestTransition_EveryPair(t *testing.T) {
	ctx := context.Background()
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			f := newFixture()
			o := f.place(t, PaymentCOD)
			require.NoError(t, f.store.UpdateStatus(ctx, o.ID, from, time.Now()))

			_, err := f.svc.Transition(ctx, o.ID, to, "admin", "")
			stored, _ := f.store.Get(ctx, o.ID)
			if CanTransition(from, to) {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, stored.Status)
				assert.Equal(t, to, f.cache.m[o.ID])
			} else {
				require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
				assert.Equal(t, from, stored.Status)
			}
		}
	}
}

func TestTransition_FullCODLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, PaymentCOD)

	for _, to := range []Status{StatusProcessing, StatusDelivering, StatusCompleted} {
		var err error
		o, err = f.svc.Transition(ctx, o.ID, to, "admin", "")
		require.NoError(t, err)
	}
	assert.Equal(t, StatusCompleted, o.Status)

	_, err := f.svc.Transition(ctx, o.ID, StatusCancelled, "admin", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransition_UnknownOrderAndStatus(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Transition(context.Background(), "missing", StatusProcessing, "admin", "")
	assert.ErrorIs(t, err, ErrNotFound)

	o := f.place(t, PaymentCOD)
	_, err = f.svc.Transition(context.Background(), o.ID, Status("shipped"), "admin", "")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestOverride(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, PaymentCOD)
	o, _ = f.svc.Transition(ctx, o.ID, StatusProcessing, "admin", "")
	o, _ = f.svc.Transition(ctx, o.ID, StatusDelivering, "admin", "")

	_, err := f.svc.Override(ctx, o.ID, StatusProcessing, "admin", "  ", "")
	assert.ErrorIs(t, err, ErrOverrideReason)

	_, err = f.svc.Override(ctx, o.ID, StatusDelivering, "admin", "noop", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	o, err = f.svc.Override(ctx, o.ID, StatusProcessing, "admin", "courier returned parcel", "")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)

	types := f.status.types()
	assert.Equal(t, EventOrderStatusOverridden, types[len(types)-1])

	var p StatusChangedPayload
	require.NoError(t, json.Unmarshal(f.status.msgs[len(f.status.msgs)-1].Payload, &p))
	assert.Equal(t, StatusDelivering, p.From)
	assert.Equal(t, "courier returned parcel", p.Reason)
}

func TestConfirmPayment_WalksForward(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, PaymentBank)

	o, err := f.svc.ConfirmPayment(ctx, o.ID, "ref-1", o.TotalPrice, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Len(t, f.status.types(), 2)

	o, err = f.svc.ConfirmPayment(ctx, o.ID, "ref-1", o.TotalPrice, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Len(t, f.status.types(), 2)
}

func TestConfirmPayment_CancelledOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, PaymentBank)
	_, err := f.svc.Transition(ctx, o.ID, StatusCancelled, "admin", "")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(ctx, o.ID, "ref-1", o.TotalPrice, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmPayment_Underpaid(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, PaymentBank)
	require.Equal(t, int64(730000), o.TotalPrice)

	_, err := f.svc.ConfirmPayment(ctx, o.ID, "ref-1", 1, "")
	assert.ErrorIs(t, err, ErrUnderpaid)

	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, got.Status)
	assert.Empty(t, f.status.types())

	got, err = f.svc.ConfirmPayment(ctx, o.ID, "ref-2", 800000, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
}

func TestStatus_ReadsThroughCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, PaymentCOD)

	delete(f.cache.m, o.ID)
	st, err := f.svc.Status(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, st)
	assert.Equal(t, StatusNew, f.cache.m[o.ID])

	f.cache.m[o.ID] = StatusPaid
	st, _ = f.svc.Status(ctx, o.ID)
	assert.Equal(t, StatusPaid, st)
}

func TestCacheFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture()
	o := f.place(t, PaymentCOD)
	f.cache.fail = true

	_, err := f.svc.Transition(context.Background(), o.ID, StatusProcessing, "admin", "")
	assert.NoError(t, err)
}

func TestCacheFailureDropsStaleStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, PaymentCOD)
	require.Equal(t, StatusNew, f.cache.m[o.ID])

	f.cache.fail = true
	_, err := f.svc.Transition(ctx, o.ID, StatusProcessing, "admin", "")
	require.NoError(t, err)
	assert.NotContains(t, f.cache.m, o.ID)

	st, err := f.svc.Status(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, st)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.place(t, PaymentCOD)

	require.NoError(t, f.svc.Delete(ctx, o.ID))
	_, err := f.svc.Get(ctx, o.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotContains(t, f.cache.m, o.ID)

	assert.NoError(t, f.svc.Delete(ctx, o.ID))
}

func TestList_FiltersByOwnerAndStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.place(t, PaymentCOD)
	f.place(t, PaymentBank)
	_, err := f.svc.Checkout(ctx, CheckoutInput{
		Lines: []cart.Line{{ProductID: "2", Quantity: 1}}, Customer: buyer, PaymentMethod: PaymentCOD, OwnerUserID: "u2",
	})
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, ListFilter{OwnerUserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	fresh, err := f.svc.List(ctx, ListFilter{OwnerUserID: "u1", Status: StatusNew})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, a.ID, fresh[0].ID)
}
