package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syzygy-tms/internal/core"
	"syzygy-tms/internal/db"
	"syzygy-tms/internal/store/postgres"
	"syzygy-tms/migrations"
)

// setupTestDB migrates and truncates the test database. Tests are skipped
// unless TEST_DATABASE_URL is set.
func setupTestDB(t *testing.T) (*pgxpool.Pool, *postgres.Store) {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = db.Migrate(ctx, pool, migrations.FS, zerolog.Nop())
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `TRUNCATE invoice_items, invoices, trips, orders, clients, invoice_sequences RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return pool, postgres.New(pool)
}

func services(store core.Store) (core.OrderService, core.TripService, core.InvoiceService) {
	log := zerolog.Nop()
	cfg := core.DefaultInvoicingConfig()
	cfg.Clock = func() time.Time { return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC) }
	return core.NewOrderService(store, log), core.NewTripService(store, log), core.NewInvoiceService(store, cfg, log)
}

func TestPostgres_InvoiceFromOrderScenario(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()
	orders, trips, invoices := services(store)

	client, err := orders.CreateClient(ctx, core.Client{Name: "Danube Freight a.s.", City: "Bratislava", Country: "Slovakia"})
	require.NoError(t, err)
	order, err := orders.CreateOrder(ctx, core.OrderInput{
		Ref: "PG-001", ClientID: &client.ID, PickupAddress: "BTS", DeliveryAddress: "VIE", Price: "100",
	})
	require.NoError(t, err)
	_, err = trips.ScheduleTrip(ctx, core.TripInput{OrderID: order.ID, Status: core.TripStatusDone})
	require.NoError(t, err)

	res, err := invoices.CreateFromOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCreated, res.Outcome)
	assert.Equal(t, "INV-2025-0001", res.Invoice.Number)

	reloaded, err := invoices.GetInvoice(ctx, res.Invoice.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "Transport service (PG-001: BTS → VIE)", reloaded.Items[0].Description)
	assert.Equal(t, "100.00", reloaded.Total.StringFixed(2))
	assert.True(t, reloaded.Total.Equal(reloaded.Subtotal.Add(reloaded.VATAmount)))
	assert.Equal(t, "Bratislava, Slovakia", reloaded.Buyer.Address)

	locked, err := orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusInvoiced, locked.Status)

	again, err := invoices.CreateFromOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeAlreadyInvoiced, again.Outcome)
	assert.Equal(t, res.Invoice.ID, again.Invoice.ID)

	_, err = invoices.UpdateManualPricing(ctx, res.Invoice.ID, core.ManualPricing{NetAmount: reloaded.Total})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestPostgres_ManualInvoiceLinesReloadConsistently(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()
	_, _, invoices := services(store)

	num := decimal.RequireFromString
	inv, err := invoices.CreateManual(ctx, core.ManualInvoiceInput{
		Buyer: core.Party{Name: "Carpathia Trade"},
		Items: []core.LineInput{
			{Description: "Wrap", Quantity: num("3"), UnitPrice: num("0.335"), VATRate: num("20")},
			{Description: "Waiting", Quantity: num("1.0005"), UnitPrice: num("1000"), VATRate: num("0")},
			{Description: "Toll", Quantity: num("1"), UnitPrice: num("1000"), VATRate: num("5.555")},
		},
	})
	require.NoError(t, err)

	reloaded, err := invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 3)
	for i, it := range reloaded.Items {
		assert.True(t, it.Quantity.Equal(inv.Items[i].Quantity), it.Description)
		assert.True(t, it.VATRate.Equal(inv.Items[i].VATRate), it.Description)
		assert.True(t, it.LineTotal.Equal(inv.Items[i].LineTotal), it.Description)
		assert.True(t, it.VATAmount.Equal(inv.Items[i].VATAmount), it.Description)
	}
	assert.Equal(t, "1.02", reloaded.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "1001.00", reloaded.Items[1].LineTotal.StringFixed(2))
	assert.Equal(t, "55.60", reloaded.Items[2].VATAmount.StringFixed(2))

	_, err = core.LoadSnapshot(ctx, store, inv.ID)
	assert.NoError(t, err)
}

func TestPostgres_ConcurrentInvoicingOfOneOrder(t *testing.T) {
	pool, store := setupTestDB(t)
	ctx := context.Background()
	orders, _, invoices := services(store)

	order, err := orders.CreateOrder(ctx, core.OrderInput{Ref: "PG-002", PickupAddress: "A", DeliveryAddress: "B", Price: "50"})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := invoices.CreateFromOrder(ctx, order.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent invoicing failed: %v", err)
	}

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM invoices WHERE order_id = $1`, order.ID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPostgres_ConcurrentNumbersAreUnique(t *testing.T) {
	pool, store := setupTestDB(t)
	ctx := context.Background()
	orders, _, invoices := services(store)

	const n = 12
	ids := make([]int, n)
	for i := range ids {
		o, err := orders.CreateOrder(ctx, core.OrderInput{
			Ref: fmt.Sprintf("PG-1%02d", i), PickupAddress: "A", DeliveryAddress: "B", Price: "10",
		})
		require.NoError(t, err)
		ids[i] = o.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n*2)
	for _, id := range ids {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			if _, err := invoices.CreateFromOrder(ctx, id); err != nil {
				errs <- err
			}
		}(id)
		go func() {
			defer wg.Done()
			if _, err := invoices.CreateManual(ctx, core.ManualInvoiceInput{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent creation failed: %v", err)
	}

	var total, distinct int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*), count(DISTINCT number) FROM invoices`).Scan(&total, &distinct))
	assert.Equal(t, n*2, total)
	assert.Equal(t, total, distinct)

	var maxNumber string
	require.NoError(t, pool.QueryRow(ctx, `SELECT max(number) FROM invoices`).Scan(&maxNumber))
	assert.Equal(t, core.FormatInvoiceNumber(2025, n*2), maxNumber)
}

func TestPostgres_ConstraintMapping(t *testing.T) {
	_, store := setupTestDB(t)
	ctx := context.Background()

	order := &core.Order{Ref: "PG-300", PickupAddress: "A", DeliveryAddress: "B", Status: core.OrderStatusNew}
	require.NoError(t, store.CreateOrder(ctx, order))

	err := store.CreateOrder(ctx, &core.Order{Ref: "PG-300", PickupAddress: "A", DeliveryAddress: "B", Status: core.OrderStatusNew})
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	require.NoError(t, store.CreateTrip(ctx, &core.Trip{OrderID: order.ID, Status: core.TripStatusPlanned}))
	err = store.CreateTrip(ctx, &core.Trip{OrderID: order.ID, Status: core.TripStatusPlanned})
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	base := core.Invoice{
		Currency: "EUR", Language: core.LanguageEN, Status: core.InvoiceStatusDraft,
		IssueDate: time.Now(), Seller: core.Party{Name: "S"}, Buyer: core.Party{Name: "B"},
	}
	first := base
	first.Number, first.OrderID = "INV-2025-0001", &order.ID
	require.NoError(t, store.CreateInvoice(ctx, &first))

	dupNumber := base
	dupNumber.Number = "INV-2025-0001"
	assert.ErrorIs(t, store.CreateInvoice(ctx, &dupNumber), core.ErrConflict)

	dupOrder := base
	dupOrder.Number, dupOrder.OrderID = "INV-2025-0002", &order.ID
	assert.ErrorIs(t, store.CreateInvoice(ctx, &dupOrder), core.ErrAlreadyInvoiced)

	_, err = store.GetInvoice(ctx, 424242)
	assert.ErrorIs(t, err, core.ErrNotFound)

	seq, err := store.BumpInvoiceSequence(ctx, 2030, 41)
	require.NoError(t, err)
	assert.Equal(t, 42, seq)
	seq, err = store.BumpInvoiceSequence(ctx, 2030, 0)
	require.NoError(t, err)
	assert.Equal(t, 43, seq)
}
