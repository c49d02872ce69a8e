package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/imrob/vendas/internal/domain"
)

func seedCatalogForIntegrationTest(t *testing.T, store *Store) domain.CatalogStore {
	t.Helper()

	catalog := NewCatalogStore(store)

	limit := int64(100000)
	if _, err := catalog.SaveCustomer(domain.Customer{
		ID: "customer-1", Name: "Maria Silva", CreditLimitCents: &limit, ClosingDay: 10,
	}); err != nil {
		t.Fatalf("seed customer-1: %v", err)
	}
	if _, err := catalog.SaveCustomer(domain.Customer{
		ID: "customer-2", Name: "Joao Souza", CreditLimitCents: &limit, ClosingDay: 5,
	}); err != nil {
		t.Fatalf("seed customer-2: %v", err)
	}
	if _, err := catalog.SaveProduct(domain.Product{
		ID: "product-1", Description: "Teclado", PriceCents: 1000,
	}); err != nil {
		t.Fatalf("seed product-1: %v", err)
	}
	if _, err := catalog.SaveProduct(domain.Product{
		ID: "product-2", Description: "Mouse", PriceCents: 250,
	}); err != nil {
		t.Fatalf("seed product-2: %v", err)
	}

	return catalog
}

func sampleOrder(id, customerID string, date time.Time, createdAt time.Time) domain.Order {
	items := []domain.LineItem{
		{
			ID:        id + "-item-1",
			ProductID: "product-1",
			Qty:       2,
			CreatedAt: createdAt,
		},
	}

	return domain.Order{
		ID:         id,
		CustomerID: customerID,
		Date:       date,
		Status:     domain.OrderStatusActive,
		TotalCents: 2000,
		Items:      items,
		Version:    0,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestOrderRepository_PostgresCreateGetFilterAndSave(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCatalogForIntegrationTest(t, store)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	date1 := time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)
	date2 := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)
	order1 := sampleOrder("order-1", "customer-1", date1, now.Add(-2*time.Minute))
	order2 := sampleOrder("order-2", "customer-1", date2, now.Add(-time.Minute))

	if err := repo.Create(order1); err != nil {
		t.Fatalf("create order1: %v", err)
	}
	if err := repo.Create(order2); err != nil {
		t.Fatalf("create order2: %v", err)
	}

	got, err := repo.Get(order1.ID)
	if err != nil {
		t.Fatalf("get order1: %v", err)
	}
	if got.ID != order1.ID || got.CustomerID != order1.CustomerID || got.Status != order1.Status {
		t.Fatalf("unexpected order payload: %+v", got)
	}
	if len(got.Items) != len(order1.Items) {
		t.Fatalf("unexpected items count: got=%d want=%d", len(got.Items), len(order1.Items))
	}
	if !got.Date.Equal(date1) {
		t.Fatalf("unexpected order date: got=%s want=%s", got.Date, date1)
	}

	customerID := "customer-1"
	filtered, err := repo.Filter(domain.OrderFilter{CustomerID: &customerID, DateFrom: &date2})
	if err != nil {
		t.Fatalf("filter by customer and date: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != order2.ID {
		t.Fatalf("unexpected filter result: %+v", filtered)
	}

	all, err := repo.Filter(domain.OrderFilter{CustomerID: &customerID})
	if err != nil {
		t.Fatalf("filter by customer: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}

	got.Status = domain.OrderStatusCanceled
	got.UpdatedAt = now.Add(time.Minute)
	if err := repo.Save(got); err != nil {
		t.Fatalf("save order: %v", err)
	}

	updated, err := repo.Get(order1.ID)
	if err != nil {
		t.Fatalf("get updated order: %v", err)
	}
	if updated.Status != domain.OrderStatusCanceled {
		t.Fatalf("unexpected status after save: %s", updated.Status)
	}
	if updated.Version != got.Version+1 {
		t.Fatalf("unexpected version after save: got=%d want=%d", updated.Version, got.Version+1)
	}
}

func TestOrderRepository_PostgresErrors(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCatalogForIntegrationTest(t, store)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	date := time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)
	base := sampleOrder("order-errors", "customer-2", date, now)

	if _, err := repo.Get("missing-order"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	if err := repo.Save(base); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on save missing, got %v", err)
	}

	if err := repo.Delete("missing-order"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on delete missing, got %v", err)
	}

	if err := repo.Create(base); err != nil {
		t.Fatalf("create base order: %v", err)
	}
	if err := repo.Create(base); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict on duplicate create, got %v", err)
	}

	duplicated := sampleOrder("order-dup-item", "customer-2", date, now)
	duplicated.Items = append(duplicated.Items, domain.LineItem{
		ID:        "order-dup-item-item-2",
		ProductID: "product-1",
		Qty:       1,
		CreatedAt: now,
	})
	if err := repo.Create(duplicated); !errors.Is(err, domain.ErrDuplicateOrderProduct) {
		t.Fatalf("expected ErrDuplicateOrderProduct, got %v", err)
	}

	stale := base
	stale.Status = domain.OrderStatusCanceled
	stale.UpdatedAt = now.Add(time.Minute)
	stale.Version = 42
	if err := repo.Save(stale); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict on stale save, got %v", err)
	}
}

func TestOrderRepository_PostgresSumAndReports(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCatalogForIntegrationTest(t, store)
	repo := NewOrderRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	order1 := sampleOrder("order-1", "customer-1", time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC), now)
	order2 := sampleOrder("order-2", "customer-1", time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC), now)
	order2.Status = domain.OrderStatusCanceled
	order2.Items = []domain.LineItem{
		{ID: "order-2-item-1", ProductID: "product-2", Qty: 4, CreatedAt: now},
	}
	order2.TotalCents = 1000

	if err := repo.Create(order1); err != nil {
		t.Fatalf("create order1: %v", err)
	}
	if err := repo.Create(order2); err != nil {
		t.Fatalf("create order2: %v", err)
	}

	// Строго больше граничной даты: order1 отсекается, отменённый order2 входит.
	spent, err := repo.SumSpentSince("customer-1", time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("sum spent since: %v", err)
	}
	if spent != 1000 {
		t.Fatalf("unexpected spent: got=%d want=1000", spent)
	}

	spentAll, err := repo.SumSpentSince("customer-1", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("sum spent since january: %v", err)
	}
	if spentAll != 3000 {
		t.Fatalf("unexpected total spent: got=%d want=3000", spentAll)
	}

	byCustomer, err := repo.GroupedByCustomer()
	if err != nil {
		t.Fatalf("grouped by customer: %v", err)
	}
	if len(byCustomer) != 1 || byCustomer[0].CustomerID != "customer-1" || byCustomer[0].TotalCents != 3000 {
		t.Fatalf("unexpected customer totals: %+v", byCustomer)
	}

	byProduct, err := repo.GroupedByProduct()
	if err != nil {
		t.Fatalf("grouped by product: %v", err)
	}
	if len(byProduct) != 2 {
		t.Fatalf("expected 2 product rows, got %d", len(byProduct))
	}
	for _, row := range byProduct {
		switch row.ProductID {
		case "product-1":
			if row.TotalQty != 2 || row.TotalCents != 2000 {
				t.Fatalf("unexpected product-1 totals: %+v", row)
			}
		case "product-2":
			if row.TotalQty != 4 || row.TotalCents != 1000 {
				t.Fatalf("unexpected product-2 totals: %+v", row)
			}
		default:
			t.Fatalf("unexpected product row: %+v", row)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected unique violation for code 23505")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "22001"}) {
		t.Fatal("unexpected unique violation for non-unique code")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain error must not be unique violation")
	}
}
