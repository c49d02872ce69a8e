package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imrob/vendas/internal/domain"
)

// newMemoryDependencies собирает сервисы на in-memory хранилище с
// минимальным каталогом для тестов пакета.
func newMemoryDependencies() (*Dependencies, error) {
	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, log.WithField("component", "app-test"))
	if err != nil {
		return nil, err
	}

	limit := int64(100000)
	if _, err := deps.catalog.SaveCustomer(domain.Customer{
		ID: "test-customer-1", Name: "Maria Silva", CreditLimitCents: &limit, ClosingDay: 10,
	}); err != nil {
		return nil, err
	}
	if _, err := deps.catalog.SaveProduct(domain.Product{
		ID: "test-product-1", Description: "Teclado", PriceCents: 1000,
	}); err != nil {
		return nil, err
	}

	return NewDependencies(deps.catalog, deps.repo, deps.outboxRepo, nil), nil
}

// newTestOrder создаёт заказ для использования в тестах пакета.
func newTestOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:         "test-order-1",
		CustomerID: "test-customer-1",
		Date:       time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Status:     domain.OrderStatusActive,
		TotalCents: 1000,
		Items: []domain.LineItem{
			{
				ID:        "item-1",
				ProductID: "test-product-1",
				Qty:       1,
				CreatedAt: now,
			},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
