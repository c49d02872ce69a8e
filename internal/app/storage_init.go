package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/imrob/vendas/internal/domain"
	"github.com/imrob/vendas/internal/storage/memory"
	"github.com/imrob/vendas/internal/storage/postgres"
)

// StorageDriver задаёт выбранное хранилище приложения.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// runtimeDependencies — инфраструктурные зависимости, собранные под выбранный драйвер.
type runtimeDependencies struct {
	catalog    domain.CatalogStore
	repo       domain.OrderRepository
	outboxRepo domain.OutboxRepository
	// store не nil только для postgres; используется для health-check и закрытия.
	store *postgres.Store
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d.store == nil {
		return
	}
	if err := d.store.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	}
}

// initRuntimeDependencies собирает хранилище по конфигурации. Пустой драйвер
// трактуется как memory.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		catalog := memory.NewCatalogStore()
		deps := &runtimeDependencies{
			catalog:    catalog,
			repo:       memory.NewOrderRepository(catalog),
			outboxRepo: memory.NewOutboxRepository(),
		}
		if cfg.SeedDemoData {
			if err := seedDemoCatalog(catalog); err != nil {
				return nil, fmt.Errorf("seed demo catalog: %w", err)
			}
			logger.Info("in-memory catalog seeded with demo data")
		}
		return deps, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage driver requires a DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		return &runtimeDependencies{
			catalog:    postgres.NewCatalogStore(store),
			repo:       postgres.NewOrderRepository(store),
			outboxRepo: postgres.NewOutboxRepository(store),
			store:      store,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

// seedDemoCatalog наполняет пустой каталог демонстрационными клиентами и
// товарами, чтобы сервис было с чем запускать локально.
func seedDemoCatalog(catalog domain.CatalogStore) error {
	limitOf := func(cents int64) *int64 { return &cents }

	customers := []domain.Customer{
		{ID: "cliente-1", Name: "Maria Silva", CreditLimitCents: limitOf(500000), ClosingDay: 10},
		{ID: "cliente-2", Name: "Joao Souza", CreditLimitCents: limitOf(250000), ClosingDay: 5},
		{ID: "cliente-3", Name: "Ana Oliveira", CreditLimitCents: limitOf(1000000), ClosingDay: 25},
	}
	products := []domain.Product{
		{ID: "produto-1", Description: "Teclado mecanico", PriceCents: 25000},
		{ID: "produto-2", Description: "Mouse sem fio", PriceCents: 12000},
		{ID: "produto-3", Description: "Monitor 24 polegadas", PriceCents: 89000},
		{ID: "produto-4", Description: "Headset USB", PriceCents: 18000},
	}

	for _, customer := range customers {
		if _, err := catalog.SaveCustomer(customer); err != nil {
			return fmt.Errorf("seed customer %s: %w", customer.ID, err)
		}
	}
	for _, product := range products {
		if _, err := catalog.SaveProduct(product); err != nil {
			return fmt.Errorf("seed product %s: %w", product.ID, err)
		}
	}

	return nil
}
