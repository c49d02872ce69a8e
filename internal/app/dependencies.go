package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/imrob/vendas/internal/domain"
	"github.com/imrob/vendas/internal/metrics"
	"github.com/imrob/vendas/internal/service/credit"
	"github.com/imrob/vendas/internal/service/order"
	"github.com/imrob/vendas/internal/service/report"
)

// Dependencies содержит собранные сервисы приложения.
type Dependencies struct {
	Catalog    domain.CatalogStore
	Repo       domain.OrderRepository
	OutboxRepo domain.OutboxRepository

	Credit  *credit.Service
	Orders  *order.Service
	Reports *report.Service
	Metrics *metrics.OrderMetrics

	Logger *log.Entry
}

// NewDependencies связывает сервисы поверх инфраструктурных зависимостей.
func NewDependencies(catalog domain.CatalogStore, repo domain.OrderRepository, outboxRepo domain.OutboxRepository, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	orderMetrics := metrics.NewOrderMetrics()
	creditSvc := credit.NewService(catalog, repo, logger.WithField("layer", "credit"))
	orderSvc := order.NewService(
		repo,
		catalog,
		creditSvc,
		nil,
		outboxRepo,
		orderMetrics,
		logger.WithField("layer", "order"),
	)
	reportSvc := report.NewService(repo, logger.WithField("layer", "report"))

	return &Dependencies{
		Catalog:    catalog,
		Repo:       repo,
		OutboxRepo: outboxRepo,
		Credit:     creditSvc,
		Orders:     orderSvc,
		Reports:    reportSvc,
		Metrics:    orderMetrics,
		Logger:     logger,
	}
}
