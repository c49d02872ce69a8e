// Package report отвечает за сводные отчёты по продажам.
package report

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/imrob/vendas/internal/domain"
)

// Service выполняет агрегирующие выборки без побочных эффектов.
type Service struct {
	orders domain.OrderRepository
	logger *log.Entry
}

// NewService конструирует сервис отчётов.
func NewService(orders domain.OrderRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "report")
	}
	return &Service{orders: orders, logger: logger}
}

// TotalsByCustomer возвращает по строке на каждого клиента хотя бы с одним
// заказом, суммируя сохранённые итоги заказов (не пересчитывая по позициям).
func (s *Service) TotalsByCustomer() ([]domain.CustomerTotal, error) {
	rows, err := s.orders.GroupedByCustomer()
	if err != nil {
		s.logger.WithError(err).Error("failed to aggregate totals by customer")
		return nil, fmt.Errorf("totals by customer: %w", err)
	}
	return rows, nil
}

// TotalsByProduct возвращает по строке на каждый товар, встречающийся хотя бы
// в одной позиции: суммарное количество и стоимость по актуальной цене.
// Отменённые заказы учитываются наравне с активными.
func (s *Service) TotalsByProduct() ([]domain.ProductTotal, error) {
	rows, err := s.orders.GroupedByProduct()
	if err != nil {
		s.logger.WithError(err).Error("failed to aggregate totals by product")
		return nil, fmt.Errorf("totals by product: %w", err)
	}
	return rows, nil
}
