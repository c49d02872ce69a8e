// Package order собирает запрос на создание заказа в готовый к сохранению
// заказ: валидация, расчёт стоимости и кредитный контроль с наблюдаемым
// побочным эффектом в виде сохранённого заказа.
package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/imrob/vendas/internal/domain"
	"github.com/imrob/vendas/internal/metrics"
)

const (
	aggregateTypeOrder = "order"

	eventOrderCreated  = "order.created"
	eventOrderCanceled = "order.canceled"
	eventOrderDeleted  = "order.deleted"
)

// CreditAuthorizer отвечает на вопрос, помещается ли заказ в кредит клиента.
type CreditAuthorizer interface {
	Authorize(customer domain.Customer, orderTotalCents int64) error
}

// Service реализует создание и жизненный цикл заказов.
type Service struct {
	orders    domain.OrderRepository
	catalog   domain.CatalogStore
	credit    CreditAuthorizer
	validator *Validator
	outbox    domain.OutboxRepository
	metrics   *metrics.OrderMetrics
	locks     *customerLocks
	now       func() time.Time
	logger    *log.Entry
}

// NewService конструирует сервис заказов. Outbox и метрики опциональны.
func NewService(
	orders domain.OrderRepository,
	catalog domain.CatalogStore,
	credit CreditAuthorizer,
	validator *Validator,
	outbox domain.OutboxRepository,
	orderMetrics *metrics.OrderMetrics,
	logger *log.Entry,
) *Service {
	return NewServiceWithClock(orders, catalog, credit, validator, outbox, orderMetrics, time.Now, logger)
}

// NewServiceWithClock позволяет подменить часы (используется в тестах).
func NewServiceWithClock(
	orders domain.OrderRepository,
	catalog domain.CatalogStore,
	credit CreditAuthorizer,
	validator *Validator,
	outbox domain.OutboxRepository,
	orderMetrics *metrics.OrderMetrics,
	now func() time.Time,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	if now == nil {
		now = time.Now
	}
	if validator == nil {
		validator = NewValidator(now)
	}
	return &Service{
		orders:    orders,
		catalog:   catalog,
		credit:    credit,
		validator: validator,
		outbox:    outbox,
		metrics:   orderMetrics,
		locks:     newCustomerLocks(),
		now:       now,
		logger:    logger,
	}
}

// CreateOrder валидирует запрос, рассчитывает стоимость, проверяет кредит
// и сохраняет заказ. Возвращает идентификатор созданного заказа.
func (s *Service) CreateOrder(req CreateOrderRequest) (string, error) {
	started := time.Now()
	now := s.now().UTC()

	if req.Date.IsZero() {
		req.Date = now
	}
	req.Date = domain.DateOnly(req.Date)

	if violations := s.validator.ValidateRequest(req); len(violations) > 0 {
		return "", &domain.ValidationError{Violations: violations}
	}
	// Повторный проход по позициям намеренный: агрегат и каждая позиция
	// проверяются независимо.
	for idx, item := range req.Items {
		if violations := s.validator.ValidateItem(idx, item); len(violations) > 0 {
			return "", &domain.ValidationError{Violations: violations}
		}
	}

	totalCents := req.TotalCents
	if totalCents == 0 {
		var err error
		totalCents, err = s.priceItems(req.Items)
		if err != nil {
			return "", err
		}
	}

	// Проверка кредита и сохранение под одним замком клиента.
	unlock := s.locks.acquire(req.CustomerID)
	defer unlock()

	customer, err := s.catalog.CustomerByID(req.CustomerID)
	if err != nil {
		return "", &domain.CustomerNotFoundError{ID: req.CustomerID}
	}

	if err := s.credit.Authorize(customer, totalCents); err != nil {
		if errors.Is(err, domain.ErrCreditLimitExceeded) && s.metrics != nil {
			s.metrics.RecordCreditRejected()
		}
		return "", err
	}
	if s.metrics != nil {
		s.metrics.RecordCreditAllowed()
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		if _, err := s.catalog.ProductByID(item.ProductID); err != nil {
			return "", &domain.ProductNotFoundError{ID: item.ProductID}
		}
		items = append(items, domain.LineItem{
			ID:        uuid.NewString(),
			ProductID: item.ProductID,
			Qty:       item.Qty,
			CreatedAt: now,
		})
	}

	order := domain.Order{
		ID:         uuid.NewString(),
		CustomerID: req.CustomerID,
		Date:       req.Date,
		Status:     domain.OrderStatusActive,
		TotalCents: totalCents,
		Items:      items,
		Version:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return "", fmt.Errorf("invalid order: %w", errors.Join(errs...))
	}

	if err := s.orders.Create(order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist order")
		return "", fmt.Errorf("create order: %w", err)
	}

	s.emitEvent(order.ID, eventOrderCreated, map[string]interface{}{
		"customer_id": order.CustomerID,
		"status":      string(order.Status),
		"total":       domain.FormatCents(order.TotalCents),
		"date":        order.Date.Format("2006-01-02"),
	})

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
		s.metrics.RecordCreateDuration(time.Since(started))
	}

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"total":       domain.FormatCents(order.TotalCents),
	}).Info("order created")

	return order.ID, nil
}

// priceItems считает стоимость заказа по актуальным ценам каталога.
// Нераспознанные товары молча не участвуют в расчёте.
func (s *Service) priceItems(items []ItemRequest) (int64, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.ProductsByIDs(ids)
	if err != nil {
		return 0, fmt.Errorf("resolve products: %w", err)
	}

	prices := make(map[string]int64, len(products))
	for _, product := range products {
		prices[product.ID] = product.PriceCents
	}

	var total int64
	for _, item := range items {
		price, ok := prices[item.ProductID]
		if !ok {
			continue
		}
		total += price * int64(item.Qty)
	}
	return total, nil
}

// CancelOrder переводит заказ в EXCLUIDO. Текущий статус не проверяется:
// повторная отмена — тихая перезапись с тем же результатом.
func (s *Service) CancelOrder(id string) error {
	order, err := s.orders.Get(id)
	if err != nil {
		if domain.IsNotFound(err) {
			s.logger.WithField("order_id", id).Warn("cancel requested for missing order")
			return err
		}
		return fmt.Errorf("load order: %w", err)
	}

	order.Status = domain.OrderStatusCanceled
	order.UpdatedAt = s.now().UTC()

	if err := s.orders.Save(order); err != nil {
		s.logger.WithError(err).WithField("order_id", id).Error("failed to cancel order")
		return fmt.Errorf("cancel order: %w", err)
	}

	s.emitEvent(id, eventOrderCanceled, map[string]interface{}{
		"customer_id": order.CustomerID,
		"status":      string(order.Status),
	})

	if s.metrics != nil {
		s.metrics.RecordOrderCanceled()
	}
	return nil
}

// DeleteOrder жёстко удаляет заказ вместе с позициями.
func (s *Service) DeleteOrder(id string) error {
	order, err := s.orders.Get(id)
	if err != nil {
		if domain.IsNotFound(err) {
			s.logger.WithField("order_id", id).Warn("delete requested for missing order")
			return err
		}
		return fmt.Errorf("load order: %w", err)
	}

	if err := s.orders.Delete(id); err != nil {
		s.logger.WithError(err).WithField("order_id", id).Error("failed to delete order")
		return fmt.Errorf("delete order: %w", err)
	}

	s.emitEvent(id, eventOrderDeleted, map[string]interface{}{
		"customer_id": order.CustomerID,
	})

	if s.metrics != nil {
		s.metrics.RecordOrderDeleted()
	}
	return nil
}

// FilterOrders возвращает заказы, удовлетворяющие всем заданным предикатам.
func (s *Service) FilterOrders(filter domain.OrderFilter) ([]domain.Order, error) {
	return s.orders.Filter(filter)
}

// Save всегда возвращает ErrMethodNotAllowed: заказы создаются только
// через CreateOrder.
func (s *Service) Save(domain.Order) error {
	return domain.ErrMethodNotAllowed
}

// Update всегда возвращает ErrMethodNotAllowed: заказы после создания не
// редактируются по полям, только отменяются или удаляются.
func (s *Service) Update(domain.Order) error {
	return domain.ErrMethodNotAllowed
}

// emitEvent кладёт событие в outbox. Ошибка публикации не прерывает
// операцию: заказ уже сохранён, событие доедет при следующей попытке
// или потеряется с записью в лог.
func (s *Service) emitEvent(orderID, eventType string, payload map[string]interface{}) {
	if s.outbox == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = orderID

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: aggregateTypeOrder,
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("enqueue event failed")
	}
}
