// Package credit реализует кредитный контроль: расчёт дат закрытия фатуры,
// потраченной суммы за текущий цикл и доступного кредита клиента.
package credit

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imrob/vendas/internal/domain"
)

// daysIn возвращает число дней в месяце. Нулевой день следующего месяца
// нормализуется стандартной библиотекой в последний день текущего.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LatestClosingDate возвращает дату последнего закрытия фатуры: closingDay
// текущего месяца, если сегодня этот день уже наступил, иначе closingDay
// предыдущего месяца. Если в целевом месяце меньше дней, чем closingDay
// (например, 31 в феврале), дата прижимается к последнему дню месяца.
// Это исключительная нижняя граница трат текущего цикла.
func LatestClosingDate(closingDay int, today time.Time) time.Time {
	year, month, day := today.UTC().Date()
	if day < closingDay {
		month--
	}
	// time.Date нормализует нулевой месяц в декабрь предыдущего года.
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	y, m, _ := first.Date()

	d := closingDay
	if last := daysIn(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextClosingDate возвращает дату следующего закрытия: последняя дата
// закрытия плюс месяц. Месяц прибавляется к уже прижатому дню, поэтому
// для closingDay=31 при последнем закрытии 28 февраля следующее будет
// 28 марта. Используется только в сообщениях об отказе.
func NextClosingDate(closingDay int, today time.Time) time.Time {
	latest := LatestClosingDate(closingDay, today)
	first := time.Date(latest.Year(), latest.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	y, m, _ := first.Date()

	d := latest.Day()
	if last := daysIn(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Service отвечает на вопрос "сколько кредита осталось у клиента сейчас".
type Service struct {
	catalog domain.CatalogStore
	orders  domain.OrderRepository
	now     func() time.Time
	logger  *log.Entry
}

// NewService конструирует кредитный контроль с системными часами.
func NewService(catalog domain.CatalogStore, orders domain.OrderRepository, logger *log.Entry) *Service {
	return NewServiceWithClock(catalog, orders, time.Now, logger)
}

// NewServiceWithClock позволяет подменить часы (используется в тестах).
func NewServiceWithClock(catalog domain.CatalogStore, orders domain.OrderRepository, now func() time.Time, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "credit")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		catalog: catalog,
		orders:  orders,
		now:     now,
		logger:  logger,
	}
}

// TotalSpentSince возвращает сумму покупок клиента с датой строго больше since.
// Клиент без заказов даёт ноль, а не ошибку.
func (s *Service) TotalSpentSince(customerID string, since time.Time) (int64, error) {
	if _, err := s.catalog.CustomerByID(customerID); err != nil {
		return 0, &domain.CustomerNotFoundError{ID: customerID}
	}
	total, err := s.orders.SumSpentSince(customerID, domain.DateOnly(since))
	if err != nil {
		return 0, fmt.Errorf("sum spent since %s: %w", since.Format("2006-01-02"), err)
	}
	return total, nil
}

// TotalSpentSinceClosing возвращает траты клиента в текущем цикле фатуры.
func (s *Service) TotalSpentSinceClosing(customerID string) (int64, error) {
	customer, err := s.catalog.CustomerByID(customerID)
	if err != nil {
		return 0, &domain.CustomerNotFoundError{ID: customerID}
	}
	return s.spentSinceClosing(customer)
}

// AvailableCredit возвращает остаток кредитного лимита клиента на текущий
// момент. ErrMissingCreditLimit, если лимит не настроен; нулевой лимит
// валиден и даёт остаток -потрачено.
func (s *Service) AvailableCredit(customerID string) (int64, error) {
	customer, err := s.catalog.CustomerByID(customerID)
	if err != nil {
		return 0, &domain.CustomerNotFoundError{ID: customerID}
	}
	return s.availableCredit(customer)
}

// Authorize проверяет, помещается ли заказ в доступный кредит клиента.
// Проверка строгая: заказ ровно на весь остаток проходит. Побочных
// эффектов нет — списание неявно происходит при сохранении заказа.
func (s *Service) Authorize(customer domain.Customer, orderTotalCents int64) error {
	available, err := s.availableCredit(customer)
	if err != nil {
		return err
	}

	if orderTotalCents > available {
		next := NextClosingDate(customer.ClosingDay, domain.DateOnly(s.now()))
		s.logger.WithFields(log.Fields{
			"customer_id": customer.ID,
			"order_total": domain.FormatCents(orderTotalCents),
			"available":   domain.FormatCents(available),
		}).Info("order rejected by credit control")
		return &domain.CreditLimitExceededError{
			AvailableCents:  available,
			NextClosingDate: next,
		}
	}

	return nil
}

func (s *Service) availableCredit(customer domain.Customer) (int64, error) {
	if customer.CreditLimitCents == nil {
		return 0, domain.ErrMissingCreditLimit
	}
	spent, err := s.spentSinceClosing(customer)
	if err != nil {
		return 0, err
	}
	return *customer.CreditLimitCents - spent, nil
}

func (s *Service) spentSinceClosing(customer domain.Customer) (int64, error) {
	since := LatestClosingDate(customer.ClosingDay, domain.DateOnly(s.now()))
	total, err := s.orders.SumSpentSince(customer.ID, since)
	if err != nil {
		return 0, fmt.Errorf("sum spent since closing date: %w", err)
	}
	return total, nil
}
