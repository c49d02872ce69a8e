package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/imrob/vendas/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
// Суммы по позициям считаются по актуальной цене товара, поэтому
// репозиторию нужен доступ к каталогу.
type orderRepositoryInMemory struct {
	mu      sync.RWMutex
	catalog *CatalogStore
	items   map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository(catalog *CatalogStore) domain.OrderRepository {
	return &orderRepositoryInMemory{
		catalog: catalog,
		items:   make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят. Уникальность пары
// (заказ, товар) проверяется здесь же, как это делал бы constraint в базе.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	seen := make(map[string]struct{}, len(order.Items))
	for _, item := range order.Items {
		if _, dup := seen[item.ProductID]; dup {
			return domain.ErrDuplicateOrderProduct
		}
		seen[item.ProductID] = struct{}{}
	}

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = copyOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	r.items[order.ID] = copyOrder(order)
	return nil
}

// Delete жёстко удаляет заказ вместе с позициями.
func (r *orderRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.items, id)
	return nil
}

// SumSpentSince суммирует qty * актуальная цена по заказам клиента с датой
// строго больше since. Статус заказа не учитывается, позиции с удалёнными
// из каталога товарами пропускаются (эквивалент inner join).
func (r *orderRepositoryInMemory) SumSpentSince(customerID string, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, order := range r.items {
		if order.CustomerID != customerID || !order.Date.After(since) {
			continue
		}
		for _, item := range order.Items {
			product, err := r.catalog.ProductByID(item.ProductID)
			if err != nil {
				continue
			}
			total += int64(item.Qty) * product.PriceCents
		}
	}
	return total, nil
}

// GroupedByCustomer агрегирует сохранённые итоги заказов по клиентам.
func (r *orderRepositoryInMemory) GroupedByCustomer() ([]domain.CustomerTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := make(map[string]int64)
	for _, order := range r.items {
		totals[order.CustomerID] += order.TotalCents
	}

	result := make([]domain.CustomerTotal, 0, len(totals))
	for customerID, total := range totals {
		customer, err := r.catalog.CustomerByID(customerID)
		if err != nil {
			continue
		}
		result = append(result, domain.CustomerTotal{
			CustomerID: customerID,
			Name:       customer.Name,
			TotalCents: total,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CustomerID < result[j].CustomerID })
	return result, nil
}

// GroupedByProduct агрегирует количество и стоимость по товарам из всех
// заказов независимо от статуса.
func (r *orderRepositoryInMemory) GroupedByProduct() ([]domain.ProductTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	qty := make(map[string]int64)
	for _, order := range r.items {
		for _, item := range order.Items {
			qty[item.ProductID] += int64(item.Qty)
		}
	}

	result := make([]domain.ProductTotal, 0, len(qty))
	for productID, totalQty := range qty {
		product, err := r.catalog.ProductByID(productID)
		if err != nil {
			continue
		}
		result = append(result, domain.ProductTotal{
			ProductID:   productID,
			Description: product.Description,
			TotalQty:    totalQty,
			TotalCents:  totalQty * product.PriceCents,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })
	return result, nil
}

// Filter возвращает заказы по всем заданным предикатам. Каждый заказ
// попадает в результат не больше одного раза.
func (r *orderRepositoryInMemory) Filter(filter domain.OrderFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.DateFrom != nil && order.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && order.Date.After(*filter.DateTo) {
			continue
		}
		if filter.CustomerID != nil && order.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if filter.ProductID != nil && !containsProduct(order, *filter.ProductID) {
			continue
		}
		result = append(result, copyOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

func containsProduct(order domain.Order, productID string) bool {
	for _, item := range order.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

func copyOrder(order domain.Order) domain.Order {
	items := make([]domain.LineItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
