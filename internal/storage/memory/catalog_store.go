package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/imrob/vendas/internal/domain"
)

// CatalogStore — in-memory каталог клиентов и товаров для локальной
// разработки и тестов.
type CatalogStore struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
	products  map[string]domain.Product
}

// NewCatalogStore возвращает пустой каталог.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
	}
}

// CustomerByID возвращает клиента или ErrCustomerNotFound.
func (s *CatalogStore) CustomerByID(id string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// ProductByID возвращает товар или ErrProductNotFound.
func (s *CatalogStore) ProductByID(id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// ProductsByIDs возвращает найденные товары в порядке запрошенных
// идентификаторов. Неизвестные и повторные идентификаторы молча
// пропускаются.
func (s *CatalogStore) ProductsByIDs(ids []string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if product, ok := s.products[id]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

// SaveCustomer валидирует и сохраняет клиента, выдавая идентификатор новым записям.
func (s *CatalogStore) SaveCustomer(customer domain.Customer) (string, error) {
	if violations := customer.Validate(); len(violations) > 0 {
		return "", &domain.ValidationError{Violations: violations}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	s.customers[customer.ID] = customer
	return customer.ID, nil
}

// SaveProduct валидирует и сохраняет товар, выдавая идентификатор новым записям.
func (s *CatalogStore) SaveProduct(product domain.Product) (string, error) {
	if violations := product.Validate(); len(violations) > 0 {
		return "", &domain.ValidationError{Violations: violations}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	s.products[product.ID] = product
	return product.ID, nil
}

var _ domain.CatalogStore = (*CatalogStore)(nil)
