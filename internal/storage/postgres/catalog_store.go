package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/imrob/vendas/internal/domain"
)

type catalogStore struct {
	db *sql.DB
}

// NewCatalogStore создаёт PostgreSQL-реализацию каталога клиентов и товаров.
func NewCatalogStore(store *Store) domain.CatalogStore {
	return &catalogStore{db: store.DB()}
}

func (s *catalogStore) CustomerByID(id string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var customer domain.Customer
	var limit sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, credit_limit_cents, closing_day
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &limit, &customer.ClosingDay)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}

	if limit.Valid {
		value := limit.Int64
		customer.CreditLimitCents = &value
	}

	return customer, nil
}

func (s *catalogStore) ProductByID(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var product domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, description, price_cents
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Description, &product.PriceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

// ProductsByIDs возвращает найденные товары в порядке запрошенных
// идентификаторов; неизвестные молча пропускаются, дубли схлопываются.
func (s *catalogStore) ProductsByIDs(ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	placeholders := make([]string, len(unique))
	args := make([]interface{}, len(unique))
	for i, id := range unique {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, description, price_cents
		FROM products
		WHERE id IN (%s)
	`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Product, len(unique))
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Description, &product.PriceCents); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		byID[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	result := make([]domain.Product, 0, len(byID))
	for _, id := range unique {
		if product, ok := byID[id]; ok {
			result = append(result, product)
		}
	}

	return result, nil
}

func (s *catalogStore) SaveCustomer(customer domain.Customer) (string, error) {
	if violations := customer.Validate(); len(violations) > 0 {
		return "", &domain.ValidationError{Violations: violations}
	}
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var limit sql.NullInt64
	if customer.CreditLimitCents != nil {
		limit = sql.NullInt64{Int64: *customer.CreditLimitCents, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, credit_limit_cents, closing_day)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    credit_limit_cents = EXCLUDED.credit_limit_cents,
		    closing_day = EXCLUDED.closing_day
	`, customer.ID, customer.Name, limit, customer.ClosingDay)
	if err != nil {
		return "", fmt.Errorf("upsert customer: %w", err)
	}

	return customer.ID, nil
}

func (s *catalogStore) SaveProduct(product domain.Product) (string, error) {
	if violations := product.Validate(); len(violations) > 0 {
		return "", &domain.ValidationError{Violations: violations}
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, description, price_cents)
		VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE
		SET description = EXCLUDED.description,
		    price_cents = EXCLUDED.price_cents
	`, product.ID, product.Description, product.PriceCents)
	if err != nil {
		return "", fmt.Errorf("upsert product: %w", err)
	}

	return product.ID, nil
}

var _ domain.CatalogStore = (*catalogStore)(nil)
