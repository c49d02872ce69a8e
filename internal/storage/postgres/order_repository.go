package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/imrob/vendas/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, order_date, status, total_cents, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		order.ID, order.CustomerID, order.Date, string(order.Status),
		order.TotalCents, order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, qty, created_at
			) VALUES ($1,$2,$3,$4,$5)
		`,
			item.ID, order.ID, item.ProductID, item.Qty, item.CreatedAt,
		); err != nil {
			// Пара (заказ, товар) уникальна на уровне схемы.
			if isUniqueViolation(err) {
				err = domain.ErrDuplicateOrderProduct
				return err
			}
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, order_date, status, total_cents, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    total_cents = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`,
		string(order.Status),
		order.TotalCents,
		order.UpdatedAt,
		order.ID,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.orderExists(ctx, order.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}

	return nil
}

func (r *orderRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Позиции удаляются каскадом.
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

// SumSpentSince считает траты клиента с датой строго больше since по
// актуальным ценам каталога, независимо от статуса заказов.
func (r *orderRepository) SumSpentSince(customerID string, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(pr.price_cents * it.qty), 0)
		FROM orders o
		JOIN order_items it ON it.order_id = o.id
		JOIN products pr ON pr.id = it.product_id
		WHERE o.customer_id = $1
		  AND o.order_date > $2
	`, customerID, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum spent since: %w", err)
	}

	return total, nil
}

func (r *orderRepository) GroupedByCustomer() ([]domain.CustomerTotal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, COALESCE(SUM(o.total_cents), 0)
		FROM customers c
		JOIN orders o ON o.customer_id = c.id
		GROUP BY c.id, c.name
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("group orders by customer: %w", err)
	}
	defer rows.Close()

	result := make([]domain.CustomerTotal, 0)
	for rows.Next() {
		var row domain.CustomerTotal
		if err := rows.Scan(&row.CustomerID, &row.Name, &row.TotalCents); err != nil {
			return nil, fmt.Errorf("scan customer total: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer totals: %w", err)
	}

	return result, nil
}

func (r *orderRepository) GroupedByProduct() ([]domain.ProductTotal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.description, COALESCE(SUM(it.qty), 0), COALESCE(SUM(it.qty * p.price_cents), 0)
		FROM products p
		JOIN order_items it ON it.product_id = p.id
		GROUP BY p.id, p.description
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("group orders by product: %w", err)
	}
	defer rows.Close()

	result := make([]domain.ProductTotal, 0)
	for rows.Next() {
		var row domain.ProductTotal
		if err := rows.Scan(&row.ProductID, &row.Description, &row.TotalQty, &row.TotalCents); err != nil {
			return nil, fmt.Errorf("scan product total: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product totals: %w", err)
	}

	return result, nil
}

// Filter возвращает заказы, удовлетворяющие всем заданным предикатам.
// Фильтр по товару соединяется через позиции; заказ с несколькими позициями
// товара схлопывается группировкой по идентификатору заказа.
func (r *orderRepository) Filter(filter domain.OrderFilter) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var builder strings.Builder
	builder.WriteString(`
		SELECT o.id, o.customer_id, o.order_date, o.status, o.total_cents, o.version, o.created_at, o.updated_at
		FROM orders o
	`)
	if filter.ProductID != nil {
		builder.WriteString(" JOIN order_items it ON it.order_id = o.id")
	}

	conds := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.DateFrom != nil {
		conds = append(conds, "o.order_date >= "+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		conds = append(conds, "o.order_date <= "+arg(*filter.DateTo))
	}
	if filter.CustomerID != nil {
		conds = append(conds, "o.customer_id = "+arg(*filter.CustomerID))
	}
	if filter.ProductID != nil {
		conds = append(conds, "it.product_id = "+arg(*filter.ProductID))
	}
	if filter.Status != nil {
		conds = append(conds, "o.status = "+arg(string(*filter.Status)))
	}

	if len(conds) > 0 {
		builder.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	builder.WriteString(" GROUP BY o.id ORDER BY o.created_at DESC, o.id DESC")

	rows, err := r.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("filter orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *orderRepository) scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var status string
	if err := row.Scan(
		&order.ID, &order.CustomerID, &order.Date, &status,
		&order.TotalCents, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	order.Date = order.Date.UTC()
	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, qty, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Qty, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) orderExists(ctx context.Context, orderID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
