package domain

import "time"

// OrderStatus описывает состояние заказа в жизненном цикле.
// Значения совпадают с тем, что хранится в базе.
type OrderStatus string

const (
	// OrderStatusActive — заказ создан и учитывается в отчётах и кредитном контроле.
	OrderStatusActive OrderStatus = "ATIVO"
	// OrderStatusCanceled — заказ отменён (soft delete, строка остаётся в базе).
	OrderStatusCanceled OrderStatus = "EXCLUIDO"
)

// LineItem представляет одну позицию заказа.
// Цена в позиции не фиксируется: стоимость всегда считается по актуальной
// цене товара из каталога.
type LineItem struct {
	// ID позиции нужен для однозначной идентификации в хранилище.
	ID string
	// ProductID — идентификатор товара из каталога.
	ProductID string
	// Qty — количество единиц товара, минимум 1.
	Qty int32
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID         string
	CustomerID string
	// Date — дата заказа (только дата, UTC). Неизменяема после создания.
	Date   time.Time
	Status OrderStatus
	// TotalCents — итоговая сумма заказа в минимальных денежных единицах (сентаво).
	TotalCents int64
	Items      []LineItem
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
// Сумма заказа с суммой позиций намеренно не сверяется: ненулевое значение,
// присланное клиентом, принимается как есть.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Date.IsZero() {
		errs = append(errs, ErrOrderDateRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	seen := make(map[string]struct{}, len(o.Items))
	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Qty < 1 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		// Пара (заказ, товар) уникальна: один товар дважды добавить нельзя.
		if _, dup := seen[item.ProductID]; dup && item.ProductID != "" {
			errs = append(errs, ErrDuplicateOrderProduct)
		}
		seen[item.ProductID] = struct{}{}
	}

	return errs
}

// OrderFilter задаёт необязательные предикаты выборки заказов.
// nil-поле означает "без ограничения".
type OrderFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	CustomerID *string
	ProductID  *string
	Status     *OrderStatus
}
