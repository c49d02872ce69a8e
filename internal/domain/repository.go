package domain

import "time"

// CustomerTotal — строка отчёта "итоги по клиентам".
type CustomerTotal struct {
	CustomerID string
	Name       string
	// TotalCents — сумма сохранённых итогов заказов клиента.
	TotalCents int64
}

// ProductTotal — строка отчёта "итоги по товарам".
type ProductTotal struct {
	ProductID   string
	Description string
	TotalQty    int64
	// TotalCents — сумма qty * актуальная цена по всем заказам.
	TotalCents int64
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями. Возвращает
	// ErrOrderVersionConflict, если запись с таким ID уже существует, и
	// ErrDuplicateOrderProduct при нарушении уникальности (заказ, товар).
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// Save применяет обновление статуса с учётом optimistic locking.
	Save(order Order) error
	// Delete жёстко удаляет заказ и его позиции или возвращает ErrOrderNotFound.
	Delete(id string) error
	// SumSpentSince возвращает сумму qty * актуальная цена товара по всем
	// позициям всех заказов клиента с датой строго больше since. Статус
	// заказа не учитывается. Ноль, а не ошибка, когда строк нет.
	SumSpentSince(customerID string, since time.Time) (int64, error)
	// GroupedByCustomer возвращает по строке на каждого клиента, у которого
	// есть хотя бы один заказ.
	GroupedByCustomer() ([]CustomerTotal, error)
	// GroupedByProduct возвращает по строке на каждый товар, встречающийся
	// хотя бы в одной позиции, независимо от статуса заказа.
	GroupedByProduct() ([]ProductTotal, error)
	// Filter возвращает заказы, удовлетворяющие всем заданным предикатам,
	// без дублей по идентификатору заказа.
	Filter(filter OrderFilter) ([]Order, error)
}
