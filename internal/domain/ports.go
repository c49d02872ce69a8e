package domain

import "time"

// CatalogStore описывает каталог клиентов и товаров, которым владеет
// внешняя подсистема. Ядро обращается к нему только на чтение и для
// регистрации записей.
type CatalogStore interface {
	// CustomerByID возвращает клиента или ErrCustomerNotFound.
	CustomerByID(id string) (Customer, error)
	// ProductByID возвращает товар или ErrProductNotFound.
	ProductByID(id string) (Product, error)
	// ProductsByIDs возвращает найденные товары; неизвестные идентификаторы
	// молча пропускаются (частичный результат — не ошибка).
	ProductsByIDs(ids []string) ([]Product, error)
	// SaveCustomer валидирует и сохраняет клиента, возвращая его идентификатор.
	SaveCustomer(customer Customer) (string, error)
	// SaveProduct валидирует и сохраняет товар, возвращая его идентификатор.
	SaveProduct(product Product) (string, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
