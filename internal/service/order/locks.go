package order

import "sync"

// customerLocks сериализует создание заказов одного клиента: проверка
// кредита и сохранение выполняются под одним замком, иначе два конкурентных
// заказа могут пройти проверку по устаревшей сумме трат и вместе превысить
// лимит. Замки не освобождаются — их число ограничено числом клиентов.
type customerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire блокирует клиента и возвращает функцию освобождения.
func (l *customerLocks) acquire(customerID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[customerID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[customerID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
