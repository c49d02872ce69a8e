package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrCustomerRequired — у заказа не указан клиент.
	ErrCustomerRequired = errors.New("customer_id is required")
	// ErrOrderDateRequired — у заказа не указана дата.
	ErrOrderDateRequired = errors.New("order date is required")
	// ErrItemsRequired — заказ должен содержать хотя бы одну позицию.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// ErrInvalidOrderDate — дата заказа лежит в будущем.
	ErrInvalidOrderDate = errors.New("order date must not be in the future")
	// ErrItemProductRequired — у позиции не указан товар.
	ErrItemProductRequired = errors.New("item product_id is required")
	// ErrItemQtyInvalid — количество в позиции меньше единицы.
	ErrItemQtyInvalid = errors.New("item qty must be at least 1")
	// ErrDuplicateOrderProduct — товар встречается в заказе больше одного раза.
	ErrDuplicateOrderProduct = errors.New("order already contains this product")

	// ErrCustomerNotFound возвращается, если клиент отсутствует в каталоге.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrProductNotFound возвращается, если товар отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")

	// ErrMissingCreditLimit — у клиента вообще не настроен кредитный лимит.
	// Нулевой лимит валиден и просто не даёт кредита.
	ErrMissingCreditLimit = errors.New("customer has no credit limit configured")
	// ErrCreditLimitExceeded — заказ превышает доступный кредит клиента.
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")

	// ErrMethodNotAllowed — вызван отключённый CRUD-метод: заказы создаются
	// только через полный цикл создания и не редактируются по полям.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrValidation — агрегирующая ошибка структурной валидации запроса.
	ErrValidation = errors.New("validation failed")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// FieldViolation описывает одно нарушение валидации конкретного поля.
type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError собирает все нарушения валидации запроса, а не только первое.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	builder := strings.Builder{}
	builder.WriteString("validation failed:")
	for _, v := range e.Violations {
		builder.WriteString(fmt.Sprintf(" [%s : %s]", v.Field, v.Message))
	}
	return builder.String()
}

// Is позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CustomerNotFoundError уточняет ErrCustomerNotFound идентификатором клиента.
type CustomerNotFoundError struct {
	ID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer %q not found", e.ID)
}

func (e *CustomerNotFoundError) Is(target error) bool {
	return target == ErrCustomerNotFound
}

// ProductNotFoundError уточняет ErrProductNotFound идентификатором товара.
type ProductNotFoundError struct {
	ID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %q not found", e.ID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// CreditLimitExceededError несёт контекст для пользовательского сообщения:
// сколько кредита осталось и когда начнётся следующий цикл фатуры.
type CreditLimitExceededError struct {
	AvailableCents  int64
	NextClosingDate time.Time
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("available credit: %s | next invoice closing date: %s",
		FormatCents(e.AvailableCents), e.NextClosingDate.Format("02-01-2006"))
}

func (e *CreditLimitExceededError) Is(target error) bool {
	return target == ErrCreditLimitExceeded
}

// IsNotFound проверяет, относится ли ошибка к одному из "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}
