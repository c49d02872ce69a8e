package order

import (
	"fmt"
	"time"

	"github.com/imrob/vendas/internal/domain"
)

// ItemRequest описывает одну позицию запроса на создание заказа.
type ItemRequest struct {
	ProductID string
	Qty       int32
}

// CreateOrderRequest — входные данные создания заказа. Нулевой TotalCents
// означает "рассчитать по каталогу"; ненулевое значение принимается как есть.
// Нулевая дата заменяется на сегодняшнюю.
type CreateOrderRequest struct {
	CustomerID string
	Date       time.Time
	TotalCents int64
	Items      []ItemRequest
}

// Validator проверяет структуру запроса на создание заказа. Конструируется
// один раз при старте и инжектируется в сервис, без скрытого глобального
// состояния.
type Validator struct {
	now func() time.Time
}

// NewValidator конструирует валидатор; nil-часы заменяются системными.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// ValidateRequest собирает все нарушения агрегата, не останавливаясь на первом.
func (v *Validator) ValidateRequest(req CreateOrderRequest) []domain.FieldViolation {
	var violations []domain.FieldViolation

	if req.CustomerID == "" {
		violations = append(violations, domain.FieldViolation{Field: "customer_id", Message: domain.ErrCustomerRequired.Error()})
	}
	switch {
	case req.Date.IsZero():
		violations = append(violations, domain.FieldViolation{Field: "date", Message: domain.ErrOrderDateRequired.Error()})
	case domain.DateOnly(req.Date).After(domain.DateOnly(v.now())):
		violations = append(violations, domain.FieldViolation{Field: "date", Message: domain.ErrInvalidOrderDate.Error()})
	}
	if len(req.Items) == 0 {
		violations = append(violations, domain.FieldViolation{Field: "items", Message: domain.ErrItemsRequired.Error()})
	}
	for idx, item := range req.Items {
		violations = append(violations, v.ValidateItem(idx, item)...)
	}

	return violations
}

// ValidateItem проверяет одну позицию. Вызывается и внутри ValidateRequest,
// и отдельным проходом в сервисе: агрегат и каждая позиция валидируются
// независимо.
func (v *Validator) ValidateItem(idx int, item ItemRequest) []domain.FieldViolation {
	var violations []domain.FieldViolation

	if item.ProductID == "" {
		violations = append(violations, domain.FieldViolation{
			Field:   fmt.Sprintf("items[%d].product_id", idx),
			Message: domain.ErrItemProductRequired.Error(),
		})
	}
	if item.Qty < 1 {
		violations = append(violations, domain.FieldViolation{
			Field:   fmt.Sprintf("items[%d].qty", idx),
			Message: domain.ErrItemQtyInvalid.Error(),
		})
	}

	return violations
}

