package domain

// Product описывает товар каталога.
type Product struct {
	ID          string
	Description string
	// PriceCents — цена за единицу в сентаво, строго больше нуля.
	PriceCents int64
}

// Validate проверяет поля товара перед сохранением в каталог и возвращает
// все нарушения разом.
func (p *Product) Validate() []FieldViolation {
	var violations []FieldViolation

	switch {
	case p.Description == "":
		violations = append(violations, FieldViolation{Field: "description", Message: "description is required"})
	case len([]rune(p.Description)) > 100:
		violations = append(violations, FieldViolation{Field: "description", Message: "description must be at most 100 characters"})
	}
	if p.PriceCents <= 0 || p.PriceCents >= maxMoneyCents {
		violations = append(violations, FieldViolation{Field: "price", Message: "price must be a positive decimal with at most 10 integer digits"})
	}

	return violations
}
