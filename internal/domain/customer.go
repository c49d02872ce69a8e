package domain

// maxMoneyCents ограничивает денежные значения десятью целыми разрядами
// (и двумя знаками после запятой), как того требует каталог.
const maxMoneyCents = int64(1_000_000_000_000)

// Customer описывает клиента каталога.
type Customer struct {
	ID   string
	Name string
	// CreditLimitCents — кредитный лимит в сентаво. nil означает, что лимит
	// не настроен вовсе; это не то же самое, что нулевой лимит.
	CreditLimitCents *int64
	// ClosingDay — день месяца (1–31), в который закрывается фатура клиента.
	ClosingDay int
}

// Validate проверяет поля клиента перед сохранением в каталог и возвращает
// все нарушения разом.
func (c *Customer) Validate() []FieldViolation {
	var violations []FieldViolation

	switch {
	case c.Name == "":
		violations = append(violations, FieldViolation{Field: "name", Message: "name is required"})
	case len([]rune(c.Name)) > 100:
		violations = append(violations, FieldViolation{Field: "name", Message: "name must be at most 100 characters"})
	}
	for _, r := range c.Name {
		if r >= '0' && r <= '9' {
			violations = append(violations, FieldViolation{Field: "name", Message: "name must not contain digits"})
			break
		}
	}
	if c.CreditLimitCents == nil {
		violations = append(violations, FieldViolation{Field: "creditLimit", Message: "credit limit is required"})
	} else if *c.CreditLimitCents <= 0 || *c.CreditLimitCents >= maxMoneyCents {
		violations = append(violations, FieldViolation{Field: "creditLimit", Message: "credit limit must be a positive decimal with at most 10 integer digits"})
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		violations = append(violations, FieldViolation{Field: "closingDay", Message: "closing day must be between 1 and 31"})
	}

	return violations
}
